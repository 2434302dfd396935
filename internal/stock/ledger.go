package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TNZtims/bazaar-pos-sub000/internal/model"
	"github.com/TNZtims/bazaar-pos-sub000/internal/realtime"

	"go.uber.org/zap"
)

// ErrInsufficientStock is the sentinel for reservation and commit failures.
// Match with errors.Is, or errors.As against *InsufficientStockError for the
// shortfall details.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrInvalidQuantity is returned when a primitive is called with qty <= 0
var ErrInvalidQuantity = errors.New("quantity must be greater than zero")

// InsufficientStockError reports the exact shortfall of a rejected operation
type InsufficientStockError struct {
	ProductID uint
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d. Available: %d, Requested: %d",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Ledger is the sole owner of per-product quantity arithmetic. All callers go
// through its primitives; no caller computes new quantity values itself.
// Every successful primitive broadcasts the resulting snapshot to the
// product's store channel.
type Ledger struct {
	store       Store
	broadcaster realtime.Broadcaster
	log         *zap.Logger
	buffer      *[]bufferedEvent
	now         func() time.Time
}

type bufferedEvent struct {
	channel string
	event   realtime.InventoryEvent
}

func NewLedger(store Store, broadcaster realtime.Broadcaster, log *zap.Logger) *Ledger {
	return &Ledger{
		store:       store,
		broadcaster: broadcaster,
		log:         log,
		now:         time.Now,
	}
}

// Reserve places a cart hold: reserved += qty, available -= qty, guarded by
// available >= qty in the same statement. The guard is re-checked atomically
// at apply time, not just at validation time.
func (l *Ledger) Reserve(ctx context.Context, storeID, productID uint, qty int) (*model.Product, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	p, err := l.store.ApplyGuarded(ctx, storeID, productID,
		Delta{Reserved: qty, Available: -qty},
		Guard{Field: GuardAvailable, Min: qty})
	if err != nil {
		return nil, l.shortfall(ctx, storeID, productID, qty, err)
	}
	l.broadcast(ctx, p)
	return p, nil
}

// Release returns up to qty reserved units to available stock. The amount is
// clamped to the current reservation inside the statement, so duplicate
// unload-beacon calls or racing requests never underflow the reservation.
func (l *Ledger) Release(ctx context.Context, storeID, productID uint, qty int) (*model.Product, int, error) {
	if qty <= 0 {
		return nil, 0, ErrInvalidQuantity
	}
	p, released, err := l.store.ApplyClamped(ctx, storeID, productID, qty)
	if err != nil {
		return nil, 0, err
	}
	l.broadcast(ctx, p)
	return p, released, nil
}

// Commit converts stock into a permanent deduction for a confirmed order.
// With fromReservation the hold moves out of reserved_quantity; otherwise the
// deduction comes straight out of available stock with an atomic guard.
func (l *Ledger) Commit(ctx context.Context, storeID, productID uint, qty int, fromReservation bool) (*model.Product, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	var (
		p   *model.Product
		err error
	)
	if fromReservation {
		p, err = l.store.ApplyGuarded(ctx, storeID, productID,
			Delta{Quantity: -qty, Reserved: -qty},
			Guard{Field: GuardReserved, Min: qty})
	} else {
		p, err = l.store.ApplyGuarded(ctx, storeID, productID,
			Delta{Quantity: -qty, Available: -qty},
			Guard{Field: GuardAvailable, Min: qty})
	}
	if err != nil {
		return nil, l.shortfall(ctx, storeID, productID, qty, err)
	}
	l.broadcast(ctx, p)
	return p, nil
}

// Restore undoes a commit, returning stock to available inventory
func (l *Ledger) Restore(ctx context.Context, storeID, productID uint, qty int) (*model.Product, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	p, err := l.store.Apply(ctx, storeID, productID, Delta{Quantity: qty, Available: qty})
	if err != nil {
		return nil, err
	}
	l.broadcast(ctx, p)
	return p, nil
}

// Adjust applies a manual admin correction as a signed delta against physical
// and available stock. Negative deltas are guarded so available never goes
// below zero; absolute quantity writes are not offered.
func (l *Ledger) Adjust(ctx context.Context, storeID, productID uint, delta int) (*model.Product, error) {
	if delta == 0 {
		return l.store.Get(ctx, storeID, productID)
	}
	var (
		p   *model.Product
		err error
	)
	if delta < 0 {
		p, err = l.store.ApplyGuarded(ctx, storeID, productID,
			Delta{Quantity: delta, Available: delta},
			Guard{Field: GuardAvailable, Min: -delta})
	} else {
		p, err = l.store.Apply(ctx, storeID, productID, Delta{Quantity: delta, Available: delta})
	}
	if err != nil {
		return nil, l.shortfall(ctx, storeID, productID, -delta, err)
	}
	l.broadcast(ctx, p)
	return p, nil
}

// InTransaction runs fn against a transaction-scoped ledger when the record
// store supports it, and reports ErrTxUnsupported otherwise so the caller can
// fall back to individual atomic operations. Broadcasts raised inside the
// transaction are buffered and flushed only after a successful commit.
func (l *Ledger) InTransaction(ctx context.Context, fn func(*Ledger) error) error {
	var pending []bufferedEvent
	err := l.store.InTransaction(ctx, func(txStore Store) error {
		txLedger := &Ledger{
			store:       txStore,
			broadcaster: l.broadcaster,
			log:         l.log,
			buffer:      &pending,
			now:         l.now,
		}
		return fn(txLedger)
	})
	if err != nil {
		return err
	}
	for _, ev := range pending {
		if pubErr := l.broadcaster.Publish(ctx, ev.channel, ev.event); pubErr != nil {
			l.log.Warn("inventory broadcast failed",
				zap.Uint("product_id", ev.event.ProductID),
				zap.Error(pubErr))
		}
	}
	return nil
}

// shortfall maps a guard failure to an InsufficientStockError carrying the
// current availability, so the user sees the exact shortfall.
func (l *Ledger) shortfall(ctx context.Context, storeID, productID uint, requested int, err error) error {
	if !errors.Is(err, ErrGuardFailed) {
		return err
	}
	available := 0
	if p, getErr := l.store.Get(ctx, storeID, productID); getErr == nil {
		available = p.AvailableQuantity
	}
	return &InsufficientStockError{
		ProductID: productID,
		Requested: requested,
		Available: available,
	}
}

func (l *Ledger) broadcast(ctx context.Context, p *model.Product) {
	ev := bufferedEvent{
		channel: realtime.StoreChannel(p.StoreID),
		event: realtime.InventoryEvent{
			ProductID:         p.ID,
			Quantity:          p.Quantity,
			ReservedQuantity:  p.ReservedQuantity,
			AvailableQuantity: p.AvailableQuantity,
			Timestamp:         l.now().UTC(),
		},
	}
	if l.buffer != nil {
		*l.buffer = append(*l.buffer, ev)
		return
	}
	if err := l.broadcaster.Publish(ctx, ev.channel, ev.event); err != nil {
		l.log.Warn("inventory broadcast failed",
			zap.Uint("product_id", p.ID),
			zap.Error(err))
	}
}
