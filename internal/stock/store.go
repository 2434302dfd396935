package stock

import (
	"context"
	"errors"

	"github.com/TNZtims/bazaar-pos-sub000/internal/model"

	"gorm.io/gorm"
)

// Delta is a signed adjustment applied to the three quantity columns of a
// product in a single atomic statement.
type Delta struct {
	Quantity  int
	Reserved  int
	Available int
}

// GuardField names a quantity column a guarded delta is conditioned on
type GuardField string

const (
	GuardAvailable GuardField = "available_quantity"
	GuardReserved  GuardField = "reserved_quantity"
)

// Guard is a minimum-value condition evaluated in the same statement as the
// delta it protects. It closes the race between a validation read and the
// write: the condition is re-checked atomically at apply time.
type Guard struct {
	Field GuardField
	Min   int
}

var (
	// ErrNotFound is returned when the product does not resolve within the store scope
	ErrNotFound = errors.New("product not found")
	// ErrGuardFailed is returned when a guarded delta's condition does not hold at apply time
	ErrGuardFailed = errors.New("stock guard failed")
	// ErrTxUnsupported is reported by InTransaction when the record store
	// cannot scope a multi-product transaction. Callers fall back to
	// individual atomic operations with compensation.
	ErrTxUnsupported = errors.New("transactions unsupported")
)

// Store is the record-store boundary for product quantities. Every mutation
// is one atomic increment or conditional update keyed by product and store;
// read-then-write sequences are not expressible through this interface.
type Store interface {
	Get(ctx context.Context, storeID, productID uint) (*model.Product, error)
	// Apply performs an unconditional atomic increment of the quantity columns.
	Apply(ctx context.Context, storeID, productID uint, d Delta) (*model.Product, error)
	// ApplyGuarded performs the increment only if the guard holds, atomically.
	ApplyGuarded(ctx context.Context, storeID, productID uint, d Delta, g Guard) (*model.Product, error)
	// ApplyClamped releases up to qty reserved units, clamping to the current
	// reservation so replayed or racing calls never drive it negative.
	// Returns the updated product and the amount actually released.
	ApplyClamped(ctx context.Context, storeID, productID uint, qty int) (*model.Product, int, error)
	// InTransaction runs fn against a transaction-scoped Store, or reports
	// ErrTxUnsupported when the deployment cannot provide one.
	InTransaction(ctx context.Context, fn func(Store) error) error
}

// GormStore implements Store against Postgres through gorm
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, storeID, productID uint) (*model.Product, error) {
	var p model.Product
	err := s.db.WithContext(ctx).
		Where("id = ? AND store_id = ?", productID, storeID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *GormStore) Apply(ctx context.Context, storeID, productID uint, d Delta) (*model.Product, error) {
	var p model.Product
	res := s.db.WithContext(ctx).Raw(`
		UPDATE products
		SET quantity = quantity + ?,
		    reserved_quantity = reserved_quantity + ?,
		    available_quantity = available_quantity + ?,
		    updated_at = NOW()
		WHERE id = ? AND store_id = ? AND deleted_at IS NULL
		RETURNING *`,
		d.Quantity, d.Reserved, d.Available, productID, storeID,
	).Scan(&p)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *GormStore) ApplyGuarded(ctx context.Context, storeID, productID uint, d Delta, g Guard) (*model.Product, error) {
	var p model.Product
	res := s.db.WithContext(ctx).Raw(`
		UPDATE products
		SET quantity = quantity + ?,
		    reserved_quantity = reserved_quantity + ?,
		    available_quantity = available_quantity + ?,
		    updated_at = NOW()
		WHERE id = ? AND store_id = ? AND deleted_at IS NULL
		  AND `+string(g.Field)+` >= ?
		RETURNING *`,
		d.Quantity, d.Reserved, d.Available, productID, storeID, g.Min,
	).Scan(&p)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Either the product is missing or the guard lost the race.
		if _, err := s.Get(ctx, storeID, productID); err != nil {
			return nil, err
		}
		return nil, ErrGuardFailed
	}
	return &p, nil
}

func (s *GormStore) ApplyClamped(ctx context.Context, storeID, productID uint, qty int) (*model.Product, int, error) {
	var row struct {
		ID                uint
		StoreID           uint
		Name              string
		Quantity          int
		ReservedQuantity  int
		AvailableQuantity int
		Released          int
	}
	res := s.db.WithContext(ctx).Raw(`
		WITH prev AS (
			SELECT id, reserved_quantity AS prev_reserved
			FROM products
			WHERE id = ? AND store_id = ? AND deleted_at IS NULL
		)
		UPDATE products p
		SET reserved_quantity = p.reserved_quantity - LEAST(p.reserved_quantity, ?),
		    available_quantity = p.available_quantity + LEAST(p.reserved_quantity, ?),
		    updated_at = NOW()
		FROM prev
		WHERE p.id = prev.id
		RETURNING p.id, p.store_id, p.name, p.quantity, p.reserved_quantity,
		          p.available_quantity, prev.prev_reserved - p.reserved_quantity AS released`,
		productID, storeID, qty, qty,
	).Scan(&row)
	if res.Error != nil {
		return nil, 0, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, 0, ErrNotFound
	}
	p := model.Product{
		ID:                row.ID,
		StoreID:           row.StoreID,
		Name:              row.Name,
		Quantity:          row.Quantity,
		ReservedQuantity:  row.ReservedQuantity,
		AvailableQuantity: row.AvailableQuantity,
	}
	return &p, row.Released, nil
}

func (s *GormStore) InTransaction(ctx context.Context, fn func(Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
	if errors.Is(err, gorm.ErrInvalidTransaction) {
		return ErrTxUnsupported
	}
	return err
}
