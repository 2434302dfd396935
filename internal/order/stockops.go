package order

import (
	"context"
	"errors"

	"github.com/TNZtims/bazaar-pos-sub000/internal/model"
	"github.com/TNZtims/bazaar-pos-sub000/internal/stock"

	"go.uber.org/zap"
)

type opKind int

const (
	opRestore opKind = iota
	opCommitDirect
	opCommitReserved
)

// stockOp is one per-product delta of a multi-product lifecycle transition
type stockOp struct {
	kind      opKind
	productID uint
	qty       int
}

// runStockOps applies a multi-product sequence atomically. The sequence runs
// inside a record-store transaction when one is available; when the store
// reports transactions as unsupported, it runs as individual atomic per-product
// operations while keeping a compensation log, and a failure partway through
// rolls the earlier deltas back before the error is returned.
func (c *Controller) runStockOps(ctx context.Context, storeID uint, ops []stockOp, snapshots map[uint]*model.Product) error {
	apply := func(l *stock.Ledger) error {
		for _, op := range ops {
			p, err := applyOp(ctx, l, storeID, op)
			if err != nil {
				return err
			}
			if snapshots != nil {
				snapshots[op.productID] = p
			}
		}
		return nil
	}

	err := c.ledger.InTransaction(ctx, func(txl *stock.Ledger) error {
		return apply(txl)
	})
	if !errors.Is(err, stock.ErrTxUnsupported) {
		return err
	}

	c.log.Debug("record store transactions unavailable, using per-product fallback",
		zap.Uint("store_id", storeID), zap.Int("ops", len(ops)))

	var done []stockOp
	for _, op := range ops {
		p, opErr := applyOp(ctx, c.ledger, storeID, op)
		if opErr != nil {
			c.compensate(ctx, storeID, done)
			return opErr
		}
		done = append(done, op)
		if snapshots != nil {
			snapshots[op.productID] = p
		}
	}
	return nil
}

func applyOp(ctx context.Context, l *stock.Ledger, storeID uint, op stockOp) (*model.Product, error) {
	switch op.kind {
	case opRestore:
		return l.Restore(ctx, storeID, op.productID, op.qty)
	case opCommitDirect:
		return l.Commit(ctx, storeID, op.productID, op.qty, false)
	case opCommitReserved:
		return l.Commit(ctx, storeID, op.productID, op.qty, true)
	}
	return nil, errors.New("unknown stock operation")
}

// compensate issues the inverse delta for every applied operation, in reverse
// order. Compensation is best effort: failures are logged, not returned, since
// the original error is what the caller needs to see.
func (c *Controller) compensate(ctx context.Context, storeID uint, done []stockOp) {
	for i := len(done) - 1; i >= 0; i-- {
		op := done[i]
		var err error
		switch op.kind {
		case opRestore:
			_, err = c.ledger.Commit(ctx, storeID, op.productID, op.qty, false)
		case opCommitDirect:
			_, err = c.ledger.Restore(ctx, storeID, op.productID, op.qty)
		case opCommitReserved:
			// Return the stock, then re-establish the cart hold it came from.
			if _, err = c.ledger.Restore(ctx, storeID, op.productID, op.qty); err == nil {
				_, err = c.ledger.Reserve(ctx, storeID, op.productID, op.qty)
			}
		}
		if err != nil {
			c.log.Error("stock compensation failed",
				zap.Uint("store_id", storeID),
				zap.Uint("product_id", op.productID),
				zap.Int("quantity", op.qty),
				zap.Error(err))
		}
	}
}
