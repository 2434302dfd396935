package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TNZtims/bazaar-pos-sub000/internal/model"
	"github.com/TNZtims/bazaar-pos-sub000/internal/stock"

	"go.uber.org/zap"
)

// ErrNotFound is returned when a sale does not resolve within the store scope
var ErrNotFound = errors.New("order not found")

// ErrInvalidTransition is the sentinel for state-machine violations; match
// with errors.Is, or errors.As against *InvalidTransitionError for the reason.
var ErrInvalidTransition = errors.New("invalid order transition")

// InvalidTransitionError explains which state precluded the action
type InvalidTransitionError struct {
	Reason string
}

func (e *InvalidTransitionError) Error() string { return e.Reason }

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func invalidTransition(format string, args ...interface{}) error {
	return &InvalidTransitionError{Reason: fmt.Sprintf(format, args...)}
}

// Line is one requested order line
type Line struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// CreateRequest describes a cart being confirmed into an order
type CreateRequest struct {
	CustomerName  string
	CustomerPhone string
	Lines         []Line
	Tax           float64
	Discount      float64
	DueDate       *time.Time
	Notes         string
	Cashier       string
	CreatedBy     uint
	// FromReservation marks carts that placed holds first (public shop flow);
	// their commits convert the reservation instead of deducting available stock.
	FromReservation bool
	// CustomerOrder marks public orders that start approval-pending
	CustomerOrder bool
}

// DetailsUpdate carries the editable non-item fields; nil means unchanged
type DetailsUpdate struct {
	CustomerName  *string
	CustomerPhone *string
	Tax           *float64
	Discount      *float64
	DueDate       *time.Time
	ClearDueDate  bool
	Notes         *string
}

// PaymentRequest records one payment against a sale
type PaymentRequest struct {
	Amount  float64
	Method  string
	Notes   string
	Cashier string
}

// Controller drives a sale through its lifecycle, invoking the stock ledger
// on every transition that changes committed quantity.
type Controller struct {
	sales        Sales
	ledger       *stock.Ledger
	log          *zap.Logger
	deleteWindow time.Duration
	now          func() time.Time
}

func NewController(sales Sales, ledger *stock.Ledger, log *zap.Logger, deleteWindow time.Duration) *Controller {
	return &Controller{
		sales:        sales,
		ledger:       ledger,
		log:          log,
		deleteWindow: deleteWindow,
		now:          time.Now,
	}
}

// Create confirms a cart into an order, committing stock per line. Quantities
// are committed at creation time, not at payment time. On a mid-create
// failure the already-committed lines are compensated before returning.
func (c *Controller) Create(ctx context.Context, storeID uint, req CreateRequest) (*model.Sale, error) {
	if len(req.Lines) == 0 {
		return nil, invalidTransition("order must contain at least one item")
	}
	for _, ln := range req.Lines {
		if ln.Quantity <= 0 {
			return nil, invalidTransition("item quantity must be greater than zero")
		}
	}

	ops := make([]stockOp, 0, len(req.Lines))
	for _, ln := range req.Lines {
		kind := opCommitDirect
		if req.FromReservation {
			kind = opCommitReserved
		}
		ops = append(ops, stockOp{kind: kind, productID: ln.ProductID, qty: ln.Quantity})
	}
	snapshots := make(map[uint]*model.Product)
	if err := c.runStockOps(ctx, storeID, ops, snapshots); err != nil {
		return nil, err
	}

	now := c.now()
	sale := &model.Sale{
		StoreID:        storeID,
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		Tax:            req.Tax,
		Discount:       req.Discount,
		Status:         model.StatusActive,
		PaymentStatus:  model.PaymentPending,
		ApprovalStatus: model.ApprovalApproved,
		DueDate:        req.DueDate,
		Notes:          req.Notes,
		Cashier:        req.Cashier,
		CreatedBy:      req.CreatedBy,
	}
	if req.CustomerOrder {
		sale.ApprovalStatus = model.ApprovalPending
	}
	for _, ln := range req.Lines {
		p := snapshots[ln.ProductID]
		sale.Items = append(sale.Items, model.SaleItem{
			ProductID:   ln.ProductID,
			ProductName: p.Name,
			Quantity:    ln.Quantity,
			UnitPrice:   p.Price,
			LineTotal:   float64(ln.Quantity) * p.Price,
		})
	}
	sale.RecomputeTotals()
	sale.History = append(sale.History, model.Modification{
		Date:    now,
		Cashier: req.Cashier,
		Detail:  fmt.Sprintf("Order created with %d item(s), total %.2f", len(sale.Items), sale.FinalAmount),
	})

	if err := c.sales.Create(ctx, sale); err != nil {
		// The stock is already committed; put it back before failing.
		c.compensate(ctx, storeID, ops)
		return nil, err
	}
	return sale, nil
}

// AddPayment appends a payment and recomputes the payment status. Paying an
// order in full completes it and approves it if approval was pending.
func (c *Controller) AddPayment(ctx context.Context, storeID, saleID uint, req PaymentRequest) (*model.Sale, error) {
	sale, err := c.sales.Get(ctx, storeID, saleID)
	if err != nil {
		return nil, err
	}
	if sale.Status == model.StatusCancelled {
		return nil, invalidTransition("cannot record a payment on a cancelled order")
	}
	if req.Amount <= 0 {
		return nil, invalidTransition("payment amount must be greater than zero")
	}
	if req.Amount > sale.AmountDue {
		return nil, invalidTransition("payment amount %.2f exceeds amount due %.2f", req.Amount, sale.AmountDue)
	}

	now := c.now()
	sale.Payments = append(sale.Payments, model.Payment{
		Amount:  req.Amount,
		Method:  req.Method,
		Date:    now,
		Notes:   req.Notes,
		Cashier: req.Cashier,
	})
	sale.AmountPaid += req.Amount
	c.applyPaymentStatus(sale)
	sale.History = append(sale.History, model.Modification{
		Date:    now,
		Cashier: req.Cashier,
		Detail:  fmt.Sprintf("Payment of %.2f recorded (%s), amount due %.2f", req.Amount, req.Method, sale.AmountDue),
	})

	if err := c.sales.Save(ctx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

// UpdateItems replaces the item lines of an open order: all old lines are
// restored, then the new lines are re-validated and committed. Completed and
// cancelled orders are not editable.
//
// The swap runs inside a record-store transaction when available. When the
// store reports transactions as unsupported, the same sequence runs as
// individual atomic per-product operations with a compensation log: a failure
// partway through rolls the earlier deltas back instead of leaving them
// silently applied.
func (c *Controller) UpdateItems(ctx context.Context, storeID, saleID uint, lines []Line, cashier string) (*model.Sale, error) {
	sale, err := c.sales.Get(ctx, storeID, saleID)
	if err != nil {
		return nil, err
	}
	if sale.Status == model.StatusCompleted || sale.Status == model.StatusCancelled {
		return nil, invalidTransition("cannot edit items of a %s order", sale.Status)
	}
	if len(lines) == 0 {
		return nil, invalidTransition("order must contain at least one item")
	}
	for _, ln := range lines {
		if ln.Quantity <= 0 {
			return nil, invalidTransition("item quantity must be greater than zero")
		}
	}

	ops := make([]stockOp, 0, len(sale.Items)+len(lines))
	for _, it := range sale.Items {
		ops = append(ops, stockOp{kind: opRestore, productID: it.ProductID, qty: it.Quantity})
	}
	for _, ln := range lines {
		ops = append(ops, stockOp{kind: opCommitDirect, productID: ln.ProductID, qty: ln.Quantity})
	}
	snapshots := make(map[uint]*model.Product)
	if err := c.runStockOps(ctx, storeID, ops, snapshots); err != nil {
		return nil, err
	}

	now := c.now()
	items := make([]model.SaleItem, 0, len(lines))
	for _, ln := range lines {
		p := snapshots[ln.ProductID]
		items = append(items, model.SaleItem{
			ProductID:   ln.ProductID,
			ProductName: p.Name,
			Quantity:    ln.Quantity,
			UnitPrice:   p.Price,
			LineTotal:   float64(ln.Quantity) * p.Price,
		})
	}
	sale.Items = items
	sale.RecomputeTotals()
	c.applyPaymentStatus(sale)
	sale.History = append(sale.History, model.Modification{
		Date:    now,
		Cashier: cashier,
		Detail:  fmt.Sprintf("Items updated (%d line(s)), new total %.2f", len(items), sale.FinalAmount),
	})

	if err := c.sales.ReplaceItems(ctx, sale, items); err != nil {
		return nil, err
	}
	return sale, nil
}

// UpdateDetails edits the non-item fields of a sale. Changing tax or discount
// recomputes the final amount, amount due and payment status.
func (c *Controller) UpdateDetails(ctx context.Context, storeID, saleID uint, upd DetailsUpdate, cashier string) (*model.Sale, error) {
	sale, err := c.sales.Get(ctx, storeID, saleID)
	if err != nil {
		return nil, err
	}
	if sale.Status == model.StatusCancelled {
		return nil, invalidTransition("cannot edit a cancelled order")
	}

	var changes []string
	if upd.CustomerName != nil && *upd.CustomerName != sale.CustomerName {
		sale.CustomerName = *upd.CustomerName
		changes = append(changes, "customer name")
	}
	if upd.CustomerPhone != nil && *upd.CustomerPhone != sale.CustomerPhone {
		sale.CustomerPhone = *upd.CustomerPhone
		changes = append(changes, "customer phone")
	}
	if upd.Notes != nil && *upd.Notes != sale.Notes {
		sale.Notes = *upd.Notes
		changes = append(changes, "notes")
	}
	if upd.DueDate != nil {
		sale.DueDate = upd.DueDate
		changes = append(changes, "due date")
	} else if upd.ClearDueDate {
		sale.DueDate = nil
		changes = append(changes, "due date")
	}
	amountsChanged := false
	if upd.Tax != nil && *upd.Tax != sale.Tax {
		sale.Tax = *upd.Tax
		amountsChanged = true
		changes = append(changes, "tax")
	}
	if upd.Discount != nil && *upd.Discount != sale.Discount {
		sale.Discount = *upd.Discount
		amountsChanged = true
		changes = append(changes, "discount")
	}
	if amountsChanged {
		sale.RecomputeTotals()
		c.applyPaymentStatus(sale)
	}
	if len(changes) == 0 {
		return sale, nil
	}

	sale.History = append(sale.History, model.Modification{
		Date:    c.now(),
		Cashier: cashier,
		Detail:  "Order details updated: " + strings.Join(changes, ", "),
	})
	if err := c.sales.Save(ctx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

// Approve marks a pending customer order as approved
func (c *Controller) Approve(ctx context.Context, storeID, saleID uint, cashier string) (*model.Sale, error) {
	sale, err := c.sales.Get(ctx, storeID, saleID)
	if err != nil {
		return nil, err
	}
	if sale.Status == model.StatusCancelled {
		return nil, invalidTransition("cannot approve a cancelled order")
	}
	if sale.ApprovalStatus != model.ApprovalPending {
		return nil, invalidTransition("order is not awaiting approval")
	}
	sale.ApprovalStatus = model.ApprovalApproved
	sale.History = append(sale.History, model.Modification{
		Date:    c.now(),
		Cashier: cashier,
		Detail:  "Order approved",
	})
	if err := c.sales.Save(ctx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

// Cancel cancels an order and restores every line's stock
func (c *Controller) Cancel(ctx context.Context, storeID, saleID uint, cashier string) (*model.Sale, error) {
	sale, err := c.sales.Get(ctx, storeID, saleID)
	if err != nil {
		return nil, err
	}
	if sale.Status == model.StatusCancelled {
		return nil, invalidTransition("order is already cancelled")
	}

	ops := restoreOps(sale.Items)
	if err := c.runStockOps(ctx, storeID, ops, nil); err != nil {
		return nil, err
	}

	sale.Status = model.StatusCancelled
	sale.History = append(sale.History, model.Modification{
		Date:    c.now(),
		Cashier: cashier,
		Detail:  "Order cancelled, stock restored",
	})
	if err := c.sales.Save(ctx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

// Reactivate re-opens a cancelled order, re-validating and committing every
// line's stock. A fully paid order reactivates straight to completed.
func (c *Controller) Reactivate(ctx context.Context, storeID, saleID uint, cashier string) (*model.Sale, error) {
	sale, err := c.sales.Get(ctx, storeID, saleID)
	if err != nil {
		return nil, err
	}
	if sale.Status != model.StatusCancelled {
		return nil, invalidTransition("only cancelled orders can be reactivated")
	}

	ops := make([]stockOp, 0, len(sale.Items))
	for _, it := range sale.Items {
		ops = append(ops, stockOp{kind: opCommitDirect, productID: it.ProductID, qty: it.Quantity})
	}
	if err := c.runStockOps(ctx, storeID, ops, nil); err != nil {
		return nil, err
	}

	if sale.PaymentStatus == model.PaymentPaid {
		sale.Status = model.StatusCompleted
	} else {
		sale.Status = model.StatusActive
	}
	sale.History = append(sale.History, model.Modification{
		Date:    c.now(),
		Cashier: cashier,
		Detail:  "Order reactivated",
	})
	if err := c.sales.Save(ctx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

// Delete removes an order entirely. Paid and completed orders can never be
// deleted, and unpaid orders only within the configured window after
// creation. Stock is restored unless the order was already cancelled.
func (c *Controller) Delete(ctx context.Context, storeID, saleID uint, cashier string) error {
	sale, err := c.sales.Get(ctx, storeID, saleID)
	if err != nil {
		return err
	}
	if sale.PaymentStatus == model.PaymentPaid {
		return invalidTransition("cannot delete a paid order")
	}
	if sale.Status == model.StatusCompleted {
		return invalidTransition("cannot delete a completed order")
	}
	if c.now().Sub(sale.CreatedAt) > c.deleteWindow {
		return invalidTransition("orders older than %s cannot be deleted", c.deleteWindow)
	}

	// A cancelled order already had its stock restored at cancellation.
	if sale.Status != model.StatusCancelled {
		if err := c.runStockOps(ctx, storeID, restoreOps(sale.Items), nil); err != nil {
			return err
		}
	}

	c.log.Info("order deleted",
		zap.Uint("sale_id", sale.ID),
		zap.Uint("store_id", storeID),
		zap.String("cashier", cashier))
	return c.sales.Delete(ctx, sale)
}

// applyPaymentStatus implements the recompute rule after any total-changing
// edit: paid in full completes the order (and approves it if it was pending);
// partially paid marks it partial; untouched marks it pending.
func (c *Controller) applyPaymentStatus(sale *model.Sale) {
	sale.AmountDue = sale.FinalAmount - sale.AmountPaid
	switch {
	case sale.AmountPaid > 0 && sale.AmountPaid >= sale.FinalAmount:
		sale.PaymentStatus = model.PaymentPaid
		if sale.Status == model.StatusActive {
			sale.Status = model.StatusCompleted
		}
		if sale.ApprovalStatus == model.ApprovalPending {
			sale.ApprovalStatus = model.ApprovalApproved
		}
	case sale.AmountPaid > 0:
		sale.PaymentStatus = model.PaymentPartial
		if sale.Status == model.StatusCompleted {
			sale.Status = model.StatusActive
		}
	default:
		sale.PaymentStatus = model.PaymentPending
		if sale.Status == model.StatusCompleted {
			sale.Status = model.StatusActive
		}
	}
}

func restoreOps(items []model.SaleItem) []stockOp {
	ops := make([]stockOp, 0, len(items))
	for _, it := range items {
		ops = append(ops, stockOp{kind: opRestore, productID: it.ProductID, qty: it.Quantity})
	}
	return ops
}
