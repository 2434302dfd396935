package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/TNZtims/bazaar-pos-sub000/internal/model"
	"github.com/TNZtims/bazaar-pos-sub000/internal/realtime"
	"github.com/TNZtims/bazaar-pos-sub000/internal/stock"

	"go.uber.org/zap"
)

// memStock is an in-memory stock.Store whose primitives are atomic under a
// mutex. With txErr set it reports transactions as unsupported, which drives
// the controller onto its per-product compensation path.
type memStock struct {
	mu       sync.Mutex
	products map[uint]*model.Product
	txErr    error
}

func newMemStock(products ...*model.Product) *memStock {
	s := &memStock{products: make(map[uint]*model.Product)}
	for _, p := range products {
		cp := *p
		s.products[p.ID] = &cp
	}
	return s
}

func (s *memStock) find(storeID, productID uint) (*model.Product, error) {
	p, ok := s.products[productID]
	if !ok || p.StoreID != storeID {
		return nil, stock.ErrNotFound
	}
	return p, nil
}

func (s *memStock) Get(ctx context.Context, storeID, productID uint) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.find(storeID, productID)
	if err != nil {
		return nil, err
	}
	cp := *p
	return &cp, nil
}

func (s *memStock) Apply(ctx context.Context, storeID, productID uint, d stock.Delta) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.find(storeID, productID)
	if err != nil {
		return nil, err
	}
	p.Quantity += d.Quantity
	p.ReservedQuantity += d.Reserved
	p.AvailableQuantity += d.Available
	cp := *p
	return &cp, nil
}

func (s *memStock) ApplyGuarded(ctx context.Context, storeID, productID uint, d stock.Delta, g stock.Guard) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.find(storeID, productID)
	if err != nil {
		return nil, err
	}
	guarded := p.AvailableQuantity
	if g.Field == stock.GuardReserved {
		guarded = p.ReservedQuantity
	}
	if guarded < g.Min {
		return nil, stock.ErrGuardFailed
	}
	p.Quantity += d.Quantity
	p.ReservedQuantity += d.Reserved
	p.AvailableQuantity += d.Available
	cp := *p
	return &cp, nil
}

func (s *memStock) ApplyClamped(ctx context.Context, storeID, productID uint, qty int) (*model.Product, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.find(storeID, productID)
	if err != nil {
		return nil, 0, err
	}
	released := qty
	if p.ReservedQuantity < released {
		released = p.ReservedQuantity
	}
	p.ReservedQuantity -= released
	p.AvailableQuantity += released
	cp := *p
	return &cp, released, nil
}

func (s *memStock) InTransaction(ctx context.Context, fn func(stock.Store) error) error {
	if s.txErr != nil {
		return s.txErr
	}
	return fn(s)
}

func (s *memStock) quantities(t *testing.T, productID uint) (qty, reserved, available int) {
	t.Helper()
	p, err := s.Get(context.Background(), 1, productID)
	if err != nil {
		t.Fatalf("get product %d: %v", productID, err)
	}
	if p.AvailableQuantity+p.ReservedQuantity != p.Quantity {
		t.Fatalf("invariant violated for product %d: %+v", productID, p)
	}
	return p.Quantity, p.ReservedQuantity, p.AvailableQuantity
}

// memSales is an in-memory Sales store. Copies cross the boundary in both
// directions so controller mutations only persist through an explicit Save.
type memSales struct {
	mu     sync.Mutex
	sales  map[uint]*model.Sale
	nextID uint
}

func newMemSales() *memSales {
	return &memSales{sales: make(map[uint]*model.Sale), nextID: 1}
}

func cloneSale(s *model.Sale) *model.Sale {
	cp := *s
	cp.Items = append([]model.SaleItem(nil), s.Items...)
	cp.Payments = append([]model.Payment(nil), s.Payments...)
	cp.History = append([]model.Modification(nil), s.History...)
	return &cp
}

func (m *memSales) Get(ctx context.Context, storeID, saleID uint) (*model.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sales[saleID]
	if !ok || s.StoreID != storeID {
		return nil, ErrNotFound
	}
	return cloneSale(s), nil
}

func (m *memSales) List(ctx context.Context, storeID uint, filter ListFilter) ([]model.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Sale
	for _, s := range m.sales {
		if s.StoreID != storeID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.PaymentStatus != "" && s.PaymentStatus != filter.PaymentStatus {
			continue
		}
		if filter.ApprovalStatus != "" && s.ApprovalStatus != filter.ApprovalStatus {
			continue
		}
		out = append(out, *cloneSale(s))
	}
	return out, nil
}

func (m *memSales) Create(ctx context.Context, sale *model.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sale.ID = m.nextID
	m.nextID++
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now()
	}
	m.sales[sale.ID] = cloneSale(sale)
	return nil
}

func (m *memSales) Save(ctx context.Context, sale *model.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sales[sale.ID]; !ok {
		return ErrNotFound
	}
	m.sales[sale.ID] = cloneSale(sale)
	return nil
}

func (m *memSales) ReplaceItems(ctx context.Context, sale *model.Sale, items []model.SaleItem) error {
	sale.Items = items
	return m.Save(ctx, sale)
}

func (m *memSales) Delete(ctx context.Context, sale *model.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sales[sale.ID]; !ok {
		return ErrNotFound
	}
	delete(m.sales, sale.ID)
	return nil
}

// failingSales wraps memSales and rejects Create, for compensation tests
type failingSales struct {
	*memSales
	createErr error
}

func (f *failingSales) Create(ctx context.Context, sale *model.Sale) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.memSales.Create(ctx, sale)
}

func catalogProduct(id uint, name string, price float64, available int) *model.Product {
	return &model.Product{
		ID:                id,
		StoreID:           1,
		Name:              name,
		Price:             price,
		Quantity:          available,
		AvailableQuantity: available,
	}
}

func newTestController(sales Sales, stockStore stock.Store) *Controller {
	ledger := stock.NewLedger(stockStore, realtime.NopBroadcaster{}, zap.NewNop())
	return NewController(sales, ledger, zap.NewNop(), 24*time.Hour)
}

func mustCreate(t *testing.T, c *Controller, req CreateRequest) *model.Sale {
	t.Helper()
	sale, err := c.Create(context.Background(), 1, req)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return sale
}

func TestCreateOrderComputesTotalsAndCommitsStock(t *testing.T) {
	stockStore := newMemStock(
		catalogProduct(1, "Coffee", 10, 10),
		catalogProduct(2, "Beans", 20, 5),
	)
	c := newTestController(newMemSales(), stockStore)

	sale := mustCreate(t, c, CreateRequest{
		CustomerName: "Ana",
		Lines:        []Line{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}},
		Tax:          4,
		Discount:     2,
		Cashier:      "till-1",
	})

	if sale.Subtotal != 40 {
		t.Fatalf("expected subtotal 40, got %.2f", sale.Subtotal)
	}
	if sale.FinalAmount != 42 {
		t.Fatalf("expected final amount 42, got %.2f", sale.FinalAmount)
	}
	if sale.AmountDue != 42 {
		t.Fatalf("expected amount due 42, got %.2f", sale.AmountDue)
	}
	if sale.Status != model.StatusActive || sale.PaymentStatus != model.PaymentPending {
		t.Fatalf("unexpected initial state: %s/%s", sale.Status, sale.PaymentStatus)
	}
	if sale.ApprovalStatus != model.ApprovalApproved {
		t.Fatalf("staff order should start approved, got %s", sale.ApprovalStatus)
	}
	if sale.Items[0].ProductName != "Coffee" || sale.Items[0].UnitPrice != 10 {
		t.Fatalf("item snapshot not taken: %+v", sale.Items[0])
	}
	if len(sale.History) != 1 {
		t.Fatalf("expected creation history entry, got %d", len(sale.History))
	}

	if qty, _, _ := stockStore.quantities(t, 1); qty != 8 {
		t.Fatalf("expected product 1 quantity 8 after commit, got %d", qty)
	}
	if qty, _, _ := stockStore.quantities(t, 2); qty != 4 {
		t.Fatalf("expected product 2 quantity 4 after commit, got %d", qty)
	}
}

func TestCreateOrderFromReservation(t *testing.T) {
	stockStore := newMemStock(catalogProduct(1, "Coffee", 10, 10))
	c := newTestController(newMemSales(), stockStore)

	// Public shop flow: the cart holds stock first, then confirms.
	ledger := stock.NewLedger(stockStore, realtime.NopBroadcaster{}, zap.NewNop())
	if _, err := ledger.Reserve(context.Background(), 1, 1, 3); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	sale := mustCreate(t, c, CreateRequest{
		Lines:           []Line{{ProductID: 1, Quantity: 3}},
		FromReservation: true,
		CustomerOrder:   true,
		Cashier:         "online",
	})
	if sale.ApprovalStatus != model.ApprovalPending {
		t.Fatalf("customer order should await approval, got %s", sale.ApprovalStatus)
	}

	qty, reserved, available := stockStore.quantities(t, 1)
	if qty != 7 || reserved != 0 || available != 7 {
		t.Fatalf("reservation not converted: qty=%d reserved=%d available=%d", qty, reserved, available)
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	stockStore := newMemStock(catalogProduct(1, "Coffee", 10, 1))
	c := newTestController(newMemSales(), stockStore)

	_, err := c.Create(context.Background(), 1, CreateRequest{
		Lines: []Line{{ProductID: 1, Quantity: 2}},
	})
	if !errors.Is(err, stock.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if qty, _, _ := stockStore.quantities(t, 1); qty != 1 {
		t.Fatalf("failed create must not change stock, got quantity %d", qty)
	}
}

func TestCreateCompensatesWhenPersistFails(t *testing.T) {
	stockStore := newMemStock(catalogProduct(1, "Coffee", 10, 10))
	sales := &failingSales{memSales: newMemSales(), createErr: errors.New("db down")}
	c := newTestController(sales, stockStore)

	_, err := c.Create(context.Background(), 1, CreateRequest{
		Lines: []Line{{ProductID: 1, Quantity: 4}},
	})
	if err == nil {
		t.Fatal("expected create to fail")
	}
	if qty, _, available := stockStore.quantities(t, 1); qty != 10 || available != 10 {
		t.Fatalf("committed stock not compensated: qty=%d available=%d", qty, available)
	}
}

func TestPaymentSequenceToCompletion(t *testing.T) {
	stockStore := newMemStock(catalogProduct(1, "Chair", 150, 10))
	c := newTestController(newMemSales(), stockStore)
	ctx := context.Background()

	sale := mustCreate(t, c, CreateRequest{Lines: []Line{{ProductID: 1, Quantity: 1}}})

	sale, err := c.AddPayment(ctx, 1, sale.ID, PaymentRequest{Amount: 100, Method: "cash", Cashier: "till-1"})
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if sale.PaymentStatus != model.PaymentPartial || sale.Status != model.StatusActive {
		t.Fatalf("after 100/150 expected partial/active, got %s/%s", sale.PaymentStatus, sale.Status)
	}
	if sale.AmountDue != 50 {
		t.Fatalf("expected 50 due, got %.2f", sale.AmountDue)
	}

	sale, err = c.AddPayment(ctx, 1, sale.ID, PaymentRequest{Amount: 50, Method: "card", Cashier: "till-1"})
	if err != nil {
		t.Fatalf("second payment: %v", err)
	}
	if sale.PaymentStatus != model.PaymentPaid || sale.Status != model.StatusCompleted {
		t.Fatalf("after full payment expected paid/completed, got %s/%s", sale.PaymentStatus, sale.Status)
	}
	if sale.AmountDue != 0 {
		t.Fatalf("expected 0 due, got %.2f", sale.AmountDue)
	}
	if len(sale.Payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(sale.Payments))
	}
}

func TestPaymentCannotExceedAmountDue(t *testing.T) {
	stockStore := newMemStock(catalogProduct(1, "Chair", 150, 10))
	c := newTestController(newMemSales(), stockStore)

	sale := mustCreate(t, c, CreateRequest{Lines: []Line{{ProductID: 1, Quantity: 1}}})
	_, err := c.AddPayment(context.Background(), 1, sale.ID, PaymentRequest{Amount: 200})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestPaymentRejectedOnCancelledOrder(t *testing.T) {
	stockStore := newMemStock(catalogProduct(1, "Chair", 150, 10))
	c := newTestController(newMemSales(), stockStore)
	ctx := context.Background()

	sale := mustCreate(t, c, CreateRequest{Lines: []Line{{ProductID: 1, Quantity: 1}}})
	if _, err := c.Cancel(ctx, 1, sale.ID, "till-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := c.AddPayment(ctx, 1, sale.ID, PaymentRequest{Amount: 10}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestPaymentApprovesPendingCustomerOrder(t *testing.T) {
	stockStore := newMemStock(catalogProduct(1, "Chair", 150, 10))
	c := newTestController(newMemSales(), stockStore)

	sale := mustCreate(t, c, CreateRequest{
		Lines:         []Line{{ProductID: 1, Quantity: 1}},
		CustomerOrder: true,
	})
	sale, err := c.AddPayment(context.Background(), 1, sale.ID, PaymentRequest{Amount: 150})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if sale.ApprovalStatus != model.ApprovalApproved {
		t.Fatalf("full payment should approve, got %s", sale.ApprovalStatus)
	}
}

func TestUpdateItemsSwapsStockAndRecomputes(t *testing.T) {
	stockStore := newMemStock(
		catalogProduct(1, "Coffee", 10, 10),
		catalogProduct(2, "Beans", 20, 5),
	)
	c := newTestController(newMemSales(), stockStore)
	ctx := context.Background()

	sale := mustCreate(t, c, CreateRequest{Lines: []Line{{ProductID: 1, Quantity: 4}}})

	sale, err := c.UpdateItems(ctx, 1, sale.ID, []Line{{ProductID: 2, Quantity: 2}}, "till-1")
	if err != nil {
		t.Fatalf("update items: %v", err)
	}
	if len(sale.Items) != 1 || sale.Items[0].ProductID != 2 {
		t.Fatalf("items not replaced: %+v", sale.Items)
	}
	if sale.Subtotal != 40 {
		t.Fatalf("expected subtotal 40 after swap, got %.2f", sale.Subtotal)
	}

	if qty, _, _ := stockStore.quantities(t, 1); qty != 10 {
		t.Fatalf("old line not restored, product 1 quantity %d", qty)
	}
	if qty, _, _ := stockStore.quantities(t, 2); qty != 3 {
		t.Fatalf("new line not committed, product 2 quantity %d", qty)
	}
}

func TestUpdateItemsRejectedOnCompletedOrder(t *testing.T) {
	stockStore := newMemStock(catalogProduct(1, "Coffee", 10, 10))
	c := newTestController(newMemSales(), stockStore)
	ctx := context.Background()

	sale := mustCreate(t, c, CreateRequest{Lines: []Line{{ProductID: 1, Quantity: 1}}})
	if _, err := c.AddPayment(ctx, 1, sale.ID, PaymentRequest{Amount: 10}); err != nil {
		t.Fatalf("payment: %v", err)
	}
	_, err := c.UpdateItems(ctx, 1, sale.ID, []Line{{ProductID: 1, Quantity: 2}}, "till-1")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestUpdateItemsFallbackCompensatesMidFailure(t *testing.T) {
	stockStore := newMemStock(
		catalogProduct(1, "Coffee", 10, 10),
		catalogProduct(2, "Beans", 20, 5),
		catalogProduct(3, "Grinder", 90, 1),
	)
	stockStore.txErr = stock.ErrTxUnsupported
	c := newTestController(newMemSales(), stockStore)
	ctx := context.Background()

	sale := mustCreate(t, c, CreateRequest{Lines: []Line{{ProductID: 1, Quantity: 2}}})

	// Product 3 only has 1 available; committing 4 fails after the restore of
	// product 1 and the commit of product 2 have already been applied.
	_, err := c.UpdateItems(ctx, 1, sale.ID, []Line{
		{ProductID: 2, Quantity: 3},
		{ProductID: 3, Quantity: 4},
	}, "till-1")
	if !errors.Is(err, stock.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// Every applied delta must have been rolled back.
	if qty, _, _ := stockStore.quantities(t, 1); qty != 8 {
		t.Fatalf("product 1 should keep the original commit, quantity %d", qty)
	}
	if qty, _, _ := stockStore.quantities(t, 2); qty != 5 {
		t.Fatalf("product 2 commit not compensated, quantity %d", qty)
	}
	if qty, _, _ := stockStore.quantities(t, 3); qty != 1 {
		t.Fatalf("product 3 changed, quantity %d", qty)
	}

	// The order itself is untouched.
	sale, err = c.sales.Get(ctx, 1, sale.ID)
	if err != nil {
		t.Fatalf("reload sale: %v", err)
	}
	if len(sale.Items) != 1 || sale.Items[0].ProductID != 1 {
		t.Fatalf("sale items changed after failed update: %+v", sale.Items)
	}
}

func TestCancelRestoresStockOnce(t *testing.T) {
	stockStore := newMemStock(catalogProduct(1, "Coffee", 10, 10))
	c := newTestController(newMemSales(), stockStore)
	ctx := context.Background()

	sale := mustCreate(t, c, CreateRequest{Lines: []Line{{ProductID: 1, Quantity: 5}}})
	if qty, _, _ := stockStore.quantities(t, 1); qty != 5 {
		t.Fatalf("expected quantity 5 after commit, got %d", qty)
	}

	sale, err := c.Cancel(ctx, 1, sale.ID, "till-1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if sale.Status != model.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", sale.Status)
	}
	if qty, _, _ := stockStore.quantities(t, 1); qty != 10 {
		t.Fatalf("expected quantity 10 after cancel, got %d", qty)
	}

	if _, err := c.Cancel(ctx, 1, sale.ID, "till-1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second cancel must fail, got %v", err)
	}
	if qty, _, _ := stockStore.quantities(t, 1); qty != 10 {
		t.Fatalf("stock restored twice, quantity %d", qty)
	}
}

func TestReactivateRecommitsStock(t *testing.T) {
	stockStore := newMemStock(catalogProduct(1, "Coffee", 10, 10))
	c := newTestController(newMemSales(), stockStore)
	ctx := context.Background()

	sale := mustCreate(t, c, CreateRequest{Lines: []Line{{ProductID: 1, Quantity: 5}}})
	if _, err := c.Cancel(ctx, 1, sale.ID, "till-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	sale, err := c.Reactivate(ctx, 1, sale.ID, "till-1")
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if sale.Status != model.StatusActive {
		t.Fatalf("expected active after reactivate, got %s", sale.Status)
	}
	if qty, _, _ := stockStore.quantities(t, 1); qty != 5 {
		t.Fatalf("expected quantity 5 after reactivate, got %d", qty)
	}
}

func TestReactivatePaidOrderCompletes(t *testing.T) {
	stockStore := newMemStock(catalogProduct(1, "Coffee", 10, 10))
	c := newTestController(newMemSales(), stockStore)
	ctx := context.Background()

	sale := mustCreate(t, c, CreateRequest{Lines: []Line{{ProductID: 1, Quantity: 1}}})
	if _, err := c.AddPayment(ctx, 1, sale.ID, PaymentRequest{Amount: 10}); err != nil {
		t.Fatalf("payment: %v", err)
	}
	// Completed orders can still be cancelled, e.g. a same-day refund.
	if _, err := c.Cancel(ctx, 1, sale.ID, "till-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	sale, err := c.Reactivate(ctx, 1, sale.ID, "till-1")
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if sale.Status != model.StatusCompleted {
		t.Fatalf("paid order should reactivate to completed, got %s", sale.Status)
	}
}

func TestReactivateFailsWhenStockGone(t *testing.T) {
	stockStore := newMemStock(catalogProduct(1, "Coffee", 10, 5))
	c := newTestController(newMemSales(), stockStore)
	ctx := context.Background()

	sale := mustCreate(t, c, CreateRequest{Lines: []Line{{ProductID: 1, Quantity: 5}}})
	if _, err := c.Cancel(ctx, 1, sale.ID, "till-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	// Someone else takes the stock before reactivation.
	ledger := stock.NewLedger(stockStore, realtime.NopBroadcaster{}, zap.NewNop())
	if _, err := ledger.Commit(ctx, 1, 1, 3, false); err != nil {
		t.Fatalf("competing commit: %v", err)
	}

	if _, err := c.Reactivate(ctx, 1, sale.ID, "till-1"); !errors.Is(err, stock.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestDeleteRestoresStockAndRemovesOrder(t *testing.T) {
	stockStore := newMemStock(catalogProduct(1, "Coffee", 10, 10))
	sales := newMemSales()
	c := newTestController(sales, stockStore)
	ctx := context.Background()

	sale := mustCreate(t, c, CreateRequest{Lines: []Line{{ProductID: 1, Quantity: 4}}})
	if err := c.Delete(ctx, 1, sale.ID, "till-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if qty, _, _ := stockStore.quantities(t, 1); qty != 10 {
		t.Fatalf("expected quantity 10 after delete, got %d", qty)
	}
	if _, err := sales.Get(ctx, 1, sale.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected sale gone, got %v", err)
	}
}

func TestDeletePaidOrderRejected(t *testing.T) {
	stockStore := newMemStock(catalogProduct(1, "Coffee", 10, 10))
	c := newTestController(newMemSales(), stockStore)
	ctx := context.Background()

	sale := mustCreate(t, c, CreateRequest{Lines: []Line{{ProductID: 1, Quantity: 1}}})
	if _, err := c.AddPayment(ctx, 1, sale.ID, PaymentRequest{Amount: 10}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	if err := c.Delete(ctx, 1, sale.ID, "till-1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if qty, _, _ := stockStore.quantities(t, 1); qty != 9 {
		t.Fatalf("rejected delete must not restore stock, quantity %d", qty)
	}
}

func TestDeleteOutsideWindowRejected(t *testing.T) {
	stockStore := newMemStock(catalogProduct(1, "Coffee", 10, 10))
	c := newTestController(newMemSales(), stockStore)
	ctx := context.Background()

	sale := mustCreate(t, c, CreateRequest{Lines: []Line{{ProductID: 1, Quantity: 1}}})

	c.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	if err := c.Delete(ctx, 1, sale.ID, "till-1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestDeleteCancelledOrderDoesNotRestoreTwice(t *testing.T) {
	stockStore := newMemStock(catalogProduct(1, "Coffee", 10, 10))
	c := newTestController(newMemSales(), stockStore)
	ctx := context.Background()

	sale := mustCreate(t, c, CreateRequest{Lines: []Line{{ProductID: 1, Quantity: 4}}})
	if _, err := c.Cancel(ctx, 1, sale.ID, "till-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := c.Delete(ctx, 1, sale.ID, "till-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if qty, _, _ := stockStore.quantities(t, 1); qty != 10 {
		t.Fatalf("cancelled order restored twice on delete, quantity %d", qty)
	}
}

func TestUpdateDetailsRecomputesOnTaxChange(t *testing.T) {
	stockStore := newMemStock(catalogProduct(1, "Coffee", 10, 10))
	c := newTestController(newMemSales(), stockStore)
	ctx := context.Background()

	sale := mustCreate(t, c, CreateRequest{Lines: []Line{{ProductID: 1, Quantity: 2}}})
	if _, err := c.AddPayment(ctx, 1, sale.ID, PaymentRequest{Amount: 20}); err != nil {
		t.Fatalf("payment: %v", err)
	}
	if s, _ := c.sales.Get(ctx, 1, sale.ID); s.Status != model.StatusCompleted {
		t.Fatalf("expected completed after full payment, got %s", s.Status)
	}

	// Raising the tax reopens the fully paid order as partial.
	tax := 5.0
	sale, err := c.UpdateDetails(ctx, 1, sale.ID, DetailsUpdate{Tax: &tax}, "till-1")
	if err != nil {
		t.Fatalf("update details: %v", err)
	}
	if sale.FinalAmount != 25 || sale.AmountDue != 5 {
		t.Fatalf("totals not recomputed: final=%.2f due=%.2f", sale.FinalAmount, sale.AmountDue)
	}
	if sale.PaymentStatus != model.PaymentPartial || sale.Status != model.StatusActive {
		t.Fatalf("expected partial/active after tax raise, got %s/%s", sale.PaymentStatus, sale.Status)
	}
}

func TestApprovePendingCustomerOrder(t *testing.T) {
	stockStore := newMemStock(catalogProduct(1, "Coffee", 10, 10))
	c := newTestController(newMemSales(), stockStore)
	ctx := context.Background()

	sale := mustCreate(t, c, CreateRequest{
		Lines:         []Line{{ProductID: 1, Quantity: 1}},
		CustomerOrder: true,
	})
	sale, err := c.Approve(ctx, 1, sale.ID, "till-1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if sale.ApprovalStatus != model.ApprovalApproved {
		t.Fatalf("expected approved, got %s", sale.ApprovalStatus)
	}
	if _, err := c.Approve(ctx, 1, sale.ID, "till-1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second approve must fail, got %v", err)
	}
}

func TestOrderScopedToStore(t *testing.T) {
	stockStore := newMemStock(catalogProduct(1, "Coffee", 10, 10))
	c := newTestController(newMemSales(), stockStore)
	ctx := context.Background()

	sale := mustCreate(t, c, CreateRequest{Lines: []Line{{ProductID: 1, Quantity: 1}}})
	if _, err := c.AddPayment(ctx, 2, sale.ID, PaymentRequest{Amount: 10}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign store, got %v", err)
	}
}
