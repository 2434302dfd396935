package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/TNZtims/bazaar-pos-sub000/internal/middleware"
	"github.com/TNZtims/bazaar-pos-sub000/internal/model"
	"github.com/TNZtims/bazaar-pos-sub000/internal/order"
	"github.com/TNZtims/bazaar-pos-sub000/internal/stock"
	"github.com/TNZtims/bazaar-pos-sub000/pkg/database"
	"github.com/TNZtims/bazaar-pos-sub000/pkg/logger"
	"github.com/TNZtims/bazaar-pos-sub000/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SaleRequest creates a new order from a cart
type SaleRequest struct {
	CustomerName  string       `json:"customer_name"`
	CustomerPhone string       `json:"customer_phone"`
	Items         []order.Line `json:"items" validate:"required,min=1"`
	Tax           float64      `json:"tax"`
	Discount      float64      `json:"discount"`
	DueDate       *time.Time   `json:"due_date"`
	Notes         string       `json:"notes"`
	// FromReservation marks carts whose items were held via the reserve endpoint
	FromReservation bool `json:"from_reservation"`
}

// SaleUpdateRequest dispatches a lifecycle action on an existing order
type SaleUpdateRequest struct {
	Action string `json:"action" validate:"required"`

	// add_payment
	Amount float64 `json:"amount"`
	Method string  `json:"method"`

	// update_items
	Items []order.Line `json:"items"`

	// update_order_details
	CustomerName  *string    `json:"customer_name"`
	CustomerPhone *string    `json:"customer_phone"`
	Tax           *float64   `json:"tax"`
	Discount      *float64   `json:"discount"`
	DueDate       *time.Time `json:"due_date"`
	ClearDueDate  bool       `json:"clear_due_date"`
	Notes         *string    `json:"order_notes"`

	// shared
	PaymentNotes string `json:"notes"`
}

// saleResponse wraps a sale with its derived read-time payment status
type saleResponse struct {
	model.Sale
	EffectivePaymentStatus string `json:"effective_payment_status"`
}

func renderSale(s *model.Sale) saleResponse {
	return saleResponse{Sale: *s, EffectivePaymentStatus: s.EffectivePaymentStatus(time.Now())}
}

// ListSales handles retrieving sales with optional status filters
func ListSales(c echo.Context) error {
	log := logger.FromContext(c)
	storeID, _ := middleware.StoreIDFromContext(c)

	filter := order.ListFilter{
		Status:         c.QueryParam("status"),
		PaymentStatus:  c.QueryParam("payment_status"),
		ApprovalStatus: c.QueryParam("approval_status"),
	}

	sales, err := order.NewGormSales(database.GetDB()).List(c.Request().Context(), storeID, filter)
	if err != nil {
		log.Error("Failed to list sales", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve sales"})
	}

	now := time.Now()
	responses := make([]saleResponse, 0, len(sales))
	for i := range sales {
		responses = append(responses, saleResponse{
			Sale:                   sales[i],
			EffectivePaymentStatus: sales[i].EffectivePaymentStatus(now),
		})
	}
	return c.JSON(http.StatusOK, responses)
}

// GetSale handles retrieving a single sale by ID
func GetSale(c echo.Context) error {
	log := logger.FromContext(c)
	storeID, _ := middleware.StoreIDFromContext(c)

	saleID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid sale id"})
	}

	sale, err := order.NewGormSales(database.GetDB()).Get(c.Request().Context(), storeID, uint(saleID))
	if err != nil {
		return lifecycleError(c, log, err)
	}
	return c.JSON(http.StatusOK, renderSale(sale))
}

// CreateSale confirms a cart into an order, committing stock per line
func CreateSale(c echo.Context) error {
	log := logger.FromContext(c)
	storeID, _ := middleware.StoreIDFromContext(c)

	var req SaleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	sale, err := orders.Create(c.Request().Context(), storeID, order.CreateRequest{
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		Lines:           req.Items,
		Tax:             req.Tax,
		Discount:        req.Discount,
		DueDate:         req.DueDate,
		Notes:           req.Notes,
		Cashier:         middleware.CashierFromContext(c),
		CreatedBy:       middleware.UserIDFromContext(c),
		FromReservation: req.FromReservation,
	})
	if err != nil {
		return lifecycleError(c, log, err)
	}

	prometheus.RecordSaleOperation("create")
	log.Info("Sale created",
		zap.Uint("sale_id", sale.ID),
		zap.Float64("final_amount", sale.FinalAmount))
	return c.JSON(http.StatusCreated, renderSale(sale))
}

// UpdateSale dispatches lifecycle actions on an order
func UpdateSale(c echo.Context) error {
	log := logger.FromContext(c)
	storeID, _ := middleware.StoreIDFromContext(c)
	ctx := c.Request().Context()
	cashier := middleware.CashierFromContext(c)

	saleID64, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid sale id"})
	}
	saleID := uint(saleID64)

	var req SaleUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	var sale *model.Sale
	switch req.Action {
	case "add_payment":
		sale, err = orders.AddPayment(ctx, storeID, saleID, order.PaymentRequest{
			Amount:  req.Amount,
			Method:  req.Method,
			Notes:   req.PaymentNotes,
			Cashier: cashier,
		})
	case "update_items":
		sale, err = orders.UpdateItems(ctx, storeID, saleID, req.Items, cashier)
	case "update_order_details":
		sale, err = orders.UpdateDetails(ctx, storeID, saleID, order.DetailsUpdate{
			CustomerName:  req.CustomerName,
			CustomerPhone: req.CustomerPhone,
			Tax:           req.Tax,
			Discount:      req.Discount,
			DueDate:       req.DueDate,
			ClearDueDate:  req.ClearDueDate,
			Notes:         req.Notes,
		}, cashier)
	case "approve":
		sale, err = orders.Approve(ctx, storeID, saleID, cashier)
	case "cancel":
		sale, err = orders.Cancel(ctx, storeID, saleID, cashier)
	case "reactivate":
		sale, err = orders.Reactivate(ctx, storeID, saleID, cashier)
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Unknown action: " + req.Action})
	}
	if err != nil {
		return lifecycleError(c, log, err)
	}

	prometheus.RecordSaleOperation(req.Action)
	return c.JSON(http.StatusOK, renderSale(sale))
}

// DeleteSale removes an order, restoring stock, subject to the payment and
// age guards.
func DeleteSale(c echo.Context) error {
	log := logger.FromContext(c)
	storeID, _ := middleware.StoreIDFromContext(c)

	saleID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid sale id"})
	}

	if err := orders.Delete(c.Request().Context(), storeID, uint(saleID), middleware.CashierFromContext(c)); err != nil {
		return lifecycleError(c, log, err)
	}

	prometheus.RecordSaleOperation("delete")
	return c.JSON(http.StatusOK, echo.Map{"message": "Sale deleted successfully"})
}

// lifecycleError maps order lifecycle failures to HTTP responses
func lifecycleError(c echo.Context, log *zap.Logger, err error) error {
	var insufficient *stock.InsufficientStockError
	var transition *order.InvalidTransitionError
	switch {
	case errors.As(err, &insufficient):
		prometheus.InsufficientStockCounter.Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":     insufficient.Error(),
			"available": insufficient.Available,
			"requested": insufficient.Requested,
		})
	case errors.As(err, &transition):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": transition.Reason})
	case errors.Is(err, order.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Sale not found"})
	case errors.Is(err, stock.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
	default:
		log.Error("Sale operation failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Sale operation failed"})
	}
}
