package handler

import (
	"net/http"
	"strconv"

	"github.com/TNZtims/bazaar-pos-sub000/internal/middleware"
	"github.com/TNZtims/bazaar-pos-sub000/internal/model"
	"github.com/TNZtims/bazaar-pos-sub000/internal/order"
	"github.com/TNZtims/bazaar-pos-sub000/pkg/database"
	"github.com/TNZtims/bazaar-pos-sub000/pkg/logger"
	"github.com/TNZtims/bazaar-pos-sub000/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// shopProduct is the public view of a product; reserved quantities and cost
// details stay internal.
type shopProduct struct {
	ID                uint    `json:"id"`
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	Price             float64 `json:"price"`
	Category          string  `json:"category"`
	ImageURL          string  `json:"image_url"`
	AvailableQuantity int     `json:"available_quantity"`
}

// ShopOrderRequest creates a customer order from a reserved cart
type ShopOrderRequest struct {
	CustomerName  string       `json:"customer_name" validate:"required"`
	CustomerPhone string       `json:"customer_phone"`
	Items         []order.Line `json:"items" validate:"required,min=1"`
	Notes         string       `json:"notes"`
}

// BeaconReleaseRequest is the fire-and-forget release sent on tab close.
// Multiple deliveries are safe: release clamps to the current reservation.
type BeaconReleaseRequest struct {
	StoreID uint         `json:"store_id" validate:"required"`
	Items   []order.Line `json:"items" validate:"required"`
}

// ListShopProducts handles the public storefront product listing
func ListShopProducts(c echo.Context) error {
	log := logger.FromContext(c)

	storeID, err := strconv.ParseUint(c.Param("storeId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid store id"})
	}

	var store model.Store
	if result := database.GetDB().First(&store, storeID); result.Error != nil || !store.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Store not found"})
	}

	var products []model.Product
	result := database.GetDB().
		Where("store_id = ? AND is_active = ?", storeID, true).
		Order("name").
		Find(&products)
	if result.Error != nil {
		log.Error("Failed to list shop products", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve products"})
	}

	out := make([]shopProduct, 0, len(products))
	for _, p := range products {
		out = append(out, shopProduct{
			ID:                p.ID,
			Name:              p.Name,
			Description:       p.Description,
			Price:             p.Price,
			Category:          p.Category,
			ImageURL:          p.ImageURL,
			AvailableQuantity: p.AvailableQuantity,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"store": store, "products": out})
}

// ShopReserve places or releases a cart hold for a public shop session
func ShopReserve(c echo.Context) error {
	log := logger.FromContext(c)
	storeID, _ := middleware.StoreIDFromContext(c)

	var req ReserveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	product, err := applyReservation(c, storeID, req)
	if err != nil {
		return stockError(c, log, err)
	}
	return c.JSON(http.StatusOK, shopProduct{
		ID:                product.ID,
		Name:              product.Name,
		Price:             product.Price,
		Category:          product.Category,
		ImageURL:          product.ImageURL,
		AvailableQuantity: product.AvailableQuantity,
	})
}

// CreateShopOrder confirms a reserved customer cart into an approval-pending
// order. Quantities are committed at creation time from the reservation hold.
func CreateShopOrder(c echo.Context) error {
	log := logger.FromContext(c)
	storeID, _ := middleware.StoreIDFromContext(c)

	var req ShopOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.CustomerName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "customer name is required"})
	}

	sale, err := orders.Create(c.Request().Context(), storeID, order.CreateRequest{
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		Lines:           req.Items,
		Notes:           req.Notes,
		Cashier:         "online",
		CreatedBy:       middleware.UserIDFromContext(c),
		FromReservation: true,
		CustomerOrder:   true,
	})
	if err != nil {
		return lifecycleError(c, log, err)
	}

	prometheus.RecordSaleOperation("shop_create")
	log.Info("Shop order created",
		zap.Uint("sale_id", sale.ID),
		zap.Uint("store_id", storeID))
	return c.JSON(http.StatusCreated, renderSale(sale))
}

// BeaconRelease handles the best-effort release fired when a shop session
// disconnects. It always answers 204: delivery is not guaranteed and callers
// never read the response.
func BeaconRelease(c echo.Context) error {
	log := logger.FromContext(c)

	var req BeaconReleaseRequest
	if err := c.Bind(&req); err != nil {
		return c.NoContent(http.StatusNoContent)
	}

	ctx := c.Request().Context()
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			continue
		}
		if _, released, err := ledger.Release(ctx, req.StoreID, item.ProductID, item.Quantity); err != nil {
			log.Warn("Beacon release failed",
				zap.Uint("product_id", item.ProductID),
				zap.Error(err))
		} else if released > 0 {
			prometheus.RecordStockOperation("release")
			log.Info("Beacon released reservation",
				zap.Uint("product_id", item.ProductID),
				zap.Int("released", released))
		}
	}
	return c.NoContent(http.StatusNoContent)
}
