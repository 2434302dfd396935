package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/TNZtims/bazaar-pos-sub000/internal/middleware"
	"github.com/TNZtims/bazaar-pos-sub000/internal/model"
	"github.com/TNZtims/bazaar-pos-sub000/internal/stock"
	"github.com/TNZtims/bazaar-pos-sub000/pkg/database"
	"github.com/TNZtims/bazaar-pos-sub000/pkg/logger"
	"github.com/TNZtims/bazaar-pos-sub000/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ProductRequest defines the structure for product creation/update requests.
// Quantity is only honored on creation; afterwards stock moves exclusively
// through the ledger endpoints.
type ProductRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	SKU         string  `json:"sku"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
	Quantity    int     `json:"quantity"`
	IsActive    bool    `json:"is_active"`
}

// ReserveRequest is the cart hold/release request used by POS terminals
type ReserveRequest struct {
	ProductID uint   `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	Action    string `json:"action" validate:"required,oneof=reserve release"`
}

// AdjustRequest is a manual stock correction expressed as a signed delta
type AdjustRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// ListProducts handles retrieving all products within the store scope
func ListProducts(c echo.Context) error {
	log := logger.FromContext(c)
	storeID, _ := middleware.StoreIDFromContext(c)

	db := database.GetDB()
	query := db.Where("store_id = ?", storeID)

	// Filter by active status if specified
	isActive := c.QueryParam("is_active")
	if isActive != "" {
		active, err := strconv.ParseBool(isActive)
		if err == nil {
			query = query.Where("is_active = ?", active)
		} else {
			log.Warn("Invalid is_active parameter", zap.String("value", isActive), zap.Error(err))
		}
	}

	// Filter by category if specified
	category := c.QueryParam("category")
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var products []model.Product
	result := query.Find(&products)
	if result.Error != nil {
		log.Error("Failed to list products", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve products",
		})
	}

	return c.JSON(http.StatusOK, products)
}

// GetProduct handles retrieving a single product by ID
func GetProduct(c echo.Context) error {
	log := logger.FromContext(c)
	storeID, _ := middleware.StoreIDFromContext(c)
	id := c.Param("id")

	var product model.Product
	result := database.GetDB().Where("store_id = ?", storeID).First(&product, id)
	if result.Error != nil {
		log.Error("Product not found",
			zap.String("product_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Product not found",
		})
	}

	return c.JSON(http.StatusOK, product)
}

// CreateProduct handles creating a new product
func CreateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	storeID, _ := middleware.StoreIDFromContext(c)

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Name == "" || req.Price <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and a positive price are required"})
	}
	if req.Quantity < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity cannot be negative"})
	}

	product := model.Product{
		StoreID:           storeID,
		Name:              req.Name,
		Description:       req.Description,
		SKU:               req.SKU,
		Price:             req.Price,
		Category:          req.Category,
		ImageURL:          req.ImageURL,
		Quantity:          req.Quantity,
		AvailableQuantity: req.Quantity,
		IsActive:          req.IsActive,
	}
	if result := database.GetDB().Create(&product); result.Error != nil {
		log.Error("Failed to create product", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create product"})
	}

	prometheus.RecordStockOperation("create")
	prometheus.UpdateProductInventory(strconv.Itoa(int(product.ID)), product.Name, float64(product.AvailableQuantity))
	log.Info("Product created",
		zap.Uint("product_id", product.ID),
		zap.String("product_name", product.Name))
	return c.JSON(http.StatusCreated, product)
}

// UpdateProduct handles updating product master data. Quantity fields are
// deliberately not writable here; use AdjustProduct for stock corrections.
func UpdateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	storeID, _ := middleware.StoreIDFromContext(c)
	id := c.Param("id")

	var product model.Product
	if result := database.GetDB().Where("store_id = ?", storeID).First(&product, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
	}

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Name == "" || req.Price <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and a positive price are required"})
	}

	updates := map[string]interface{}{
		"name":        req.Name,
		"description": req.Description,
		"sku":         req.SKU,
		"price":       req.Price,
		"category":    req.Category,
		"image_url":   req.ImageURL,
		"is_active":   req.IsActive,
	}
	if result := database.GetDB().Model(&product).Updates(updates); result.Error != nil {
		log.Error("Failed to update product", zap.String("product_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update product"})
	}

	return c.JSON(http.StatusOK, product)
}

// DeleteProduct handles deleting a product
func DeleteProduct(c echo.Context) error {
	log := logger.FromContext(c)
	storeID, _ := middleware.StoreIDFromContext(c)
	id := c.Param("id")

	var product model.Product
	if result := database.GetDB().Where("store_id = ?", storeID).First(&product, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
	}

	if result := database.GetDB().Delete(&product); result.Error != nil {
		log.Error("Failed to delete product", zap.String("product_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete product"})
	}

	log.Info("Product deleted", zap.Uint("product_id", product.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Product deleted successfully"})
}

// AdjustProduct applies a manual stock correction through the ledger
func AdjustProduct(c echo.Context) error {
	log := logger.FromContext(c)
	storeID, _ := middleware.StoreIDFromContext(c)

	productID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid product id"})
	}

	var req AdjustRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	product, err := ledger.Adjust(c.Request().Context(), storeID, uint(productID), req.Delta)
	if err != nil {
		return stockError(c, log, err)
	}

	prometheus.RecordStockOperation("adjust")
	prometheus.UpdateProductInventory(strconv.Itoa(int(product.ID)), product.Name, float64(product.AvailableQuantity))
	log.Info("Stock adjusted",
		zap.Uint("product_id", product.ID),
		zap.Int("delta", req.Delta),
		zap.Int("available", product.AvailableQuantity))
	return c.JSON(http.StatusOK, product)
}

// ReserveProduct places or releases a cart hold for a POS terminal
func ReserveProduct(c echo.Context) error {
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
	return c.JSON(http.StatusOK, product)
}

// applyReservation dispatches a reserve/release request through the ledger
func applyReservation(c echo.Context, storeID uint, req ReserveRequest) (*model.Product, error) {
	ctx := c.Request().Context()
	switch req.Action {
	case "reserve":
		product, err := ledger.Reserve(ctx, storeID, req.ProductID, req.Quantity)
		if err == nil {
			prometheus.RecordStockOperation("reserve")
		}
		return product, err
	case "release":
		product, _, err := ledger.Release(ctx, storeID, req.ProductID, req.Quantity)
		if err == nil {
			prometheus.RecordStockOperation("release")
		}
		return product, err
	default:
		return nil, errBadAction
	}
}

var errBadAction = errors.New("action must be reserve or release")

// stockError maps ledger failures to HTTP responses
func stockError(c echo.Context, log *zap.Logger, err error) error {
	var insufficient *stock.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		prometheus.InsufficientStockCounter.Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":     insufficient.Error(),
			"available": insufficient.Available,
			"requested": insufficient.Requested,
		})
	case errors.Is(err, stock.ErrInvalidQuantity), errors.Is(err, errBadAction):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, stock.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
	default:
		log.Error("Stock operation failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Stock operation failed"})
	}
}
