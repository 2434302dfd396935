package handler

import (
	"net/http"

	"github.com/TNZtims/bazaar-pos-sub000/internal/middleware"
	"github.com/TNZtims/bazaar-pos-sub000/internal/model"
	"github.com/TNZtims/bazaar-pos-sub000/pkg/database"
	"github.com/TNZtims/bazaar-pos-sub000/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// StoreRequest defines the structure for store settings updates
type StoreRequest struct {
	Name         string `json:"name" validate:"required"`
	Currency     string `json:"currency"`
	Address      string `json:"address"`
	OpeningHour  string `json:"opening_hour"`
	ClosingHour  string `json:"closing_hour"`
	LogoURL      string `json:"logo_url"`
	PaymentQRURL string `json:"payment_qr_url"`
	IsActive     bool   `json:"is_active"`
}

// GetStore returns the authenticated store's settings
func GetStore(c echo.Context) error {
	storeID, _ := middleware.StoreIDFromContext(c)

	var store model.Store
	if result := database.GetDB().First(&store, storeID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Store not found"})
	}
	return c.JSON(http.StatusOK, store)
}

// UpdateStore updates the authenticated store's settings
func UpdateStore(c echo.Context) error {
	log := logger.FromContext(c)
	storeID, _ := middleware.StoreIDFromContext(c)

	var store model.Store
	if result := database.GetDB().First(&store, storeID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Store not found"})
	}

	var req StoreRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "store name is required"})
	}

	updates := map[string]interface{}{
		"name":           req.Name,
		"currency":       req.Currency,
		"address":        req.Address,
		"opening_hour":   req.OpeningHour,
		"closing_hour":   req.ClosingHour,
		"logo_url":       req.LogoURL,
		"payment_qr_url": req.PaymentQRURL,
		"is_active":      req.IsActive,
	}
	if result := database.GetDB().Model(&store).Updates(updates); result.Error != nil {
		log.Error("Failed to update store", zap.Uint("store_id", storeID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update store"})
	}

	log.Info("Store settings updated", zap.Uint("store_id", storeID))
	return c.JSON(http.StatusOK, store)
}
