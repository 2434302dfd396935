package middleware

import (
	"net/http"
	"strings"

	"github.com/TNZtims/bazaar-pos-sub000/internal/model"
	"github.com/TNZtims/bazaar-pos-sub000/pkg/jwtutil"
	"github.com/TNZtims/bazaar-pos-sub000/pkg/logger"
	"github.com/TNZtims/bazaar-pos-sub000/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware validates the JWT token and establishes the store + cashier
// context for admin and cashier sessions.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, ok := authenticate(c)
		if !ok {
			return nil
		}
		if claims.Role == model.RoleCustomer {
			logger.FromContext(c).Warn("Customer token used on an admin route",
				zap.Uint("user_id", claims.UserID))
			return c.JSON(http.StatusForbidden, echo.Map{"error": "admin or cashier access required"})
		}
		return next(c)
	}
}

// CustomerAuthMiddleware validates the JWT token for public shop sessions.
// It establishes store + user context without requiring a cashier.
func CustomerAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := authenticate(c); !ok {
			return nil
		}
		return next(c)
	}
}

// authenticate validates the bearer token and populates the session context.
// On failure it writes the error response itself and reports ok=false.
func authenticate(c echo.Context) (*jwtutil.UserClaims, bool) {
	log := logger.FromContext(c)
	prometheus.AuthAttemptsCounter.Inc()

	// Get the Authorization header
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		log.Warn("Missing Authorization header")
		prometheus.RecordAuthError()
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		return nil, false
	}

	// Check if it's a Bearer token
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		log.Warn("Invalid Authorization header format")
		prometheus.RecordAuthError()
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		return nil, false
	}

	// Validate the token
	claims, err := jwtutil.ValidateToken(parts[1])
	if err != nil {
		log.Error("Invalid JWT token", zap.Error(err))
		prometheus.RecordAuthError()
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		return nil, false
	}

	if claims.StoreID == 0 {
		log.Warn("JWT token does not contain store_id")
		prometheus.StoreContextMissingCounter.Inc()
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "store_id is required in the token"})
		return nil, false
	}

	// Store session info in context for later use
	c.Set("user_id", claims.UserID)
	c.Set("email", claims.Email)
	c.Set("store_id", claims.StoreID)
	c.Set("store_name", claims.StoreName)
	c.Set("user_role", claims.Role)
	c.Set("cashier_name", claims.CashierName)

	prometheus.AuthSuccessCounter.Inc()
	return claims, true
}

// StoreIDFromContext retrieves the store ID from the context.
// Returns 0, false if store context is not established.
func StoreIDFromContext(c echo.Context) (uint, bool) {
	storeID, ok := c.Get("store_id").(uint)
	return storeID, ok
}

// CashierFromContext retrieves the selected cashier name, falling back to the
// authenticated user's email when no cashier was selected.
func CashierFromContext(c echo.Context) string {
	if cashier, ok := c.Get("cashier_name").(string); ok && cashier != "" {
		return cashier
	}
	if email, ok := c.Get("email").(string); ok {
		return email
	}
	return ""
}

// UserIDFromContext retrieves the authenticated user's id
func UserIDFromContext(c echo.Context) uint {
	userID, _ := c.Get("user_id").(uint)
	return userID
}
