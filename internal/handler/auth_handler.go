package handler

import (
	"net/http"

	"github.com/TNZtims/bazaar-pos-sub000/internal/model"
	"github.com/TNZtims/bazaar-pos-sub000/pkg/database"
	"github.com/TNZtims/bazaar-pos-sub000/pkg/jwtutil"
	"github.com/TNZtims/bazaar-pos-sub000/pkg/logger"
	"github.com/TNZtims/bazaar-pos-sub000/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// LoginRequest authenticates a user against their store. Cashier selection is
// optional; when set it is carried in the token and stamped on every
// mutation's history entry.
type LoginRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	CashierName string `json:"cashier_name"`
}

// Login authenticates an admin or cashier and issues a store-scoped token
func Login(c echo.Context) error {
	return login(c, false)
}

// CustomerLogin authenticates a public shop session
func CustomerLogin(c echo.Context) error {
	return login(c, true)
}

func login(c echo.Context, customer bool) error {
	log := logger.FromContext(c)
	prometheus.AuthAttemptsCounter.Inc()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError()
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	var user model.User
	result := database.GetDB().Where("email = ? AND is_active = ?", req.Email, true).First(&user)
	if result.Error != nil {
		log.Warn("User not found", zap.String("email", req.Email))
		prometheus.RecordAuthError()
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError()
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if customer != (user.Role == model.RoleCustomer) {
		log.Warn("Role not allowed on this login endpoint",
			zap.String("email", req.Email),
			zap.String("role", user.Role))
		prometheus.RecordAuthError()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var store model.Store
	if result := database.GetDB().First(&store, user.StoreID); result.Error != nil || !store.IsActive {
		log.Error("Store not found or inactive", zap.Uint("store_id", user.StoreID))
		prometheus.RecordAuthError()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "store is not available"})
	}

	cashierName := req.CashierName
	if cashierName == "" && !customer {
		cashierName = user.Name
	}

	token, err := jwtutil.GenerateToken(user.Email, user.ID, user.StoreID, store.Name, user.Role, cashierName)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError()
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	prometheus.AuthSuccessCounter.Inc()
	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.Uint("store_id", user.StoreID),
		zap.String("role", user.Role))
	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user": echo.Map{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
			"role":  user.Role,
		},
		"store": echo.Map{
			"id":   store.ID,
			"name": store.Name,
		},
	})
}
