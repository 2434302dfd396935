package handler

import (
	"net/http"

	"github.com/TNZtims/bazaar-pos-sub000/internal/middleware"
	"github.com/TNZtims/bazaar-pos-sub000/internal/model"
	"github.com/TNZtims/bazaar-pos-sub000/pkg/database"
	"github.com/TNZtims/bazaar-pos-sub000/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserRequest defines the structure for user creation/update requests
type UserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// ListUsers handles retrieving all users within the store scope
func ListUsers(c echo.Context) error {
	log := logger.FromContext(c)
	storeID, _ := middleware.StoreIDFromContext(c)

	var users []model.User
	result := database.GetDB().Where("store_id = ?", storeID).Find(&users)
	if result.Error != nil {
		log.Error("Failed to list users", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve users"})
	}
	return c.JSON(http.StatusOK, users)
}

// CreateUser handles creating a new user in the store
func CreateUser(c echo.Context) error {
	log := logger.FromContext(c)
	storeID, _ := middleware.StoreIDFromContext(c)

	var req UserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create user"})
	}

	role := req.Role
	if role == "" {
		role = model.RoleCashier
	}
	user := model.User{
		StoreID:  storeID,
		Email:    req.Email,
		Password: string(hash),
		Name:     req.Name,
		Role:     role,
		IsActive: true,
	}
	if result := database.GetDB().Create(&user); result.Error != nil {
		log.Error("Failed to create user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create user"})
	}

	log.Info("User created", zap.Uint("user_id", user.ID), zap.String("email", user.Email))
	return c.JSON(http.StatusCreated, user)
}

// UpdateUser handles updating a user's profile and credentials
func UpdateUser(c echo.Context) error {
	log := logger.FromContext(c)
	storeID, _ := middleware.StoreIDFromContext(c)
	id := c.Param("id")

	var user model.User
	if result := database.GetDB().Where("store_id = ?", storeID).First(&user, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
	}

	var req UserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	updates := map[string]interface{}{
		"name":      req.Name,
		"is_active": req.IsActive,
	}
	if req.Email != "" {
		updates["email"] = req.Email
	}
	if req.Role != "" {
		updates["role"] = req.Role
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error("Failed to hash password", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update user"})
		}
		updates["password"] = string(hash)
	}

	if result := database.GetDB().Model(&user).Updates(updates); result.Error != nil {
		log.Error("Failed to update user", zap.String("user_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update user"})
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser handles removing a user from the store
func DeleteUser(c echo.Context) error {
	log := logger.FromContext(c)
	storeID, _ := middleware.StoreIDFromContext(c)
	id := c.Param("id")

	var user model.User
	if result := database.GetDB().Where("store_id = ?", storeID).First(&user, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
	}
	if result := database.GetDB().Delete(&user); result.Error != nil {
		log.Error("Failed to delete user", zap.String("user_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete user"})
	}

	log.Info("User deleted", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted successfully"})
}
