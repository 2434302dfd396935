package jwtutil

import (
	"time"

	"github.com/TNZtims/bazaar-pos-sub000/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	signingKey     []byte
	expirationTime time.Duration
)

// Initialize sets up the JWT utility from configuration
func Initialize(cfg *config.JWTConfig) {
	signingKey = []byte(cfg.SigningKey)
	expirationTime = cfg.ExpirationTime
}

// UserClaims represents the JWT claims for an authenticated session.
// StoreID scopes every request to a single store; CashierName is set for
// admin/cashier sessions and empty for customer sessions.
type UserClaims struct {
	Email       string `json:"email"`
	UserID      uint   `json:"user_id"`
	StoreID     uint   `json:"store_id"`
	StoreName   string `json:"store_name,omitempty"`
	Role        string `json:"role,omitempty"`
	CashierName string `json:"cashier_name,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed token for a user within a store scope
func GenerateToken(email string, userID, storeID uint, storeName, role, cashierName string) (string, error) {
	claims := UserClaims{
		Email:       email,
		UserID:      userID,
		StoreID:     storeID,
		StoreName:   storeName,
		Role:        role,
		CashierName: cashierName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expirationTime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey)
}

// ValidateToken validates and parses the JWT token
func ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return signingKey, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
