package jwtutil

import (
	"testing"
	"time"

	"github.com/TNZtims/bazaar-pos-sub000/pkg/config"
)

func TestGenerateAndValidateToken(t *testing.T) {
	Initialize(&config.JWTConfig{
		SigningKey:     "test-signing-key",
		ExpirationTime: time.Hour,
	})

	token, err := GenerateToken("cashier@example.com", 7, 3, "Main Street", "cashier", "Sam")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Email != "cashier@example.com" || claims.UserID != 7 {
		t.Fatalf("unexpected identity claims: %+v", claims)
	}
	if claims.StoreID != 3 || claims.StoreName != "Main Street" {
		t.Fatalf("unexpected store claims: %+v", claims)
	}
	if claims.Role != "cashier" || claims.CashierName != "Sam" {
		t.Fatalf("unexpected role claims: %+v", claims)
	}
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "key-one", ExpirationTime: time.Hour})
	token, err := GenerateToken("cashier@example.com", 1, 1, "", "cashier", "")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	Initialize(&config.JWTConfig{SigningKey: "key-two", ExpirationTime: time.Hour})
	if _, err := ValidateToken(token); err == nil {
		t.Fatal("expected validation to fail with a different signing key")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationTime: -time.Minute})
	token, err := GenerateToken("cashier@example.com", 1, 1, "", "cashier", "")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := ValidateToken(token); err == nil {
		t.Fatal("expected validation to fail for expired token")
	}
}
