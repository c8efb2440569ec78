package utils

import (
	"errors"
	"testing"
	"time"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", 42, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := ValidateToken("secret", token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "42" {
		t.Fatalf("expected user 42, got %q", claims.UserID)
	}
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	token, err := GenerateToken("secret", 1, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ValidateToken("other", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken("secret", 1, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ValidateToken("secret", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestStateCarriesUserAndOrganization(t *testing.T) {
	state, err := GenerateState("secret", 7, 9, 10*time.Minute)
	if err != nil {
		t.Fatalf("GenerateState: %v", err)
	}
	claims, err := ValidateState("secret", state)
	if err != nil {
		t.Fatalf("ValidateState: %v", err)
	}
	if claims.UserID != 7 || claims.OrganizationID != 9 {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestSessionTokenIsNotAState(t *testing.T) {
	token, err := GenerateToken("secret", 7, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ValidateState("secret", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected session token to be rejected as state, got %v", err)
	}
}
