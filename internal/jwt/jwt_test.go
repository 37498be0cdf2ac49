package jwt

import (
	"errors"
	"testing"
	"time"
)

func newTestService() *Service {
	return NewService("test-secret", 2*time.Hour, 7*24*time.Hour)
}

func TestGenerateTokenPair(t *testing.T) {
	svc := newTestService()

	pair, err := svc.GenerateTokenPair(1001, "alice@campus.edu")
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("Expected non-empty tokens")
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Error("Expected distinct access and refresh tokens")
	}
	if pair.ExpiresAt <= time.Now().Unix() {
		t.Error("Expected future expiry")
	}
}

func TestValidateAccessToken(t *testing.T) {
	svc := newTestService()
	pair, _ := svc.GenerateTokenPair(1001, "alice@campus.edu")

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken failed: %v", err)
	}
	if claims.UserID != 1001 {
		t.Errorf("Expected user 1001, got %d", claims.UserID)
	}
	if claims.Email != "alice@campus.edu" {
		t.Errorf("Expected email preserved, got %s", claims.Email)
	}
	if claims.TokenType != AccessToken {
		t.Errorf("Expected access token type, got %s", claims.TokenType)
	}
}

func TestValidateToken_TypeMismatch(t *testing.T) {
	svc := newTestService()
	pair, _ := svc.GenerateTokenPair(1001, "alice@campus.edu")

	// Refresh Token 不能当 Access Token 用，反之亦然
	if _, err := svc.ValidateAccessToken(pair.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Expected ErrTokenInvalid, got %v", err)
	}
	if _, err := svc.ValidateRefreshToken(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Expected ErrTokenInvalid, got %v", err)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	svc := newTestService()
	pair, _ := svc.GenerateTokenPair(1001, "alice@campus.edu")

	other := NewService("different-secret", 2*time.Hour, 7*24*time.Hour)
	if _, err := other.ValidateAccessToken(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Expected ErrTokenInvalid for wrong secret, got %v", err)
	}
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewService("test-secret", -1*time.Minute, 7*24*time.Hour)
	pair, _ := svc.GenerateTokenPair(1001, "alice@campus.edu")

	if _, err := svc.ValidateAccessToken(pair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Expected ErrTokenExpired, got %v", err)
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := newTestService()
	if _, err := svc.ValidateAccessToken("not.a.token"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Expected ErrTokenInvalid, got %v", err)
	}
}
