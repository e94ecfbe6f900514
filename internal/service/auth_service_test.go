package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"fitdesk/backoffice/internal/domain"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func TestAuthService_RegisterAndLogin(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, testSecret, time.Hour, zap.NewNop())
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ana", "Ana@Example.com ", "s3cret", domain.RoleTrainer)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.PasswordHash != "" || user.Email != "ana@example.com" {
		t.Errorf("unexpected user %+v", user)
	}

	if _, err := svc.Register(ctx, "Ana", "ana@example.com", "other", domain.RoleTrainer); !errors.Is(err, ErrUserAlreadyExists) {
		t.Errorf("duplicate: want ErrUserAlreadyExists, got %v", err)
	}

	token, logged, err := svc.Login(ctx, "ana@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if logged.ID != user.ID {
		t.Errorf("logged in as %s, want %s", logged.ID.Hex(), user.ID.Hex())
	}

	claims, err := ParseToken(testSecret, token)
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims.UserID != user.ID.Hex() || claims.Role != domain.RoleTrainer {
		t.Errorf("claims = %+v", claims)
	}
}

func TestAuthService_LoginFailures(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, testSecret, time.Hour, zap.NewNop())
	ctx := context.Background()
	if _, err := svc.Register(ctx, "Luis", "luis@example.com", "right", domain.RoleClient); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, err := svc.Login(ctx, "luis@example.com", "wrong"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "x"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("unknown user: got %v", err)
	}
}

func TestAuthService_RejectsUnknownRole(t *testing.T) {
	svc := NewAuthService(newMockUserRepo(), testSecret, time.Hour, zap.NewNop())
	if _, err := svc.Register(context.Background(), "X", "x@example.com", "p", domain.Role("admin")); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("want ErrInvalidRole, got %v", err)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	sign := func(secret string, c Claims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &c).SignedString([]byte(secret))
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	valid := func(issuer string, ttl time.Duration) Claims {
		return Claims{
			UserID: "64b000000000000000000001",
			Role:   domain.RoleTrainer,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			},
		}
	}

	if _, err := ParseToken(testSecret, sign(testSecret, valid(TokenIssuer, time.Hour))); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"expired", sign(testSecret, valid(TokenIssuer, -time.Minute)), ErrTokenExpired},
		{"wrong secret", sign("other", valid(TokenIssuer, time.Hour)), ErrTokenInvalid},
		{"foreign issuer", sign(testSecret, valid("someone-else", time.Hour)), ErrTokenInvalid},
		{"no role", sign(testSecret, Claims{UserID: "x", RegisteredClaims: jwt.RegisteredClaims{Issuer: TokenIssuer}}), ErrTokenInvalid},
		{"garbage", "not-a-jwt", ErrTokenInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(testSecret, tt.token); !errors.Is(err, tt.want) {
				t.Errorf("want %v, got %v", tt.want, err)
			}
		})
	}
}
