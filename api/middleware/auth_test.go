package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iamteki/kl-mobile-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret: "test-secret-not-for-production",
		Issuer: "klmobile-test",
	}
}

func signToken(t *testing.T, cfg config.JWTConfig, claims actorClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validClaims(cfg config.JWTConfig, actorID uuid.UUID) actorClaims {
	return actorClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID.String(),
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func authProbe(cfg config.JWTConfig, captured *struct {
	actorID uuid.UUID
	role    string
}) http.Handler {
	return Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.actorID = ActorIDFromContext(r.Context())
		captured.role = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestAuthSeedsActorContext(t *testing.T) {
	cfg := testJWTConfig()
	actorID := uuid.New()
	var captured struct {
		actorID uuid.UUID
		role    string
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, cfg, validClaims(cfg, actorID)))
	resp := httptest.NewRecorder()
	authProbe(cfg, &captured).ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.actorID != actorID {
		t.Fatalf("expected actor %s got %s", actorID, captured.actorID)
	}
	if captured.role != "admin" {
		t.Fatalf("expected role admin got %q", captured.role)
	}
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	var captured struct {
		actorID uuid.UUID
		role    string
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	resp := httptest.NewRecorder()
	authProbe(testJWTConfig(), &captured).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	cfg := testJWTConfig()
	other := cfg
	other.Secret = "a-different-secret-entirely"

	var captured struct {
		actorID uuid.UUID
		role    string
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, other, validClaims(other, uuid.New())))
	resp := httptest.NewRecorder()
	authProbe(cfg, &captured).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	cfg := testJWTConfig()
	claims := validClaims(cfg, uuid.New())
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	var captured struct {
		actorID uuid.UUID
		role    string
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, cfg, claims))
	resp := httptest.NewRecorder()
	authProbe(cfg, &captured).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsNonUUIDSubject(t *testing.T) {
	cfg := testJWTConfig()
	claims := validClaims(cfg, uuid.New())
	claims.Subject = "not-a-uuid"

	var captured struct {
		actorID uuid.UUID
		role    string
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, cfg, claims))
	resp := httptest.NewRecorder()
	authProbe(cfg, &captured).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRequireRoleBlocksOtherRoles(t *testing.T) {
	handler := RequireRole("admin", nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/inventory/adjust", nil)
	req = req.WithContext(WithRole(req.Context(), "customer"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/admin/v1/inventory/adjust", nil)
	req = req.WithContext(WithRole(req.Context(), "admin"))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
}
