package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/friendsincode/signboard/internal/models"
)

func issueToken(t *testing.T, secret []byte, perm models.Permission) string {
	t.Helper()
	token, err := Issue(secret, Claims{UserID: "u1", Email: "u1@example.com", Permission: perm}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

func TestMiddleware_AcceptsBearerToken(t *testing.T) {
	secret := []byte("test-secret")
	token := issueToken(t, secret, models.PermissionViewer)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || claims == nil {
			t.Fatalf("expected claims in context")
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	Middleware(secret)(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMiddleware_RejectsQueryToken(t *testing.T) {
	secret := []byte("test-secret")
	token := issueToken(t, secret, models.PermissionViewer)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns?token="+token, nil)
	rr := httptest.NewRecorder()

	Middleware(secret)(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for query token auth, got %d", rr.Code)
	}
}

func TestMiddleware_AcceptsQueryTokenForEventsWebSocketUpgrade(t *testing.T) {
	secret := []byte("test-secret")
	token := issueToken(t, secret, models.PermissionViewer)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ClaimsFromContext(r.Context()); !ok {
			t.Fatalf("expected claims in context")
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?types=campaign.item_updated&token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	rr := httptest.NewRecorder()

	Middleware(secret)(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for websocket query token auth, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestRequirePermission(t *testing.T) {
	secret := []byte("test-secret")
	tests := []struct {
		name     string
		perm     models.Permission
		required models.Permission
		want     int
	}{
		{name: "viewer on viewer route", perm: models.PermissionViewer, required: models.PermissionViewer, want: http.StatusOK},
		{name: "editor on manager route", perm: models.PermissionEditor, required: models.PermissionManager, want: http.StatusForbidden},
		{name: "admin on manager route", perm: models.PermissionAdmin, required: models.PermissionManager, want: http.StatusOK},
		{name: "none on viewer route", perm: models.PermissionNone, required: models.PermissionViewer, want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			h := Middleware(secret)(RequirePermission(tt.required)(next))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
			req.Header.Set("Authorization", "Bearer "+issueToken(t, secret, tt.perm))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestRequirePermission_NoClaims(t *testing.T) {
	h := RequirePermission(models.PermissionViewer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestClaimsContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := ClaimsFromContext(WithClaims(ctx, nil)); ok {
		t.Fatal("nil claims must leave the context unauthenticated")
	}
	if Allowed(ctx, models.PermissionViewer) {
		t.Fatal("anonymous context must not be allowed")
	}

	ctx = WithClaims(ctx, &Claims{UserID: "u1", Permission: models.PermissionEditor})
	if !Allowed(ctx, models.PermissionViewer) || !Allowed(ctx, models.PermissionEditor) {
		t.Fatal("editor should satisfy viewer and editor")
	}
	if Allowed(ctx, models.PermissionManager) {
		t.Fatal("editor must not satisfy manager")
	}
}
