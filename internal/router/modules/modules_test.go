package modules

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/taskboard-api/internal/interface/http"
	"github.com/oksasatya/taskboard-api/pkg/helpers"
	"github.com/oksasatya/taskboard-api/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

func serve(mod interface{ Register(*gin.RouterGroup) }, method, path string, header http.Header) *httptest.ResponseRecorder {
	r := gin.New()
	mod.Register(r.Group("/api"))
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func ok(context.Context) error   { return nil }
func fail(context.Context) error { return errors.New("down") }

func TestHealthRequiredFailureIs503(t *testing.T) {
	w := serve(NewHealthModule(map[string]Check{"postgres": fail}, nil), http.MethodGet, "/api/healthz", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "unavailable" || body.Checks["postgres"] != "down" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestHealthOptionalFailureIsReportedOnly(t *testing.T) {
	mod := NewHealthModule(map[string]Check{"postgres": ok}, map[string]Check{"redis": fail})
	w := serve(mod, http.MethodGet, "/api/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestTaskModuleRequiresBearerToken(t *testing.T) {
	jwt := helpers.NewJWTManager("secret", time.Hour)
	mod := NewTaskModule(handlers.NewTaskHandler(nil, nil), jwt, nil, 10)

	for _, route := range [][2]string{
		{http.MethodGet, "/api/tasks"},
		{http.MethodGet, "/api/tasks/search"},
		{http.MethodPost, "/api/tasks"},
		{http.MethodPut, "/api/tasks/1"},
		{http.MethodDelete, "/api/tasks/1"},
	} {
		if w := serve(mod, route[0], route[1], nil); w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", route[0], route[1], w.Code)
		}
	}
}

func TestAuthModuleRoutes(t *testing.T) {
	jwt := helpers.NewJWTManager("secret", time.Hour)
	mod := NewAuthModule(handlers.NewAuthHandler(nil, nil), handlers.NewUserHandler(nil, nil), jwt, nil, 10)

	// empty bodies fail binding before any service call
	for _, path := range []string{"register", "login", "verify-email", "forgot-password", "reset-password"} {
		if w := serve(mod, http.MethodPost, "/api/auth/"+path, nil); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, w.Code)
		}
	}
	if w := serve(mod, http.MethodGet, "/api/users/me", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("profile without token: %d", w.Code)
	}
}
