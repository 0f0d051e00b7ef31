package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/taskboard-api/internal/application"
	"github.com/oksasatya/taskboard-api/internal/interface/middleware"
	"github.com/oksasatya/taskboard-api/internal/testsupport/memrepo"
	"github.com/oksasatya/taskboard-api/pkg/helpers"
	"github.com/oksasatya/taskboard-api/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

type testServer struct {
	r        *gin.Engine
	notifier *captureNotifier
	jwt      *helpers.JWTManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	jwt := helpers.NewJWTManager("test-secret", time.Hour)
	notifier := newCaptureNotifier()
	authSvc := application.NewAuthService(memrepo.NewUsers(), jwt, notifier, nil, 10*time.Minute)
	taskSvc := application.NewTaskService(memrepo.NewTasks(), nil, nil)
	ah := NewAuthHandler(authSvc, nil)
	uh := NewUserHandler(authSvc, nil)
	th := NewTaskHandler(taskSvc, nil)

	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api")
	api.POST("/auth/register", ah.Register)
	api.POST("/auth/login", ah.Login)
	api.POST("/auth/verify-email", ah.VerifyEmail)
	api.POST("/auth/forgot-password", ah.ForgotPassword)
	api.POST("/auth/reset-password", ah.ResetPassword)

	api.GET("/users/me", middleware.Auth(jwt), uh.GetProfile)

	tasks := api.Group("/tasks", middleware.Auth(jwt))
	tasks.GET("", th.List)
	tasks.GET("/search", th.Search)
	tasks.POST("", th.Create)
	tasks.PUT("/:id", th.Update)
	tasks.DELETE("/:id", th.Delete)

	return &testServer{r: r, notifier: notifier, jwt: jwt}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s: %v", w.Body.String(), err)
		}
	}
	return w.Code, out
}

func (s *testServer) list(t *testing.T, token string) []map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
	var out []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	return out
}

func registerBody(email string) map[string]any {
	return map[string]any{
		"fullName":   "Ada Lovelace",
		"email":      email,
		"password":   "pw123456",
		"profession": "Developer",
		"gender":     "female",
		"age":        36,
	}
}

// verifiedToken registers, verifies and logs in a user.
func (s *testServer) verifiedToken(t *testing.T, email string) string {
	t.Helper()
	if code, body := s.do(t, http.MethodPost, "/api/auth/register", "", registerBody(email)); code != http.StatusCreated {
		t.Fatalf("register: %d %v", code, body)
	}
	otp := s.notifier.code("verify", email)
	if code, body := s.do(t, http.MethodPost, "/api/auth/verify-email", "", map[string]string{"email": email, "otp": otp}); code != http.StatusOK {
		t.Fatalf("verify: %d %v", code, body)
	}
	code, body := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "pw123456"})
	if code != http.StatusOK {
		t.Fatalf("login: %d %v", code, body)
	}
	return body["token"].(string)
}

func TestRegisterVerifyLoginScenario(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/api/auth/register", "", registerBody("a@x.com"))
	if code != http.StatusCreated || body["message"] == "" {
		t.Fatalf("register: %d %v", code, body)
	}

	code, body = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.com", "password": "pw123456"})
	if code != http.StatusUnauthorized || body["message"] != "Email not verified" {
		t.Fatalf("login before verify: %d %v", code, body)
	}

	otp := s.notifier.code("verify", "a@x.com")
	code, _ = s.do(t, http.MethodPost, "/api/auth/verify-email", "", map[string]string{"email": "a@x.com", "otp": otp})
	if code != http.StatusOK {
		t.Fatalf("verify: %d", code)
	}
	code, body = s.do(t, http.MethodPost, "/api/auth/verify-email", "", map[string]string{"email": "a@x.com", "otp": otp})
	if code != http.StatusBadRequest {
		t.Fatalf("reused code: %d %v", code, body)
	}

	code, body = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.com", "password": "pw123456"})
	if code != http.StatusOK || body["token"] == "" || body["message"] != "Login successful" {
		t.Fatalf("login: %d %v", code, body)
	}
	user, ok := body["user"].(map[string]any)
	if !ok || user["email"] != "a@x.com" || user["role"] != "Developer" {
		t.Fatalf("unexpected user %v", body["user"])
	}
	for _, secret := range []string{"password", "Password", "verificationToken", "resetToken"} {
		if _, leaked := user[secret]; leaked {
			t.Fatalf("user projection leaks %s", secret)
		}
	}
}

func TestRegisterErrors(t *testing.T) {
	s := newTestServer(t)

	if code, _ := s.do(t, http.MethodPost, "/api/auth/register", "", registerBody("dup@x.com")); code != http.StatusCreated {
		t.Fatalf("first register: %d", code)
	}
	code, body := s.do(t, http.MethodPost, "/api/auth/register", "", registerBody("dup@x.com"))
	if code != http.StatusBadRequest || body["message"] != "User already exists" {
		t.Fatalf("duplicate: %d %v", code, body)
	}

	missing := registerBody("m@x.com")
	delete(missing, "gender")
	code, body = s.do(t, http.MethodPost, "/api/auth/register", "", missing)
	if code != http.StatusBadRequest || body["details"] == nil {
		t.Fatalf("missing field: %d %v", code, body)
	}

	bad := registerBody("p@x.com")
	bad["profession"] = "Pilot"
	if code, _ := s.do(t, http.MethodPost, "/api/auth/register", "", bad); code != http.StatusBadRequest {
		t.Fatalf("bad profession: %d", code)
	}

	if code, _ := s.do(t, http.MethodPost, "/api/auth/register", "", `{"email":`); code != http.StatusBadRequest {
		t.Fatalf("malformed json: %d", code)
	}
}

func TestRegisterDeliveryFailureAllowsRetry(t *testing.T) {
	s := newTestServer(t)
	s.notifier.sendErr = errors.New("smtp down")

	code, body := s.do(t, http.MethodPost, "/api/auth/register", "", registerBody("r@x.com"))
	if code != http.StatusInternalServerError || body["message"] != "Email could not be delivered" {
		t.Fatalf("delivery failure: %d %v", code, body)
	}

	s.notifier.sendErr = nil
	if code, body := s.do(t, http.MethodPost, "/api/auth/register", "", registerBody("r@x.com")); code != http.StatusCreated {
		t.Fatalf("retry after rollback: %d %v", code, body)
	}
}

func TestLoginErrors(t *testing.T) {
	s := newTestServer(t)
	s.verifiedToken(t, "l@x.com")

	code, body := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "l@x.com", "password": "wrong-password"})
	if code != http.StatusUnauthorized || body["message"] != "Invalid email or password" {
		t.Fatalf("wrong password: %d %v", code, body)
	}
	code, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "nobody@x.com", "password": "pw123456"})
	if code != http.StatusUnauthorized {
		t.Fatalf("unknown email: %d", code)
	}
	code, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "l@x.com"})
	if code != http.StatusBadRequest {
		t.Fatalf("missing password: %d", code)
	}
}

func TestVerifyEmailUnknownUserIsBadRequest(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(t, http.MethodPost, "/api/auth/verify-email", "", map[string]string{"email": "ghost@x.com", "otp": "123456"})
	if code != http.StatusBadRequest || body["message"] != "User not found" {
		t.Fatalf("unknown user: %d %v", code, body)
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	s := newTestServer(t)
	s.verifiedToken(t, "f@x.com")

	code, body := s.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "ghost@x.com"})
	if code != http.StatusNotFound {
		t.Fatalf("forgot unknown: %d %v", code, body)
	}

	if code, _ := s.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "f@x.com"}); code != http.StatusOK {
		t.Fatalf("forgot: %d", code)
	}
	otp := s.notifier.code("reset", "f@x.com")

	wrong := "000000"
	if otp == wrong {
		wrong = "111111"
	}
	code, body = s.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{"email": "f@x.com", "otp": wrong, "password": "newpass123"})
	if code != http.StatusBadRequest || body["message"] != "Invalid or expired code" {
		t.Fatalf("wrong code: %d %v", code, body)
	}

	code, body = s.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{"email": "f@x.com", "otp": otp, "password": "newpass123"})
	if code != http.StatusOK || body["token"] == "" {
		t.Fatalf("reset: %d %v", code, body)
	}
	if code, _ := s.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{"email": "f@x.com", "otp": otp, "password": "another123"}); code != http.StatusBadRequest {
		t.Fatalf("reused reset code: %d", code)
	}
	if code, _ := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "f@x.com", "password": "newpass123"}); code != http.StatusOK {
		t.Fatalf("login with new password: %d", code)
	}
}

func TestForgotPasswordDeliveryFailure(t *testing.T) {
	s := newTestServer(t)
	s.verifiedToken(t, "d@x.com")
	s.notifier.sendErr = errors.New("smtp down")

	if code, _ := s.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "d@x.com"}); code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}
}

func TestTaskRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	if code, _ := s.do(t, http.MethodGet, "/api/tasks", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", code)
	}
	if code, _ := s.do(t, http.MethodPost, "/api/tasks", "bogus", map[string]string{"title": "x"}); code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", code)
	}

	expired := helpers.NewJWTManager("test-secret", -time.Minute)
	tok, _, err := expired.GenerateAccessToken(1)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if code, _ := s.do(t, http.MethodGet, "/api/tasks", tok, nil); code != http.StatusUnauthorized {
		t.Fatalf("expired token: %d", code)
	}
}

func TestTaskLifecycleScenario(t *testing.T) {
	s := newTestServer(t)
	token := s.verifiedToken(t, "t@x.com")

	code, task := s.do(t, http.MethodPost, "/api/tasks", token, map[string]string{"title": "Buy milk"})
	if code != http.StatusCreated || task["status"] != "TODO" || task["priority"] != "MEDIUM" {
		t.Fatalf("create: %d %v", code, task)
	}
	id := int64(task["id"].(float64))
	path := "/api/tasks/" + strconv.FormatInt(id, 10)

	list := s.list(t, token)
	if len(list) != 1 || list[0]["title"] != "Buy milk" {
		t.Fatalf("list: %v", list)
	}

	code, updated := s.do(t, http.MethodPut, path, token, map[string]string{"status": "DONE"})
	if code != http.StatusOK || updated["status"] != "DONE" || updated["title"] != "Buy milk" {
		t.Fatalf("update: %d %v", code, updated)
	}

	code, same := s.do(t, http.MethodPut, path, token, nil)
	if code != http.StatusOK || same["status"] != "DONE" {
		t.Fatalf("empty update: %d %v", code, same)
	}

	code, deleted := s.do(t, http.MethodDelete, path, token, nil)
	if code != http.StatusOK || int64(deleted["id"].(float64)) != id {
		t.Fatalf("delete: %d %v", code, deleted)
	}

	code, body := s.do(t, http.MethodPut, path, token, map[string]string{"status": "DONE"})
	if code != http.StatusNotFound || body["message"] != "Task not found" {
		t.Fatalf("update after delete: %d %v", code, body)
	}
}

func TestTaskValidationAndOwnership(t *testing.T) {
	s := newTestServer(t)
	alice := s.verifiedToken(t, "alice@x.com")
	bob := s.verifiedToken(t, "bob@x.com")

	code, body := s.do(t, http.MethodPost, "/api/tasks", alice, map[string]string{"description": "no title"})
	if code != http.StatusBadRequest || body["message"] != "Please add a title" {
		t.Fatalf("missing title: %d %v", code, body)
	}
	if code, _ := s.do(t, http.MethodPost, "/api/tasks", alice, map[string]string{"title": "x", "priority": "URGENT"}); code != http.StatusBadRequest {
		t.Fatalf("bad priority: %d", code)
	}

	_, task := s.do(t, http.MethodPost, "/api/tasks", alice, map[string]string{"title": "private"})
	path := "/api/tasks/" + strconv.FormatInt(int64(task["id"].(float64)), 10)

	code, body = s.do(t, http.MethodPut, path, bob, map[string]string{"title": "hijack"})
	if code != http.StatusUnauthorized || body["message"] != "User not authorized" {
		t.Fatalf("foreign update: %d %v", code, body)
	}
	if code, _ := s.do(t, http.MethodDelete, path, bob, nil); code != http.StatusUnauthorized {
		t.Fatalf("foreign delete: %d", code)
	}
	if code, _ := s.do(t, http.MethodDelete, "/api/tasks/999", bob, nil); code != http.StatusNotFound {
		t.Fatalf("missing task for non-owner: %d", code)
	}
	if code, _ := s.do(t, http.MethodPut, "/api/tasks/abc", alice, map[string]string{"title": "x"}); code != http.StatusNotFound {
		t.Fatalf("non-numeric id: %d", code)
	}
	if len(s.list(t, bob)) != 0 {
		t.Fatalf("bob must not see alice's tasks")
	}
}

func TestEmptyEnumsAreTreatedAsOmitted(t *testing.T) {
	s := newTestServer(t)
	token := s.verifiedToken(t, "enum@x.com")

	code, task := s.do(t, http.MethodPost, "/api/tasks", token, map[string]string{"title": "x", "priority": ""})
	if code != http.StatusCreated || task["priority"] != "MEDIUM" {
		t.Fatalf("create with empty priority: %d %v", code, task)
	}
	path := "/api/tasks/" + strconv.FormatInt(int64(task["id"].(float64)), 10)

	if code, _ := s.do(t, http.MethodPut, path, token, map[string]string{"status": "IN_PROGRESS", "priority": "HIGH"}); code != http.StatusOK {
		t.Fatalf("update: %d", code)
	}
	code, got := s.do(t, http.MethodPut, path, token, map[string]string{"status": "", "priority": ""})
	if code != http.StatusOK || got["status"] != "IN_PROGRESS" || got["priority"] != "HIGH" {
		t.Fatalf("update with empty enums: %d %v", code, got)
	}
	if code, _ := s.do(t, http.MethodPut, path, token, map[string]string{"status": "DOING"}); code != http.StatusBadRequest {
		t.Fatalf("bad status: %d", code)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	s := newTestServer(t)
	token := s.verifiedToken(t, "s@x.com")
	_, _ = s.do(t, http.MethodPost, "/api/tasks", token, map[string]string{"title": "write report"})

	if code, _ := s.do(t, http.MethodGet, "/api/tasks/search", token, nil); code != http.StatusBadRequest {
		t.Fatalf("blank query: %d", code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/search?q=report", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	var got []map[string]any
	if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &got) != nil || len(got) != 1 {
		t.Fatalf("search: %d %s", w.Code, w.Body.String())
	}
}

func TestProfile(t *testing.T) {
	s := newTestServer(t)
	token := s.verifiedToken(t, "me@x.com")

	code, body := s.do(t, http.MethodGet, "/api/users/me", token, nil)
	if code != http.StatusOK || body["email"] != "me@x.com" || body["isVerified"] != true {
		t.Fatalf("profile: %d %v", code, body)
	}
	if _, leaked := body["password"]; leaked {
		t.Fatalf("profile leaks password")
	}

	ghost, _, _ := s.jwt.GenerateAccessToken(9999)
	if code, _ := s.do(t, http.MethodGet, "/api/users/me", ghost, nil); code != http.StatusNotFound {
		t.Fatalf("deleted user: %d", code)
	}
}
