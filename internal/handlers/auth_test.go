package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/authcore/apiserver/internal/logging"
	"github.com/authcore/apiserver/internal/password"
	"github.com/authcore/apiserver/internal/services"
	"github.com/authcore/apiserver/internal/session"
	"github.com/authcore/apiserver/internal/store"
)

type recordedMail struct {
	to, body string
}

type recordMailer struct {
	sent chan recordedMail
}

func (m *recordMailer) Send(_ context.Context, to, _ string, body string) error {
	m.sent <- recordedMail{to: to, body: body}
	return nil
}

func (m *recordMailer) wait(t *testing.T) recordedMail {
	t.Helper()
	select {
	case mail := <-m.sent:
		return mail
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for mail")
		return recordedMail{}
	}
}

// testServer drives the real router with a cookie jar, so the session
// round-trips the same way a browser would carry it.
type testServer struct {
	router  *chi.Mux
	users   *store.MemoryUserRepository
	codes   *store.MemoryResetCodeRepository
	mailer  *recordMailer
	cookies map[string]*http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	users := store.NewMemoryUserRepository()
	codes := store.NewMemoryResetCodeRepository()
	m := &recordMailer{sent: make(chan recordedMail, 8)}

	svc := services.NewAuthService(users, codes, password.NewHasher(), m, logging.Discard())

	sessions, err := session.NewManager("handler-test-secret", session.WithCookieName("test_session"))
	if err != nil {
		t.Fatalf("new session manager: %v", err)
	}

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, svc, sessions)
	})

	return &testServer{
		router:  router,
		users:   users,
		codes:   codes,
		mailer:  m,
		cookies: make(map[string]*http.Cookie),
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range ts.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(ts.cookies, c.Name)
			continue
		}
		ts.cookies[c.Name] = c
	}

	var payload map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w.Code, payload
}

func (ts *testServer) register(t *testing.T, email, pw string) {
	t.Helper()
	status, _ := ts.do(t, "POST", "/auth/register", map[string]string{"email": email, "password": pw})
	if status != http.StatusOK {
		t.Fatalf("register %s: status %d", email, status)
	}
}

func (ts *testServer) login(t *testing.T, email, pw string) {
	t.Helper()
	status, _ := ts.do(t, "POST", "/auth/login", map[string]string{"email": email, "password": pw})
	if status != http.StatusOK {
		t.Fatalf("login %s: status %d", email, status)
	}
}

func TestCheckEmailEndpoint(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, "GET", "/auth/check-email?email=a@x.com", nil)
	if status != http.StatusOK || body["available"] != true {
		t.Fatalf("expected available, got %d %v", status, body)
	}

	ts.register(t, "a@x.com", "password1")

	status, body = ts.do(t, "GET", "/auth/check-email?email=a@x.com", nil)
	if status != http.StatusOK || body["available"] != false {
		t.Fatalf("expected unavailable, got %d %v", status, body)
	}

	status, _ = ts.do(t, "GET", "/auth/check-email", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing email, got %d", status)
	}
}

func TestRegisterEndpoint(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, "POST", "/auth/register", map[string]string{"email": "a@x.com", "password": "password1"})
	if status != http.StatusOK {
		t.Fatalf("register: status %d body %v", status, body)
	}
	if body["success"] != true || body["user_id"] == "" || body["user_id"] == nil {
		t.Fatalf("expected success with user_id, got %v", body)
	}

	// Registration does not start a session.
	if status, _ := ts.do(t, "GET", "/auth/me", nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 after register without login, got %d", status)
	}

	status, _ = ts.do(t, "POST", "/auth/register", map[string]string{"email": "a@x.com", "password": "password2"})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate email, got %d", status)
	}

	status, _ = ts.do(t, "POST", "/auth/register", map[string]string{"email": "b@x.com", "password": "short77"})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for weak password, got %d", status)
	}

	status, _ = ts.do(t, "POST", "/auth/register", map[string]string{"email": "not-an-email", "password": "password1"})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed email, got %d", status)
	}
}

func TestLoginAndMeEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "a@x.com", "password1")

	status, body := ts.do(t, "POST", "/auth/login", map[string]string{"email": "a@x.com", "password": "wrong"})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d %v", status, body)
	}

	status, body = ts.do(t, "POST", "/auth/login", map[string]string{"email": "nobody@x.com", "password": "password1"})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown email, got %d %v", status, body)
	}

	ts.login(t, "a@x.com", "password1")
	if _, ok := ts.cookies["test_session"]; !ok {
		t.Fatalf("expected session cookie after login")
	}

	status, body = ts.do(t, "GET", "/auth/me", nil)
	if status != http.StatusOK {
		t.Fatalf("me: status %d", status)
	}
	if body["email"] != "a@x.com" || body["role"] != "user" || body["is_active"] != true {
		t.Fatalf("unexpected projection: %v", body)
	}
	if body["last_login"] == nil {
		t.Fatalf("expected last_login set after login, got %v", body)
	}
	if _, leaked := body["password_hash"]; leaked {
		t.Fatalf("projection must not carry the password hash: %v", body)
	}
}

func TestLogoutEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "a@x.com", "password1")
	ts.login(t, "a@x.com", "password1")

	status, body := ts.do(t, "POST", "/auth/logout", nil)
	if status != http.StatusOK || body["success"] != true {
		t.Fatalf("logout: %d %v", status, body)
	}

	if status, _ := ts.do(t, "GET", "/auth/me", nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", status)
	}

	// Logout without a session still succeeds.
	if status, _ := ts.do(t, "POST", "/auth/logout", nil); status != http.StatusOK {
		t.Fatalf("expected logout without session to succeed, got %d", status)
	}
}

func TestMeClearsOrphanedSession(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "gone@x.com", "password1")
	ts.login(t, "gone@x.com", "password1")

	user, err := ts.users.GetByEmail(context.Background(), "gone@x.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if err := ts.users.Delete(context.Background(), user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	if status, _ := ts.do(t, "GET", "/auth/me", nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for orphaned session")
	}
	if _, ok := ts.cookies["test_session"]; ok {
		t.Fatalf("expected orphaned session cookie to be cleared")
	}
}

func TestChangePasswordEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "a@x.com", "password1")

	status, _ := ts.do(t, "POST", "/auth/change-password", map[string]string{
		"current_password": "password1", "new_password": "newpass12",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", status)
	}

	ts.login(t, "a@x.com", "password1")

	status, _ = ts.do(t, "POST", "/auth/change-password", map[string]string{
		"current_password": "wrongpass", "new_password": "newpass12",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong current password, got %d", status)
	}

	status, _ = ts.do(t, "POST", "/auth/change-password", map[string]string{
		"current_password": "password1", "new_password": "short77",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for weak new password, got %d", status)
	}

	status, body := ts.do(t, "POST", "/auth/change-password", map[string]string{
		"current_password": "password1", "new_password": "newpass12",
	})
	if status != http.StatusOK || body["success"] != true {
		t.Fatalf("change password: %d %v", status, body)
	}

	// Session survives the change.
	if status, _ := ts.do(t, "GET", "/auth/me", nil); status != http.StatusOK {
		t.Fatalf("expected session to stay valid, got %d", status)
	}

	status, _ = ts.do(t, "POST", "/auth/login", map[string]string{"email": "a@x.com", "password": "password1"})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected old password rejected, got %d", status)
	}
	ts.login(t, "a@x.com", "newpass12")
}

func TestPasswordResetFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "a@x.com", "password1")

	status, _ := ts.do(t, "POST", "/auth/password-reset/request", map[string]string{"email": "nobody@x.com"})
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown email, got %d", status)
	}

	status, body := ts.do(t, "POST", "/auth/password-reset/request", map[string]string{"email": "a@x.com"})
	if status != http.StatusOK || body["success"] != true {
		t.Fatalf("reset request: %d %v", status, body)
	}

	mail := ts.mailer.wait(t)
	if mail.to != "a@x.com" {
		t.Fatalf("expected mail to requester, got %q", mail.to)
	}

	record, err := ts.codes.LatestByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("latest code: %v", err)
	}
	if !strings.Contains(mail.body, record.Code) {
		t.Fatalf("expected mail to carry code %q, got %q", record.Code, mail.body)
	}

	wrong := "000000"
	if wrong == record.Code {
		wrong = "000001"
	}
	status, _ = ts.do(t, "POST", "/auth/password-reset/verify-code", map[string]string{"email": "a@x.com", "code": wrong})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong code, got %d", status)
	}

	status, _ = ts.do(t, "POST", "/auth/password-reset/verify-code", map[string]string{"email": "a@x.com", "code": record.Code})
	if status != http.StatusOK {
		t.Fatalf("expected code to verify, got %d", status)
	}

	status, body = ts.do(t, "POST", "/auth/password-reset/confirm", map[string]string{"email": "a@x.com", "new_password": "newpass12"})
	if status != http.StatusOK || body["success"] != true {
		t.Fatalf("reset confirm: %d %v", status, body)
	}

	status, _ = ts.do(t, "POST", "/auth/login", map[string]string{"email": "a@x.com", "password": "password1"})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected old password rejected after reset, got %d", status)
	}
	ts.login(t, "a@x.com", "newpass12")
}

func TestMalformedJSONRejected(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest("POST", "/auth/register", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", w.Code)
	}
}
