package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/authcore/apiserver/types"
	"github.com/google/uuid"
)

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	m, err := NewManager("test-secret", opts...)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func requestWithCookies(recorder *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest("GET", "/auth/me", nil)
	for _, c := range recorder.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager("  "); err == nil {
		t.Fatalf("expected error for blank secret")
	}
}

func TestBindRoundTrip(t *testing.T) {
	m := newTestManager(t, WithCookieName("test_session"))
	user := types.User{ID: uuid.New(), Email: "a@x.com"}

	w := httptest.NewRecorder()
	m.ForRequest(w, httptest.NewRequest("POST", "/auth/login", nil)).Bind(user)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "test_session" {
		t.Fatalf("expected one test_session cookie, got %v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Fatalf("expected HttpOnly cookie")
	}

	id, ok := m.ForRequest(httptest.NewRecorder(), requestWithCookies(w)).Identity()
	if !ok {
		t.Fatalf("expected identity from bound session")
	}
	if id.AccountID != user.ID || id.Email != user.Email {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestIdentityAbsentWithoutCookie(t *testing.T) {
	m := newTestManager(t)
	b := m.ForRequest(httptest.NewRecorder(), httptest.NewRequest("GET", "/auth/me", nil))
	if _, ok := b.Identity(); ok {
		t.Fatalf("expected no identity without a cookie")
	}
}

func TestIdentityRejectsTamperedCookie(t *testing.T) {
	m := newTestManager(t)
	w := httptest.NewRecorder()
	m.ForRequest(w, httptest.NewRequest("POST", "/auth/login", nil)).Bind(types.User{ID: uuid.New(), Email: "a@x.com"})

	req := httptest.NewRequest("GET", "/auth/me", nil)
	tampered := w.Result().Cookies()[0]
	tampered.Value += "x"
	req.AddCookie(tampered)

	if _, ok := m.ForRequest(httptest.NewRecorder(), req).Identity(); ok {
		t.Fatalf("expected tampered cookie to be rejected")
	}
}

func TestIdentityRejectsForeignSecret(t *testing.T) {
	issuer := newTestManager(t)
	w := httptest.NewRecorder()
	issuer.ForRequest(w, httptest.NewRequest("POST", "/auth/login", nil)).Bind(types.User{ID: uuid.New(), Email: "a@x.com"})

	other, err := NewManager("different-secret")
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, ok := other.ForRequest(httptest.NewRecorder(), requestWithCookies(w)).Identity(); ok {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestIdentityRejectsExpiredToken(t *testing.T) {
	m := newTestManager(t)
	m.ttl = -time.Minute

	w := httptest.NewRecorder()
	m.ForRequest(w, httptest.NewRequest("POST", "/auth/login", nil)).Bind(types.User{ID: uuid.New(), Email: "a@x.com"})

	if _, ok := m.ForRequest(httptest.NewRecorder(), requestWithCookies(w)).Identity(); ok {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestClearExpiresCookie(t *testing.T) {
	m := newTestManager(t)
	w := httptest.NewRecorder()
	m.ForRequest(w, httptest.NewRequest("POST", "/auth/logout", nil)).Clear()

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	if cookies[0].Value != "" || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected cleared cookie, got %+v", cookies[0])
	}
}
