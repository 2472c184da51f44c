// Package session binds HTTP requests to an account identity through a
// signed, tamper-evident cookie. The cookie carries an HS256 JWT with
// the account id as subject plus an email claim; no server-side session
// state exists.
package session

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/authcore/apiserver/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTTL = 24 * time.Hour

// Identity is the account binding carried by a session cookie.
type Identity struct {
	AccountID uuid.UUID
	Email     string
}

// Manager signs and validates session cookies.
type Manager struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

func WithCookieName(name string) Option {
	return func(m *Manager) { m.cookieName = name }
}

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func NewManager(secret string, opts ...Option) (*Manager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session secret is required")
	}
	m := &Manager{
		secret:     []byte(secret),
		cookieName: "session",
		ttl:        defaultTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// CookieName returns the configured cookie name.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// ForRequest returns the per-request session binding. Handlers inject
// it into the auth service; nothing else reads or writes the cookie.
func (m *Manager) ForRequest(w http.ResponseWriter, r *http.Request) *Binding {
	return &Binding{manager: m, w: w, r: r}
}

// Binding is the per-request view of the session: the identity read
// from the inbound cookie and the ability to set or clear the outbound
// one.
type Binding struct {
	manager *Manager
	w       http.ResponseWriter
	r       *http.Request
}

// Bind sets the outgoing session cookie to the given account.
func (b *Binding) Bind(user types.User) {
	token, err := b.manager.sign(Identity{AccountID: user.ID, Email: user.Email})
	if err != nil {
		return
	}
	http.SetCookie(b.w, &http.Cookie{
		Name:     b.manager.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(b.manager.ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Identity reads the bound identity from the request cookie. A missing,
// garbled, expired, or otherwise invalid cookie yields ok == false.
func (b *Binding) Identity() (Identity, bool) {
	cookie, err := b.r.Cookie(b.manager.cookieName)
	if err != nil || cookie.Value == "" {
		return Identity{}, false
	}
	id, err := b.manager.parse(cookie.Value)
	if err != nil {
		return Identity{}, false
	}
	return id, true
}

// Clear expires the session cookie. Always succeeds.
func (b *Binding) Clear() {
	http.SetCookie(b.w, &http.Cookie{
		Name:     b.manager.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (m *Manager) sign(id Identity) (string, error) {
	now := time.Now().UTC()
	claims := sessionClaims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.AccountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *Manager) parse(tokenString string) (Identity, error) {
	claims := sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, errors.New("invalid token")
	}
	accountID, err := uuid.Parse(strings.TrimSpace(claims.Subject))
	if err != nil {
		return Identity{}, errors.New("invalid subject")
	}
	return Identity{AccountID: accountID, Email: claims.Email}, nil
}
