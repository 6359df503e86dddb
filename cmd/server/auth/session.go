// Package auth manages the session cookie: who is logged in and with
// what role. Passcode verification itself lives in the login handler.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

const (
	SessionName       = "reframe_session"
	UserIDKey         = "user_id"
	UsernameKey       = "username"
	RoleKey           = "role"
	SessionCreatedKey = "created_at"
)

var ErrNotAuthenticated = errors.New("not authenticated")

type SessionManager struct {
	store *sessions.CookieStore
}

func NewSessionManager(secret string) *SessionManager {
	if secret == "" {
		secret = generateSecret()
		slog.Warn("SESSION_SECRET not set; sessions will not survive a restart")
	}
	return &SessionManager{
		store: sessions.NewCookieStore([]byte(secret)),
	}
}

func generateSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.StdEncoding.EncodeToString(b)
}

func (sm *SessionManager) SaveSession(w http.ResponseWriter, r *http.Request, userID, username, role string) error {
	session, _ := sm.store.Get(r, SessionName)
	session.Values[UserIDKey] = userID
	session.Values[UsernameKey] = username
	session.Values[RoleKey] = role
	session.Values[SessionCreatedKey] = time.Now().Unix()

	isHTTPS := r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"

	session.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   isHTTPS,
	}

	return session.Save(r, w)
}

func (sm *SessionManager) GetSession(r *http.Request) (userID, username string, err error) {
	session, err := sm.store.Get(r, SessionName)
	if err != nil {
		_, cookieErr := r.Cookie(SessionName)
		slog.Warn("failed to decode session", "error", err, "host", r.Host, "has_cookie", cookieErr == nil)
		return "", "", err
	}

	uid, ok := session.Values[UserIDKey].(string)
	if !ok || uid == "" {
		return "", "", ErrNotAuthenticated
	}
	uname, ok := session.Values[UsernameKey].(string)
	if !ok {
		return "", "", ErrNotAuthenticated
	}

	return uid, uname, nil
}

// GetRole reads the stored role from the session cookie. Returns the
// empty string when the session is missing or invalid.
func (sm *SessionManager) GetRole(r *http.Request) string {
	session, err := sm.store.Get(r, SessionName)
	if err != nil {
		return ""
	}

	role, ok := session.Values[RoleKey].(string)
	if !ok {
		return ""
	}
	switch role {
	case "admin", "user":
		return role
	default:
		return ""
	}
}

func (sm *SessionManager) IsAuthenticated(r *http.Request) bool {
	_, _, err := sm.GetSession(r)
	return err == nil
}

func (sm *SessionManager) ClearSession(w http.ResponseWriter, r *http.Request) error {
	session, _ := sm.store.Get(r, SessionName)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
