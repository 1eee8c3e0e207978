// Package auth binds customer and admin identities to the browser session
// and guards the routes that need them.
package auth

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"github.com/ahmedandnoor/HappyClothify/internal/models"
)

const (
	SessionName = "happyclothify-session"

	keyUser  = "user"
	keyAdmin = "admin"

	CustomerLoginPath = "/login"
	AdminLoginPath    = "/admin/login"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

func init() {
	gob.Register(models.User{})
}

// UserFinder looks a user up by exact username and password.
type UserFinder interface {
	FindUser(ctx context.Context, username, password string) (*models.User, error)
}

type Gate struct {
	users     UserFinder
	sessions  sessions.Store
	adminHash []byte
}

// NewGate hashes adminPassword unless a bcrypt adminHash is given, in which
// case the hash is used as is.
func NewGate(users UserFinder, store sessions.Store, adminPassword, adminHash string) (*Gate, error) {
	hash := []byte(adminHash)
	if adminHash == "" {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("admin password hash: %w", err)
	}
	return &Gate{users: users, sessions: store, adminHash: hash}, nil
}

// Session returns the shared browser session. A cookie that no longer
// decodes yields a fresh session rather than an error.
func (g *Gate) Session(r *http.Request) *sessions.Session {
	session, err := g.sessions.Get(r, SessionName)
	if err != nil {
		slog.Debug("Discarding undecodable session cookie", "error", err)
	}
	return session
}

// Login checks the credentials without saying which one was wrong.
func (g *Gate) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := g.users.FindUser(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (g *Gate) AdminLogin(password string) error {
	if err := bcrypt.CompareHashAndPassword(g.adminHash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Bind stores the full user record in the session.
func (g *Gate) Bind(w http.ResponseWriter, r *http.Request, user models.User) error {
	session := g.Session(r)
	session.Values[keyUser] = user
	return session.Save(r, w)
}

func (g *Gate) BindAdmin(w http.ResponseWriter, r *http.Request) error {
	session := g.Session(r)
	session.Values[keyAdmin] = true
	return session.Save(r, w)
}

// Logout drops both identities.
func (g *Gate) Logout(w http.ResponseWriter, r *http.Request) error {
	session := g.Session(r)
	delete(session.Values, keyUser)
	delete(session.Values, keyAdmin)
	return session.Save(r, w)
}

func identityFromSession(session *sessions.Session) models.Identity {
	var id models.Identity
	if u, ok := session.Values[keyUser].(models.User); ok {
		id.Customer = &u
	}
	if admin, ok := session.Values[keyAdmin].(bool); ok && admin {
		id.Admin = true
	}
	return id
}

type identityKey struct{}

// Middleware resolves the session identity once per request and carries it
// on the request context.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := identityFromSession(g.Session(r))
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) models.Identity {
	id, _ := ctx.Value(identityKey{}).(models.Identity)
	return id
}

// Identity prefers the value set by Middleware and falls back to reading the
// session directly.
func (g *Gate) Identity(r *http.Request) models.Identity {
	if id, ok := r.Context().Value(identityKey{}).(models.Identity); ok {
		return id
	}
	return identityFromSession(g.Session(r))
}

// RequireCustomer redirects to the customer login page when no customer is
// bound. Any checkout progress is lost.
func (g *Gate) RequireCustomer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := g.Identity(r)
		if id.Customer == nil {
			slog.Info("RequireCustomer: not logged in, redirecting", "path", r.URL.Path)
			http.Redirect(w, r, CustomerLoginPath, http.StatusSeeOther)
			return
		}
		next(w, r.WithContext(WithIdentity(r.Context(), id)))
	}
}

// RequireAdmin redirects to the admin login page unless the admin flag is set.
func (g *Gate) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := g.Identity(r)
		if !id.Admin {
			slog.Info("RequireAdmin: not authenticated, redirecting", "path", r.URL.Path)
			http.Redirect(w, r, AdminLoginPath, http.StatusSeeOther)
			return
		}
		next(w, r.WithContext(WithIdentity(r.Context(), id)))
	}
}
