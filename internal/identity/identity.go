// Package identity authenticates accounts by email and password, issues
// session tokens, and notifies listeners when accounts and sessions change.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/depot/internal/auth"
	"github.com/erazemk/depot/internal/model"
	"github.com/erazemk/depot/internal/store"
)

// Errors surfaced to people signing in or up.
var (
	ErrInvalidCredential = errors.New("invalid email or password")
	ErrAccountNotFound   = errors.New("account not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrWeakPassword      = errors.New("password must be at least 8 characters")
	ErrUnauthenticated   = errors.New("not authenticated")
)

// Hook runs after an account is created or deleted.
type Hook func(ctx context.Context, acct *model.Account) error

// Provider is the identity provider backed by the accounts table.
type Provider struct {
	DB       *sql.DB
	Secret   string
	TokenTTL time.Duration

	mu       sync.Mutex
	onCreate []Hook
	onDelete []Hook
	subs     map[int]chan SessionEvent
	nextSub  int
}

// New creates a provider that signs session tokens with secret.
func New(db *sql.DB, secret string, tokenTTL time.Duration) *Provider {
	return &Provider{
		DB:       db,
		Secret:   secret,
		TokenTTL: tokenTTL,
		subs:     make(map[int]chan SessionEvent),
	}
}

// OnCreate registers a hook run after every account creation.
func (p *Provider) OnCreate(h Hook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onCreate = append(p.onCreate, h)
}

// OnDelete registers a hook run after every account deletion.
func (p *Provider) OnDelete(h Hook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onDelete = append(p.onDelete, h)
}

func (p *Provider) hooks(create bool) []Hook {
	p.mu.Lock()
	defer p.mu.Unlock()
	if create {
		return append([]Hook(nil), p.onCreate...)
	}
	return append([]Hook(nil), p.onDelete...)
}

// SignUp creates an account. If a create hook fails the account is
// removed again so no half-registered account remains.
func (p *Provider) SignUp(ctx context.Context, email, password, displayName string) (*model.Account, error) {
	email = model.NormalizeEmail(email)
	if err := model.ValidateEmail(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if err := model.ValidatePassword(password); err != nil {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	acct, err := store.CreateAccount(ctx, p.DB, email, string(hash), displayName)
	if errors.Is(err, store.ErrDuplicateEmail) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}

	for _, h := range p.hooks(true) {
		if err := h(ctx, acct); err != nil {
			if delErr := store.DeleteAccount(ctx, p.DB, acct.ID); delErr != nil {
				slog.Error("failed to roll back account", "account", acct.ID, "error", delErr)
			}
			return nil, fmt.Errorf("running account create hook: %w", err)
		}
	}

	slog.Info("account created", "account", acct.ID, "email", acct.Email)
	return acct, nil
}

// SignIn checks credentials and returns a signed session token.
func (p *Provider) SignIn(ctx context.Context, email, password string) (string, *model.Account, error) {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, ErrInvalidCredential
	}

	acct, err := store.GetAccountByEmail(ctx, p.DB, email)
	if err != nil {
		return "", nil, err
	}
	if acct == nil {
		return "", nil, ErrAccountNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredential
	}

	token, _, err := auth.GenerateToken(p.Secret, acct.ID, acct.Email, p.TokenTTL)
	if err != nil {
		return "", nil, err
	}

	p.publish(SessionEvent{Kind: SignedIn, UserID: acct.ID, At: time.Now()})
	return token, acct, nil
}

// SignOut revokes a session token. Signing out an invalid token is a no-op.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	claims, err := auth.ValidateToken(p.Secret, token)
	if err != nil {
		return nil
	}

	expiresAt := time.Now().Add(auth.TokenExpiry)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := store.RevokeToken(ctx, p.DB, claims.ID, expiresAt); err != nil {
		return err
	}

	p.publish(SessionEvent{Kind: SignedOut, UserID: claims.UserID, At: time.Now()})
	return nil
}

// CurrentUser returns the account behind a token, or nil when the token
// is missing, invalid, revoked, or its account no longer exists.
func (p *Provider) CurrentUser(ctx context.Context, token string) (*model.Account, error) {
	_, acct, err := p.claims(ctx, token)
	if errors.Is(err, ErrUnauthenticated) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// Session resolves a token into the session used for authorization. Both
// the account and its user record must exist. The role comes from the
// user directory, not from the token.
func (p *Provider) Session(ctx context.Context, token string) (model.Session, *auth.Claims, error) {
	claims, _, err := p.claims(ctx, token)
	if err != nil {
		return model.Session{}, nil, err
	}

	user, err := store.GetUser(ctx, p.DB, claims.UserID)
	if err != nil {
		return model.Session{}, nil, err
	}
	if user == nil {
		return model.Session{}, nil, ErrUnauthenticated
	}

	return model.Session{UserID: user.ID, Role: user.Role}, claims, nil
}

// claims validates a token and loads the account it was issued to.
func (p *Provider) claims(ctx context.Context, token string) (*auth.Claims, *model.Account, error) {
	if token == "" {
		return nil, nil, ErrUnauthenticated
	}
	claims, err := auth.ValidateToken(p.Secret, token)
	if err != nil {
		return nil, nil, ErrUnauthenticated
	}
	revoked, err := store.IsTokenRevoked(ctx, p.DB, claims.ID)
	if err != nil {
		return nil, nil, err
	}
	if revoked {
		return nil, nil, ErrUnauthenticated
	}
	acct, err := store.GetAccount(ctx, p.DB, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	if acct == nil {
		return nil, nil, ErrUnauthenticated
	}
	return claims, acct, nil
}

// ChangePassword replaces an account's password after checking the
// current one.
func (p *Provider) ChangePassword(ctx context.Context, id, current, next string) error {
	acct, err := store.GetAccount(ctx, p.DB, id)
	if err != nil {
		return err
	}
	if acct == nil {
		return ErrAccountNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredential
	}
	if err := model.ValidatePassword(next); err != nil {
		return ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return store.UpdateAccountPassword(ctx, p.DB, id, string(hash))
}

// DeleteAccount removes an account and runs the delete hooks. Hook
// failures are logged; the account stays deleted.
func (p *Provider) DeleteAccount(ctx context.Context, id string) error {
	acct, err := store.GetAccount(ctx, p.DB, id)
	if err != nil {
		return err
	}
	if acct == nil {
		return ErrAccountNotFound
	}

	if err := store.DeleteAccount(ctx, p.DB, id); err != nil {
		return err
	}

	var hookErrs []error
	for _, h := range p.hooks(false) {
		if err := h(ctx, acct); err != nil {
			slog.Error("account delete hook failed", "account", id, "error", err)
			hookErrs = append(hookErrs, err)
		}
	}

	slog.Info("account deleted", "account", id, "email", acct.Email)
	p.publish(SessionEvent{Kind: Deleted, UserID: id, At: time.Now()})
	return errors.Join(hookErrs...)
}
