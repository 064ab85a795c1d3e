package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"seclock.org/internal/audit"
)

// Service ties the credential store, the token signer and the audit trail
// together. It is the only path that mutates a user's active-session fields.
type Service struct {
	store  Store
	tokens *Tokens
	trail  audit.Store
	now    func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithServiceClock overrides the time source (useful for tests).
func WithServiceClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the session and access-control service.
func NewService(store Store, tokens *Tokens, trail audit.Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token signer is required")
	}
	if trail == nil {
		return nil, errors.New("auth: audit store is required")
	}
	s := &Service{store: store, tokens: tokens, trail: trail, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a user on the bootstrap "default" tier, hashes the
// password, and issues the first session token.
func (s *Service) Register(ctx context.Context, login, password, email, displayName string) (*User, string, error) {
	login = strings.TrimSpace(login)
	email = strings.TrimSpace(strings.ToLower(email))
	displayName = strings.TrimSpace(displayName)
	if login == "" || password == "" || email == "" {
		return nil, "", fmt.Errorf("%w: login, password and email are required", ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return nil, "", fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	priv, err := s.store.EnsurePrivilege(ctx, PrivilegeDefault, "Default privilege for new users")
	if err != nil {
		return nil, "", err
	}

	u := &User{
		Login:        login,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		Privilege:    priv.Name,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, "", err
	}

	token, err := s.issue(ctx, u)
	if err != nil {
		return nil, "", err
	}
	s.record(ctx, &u.ID, audit.ActionCreate, map[string]any{"login": u.Login})
	return u, token, nil
}

// Login verifies credentials and rotates the active session. Unknown logins
// and wrong passwords are indistinguishable to the caller but both leave a
// LOGIN_FAILED entry in the trail.
func (s *Service) Login(ctx context.Context, login, password string) (string, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return "", fmt.Errorf("%w: login and password are required", ErrInvalidInput)
	}
	u, err := s.store.FindUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.record(ctx, nil, audit.ActionLoginFailed, map[string]any{"login": login})
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if err := VerifyPassword(u.PasswordHash, password); err != nil {
		s.record(ctx, &u.ID, audit.ActionLoginFailed, map[string]any{"login": login})
		return "", ErrInvalidCredentials
	}
	token, err := s.issue(ctx, u)
	if err != nil {
		return "", err
	}
	s.record(ctx, &u.ID, audit.ActionLogin, nil)
	return token, nil
}

// Refresh exchanges a presented token for a fresh one. The presented token is
// decoded ignoring its embedded expiry, but must equal the store's recorded
// active token: once a later login has overwritten it, refresh fails even for
// a cryptographically sound token.
func (s *Service) Refresh(ctx context.Context, presented string) (string, error) {
	claims, err := s.tokens.ParseIgnoringExpiry(presented)
	if err != nil {
		return "", err
	}
	u, err := s.store.FindUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	if u.Token == nil || *u.Token != presented {
		return "", ErrTokenRevoked
	}
	return s.issue(ctx, u)
}

// Authenticate runs the two-stage check: cryptographic validity first, then
// the statefulness cross-check against the recorded active session.
func (s *Service) Authenticate(ctx context.Context, token string) (Identity, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Identity{}, err
	}
	u, err := s.store.FindUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, ErrInvalidToken
		}
		return Identity{}, err
	}
	if u.Token == nil || u.TokenExpiry == nil || *u.Token != token {
		return Identity{}, ErrTokenRevoked
	}
	if !s.now().UTC().Before(*u.TokenExpiry) {
		return Identity{}, ErrTokenRevoked
	}
	return Identity{
		UserID:    u.ID,
		Login:     u.Login,
		Email:     u.Email,
		Privilege: u.Privilege,
	}, nil
}

// Validate answers only whether a token would authenticate.
func (s *Service) Validate(ctx context.Context, token string) bool {
	_, err := s.Authenticate(ctx, token)
	return err == nil
}

// DeleteUser removes an account. Admin only. Log entries referencing the user
// survive with their user reference degraded to null.
func (s *Service) DeleteUser(ctx context.Context, actor Identity, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if !strings.EqualFold(actor.Privilege, PrivilegeAdmin) {
		return ErrDenied
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.record(ctx, &actor.UserID, audit.ActionDelete, map[string]any{"user_id": userID})
	return nil
}

// issue signs a fresh token and persists it as the sole active session.
func (s *Service) issue(ctx context.Context, u *User) (string, error) {
	token, expiresAt, err := s.tokens.Issue(u)
	if err != nil {
		return "", err
	}
	if err := s.store.SetActiveToken(ctx, u.ID, token, expiresAt); err != nil {
		return "", err
	}
	u.Token = &token
	u.TokenExpiry = &expiresAt
	return token, nil
}

// record appends a trail entry; authentication events are not part of a
// storage transaction, so a trail failure is logged and swallowed rather than
// failing the request.
func (s *Service) record(ctx context.Context, userID *string, action audit.Action, detail map[string]any) {
	err := s.trail.Append(ctx, &audit.Entry{
		UserID:     userID,
		Action:     action,
		Detail:     detail,
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		_ = audit.LogEvent(ctx, "audit.append_failed", map[string]any{"error": err.Error()})
	}
}
