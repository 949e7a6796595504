package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// AuthService checks credentials against the stored user list and tracks the
// single active session.
type AuthService struct {
	workspace      *Workspace
	tokenGenerator func() string
	audit          auditRecorder
	now            func() time.Time
	logger         *slog.Logger

	mu      sync.Mutex
	session *Session
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(workspace *Workspace, tokenGenerator, idGenerator func() string, now func() time.Time) *AuthService {
	return NewAuthServiceWithLogger(workspace, tokenGenerator, idGenerator, now, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(workspace *Workspace, tokenGenerator, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AuthService {
	if tokenGenerator == nil {
		tokenGenerator = func() string { return "" }
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		workspace:      workspace,
		tokenGenerator: tokenGenerator,
		audit:          auditRecorder{idGenerator: idGenerator, now: now},
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Login succeeds iff a user with exactly matching username and password exists.
// A successful login replaces any previous session.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (result LoginResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.workspace == nil {
		err = fmt.Errorf("workspace not configured")
		return
	}

	logger := s.loggerWith(ctx, "Login", "username", params.Username)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", result.User.ID).InfoContext(ctx, "login succeeded")
	}()

	token := s.tokenGenerator()
	if strings.TrimSpace(token) == "" {
		err = fmt.Errorf("token generator returned an empty token")
		return
	}

	var user User
	err = s.workspace.Update(ctx, func(st *State) error {
		for _, u := range st.Users {
			if u.Username == params.Username && u.Password == params.Password {
				user = u
				st.Audit = prependAudit(st.Audit, s.audit.entry(ActionLogin, u.Username))
				return nil
			}
		}
		return ErrInvalidCredentials
	})
	if err != nil {
		return
	}

	session := Session{Token: token, UserID: user.ID, CreatedAt: s.now()}
	s.mu.Lock()
	s.session = &session
	s.mu.Unlock()

	result = LoginResult{Session: session, User: user}
	return
}

// Logout ends the session identified by token.
func (s *AuthService) Logout(ctx context.Context, token string) (err error) {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}

	logger := s.loggerWith(ctx, "Logout")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "logout failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "logout succeeded")
	}()

	principal, err := s.ValidateSession(ctx, token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.session != nil && s.session.Token == strings.TrimSpace(token) {
		s.session = nil
	}
	s.mu.Unlock()

	return s.workspace.Update(ctx, func(st *State) error {
		st.Audit = prependAudit(st.Audit, s.audit.entry(ActionLogout, principal.Username))
		return nil
	})
}

// ValidateSession resolves the principal behind token. The user must still be
// present in the user list.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (Principal, error) {
	if s == nil {
		return Principal{}, fmt.Errorf("AuthService is nil")
	}
	if s.workspace == nil {
		return Principal{}, fmt.Errorf("workspace not configured")
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Principal{}, ErrNotAuthenticated
	}

	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session == nil || session.Token != trimmed {
		return Principal{}, ErrNotAuthenticated
	}

	user, _, ok := s.workspace.Snapshot().findUser(session.UserID)
	if !ok {
		s.loggerWith(ctx, "ValidateSession", "user_id", session.UserID).
			InfoContext(ctx, "session user no longer exists")
		return Principal{}, ErrNotAuthenticated
	}
	return user.Principal(), nil
}

// ActiveSession returns the current session, if any.
func (s *AuthService) ActiveSession() (Session, bool) {
	if s == nil {
		return Session{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return Session{}, false
	}
	return *s.session, true
}

// EndAllSessions discards the active session without auditing.
func (s *AuthService) EndAllSessions() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
}
