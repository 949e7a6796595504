package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
)

// UserService orchestrates validation, authorization, and persistence for users.
type UserService struct {
	workspace   *Workspace
	idGenerator func() string
	audit       auditRecorder
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(workspace *Workspace, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(workspace, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specified logger.
func NewUserServiceWithLogger(workspace *Workspace, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		workspace:   workspace,
		idGenerator: idGenerator,
		audit:       auditRecorder{idGenerator: idGenerator, now: now},
		validate:    newValidator(),
		logger:      defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, principal Principal, attrs ...any) *slog.Logger {
	pairs := append([]any{"principal_id", principal.UserID}, attrs...)
	return serviceLogger(ctx, s.logger, "UserService", operation, pairs...)
}

// ListUsers returns all users in list order for administrators.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if !principal.IsAdmin() {
		return nil, ErrUnauthorized
	}
	if s.workspace == nil {
		return nil, fmt.Errorf("workspace not configured")
	}
	return s.workspace.Snapshot().Users, nil
}

// AddUser validates input and appends a new user for administrators. An empty
// role defaults to Viewer.
func (s *UserService) AddUser(ctx context.Context, principal Principal, input UserInput) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "AddUser", principal, "username", input.Username)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "failed to add user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user added")
	}()

	if !principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}
	if s.workspace == nil {
		err = fmt.Errorf("workspace not configured")
		return
	}
	if err = validationErrorFrom(s.validate.Struct(input)); err != nil {
		return
	}

	role := input.Role
	if role == "" {
		role = RoleViewer
	}
	candidate := User{
		ID:          s.idGenerator(),
		Username:    input.Username,
		Password:    input.Password,
		DisplayName: input.DisplayName,
		Role:        role,
	}

	err = s.workspace.Update(ctx, func(st *State) error {
		for _, existing := range st.Users {
			if existing.Username == candidate.Username {
				return ErrDuplicateUsername
			}
		}
		st.Users = append(st.Users, candidate)
		st.Audit = prependAudit(st.Audit, s.audit.entry(AddedMemberAction(candidate.Username), principal.Username))
		return nil
	})
	if err != nil {
		return
	}
	user = candidate
	return
}

// DeleteUser removes a user for administrators once confirmed. The seeded
// user, unknown ids and declined confirmations are silent no-ops.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID string, confirm Confirmer) (err error) {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteUser", principal, "user_id", userID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "failed to delete user", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if !principal.IsAdmin() {
		return ErrUnauthorized
	}
	if s.workspace == nil {
		return fmt.Errorf("workspace not configured")
	}

	target, _, ok := s.workspace.Snapshot().findUser(userID)
	if !ok || target.IsDefault {
		logger.DebugContext(ctx, "delete skipped", "found", ok)
		return nil
	}
	if !confirmed(ctx, confirm, fmt.Sprintf("Delete team member %s?", target.Username)) {
		logger.InfoContext(ctx, "delete declined")
		return nil
	}

	removed := false
	err = s.workspace.Update(ctx, func(st *State) error {
		current, idx, ok := st.findUser(userID)
		if !ok || current.IsDefault {
			return nil
		}
		st.Users = append(st.Users[:idx], st.Users[idx+1:]...)
		st.Audit = prependAudit(st.Audit, s.audit.entry(DeletedMemberAction(current.Username), principal.Username))
		removed = true
		return nil
	})
	if err == nil && removed {
		logger.InfoContext(ctx, "user deleted")
	}
	return err
}
