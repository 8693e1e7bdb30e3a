package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lgcms/internal/apperr"
	"lgcms/internal/config"
	"lgcms/internal/ids"
	"lgcms/internal/models"
	"lgcms/internal/repository"
	"lgcms/internal/security"
	"lgcms/internal/session"
)

var (
	ErrInvalidCredentials = apperr.New(apperr.KindUnauthorized, "invalid credentials")
	ErrStaffOnly          = apperr.Forbidden("access denied, staff and admin accounts only")
)

type AuthService struct {
	users     UserStore
	authority *session.Authority
	cfg       *config.AppConfig
	log       zerolog.Logger
	now       func() time.Time
}

func NewAuthService(users UserStore, authority *session.Authority, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		authority: authority,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

type AuthResult struct {
	Token session.Token
	User  models.User
}

type RegisterInput struct {
	Username string
	Email    string
	FullName string
	Password string
}

// Register creates a citizen account and signs it in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	user, err := s.createUser(ctx, input.Username, input.Email, input.FullName, input.Password, models.RoleCitizen, nil)
	if err != nil {
		return AuthResult{}, err
	}
	return s.issue(user)
}

type LoginInput struct {
	Identifier string
	Password   string
	// Roles, when set, restricts which accounts may sign in through this path.
	Roles []models.Role
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	user, err := s.users.FindByIdentifier(ctx, strings.TrimSpace(input.Identifier))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, storeError("find user", err)
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("password hash unreadable")
		return AuthResult{}, ErrInvalidCredentials
	}
	if !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	if len(input.Roles) > 0 && !roleIn(user.Role, input.Roles) {
		return AuthResult{}, ErrStaffOnly
	}

	if security.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user.ID, input.Password)
	}

	return s.issue(user)
}

// Logout revokes the presented token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	return s.authority.Revoke(ctx, rawToken)
}

func (s *AuthService) Me(ctx context.Context, identity models.Identity) (models.User, error) {
	user, err := s.users.GetByID(ctx, identity.ID)
	if err != nil {
		return models.User{}, storeError("get user", err)
	}
	return user, nil
}

type CreateStaffInput struct {
	Username     string
	Email        string
	FullName     string
	Password     string
	Role         string
	DepartmentID string
}

// CreateStaff lets an admin open a staff or admin account. Staff accounts must
// belong to an existing department.
func (s *AuthService) CreateStaff(ctx context.Context, actor models.Identity, input CreateStaffInput) (models.User, error) {
	if actor.Role != models.RoleAdmin {
		return models.User{}, apperr.Forbidden("only admins can create staff accounts")
	}

	role, ok := models.ParseRole(strings.TrimSpace(input.Role))
	if !ok || !role.CanHandleComplaints() {
		return models.User{}, apperr.Validation("role must be staff or admin")
	}

	var department *string
	if dept := strings.TrimSpace(input.DepartmentID); dept != "" {
		department = &dept
	}
	if role == models.RoleStaff {
		if department == nil {
			return models.User{}, apperr.Validation("department is required for staff accounts")
		}
		exists, err := s.users.DepartmentExists(ctx, *department)
		if err != nil {
			return models.User{}, storeError("check department", err)
		}
		if !exists {
			return models.User{}, apperr.Validation("department does not exist")
		}
	}

	return s.createUser(ctx, input.Username, input.Email, input.FullName, input.Password, role, department)
}

func (s *AuthService) createUser(ctx context.Context, username, email, fullName, password string, role models.Role, department *string) (models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || email == "" || password == "" {
		return models.User{}, apperr.Validation("username, email and password are required")
	}
	if len(password) < 8 {
		return models.User{}, apperr.Validation("password must be at least 8 characters")
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	now := s.now()
	user := models.User{
		ID:           ids.New(),
		Username:     username,
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
		Role:         role,
		DepartmentID: department,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.User{}, apperr.New(apperr.KindConflict, "email or username already registered")
		}
		return models.User{}, storeError("create user", err)
	}
	return user, nil
}

func (s *AuthService) issue(user models.User) (AuthResult, error) {
	token, err := s.authority.Issue(user.Identity())
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) upgradeHash(ctx context.Context, userID, password string) {
	hash, err := security.HashPassword(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, userID, hash)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("password rehash failed")
	}
}

func roleIn(role models.Role, roles []models.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
