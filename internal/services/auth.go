package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/charismamove/apiserver/config"
	"github.com/charismamove/apiserver/internal/auth"
	"github.com/charismamove/apiserver/internal/logging"
	"github.com/charismamove/apiserver/internal/metrics"
	"github.com/charismamove/apiserver/internal/store"
	"github.com/charismamove/apiserver/types"
)

// Registration holds the fields accepted when creating an account.
type Registration struct {
	Name      string
	FirstName *string
	Gender    *string
	Email     string
	Password  string
	Phone     *string
}

// Session is the result of a successful login.
type Session struct {
	Token string
	User  types.User
}

// AuthService registers accounts and exchanges credentials for tokens.
type AuthService struct {
	users  UserRepository
	issuer *auth.Issuer
	log    *logrus.Entry
}

func NewAuthService(users UserRepository, issuer *auth.Issuer) *AuthService {
	return &AuthService{users: users, issuer: issuer, log: logging.Component("auth")}
}

// Register creates a non-admin account. A taken email yields
// store.ErrDuplicate, whether detected up front or by the unique index.
func (s *AuthService) Register(ctx context.Context, reg Registration) (types.User, error) {
	email := normalizeEmail(reg.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return types.User{}, store.ErrDuplicate
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.users.Create(ctx, types.User{
		Name:         strings.TrimSpace(reg.Name),
		FirstName:    reg.FirstName,
		Gender:       reg.Gender,
		Email:        email,
		PasswordHash: hash,
		Phone:        reg.Phone,
	})
	if err != nil {
		return types.User{}, err
	}

	metrics.IncRegistration()
	return user, nil
}

// Login verifies credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	session, err := s.login(ctx, email, password)
	metrics.IncLogin("user", loginResult(err))
	return session, err
}

// AdminLogin is Login restricted to accounts with the admin flag.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (Session, error) {
	user, err := s.verify(ctx, email, password)
	if err == nil && !user.IsAdmin {
		err = ErrNotAdmin
	}
	if err != nil {
		metrics.IncLogin("admin", loginResult(err))
		return Session{}, err
	}

	token, err := s.issuer.Issue(user)
	if err != nil {
		return Session{}, err
	}
	metrics.IncLogin("admin", "success")
	return Session{Token: token, User: user}, nil
}

// Authenticate resolves a bearer token into a principal.
func (s *AuthService) Authenticate(token string) (types.Principal, error) {
	return s.issuer.Parse(token)
}

// BootstrapAdmin creates the configured admin account when no admin exists.
// It reports whether an account was created.
func (s *AuthService) BootstrapAdmin(ctx context.Context, cfg config.AdminConfig) (bool, error) {
	count, err := s.users.CountAdmins(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hash, err := auth.HashPassword(cfg.Password)
	if err != nil {
		return false, err
	}

	admin := types.User{
		Name:         cfg.Name,
		Email:        normalizeEmail(cfg.Email),
		PasswordHash: hash,
		IsAdmin:      true,
	}
	if phone := strings.TrimSpace(cfg.Phone); phone != "" {
		admin.Phone = &phone
	}

	if _, err := s.users.Create(ctx, admin); err != nil {
		return false, err
	}
	s.log.WithField("email", admin.Email).Info("admin account created")
	return true, nil
}

func (s *AuthService) login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.verify(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	token, err := s.issuer.Issue(user)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user}, nil
}

func (s *AuthService) verify(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func loginResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrNotAdmin):
		return "rejected"
	default:
		return "error"
	}
}
