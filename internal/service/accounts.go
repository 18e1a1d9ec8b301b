package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/safar/framely/internal/auth"
	"github.com/safar/framely/internal/database"
	"github.com/safar/framely/internal/logging"
	"github.com/safar/framely/internal/models"
	"go.uber.org/zap"
)

var validate = validator.New()

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

type TokenIssuer interface {
	Issue(caller auth.Caller) (auth.IssuedToken, error)
}

type RegisterInput struct {
	FullName    string
	Email       string
	Password    string
	PhoneNumber string
}

type LoginResult struct {
	UserID    string    `json:"userId"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AdminSeed describes the account EnsureAdmin provisions.
type AdminSeed struct {
	Email    string
	Password string
	FullName string
}

type AuthService struct {
	users  UserRepository
	tokens TokenIssuer
}

func NewAuthService(users UserRepository, tokens TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Register creates a USER account.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	var v violations
	fullName := strings.TrimSpace(input.FullName)
	if n := utf8.RuneCountInString(fullName); n < 3 || n > 50 {
		v.add("full name must be between 3 and 50 characters")
	}
	email := strings.TrimSpace(input.Email)
	if err := validate.Var(email, "required,email"); err != nil {
		v.add("a valid email is required")
	}
	phone := strings.TrimSpace(input.PhoneNumber)
	if err := validate.Var(phone, "omitempty,min=7,max=20"); err != nil {
		v.add("invalid phone number format")
	}
	for _, p := range auth.PasswordViolations(input.Password) {
		v.add("%s", p)
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, invalid("Email is already registered.")
	} else if !errors.Is(err, database.ErrUserNotFound) {
		return nil, fmt.Errorf("look up user: %w", err)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		PhoneNumber:  phone,
		Role:         models.RoleUser,
	})
	if err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			return nil, invalid("Email is already registered.")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	logging.FromContext(ctx).Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login exchanges credentials for an access token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var v violations
	if strings.TrimSpace(email) == "" {
		v.add("email is required")
	}
	if password == "" {
		v.add("password is required")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, newError(ErrUnauthorized, "Invalid email or password")
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		logging.FromContext(ctx).Info("login rejected", zap.String("user_id", user.ID))
		return nil, newError(ErrUnauthorized, "Invalid email or password")
	}

	role := strings.ToUpper(user.Role)
	if role == "" {
		role = models.RoleUser
	}

	issued, err := s.tokens.Issue(auth.Caller{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.FullName,
		Role:   role,
	})
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		UserID:    user.ID,
		FullName:  user.FullName,
		Email:     user.Email,
		Role:      role,
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
	}, nil
}

// ChangeAdminPassword replaces the calling admin's password after checking
// the current one.
func (s *AuthService) ChangeAdminPassword(ctx context.Context, caller *auth.Caller, current, next string) error {
	if err := Authorize(caller, RequireAdmin()); err != nil {
		return err
	}

	user, err := s.users.GetUser(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return newError(ErrUnauthorized, "Admin user not found")
		}
		return fmt.Errorf("get user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, current) {
		return invalid("Current password is incorrect")
	}
	if violations := auth.PasswordViolations(next); len(violations) > 0 {
		return invalid(violations...)
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	logging.FromContext(ctx).Info("admin password changed", zap.String("user_id", user.ID))
	return nil
}

// EnsureAdmin creates the seed admin unless an account with that email
// already exists. It is safe to call on every start and from several
// instances at once.
func (s *AuthService) EnsureAdmin(ctx context.Context, seed AdminSeed) (bool, error) {
	email := strings.TrimSpace(seed.Email)
	if email == "" || seed.Password == "" {
		return false, errors.New("admin seed requires an email and a password")
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, database.ErrUserNotFound) {
		return false, fmt.Errorf("look up admin: %w", err)
	}

	hash, err := auth.HashPassword(seed.Password)
	if err != nil {
		return false, err
	}

	_, err = s.users.CreateUser(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     seed.FullName,
		Role:         models.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}
