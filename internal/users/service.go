package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrConflict indicates the username or email is already taken.
	ErrConflict = errors.New("users: username or email already exists")
	// ErrInvalidCredentials indicates an unknown username or a wrong password.
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	// ErrUnknownUser indicates no account exists for the identifier.
	ErrUnknownUser = errors.New("users: unknown user")

	errMissingDatabase = errors.New("users: database connection required")
)

// RegistrationInput carries the attributes for a new account.
type RegistrationInput struct {
	Username string
	Email    string
	Password string
}

// ServiceConfig describes the dependencies for account management.
type ServiceConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
	// BcryptCost overrides the hashing cost; zero selects the bcrypt default.
	BcryptCost int
}

// Service manages account registration and credential verification.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
	cost   int
}

// NewService constructs the user service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	return &Service{db: cfg.Database, logger: logger, cost: cost}, nil
}

// Register creates an account with a bcrypt-hashed password. Duplicate
// usernames or emails fail with ErrConflict.
func (s *Service) Register(ctx context.Context, input RegistrationInput) (User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	if username == "" || email == "" || input.Password == "" {
		return User{}, fmt.Errorf("users: username, email and password are required")
	}

	var existing int64
	err := s.db.WithContext(ctx).Model(&User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&existing).Error
	if err != nil {
		s.logger.Error("user lookup failed", zap.Error(err), zap.String("username", username))
		return User{}, err
	}
	if existing > 0 {
		return User{}, ErrConflict
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return User{}, err
	}

	user := User{Username: username, Email: email, HashedPassword: string(hashed)}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		s.logger.Error("user insert failed", zap.Error(err), zap.String("username", username))
		return User{}, err
	}

	return user, nil
}

// Authenticate verifies the password for the username and returns the
// account. Unknown usernames and wrong passwords are indistinguishable
// to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).
		Where("username = ?", strings.TrimSpace(username)).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		s.logger.Error("user select failed", zap.Error(err), zap.String("username", username))
		return User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}

	return user, nil
}

// ByID loads an account by its surrogate id.
func (s *Service) ByID(ctx context.Context, id uint) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Take(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrUnknownUser
	}
	if err != nil {
		s.logger.Error("user select failed", zap.Error(err), zap.Uint("user_id", id))
		return User{}, err
	}
	return user, nil
}
