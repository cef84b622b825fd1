package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/studiosync/internal/common"
	"github.com/dmitrijs2005/studiosync/internal/cryptox"
	"github.com/dmitrijs2005/studiosync/internal/logging"
	"github.com/dmitrijs2005/studiosync/internal/server/auth"
	"github.com/dmitrijs2005/studiosync/internal/server/config"
	"github.com/dmitrijs2005/studiosync/internal/server/models"
	"github.com/dmitrijs2005/studiosync/internal/server/repositories/repomanager"
)

// UserService authenticates clients and issues session tokens. Clients
// send the salted SHA3 hash of the password, which is stored bcrypt-hashed.
type UserService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	log           logging.Logger
	jwtSecret     []byte
	tokenValidity time.Duration
	passwordSalt  string
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *UserService {
	return &UserService{
		db:            db,
		repomanager:   m,
		log:           log,
		jwtSecret:     []byte(cfg.SecretKey),
		tokenValidity: cfg.TokenValidity,
		passwordSalt:  cfg.PasswordSalt,
	}
}

// IssueToken signs a session token for userName. An empty name yields an
// anonymous token, as handed out on ping.
func (s *UserService) IssueToken(userName string) (string, error) {
	return auth.GenerateToken(userName, s.jwtSecret, s.tokenValidity)
}

// Authenticate returns the user a token was issued to. Anonymous tokens
// yield common.ErrUnauthorized.
func (s *UserService) Authenticate(token string) (string, error) {
	if token == "" {
		return "", common.ErrUnauthorized
	}
	userName, err := auth.GetUserNameFromToken(token, s.jwtSecret)
	if err != nil {
		return "", err
	}
	if userName == "" {
		return "", common.ErrUnauthorized
	}
	return userName, nil
}

// Login checks the password hash and returns a fresh token.
func (s *UserService) Login(ctx context.Context, userName, passwordHash string) (string, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetUserByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrInvalidCredentials
		}
		return "", fmt.Errorf("error loading user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(passwordHash)); err != nil {
		return "", common.ErrInvalidCredentials
	}

	return s.IssueToken(user.UserName)
}

// Register stores a new account. password is the clear text password; it
// is hashed with the shared salt the same way clients hash it.
func (s *UserService) Register(ctx context.Context, userName, password string) (*models.User, error) {
	if userName == "" {
		return nil, fmt.Errorf("%w: empty user name", common.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cryptox.HashPassword(password, s.passwordSalt)), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		UserName:     userName,
		PasswordHash: hash,
	}

	user, err = s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return user, nil
}

// Bootstrap makes sure the configured account exists. It does nothing
// when userName is empty.
func (s *UserService) Bootstrap(ctx context.Context, userName, password string) error {
	if userName == "" {
		return nil
	}

	_, err := s.Register(ctx, userName, password)
	if errors.Is(err, common.ErrAlreadyExists) {
		s.log.Debug(ctx, "bootstrap user already present", "user", userName)
		return nil
	}
	if err != nil {
		return err
	}

	s.log.Info(ctx, "bootstrap user created", "user", userName)
	return nil
}
