package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"aignite/internal/models"
	"aignite/internal/repository"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
)

// TokenService issues and verifies signed bearer tokens. The signing secret
// is injected at construction; verification never reads ambient state.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService builds a token codec with the given secret and lifetime.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// Issue mints a token for the given user id, expiring after the configured TTL.
func (t *TokenService) Issue(userID int64) (string, time.Time, error) {
	now := time.Now()
	expirationTime := now.Add(t.ttl)
	claims := &models.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, expirationTime, nil
}

// Verify checks signature and expiry and returns the embedded user id.
// The signing method is pinned to HMAC so a token cannot pick its own
// verification algorithm.
func (t *TokenService) Verify(tokenString string) (int64, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrInvalidToken
	}
	if !token.Valid || claims.UserID == 0 {
		return 0, ErrInvalidToken
	}
	return claims.UserID, nil
}

type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*models.User, string, time.Time, error)
	Login(ctx context.Context, email, password string) (*models.User, string, time.Time, error)
}

type authService struct {
	repo   repository.UserRepository
	tokens *TokenService
	logger *zap.Logger
}

func NewAuthService(repo repository.UserRepository, tokens *TokenService, logger *zap.Logger) AuthService {
	return &authService{repo: repo, tokens: tokens, logger: logger}
}

// Register creates an account with default preferences and logs it in.
func (s *authService) Register(ctx context.Context, email, password, name string) (*models.User, string, time.Time, error) {
	passwordHash, err := hashPassword(password)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, "", time.Time{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Preferences:  models.DefaultPreferences(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", time.Time{}, ErrUserAlreadyExists
		}
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, "", time.Time{}, fmt.Errorf("failed to create user: %w", err)
	}

	tokenString, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error("Failed to generate token", zap.Error(err))
		return nil, "", time.Time{}, err
	}

	s.logger.Info("User registered", zap.Int64("user_id", user.ID))
	return user, tokenString, expiresAt, nil
}

// Login validates credentials and issues a token. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *authService) Login(ctx context.Context, email, password string) (*models.User, string, time.Time, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", time.Time{}, ErrInvalidCredentials
		}
		s.logger.Error("Failed to get user by email", zap.Error(err))
		return nil, "", time.Time{}, fmt.Errorf("failed to retrieve user: %w", err)
	}

	if !verifyPassword(user.PasswordHash, password) {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	tokenString, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error("Failed to generate token", zap.Error(err))
		return nil, "", time.Time{}, err
	}

	s.logger.Info("User logged in", zap.Int64("user_id", user.ID))
	return user, tokenString, expiresAt, nil
}
