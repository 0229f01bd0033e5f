package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/ghostportfolio/server/internal/domain"
)

var (
	// ErrEmailTaken is returned when signing up with an email already in use.
	ErrEmailTaken = errors.New("email already in use")
	// ErrInvalidCredentials is returned for unknown emails or wrong passwords.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// SignUpInput carries a registration request. Email and password are
// submitted twice; mismatches are rejected before anything is stored.
type SignUpInput struct {
	Name            string
	Surname         string
	Email           string
	EmailConfirm    string
	Password        string
	PasswordConfirm string
}

// Service implements signup, login, and token verification.
type Service struct {
	repo      *Repository
	jwtSecret []byte
	tokenTTL  time.Duration
	log       zerolog.Logger
}

// NewService creates a new identity service
func NewService(repo *Repository, jwtSecret string, tokenTTL time.Duration, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		log:       log.With().Str("service", "identity").Logger(),
	}
}

// SignUp validates and registers a new user.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (domain.User, error) {
	var user domain.User

	email := strings.TrimSpace(strings.ToLower(in.Email))
	switch {
	case email != strings.TrimSpace(strings.ToLower(in.EmailConfirm)):
		return user, fmt.Errorf("emails do not match")
	case len(email) < 5 || !strings.Contains(email, "@"):
		return user, fmt.Errorf("invalid email")
	case in.Password != in.PasswordConfirm:
		return user, fmt.Errorf("passwords do not match")
	case len(in.Password) < 8:
		return user, fmt.Errorf("password must be at least 8 characters")
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return user, err
	}
	if existing != nil {
		return user, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return user, fmt.Errorf("failed to hash password: %w", err)
	}

	user = domain.User{
		ID:           strings.ReplaceAll(uuid.NewString(), "-", ""),
		Name:         strings.TrimSpace(in.Name),
		Surname:      strings.TrimSpace(in.Surname),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Login checks credentials and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return domain.User{}, "", err
	}
	if user == nil {
		return domain.User{}, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, "", ErrInvalidCredentials
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return domain.User{}, "", err
	}

	s.log.Info().Str("user_id", user.ID).Msg("User logged in")
	return *user, token, nil
}

// IssueToken signs a JWT access token for the user.
func (s *Service) IssueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// VerifyToken parses and validates an access token, returning the user id.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid token")
	}
	return claims.Subject, nil
}
