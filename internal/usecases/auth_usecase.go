package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/VitorRandrade/omnibot-hub-api/internal/entities"
)

const tokenTTL = 24 * time.Hour

// UserStore is the slice of the user repository auth needs.
type UserStore interface {
	Create(ctx context.Context, user *entities.User) error
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	GetByID(ctx context.Context, id string) (*entities.User, error)
}

// Claims deliberately omit the tenant id. Tenancy is resolved from the
// database on every request, so a stale or forged claim can never move a
// principal across tenants.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

type AuthUsecase struct {
	users  UserStore
	secret []byte
	log    zerolog.Logger
}

func NewAuthUsecase(users UserStore, jwtSecret string, log zerolog.Logger) *AuthUsecase {
	return &AuthUsecase{
		users:  users,
		secret: []byte(jwtSecret),
		log:    log.With().Str("component", "auth").Logger(),
	}
}

type LoginResult struct {
	Token string         `json:"token"`
	User  *entities.User `json:"user"`
}

// Login verifies credentials and issues a signed token. Wrong email and
// wrong password produce the same error.
func (uc *AuthUsecase) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	token, err := uc.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: user}, nil
}

type RegisterInput struct {
	TenantID string
	Email    string
	Password string
	Name     string
	Role     string
}

// Register creates a user inside a tenant. Exposed for bootstrap and
// admin-driven onboarding.
func (uc *AuthUsecase) Register(ctx context.Context, in RegisterInput) (*entities.User, error) {
	if in.TenantID == "" || in.Email == "" || in.Name == "" {
		return nil, fmt.Errorf("%w: tenant, email and name are required", ErrValidation)
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	if in.Role == "" {
		in.Role = entities.RoleAgent
	}
	if in.Role != entities.RoleAdmin && in.Role != entities.RoleAgent {
		return nil, fmt.Errorf("%w: invalid role %q", ErrValidation, in.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &entities.User{
		TenantID:     in.TenantID,
		Email:        in.Email,
		PasswordHash: string(hash),
		Name:         in.Name,
		Role:         in.Role,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Me returns the authenticated user's profile.
func (uc *AuthUsecase) Me(ctx context.Context, userID string) (*entities.User, error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return user, nil
}

func (uc *AuthUsecase) issueToken(user *entities.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			Subject:   user.ID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(uc.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a bearer token and returns its claims. Used by the
// HTTP middleware and the websocket handshake.
func (uc *AuthUsecase) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return uc.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%w: invalid token claims", ErrUnauthorized)
	}
	return claims, nil
}
