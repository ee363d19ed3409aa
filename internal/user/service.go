package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/apierr"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/user/entity"
)

// Store is the persistence the service needs; *repo.UserRepo implements it.
type Store interface {
	Create(ctx context.Context, u *entity.User) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

// UserService orchestrates signup, login and identity lookup.
type UserService struct {
	store  Store
	hasher *auth.Hasher
	tokens *auth.TokenCodec
	logger *zap.SugaredLogger
}

func NewUserService(store Store, hasher *auth.Hasher, tokens *auth.TokenCodec, logger *zap.SugaredLogger) *UserService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &UserService{store: store, hasher: hasher, tokens: tokens, logger: logger}
}

// LoginResult is returned on successful password authentication.
type LoginResult struct {
	Token     string          `json:"token"`
	TokenType string          `json:"token_type"`
	ExpiresIn int64           `json:"expires_in"`
	User      entity.SlimUser `json:"user"`
}

// Signup hashes the password and stores a new user. A duplicate email comes
// back from the store as a unique violation.
func (s *UserService) Signup(ctx context.Context, email, name, password string) (entity.SlimUser, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return entity.SlimUser{}, apierr.BadRequest("a valid email is required")
	}
	if password == "" {
		return entity.SlimUser{}, apierr.BadRequest("password is required")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return entity.SlimUser{}, err
	}
	u, err := s.store.Create(ctx, &entity.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
	})
	if err != nil {
		return entity.SlimUser{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.Infow("user signed up", "user_id", u.ID)
	return u.Slim(), nil
}

// Login verifies the password and issues an access token. An unknown email and
// a wrong password are reported identically.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &auth.Error{Kind: auth.KindInvalidPassword}
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	if err := s.hasher.Verify(u.PasswordHash, password); err != nil {
		return nil, err
	}

	slim := u.Slim()
	token, err := s.tokens.Issue(slim)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:     token,
		TokenType: strings.TrimSpace(auth.BearerPrefix),
		ExpiresIn: int64(s.tokens.Lifetime().Seconds()),
		User:      slim,
	}, nil
}

// Me resolves the identity behind validated claims.
func (s *UserService) Me(ctx context.Context, claims *auth.Claims) (entity.SlimUser, error) {
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return entity.SlimUser{}, &auth.Error{Kind: auth.KindUnauthorized}
	}
	u, err := s.store.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.SlimUser{}, &auth.Error{Kind: auth.KindUnauthorized}
		}
		return entity.SlimUser{}, fmt.Errorf("get user by id: %w", err)
	}
	return u.Slim(), nil
}
