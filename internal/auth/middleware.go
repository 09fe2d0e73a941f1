package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/advisory-service/internal/domain"
	"github.com/spec-kit/advisory-service/internal/repository"
	apperrors "github.com/spec-kit/advisory-service/pkg/util"
)

const principalKey = "auth_principal"

// UserFinder resolves token subjects to stored users.
type UserFinder interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// ViewCache stores sanitized user views keyed by id. Misses return repository.ErrCacheMiss.
type ViewCache interface {
	Get(ctx context.Context, id string) (*domain.UserView, error)
	Set(ctx context.Context, view domain.UserView, ttl time.Duration) error
}

// Guard validates bearer credentials and resolves them to users.
type Guard struct {
	tokens   *TokenManager
	users    UserFinder
	cache    ViewCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// GuardOption customizes a Guard.
type GuardOption func(*Guard)

// WithViewCache enables caching of resolved views for ttl.
func WithViewCache(cache ViewCache, ttl time.Duration) GuardOption {
	return func(g *Guard) {
		if cache == nil || ttl <= 0 {
			return
		}
		g.cache = cache
		g.cacheTTL = ttl
	}
}

// NewGuard constructs the guard.
func NewGuard(tokens *TokenManager, users UserFinder, logger *zap.Logger, opts ...GuardOption) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Guard{tokens: tokens, users: users, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Resolve turns an Authorization header value into the caller's view.
func (g *Guard) Resolve(ctx context.Context, authorization string) (*domain.UserView, error) {
	token, err := bearerToken(authorization)
	if err != nil {
		return nil, err
	}

	subject, err := g.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		view, err := g.cache.Get(ctx, subject)
		if err == nil {
			return view, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			g.logger.Warn("user view cache read failed", zap.String("user_id", subject), zap.Error(err))
		}
	}

	user, err := g.users.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperrors.ErrUnknownSubject
		}
		return nil, apperrors.NewInternalError(err)
	}

	view := user.View()
	if g.cache != nil {
		if err := g.cache.Set(ctx, view, g.cacheTTL); err != nil {
			g.logger.Warn("user view cache write failed", zap.String("user_id", subject), zap.Error(err))
		}
	}
	return &view, nil
}

// Handle enforces authentication for protected routes.
func (g *Guard) Handle(c *fiber.Ctx) error {
	view, err := g.Resolve(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}
	c.Locals(principalKey, view)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated user view.
func PrincipalFromContext(c *fiber.Ctx) (*domain.UserView, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*domain.UserView)
	return principal, ok
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", apperrors.ErrMissingCredential
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperrors.ErrMissingCredential
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", apperrors.ErrMissingCredential
	}
	return token, nil
}
