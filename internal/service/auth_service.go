package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/advisory-service/internal/auth"
	"github.com/spec-kit/advisory-service/internal/config"
	"github.com/spec-kit/advisory-service/internal/domain"
	"github.com/spec-kit/advisory-service/internal/events"
	"github.com/spec-kit/advisory-service/internal/mail"
	"github.com/spec-kit/advisory-service/internal/repository"
	apperrors "github.com/spec-kit/advisory-service/pkg/util"
)

// ViewCache is the guard's view cache plus the invalidation hook used after account changes.
type ViewCache interface {
	auth.ViewCache
	Invalidate(ctx context.Context, id string) error
}

// RegisterInput carries a registration request. Password is plaintext and never stored.
type RegisterInput struct {
	Email    string
	FullName string
	Role     string
	Password string
}

// RegistrationAck acknowledges that a verification code was sent.
type RegistrationAck struct {
	Email         string
	CodeExpiresAt time.Time
}

// AuthService coordinates registration, verification and login flows.
type AuthService struct {
	store       repository.UserStore
	hasher      *auth.PasswordHasher
	tokens      *auth.TokenManager
	otps        *auth.OTPGenerator
	guard       *auth.Guard
	mailer      mail.Sender
	mailTimeout time.Duration
	dispatcher  events.Dispatcher
	views       ViewCache
	logger      *zap.Logger
	now         func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Store      repository.UserStore
	Mailer     mail.Sender
	Dispatcher events.Dispatcher
	// ViewCache is optional; nil disables view caching.
	ViewCache ViewCache
	Logger    *zap.Logger
	// Clock is optional and defaults to time.Now.
	Clock func() time.Time
}

// NewAuthService builds the service. It fails when the signing key is missing.
func NewAuthService(cfg config.Config, deps AuthDependencies) (*AuthService, error) {
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	if err != nil {
		return nil, err
	}
	hasher, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	s := &AuthService{
		store:       deps.Store,
		hasher:      hasher,
		tokens:      tokens,
		otps:        auth.NewOTPGenerator(cfg.Auth.OTPTTLMinutes),
		mailer:      deps.Mailer,
		mailTimeout: cfg.Mail.Timeout(),
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		now:         now,
	}

	var guardOpts []auth.GuardOption
	if deps.ViewCache != nil {
		s.views = deps.ViewCache
		guardOpts = append(guardOpts, auth.WithViewCache(deps.ViewCache, cfg.Cache.UserViewTTL()))
	}
	s.guard = auth.NewGuard(tokens, deps.Store.Users(), logger, guardOpts...)
	return s, nil
}

// Register creates or resumes an unverified account and mails a fresh code.
// The account write and the dispatch share one transaction: a failed send
// leaves the store exactly as it was before the call.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegistrationAck, error) {
	email := domain.NormalizeEmail(in.Email)
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = domain.DefaultRole
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmptyPassword):
			return nil, apperrors.NewValidationError("password required", map[string]any{"password": "cannot be blank"})
		case errors.Is(err, auth.ErrPasswordTooLong):
			return nil, apperrors.NewValidationError("password too long", map[string]any{"password": "must be at most 72 bytes"})
		}
		return nil, apperrors.NewInternalError(err)
	}

	var (
		user    *domain.User
		resumed bool
	)
	attempt := func() error {
		return s.store.RunInTx(ctx, func(ctx context.Context, users repository.UserRepository) error {
			existing, err := users.GetByEmailForUpdate(ctx, email)
			switch {
			case err == nil:
				if existing.IsVerified {
					return apperrors.ErrDuplicateAccount
				}
				existing.FullName = in.FullName
				existing.Role = role
				existing.PasswordHash = hash
				user, resumed = existing, true
			case errors.Is(err, repository.ErrUserNotFound):
				user = &domain.User{
					Email:        email,
					FullName:     in.FullName,
					Role:         role,
					PasswordHash: hash,
				}
				resumed = false
			default:
				return err
			}

			code, expires, err := s.otps.Generate(s.now())
			if err != nil {
				return err
			}
			user.SetChallenge(code, expires)

			if resumed {
				err = users.Update(ctx, user)
			} else {
				err = users.Create(ctx, user)
			}
			if err != nil {
				return err
			}
			return s.deliver(ctx, email, code)
		})
	}

	err = attempt()
	if errors.Is(err, repository.ErrDuplicateEmail) {
		// a concurrent first registration won the insert; retry against its row
		err = attempt()
	}
	if err != nil {
		return nil, s.mapError(err)
	}

	s.invalidateView(ctx, user.ID)
	s.publish(ctx, events.NewEvent(events.EventUserRegistered, user.ID, s.now(), events.UserRegisteredPayload{
		Email:      email,
		Role:       role,
		Resumed:    resumed,
		OTPExpires: *user.OTPExpires,
	}))

	return &RegistrationAck{Email: email, CodeExpiresAt: *user.OTPExpires}, nil
}

// Verify consumes the pending code and returns an access token. Verified
// accounts get a fresh token without any code check.
func (s *AuthService) Verify(ctx context.Context, email, code string) (*domain.AccessToken, error) {
	email = domain.NormalizeEmail(email)

	var (
		user    *domain.User
		flipped bool
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, users repository.UserRepository) error {
		u, err := users.GetByEmailForUpdate(ctx, email)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}
		user = u

		if u.IsVerified {
			return nil
		}
		if !u.HasPendingChallenge() {
			return apperrors.ErrNoPendingChallenge
		}
		if !s.now().Before(*u.OTPExpires) {
			return apperrors.ErrChallengeExpired
		}
		if subtle.ConstantTimeCompare([]byte(*u.OTPCode), []byte(code)) != 1 {
			return apperrors.ErrChallengeMismatch
		}

		u.MarkVerified()
		flipped = true
		return users.Update(ctx, u)
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	if flipped {
		s.invalidateView(ctx, user.ID)
		s.publish(ctx, events.NewEvent(events.EventUserVerified, user.ID, s.now(), events.UserVerifiedPayload{Email: email}))
	}
	return token, nil
}

// Login checks credentials of a verified account and returns an access token.
// Unknown emails and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.AccessToken, error) {
	email = domain.NormalizeEmail(email)

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.CompareDummy(password)
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsVerified {
		return nil, apperrors.ErrNotVerified
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.publish(ctx, events.NewEvent(events.EventUserLoggedIn, user.ID, s.now(), events.UserLoggedInPayload{Email: email}))
	return token, nil
}

// CurrentUser resolves an Authorization header value to the caller's view.
func (s *AuthService) CurrentUser(ctx context.Context, credential string) (*domain.UserView, error) {
	return s.guard.Resolve(ctx, credential)
}

// Guard exposes the request guard for middleware usage.
func (s *AuthService) Guard() *auth.Guard {
	return s.guard
}

func (s *AuthService) deliver(ctx context.Context, email, code string) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.mailTimeout)
	defer cancel()

	if err := s.mailer.Send(sendCtx, email, code); err != nil {
		s.logger.Warn("otp delivery failed", zap.String("email", email), zap.Error(err))
		return apperrors.WithCause(apperrors.ErrMailDeliveryFailed, err)
	}
	return nil
}

func (s *AuthService) mapError(err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewInternalError(err)
}

func (s *AuthService) invalidateView(ctx context.Context, userID string) {
	if s.views == nil {
		return
	}
	if err := s.views.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("user view invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
