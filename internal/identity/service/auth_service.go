package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"auth-service/internal/logging"
	"auth-service/internal/mfa"
	mfarepo "auth-service/internal/mfa/repository"
	"auth-service/internal/notify"
	"auth-service/internal/security"
	userdomain "auth-service/internal/user/domain"
	userrepo "auth-service/internal/user/repository"
)

const instrumentationName = "auth-service/internal/identity/service"

// Error kinds returned by AuthService. Causes are wrapped behind the kind, so callers
// match with errors.Is and must not show err.Error() to clients.
var (
	ErrAlreadyExists        = errors.New("user already exists")
	ErrNotFound             = errors.New("not found")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrIncorrectCredentials = errors.New("incorrect credentials")
	ErrMissingToken         = errors.New("missing token")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrUnexpected           = errors.New("unexpected error")
)

// Two-factor email content.
const (
	TwoFactorSubject = "2FA Code"
	twoFactorBody    = "Your 2FA code is %s"
)

// LoginStatus says whether Login finished or needs a second factor.
type LoginStatus int

const (
	LoginSucceeded LoginStatus = iota + 1
	TwoFactorPending
)

// LoginResult carries a Session when Status is LoginSucceeded, or the AttemptID to pass to
// Verify2FA when Status is TwoFactorPending. The code itself is only sent by email.
type LoginResult struct {
	Status    LoginStatus
	Session   *security.Session
	AttemptID string
}

// UserRepo is the credential store needed by the auth service.
type UserRepo interface {
	Add(ctx context.Context, u *userdomain.User) error
	Get(ctx context.Context, email userdomain.Email) (*userdomain.User, error)
	Validate(ctx context.Context, email userdomain.Email, password userdomain.Password) (*userdomain.User, error)
}

// RevocationRepo is the revoked-token store needed by the auth service.
type RevocationRepo interface {
	Revoke(ctx context.Context, id string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, id string) (bool, error)
}

// ChallengeRepo is the two-factor challenge store needed by the auth service.
type ChallengeRepo interface {
	Issue(ctx context.Context, email userdomain.Email, attemptID, code string) error
	VerifyAndConsume(ctx context.Context, email userdomain.Email, attemptID, code string) error
	Remove(ctx context.Context, email userdomain.Email) error
}

// AuthService implements signup, login with optional email 2FA, logout and token verification.
type AuthService struct {
	users       UserRepo
	revocations RevocationRepo
	challenges  ChallengeRepo
	notifier    notify.Notifier
	hasher      *security.Hasher
	tokens      *security.TokenProvider
	logger      logging.Logger

	tracer trace.Tracer
	ops    metric.Int64Counter
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(
	users UserRepo,
	revocations RevocationRepo,
	challenges ChallengeRepo,
	notifier notify.Notifier,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	logger logging.Logger,
) *AuthService {
	ops, err := otel.Meter(instrumentationName).Int64Counter("auth.operations",
		metric.WithDescription("Auth operations by name and outcome"))
	if err != nil {
		ops, _ = noop.NewMeterProvider().Meter(instrumentationName).Int64Counter("auth.operations")
	}
	return &AuthService{
		users:       users,
		revocations: revocations,
		challenges:  challenges,
		notifier:    notifier,
		hasher:      hasher,
		tokens:      tokens,
		logger:      logger,
		tracer:      otel.Tracer(instrumentationName),
		ops:         ops,
	}
}

// Signup stores a new user. Returns ErrInvalidCredentials for a malformed email or a password
// shorter than 8 characters, and ErrAlreadyExists if the email is registered.
func (s *AuthService) Signup(ctx context.Context, email, password string, requires2FA bool) (err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Signup")
	defer func() { s.finish(ctx, span, "signup", err) }()

	addr, pw, err := parseCredentials(email, password)
	if err != nil {
		return err
	}
	if _, err := s.users.Get(ctx, addr); err == nil {
		return ErrAlreadyExists
	} else if !errors.Is(err, userrepo.ErrNotFound) {
		return unexpected(err)
	}
	digest, err := s.hasher.Hash(ctx, pw.Expose())
	if err != nil {
		return unexpected(err)
	}
	u := &userdomain.User{Email: addr, Password: digest, Requires2FA: requires2FA}
	if err := s.users.Add(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrAlreadyExists) {
			return ErrAlreadyExists
		}
		return unexpected(err)
	}
	return nil
}

// Login checks the password. Without 2FA it returns a session; with 2FA it stores a fresh
// challenge, emails the code and returns the attempt id. Wrong email and wrong password both
// yield ErrIncorrectCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (res *LoginResult, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer func() { s.finish(ctx, span, "login", err) }()

	addr, pw, err := parseCredentials(email, password)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Validate(ctx, addr, pw)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) || errors.Is(err, userrepo.ErrInvalidCredentials) {
			return nil, ErrIncorrectCredentials
		}
		return nil, unexpected(err)
	}
	if !u.Requires2FA {
		sess, err := s.issue(addr)
		if err != nil {
			return nil, err
		}
		return &LoginResult{Status: LoginSucceeded, Session: sess}, nil
	}

	attemptID := mfa.NewAttemptID()
	code, err := mfa.GenerateOTP()
	if err != nil {
		return nil, unexpected(err)
	}
	if err := s.challenges.Issue(ctx, addr, attemptID, code); err != nil {
		return nil, unexpected(err)
	}
	if err := s.notifier.Send(ctx, addr, TwoFactorSubject, fmt.Sprintf(twoFactorBody, code)); err != nil {
		if rmErr := s.challenges.Remove(context.WithoutCancel(ctx), addr); rmErr != nil {
			s.logger.Warn(ctx, "remove undelivered 2fa challenge", "email", addr.String(), "error", rmErr)
		}
		return nil, unexpected(fmt.Errorf("send 2fa code: %w", err))
	}
	span.SetAttributes(attribute.Bool("auth.two_factor", true))
	return &LoginResult{Status: TwoFactorPending, AttemptID: attemptID}, nil
}

// Verify2FA consumes the challenge for email and returns a session. A challenge can be used once.
func (s *AuthService) Verify2FA(ctx context.Context, email, attemptID, code string) (sess *security.Session, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Verify2FA")
	defer func() { s.finish(ctx, span, "verify_2fa", err) }()

	addr, err := userdomain.ParseEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
	if !mfa.ValidAttemptID(attemptID) || !mfa.ValidOTP(code) {
		return nil, ErrInvalidCredentials
	}
	if err := s.challenges.VerifyAndConsume(ctx, addr, attemptID, code); err != nil {
		if errors.Is(err, mfarepo.ErrNotFound) || errors.Is(err, mfarepo.ErrIncorrectCode) {
			return nil, ErrIncorrectCredentials
		}
		return nil, unexpected(err)
	}
	return s.issue(addr)
}

// Logout revokes token until it expires. A token that is already revoked yields ErrUnauthorized.
func (s *AuthService) Logout(ctx context.Context, token string) (err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Logout")
	defer func() { s.finish(ctx, span, "logout", err) }()

	sess, err := s.authenticate(ctx, token)
	if err != nil {
		return err
	}
	if err := s.revocations.Revoke(ctx, sess.ID, sess.ExpiresAt); err != nil {
		return unexpected(err)
	}
	return nil
}

// VerifyToken returns the email a live, unrevoked token was issued to.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (email userdomain.Email, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.VerifyToken")
	defer func() { s.finish(ctx, span, "verify_token", err) }()

	sess, err := s.authenticate(ctx, token)
	if err != nil {
		return userdomain.Email{}, err
	}
	addr, err := userdomain.ParseEmail(sess.Subject)
	if err != nil {
		return userdomain.Email{}, ErrIncorrectCredentials
	}
	return addr, nil
}

func (s *AuthService) authenticate(ctx context.Context, token string) (*security.Session, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	sess, err := s.tokens.Validate(token)
	if err != nil {
		return nil, ErrIncorrectCredentials
	}
	revoked, err := s.revocations.IsRevoked(ctx, sess.ID)
	if err != nil {
		return nil, unexpected(err)
	}
	if revoked {
		return nil, ErrUnauthorized
	}
	return sess, nil
}

func (s *AuthService) issue(email userdomain.Email) (*security.Session, error) {
	sess, err := s.tokens.Issue(email.String())
	if err != nil {
		return nil, unexpected(err)
	}
	return sess, nil
}

func (s *AuthService) finish(ctx context.Context, span trace.Span, op string, err error) {
	outcome := Kind(err)
	if err != nil && errors.Is(err, ErrUnexpected) {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.SetAttributes(attribute.String("auth.outcome", outcome))
	span.End()
	s.ops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}

func parseCredentials(email, password string) (userdomain.Email, userdomain.Password, error) {
	addr, err := userdomain.ParseEmail(email)
	if err != nil {
		return userdomain.Email{}, userdomain.Password{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
	pw, err := userdomain.ParsePassword(password)
	if err != nil {
		return userdomain.Email{}, userdomain.Password{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
	return addr, pw, nil
}

func unexpected(cause error) error {
	return fmt.Errorf("%w: %w", ErrUnexpected, cause)
}

// Kind returns a short stable name for the error kind of err ("ok" for nil).
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrIncorrectCredentials):
		return "incorrect_credentials"
	case errors.Is(err, ErrMissingToken):
		return "missing_token"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	default:
		return "unexpected"
	}
}
