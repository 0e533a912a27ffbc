// Package auth coordinates signup, login and access token checks on top of
// the password, jwt, refreshtoken, ratelimit and user services.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/tech-arch1tect/authapi/config"
	"github.com/tech-arch1tect/authapi/internal/clock"
	"github.com/tech-arch1tect/authapi/services/jwt"
	"github.com/tech-arch1tect/authapi/services/logging"
	"github.com/tech-arch1tect/authapi/services/password"
	"github.com/tech-arch1tect/authapi/services/ratelimit"
	"github.com/tech-arch1tect/authapi/services/refreshtoken"
	"github.com/tech-arch1tect/authapi/services/user"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const TokenTypeBearer = "Bearer"

type UserStore interface {
	PhoneExists(ctx context.Context, phone string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, u *user.User) error
	FindByPhone(ctx context.Context, phone string) (*user.User, error)
	FindByID(ctx context.Context, id uint) (*user.User, error)
	TouchLastLogin(ctx context.Context, id uint) (time.Time, error)
}

type RefreshTokenStore interface {
	Generate() (*refreshtoken.Generated, error)
	Store(ctx context.Context, userID uint, generated *refreshtoken.Generated, info refreshtoken.SessionInfo) (*refreshtoken.RefreshToken, error)
	Validate(ctx context.Context, token string) (*refreshtoken.RefreshToken, error)
	Revoke(ctx context.Context, token string) (bool, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type Limits struct {
	SignupLimit  int
	SignupWindow time.Duration
	LoginLimit   int
	LoginWindow  time.Duration
}

type Service struct {
	users           UserStore
	refreshTokens   RefreshTokenStore
	hasher          *password.Hasher
	validator       *inputValidator
	signer          *jwt.Service
	limiter         *ratelimit.Limiter
	limits          Limits
	genericConflict bool
	clock           clock.Clock
	logger          *logging.Service
}

type Deps struct {
	Config        *config.Config
	Users         UserStore
	RefreshTokens RefreshTokenStore
	Hasher        *password.Hasher
	Policy        password.Policy
	Signer        *jwt.Service
	Limiter       *ratelimit.Limiter
	Clock         clock.Clock
	Logger        *logging.Service
}

func NewService(deps Deps) *Service {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	return &Service{
		users:         deps.Users,
		refreshTokens: deps.RefreshTokens,
		hasher:        deps.Hasher,
		validator:     newInputValidator(deps.Policy),
		signer:        deps.Signer,
		limiter:       deps.Limiter,
		limits: Limits{
			SignupLimit:  deps.Config.RateLimit.SignupLimit,
			SignupWindow: deps.Config.RateLimit.SignupWindow,
			LoginLimit:   deps.Config.RateLimit.LoginLimit,
			LoginWindow:  deps.Config.RateLimit.LoginWindow,
		},
		genericConflict: deps.Config.Auth.GenericConflict,
		clock:           clk,
		logger:          deps.Logger,
	}
}

// Result is what a successful signup, login or refresh hands back. The raw
// refresh token appears here once and is never stored.
type Result struct {
	User         *user.User
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int
}

// Principal is the identity carried by a verified access token.
type Principal struct {
	UserID   uint
	Username string
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (*Result, error) {
	if err := s.checkRate("signup", in.ClientIP, s.limits.SignupLimit, s.limits.SignupWindow); err != nil {
		return nil, err
	}

	in = in.normalize()
	if errs := s.validateSignup(in); len(errs) > 0 {
		return nil, errs
	}

	var phoneTaken, usernameTaken bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		phoneTaken, err = s.users.PhoneExists(gctx, in.PhoneNumber)
		return err
	})
	g.Go(func() error {
		var err error
		usernameTaken, err = s.users.UsernameExists(gctx, in.Username)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.infra("check uniqueness", err)
	}

	switch {
	case phoneTaken:
		return nil, s.conflict(FieldPhoneNumber)
	case usernameTaken:
		return nil, s.conflict(FieldUsername)
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, s.infra("hash password", err)
	}

	u := &user.User{
		PhoneNumber:  in.PhoneNumber,
		FullName:     in.FullName,
		Username:     in.Username,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			// Lost a race against a concurrent signup; the constraint cannot say which field.
			return nil, &ConflictError{}
		}
		return nil, s.infra("create user", err)
	}

	result, err := s.issueSession(ctx, u, refreshtoken.SessionInfo{IPAddress: in.ClientIP, UserAgent: in.UserAgent}, false)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("new user registered",
			zap.Uint("user_id", u.ID),
			zap.String("username", u.Username))
	}

	return result, nil
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*Result, error) {
	if err := s.checkRate("login", in.ClientIP, s.limits.LoginLimit, s.limits.LoginWindow); err != nil {
		return nil, err
	}

	in = in.normalize()
	if errs := s.validateLogin(in); len(errs) > 0 {
		return nil, errs
	}

	u, err := s.users.FindByPhone(ctx, in.PhoneNumber)
	if err != nil && !errors.Is(err, user.ErrUserNotFound) {
		return nil, s.infra("find user", err)
	}

	// Unknown accounts still pay for a full bcrypt comparison.
	hash := s.hasher.DummyHash()
	if u != nil {
		hash = u.PasswordHash
	}
	valid := s.hasher.Verify(ctx, in.Password, hash)

	if u == nil || !valid {
		if err := ctx.Err(); err != nil {
			return nil, s.infra("verify password", err)
		}
		if s.logger != nil {
			s.logger.Info("login rejected", zap.String("client_ip", in.ClientIP))
		}
		return nil, ErrInvalidCredentials
	}

	if !u.IsActive {
		if s.logger != nil {
			s.logger.Info("login refused for deactivated account", zap.Uint("user_id", u.ID))
		}
		return nil, ErrAccountDeactivated
	}

	result, err := s.issueSession(ctx, u, refreshtoken.SessionInfo{IPAddress: in.ClientIP, UserAgent: in.UserAgent}, true)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("user logged in",
			zap.Uint("user_id", u.ID),
			zap.String("username", u.Username),
			zap.String("client_ip", in.ClientIP))
	}

	return result, nil
}

// issueSession signs an access token and mints a refresh token concurrently,
// stamping last login alongside when requested. All of them finish before the
// refresh hash is stored; on login the expired-token purge runs next to the insert.
func (s *Service) issueSession(ctx context.Context, u *user.User, info refreshtoken.SessionInfo, login bool) (*Result, error) {
	var (
		accessToken string
		generated   *refreshtoken.Generated
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accessToken, err = s.signer.Issue(map[string]any{
			jwt.ClaimUserID:   u.ID,
			jwt.ClaimUsername: u.Username,
		})
		return err
	})
	g.Go(func() error {
		var err error
		generated, err = s.refreshTokens.Generate()
		return err
	})
	if login {
		g.Go(func() error {
			at, err := s.users.TouchLastLogin(gctx, u.ID)
			if err == nil {
				u.LastLoginAt = &at
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.infra("issue tokens", err)
	}

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.refreshTokens.Store(gctx, u.ID, generated, info)
		return err
	})
	if login {
		g.Go(func() error {
			if _, err := s.refreshTokens.PurgeExpired(gctx); err != nil && s.logger != nil {
				s.logger.Warn("expired refresh token purge failed", zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.infra("store refresh token", err)
	}

	return &Result{
		User:         u,
		AccessToken:  accessToken,
		RefreshToken: generated.Token,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    s.signer.AccessExpirySeconds(),
	}, nil
}

// Authenticate verifies a raw access token. Every failure, whatever its cause,
// is ErrUnauthenticated.
func (s *Service) Authenticate(token string) (*Principal, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := s.signer.Verify(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	userID, ok := claimUint(claims[jwt.ClaimUserID])
	if !ok {
		return nil, ErrUnauthenticated
	}
	username, ok := claims[jwt.ClaimUsername].(string)
	if !ok || username == "" {
		return nil, ErrUnauthenticated
	}

	return &Principal{UserID: userID, Username: username}, nil
}

// Refresh exchanges a live refresh token for a new access token. The refresh
// token itself is left in place.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Result, error) {
	if refreshToken == "" {
		return nil, ValidationErrors{{FieldRefreshToken, "Required"}}
	}

	record, err := s.refreshTokens.Validate(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, refreshtoken.ErrRefreshTokenNotFound) || errors.Is(err, refreshtoken.ErrRefreshTokenExpired) {
			return nil, ErrUnauthenticated
		}
		return nil, s.infra("validate refresh token", err)
	}

	u, err := s.users.FindByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, s.infra("find user", err)
	}
	if !u.IsActive {
		return nil, ErrAccountDeactivated
	}

	accessToken, err := s.signer.Issue(map[string]any{
		jwt.ClaimUserID:   u.ID,
		jwt.ClaimUsername: u.Username,
	})
	if err != nil {
		return nil, s.infra("issue access token", err)
	}

	return &Result{
		User:        u,
		AccessToken: accessToken,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   s.signer.AccessExpirySeconds(),
	}, nil
}

// Logout revokes a refresh token. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ValidationErrors{{FieldRefreshToken, "Required"}}
	}

	if _, err := s.refreshTokens.Revoke(ctx, refreshToken); err != nil {
		return s.infra("revoke refresh token", err)
	}
	return nil
}

func (s *Service) Profile(ctx context.Context, userID uint) (*user.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, s.infra("find user", err)
	}
	return u, nil
}

func (s *Service) checkRate(action, clientIP string, limit int, window time.Duration) error {
	if clientIP == "" {
		clientIP = "unknown"
	}

	decision := s.limiter.Check(action+":"+clientIP, limit, window)
	if decision.Allowed {
		return nil
	}

	if s.logger != nil {
		s.logger.Warn("rate limit exceeded",
			zap.String("action", action),
			zap.String("client_ip", clientIP),
			zap.Time("reset_at", decision.ResetAt))
	}

	return &RateLimitError{Action: action, RetryAfter: decision.RetryAfter(s.clock.Now())}
}

func (s *Service) conflict(field string) error {
	if s.genericConflict {
		return &ConflictError{}
	}
	return &ConflictError{Field: field}
}

func (s *Service) infra(op string, err error) error {
	if s.logger != nil {
		s.logger.Error("auth operation failed", zap.String("op", op), zap.Error(err))
	}
	return &InfraError{Op: op, Err: err}
}

// claimUint accepts the float64 produced by JSON decoding as well as native
// integers, and rejects anything that is not a positive whole number.
func claimUint(v any) (uint, bool) {
	switch n := v.(type) {
	case float64:
		if n < 1 || n != float64(uint64(n)) {
			return 0, false
		}
		return uint(n), true
	case int:
		if n < 1 {
			return 0, false
		}
		return uint(n), true
	case int64:
		if n < 1 {
			return 0, false
		}
		return uint(n), true
	case uint:
		return n, n > 0
	default:
		return 0, false
	}
}
