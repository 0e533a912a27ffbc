package jwt

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tech-arch1tect/authapi/config"
	"github.com/tech-arch1tect/authapi/internal/clock"
	"github.com/tech-arch1tect/authapi/services/logging"
	"go.uber.org/zap"
)

// Claim names on the wire.
const (
	ClaimUserID    = "userId"
	ClaimUsername  = "username"
	ClaimIssuedAt  = "iat"
	ClaimExpiresAt = "exp"
	ClaimIssuer    = "iss"
	ClaimTokenID   = "jti"
)

var (
	// ErrInvalidToken is the only error Verify returns. Malformed, expired and
	// forged tokens are deliberately indistinguishable to callers.
	ErrInvalidToken  = errors.New("invalid access token")
	ErrSigningFailed = errors.New("failed to sign access token")
)

// Service issues and verifies HS256 access tokens of the form
// base64url(header).base64url(claims).base64url(signature).
type Service struct {
	secret       []byte
	issuer       string
	accessExpiry time.Duration
	clock        clock.Clock
	logger       *logging.Service
	parser       *jwt.Parser
}

func NewService(cfg *config.Config, clk clock.Clock, logger *logging.Service) *Service {
	if clk == nil {
		clk = clock.Real{}
	}

	return &Service{
		secret:       []byte(cfg.JWT.SecretKey),
		issuer:       cfg.JWT.Issuer,
		accessExpiry: cfg.JWT.AccessExpiry,
		clock:        clk,
		logger:       logger,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuer(cfg.JWT.Issuer),
			jwt.WithStrictDecoding(),
			jwt.WithTimeFunc(clk.Now),
		),
	}
}

func (s *Service) AccessExpirySeconds() int {
	return int(s.accessExpiry.Seconds())
}

// Issue signs claims merged with iat, exp, iss and a jti. The registered
// claims always win over caller supplied values of the same name.
func (s *Service) Issue(claims map[string]any) (string, error) {
	now := s.clock.Now()

	merged := make(jwt.MapClaims, len(claims)+4)
	maps.Copy(merged, claims)
	merged[ClaimIssuedAt] = now.Unix()
	merged[ClaimExpiresAt] = now.Add(s.accessExpiry).Unix()
	merged[ClaimIssuer] = s.issuer
	if _, ok := merged[ClaimTokenID]; !ok {
		merged[ClaimTokenID] = uuid.NewString()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, merged).SignedString(s.secret)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to sign access token", zap.Error(err))
		}
		return "", fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	return signed, nil
}

// Verify checks structure, signature (constant time), issuer and expiry, and
// returns the decoded claims. Expiry must be strictly after the current time.
func (s *Service) Verify(tokenString string) (map[string]any, error) {
	if strings.Count(tokenString, ".") != 2 {
		s.rejected("wrong segment count", nil)
		return nil, ErrInvalidToken
	}

	token, err := s.parser.Parse(tokenString, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		s.rejected("parse failed", err)
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		s.rejected("unexpected claims type", nil)
		return nil, ErrInvalidToken
	}

	return map[string]any(claims), nil
}

func (s *Service) rejected(reason string, err error) {
	if s.logger == nil {
		return
	}
	fields := []zap.Field{zap.String("reason", reason)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.logger.Debug("access token rejected", fields...)
}
