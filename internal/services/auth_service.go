package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/applejunice/Applehome/internal/audit"
	"github.com/applejunice/Applehome/internal/models"
)

// AuthResponse is the outcome of a successful login. Account is nil for the
// administrator.
type AuthResponse struct {
	Token     string
	ExpiresAt time.Time
	Principal models.Principal
	Account   *models.Account
}

// AuthService ties credential checks, throttling and token issuance together
// for login and registration.
type AuthService struct {
	credentials *CredentialService
	tokens      *TokenService
	limiter     *LoginLimiter
	audit       *audit.AuditLogger
	logger      *zap.Logger
}

func NewAuthService(credentials *CredentialService, tokens *TokenService, limiter *LoginLimiter, auditor *audit.AuditLogger, logger *zap.Logger) *AuthService {
	return &AuthService{
		credentials: credentials,
		tokens:      tokens,
		limiter:     limiter,
		audit:       auditor,
		logger:      logger.With(zap.String("component", "auth")),
	}
}

// Login checks the configured administrator first, then account holders.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := s.credentials.validator.ValidateStruct(&req); err != nil {
		return nil, err
	}
	if err := s.limiter.Allow(ctx, req.Username); err != nil {
		s.logger.Warn("Login throttled", zap.String("username", req.Username))
		s.audit.LogOperation(ctx, audit.EventLogin, req.Username, audit.StatusFailed, map[string]string{"reason": "throttled"})
		return nil, err
	}

	var (
		principal models.Principal
		account   *models.Account
	)
	if s.credentials.AuthenticateAdmin(req.Username, req.Password) {
		principal = models.AdminPrincipal(req.Username)
	} else {
		var err error
		account, err = s.credentials.Authenticate(ctx, req.Username, req.Password)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				s.limiter.RecordFailure(ctx, req.Username)
				s.audit.LogOperation(ctx, audit.EventLogin, req.Username, audit.StatusFailed, map[string]string{"reason": "invalid credentials"})
			}
			return nil, err
		}
		principal = models.HolderPrincipal(account)
	}
	s.limiter.Reset(ctx, req.Username)

	token, expiresAt, err := s.tokens.Issue(principal, s.tokens.DefaultTTL())
	if err != nil {
		return nil, err
	}
	principal.ExpiresAt = expiresAt

	s.logger.Info("Login successful",
		zap.String("username", principal.SubjectName),
		zap.String("role", string(principal.Role)))
	s.audit.LogOperation(ctx, audit.EventLogin, principal.SubjectName, audit.StatusSuccess, map[string]string{"role": string(principal.Role)})

	return &AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Principal: principal,
		Account:   account,
	}, nil
}
