package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/rowflow/internal/auth"
	"github.com/mmynk/rowflow/internal/metrics"
	"github.com/mmynk/rowflow/internal/models"
	"github.com/mmynk/rowflow/pkg/api"
	"github.com/mmynk/rowflow/pkg/api/apiconnect"
)

// Ensure AuthService implements the handler interface
var _ apiconnect.AuthServiceHandler = (*AuthService)(nil)

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service. m may be nil.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, m *metrics.Metrics, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		metrics:       m,
		logger:        logger,
	}
}

// Register creates a new account and returns a token for it.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error) {
	s.logger.Info("Register request", "username", req.Msg.Username)

	account, err := s.authenticator.Register(ctx, req.Msg.Username, req.Msg.Password)
	if err != nil {
		s.countRegistration(registrationResult(err))
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			s.logger.Warn("Registration rejected", "username", req.Msg.Username, "error", err)
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		case errors.Is(err, auth.ErrUsernameTaken):
			s.logger.Warn("Registration rejected", "username", req.Msg.Username, "error", err)
			return nil, connect.NewError(connect.CodeAlreadyExists, err)
		}
		s.logger.Error("Registration failed", "username", req.Msg.Username, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	s.countRegistration("ok")

	token, expires, err := s.jwtManager.Generate(account)
	if err != nil {
		s.logger.Error("Failed to generate token", "storage_id", account.StorageID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Account registered", "username", account.Username, "storage_id", account.StorageID)
	return connect.NewResponse(&api.RegisterResponse{
		Account:   toAPIAccount(account),
		Token:     token,
		ExpiresAt: expires.UTC().Format(time.RFC3339),
	}), nil
}

// Login authenticates an account and returns a JWT token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	s.logger.Info("Login request", "username", req.Msg.Username)

	if req.Msg.Username == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidInput)
	}

	account, err := s.authenticator.Authenticate(ctx, req.Msg.Username, req.Msg.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Warn("Login failed", "username", req.Msg.Username)
			return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
		}
		s.logger.Error("Login failed", "username", req.Msg.Username, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	token, expires, err := s.jwtManager.Generate(account)
	if err != nil {
		s.logger.Error("Failed to generate token", "storage_id", account.StorageID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Logged in", "username", account.Username)
	return connect.NewResponse(&api.LoginResponse{
		Account:   toAPIAccount(account),
		Token:     token,
		ExpiresAt: expires.UTC().Format(time.RFC3339),
	}), nil
}

func (s *AuthService) countRegistration(result string) {
	if s.metrics != nil {
		s.metrics.Registrations.WithLabelValues(result).Inc()
	}
}

func registrationResult(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, auth.ErrUsernameTaken):
		return "conflict"
	default:
		return "error"
	}
}

func toAPIAccount(a *models.Account) *api.Account {
	return &api.Account{
		Username:  a.Username,
		CreatedAt: models.FormatTimestamp(a.CreatedAt),
	}
}
