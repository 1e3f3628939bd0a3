package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mmynk/receiptbook/internal/auth"
	"github.com/mmynk/receiptbook/internal/models"
	"github.com/mmynk/receiptbook/internal/storage"
)

// Session is the result of a successful register or login.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt int64        `json:"expires_at"`
	User      *models.User `json:"user"`
}

// AccountService registers users and their devices.
type AccountService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	devices       storage.DeviceRepository
	callers       *Callers
	logger        *slog.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(
	authenticator auth.Authenticator,
	jwtManager *auth.JWTManager,
	devices storage.DeviceRepository,
	callers *Callers,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		devices:       devices,
		callers:       callers,
		logger:        logger,
	}
}

// Register creates a new user account and signs it in.
func (s *AccountService) Register(ctx context.Context, email, displayName, password string) (*Session, error) {
	s.logger.Info("Register request", "email", email)

	if strings.TrimSpace(displayName) == "" {
		return nil, storage.NewValidationError("display_name", "is required")
	}

	user, err := s.authenticator.Register(ctx, email, displayName, password)
	if err != nil {
		s.logger.Error("Registration failed", "email", email, "error", err)
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, storage.NewValidationError("password", "%s", err.Error())
		}
		if errors.Is(err, auth.ErrInvalidEmail) {
			return nil, storage.NewValidationError("email", "%s", err.Error())
		}
		return nil, err
	}

	session, err := s.session(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User registered", "user_id", user.ID)
	return session, nil
}

// Login authenticates a user and returns a new session.
func (s *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	s.logger.Info("Login request", "email", email)

	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login failed", "email", email, "error", err)
		return nil, err
	}

	session, err := s.session(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User logged in", "user_id", user.ID)
	return session, nil
}

// RegisterDevice records a device under the calling user.
func (s *AccountService) RegisterDevice(ctx context.Context, who Identity, d *models.UserDevice) error {
	s.logger.Info("RegisterDevice request", "user_id", who.UserID, "device_id", d.ID)

	// The device is what is being registered, so only the user is checked.
	if err := s.callers.Check(ctx, Identity{UserID: who.UserID}); err != nil {
		return err
	}
	ensureID(&d.ID)
	d.UserID = who.UserID
	if d.CreatedAt == 0 {
		d.CreatedAt = time.Now().Unix()
	}
	if err := s.devices.Register(ctx, d); err != nil {
		s.logger.Error("RegisterDevice failed", "device_id", d.ID, "error", err)
		return err
	}
	return nil
}

// ListDevices returns the devices of the calling user.
func (s *AccountService) ListDevices(ctx context.Context, who Identity) ([]*models.UserDevice, error) {
	if err := s.callers.Check(ctx, Identity{UserID: who.UserID}); err != nil {
		return nil, err
	}
	return s.devices.ListByUser(ctx, who.UserID)
}

// Me returns the calling user.
func (s *AccountService) Me(ctx context.Context, who Identity) (*models.User, error) {
	return s.callers.User(ctx, who)
}

func (s *AccountService) session(user *models.User) (*Session, error) {
	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, err
	}
	return &Session{
		Token:     token,
		ExpiresAt: time.Now().Add(s.jwtManager.TokenDuration()).Unix(),
		User:      user,
	}, nil
}
