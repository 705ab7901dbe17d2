package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"

	"github.com/chefserve/chef-vendor/internal/domain"
	"github.com/chefserve/chef-vendor/internal/platform/mailer"
	"github.com/chefserve/chef-vendor/internal/repo/postgres"
	"github.com/chefserve/chef-vendor/pkg/auth"
	"github.com/chefserve/chef-vendor/pkg/config"
	"github.com/chefserve/chef-vendor/pkg/events"
	"github.com/chefserve/chef-vendor/pkg/logger"
)

type AuthService interface {
	CheckUser(ctx context.Context, phone string) (bool, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error)
	Register(ctx context.Context, req *domain.CreateUserRequest) (*domain.AuthResponse, error)
	SendOtp(ctx context.Context, req *domain.SendOtpRequest) (string, error)
	VerifyOtp(ctx context.Context, req *domain.VerifyOtpRequest) (bool, error)
	NotifyLogin(ctx context.Context, req *domain.LoginNotifyRequest) error
	NotifyRegister(ctx context.Context, req *domain.RegisterNotifyRequest) error
}

type authService struct {
	userRepo postgres.UserRepository
	otpRepo  postgres.OtpRepository
	mailer   mailer.Service
	eventBus events.Publisher
	config   *config.Config
}

func NewAuthService(
	userRepo postgres.UserRepository,
	otpRepo postgres.OtpRepository,
	mailer mailer.Service,
	eventBus events.Publisher,
	config *config.Config,
) AuthService {
	return &authService{
		userRepo: userRepo,
		otpRepo:  otpRepo,
		mailer:   mailer,
		eventBus: eventBus,
		config:   config,
	}
}

func (s *authService) CheckUser(ctx context.Context, phone string) (bool, error) {
	req := domain.LoginRequest{Phone: phone}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return false, fmt.Errorf("validation failed: %w", err)
	}

	return s.userRepo.ExistsByPhone(ctx, req.Phone)
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.userRepo.FindByPhone(ctx, req.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || user.Role != req.Role {
		return &domain.AuthResponse{
			Success: false,
			Message: "no vendor account found for this number",
		}, nil
	}

	token, err := auth.NewVendorToken(user.ID, user.Email, s.config.Auth.JWTSecret, s.config.Auth.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.UserLoggedIn, events.UserLoggedInEvent{
		UserID:     user.ID,
		Phone:      user.Phone,
		LoggedInAt: time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish login event", "error", err, "user_id", user.ID)
	}

	return &domain.AuthResponse{
		Success:     true,
		User:        user.Info(),
		AccessToken: token,
		ExpiresIn:   int64(s.config.Auth.AccessTokenTTL.Seconds()),
	}, nil
}

func (s *authService) Register(ctx context.Context, req *domain.CreateUserRequest) (*domain.AuthResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	existing, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return &domain.AuthResponse{
			Success: false,
			Message: "an account with this email already exists",
		}, nil
	}

	taken, err := s.userRepo.ExistsByPhone(ctx, req.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing phone: %w", err)
	}
	if taken {
		return &domain.AuthResponse{
			Success: false,
			Message: "an account with this phone already exists",
		}, nil
	}

	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.Create(ctx, req, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := auth.NewVendorToken(user.ID, user.Email, s.config.Auth.JWTSecret, s.config.Auth.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.UserRegistered, events.UserRegisteredEvent{
		UserID:       user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Phone:        user.Phone,
		KYCStatus:    user.KYCStatus,
		RegisteredAt: user.CreatedAt,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish registration event", "error", err, "user_id", user.ID)
	}

	return &domain.AuthResponse{
		Success:     true,
		User:        user.Info(),
		AccessToken: token,
		ExpiresIn:   int64(s.config.Auth.AccessTokenTTL.Seconds()),
	}, nil
}

// SendOtp issues a fresh code for the requested channel, stores its hash,
// and returns the plaintext code to the caller. Phone delivery rides the
// notification bus; email goes straight through the mailer.
func (s *authService) SendOtp(ctx context.Context, req *domain.SendOtpRequest) (string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}

	code, err := generateCode(s.config.Auth.OtpLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}

	identifier := req.Identifier()
	expiresAt := time.Now().Add(s.config.Auth.OtpTTL)

	if err := s.otpRepo.Create(ctx, identifier, string(codeHash), expiresAt); err != nil {
		return "", fmt.Errorf("failed to store code: %w", err)
	}

	channel := "phone"
	if req.Email != "" {
		channel = "email"
		if err := s.mailer.SendOtpEmail(req.Email, code); err != nil {
			return "", fmt.Errorf("failed to send code: %w", err)
		}
	} else {
		// SMS delivery is handled by the notification worker.
		if err := s.eventBus.Publish(ctx, events.NotifySend, events.NotificationEvent{
			Type:      "otp_sms",
			Recipient: req.Phone,
			Subject:   "Your ChefServe verification code",
			Data:      map[string]interface{}{"code": code},
		}); err != nil {
			return "", fmt.Errorf("failed to queue sms: %w", err)
		}
	}

	if err := s.eventBus.Publish(ctx, events.OtpIssued, events.OtpIssuedEvent{
		Channel:    channel,
		Identifier: identifier,
		ExpiresAt:  expiresAt,
		IssuedAt:   time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish otp event", "error", err, "identifier", identifier)
	}

	return code, nil
}

// VerifyOtp checks a submitted code server-side. Wrong codes burn an
// attempt; a match consumes the code.
func (s *authService) VerifyOtp(ctx context.Context, req *domain.VerifyOtpRequest) (bool, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return false, fmt.Errorf("validation failed: %w", err)
	}

	return s.otpRepo.CheckCode(ctx, req.Identifier(), req.Code)
}

func (s *authService) NotifyLogin(ctx context.Context, req *domain.LoginNotifyRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := s.mailer.SendLoginAlert(req.Email, req.IP, req.Device); err != nil {
		return fmt.Errorf("failed to send login alert: %w", err)
	}
	return nil
}

func (s *authService) NotifyRegister(ctx context.Context, req *domain.RegisterNotifyRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := s.mailer.SendWelcomeEmail(req.Email, req.Name, req.IP, req.Device); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}

// generateCode draws n digits from crypto/rand. Leading zeros are kept.
func generateCode(n int) (string, error) {
	if n <= 0 {
		n = domain.OtpLength
	}

	digits := make([]byte, n)
	for i := range digits {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits), nil
}
