package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/auth"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

type AuthServiceImpl struct {
	auth.AdminRepository
	jwt.Service
}

func NewAuthService(adminRepository auth.AdminRepository, jwtService jwt.Service) auth.AuthService {
	return &AuthServiceImpl{
		AdminRepository: adminRepository,
		Service:         jwtService,
	}
}

func (a *AuthServiceImpl) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login implements auth.AuthService.
func (a *AuthServiceImpl) Login(ctx context.Context, loginReq auth.LoginRequest) (auth.TokenResponse, error) {
	if err := loginReq.Validate(); err != nil {
		return auth.TokenResponse{}, err
	}

	adminData, err := a.AdminRepository.GetByEmail(ctx, loginReq.Email)
	if err != nil {
		if errors.Is(err, auth.ErrAdminNotFound) {
			return auth.TokenResponse{}, auth.ErrInvalidCredentials
		}
		return auth.TokenResponse{}, fmt.Errorf("failed to get admin by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(adminData.PasswordHash), []byte(loginReq.Password)); err != nil {
		return auth.TokenResponse{}, auth.ErrInvalidCredentials
	}

	var tokenResponse auth.TokenResponse
	tokenResponse.AccessToken, tokenResponse.AccessTokenExpiresIn, err = a.Service.GenerateAccessToken(adminData.ID, adminData.Email)
	if err != nil {
		return auth.TokenResponse{}, fmt.Errorf("failed to create access token: %w", err)
	}

	slog.Info("admin logged in", "admin_id", adminData.ID)
	return tokenResponse, nil
}

// CreateAdmin implements auth.AuthService.
func (a *AuthServiceImpl) CreateAdmin(ctx context.Context, req auth.CreateAdminRequest) (auth.AdminResponse, error) {
	if err := req.Validate(); err != nil {
		return auth.AdminResponse{}, err
	}

	hashedPassword, err := a.hashPassword(req.Password)
	if err != nil {
		return auth.AdminResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	created, err := a.AdminRepository.Create(ctx, auth.Admin{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hashedPassword,
	})
	if err != nil {
		return auth.AdminResponse{}, err
	}

	slog.Info("admin created", "admin_id", created.ID, "email", created.Email)
	return auth.NewAdminResponse(created), nil
}

// EnsureAdmin implements auth.AuthService.
func (a *AuthServiceImpl) EnsureAdmin(ctx context.Context, req auth.CreateAdminRequest) (auth.AdminResponse, bool, error) {
	if err := req.Validate(); err != nil {
		return auth.AdminResponse{}, false, err
	}

	existing, err := a.AdminRepository.GetByEmail(ctx, req.Email)
	if err == nil {
		return auth.NewAdminResponse(existing), false, nil
	}
	if !errors.Is(err, auth.ErrAdminNotFound) {
		return auth.AdminResponse{}, false, fmt.Errorf("failed to get admin by email: %w", err)
	}

	created, err := a.CreateAdmin(ctx, req)
	if errors.Is(err, auth.ErrAdminEmailExists) {
		// Lost a race with another seeder.
		existing, err = a.AdminRepository.GetByEmail(ctx, req.Email)
		if err != nil {
			return auth.AdminResponse{}, false, err
		}
		return auth.NewAdminResponse(existing), false, nil
	}
	if err != nil {
		return auth.AdminResponse{}, false, err
	}
	return created, true, nil
}

// Me implements auth.AuthService.
func (a *AuthServiceImpl) Me(ctx context.Context, adminID string) (auth.AdminResponse, error) {
	adminData, err := a.AdminRepository.GetByID(ctx, adminID)
	if err != nil {
		return auth.AdminResponse{}, err
	}
	return auth.NewAdminResponse(adminData), nil
}

// SSEToken implements auth.AuthService.
func (a *AuthServiceImpl) SSEToken(ctx context.Context, adminID string) (auth.SSETokenResponse, error) {
	if _, err := a.AdminRepository.GetByID(ctx, adminID); err != nil {
		return auth.SSETokenResponse{}, err
	}

	token, expiresIn, err := a.Service.GenerateSSEToken(adminID)
	if err != nil {
		return auth.SSETokenResponse{}, fmt.Errorf("failed to create sse token: %w", err)
	}
	return auth.SSETokenResponse{Token: token, ExpiresIn: expiresIn}, nil
}
