package businessflow

import (
	"context"
	"strings"
	"time"

	"github.com/amirphl/rotalink/app/dto"
	"github.com/amirphl/rotalink/app/services"
	"github.com/amirphl/rotalink/models"
	"github.com/amirphl/rotalink/repository"
	"github.com/amirphl/rotalink/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuthFlow represents the admin authentication flow used by handlers and the CLI
type AdminAuthFlow interface {
	Login(ctx context.Context, req *dto.AdminLoginRequest) (*dto.AdminLoginResponse, error)
	CreateAdmin(ctx context.Context, username, password string) (*dto.AdminDTO, error)
}

// AdminAuthFlowImpl provides admin credential verification and account creation
type AdminAuthFlowImpl struct {
	adminRepo      repository.AdminRepository
	tokenService   services.TokenService
	bcryptCost     int
	passwordMinLen int
	logger         *zap.Logger
}

func NewAdminAuthFlow(adminRepo repository.AdminRepository, tokenService services.TokenService, bcryptCost, passwordMinLen int, logger *zap.Logger) AdminAuthFlow {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AdminAuthFlowImpl{
		adminRepo:      adminRepo,
		tokenService:   tokenService,
		bcryptCost:     bcryptCost,
		passwordMinLen: passwordMinLen,
		logger:         logger,
	}
}

func (af *AdminAuthFlowImpl) Login(ctx context.Context, req *dto.AdminLoginRequest) (*dto.AdminLoginResponse, error) {
	// Validate request
	if req == nil || len(req.Username) == 0 || len(req.Password) == 0 {
		return nil, NewBusinessError("ADMIN_LOGIN_VALIDATION_FAILED", "Admin login validation failed", ErrIncorrectPassword)
	}

	// Lookup admin
	admin, err := af.adminRepo.ByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, NewBusinessError("ADMIN_LOOKUP_FAILED", "Failed to lookup admin", err)
	}
	if admin == nil {
		return nil, NewBusinessError("ADMIN_NOT_FOUND", "Admin not found", ErrAdminNotFound)
	}
	if !utils.IsTrue(admin.IsActive) {
		return nil, NewBusinessError("ADMIN_INACTIVE", "Admin account is inactive", ErrAdminInactive)
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		return nil, NewBusinessError("ADMIN_INCORRECT_PASSWORD", "Incorrect password", ErrIncorrectPassword)
	}

	accessToken, expiresAt, err := af.tokenService.GenerateAdminToken(admin.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}

	if err := af.adminRepo.TouchLastLogin(ctx, admin.ID, utils.UTCNow()); err != nil {
		af.logger.Warn("failed to record admin login", zap.Uint("admin_id", admin.ID), zap.Error(err))
	}

	return &dto.AdminLoginResponse{
		Admin: ToAdminDTO(*admin),
		Session: dto.AdminSessionDTO{
			AccessToken: accessToken,
			ExpiresIn:   int(time.Until(expiresAt).Seconds()),
			TokenType:   "Bearer",
			ExpiresAt:   formatTime(expiresAt),
		},
	}, nil
}

// CreateAdmin stores a new active admin with a bcrypt password hash
func (af *AdminAuthFlowImpl) CreateAdmin(ctx context.Context, username, password string) (*dto.AdminDTO, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(password) < af.passwordMinLen {
		return nil, NewBusinessError("ADMIN_VALIDATION_FAILED", "Username or password too short", ErrWeakCredentials)
	}

	existing, err := af.adminRepo.ByUsername(ctx, username)
	if err != nil {
		return nil, NewBusinessError("ADMIN_LOOKUP_FAILED", "Failed to lookup admin", err)
	}
	if existing != nil {
		return nil, NewBusinessError("ADMIN_USERNAME_TAKEN", "Username already exists", ErrUsernameTaken)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), af.bcryptCost)
	if err != nil {
		return nil, NewBusinessError("PASSWORD_HASH_FAILED", "Failed to hash password", err)
	}

	admin := &models.Admin{
		UUID:         uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		IsActive:     utils.ToPtr(true),
	}
	if err := af.adminRepo.Save(ctx, admin); err != nil {
		return nil, NewBusinessError("ADMIN_CREATE_FAILED", "Failed to create admin", err)
	}

	af.logger.Info("admin created", zap.String("admin_uuid", admin.UUID.String()), zap.String("username", username))
	out := ToAdminDTO(*admin)
	return &out, nil
}
