package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/taskman-api/internal/api/shared"
	"github.com/phrazzld/taskman-api/internal/config"
	"github.com/phrazzld/taskman-api/internal/platform/logger"
	"github.com/phrazzld/taskman-api/internal/service"
	"github.com/phrazzld/taskman-api/internal/service/auth"
	"github.com/phrazzld/taskman-api/internal/store"
)

const tokenTypeBearer = "bearer"

// AuthHandler handles registration, login and token refresh.
type AuthHandler struct {
	userService service.UserService
	jwtService  auth.JWTService
	authConfig  config.AuthConfig
	logger      *slog.Logger
	timeFunc    func() time.Time
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	userService service.UserService,
	jwtService auth.JWTService,
	authConfig config.AuthConfig,
	logger *slog.Logger,
) *AuthHandler {
	if userService == nil || jwtService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("userService and jwtService are required for AuthHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		userService: userService,
		jwtService:  jwtService,
		authConfig:  authConfig,
		logger:      logger.With(slog.String("component", "auth_handler")),
		timeFunc:    time.Now,
	}
}

// WithTimeFunc replaces the clock used for expires_at; for tests.
func (h *AuthHandler) WithTimeFunc(fn func() time.Time) *AuthHandler {
	h.timeFunc = fn
	return h
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req RegisterRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	user, err := h.userService.CreateUser(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create user")
		return
	}

	resp, err := h.issueTokens(r, user.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate authentication token")
		return
	}
	resp.User = userToResponse(user)

	log.Info("user registered", slog.Int64("user_id", user.ID))
	shared.RespondWithJSON(w, r, http.StatusCreated, resp)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req LoginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to authenticate user")
		return
	}

	resp, err := h.issueTokens(r, user.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate authentication token")
		return
	}
	resp.User = userToResponse(user)

	log.Debug("user logged in", slog.Int64("user_id", user.ID))
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// RefreshToken handles POST /api/auth/refresh. It exchanges a valid refresh
// token for a new token pair, provided the user still exists.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req RefreshTokenRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		if !errors.Is(err, auth.ErrExpiredRefreshToken) && !errors.Is(err, auth.ErrWrongTokenType) {
			err = errors.Join(auth.ErrInvalidRefreshToken, err)
		}
		HandleAPIError(w, r, err, "")
		return
	}

	if _, err := h.userService.GetUser(r.Context(), claims.UserID); err != nil {
		if errors.Is(err, service.ErrNotFoundOrForbidden) || errors.Is(err, store.ErrUserNotFound) {
			log.Warn("refresh token for unknown user", slog.Int64("user_id", claims.UserID))
			HandleAPIError(w, r, auth.ErrInvalidRefreshToken, "")
			return
		}
		HandleAPIError(w, r, err, "Failed to refresh token")
		return
	}

	resp, err := h.issueTokens(r, claims.UserID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate authentication token")
		return
	}

	log.Debug("token refreshed", slog.Int64("user_id", claims.UserID))
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

func (h *AuthHandler) issueTokens(r *http.Request, userID int64) (*AuthResponse, error) {
	access, err := h.jwtService.GenerateToken(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	refresh, err := h.jwtService.GenerateRefreshToken(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	expiresAt := h.timeFunc().UTC().Add(time.Duration(h.authConfig.TokenLifetimeMinutes) * time.Minute)
	return &AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresAt:    expiresAt.Format(time.RFC3339),
	}, nil
}
