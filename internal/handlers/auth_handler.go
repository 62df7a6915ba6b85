package handlers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/applejunice/Applehome/internal/middleware"
	"github.com/applejunice/Applehome/internal/services"
)

type AuthHandler struct {
	credentials *services.CredentialService
	auth        *services.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(credentials *services.CredentialService, auth *services.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		credentials: credentials,
		auth:        auth,
		logger:      logger.With(zap.String("component", "auth_handler")),
	}
}

type RegisterResponse struct {
	Success bool            `json:"success" example:"true"`
	Message string          `json:"message" example:"registration completed"`
	User    AccountResponse `json:"user"`
}

type LoginResponse struct {
	Success   bool            `json:"success" example:"true"`
	Message   string          `json:"message" example:"login successful"`
	Token     string          `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	ExpiresAt time.Time       `json:"expires_at"`
	User      AccountResponse `json:"user"`
}

type MeResponse struct {
	Success bool            `json:"success" example:"true"`
	User    AccountResponse `json:"user"`
}

// Register creates an account
// @Summary Register a new account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.RegisterRequest true "Registration request"
// @Success 201 {object} RegisterResponse
// @Failure 400 {object} services.ErrorResponse "Invalid input or username taken"
// @Failure 429 {object} services.ErrorResponse
// @Router /api/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(h.logger, w, r, err)
		return
	}

	balance := decimal.Zero
	if req.Balance != nil {
		balance = *req.Balance
	}

	account, err := h.credentials.Register(r.Context(), req.Username, req.Password, balance)
	if err != nil {
		respondError(h.logger, w, r, err)
		return
	}

	services.SendJSON(w, http.StatusCreated, RegisterResponse{
		Success: true,
		Message: "registration completed",
		User:    accountView(account),
	})
}

// Login authenticates a holder or the administrator
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.LoginRequest true "Login request"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse "Invalid credentials"
// @Failure 429 {object} services.ErrorResponse "Too many failed attempts"
// @Router /api/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(h.logger, w, r, err)
		return
	}

	resp, err := h.auth.Login(r.Context(), req)
	if err != nil {
		respondError(h.logger, w, r, err)
		return
	}

	out := LoginResponse{
		Success:   true,
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
	}
	if resp.Account == nil {
		out.Message = "admin login successful"
		out.User = AccountResponse{ID: resp.Principal.SubjectID, Username: resp.Principal.SubjectName, IsAdmin: boolPtr(true)}
	} else {
		out.Message = "login successful"
		out.User = accountView(resp.Account)
		out.User.IsAdmin = boolPtr(false)
	}
	services.SendJSON(w, http.StatusOK, out)
}

// Me returns the caller's profile
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MeResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /api/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(h.logger, w, r, services.ErrUnauthenticated)
		return
	}

	id, isHolder := principal.AccountID()
	if !isHolder {
		services.SendJSON(w, http.StatusOK, MeResponse{
			Success: true,
			User:    AccountResponse{ID: principal.SubjectID, Username: principal.SubjectName, IsAdmin: boolPtr(true)},
		})
		return
	}

	account, err := h.credentials.GetByID(r.Context(), id)
	if err != nil {
		respondError(h.logger, w, r, err)
		return
	}

	user := accountView(account)
	user.IsAdmin = boolPtr(false)
	user.CreatedAt = &account.CreatedAt
	services.SendJSON(w, http.StatusOK, MeResponse{Success: true, User: user})
}
