package api

import (
	"errors"
	"fitdesk/backoffice/internal/domain"
	"fitdesk/backoffice/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler serves account registration and token issuance.
type AuthHandler struct {
	auth   service.AuthService
	logger *zap.Logger
}

func NewAuthHandler(auth service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger.Named("auth")}
}

type SignUpRequest struct {
	Name     string      `json:"name" binding:"required,max=120"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=8"`
	Role     domain.Role `json:"role" binding:"required,oneof=trainer client"`
}

type CredentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AccountResponse is the public view of a user; the password hash never leaves the service.
type AccountResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

type TokenResponse struct {
	Token   string          `json:"token"`
	Account AccountResponse `json:"user"`
}

// Register godoc
// @Summary Create a trainer or client account
// @Tags Auth
// @Param account body SignUpRequest true "Account"
// @Success 201 {object} AccountResponse
// @Failure 409 {object} gin.H "Email taken"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		h.fail(c, "register", err)
		return
	}
	h.logger.Info("account created", zap.String("user_id", user.ID.Hex()), zap.String("role", string(user.Role)))
	c.JSON(http.StatusCreated, toAccountResponse(user))
}

// Login godoc
// @Summary Exchange email and password for a bearer token
// @Tags Auth
// @Param credentials body CredentialsRequest true "Credentials"
// @Success 200 {object} TokenResponse
// @Failure 401 {object} gin.H "Bad credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	token, user, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, "login", err)
		return
	}
	c.JSON(http.StatusOK, TokenResponse{Token: token, Account: toAccountResponse(user)})
}

// Me echoes the identity carried by the bearer token.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	role, _ := getUserRoleFromContext(c)
	c.JSON(http.StatusOK, gin.H{"userId": userID, "role": role})
}

func (h *AuthHandler) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrUserAlreadyExists):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidRole):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAuthenticationFailed):
		abortWithError(c, http.StatusUnauthorized, err.Error())
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "internal error")
	}
}

func toAccountResponse(u *domain.User) AccountResponse {
	if u == nil {
		return AccountResponse{}
	}
	return AccountResponse{
		ID:        u.ID.Hex(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
