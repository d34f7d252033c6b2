package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/talentmarket/internal/identity/application"
	"github.com/wyfcoding/talentmarket/internal/identity/domain"
)

// IdentityHandler 身份存储 HTTP 处理器
type IdentityHandler struct {
	cmd   *application.IdentityCommandService
	query *application.IdentityQueryService
}

// NewIdentityHandler 创建身份处理器实例
func NewIdentityHandler(cmd *application.IdentityCommandService, query *application.IdentityQueryService) *IdentityHandler {
	return &IdentityHandler{cmd: cmd, query: query}
}

// RegisterRoutes 注册路由
func (h *IdentityHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/identity")
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)

		api.GET("/users/:id/factors", h.ListFactors)
		api.POST("/users/:id/factors", h.EnrollFactor)
		api.POST("/factors/:id/challenge", h.ChallengeFactor)
		api.POST("/factors/:id/verify", h.VerifyFactor)
		api.DELETE("/factors/:id", h.UnenrollFactor)
	}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register 创建账户
func (h *IdentityHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.cmd.CreateAccount(c.Request.Context(), application.CreateAccountCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConfirmationPending) && result != nil {
			response.Success(c, gin.H{"user_id": result.UserID, "status": "CONFIRMATION_PENDING"})
			return
		}
		writeIdentityError(c, err)
		return
	}
	response.Success(c, gin.H{
		"user_id":    result.UserID,
		"token":      result.Session.Token,
		"expires_at": result.Session.ExpiresAt,
	})
}

// Login 校验凭证并发放会话
func (h *IdentityHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.cmd.SignIn(c.Request.Context(), application.SignInCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeIdentityError(c, err)
		return
	}
	response.Success(c, gin.H{
		"user_id":    result.UserID,
		"token":      result.Session.Token,
		"expires_at": result.Session.ExpiresAt,
	})
}

// ListFactors 列出用户的二次认证因子
func (h *IdentityHandler) ListFactors(c *gin.Context) {
	factors, err := h.query.ListFactors(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeIdentityError(c, err)
		return
	}
	response.Success(c, factors)
}

type enrollFactorRequest struct {
	Strategy    string `json:"strategy" binding:"required,oneof=TOTP PHONE"`
	PhoneNumber string `json:"phone_number"`
}

// EnrollFactor 登记二次认证因子
func (h *IdentityHandler) EnrollFactor(c *gin.Context) {
	var req enrollFactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.cmd.EnrollFactor(c.Request.Context(), application.EnrollFactorCommand{
		UserID:      c.Param("id"),
		Strategy:    domain.FactorStrategy(req.Strategy),
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		writeIdentityError(c, err)
		return
	}
	response.Success(c, result)
}

// ChallengeFactor 下发短信验证码
func (h *IdentityHandler) ChallengeFactor(c *gin.Context) {
	if err := h.cmd.ChallengeFactor(c.Request.Context(), c.Param("id")); err != nil {
		writeIdentityError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "CHALLENGED"})
}

type verifyFactorRequest struct {
	Code string `json:"code" binding:"required"`
}

// VerifyFactor 校验验证码
func (h *IdentityHandler) VerifyFactor(c *gin.Context) {
	var req verifyFactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	if err := h.cmd.VerifyFactor(c.Request.Context(), c.Param("id"), req.Code); err != nil {
		writeIdentityError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "VERIFIED"})
}

// UnenrollFactor 删除因子
func (h *IdentityHandler) UnenrollFactor(c *gin.Context) {
	if err := h.cmd.UnenrollFactor(c.Request.Context(), c.Param("id")); err != nil {
		writeIdentityError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "REMOVED"})
}

func writeIdentityError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrAlreadyRegistered):
		response.ErrorWithStatus(c, http.StatusConflict, err.Error(), "ALREADY_REGISTERED")
	case errors.Is(err, domain.ErrInvalidCredentials):
		response.ErrorWithStatus(c, http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, domain.ErrConfirmationPending):
		response.ErrorWithStatus(c, http.StatusConflict, err.Error(), "CONFIRMATION_PENDING")
	case errors.Is(err, domain.ErrInvalidCode), errors.Is(err, domain.ErrChallengeRequired):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "INVALID_CODE")
	case errors.Is(err, domain.ErrFactorNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "FACTOR_NOT_FOUND")
	case errors.Is(err, domain.ErrSMSUnavailable):
		response.ErrorWithStatus(c, http.StatusServiceUnavailable, err.Error(), "SMS_UNAVAILABLE")
	default:
		logging.Error(c.Request.Context(), "unhandled identity error", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "internal error", "")
	}
}
