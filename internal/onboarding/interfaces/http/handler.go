package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"
	identitydomain "github.com/wyfcoding/talentmarket/internal/identity/domain"
	"github.com/wyfcoding/talentmarket/internal/onboarding/application"
	"github.com/wyfcoding/talentmarket/internal/onboarding/domain"
)

// maxMediaBytes 介绍媒体单文件上限
const maxMediaBytes = 64 << 20

// OnboardingHandler 入驻流程 HTTP 处理器
type OnboardingHandler struct {
	resolver     *application.AccountResolver
	orchestrator *application.StepOrchestrator
	enrollment   *application.EnrollmentEngine
	checker      *application.HandleChecker
}

// NewOnboardingHandler 创建入驻处理器实例
func NewOnboardingHandler(
	resolver *application.AccountResolver,
	orchestrator *application.StepOrchestrator,
	enrollment *application.EnrollmentEngine,
	checker *application.HandleChecker,
) *OnboardingHandler {
	return &OnboardingHandler{
		resolver:     resolver,
		orchestrator: orchestrator,
		enrollment:   enrollment,
		checker:      checker,
	}
}

// RegisterRoutes 注册路由
func (h *OnboardingHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/onboarding")
	{
		api.POST("/start", h.Start)
		api.GET("/resume", h.Resume)
		api.GET("/handle-availability", h.CheckHandle)

		api.POST("/profiles/:id/steps/:step", h.SubmitStep)
		api.GET("/profiles/:id/steps/:step", h.GetStep)
		api.POST("/profiles/:id/media", h.UploadMedia)

		security := api.Group("/profiles/:id/security")
		{
			security.POST("/start", h.SecurityStart)
			security.GET("", h.SecurityState)
			security.POST("/begin", h.SecurityBegin)
			security.POST("/totp", h.SecurityChooseTOTP)
			security.POST("/phone", h.SecurityChoosePhone)
			security.POST("/phone/number", h.SecuritySubmitPhone)
			security.POST("/proceed", h.SecurityProceed)
			security.POST("/resend", h.SecurityResend)
			security.POST("/verify", h.SecurityVerify)
			security.POST("/switch", h.SecuritySwitch)
			security.POST("/cancel", h.SecurityCancel)
			security.POST("/skip", h.SecuritySkip)
		}
	}
}

type startRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required"`
	InviteToken string `json:"invite_token"`
}

// Start 入驻起点：解析或创建账户并绑定档案
func (h *OnboardingHandler) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	resolution, err := h.resolver.ResolveOrCreate(c.Request.Context(), application.StartOnboardingCommand{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		InviteToken: req.InviteToken,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, resolution)
}

// Resume 恢复中断的入驻会话；key 为 userID 或受邀 token
func (h *OnboardingHandler) Resume(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "key is required", "")
		return
	}

	result, err := h.orchestrator.Resume(c.Request.Context(), key)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, result)
}

// CheckHandle handle 可用性探测（建议性；防抖在前端，服务端直接查）
func (h *OnboardingHandler) CheckHandle(c *gin.Context) {
	handle := c.Query("handle")
	if handle == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "handle is required", "")
		return
	}

	status, err := h.checker.Check(c.Request.Context(), handle, c.Query("exclude_profile_id"))
	if err != nil {
		var validation *domain.ValidationError
		if errors.As(err, &validation) {
			response.Success(c, gin.H{"handle": handle, "status": status, "reason": validation.Reason})
			return
		}
		writeDomainError(c, err)
		return
	}
	response.Success(c, gin.H{"handle": handle, "status": status})
}

type submitStepRequest struct {
	Profile      *domain.ProfilePayload      `json:"profile"`
	Monetization *domain.MonetizationPayload `json:"monetization"`
	Media        *domain.MediaPayload        `json:"media"`
}

// SubmitStep 提交一个步骤
func (h *OnboardingHandler) SubmitStep(c *gin.Context) {
	step, ok := parseStep(c)
	if !ok {
		return
	}
	var req submitStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.orchestrator.SubmitStep(c.Request.Context(), application.SubmitStepCommand{
		ProfileID: c.Param("id"),
		Step:      step,
		Payload: domain.StepPayload{
			Profile:      req.Profile,
			Monetization: req.Monetization,
			Media:        req.Media,
		},
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, result)
}

// GetStep 回退导航：查看已持久化的步骤数据
func (h *OnboardingHandler) GetStep(c *gin.Context) {
	step, ok := parseStep(c)
	if !ok {
		return
	}

	view, err := h.orchestrator.GetStep(c.Request.Context(), c.Param("id"), step)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, view)
}

// UploadMedia 上传介绍媒体，返回公开地址
func (h *OnboardingHandler) UploadMedia(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "file is required", "")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxMediaBytes+1))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "failed to read upload", "")
		return
	}
	if len(content) > maxMediaBytes {
		response.ErrorWithStatus(c, http.StatusBadRequest, "file exceeds size limit", "")
		return
	}

	url, err := h.orchestrator.UploadIntroMedia(c.Request.Context(), c.Param("id"), header.Filename, content)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, gin.H{"url": url})
}

// SecurityStart 进入安全步骤（含既有因子预检）
func (h *OnboardingHandler) SecurityStart(c *gin.Context) {
	h.enrollmentCall(c, func() (*application.EnrollmentView, error) {
		return h.enrollment.Start(c.Request.Context(), c.Param("id"))
	})
}

// SecurityState 当前登记状态
func (h *OnboardingHandler) SecurityState(c *gin.Context) {
	h.enrollmentCall(c, func() (*application.EnrollmentView, error) {
		return h.enrollment.State(c.Request.Context(), c.Param("id"))
	})
}

// SecurityBegin intro → method-select
func (h *OnboardingHandler) SecurityBegin(c *gin.Context) {
	h.enrollmentCall(c, func() (*application.EnrollmentView, error) {
		return h.enrollment.Begin(c.Request.Context(), c.Param("id"))
	})
}

// SecurityChooseTOTP 选择认证器策略
func (h *OnboardingHandler) SecurityChooseTOTP(c *gin.Context) {
	h.enrollmentCall(c, func() (*application.EnrollmentView, error) {
		return h.enrollment.ChooseTOTP(c.Request.Context(), c.Param("id"))
	})
}

// SecurityChoosePhone 选择短信策略
func (h *OnboardingHandler) SecurityChoosePhone(c *gin.Context) {
	h.enrollmentCall(c, func() (*application.EnrollmentView, error) {
		return h.enrollment.ChoosePhone(c.Request.Context(), c.Param("id"))
	})
}

type submitPhoneRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

// SecuritySubmitPhone 提交手机号并下发验证码
func (h *OnboardingHandler) SecuritySubmitPhone(c *gin.Context) {
	var req submitPhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	h.enrollmentCall(c, func() (*application.EnrollmentView, error) {
		return h.enrollment.SubmitPhone(c.Request.Context(), c.Param("id"), req.PhoneNumber)
	})
}

// SecurityProceed 已扫码，进入校验
func (h *OnboardingHandler) SecurityProceed(c *gin.Context) {
	h.enrollmentCall(c, func() (*application.EnrollmentView, error) {
		return h.enrollment.Proceed(c.Request.Context(), c.Param("id"))
	})
}

// SecurityResend 重发短信验证码
func (h *OnboardingHandler) SecurityResend(c *gin.Context) {
	h.enrollmentCall(c, func() (*application.EnrollmentView, error) {
		return h.enrollment.Resend(c.Request.Context(), c.Param("id"))
	})
}

type verifyRequest struct {
	Code string `json:"code" binding:"required"`
}

// SecurityVerify 校验验证码；成功即触发完成闸门
func (h *OnboardingHandler) SecurityVerify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	h.enrollmentCall(c, func() (*application.EnrollmentView, error) {
		return h.enrollment.Verify(c.Request.Context(), c.Param("id"), req.Code)
	})
}

// SecuritySwitch 换一种策略
func (h *OnboardingHandler) SecuritySwitch(c *gin.Context) {
	h.enrollmentCall(c, func() (*application.EnrollmentView, error) {
		return h.enrollment.Switch(c.Request.Context(), c.Param("id"))
	})
}

// SecurityCancel 放弃当前录入
func (h *OnboardingHandler) SecurityCancel(c *gin.Context) {
	h.enrollmentCall(c, func() (*application.EnrollmentView, error) {
		return h.enrollment.Cancel(c.Request.Context(), c.Param("id"))
	})
}

// SecuritySkip 显式跳过安全步骤
func (h *OnboardingHandler) SecuritySkip(c *gin.Context) {
	h.enrollmentCall(c, func() (*application.EnrollmentView, error) {
		return h.enrollment.Skip(c.Request.Context(), c.Param("id"))
	})
}

func (h *OnboardingHandler) enrollmentCall(c *gin.Context, call func() (*application.EnrollmentView, error)) {
	view, err := call()
	if err != nil {
		// 短信网关回退：携带回退后的状态返回，前端直接展示策略选择
		var configErr *domain.ConfigurationError
		if errors.As(err, &configErr) && view != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"code":    "SMS_UNAVAILABLE",
				"message": configErr.Error(),
				"data":    view,
			})
			return
		}
		writeDomainError(c, err)
		return
	}
	response.Success(c, view)
}

func parseStep(c *gin.Context) (domain.OnboardingStep, bool) {
	raw := c.Param("step")
	n, err := strconv.Atoi(raw)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid step", "")
		return 0, false
	}
	return domain.OnboardingStep(n), true
}

// writeDomainError 错误分类到 HTTP 状态码的统一映射
func writeDomainError(c *gin.Context, err error) {
	var (
		validation *domain.ValidationError
		conflict   *domain.ConflictError
		transient  *domain.TransientRemoteError
		configErr  *domain.ConfigurationError
		binding    *domain.FatalBindingError
	)

	switch {
	case errors.As(err, &validation):
		response.ErrorWithStatus(c, http.StatusBadRequest, validation.Error(), "VALIDATION_FAILED")
	case errors.As(err, &conflict):
		response.ErrorWithStatus(c, http.StatusConflict, conflict.Error(), "CONFLICT")
	case errors.As(err, &transient):
		logging.Error(c.Request.Context(), "transient onboarding failure", "error", err)
		response.ErrorWithStatus(c, http.StatusBadGateway, transient.Error(), "TRANSIENT")
	case errors.As(err, &configErr):
		response.ErrorWithStatus(c, http.StatusServiceUnavailable, configErr.Error(), "NOT_CONFIGURED")
	case errors.As(err, &binding):
		logging.Error(c.Request.Context(), "fatal binding inconsistency", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, binding.Error(), "BINDING_FATAL")
	case errors.Is(err, domain.ErrProfileNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, identitydomain.ErrInvalidCredentials):
		// 已注册但密码不对：前端提示"改为登录"
		response.ErrorWithStatus(c, http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, identitydomain.ErrConfirmationPending):
		response.ErrorWithStatus(c, http.StatusConflict, err.Error(), "CONFIRMATION_PENDING")
	default:
		logging.Error(c.Request.Context(), "unhandled onboarding error", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "internal error", "")
	}
}
