package handler

import (
	"errors"
	"net/http"

	"github.com/folio/internal/service"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type adminLoginRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	MasterKey string `json:"masterKey"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register 注册新账号，成功后直接建立登录会话。
func (a *API) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req, "邮箱和密码不能为空") {
		return
	}

	user, err := a.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		a.handleAuthError(c, err)
		return
	}

	if err := startSession(c, user, false); err != nil {
		a.respondInternal(c, err, "会话保存失败")
		return
	}

	respondOK(c, http.StatusCreated, gin.H{"user": privateUserPayload(*user)})
}

// Login 校验邮箱与密码并建立普通用户会话。
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, "邮箱和密码不能为空") {
		return
	}

	user, err := a.auth.Authenticate(req.Email, req.Password)
	if err != nil {
		a.handleAuthError(c, err)
		return
	}

	if err := startSession(c, user, false); err != nil {
		a.respondInternal(c, err, "会话保存失败")
		return
	}

	respondOK(c, http.StatusOK, gin.H{"user": privateUserPayload(*user)})
}

// AdminLogin 在密码之外还要求主密钥，成功后会话带有管理员标记。
func (a *API) AdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if !bindJSON(c, &req, "邮箱和密码不能为空") {
		return
	}

	user, err := a.auth.AuthenticateAdmin(req.Email, req.Password, req.MasterKey)
	if err != nil {
		a.logger.Warn().
			Err(err).
			Str("email", req.Email).
			Str("client_ip", c.ClientIP()).
			Msg("admin login rejected")
		a.handleAuthError(c, err)
		return
	}

	if err := startSession(c, user, true); err != nil {
		a.respondInternal(c, err, "会话保存失败")
		return
	}

	c.Set(currentUserContextKey, user)
	a.audit(c, service.ActionAdminLogin, "", nil)
	respondOK(c, http.StatusOK, gin.H{"user": privateUserPayload(*user)})
}

// Logout 清除会话。
func (a *API) Logout(c *gin.Context) {
	if err := clearSession(c); err != nil {
		a.respondInternal(c, err, "会话清除失败")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "已退出登录"})
}

// Me 返回当前会话对应的账号。
func (a *API) Me(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"user":         privateUserPayload(*user),
		"adminSession": sessionIsAdmin(c),
	})
}

// VerifyEmail 使用邮件中的令牌激活账号。
func (a *API) VerifyEmail(c *gin.Context) {
	user, err := a.auth.Verify(c.Query("token"))
	if err != nil {
		a.handleAuthError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"user": privateUserPayload(*user)})
}

// ForgotPassword 无论邮箱是否存在都返回成功，避免泄露账号信息。
func (a *API) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindJSON(c, &req, "邮箱不能为空") {
		return
	}

	if _, err := a.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		a.respondInternal(c, err, "生成重置令牌失败")
		return
	}

	respondOK(c, http.StatusOK, gin.H{"message": "如果该邮箱已注册，重置邮件已发送"})
}

// ResetPassword 使用重置令牌设置新密码。
func (a *API) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindJSON(c, &req, "令牌和新密码不能为空") {
		return
	}

	if err := a.auth.ResetPassword(req.Token, req.Password); err != nil {
		a.handleAuthError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"message": "密码已重置"})
}

func (a *API) handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		respondError(c, http.StatusConflict, "该邮箱已被注册")
	case errors.Is(err, service.ErrInvalidEmail):
		respondError(c, http.StatusBadRequest, "邮箱格式不正确")
	case errors.Is(err, service.ErrPasswordTooShort):
		respondError(c, http.StatusBadRequest, "密码长度至少为 8 位")
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "邮箱或密码错误")
	case errors.Is(err, service.ErrMasterKeyInvalid):
		respondError(c, http.StatusUnauthorized, "主密钥错误")
	case errors.Is(err, service.ErrNotAdmin):
		respondError(c, http.StatusForbidden, "该账号不是管理员")
	case errors.Is(err, service.ErrMasterKeyUnset):
		respondError(c, http.StatusForbidden, "未配置主密钥，后台登录已禁用")
	case errors.Is(err, service.ErrInvalidToken):
		respondError(c, http.StatusBadRequest, "令牌无效")
	case errors.Is(err, service.ErrTokenExpired):
		respondError(c, http.StatusBadRequest, "令牌已过期")
	case errors.Is(err, service.ErrUserNotFound):
		respondError(c, http.StatusNotFound, "用户不存在")
	default:
		a.respondInternal(c, err, "认证失败")
	}
}
