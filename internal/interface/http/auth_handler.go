package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/interface/middleware"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
	"github.com/oksasatya/go-task-manager/pkg/response"
)

type AuthHandler struct {
	Users   *application.UserService
	OTP     *application.OTPService
	Cookies *helpers.Manager
	errs    errorWriter
}

func NewAuthHandler(users *application.UserService, otp *application.OTPService, cookies *helpers.Manager, logger *logrus.Logger, verbose bool) *AuthHandler {
	return &AuthHandler{Users: users, OTP: otp, Cookies: cookies, errs: errorWriter{Logger: logger, Verbose: verbose}}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type verifyRequest struct {
	Code string `json:"code" binding:"required,otp"`
}

type resetSendRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,otp"`
	NewPassword string `json:"new_password" binding:"required,pwd"`
}

type loginResponse struct {
	User        userDTO `json:"user"`
	AccessToken string  `json:"access_token"`
}

func tokenMeta(pair application.TokenPair) map[string]any {
	return map[string]any{
		"access_expires_at":  pair.AccessTokenExpiry.UTC().Format(time.RFC3339),
		"refresh_expires_at": pair.RefreshTokenExpiry.UTC().Format(time.RFC3339),
	}
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.bindError(c, err)
		return
	}
	u, err := h.Users.Register(c.Request.Context(), application.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		h.errs.write(c, err)
		return
	}
	response.Success(c, http.StatusCreated, toUserDTO(u), "registered, check your email for a verification code", nil)
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.bindError(c, err)
		return
	}
	u, pair, err := h.Users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, loginResponse{User: toUserDTO(u), AccessToken: pair.AccessToken}, "login successful", tokenMeta(pair))
}

// Refresh POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, err := c.Cookie(helpers.RefreshCookie)
	if err != nil || refresh == "" {
		response.Error(c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	u, pair, err := h.Users.Refresh(c.Request.Context(), refresh)
	if err != nil {
		h.Cookies.Clear(c)
		h.errs.write(c, err)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, loginResponse{User: toUserDTO(u), AccessToken: pair.AccessToken}, "token refreshed", tokenMeta(pair))
}

// Logout POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Users.Logout(c.Request.Context(), c.GetString(middleware.CtxUserIDKey)); err != nil {
		h.errs.write(c, err)
		return
	}
	h.Cookies.Clear(c)
	response.Success(c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}

// IsAuthenticated GET /api/auth/is-auth
func (h *AuthHandler) IsAuthenticated(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"authenticated": true,
		"user_id":       c.GetString(middleware.CtxUserIDKey),
		"role":          c.GetString(middleware.CtxRoleKey),
	}, "authenticated", nil)
}

// SendVerification POST /api/auth/verify/send
func (h *AuthHandler) SendVerification(c *gin.Context) {
	if err := h.OTP.SendVerification(c.Request.Context(), c.GetString(middleware.CtxUserIDKey)); err != nil {
		h.errs.write(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sent": true}, "verification code sent", nil)
}

// Verify POST /api/auth/verify {code}
func (h *AuthHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.bindError(c, err)
		return
	}
	u, err := h.OTP.VerifyEmail(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), req.Code)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserDTO(u), "email verified", nil)
}

// SendReset POST /api/auth/reset/send {email}
func (h *AuthHandler) SendReset(c *gin.Context) {
	var req resetSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.bindError(c, err)
		return
	}
	if _, err := h.OTP.IssueByEmail(c.Request.Context(), req.Email, entity.PurposeReset); err != nil {
		h.errs.write(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sent": true}, "reset code sent", nil)
}

// Reset POST /api/auth/reset {email, code, new_password}
func (h *AuthHandler) Reset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.bindError(c, err)
		return
	}
	if err := h.OTP.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		h.errs.write(c, err)
		return
	}
	h.Cookies.Clear(c)
	response.Success(c, http.StatusOK, gin.H{"reset": true}, "password updated", nil)
}
