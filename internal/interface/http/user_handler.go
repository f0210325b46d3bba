package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/interface/middleware"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
	"github.com/oksasatya/go-task-manager/pkg/response"
)

const maxAvatarBytes = 5 << 20

type UserHandler struct {
	Svc     *application.UserService
	Cookies *helpers.Manager
	errs    errorWriter
}

func NewUserHandler(svc *application.UserService, cookies *helpers.Manager, logger *logrus.Logger, verbose bool) *UserHandler {
	return &UserHandler{Svc: svc, Cookies: cookies, errs: errorWriter{Logger: logger, Verbose: verbose}}
}

type updateProfileRequest struct {
	Name      string `json:"name" binding:"omitempty,max=100"`
	AvatarURL string `json:"avatar_url" binding:"omitempty,url"`
}

type setRoleRequest struct {
	Role string `json:"role" binding:"required,role"`
}

// GetProfile GET /api/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	u, err := h.Svc.GetProfile(c.Request.Context(), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		h.errs.write(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserDTO(u), "profile", nil)
}

// UpdateProfile PUT /api/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.bindError(c, err)
		return
	}
	u, err := h.Svc.UpdateProfile(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), application.UpdateProfileInput{Name: req.Name, AvatarURL: req.AvatarURL})
	if err != nil {
		h.errs.write(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserDTO(u), "profile updated", nil)
}

// UploadAvatar POST /api/profile/avatar (multipart field "avatar")
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAvatarBytes+1024)
	fh, err := c.FormFile("avatar")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", map[string]string{"avatar": "is required"})
		return
	}
	if fh.Size > maxAvatarBytes {
		response.Error(c, http.StatusBadRequest, "invalid payload", map[string]string{"avatar": "must be at most 5MB"})
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		response.Error(c, http.StatusBadRequest, "invalid payload", map[string]string{"avatar": "must be an image"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.errs.write(c, err)
		return
	}
	defer func() { _ = f.Close() }()

	url, err := h.Svc.UploadAvatar(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), f, fh.Filename, contentType)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"avatar_url": url}, "avatar updated", nil)
}

// DeleteAccount DELETE /api/profile
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	if err := h.Svc.DeleteAccount(c.Request.Context(), c.GetString(middleware.CtxUserIDKey)); err != nil {
		h.errs.write(c, err)
		return
	}
	h.Cookies.Clear(c)
	response.Success(c, http.StatusOK, gin.H{"deleted": true}, "account deleted", nil)
}

// ListUsers GET /api/admin/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, limit := pageParams(c)
	users, total, err := h.Svc.ListUsers(c.Request.Context(), page, limit)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	page, limit = application.NormalizePage(page, limit)
	response.Success(c, http.StatusOK, toUserDTOs(users), "users", response.NewPageMeta(page, limit, total))
}

// SetRole PUT /api/admin/users/:id/role
func (h *UserHandler) SetRole(c *gin.Context) {
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.bindError(c, err)
		return
	}
	role, err := entity.ParseRole(req.Role)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", map[string]string{"role": "must be one of: user, admin"})
		return
	}
	if err := h.Svc.SetRole(c.Request.Context(), c.Param("id"), role); err != nil {
		h.errs.write(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": c.Param("id"), "role": role.String()}, "role updated", nil)
}
