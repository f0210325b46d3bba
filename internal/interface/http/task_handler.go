package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/interface/middleware"
	"github.com/oksasatya/go-task-manager/pkg/response"
)

type TaskHandler struct {
	Svc  *application.TaskService
	errs errorWriter
}

func NewTaskHandler(svc *application.TaskService, logger *logrus.Logger, verbose bool) *TaskHandler {
	return &TaskHandler{Svc: svc, errs: errorWriter{Logger: logger, Verbose: verbose}}
}

type createTaskRequest struct {
	Title       string     `json:"title" binding:"required,max=200"`
	Description string     `json:"description" binding:"max=5000"`
	Status      string     `json:"status" binding:"omitempty,taskstatus"`
	Priority    string     `json:"priority" binding:"omitempty,taskpriority"`
	DueDate     *time.Time `json:"due_date"`
}

// updateTaskRequest is a partial update; absent fields keep their value.
type updateTaskRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string    `json:"description" binding:"omitempty,max=5000"`
	Status      *string    `json:"status" binding:"omitempty,taskstatus"`
	Priority    *string    `json:"priority" binding:"omitempty,taskpriority"`
	DueDate     *time.Time `json:"due_date"`
	ClearDue    bool       `json:"clear_due_date"`
}

type listTasksQuery struct {
	Status string `form:"status" binding:"omitempty,taskstatus"`
}

func uid(c *gin.Context) string {
	return c.GetString(middleware.CtxUserIDKey)
}

// List GET /api/tasks?page&limit&status
func (h *TaskHandler) List(c *gin.Context) {
	var q listTasksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.errs.bindError(c, err)
		return
	}
	page, limit := pageParams(c)
	res, err := h.Svc.List(c.Request.Context(), uid(c), application.ListTasksQuery{Page: page, Limit: limit, Status: entity.TaskStatus(q.Status)})
	if err != nil {
		h.errs.write(c, err)
		return
	}
	response.Success(c, http.StatusOK, res.Items, "tasks", response.NewPageMeta(res.Page, res.Limit, res.Total))
}

// Create POST /api/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.bindError(c, err)
		return
	}
	t, err := h.Svc.Create(c.Request.Context(), uid(c), application.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      entity.TaskStatus(req.Status),
		Priority:    entity.TaskPriority(req.Priority),
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.errs.write(c, err)
		return
	}
	response.Success(c, http.StatusCreated, t, "task created", nil)
}

// Get GET /api/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	t, err := h.Svc.Get(c.Request.Context(), uid(c), c.Param("id"))
	if err != nil {
		h.errs.write(c, err)
		return
	}
	response.Success(c, http.StatusOK, t, "task", nil)
}

// Update PUT /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.bindError(c, err)
		return
	}
	in := application.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		ClearDue:    req.ClearDue,
	}
	if req.Status != nil {
		s := entity.TaskStatus(*req.Status)
		in.Status = &s
	}
	if req.Priority != nil {
		p := entity.TaskPriority(*req.Priority)
		in.Priority = &p
	}
	t, err := h.Svc.Update(c.Request.Context(), uid(c), c.Param("id"), in)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	response.Success(c, http.StatusOK, t, "task updated", nil)
}

// Delete DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), uid(c), c.Param("id")); err != nil {
		h.errs.write(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": c.Param("id")}, "task deleted", nil)
}

// Search GET /api/tasks/search?q&limit
func (h *TaskHandler) Search(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	res, err := h.Svc.Search(c.Request.Context(), uid(c), c.Query("q"), limit)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	response.Success(c, http.StatusOK, res, "tasks", nil)
}

// AdminList GET /api/admin/tasks
func (h *TaskHandler) AdminList(c *gin.Context) {
	page, limit := pageParams(c)
	res, err := h.Svc.AdminList(c.Request.Context(), page, limit)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	response.Success(c, http.StatusOK, res.Items, "tasks", response.NewPageMeta(res.Page, res.Limit, res.Total))
}
