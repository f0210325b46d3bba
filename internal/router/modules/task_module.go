package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-task-manager/internal/interface/http"
)

type TaskModule struct {
	Handler *handlers.TaskHandler
	auth    gin.HandlerFunc
	limit   gin.HandlerFunc
}

func NewTaskModule(h *handlers.TaskHandler, auth, limit gin.HandlerFunc) *TaskModule {
	return &TaskModule{Handler: h, auth: auth, limit: limit}
}

func (m *TaskModule) Register(rg *gin.RouterGroup) {
	tasks := rg.Group("/tasks")
	tasks.Use(m.auth, m.limit)
	{
		tasks.GET("", m.Handler.List)
		tasks.POST("", m.Handler.Create)
		tasks.GET("/search", m.Handler.Search)
		tasks.GET("/:id", m.Handler.Get)
		tasks.PUT("/:id", m.Handler.Update)
		tasks.DELETE("/:id", m.Handler.Delete)
	}
}
