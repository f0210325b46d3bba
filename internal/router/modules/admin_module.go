package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	handlers "github.com/oksasatya/go-task-manager/internal/interface/http"
	"github.com/oksasatya/go-task-manager/internal/interface/middleware"
)

// AdminModule exposes cross-account views; every route requires the admin role.
type AdminModule struct {
	Users *handlers.UserHandler
	Tasks *handlers.TaskHandler
	auth  gin.HandlerFunc
}

func NewAdminModule(users *handlers.UserHandler, tasks *handlers.TaskHandler, auth gin.HandlerFunc) *AdminModule {
	return &AdminModule{Users: users, Tasks: tasks, auth: auth}
}

func (m *AdminModule) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(m.auth, middleware.RequireRole(entity.RoleAdmin))
	{
		admin.GET("/users", m.Users.ListUsers)
		admin.PUT("/users/:id/role", m.Users.SetRole)
		admin.GET("/tasks", m.Tasks.AdminList)
	}
}
