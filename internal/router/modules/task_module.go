package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/taskboard-api/internal/interface/http"
	"github.com/oksasatya/taskboard-api/internal/interface/middleware"
	"github.com/oksasatya/taskboard-api/pkg/helpers"
)

// TaskModule mounts the task CRUD routes. Every route requires a bearer
// session token and is rate limited per user.
type TaskModule struct {
	Handler *handlers.TaskHandler
	JWT     *helpers.JWTManager
	RDB     *redis.Client
	Limit   int
}

func NewTaskModule(h *handlers.TaskHandler, jwt *helpers.JWTManager, rdb *redis.Client, limit int) *TaskModule {
	return &TaskModule{Handler: h, JWT: jwt, RDB: rdb, Limit: limit}
}

func (m *TaskModule) Register(rg *gin.RouterGroup) {
	tasks := rg.Group("/tasks")
	tasks.Use(
		middleware.Auth(m.JWT),
		middleware.RateLimit(m.RDB, m.Limit, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		tasks.GET("", m.Handler.List)
		tasks.GET("/search", m.Handler.Search)
		tasks.POST("", m.Handler.Create)
		tasks.PUT("/:id", m.Handler.Update)
		tasks.DELETE("/:id", m.Handler.Delete)
	}
}
