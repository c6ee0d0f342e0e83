package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"todoapi/internal/adapter/http/handler"
	"todoapi/internal/adapter/http/helper"
	"todoapi/internal/adapter/http/middleware"
	"todoapi/internal/adapter/logger"
	"todoapi/internal/core/telemetry"
)

const (
	APIPrefix      = "/api/v1"
	TodosPath      = APIPrefix + "/todos"
	LegacyTodoPath = APIPrefix + "/todo"
)

type HandlersConfig struct {
	TodoHandler *handler.TodoHandler
}

type RouterConfig struct {
	ServiceName  string
	CORSOrigins  []string
	EnforceHTTPS bool
	// RateLimit disables limiting when nil.
	RateLimit *middleware.RateLimitConfig
}

func SetupRouter(handlers HandlersConfig, metrics *telemetry.AppMetrics, lokiLogger *logger.LokiLogger, config RouterConfig) *gin.Engine {
	if gin.Mode() == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	if lokiLogger == nil {
		lokiLogger = logger.NewNop()
	}

	router := gin.New()

	router.Use(otelgin.Middleware(config.ServiceName))
	router.Use(middleware.CurrentMiddleware())
	router.Use(middleware.LoggingMiddleware(lokiLogger))

	if metrics != nil {
		router.Use(middleware.MetricsMiddleware(metrics))
	}

	router.Use(gin.CustomRecovery(helper.SendRecovered))
	router.Use(middleware.NewHTTPSEnforcer(config.EnforceHTTPS, lokiLogger).HTTPSMiddleware())
	router.Use(corsMiddleware(config.CORSOrigins))

	if config.RateLimit != nil {
		router.Use(middleware.NewRateLimiter(*config.RateLimit, lokiLogger, metrics).RateLimitMiddleware())
	}

	router.NoRoute(helper.SendRouteNotFound)

	api := router.Group(APIPrefix)
	api.GET("/status", handler.Status)

	if handlers.TodoHandler != nil {
		setupTodoRoutes(router.Group(TodosPath), handlers.TodoHandler)
		setupTodoRoutes(router.Group(LegacyTodoPath, middleware.DeprecatedRoute(TodosPath)), handlers.TodoHandler)
	}

	return router
}

func setupTodoRoutes(group *gin.RouterGroup, todoHandler *handler.TodoHandler) {
	group.GET("", todoHandler.GetAllTodos)
	group.POST("", todoHandler.CreateTodo)
	group.GET("/:id", todoHandler.GetTodo)
	group.PUT("/:id", todoHandler.UpdateTodo)
	group.DELETE("/:id", todoHandler.DeleteTodo)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", middleware.HeaderRequestID},
		ExposeHeaders: []string{
			middleware.HeaderRequestID,
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			"Deprecation",
			"Link",
		},
		MaxAge: 12 * time.Hour,
	})
}
