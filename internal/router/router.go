package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/van-fee-api/internal/handler"
	"github.com/noah-isme/van-fee-api/internal/middleware"
	"github.com/noah-isme/van-fee-api/internal/models"
	"github.com/noah-isme/van-fee-api/internal/service"
	"github.com/noah-isme/van-fee-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/van-fee-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/van-fee-api/pkg/middleware/requestid"
)

// Config controls the engine-level behaviour of the router.
type Config struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
}

// Handlers groups every HTTP handler mounted by the router.
type Handlers struct {
	Auth       *handler.AuthHandler
	Billing    *handler.BillingHandler
	Schools    *handler.SchoolHandler
	Students   *handler.StudentHandler
	Reminders  *handler.ReminderHandler
	Dashboard  *handler.DashboardHandler
	Statements *handler.StatementHandler
	Imports    *handler.ImportHandler
	Ops        *handler.MetricsHandler
}

// New assembles the gin engine with the shared middleware chain and all routes.
func New(cfg Config, h Handlers, tokens middleware.TokenValidator, metrics *service.MetricsService, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Ops.Health)
	r.GET("/ready", h.Ops.Ready)
	r.GET("/metrics", h.Ops.Prometheus)
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens), middleware.RequireRoles(models.RoleOwner, models.RoleAdmin))

	secured.GET("/auth/me", h.Auth.Me)
	secured.GET("/ledger", h.Billing.Ledger)
	secured.GET("/dashboard", h.Dashboard.Summary)
	secured.GET("/reminders/due", h.Reminders.DueToday)
	secured.POST("/imports", h.Imports.Import)

	schools := secured.Group("/schools")
	schools.GET("", h.Schools.List)
	schools.POST("", h.Schools.Create)
	schools.DELETE("/:id", h.Schools.Delete)
	schools.POST("/:id/reminders", h.Reminders.School)

	students := secured.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", h.Students.Create)
	students.GET("/:id", h.Students.Get)
	students.DELETE("/:id", h.Students.Delete)
	students.POST("/:id/payments", h.Billing.RecordPayment)
	students.GET("/:id/notifications", h.Reminders.Student)
	students.GET("/:id/statement", h.Statements.Download)

	return r
}
