package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/ufrn-horarios/horarios-api/internal/handler"
	"github.com/ufrn-horarios/horarios-api/internal/middleware"
	"github.com/ufrn-horarios/horarios-api/internal/models"
	"github.com/ufrn-horarios/horarios-api/internal/service"
	"github.com/ufrn-horarios/horarios-api/pkg/config"
	"github.com/ufrn-horarios/horarios-api/pkg/logger"
	corsmiddleware "github.com/ufrn-horarios/horarios-api/pkg/middleware/cors"
	reqidmiddleware "github.com/ufrn-horarios/horarios-api/pkg/middleware/requestid"
)

type routeHandlers struct {
	auth       *handler.AuthHandler
	components *handler.ComponentHandler
	professors *handler.ProfessorHandler
	sections   *handler.SectionHandler
	schedules  *handler.ScheduleHandler
	metrics    *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, tokens middleware.TokenValidator, h routeHandlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", h.auth.Login)
	auth.POST("/refresh", h.auth.Refresh)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))
	secured.GET("/auth/me", h.auth.Me)

	read := secured.Group("")
	read.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleViewer))
	write := secured.Group("")
	write.Use(middleware.RequireRoles(models.RoleAdmin))

	read.GET("/componentes", h.components.List)
	read.GET("/componentes/:code", h.components.Get)
	write.POST("/componentes", h.components.Create)
	write.PUT("/componentes/:code", h.components.Update)
	write.DELETE("/componentes/:code", h.components.Delete)

	read.GET("/professores", h.professors.List)
	read.GET("/professores/:id", h.professors.Get)
	write.POST("/professores", h.professors.Create)
	write.PUT("/professores/:id", h.professors.Update)
	write.DELETE("/professores/:id", h.professors.Delete)

	read.GET("/turmas", h.sections.List)
	read.GET("/turmas/:id", h.sections.Get)
	write.POST("/turmas", h.sections.Create)
	write.PUT("/turmas/:id", h.sections.Update)
	write.DELETE("/turmas/:id", h.sections.Delete)
	write.POST("/turmas/:id/professores", h.sections.AddProfessor)
	write.DELETE("/turmas/:id/professores/:professorId", h.sections.RemoveProfessor)

	read.GET("/horarios/componentes/:code", h.schedules.ByComponent)
	read.GET("/horarios/semestre/:semester", h.schedules.BySemester)
	read.GET("/horarios/professores/:id", h.schedules.ByProfessor)
	read.GET("/horarios/conflitos", h.schedules.Conflicts)
	read.GET("/horarios/export", h.schedules.Export)
	read.POST("/horarios/decode", h.schedules.Decode)

	return r
}
