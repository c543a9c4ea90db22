package app

import (
	"context"
	"net/http"

	"github.com/birlikkoshan/tasksync/internal/auth"
	"github.com/birlikkoshan/tasksync/internal/cache"
	"github.com/birlikkoshan/tasksync/internal/config"
	"github.com/birlikkoshan/tasksync/internal/handlers"
	"github.com/birlikkoshan/tasksync/internal/realtime"
	"github.com/birlikkoshan/tasksync/internal/repo"
	"github.com/birlikkoshan/tasksync/internal/service"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
	"golang.org/x/crypto/bcrypt"
)

// Deps is everything the HTTP surface needs. TaskCache may be nil.
type Deps struct {
	Users     repo.UserRepo
	Lists     repo.ListRepo
	Tasks     repo.TaskRepo
	TaskCache *cache.TaskCache
	Hub       *realtime.Hub
	Bus       realtime.Bus
	Parser    handlers.TaskParser

	// BaseCtx bounds websocket connections; cancelled on shutdown.
	BaseCtx    context.Context
	BcryptCost int
}

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, cfg config.Config, d Deps) {
	r.GET("/", rootHandler(cfg))
	r.GET("/health", healthHandler(cfg))
	r.GET("/version", versionHandler(cfg))
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(http.StatusFound, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
		ginSwagger.PersistAuthorization(true),
	))

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL.Duration(), d.Users)

	var inval service.Invalidator
	if d.TaskCache != nil {
		inval = d.TaskCache
	}
	cost := d.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	userSvc := service.NewUserService(d.Users, tokens, d.Bus, service.WithBcryptCost(cost), service.WithInvalidator(inval))
	listSvc := service.NewListService(d.Lists, d.Bus, inval)
	taskSvc := service.NewTaskService(d.Tasks, d.Lists, d.TaskCache, d.Bus)

	authHandler := handlers.NewAuthHandler(userSvc)
	registerAuthRoutes(r, authHandler)

	baseCtx := d.BaseCtx
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	rc := cfg.Realtime
	ws := realtime.NewHandler(baseCtx, d.Hub, tokens, listSvc, realtime.ClientConfig{
		SendBuffer:     rc.SendBuffer,
		WriteWait:      rc.WriteWait.Duration(),
		PongWait:       rc.PongWait.Duration(),
		PingPeriod:     rc.PingPeriod.Duration(),
		MaxMessageSize: rc.MaxMessageSize,
	}, rc.Origins())
	r.GET("/ws", ws.Serve)

	protected := r.Group("", auth.RequireToken(tokens))
	protected.DELETE("/account", authHandler.DeleteAccount)
	registerListRoutes(protected, handlers.NewListHandler(listSvc), handlers.NewTaskHandler(taskSvc))
	protected.POST("/parse-task", handlers.NewParseHandler(d.Parser).Parse)
}

func rootHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "TaskSync API",
			"version": cfg.App.Version,
			"env":     cfg.App.Env,
			"docs":    "/swagger/index.html",
			"openapi": "/swagger-doc.json",
			"health":  "/health",
			"ws":      "/ws",
		})
	}
}

func healthHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "env": cfg.App.Env})
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": cfg.App.Version})
	}
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc("swagger")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	}
}

func registerAuthRoutes(r gin.IRoutes, h *handlers.AuthHandler) {
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
}

func registerListRoutes(api *gin.RouterGroup, lists *handlers.ListHandler, tasks *handlers.TaskHandler) {
	api.GET("/lists", lists.List)
	api.POST("/lists", lists.Create)
	api.DELETE("/lists/:id", lists.Delete)
	api.GET("/lists/:id/tasks", tasks.List)
	api.POST("/lists/:id/tasks", tasks.Create)
	api.PUT("/tasks/reorder", tasks.Reorder)
	api.PUT("/tasks/:id", tasks.Update)
	api.DELETE("/tasks/:id", tasks.Delete)
}
