package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/taskhive/taskhive/internal/auth"
	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/domain/user"
	"github.com/taskhive/taskhive/internal/http/handlers"
	"github.com/taskhive/taskhive/internal/http/middlewares"
	"github.com/taskhive/taskhive/internal/hub"
	"github.com/taskhive/taskhive/internal/observability"
	"github.com/taskhive/taskhive/internal/repo/jsonfile"
	"github.com/taskhive/taskhive/internal/store"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	jsonBodyLimit   = 1 << 20  // plenty for any JSON payload here
	uploadBodyLimit = 10 << 20 // proof images
)

func NewRouter(
	log *slog.Logger,
	cfg config.Config,
	st *store.Store,
	notifyHub *hub.Hub,
	prom *observability.Prom,
	registry *prometheus.Registry,
) (*gin.Engine, error) {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(otelgin.Middleware("taskhive"))

	if prom != nil {
		r.Use(prom.GinHandleMiddleware())
	}

	// wire up repositories over the record store

	usersRepo, err := jsonfile.NewUsersRepo(st)
	if err != nil {
		return nil, err
	}

	tasksRepo, err := jsonfile.NewTasksRepo(st)
	if err != nil {
		return nil, err
	}

	messagesRepo, err := jsonfile.NewMessagesRepo(st)
	if err != nil {
		return nil, err
	}

	groupsRepo, err := jsonfile.NewGroupsRepo(st)
	if err != nil {
		return nil, err
	}

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL())
	authMw := middlewares.NewAuthMiddleware(jwtManager)

	healthHandler := handlers.NewHealthHandler(st.Ping)
	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, jwtManager)
	usersHandler := handlers.NewUsersHandler(usersRepo, tasksRepo)
	settingsHandler := handlers.NewSettingsHandler(usersRepo)
	tasksHandler := handlers.NewTasksHandler(tasksRepo, notifyHub, cfg.UploadsDir)
	messagesHandler := handlers.NewMessagesHandler(messagesRepo, notifyHub)
	groupsHandler := handlers.NewGroupsHandler(groupsRepo)
	wsHandler := handlers.NewWSHandler(notifyHub, messagesRepo, jwtManager, log, cfg.CORSOrigins)

	// probes + metrics

	r.GET("/health", healthHandler.Health)
	r.GET("/readyz", healthHandler.Readyz)

	if registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	// auth endpoints: rate limited by IP, no token required

	authLimiter := middlewares.NewRateLimiter(20, time.Minute)

	authGroup := r.Group("/auth")
	authGroup.Use(middlewares.MaxBodyBytes(jsonBodyLimit))
	authGroup.Use(middlewares.RequireJSON())
	authGroup.Use(authLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/register", authHandler.Register)

	// realtime channel authenticates inside the handshake

	r.GET("/ws", wsHandler.Serve)

	// uploaded proof files

	r.Static("/uploads", cfg.UploadsDir)

	// everything below requires a valid access token

	api := r.Group("/")
	api.Use(middlewares.MaxBodyBytes(uploadBodyLimit))
	api.Use(middlewares.RequireJSON())
	api.Use(authMw.RequireAuth())

	api.GET("/users", usersHandler.ListUsers)
	api.POST("/users", authMw.RequireRole(user.RoleAdmin), usersHandler.CreateUser)
	api.DELETE("/users/:id", authMw.RequireRole(user.RoleAdmin), usersHandler.DeleteUser)
	api.GET("/users/:id/settings", settingsHandler.GetSettings)
	api.PUT("/users/:id/settings", settingsHandler.UpdateSettings)

	api.GET("/tasks", tasksHandler.ListTasks)
	api.GET("/tasks/:id", tasksHandler.GetTaskByID)
	api.POST("/tasks", authMw.RequireRole(user.RoleAdmin), tasksHandler.CreateTask)
	api.PUT("/tasks/:id", tasksHandler.UpdateTask)
	api.DELETE("/tasks/:id", authMw.RequireRole(user.RoleAdmin), tasksHandler.DeleteTask)
	api.POST("/tasks/:id/proof", tasksHandler.UploadProof)

	api.GET("/messages", messagesHandler.ListMessages)
	api.POST("/messages", messagesHandler.CreateMessage)

	api.GET("/groups", groupsHandler.ListGroups)
	api.POST("/groups", groupsHandler.CreateGroup)
	api.PUT("/groups/:id", groupsHandler.UpdateGroup)
	api.DELETE("/groups/:id", groupsHandler.DeleteGroup)

	return r, nil
}
