package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"taskflow/internal/config"
	"taskflow/internal/logger"
	"taskflow/internal/middleware"
	"taskflow/internal/version"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Server represents the HTTP server
type Server struct {
	cfg    *config.Config
	router *gin.Engine
	mongo  *mongo.Client
}

// New creates a new server instance
func New(cfg *config.Config) (*Server, error) {
	mongoClient, err := Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	db := mongoClient.Database(cfg.Mongo.Database)

	repos := InitRepositories(db)
	services := InitServices(cfg, repos)
	handlers := InitHandlers(services)

	if err := PopulateInitialData(cfg, db, repos); err != nil {
		return nil, fmt.Errorf("failed to populate initial data: %w", err)
	}

	router := setupRouter(cfg, handlers, services, mongoClient)

	return &Server{
		cfg:    cfg,
		router: router,
		mongo:  mongoClient,
	}, nil
}

func Connect(cfg *config.Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// Close disconnects MongoDB client
func (s *Server) Close() error {
	if s.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.mongo.Disconnect(ctx)
	}
	return nil
}

// Run starts the server
func (s *Server) Run() error {
	logger.Info("server listening", "addr", s.cfg.Server.Address(), "env", s.cfg.Server.Env)
	return s.router.Run(s.cfg.Server.Address())
}

func setupRouter(cfg *config.Config, h *Handlers, s *Services, mongoClient *mongo.Client) *gin.Engine {
	if !cfg.Server.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	r.SetTrustedProxies(nil)

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.Origins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"},
		AllowCredentials: true,
	}))

	r.GET("/", healthCheck(mongoClient))

	api := r.Group("/api")

	// Routes without a bearer token: account creation, login, and the
	// gateway webhook (authenticated by its signature instead).
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/payments/webhook", h.Payment.Webhook)

	protected := api.Group("")
	protected.Use(middleware.Auth(s.Tokens))

	protected.GET("/auth/me", h.Auth.Me)

	orgs := protected.Group("/organizations")
	{
		orgs.POST("", h.Org.Create)
		orgs.GET("", h.Org.List)
		orgs.GET("/:orgId", h.Org.Get)
		orgs.POST("/:orgId/invite", h.Org.Invite)
		orgs.GET("/:orgId/members", h.Org.Members)
		orgs.PATCH("/:orgId/members/:userId", h.Org.UpdateMemberRole)
		orgs.DELETE("/:orgId/members/:userId", h.Org.RemoveMember)
		orgs.GET("/:orgId/stats", h.Org.Stats)

		orgs.POST("/:orgId/tasks", h.Task.Create)
		orgs.GET("/:orgId/tasks", h.Task.List)
		orgs.GET("/:orgId/tasks/:taskId", h.Task.Get)
		orgs.PATCH("/:orgId/tasks/:taskId", h.Task.Update)
		orgs.DELETE("/:orgId/tasks/:taskId", h.Task.Delete)
	}

	payments := protected.Group("/payments")
	{
		payments.POST("/checkout", h.Payment.Checkout)
		payments.GET("/status/:sessionId", h.Payment.Status)
	}

	admin := protected.Group("/admin")
	{
		admin.GET("/config", h.Admin.ListConfig)
		admin.POST("/config", h.Admin.UpsertConfig)
		admin.DELETE("/config/:keyName", h.Admin.DeleteConfig)
		admin.POST("/make-admin/:userId", h.Admin.MakeSysAdmin)
	}

	return r
}

// healthCheck reports process and database health.
func healthCheck(client *mongo.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		dbStatus := "connected"
		if err := client.Ping(ctx, nil); err != nil {
			dbStatus = "disconnected: " + err.Error()
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"message":  "Server is running",
			"database": dbStatus,
			"version":  version.Get().Version,
		})
	}
}
