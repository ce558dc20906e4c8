package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pulseflow/internal/auth"
	"pulseflow/internal/collab"
	"pulseflow/internal/config"
	"pulseflow/internal/database"
	"pulseflow/internal/handler"
	"pulseflow/internal/middleware"
	"pulseflow/internal/notification"
	"pulseflow/internal/realtime"
	"pulseflow/internal/repository"
	"pulseflow/internal/workspace"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

type Server struct {
	Engine   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	Registry *workspace.Registry
	Streams  *handler.StreamHandler
	Config   *config.Config
}

func Init(cfg *config.Config) (*Server, error) {
	cfg.SetupLogging()

	// Setup GORM
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("❌ %w", err)
	}
	log.Info("✅ Connected to database")

	if cfg.RunMigrations {
		if err := database.Migrate(cfg.MigrationURL()); err != nil {
			return nil, fmt.Errorf("❌ %w", err)
		}
	}

	// Setup Redis для ленты изменений
	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("❌ failed to connect to Redis: %w", err)
	}
	log.Info("✅ Connected to Redis")
	hub := realtime.NewHub(rc, cfg.SubscriptionBuffer)

	// Setup Gin
	r := gin.Default()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	boardRepo := repository.NewBoardRepository(db, hub)
	boardShareRepo := repository.NewBoardShareRepository(db, hub)
	taskRepo := repository.NewTaskRepository(db, hub)
	teamRepo := repository.NewTeamRepository(db)
	memberRepo := repository.NewTeamMemberRepository(db, hub)
	notificationRepo := repository.NewNotificationRepository(db, hub)
	feedbackRepo := repository.NewFeedbackRepository(db, hub)

	collabService := collab.NewService(collab.Repositories{
		Users:   userRepo,
		Boards:  boardRepo,
		Shares:  boardShareRepo,
		Teams:   teamRepo,
		Members: memberRepo,
	}, cfg.OrgEmailDomain)

	registry := workspace.NewRegistry(workspace.Deps{
		Boards:     boardRepo,
		Tasks:      taskRepo,
		Notes:      notificationRepo,
		DueTasks:   taskRepo,
		Invites:    collabService,
		Subscriber: hub,
		Feed: notification.Options{
			Limit:  cfg.NotificationLimit,
			Window: cfg.DueSoonWindow,
		},
		RetryDelay: cfg.ResubscribeDelay,
	})
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry)

	// Initialize handlers
	userHandler := handler.NewUserHandler(userRepo, tokens)
	workspaceHandler := handler.NewWorkspaceHandler(registry)
	boardHandler := handler.NewBoardHandler(registry)
	taskHandler := handler.NewTaskHandler(registry)
	dragHandler := handler.NewDragHandler(registry)
	boardShareHandler := handler.NewBoardShareHandler(collabService)
	teamHandler := handler.NewTeamHandler(collabService)
	notificationHandler := handler.NewNotificationHandler(registry)
	streamHandler := handler.NewStreamHandler(registry, hub)
	feedbackHandler := handler.NewFeedbackHandler(feedbackRepo, userRepo)

	// Public routes
	r.POST("/register", userHandler.Register)
	r.POST("/login", userHandler.Login)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(tokens))
	{
		// Profile routes
		authorized.GET("/profile", userHandler.GetProfile)
		authorized.PUT("/profile", userHandler.UpdateProfile)
		authorized.PUT("/profile/password", userHandler.ChangePassword)

		// Workspace routes
		authorized.GET("/workspace", workspaceHandler.Get)
		authorized.POST("/workspace/active", workspaceHandler.SetActive)
		authorized.GET("/workspace/overlay", workspaceHandler.GetOverlay)
		authorized.PUT("/workspace/overlay", workspaceHandler.OpenOverlay)
		authorized.DELETE("/workspace/overlay", workspaceHandler.CloseOverlay)

		// Board routes
		authorized.POST("/boards", boardHandler.Create)
		authorized.PUT("/boards/:id", boardHandler.Update)
		authorized.DELETE("/boards/:id", boardHandler.Delete)

		// Board sharing routes
		authorized.POST("/boards/:id/share", boardShareHandler.ShareBoard)
		authorized.GET("/boards/:id/share", boardShareHandler.GetBoardShares)
		authorized.DELETE("/boards/:id/share/:user_id", boardShareHandler.RemoveShare)

		// Task routes
		authorized.POST("/tasks", taskHandler.Create)
		authorized.PUT("/tasks/:id", taskHandler.Update)
		authorized.DELETE("/tasks/:id", taskHandler.Delete)
		authorized.POST("/tasks/:id/subtasks/:index/toggle", taskHandler.ToggleSubtask)

		// Drag routes
		authorized.POST("/drag/start", dragHandler.Start)
		authorized.POST("/drag/drop", dragHandler.Drop)
		authorized.POST("/drag/cancel", dragHandler.Cancel)

		// Team routes
		authorized.POST("/teams", teamHandler.Create)
		authorized.GET("/teams", teamHandler.List)
		authorized.GET("/teams/:id/members", teamHandler.Members)
		authorized.POST("/teams/:id/members", teamHandler.Invite)
		authorized.PUT("/team-members/:id/role", teamHandler.UpdateRole)
		authorized.POST("/team-members/:id/accept", teamHandler.Accept)
		authorized.POST("/team-members/:id/decline", teamHandler.Decline)

		// Notification routes
		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/read-all", notificationHandler.MarkAllRead)
		authorized.POST("/notifications/:id/read", notificationHandler.MarkRead)
		authorized.DELETE("/notifications/:id", notificationHandler.Delete)
		authorized.POST("/notifications/:id/invite", notificationHandler.AnswerInvite)

		// Feedback routes
		authorized.POST("/feedback", feedbackHandler.Create)
		authorized.GET("/feedback", feedbackHandler.List)

		authorized.GET("/stream", streamHandler.Stream)
	}
	return &Server{
		Engine:   r,
		DB:       db,
		Redis:    rc,
		Registry: registry,
		Streams:  streamHandler,
		Config:   cfg,
	}, nil
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Engine,
	}
	// SSE-соединения сами не завершатся
	srv.RegisterOnShutdown(s.Streams.Close)

	// Закрываем рабочие пространства, к которым давно не обращались
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go s.Registry.RunJanitor(janitorCtx, s.Config.JanitorInterval, s.Config.WorkspaceIdleTimeout)

	go func() {
		log.Infof("🚀 Server running on port %s", s.Config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to listen: %s", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %s", err)
	}

	// Сначала подписки, потом Redis
	stopJanitor()
	s.Registry.Close()
	if err := s.Redis.Close(); err != nil {
		log.WithError(err).Warn("failed to close Redis client")
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info("✅ Server exited properly")
}
