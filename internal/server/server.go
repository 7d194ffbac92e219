package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"aignite/internal/config"
	"aignite/internal/handler"
	"aignite/internal/middleware"
	"aignite/internal/repository"
	"aignite/internal/scanner"
	"aignite/internal/service"
	"aignite/internal/vision"
)

type Server struct {
	router   *gin.Engine
	logger   *zap.Logger
	captions *service.CaptionService
}

// NewServer wires repositories, services and handlers onto a gin engine.
func NewServer(db *sqlx.DB, cfg *config.Config, tokens *service.TokenService, pages *scanner.Scanner, provider vision.Provider, logger *zap.Logger) *Server {
	router := gin.Default()

	userRepo := repository.NewUserRepository(db, logger)
	jobRepo := repository.NewCaptionJobRepository(db, logger)

	authService := service.NewAuthService(userRepo, tokens, logger)
	userService := service.NewUserService(userRepo, logger)
	captionService := service.NewCaptionService(jobRepo, provider, logger)

	authHandler := handler.NewAuthHandler(authService, logger)
	userHandler := handler.NewUserHandler(userService, logger)
	accessHandler := handler.NewAccessibilityHandler(
		pages,
		provider,
		captionService,
		cfg.Media.MaxImageSizeMB*1024*1024,
		cfg.Media.MaxVideoSizeMB*1024*1024,
		logger,
	)

	authRequired := middleware.Auth(tokens, userRepo, logger)

	// Ping route for health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "aignite"})
	})

	authGroup := router.Group("/api/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/validate", authRequired, authHandler.Validate)
	authGroup.GET("/profile", authRequired, userHandler.GetProfile)
	authGroup.PATCH("/profile", authRequired, userHandler.UpdateProfile)

	userGroup := router.Group("/api/user")
	userGroup.Use(authRequired)
	{
		userGroup.GET("/profile", userHandler.GetProfile)
		userGroup.PATCH("/profile", userHandler.UpdateProfile)
		userGroup.PATCH("/preferences", userHandler.UpdatePreferences)
	}

	accessGroup := router.Group("/api/accessibility")
	accessGroup.Use(authRequired)
	{
		accessGroup.POST("/scan", accessHandler.Scan)
		accessGroup.POST("/image-description", accessHandler.DescribeImage)
		accessGroup.POST("/video-captions", accessHandler.CaptionVideo)
		accessGroup.GET("/video-captions/:id", accessHandler.GetCaptionJob)
	}

	return &Server{router: router, logger: logger, captions: captionService}
}

// Run serves until the context is cancelled, then drains in-flight caption
// jobs before returning.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	s.captions.Wait()
	return nil
}
