package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/tradelog/journal-api/internal/auth"
	"github.com/tradelog/journal-api/internal/broker"
	"github.com/tradelog/journal-api/internal/database"
	"github.com/tradelog/journal-api/internal/ingest"
	"github.com/tradelog/journal-api/internal/journal"
	"github.com/tradelog/journal-api/internal/matching"
	"github.com/tradelog/journal-api/pkg/middleware"
)

// init configures logging based on environment settings. Development mode
// uses pretty console output; DEBUG=true enables debug level.
func init() {
	_ = godotenv.Load()

	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// main initializes and runs the journal API server with graceful shutdown
// support: database, broker client, services and routes.
func main() {
	db, err := database.New(envOr("DATABASE_PATH", "journal.db"))
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	jwtSecret := envOr("JWT_SECRET", "journal-secret-key")

	router := gin.Default()

	authService := auth.NewService(jwtSecret)
	authHandlers := auth.NewGinHandlers(authService)
	authService.RegisterAPICredentials(
		envOr("API_KEY", "test-api-key"),
		envOr("API_SECRET", "test-api-secret"),
	)

	brokerClient := broker.NewClient(broker.Credentials{
		Name:       os.Getenv("TRADOVATE_NAME"),
		Password:   os.Getenv("TRADOVATE_PASSWORD"),
		AppID:      envOr("TRADOVATE_APP_ID", "tradovate"),
		AppVersion: envOr("TRADOVATE_APP_VERSION", "0.0.1"),
		CID:        os.Getenv("TRADOVATE_CID"),
		Secret:     os.Getenv("TRADOVATE_SECRET"),
	}, envOr("TRADOVATE_ENV", "demo") == "demo")

	matchingService := matching.NewService(db)
	ingestService := ingest.NewService(db, brokerClient, matchingService)
	ingestHandlers := ingest.NewGinHandlers(ingestService)

	journalService := journal.NewService(db)
	journalHandlers := journal.NewGinHandlers(journalService)

	router.Use(middleware.RateLimit())

	setupRoutes(router, jwtSecret, authHandlers, journalHandlers, ingestHandlers)

	port := envOr("PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers:
// - Auth routes: public token endpoint
// - Trade routes: protected by JWT authentication
// - Internal routes: maintenance operations behind internal auth
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	journalHandlers *journal.GinHandlers,
	ingestHandlers *ingest.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Trade routes
		trades := v1.Group("/trades")
		trades.Use(middleware.JWTAuth(jwtSecret))
		{
			trades.POST("", journalHandlers.CreateTradeHandler())
			trades.GET("", journalHandlers.ListTradesHandler())
			trades.PATCH("/:trade_id", journalHandlers.UpdateTradeHandler())
			trades.POST("/import/tradovate", ingestHandlers.ImportTradovateHandler())
		}

		// Internal routes (should be protected by internal network)
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth(jwtSecret))
		{
			internal.POST("/recalculate-pnl", journalHandlers.RecalculatePnLHandler())
		}
	}
}
