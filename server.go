package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/listings_backend/config"
	"bitbucket.org/mmdatafocus/listings_backend/gbp"
	"bitbucket.org/mmdatafocus/listings_backend/gbpsync"
	"bitbucket.org/mmdatafocus/listings_backend/middlewares"
	"bitbucket.org/mmdatafocus/listings_backend/models"
	"bitbucket.org/mmdatafocus/listings_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))
	r.Use(middlewares.AuthMiddleware())
	r.Use(requestLogger(logger))
	r.Use(gin.Recovery())

	minInterval := time.Minute / time.Duration(utils.IntFromEnv("GBP_RATE_LIMIT_PER_MIN", 10))
	engine := gbpsync.NewEngine(gbp.NewClient(gbp.NewRateLimiter(minInterval)))

	r.POST("/api/login", gbpsync.LoginHandler)

	r.GET("/api/listings", gbpsync.ListListingsHandler)
	r.GET("/api/listings/:id", gbpsync.GetListingHandler)
	r.GET("/api/listings/:id/reviews", gbpsync.ListReviewsHandler)

	r.POST("/api/listings/:id/sync", gbpsync.TriggerSyncHandler(engine))
	r.GET("/api/listings/:id/sync/status", gbpsync.SyncStatusHandler)
	r.GET("/api/listings/:id/sync/history", gbpsync.SyncHistoryHandler)
	r.GET("/api/sync-runs/:id", gbpsync.SyncRunDetailHandler)
	r.POST("/api/sync-runs/:id/retry", gbpsync.RetrySyncRunHandler(engine))

	r.POST("/api/listings/:id/posts", gbpsync.CreatePostHandler)
	r.POST("/api/posts/:id/publish", gbpsync.PublishPostHandler(engine))
	r.POST("/api/posts/bulk-publish", gbpsync.BulkPublishPostsHandler(engine))
	r.PUT("/api/reviews/:id/reply-draft", gbpsync.DraftReviewReplyHandler)
	r.POST("/api/reviews/:id/reply/approve", gbpsync.ApproveReviewReplyHandler)
	r.POST("/api/reviews/:id/reply/publish", gbpsync.PublishReviewReplyHandler(engine))

	r.POST("/api/listings/:id/audit", gbpsync.RunAuditHandler(engine))
	r.GET("/api/listings/:id/audits", gbpsync.AuditHistoryHandler)
	r.GET("/api/audits/:id/narrative", gbpsync.AuditNarrativeHandler)

	r.GET("/api/activities", gbpsync.ListActivitiesHandler)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Cloud Run needs the listener up before slow dependencies connect.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	if !utils.EnvBoolDefault("SKIP_MIGRATIONS", false) {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	select {
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.WithFields(logrus.Fields{"field": "server"}).Error(err)
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		logger.WithFields(logrus.Fields{
			"status":         c.Writer.Status(),
			"method":         c.Request.Method,
			"path":           c.Request.URL.Path,
			"latency":        latency.String(),
			"correlation_id": cid,
		}).Info("request")
	}
}
