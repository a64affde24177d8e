/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/telekom/email-notifier/pkg/apiresponses"
	"github.com/telekom/email-notifier/pkg/config"
	"github.com/telekom/email-notifier/pkg/metrics"
	"github.com/telekom/email-notifier/pkg/notifier"
	"github.com/telekom/email-notifier/pkg/ratelimit"
	"github.com/telekom/email-notifier/pkg/system"
)

const shutdownTimeout = 15 * time.Second

// Notifier is what the server needs from *notifier.Notifier.
type Notifier interface {
	Request(params map[string]any) notifier.Request
	Compose(req notifier.Request) (*notifier.Message, error)
	SendAsync(ctx context.Context, req notifier.Request) <-chan error
}

type Server struct {
	gin      *gin.Engine
	config   config.Server
	notifier Notifier
	limiter  *ratelimit.ClientLimiter
	log      *zap.SugaredLogger
}

func NewServer(log *zap.Logger, cfg config.Server, n Notifier, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
		tracing(),
		system.RequestLogger(log.Sugar().Named("api"), uuid.NewString),
	)

	if len(cfg.AllowedOrigins) > 0 {
		engine.Use(
			cors.New(cors.Config{
				AllowOrigins:  cfg.AllowedOrigins,
				AllowMethods:  []string{"GET", "POST", "OPTIONS"},
				AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
				ExposeHeaders: []string{"X-Request-ID"},
				MaxAge:        12 * time.Hour,
			}),
		)
	}

	s := &Server{
		gin:      engine,
		config:   cfg,
		notifier: n,
		log:      log.Sugar().Named("api"),
	}

	engine.NoRoute(func(c *gin.Context) { apiresponses.RespondNotFoundSimple(c, "route not found") })
	engine.GET("healthz", s.healthz)
	engine.GET("metrics", gin.WrapH(metrics.MetricsHandler()))

	v1 := engine.Group("api/v1")
	if cfg.RateLimit != nil {
		rl := ratelimit.DefaultConfig()
		rl.Rate = cfg.RateLimit.Rate
		rl.Burst = cfg.RateLimit.Burst
		s.limiter = ratelimit.New(rl)
		v1.Use(s.limiter.Middleware("notifications"))
	}
	v1.POST("notifications", s.sendNotification)
	v1.POST("notifications/preview", s.previewNotification)

	return s
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Listen serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context) error {
	defer s.Close()

	srv := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.gin,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("Starting HTTP server", "address", s.config.ListenAddress)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Close releases the rate limiter. Listen calls it on return.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
