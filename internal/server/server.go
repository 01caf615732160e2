package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/voixlabs/dialdash/internal/calllog"
	"github.com/voixlabs/dialdash/internal/config"
	"github.com/voixlabs/dialdash/internal/contact"
	"github.com/voixlabs/dialdash/internal/deviceapi"
	"github.com/voixlabs/dialdash/internal/devicesettings"
	"github.com/voixlabs/dialdash/internal/observability"
	"github.com/voixlabs/dialdash/internal/session"
	"github.com/voixlabs/dialdash/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(logger *zap.Logger, metrics *observability.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(metrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(logger *zap.Logger, metrics *observability.Metrics) *gin.Engine {
	return NewEngine(logger, metrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, logger *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("http server listening", zap.String("addr", cfg.ListenAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	store        store.Store
	sessions     *session.Manager
	resolver     *contact.Resolver
	tracker      *calllog.Tracker
	gateway      *deviceapi.Client
	settings     *devicesettings.Service
	metrics      *observability.Metrics
	logger       *zap.Logger
	loginLimiter *rateLimiter
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Cfg      config.Config
	Store    store.Store
	Sessions *session.Manager
	Resolver *contact.Resolver
	Tracker  *calllog.Tracker
	Gateway  *deviceapi.Client
	Settings *devicesettings.Service
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		store:        p.Store,
		sessions:     p.Sessions,
		resolver:     p.Resolver,
		tracker:      p.Tracker,
		gateway:      p.Gateway,
		settings:     p.Settings,
		metrics:      p.Metrics,
		logger:       p.Logger,
		loginLimiter: newRateLimiter(10, time.Minute),
	}

	svc.engine.Use(session.Establish(p.Store, p.Sessions, p.Logger))

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.Me)
}

func (s *Server) registerAPIRoutes() {
	s.engine.GET("/health", s.Health)

	api := s.engine.Group("/api")

	// -------- Contacts --------
	api.GET("/contacts", AuthRequired(), s.ListContacts)
	api.POST("/contacts", AuthRequired(), s.CreateContact)
	api.GET("/contacts/:id", AuthRequired(), s.GetContact)
	api.PUT("/contacts/:id", AuthRequired(), s.UpdateContact)
	api.DELETE("/contacts/:id", AuthRequired(), s.DeleteContact)

	// -------- Calls --------
	api.GET("/calls", AuthRequired(), s.ListCalls)
	api.POST("/calls", AuthRequired(), s.LogCall)
	api.POST("/calls/end", AuthRequired(), s.EndCall)

	// -------- Device --------
	api.GET("/device/status", AuthRequired(), s.DeviceStatus)
	api.GET("/device/call", AuthRequired(), s.CallStatus)
	api.POST("/device/hangup", AuthRequired(), s.Hangup)
	api.GET("/settings/device", AuthRequired(), s.GetDeviceSettings)
	api.PUT("/settings/device", AuthRequired(), s.SaveDeviceSettings)
	api.POST("/settings/device/test", AuthRequired(), s.TestDeviceConnection)

	// -------- Recordings --------
	api.GET("/recordings", AuthRequired(), s.ListRecordings)
	api.GET("/recordings/:filename/stream", AuthRequired(), s.StreamRecording)
	api.POST("/recordings/:filename/transfer", AuthRequired(), s.TransferRecording)
	api.DELETE("/recordings/:filename", AuthRequired(), s.DeleteRecording)
	api.POST("/recordings/:filename/transcribe", AuthRequired(), s.TranscribeRecording)

	// -------- Device API keys --------
	api.GET("/device/keys", AuthRequired(), s.ListDeviceKeys)
	api.POST("/device/keys", AuthRequired(), s.CreateDeviceKey)
	api.DELETE("/device/keys/:name", AuthRequired(), s.DeleteDeviceKey)
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"app":     s.cfg.AppName,
		"version": s.cfg.AppVersion,
	})
}
