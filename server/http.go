package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"media-registry/config"
	"media-registry/constant"
	"media-registry/handler"
	"media-registry/pkg/rabbitmq"
	"media-registry/service"
	"media-registry/storage"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 15 * time.Second

var auditBinding = rabbitmq.Binding{
	Queue:              "recording_audit_queue",
	RoutingKey:         "recording.audit.request",
	DeadLetterExchange: "recording_exchange_dlx",
	DeadLetterQueue:    "recording_audit_queue_dlq",
}

func RunHttp(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	deps, err := newDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close(ctx)

	var opts []service.Option
	var conn *amqp.Connection
	if cfg.Queue.Enabled {
		conn, err = config.NewRabbitMQConn(ctx, cfg.Queue)
		if err != nil {
			return err
		}
		publisher, err := rabbitmq.NewEventPublisher(conn, cfg.Queue)
		if err != nil {
			return err
		}
		defer publisher.Close()
		opts = append(opts, service.WithEventPublisher(publisher))
	}
	registry := service.NewRegistry(deps.blobs, deps.repo, opts...)

	g, gctx := errgroup.WithContext(ctx)

	if conn != nil {
		auditConsumer := rabbitmq.NewConsumer(conn, cfg.Queue, auditBinding, cfg.Server.Workers, handler.AuditHandler)
		g.Go(func() error {
			err := auditConsumer.Consume(gctx, handler.ServiceDependencies{Registry: registry})
			if err != nil && !errors.Is(err, context.Canceled) {
				zerolog.Ctx(gctx).Error().Err(err).Msg("audit consumer error")
			}
			return nil
		})
	}

	srv := http.Server{
		Handler:           newRouter(ctx, cfg, deps.blobs, registry),
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		zerolog.Ctx(gctx).Info().Str("addr", srv.Addr).Msg("start http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zerolog.Ctx(gctx).Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
	return err
}

func newRouter(ctx context.Context, cfg *config.Config, blobs storage.BlobStore, registry service.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), requestLogger(*zerolog.Ctx(ctx)), cors())
	addHealth(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.NewRecordingHandler(registry, blobs, cfg.App, cfg.Server.MaxUploadMB).Register(r)
	return r
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}
