package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/skymirror/skymirror/client"
	"github.com/skymirror/skymirror/internal/config"
	"github.com/skymirror/skymirror/internal/infra/database"
	"github.com/skymirror/skymirror/internal/infra/repository"
	"github.com/skymirror/skymirror/internal/infra/stream"
	"github.com/skymirror/skymirror/internal/present/rest"
	"github.com/skymirror/skymirror/internal/present/rest/middleware"
	"github.com/skymirror/skymirror/internal/service"
	"github.com/skymirror/skymirror/internal/usecase"
	"github.com/skymirror/skymirror/schemas"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	backfillCollections := flag.Bool("backfill", false, "backfill the configured collections before serving")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	domainConf := conf.Domain()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if conf.Server.EnableTrace {
		shutdown, err := setupTracer(ctx, conf.Server.TraceEndpoint)
		if err != nil {
			slog.Error("setting up tracing", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer shutdown(context.Background())
	}

	db, err := database.NewSqlite(conf.Server.DatabasePath)
	if err != nil {
		slog.Error("opening database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		slog.Error("migrating database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rdb := database.NewRedis(conf.Server.RedisAddr, "", conf.Server.RedisDB)
	mc := database.NewMemcached(conf.Server.MemcachedAddr)

	atp := client.New(conf.Atproto.PlcDirectory, conf.Atproto.Relay)

	index := repository.NewIndexRepository(db, mc, domainConf)

	leadership := service.NewLeadership(conf.Server.LeadershipPath)
	if err := leadership.Acquire(); err != nil {
		slog.Error("acquiring leadership", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer leadership.Release()
	slog.Info("leadership resolved", slog.Bool("primary", leadership.IsPrimary()))

	signalService := service.NewSignalService(rdb)
	go signalService.Listen(ctx)

	limiter := service.NewRateLimiter(db)

	validator := schemas.NewValidator(conf.Atproto.CollectionRequired)

	indexUC := usecase.NewIndexUsecase(index)
	ingest := usecase.NewIngestUsecase(domainConf, index, signalService, leadership, validator)
	labelIngest := usecase.NewLabelIngest(index)
	backfill := usecase.NewBackfillUsecase(index, atp)

	if *backfillCollections {
		if err := backfill.Collections(ctx, domainConf.WantedCollections(), nil); err != nil {
			slog.Error("backfilling collections", slog.String("error", err.Error()))
		}
	}

	streamOpts := stream.Options{
		MaxReconnectAttempts: conf.Stream.MaxReconnectAttempts,
		BackoffBase:          time.Duration(conf.Stream.BackoffBaseSeconds) * time.Second,
		BackoffMax:           time.Duration(conf.Stream.BackoffMaxSeconds) * time.Second,
	}

	jetstream := stream.NewJetstream(conf.Stream.JetstreamURL, domainConf.WantedCollections(), ingest.HandleCommit, streamOpts)
	if err := jetstream.Connect(ctx); err != nil {
		slog.Error("connecting to jetstream", slog.String("error", err.Error()))
	}
	defer jetstream.Disconnect()

	if conf.Atproto.LabelerDID != "" {
		endpoint, err := atp.ResolveLabelerEndpoint(ctx, conf.Atproto.LabelerDID)
		if err != nil {
			slog.Error("resolving labeler endpoint",
				slog.String("error", err.Error()),
				slog.String("did", conf.Atproto.LabelerDID),
			)
		} else {
			labeler := stream.NewLabeler(endpoint, labelIngest.HandleEvent, labelIngest.Resync, streamOpts)
			if err := labeler.Connect(ctx); err != nil {
				slog.Error("connecting to labeler", slog.String("error", err.Error()))
			}
			defer labeler.Disconnect()
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("skymirror"))
	}

	rateLimit := middleware.NewRateLimitMiddleware(limiter)
	e.Use(rateLimit.Limit("api", 300, time.Minute))

	handler := rest.NewHandler(domainConf, indexUC, signalService)
	handler.RegisterRoutes(e)

	go func() {
		if err := e.Start(conf.Server.Listen); err != nil {
			slog.Info("server stopped", slog.String("error", err.Error()))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutting down server", slog.String("error", err.Error()))
	}
}

func setupTracer(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := sdkresource.New(ctx,
		sdkresource.WithAttributes(
			semconv.ServiceName("skymirror"),
		),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}
