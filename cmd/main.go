package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hmwcs/id-service/internal/config"
	"github.com/hmwcs/id-service/internal/generator"
	"github.com/hmwcs/id-service/internal/handler"
	pkglog "github.com/hmwcs/id-service/pkg/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "id-service",
	})
	logger := pkglog.L()

	logger.Info().Msg("starting id-service")

	// Initialize Snowflake generator
	snowflake, err := generator.NewSnowflakeGeneratorWithEpoch(
		cfg.Snowflake.DataCenterID, cfg.Snowflake.MachineID, cfg.Snowflake.Epoch)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create snowflake generator")
	}
	logger.Info().
		Int64(pkglog.FieldDataCenterID, cfg.Snowflake.DataCenterID).
		Int64(pkglog.FieldMachineID, cfg.Snowflake.MachineID).
		Int64(pkglog.FieldEpoch, cfg.Snowflake.Epoch).
		Msg("snowflake generator initialized")

	// Emit one sample ID so operators can eyeball the configured layout.
	if id, err := snowflake.NextID(); err == nil {
		logger.Info().
			Str("id", strconv.FormatInt(id, 10)).
			Str("id_binary", strconv.FormatInt(id, 2)).
			Msg("sample snowflake id")
	}

	// Initialize opaque-format generators
	nanoidGen, err := generator.NewNanoIDGenerator(cfg.NanoID.Size, cfg.NanoID.Alphabet)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create nanoid generator")
	}

	cuid2Gen, err := generator.NewCUID2Generator(cfg.CUID2.Length)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create cuid2 generator")
	}

	opaque := map[string]generator.Generator{
		"uuid":   generator.NewUUIDGenerator(),
		"ulid":   generator.NewULIDGenerator(),
		"ksuid":  generator.NewKSUIDGenerator(),
		"nanoid": nanoidGen,
		"cuid2":  cuid2Gen,
	}

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(pkglog.GinMiddleware(logger), gin.Recovery())

	httpHandler := handler.NewHandler(snowflake, opaque)
	httpHandler.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Info().Str("addr", addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down id-service")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}
	logger.Info().Msg("id-service stopped")
}
