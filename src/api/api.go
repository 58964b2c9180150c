package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/openballot/election-api/src/api/config"
	"github.com/openballot/election-api/src/api/data"
	"github.com/openballot/election-api/src/api/election"
	"github.com/openballot/election-api/src/api/media"
	"github.com/openballot/election-api/src/api/types"
	"github.com/openballot/election-api/src/api/webserver"
)

var allModels = []interface{}{
	&types.Election{}, &types.Question{}, &types.Answer{},
	&types.RewardConfig{}, &types.MediaAttachment{},
	&types.Setting{},
}

func migrate(db *gorm.DB) {
	if err := db.AutoMigrate(allModels...); err != nil {
		log.Fatalf("migrate: %v", err)
	}
}

func mustLogger() *zap.Logger {
	var logger *zap.Logger
	var err error
	if os.Getenv("GIN_MODE") == "release" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	return logger
}

func main() {
	cfg := config.Load()
	logger := mustLogger()
	defer func() { _ = logger.Sync() }()

	db := data.MustMySQL(cfg.MySQLDSN)
	migrate(db)

	if err := data.LoadSettings(db); err != nil {
		log.Printf("Failed to load settings: %v", err)
	}
	data.StartSettingsRefresh(context.Background(), db, 5*time.Minute)

	rdb := data.MustRedis(cfg.RedisURL)

	var mediaClient media.Client
	if cfg.MediaBucket != "" {
		gcs, err := media.NewGCSClient(context.Background(), logger, cfg.MediaBucket, cfg.MediaPublicURL)
		if err != nil {
			log.Fatalf("media: %v", err)
		}
		defer func() { _ = gcs.Close() }()
		mediaClient = gcs
	} else {
		log.Printf("MEDIA_BUCKET not set; media uploads disabled")
	}

	svc := election.NewService(db, rdb, mediaClient, logger)
	router := webserver.New(cfg, rdb, svc, logger)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Election API listening on %s", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutCtx)
}
