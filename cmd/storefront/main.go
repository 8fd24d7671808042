package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	html "github.com/gofiber/template/html/v2"
	"github.com/rs/zerolog/log"

	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/http/handlers"
	applog "storefront/internal/log"
	"storefront/internal/repos"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Warn().Err(err).Str("file", cfg.LogFile).Msg("[log] could not open log file")
		} else {
			defer f.Close()
			out = io.MultiWriter(os.Stdout, f)
		}
	}
	applog.Init(out, cfg.LogLevel)

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("[db] open")
	}
	defer db.Close()
	if cfg.SeedDemoData {
		if err := repos.SeedDemo(db); err != nil {
			log.Fatal().Err(err).Msg("[db] seed demo data")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pub events.Publisher = events.LogPublisher{}
	if cfg.EventsTopic != "" {
		sp, err := events.NewSNSPublisherFromEnv(ctx, cfg.EventsTopic)
		if err != nil {
			log.Fatal().Err(err).Msg("[events] sns")
		}
		pub = sp
	}

	engine := html.New(cfg.TemplatesDir, ".html")
	deps := handlers.NewDeps(db, cfg, pub)
	app := handlers.NewApp(deps, cfg, engine)

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("[http] shutdown")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("[http] listening")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("[http] listen")
	}
}
