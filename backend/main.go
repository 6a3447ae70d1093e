package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fota-manager/backend/global"
	"fota-manager/backend/initialize"
	"fota-manager/backend/server"

	"github.com/rs/zerolog"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to the YAML config file")
		host       = flag.String("host", "", "Override server.host")
		port       = flag.Int("port", 0, "Override server.port")
		verbose    = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()

	if *verbose {
		initialize.SetupLogger(os.Stdout, zerolog.DebugLevel)
	}

	app, err := initialize.Build(*configPath)
	if err != nil {
		global.Logger.Fatal().Err(err).Msg("startup failed")
	}
	if *host != "" {
		app.Cfg.Server.Host = *host
	}
	if *port > 0 {
		app.Cfg.Server.Port = *port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go app.Sessions.Run(ctx, time.Minute)

	srv := server.NewHTTPServer(app.Cfg.Server.Host, app.Cfg.Server.Port, app.Router)
	if err := server.StartHTTPServer(srv); err != nil {
		global.Logger.Fatal().Err(err).Msg("http server")
	}

	<-ctx.Done()
	global.Logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx, srv); err != nil {
		global.Logger.Error().Err(err).Msg("http shutdown")
	}
	if err := app.Close(shutdownCtx); err != nil {
		global.Logger.Error().Err(err).Msg("push jobs still running at exit")
	}
}
