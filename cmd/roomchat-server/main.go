// Command roomchat-server runs the HTTP chat server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/roomchat/roomchat/pkg/database"
	"github.com/roomchat/roomchat/pkg/server"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "~/.roomchat/server.toml", "Path to config file")
	pretty := flag.Bool("pretty", false, "Human-readable console logs")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("roomchat-server %s\n", version)
		return
	}

	var logger zerolog.Logger
	if *pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	cfg, err := server.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	dbPath, err := cfg.GetDatabasePath()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve database path")
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", dbPath).Msg("failed to open database")
	}
	defer db.Close()
	logger.Info().Str("path", dbPath).Msg("database opened")

	srv := server.NewServer(cfg, db, logger, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}
