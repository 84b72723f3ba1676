package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/npezzotti/go-collab/internal/api"
	"github.com/npezzotti/go-collab/internal/config"
	"github.com/npezzotti/go-collab/internal/server"
	"github.com/npezzotti/go-collab/internal/stats"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	staticDir      string
	roomRetention  time.Duration
	sweepInterval  time.Duration
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&staticDir, "static-dir", "", "directory of static client assets, disabled if empty")
	flag.DurationVar(&roomRetention, "room-retention", time.Hour, "how long an empty room is retained before the janitor sweeps it")
	flag.DurationVar(&sweepInterval, "sweep-interval", 5*time.Minute, "interval between janitor sweeps")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[go-collab] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, allowedOrigins, staticDir, roomRetention, sweepInterval)
	if err != nil {
		logger.Fatal("config:", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	collabServer, err := server.NewCollabServer(logger, statsUpdater, cfg.RoomRetention, cfg.SweepInterval)
	if err != nil {
		logger.Fatal("new collab server:", err)
	}

	srv := api.NewGoCollabApp(mux, logger, collabServer, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go collabServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down collab server...")
	if err := collabServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("collab server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
