package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/go-collab/internal/config"
	"github.com/npezzotti/go-collab/internal/server"
	"github.com/npezzotti/go-collab/internal/types"
)

// RoomDirectory is the read-only view of the broker the status
// endpoints consume.
type RoomDirectory interface {
	RoomInfo(roomId string) (types.RoomInfo, bool)
	ListRooms() []types.RoomInfo
}

type GoCollabApp struct {
	log            *log.Logger
	cs             *server.CollabServer
	rooms          RoomDirectory
	mux            *http.Server
	allowedOrigins []string
	startTime      time.Time
}

func NewGoCollabApp(mux *http.ServeMux, logger *log.Logger, cs *server.CollabServer, cfg *config.Config) *GoCollabApp {
	s := &GoCollabApp{
		log:            logger,
		cs:             cs,
		rooms:          cs,
		allowedOrigins: cfg.AllowedOrigins,
		startTime:      time.Now(),
	}

	mux.HandleFunc("GET /api/rooms", s.getRooms)
	mux.HandleFunc("GET /healthz", s.health)
	mux.HandleFunc("GET /ws", s.serveWs)
	if cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *GoCollabApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *GoCollabApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
