package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-collab/internal/server"
	"github.com/teris-io/shortid"
)

type HealthResponse struct {
	Status   string `json:"status"`
	UptimeMs int64  `json:"uptime_ms"`
}

func (s *GoCollabApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

// getRooms serves both the single-room lookup (?id=) and the aggregate
// room listing. Both are read-only snapshots from the query facade.
func (s *GoCollabApp) getRooms(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("id"); id != "" {
		info, ok := s.rooms.RoomInfo(id)
		if !ok {
			errResp := NewNotFoundError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, info)
		return
	}

	s.writeJson(w, http.StatusOK, s.rooms.ListRooms())
}

func (s *GoCollabApp) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJson(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		UptimeMs: time.Since(s.startTime).Milliseconds(),
	})
}

func (s *GoCollabApp) generateSocketId() (string, error) {
	return shortid.Generate()
}

func (s *GoCollabApp) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}

	socketId, err := s.generateSocketId()
	if err != nil {
		s.log.Println("generateSocketId:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(socketId, conn, s.cs, s.log)

	s.cs.RegisterChan <- client
	go client.Write()
	go client.Read()
}
