package server

import (
	"context"
	"log"
	"time"

	"github.com/npezzotti/go-collab/internal/stats"
)

const (
	statActiveConnections = "ActiveConnections"
	statActiveRooms       = "ActiveRooms"
	statEventsBroadcast   = "EventsBroadcast"
	statRoomsSwept        = "RoomsSwept"
)

// CollabServer is the broker's monitor goroutine. Registration, client
// events, janitor ticks and facade queries are all serialized through
// Run, so the store is never observed mid-mutation and no locking is
// needed around room state.
type CollabServer struct {
	log      *log.Logger
	stats    stats.StatsProvider
	store    *RoomStore
	sessions *SessionManager
	janitor  *Janitor

	clients        map[string]*Client
	RegisterChan   chan *Client
	DeRegisterChan chan *Client
	eventChan      chan *ClientEvent
	queryChan      chan *queryReq
	stop           chan struct{}
	done           chan struct{}

	sweepInterval time.Duration
	roomCount     int
}

func NewCollabServer(logger *log.Logger, su stats.StatsProvider, retention, sweepInterval time.Duration) (*CollabServer, error) {
	store := NewRoomStore()
	cs := &CollabServer{
		log:            logger,
		stats:          su,
		store:          store,
		sessions:       NewSessionManager(store, logger),
		janitor:        NewJanitor(store, retention, logger),
		clients:        make(map[string]*Client),
		RegisterChan:   make(chan *Client),
		DeRegisterChan: make(chan *Client),
		eventChan:      make(chan *ClientEvent, 256),
		queryChan:      make(chan *queryReq),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
		sweepInterval:  sweepInterval,
	}

	for _, name := range []string{
		statActiveConnections,
		statActiveRooms,
		statEventsBroadcast,
		statRoomsSwept,
	} {
		cs.stats.RegisterMetric(name)
	}

	return cs, nil
}

func (cs *CollabServer) Run() {
	ticker := time.NewTicker(cs.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case c := <-cs.RegisterChan:
			cs.addClient(c)
		case c := <-cs.DeRegisterChan:
			cs.removeClient(c)
		case ev := <-cs.eventChan:
			cs.dispatch(ev)
		case <-ticker.C:
			swept := cs.janitor.Sweep(time.Now())
			for i := 0; i < swept; i++ {
				cs.stats.Incr(statRoomsSwept)
			}
			cs.syncRoomGauge()
		case q := <-cs.queryChan:
			cs.handleQuery(q)
		case <-cs.stop:
			cs.log.Println("closing client connections")
			for _, c := range cs.clients {
				c.stopClient()
			}
			close(cs.done)
			return
		}
	}
}

func (cs *CollabServer) addClient(c *Client) {
	cs.log.Printf("registering connection %q", c.id)
	cs.clients[c.id] = c
	cs.stats.Incr(statActiveConnections)
}

// removeClient deregisters a connection and leaves every room it was a
// member of, fanning out the resulting user_left events.
func (cs *CollabServer) removeClient(c *Client) {
	if _, ok := cs.clients[c.id]; !ok {
		return
	}

	cs.log.Printf("deregistering connection %q", c.id)
	delete(cs.clients, c.id)
	cs.stats.Decr(statActiveConnections)

	cs.deliver(cs.sessions.Disconnect(c.id))
	cs.syncRoomGauge()
}

func (cs *CollabServer) dispatch(ev *ClientEvent) {
	connId := ev.client.id

	var broadcasts []Broadcast
	switch {
	case ev.JoinRoom != nil:
		broadcasts = cs.sessions.Join(connId, ev.JoinRoom.RoomId)
	case ev.LeaveRoom != nil:
		broadcasts = cs.sessions.Leave(connId, ev.LeaveRoom.RoomId)
	case ev.NoteChange != nil:
		broadcasts = cs.sessions.UpdateContent(connId, ev.NoteChange.RoomId, ev.NoteChange.Content)
	case ev.ChatMessage != nil:
		broadcasts = cs.sessions.AppendChat(connId, ev.ChatMessage.RoomId, ev.ChatMessage.Message)
	case ev.TypingStart != nil:
		broadcasts = cs.sessions.SetTyping(connId, ev.TypingStart.RoomId, true)
	case ev.TypingStop != nil:
		broadcasts = cs.sessions.SetTyping(connId, ev.TypingStop.RoomId, false)
	default:
		cs.log.Printf("dropping empty event from %q", connId)
	}

	cs.deliver(broadcasts)
	cs.syncRoomGauge()
}

// deliver queues each event on its recipients' send buffers. Sends are
// fire-and-forget: a recipient with a full buffer is skipped, never
// waited on.
func (cs *CollabServer) deliver(broadcasts []Broadcast) {
	for _, b := range broadcasts {
		for _, id := range b.Recipients {
			c, ok := cs.clients[id]
			if !ok {
				continue
			}
			if !c.queueEvent(b.Event) {
				cs.log.Printf("dropping event for %q, send buffer full", id)
				continue
			}
			cs.stats.Incr(statEventsBroadcast)
		}
	}
}

func (cs *CollabServer) syncRoomGauge() {
	n := cs.store.Len()
	for cs.roomCount < n {
		cs.stats.Incr(statActiveRooms)
		cs.roomCount++
	}
	for cs.roomCount > n {
		cs.stats.Decr(statActiveRooms)
		cs.roomCount--
	}
}

// Shutdown stops the run loop and waits for it to close all clients, or
// for ctx to expire.
func (cs *CollabServer) Shutdown(ctx context.Context) error {
	close(cs.stop)

	select {
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
