package server

import (
	"encoding/json"
	"log"
	"slices"
)

// SessionManager implements the join/leave/disconnect, note, chat and
// typing operations against the room store. Every operation mutates
// state and returns the broadcasts the caller should deliver; it never
// sends anything itself. Operations from non-members are silent no-ops,
// never errors.
type SessionManager struct {
	store *RoomStore
	// registry maps a connection id to the set of room ids it has
	// joined, consulted on disconnect.
	registry map[string]map[string]struct{}
	log      *log.Logger
}

func NewSessionManager(store *RoomStore, logger *log.Logger) *SessionManager {
	return &SessionManager{
		store:    store,
		registry: make(map[string]map[string]struct{}),
		log:      logger,
	}
}

// Join adds connId to the room, creating the room if needed. The joiner
// always receives a room_joined snapshot; the other members receive
// user_joined only if the joiner was not already a member.
func (sm *SessionManager) Join(connId, roomId string) []Broadcast {
	room := sm.store.GetOrCreate(roomId)

	added := room.addMember(connId)
	if added {
		sm.subscribe(connId, roomId)
		sm.log.Printf("connection %q joined room %q", connId, roomId)
	}

	broadcasts := []Broadcast{{
		Recipients: []string{connId},
		Event: &ServerEvent{
			RoomJoined: &RoomJoined{
				RoomId:      roomId,
				Users:       room.memberList(),
				Content:     room.content,
				ChatHistory: slices.Clone(room.chatHistory),
			},
		},
	}}

	if added {
		if others := room.membersExcept(connId); len(others) > 0 {
			broadcasts = append(broadcasts, Broadcast{
				Recipients: others,
				Event: &ServerEvent{
					UserJoined: &UserJoined{
						SocketId: connId,
						Users:    room.memberList(),
					},
				},
			})
		}
	}

	return broadcasts
}

// UpdateContent overwrites the room's note, last writer wins. Updates
// from connections that are not members are dropped.
func (sm *SessionManager) UpdateContent(connId, roomId, content string) []Broadcast {
	room, ok := sm.store.Get(roomId)
	if !ok || !room.hasMember(connId) {
		return nil
	}

	room.content = content

	others := room.membersExcept(connId)
	if len(others) == 0 {
		return nil
	}

	return []Broadcast{{
		Recipients: others,
		Event: &ServerEvent{
			NoteUpdate: &NoteUpdate{
				Content: content,
				Sender:  connId,
			},
		},
	}}
}

// AppendChat appends the opaque message to the room's history and fans
// it out to every member, sender included.
func (sm *SessionManager) AppendChat(connId, roomId string, msg json.RawMessage) []Broadcast {
	room, ok := sm.store.Get(roomId)
	if !ok || !room.hasMember(connId) {
		return nil
	}

	room.appendChat(msg)

	return []Broadcast{{
		Recipients: room.memberList(),
		Event:      &ServerEvent{ChatMessage: msg},
	}}
}

// Leave removes connId from the room. Remaining members receive
// user_left; the room is deleted the moment it empties. Leaving a room
// the connection never joined is a no-op.
func (sm *SessionManager) Leave(connId, roomId string) []Broadcast {
	room, ok := sm.store.Get(roomId)
	if !ok {
		return nil
	}

	sm.unsubscribe(connId, roomId)
	if !room.removeMember(connId) {
		return nil
	}
	sm.log.Printf("connection %q left room %q", connId, roomId)

	if len(room.members) == 0 {
		sm.store.Delete(roomId)
		sm.log.Printf("deleted empty room %q", roomId)
		return nil
	}

	return []Broadcast{{
		Recipients: room.memberList(),
		Event: &ServerEvent{
			UserLeft: &UserLeft{
				SocketId: connId,
				Users:    room.memberList(),
			},
		},
	}}
}

// Disconnect applies Leave to every room the connection is a member of.
// Rooms are walked in sorted id order; clients cannot observe the order
// since broadcasts are room-scoped.
func (sm *SessionManager) Disconnect(connId string) []Broadcast {
	roomIds := sm.Rooms(connId)
	slices.Sort(roomIds)

	var broadcasts []Broadcast
	for _, roomId := range roomIds {
		broadcasts = append(broadcasts, sm.Leave(connId, roomId)...)
	}

	delete(sm.registry, connId)
	return broadcasts
}

// SetTyping forwards a typing indicator to the other members. It keeps
// no state and deliberately carries no membership guard.
func (sm *SessionManager) SetTyping(connId, roomId string, typing bool) []Broadcast {
	room, ok := sm.store.Get(roomId)
	if !ok {
		return nil
	}

	others := room.membersExcept(connId)
	if len(others) == 0 {
		return nil
	}

	return []Broadcast{{
		Recipients: others,
		Event: &ServerEvent{
			UserTyping: &UserTyping{
				SocketId: connId,
				Typing:   typing,
			},
		},
	}}
}

// Rooms returns the ids of the rooms the connection is currently in.
func (sm *SessionManager) Rooms(connId string) []string {
	rooms := make([]string, 0, len(sm.registry[connId]))
	for id := range sm.registry[connId] {
		rooms = append(rooms, id)
	}
	return rooms
}

func (sm *SessionManager) subscribe(connId, roomId string) {
	if sm.registry[connId] == nil {
		sm.registry[connId] = make(map[string]struct{})
	}
	sm.registry[connId][roomId] = struct{}{}
}

func (sm *SessionManager) unsubscribe(connId, roomId string) {
	if rooms, ok := sm.registry[connId]; ok {
		delete(rooms, roomId)
		if len(rooms) == 0 {
			delete(sm.registry, connId)
		}
	}
}
