package server

import (
	"encoding/json"
	"slices"
	"time"
)

const (
	// defaultNoteContent seeds the shared note of a freshly created room.
	defaultNoteContent = "Welcome! Start typing to share this note with your room."
	// maxChatHistory bounds a room's chat history; oldest entries are
	// dropped silently on overflow.
	maxChatHistory = 100
)

// Room is the live state of one collaboration session: the member list
// in join order, the shared note, and the bounded chat history. It is
// only ever touched from the server's run loop.
type Room struct {
	id          string
	members     []string
	content     string
	chatHistory []json.RawMessage
	createdAt   time.Time
}

func (r *Room) hasMember(connId string) bool {
	return slices.Contains(r.members, connId)
}

// addMember appends connId to the member list, preserving join order.
// It reports whether the member was added; re-adding an existing member
// is a no-op.
func (r *Room) addMember(connId string) bool {
	if r.hasMember(connId) {
		return false
	}
	r.members = append(r.members, connId)
	return true
}

// removeMember reports whether connId was present and removed.
func (r *Room) removeMember(connId string) bool {
	i := slices.Index(r.members, connId)
	if i < 0 {
		return false
	}
	r.members = slices.Delete(r.members, i, i+1)
	return true
}

// memberList returns a copy safe to hand to outbound events.
func (r *Room) memberList() []string {
	return slices.Clone(r.members)
}

// membersExcept returns a copy of the member list without connId, used
// as the recipient set for sender-excluded broadcasts.
func (r *Room) membersExcept(connId string) []string {
	others := make([]string, 0, len(r.members))
	for _, m := range r.members {
		if m != connId {
			others = append(others, m)
		}
	}
	return others
}

// appendChat appends msg and truncates the history to the most recent
// maxChatHistory entries.
func (r *Room) appendChat(msg json.RawMessage) {
	r.chatHistory = append(r.chatHistory, msg)
	if len(r.chatHistory) > maxChatHistory {
		r.chatHistory = r.chatHistory[len(r.chatHistory)-maxChatHistory:]
	}
}

// RoomStore is the single authority for room existence. All operations
// are plain map lookups; absence is a missing result, never an error.
type RoomStore struct {
	rooms map[string]*Room
	now   func() time.Time
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*Room),
		now:   time.Now,
	}
}

func (s *RoomStore) Get(id string) (*Room, bool) {
	r, ok := s.rooms[id]
	return r, ok
}

// GetOrCreate returns the room with the given id, creating it with the
// default note content, an empty chat history, and the current time if
// it does not exist. Any string, including the empty string, is a valid
// room id.
func (s *RoomStore) GetOrCreate(id string) *Room {
	if r, ok := s.rooms[id]; ok {
		return r
	}

	r := &Room{
		id:          id,
		content:     defaultNoteContent,
		chatHistory: []json.RawMessage{},
		createdAt:   s.now(),
	}
	s.rooms[id] = r
	return r
}

func (s *RoomStore) Delete(id string) {
	delete(s.rooms, id)
}

// All returns the rooms in unspecified order.
func (s *RoomStore) All() []*Room {
	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

func (s *RoomStore) Len() int {
	return len(s.rooms)
}
