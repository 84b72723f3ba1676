package server

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/npezzotti/go-collab/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func newTestSessionManager(t *testing.T) *SessionManager {
	return NewSessionManager(NewRoomStore(), testutil.TestLogger(t))
}

func TestJoin(t *testing.T) {
	t.Run("first join creates room and returns snapshot", func(t *testing.T) {
		sm := newTestSessionManager(t)

		broadcasts := sm.Join("a", "r1")
		assert.Len(t, broadcasts, 1, "expected only the snapshot for the first joiner")
		assert.Equal(t, []string{"a"}, broadcasts[0].Recipients, "expected snapshot to go to the joiner only")

		joined := broadcasts[0].Event.RoomJoined
		assert.NotNil(t, joined, "expected a room_joined event")
		assert.Equal(t, "r1", joined.RoomId, "expected room id to match")
		assert.Equal(t, []string{"a"}, joined.Users, "expected member list to contain the joiner")
		assert.Equal(t, defaultNoteContent, joined.Content, "expected default content in the snapshot")
		assert.Empty(t, joined.ChatHistory, "expected empty chat history in the snapshot")

		room, ok := sm.store.Get("r1")
		assert.True(t, ok, "expected room to exist after join")
		assert.Equal(t, []string{"a"}, room.members, "expected joiner in members")
	})

	t.Run("second join notifies existing members", func(t *testing.T) {
		sm := newTestSessionManager(t)
		sm.Join("a", "r1")

		broadcasts := sm.Join("b", "r1")
		assert.Len(t, broadcasts, 2, "expected snapshot plus user_joined")

		assert.Equal(t, []string{"b"}, broadcasts[0].Recipients, "expected snapshot to go to the joiner")
		assert.Equal(t, []string{"a", "b"}, broadcasts[0].Event.RoomJoined.Users, "expected snapshot users in join order")

		assert.Equal(t, []string{"a"}, broadcasts[1].Recipients, "expected user_joined to exclude the joiner")
		userJoined := broadcasts[1].Event.UserJoined
		assert.NotNil(t, userJoined, "expected a user_joined event")
		assert.Equal(t, "b", userJoined.SocketId, "expected user_joined to carry the new socket id")
		assert.Equal(t, []string{"a", "b"}, userJoined.Users, "expected user_joined to carry the updated member list")
	})

	t.Run("re-join is idempotent", func(t *testing.T) {
		sm := newTestSessionManager(t)
		sm.Join("a", "r1")
		sm.Join("b", "r1")

		broadcasts := sm.Join("a", "r1")
		assert.Len(t, broadcasts, 1, "expected no user_joined on re-join")
		assert.NotNil(t, broadcasts[0].Event.RoomJoined, "expected re-join to still return a snapshot")

		room, _ := sm.store.Get("r1")
		assert.Equal(t, []string{"a", "b"}, room.members, "expected membership to be unchanged by re-join")
	})

	t.Run("distinct joins never duplicate members", func(t *testing.T) {
		sm := newTestSessionManager(t)
		for i := 0; i < 10; i++ {
			sm.Join(fmt.Sprintf("conn-%d", i), "r1")
			sm.Join(fmt.Sprintf("conn-%d", i), "r1")
		}

		room, _ := sm.store.Get("r1")
		assert.Len(t, room.members, 10, "expected member count to equal distinct joined connections")
	})

	t.Run("empty room id is a valid room", func(t *testing.T) {
		sm := newTestSessionManager(t)

		broadcasts := sm.Join("a", "")
		assert.Len(t, broadcasts, 1, "expected join to an empty room id to succeed")

		_, ok := sm.store.Get("")
		assert.True(t, ok, "expected room with empty id to be created")
	})
}

func TestUpdateContent(t *testing.T) {
	t.Run("member update overwrites and notifies others", func(t *testing.T) {
		sm := newTestSessionManager(t)
		sm.Join("a", "r1")
		sm.Join("b", "r1")
		sm.Join("c", "r1")

		broadcasts := sm.UpdateContent("a", "r1", "x=1")
		assert.Len(t, broadcasts, 1, "expected a single note_update broadcast")
		assert.Equal(t, []string{"b", "c"}, broadcasts[0].Recipients, "expected the sender to be excluded")

		update := broadcasts[0].Event.NoteUpdate
		assert.NotNil(t, update, "expected a note_update event")
		assert.Equal(t, "x=1", update.Content, "expected updated content")
		assert.Equal(t, "a", update.Sender, "expected sender socket id")

		room, _ := sm.store.Get("r1")
		assert.Equal(t, "x=1", room.content, "expected content to be overwritten")
	})

	t.Run("last writer wins", func(t *testing.T) {
		sm := newTestSessionManager(t)
		sm.Join("a", "r1")
		sm.Join("b", "r1")

		sm.UpdateContent("a", "r1", "first")
		sm.UpdateContent("b", "r1", "second")

		room, _ := sm.store.Get("r1")
		assert.Equal(t, "second", room.content, "expected the most recent update to win")
	})

	t.Run("non-member update is dropped", func(t *testing.T) {
		sm := newTestSessionManager(t)
		sm.Join("a", "r1")

		broadcasts := sm.UpdateContent("intruder", "r1", "hijack")
		assert.Empty(t, broadcasts, "expected no broadcast for a non-member update")

		room, _ := sm.store.Get("r1")
		assert.Equal(t, defaultNoteContent, room.content, "expected content to be unchanged")
	})

	t.Run("update for nonexistent room is dropped", func(t *testing.T) {
		sm := newTestSessionManager(t)

		broadcasts := sm.UpdateContent("a", "missing", "x")
		assert.Empty(t, broadcasts, "expected no broadcast for a missing room")
		assert.Equal(t, 0, sm.store.Len(), "expected no room to be created")
	})

	t.Run("sole member update has no recipients", func(t *testing.T) {
		sm := newTestSessionManager(t)
		sm.Join("a", "r1")

		broadcasts := sm.UpdateContent("a", "r1", "solo")
		assert.Empty(t, broadcasts, "expected no broadcast when there is no one else to notify")

		room, _ := sm.store.Get("r1")
		assert.Equal(t, "solo", room.content, "expected content to still be overwritten")
	})
}

func TestAppendChat(t *testing.T) {
	t.Run("chat goes to the entire room including sender", func(t *testing.T) {
		sm := newTestSessionManager(t)
		sm.Join("a", "r1")
		sm.Join("b", "r1")

		msg := json.RawMessage(`{"text":"hi"}`)
		broadcasts := sm.AppendChat("a", "r1", msg)
		assert.Len(t, broadcasts, 1, "expected a single chat broadcast")
		assert.Equal(t, []string{"a", "b"}, broadcasts[0].Recipients, "expected the sender to be included")
		assert.Equal(t, msg, broadcasts[0].Event.ChatMessage, "expected the payload to be forwarded verbatim")

		room, _ := sm.store.Get("r1")
		assert.Len(t, room.chatHistory, 1, "expected the message to be appended to history")
	})

	t.Run("non-member chat is dropped", func(t *testing.T) {
		sm := newTestSessionManager(t)
		sm.Join("a", "r1")

		broadcasts := sm.AppendChat("intruder", "r1", json.RawMessage(`"hi"`))
		assert.Empty(t, broadcasts, "expected no broadcast for a non-member chat")

		room, _ := sm.store.Get("r1")
		assert.Empty(t, room.chatHistory, "expected chat history to be unchanged")
	})

	t.Run("history is bounded to the most recent 100", func(t *testing.T) {
		sm := newTestSessionManager(t)
		sm.Join("a", "r1")

		for i := 0; i < 150; i++ {
			sm.AppendChat("a", "r1", json.RawMessage(fmt.Sprintf("%d", i)))
		}

		room, _ := sm.store.Get("r1")
		assert.Len(t, room.chatHistory, maxChatHistory, "expected history to be truncated on every append")
		assert.Equal(t, json.RawMessage("50"), room.chatHistory[0], "expected the oldest surviving message to be 50")
		assert.Equal(t, json.RawMessage("149"), room.chatHistory[99], "expected the newest message to be last")
	})
}

func TestLeave(t *testing.T) {
	t.Run("leave notifies remaining members", func(t *testing.T) {
		sm := newTestSessionManager(t)
		sm.Join("a", "r1")
		sm.Join("b", "r1")

		broadcasts := sm.Leave("a", "r1")
		assert.Len(t, broadcasts, 1, "expected a user_left broadcast")
		assert.Equal(t, []string{"b"}, broadcasts[0].Recipients, "expected only remaining members to be notified")

		left := broadcasts[0].Event.UserLeft
		assert.NotNil(t, left, "expected a user_left event")
		assert.Equal(t, "a", left.SocketId, "expected the leaving socket id")
		assert.Equal(t, []string{"b"}, left.Users, "expected the updated member list")

		_, ok := sm.store.Get("r1")
		assert.True(t, ok, "expected room to survive while members remain")
	})

	t.Run("last member leaving deletes the room", func(t *testing.T) {
		sm := newTestSessionManager(t)
		sm.Join("a", "r1")

		broadcasts := sm.Leave("a", "r1")
		assert.Empty(t, broadcasts, "expected no broadcast when the room empties")

		_, ok := sm.store.Get("r1")
		assert.False(t, ok, "expected empty room to be deleted immediately")
	})

	t.Run("leaving a room never joined is a no-op", func(t *testing.T) {
		sm := newTestSessionManager(t)
		sm.Join("a", "r1")

		broadcasts := sm.Leave("stranger", "r1")
		assert.Empty(t, broadcasts, "expected no broadcast for a non-member leave")

		room, ok := sm.store.Get("r1")
		assert.True(t, ok, "expected room to be unaffected")
		assert.Equal(t, []string{"a"}, room.members, "expected members to be unchanged")
	})

	t.Run("leaving a nonexistent room is a no-op", func(t *testing.T) {
		sm := newTestSessionManager(t)

		broadcasts := sm.Leave("a", "missing")
		assert.Empty(t, broadcasts, "expected no broadcast for a missing room")
	})
}

func TestDisconnect(t *testing.T) {
	t.Run("disconnect leaves every joined room", func(t *testing.T) {
		sm := newTestSessionManager(t)
		sm.Join("a", "r1")
		sm.Join("a", "r2")
		sm.Join("b", "r1")

		broadcasts := sm.Disconnect("a")
		// r1 has a remaining member, r2 empties and is deleted
		assert.Len(t, broadcasts, 1, "expected a user_left only for the room with remaining members")
		assert.Equal(t, []string{"b"}, broadcasts[0].Recipients, "expected remaining member to be notified")
		assert.Equal(t, "a", broadcasts[0].Event.UserLeft.SocketId, "expected the disconnected socket id")

		_, ok := sm.store.Get("r2")
		assert.False(t, ok, "expected emptied room to be deleted")
		room, ok := sm.store.Get("r1")
		assert.True(t, ok, "expected room with remaining members to survive")
		assert.Equal(t, []string{"b"}, room.members, "expected disconnected connection to be removed")

		assert.Empty(t, sm.Rooms("a"), "expected registry entry to be cleared")
	})

	t.Run("disconnect with no memberships is a no-op", func(t *testing.T) {
		sm := newTestSessionManager(t)

		broadcasts := sm.Disconnect("ghost")
		assert.Empty(t, broadcasts, "expected no broadcasts for an unknown connection")
	})
}

func TestSetTyping(t *testing.T) {
	t.Run("typing is forwarded to other members", func(t *testing.T) {
		sm := newTestSessionManager(t)
		sm.Join("a", "r1")
		sm.Join("b", "r1")

		broadcasts := sm.SetTyping("a", "r1", true)
		assert.Len(t, broadcasts, 1, "expected a user_typing broadcast")
		assert.Equal(t, []string{"b"}, broadcasts[0].Recipients, "expected the typer to be excluded")

		typing := broadcasts[0].Event.UserTyping
		assert.NotNil(t, typing, "expected a user_typing event")
		assert.Equal(t, "a", typing.SocketId, "expected the typer's socket id")
		assert.True(t, typing.Typing, "expected typing to be true")

		broadcasts = sm.SetTyping("a", "r1", false)
		assert.False(t, broadcasts[0].Event.UserTyping.Typing, "expected typing to be false on stop")
	})

	t.Run("typing carries no membership guard", func(t *testing.T) {
		sm := newTestSessionManager(t)
		sm.Join("a", "r1")

		broadcasts := sm.SetTyping("outsider", "r1", true)
		assert.Len(t, broadcasts, 1, "expected a non-member typing indicator to be forwarded")
		assert.Equal(t, []string{"a"}, broadcasts[0].Recipients, "expected members to receive the indicator")
	})

	t.Run("typing for a nonexistent room is a no-op", func(t *testing.T) {
		sm := newTestSessionManager(t)

		broadcasts := sm.SetTyping("a", "missing", true)
		assert.Empty(t, broadcasts, "expected no broadcast for a missing room")
		assert.Equal(t, 0, sm.store.Len(), "expected no room to be created")
	})
}

// TestSessionScenario walks the full two-client session: join, edit,
// chat, disconnect, leave.
func TestSessionScenario(t *testing.T) {
	sm := newTestSessionManager(t)

	// A joins r1: room auto-created, default content, empty history
	broadcasts := sm.Join("A", "r1")
	assert.Len(t, broadcasts, 1, "expected only the snapshot for A")
	assert.Equal(t, defaultNoteContent, broadcasts[0].Event.RoomJoined.Content, "expected default content for A")
	assert.Empty(t, broadcasts[0].Event.RoomJoined.ChatHistory, "expected empty history for A")

	// B joins r1: A gets user_joined, B gets the snapshot with A present
	broadcasts = sm.Join("B", "r1")
	assert.Len(t, broadcasts, 2, "expected snapshot and user_joined")
	assert.Equal(t, []string{"A", "B"}, broadcasts[0].Event.RoomJoined.Users, "expected B's snapshot to include A")
	assert.Equal(t, []string{"A"}, broadcasts[1].Recipients, "expected user_joined to go to A")
	assert.Equal(t, "B", broadcasts[1].Event.UserJoined.SocketId, "expected user_joined to name B")
	assert.Equal(t, []string{"A", "B"}, broadcasts[1].Event.UserJoined.Users, "expected updated user list")

	// A edits the note: only B is notified
	broadcasts = sm.UpdateContent("A", "r1", "x=1")
	assert.Len(t, broadcasts, 1, "expected a single note_update")
	assert.Equal(t, []string{"B"}, broadcasts[0].Recipients, "expected note_update to go to B only")
	assert.Equal(t, "x=1", broadcasts[0].Event.NoteUpdate.Content, "expected updated content")
	assert.Equal(t, "A", broadcasts[0].Event.NoteUpdate.Sender, "expected sender to be A")

	// B chats: both receive it
	broadcasts = sm.AppendChat("B", "r1", json.RawMessage(`"hi"`))
	assert.Len(t, broadcasts, 1, "expected a single chat broadcast")
	assert.Equal(t, []string{"A", "B"}, broadcasts[0].Recipients, "expected chat to go to both members")

	// A disconnects: B gets user_left, the room survives
	broadcasts = sm.Disconnect("A")
	assert.Len(t, broadcasts, 1, "expected a user_left for B")
	assert.Equal(t, []string{"B"}, broadcasts[0].Recipients, "expected B to be notified")
	assert.Equal(t, "A", broadcasts[0].Event.UserLeft.SocketId, "expected A to be named")
	assert.Equal(t, []string{"B"}, broadcasts[0].Event.UserLeft.Users, "expected B to be the sole member")
	_, ok := sm.store.Get("r1")
	assert.True(t, ok, "expected room to survive while B remains")

	// B leaves: the room is deleted
	broadcasts = sm.Leave("B", "r1")
	assert.Empty(t, broadcasts, "expected no broadcast when the room empties")
	_, ok = sm.store.Get("r1")
	assert.False(t, ok, "expected room to be deleted after the last leave")
}
