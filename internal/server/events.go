package server

import "encoding/json"

// ClientEvent is the inbound event envelope. Exactly one of the event
// fields is set per frame; frames with none set are dropped by the
// dispatcher.
type ClientEvent struct {
	JoinRoom    *JoinRoom    `json:"join_room,omitempty"`
	LeaveRoom   *LeaveRoom   `json:"leave_room,omitempty"`
	NoteChange  *NoteChange  `json:"note_change,omitempty"`
	ChatMessage *ChatMessage `json:"chat_message,omitempty"`
	TypingStart *Typing      `json:"typing_start,omitempty"`
	TypingStop  *Typing      `json:"typing_stop,omitempty"`

	client *Client `json:"-"`
}

type JoinRoom struct {
	RoomId string `json:"room_id"`
}

type LeaveRoom struct {
	RoomId string `json:"room_id"`
}

type NoteChange struct {
	RoomId  string `json:"room_id"`
	Content string `json:"content"`
}

// ChatMessage carries an opaque payload which is forwarded verbatim;
// the broker never inspects it.
type ChatMessage struct {
	RoomId  string          `json:"room_id"`
	Message json.RawMessage `json:"message"`
}

type Typing struct {
	RoomId string `json:"room_id"`
}

// ServerEvent is the outbound event envelope, mirroring the inbound
// union style.
type ServerEvent struct {
	RoomJoined  *RoomJoined     `json:"room_joined,omitempty"`
	UserJoined  *UserJoined     `json:"user_joined,omitempty"`
	NoteUpdate  *NoteUpdate     `json:"note_update,omitempty"`
	ChatMessage json.RawMessage `json:"chat_message,omitempty"`
	UserLeft    *UserLeft       `json:"user_left,omitempty"`
	UserTyping  *UserTyping     `json:"user_typing,omitempty"`
}

// RoomJoined is the snapshot sent to a joining connection only.
type RoomJoined struct {
	RoomId      string            `json:"room_id"`
	Users       []string          `json:"users"`
	Content     string            `json:"content"`
	ChatHistory []json.RawMessage `json:"chat_history"`
}

type UserJoined struct {
	SocketId string   `json:"socket_id"`
	Users    []string `json:"users"`
}

type NoteUpdate struct {
	Content string `json:"content"`
	Sender  string `json:"sender"`
}

type UserLeft struct {
	SocketId string   `json:"socket_id"`
	Users    []string `json:"users"`
}

type UserTyping struct {
	SocketId string `json:"socket_id"`
	Typing   bool   `json:"typing"`
}

// Broadcast pairs an outbound event with the connection ids that should
// receive it. Session operations return broadcasts instead of sending,
// keeping mutation separate from delivery.
type Broadcast struct {
	Recipients []string
	Event      *ServerEvent
}
