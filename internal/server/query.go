package server

import "github.com/npezzotti/go-collab/internal/types"

// The query facade gives the status endpoints read-only snapshots of
// the room store. Requests are answered inside the run loop so they are
// serialized with mutation and never observe a half-applied operation.

type queryReq struct {
	roomId string
	all    bool
	reply  chan queryResp
}

type queryResp struct {
	room  types.RoomInfo
	found bool
	rooms []types.RoomInfo
}

func roomInfo(r *Room) types.RoomInfo {
	return types.RoomInfo{
		Id:           r.id,
		UserCount:    len(r.members),
		CreatedAt:    r.createdAt,
		HasContent:   r.content != "",
		ChatMessages: len(r.chatHistory),
	}
}

func (cs *CollabServer) handleQuery(q *queryReq) {
	var resp queryResp
	if q.all {
		resp.rooms = make([]types.RoomInfo, 0, cs.store.Len())
		for _, r := range cs.store.All() {
			resp.rooms = append(resp.rooms, roomInfo(r))
		}
	} else if r, ok := cs.store.Get(q.roomId); ok {
		resp.room = roomInfo(r)
		resp.found = true
	}

	q.reply <- resp
}

// RoomInfo returns a snapshot of a single room, reporting whether the
// room exists. Safe to call from any goroutine.
func (cs *CollabServer) RoomInfo(roomId string) (types.RoomInfo, bool) {
	req := &queryReq{roomId: roomId, reply: make(chan queryResp, 1)}

	select {
	case cs.queryChan <- req:
	case <-cs.done:
		return types.RoomInfo{}, false
	}

	resp := <-req.reply
	return resp.room, resp.found
}

// ListRooms returns a snapshot of every room. Safe to call from any
// goroutine.
func (cs *CollabServer) ListRooms() []types.RoomInfo {
	req := &queryReq{all: true, reply: make(chan queryResp, 1)}

	select {
	case cs.queryChan <- req:
	case <-cs.done:
		return nil
	}

	resp := <-req.reply
	return resp.rooms
}
