package api

import (
	"github.com/npezzotti/go-collab/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockRoomDirectory struct {
	mock.Mock
}

func (m *MockRoomDirectory) RoomInfo(roomId string) (types.RoomInfo, bool) {
	args := m.Called(roomId)
	return args.Get(0).(types.RoomInfo), args.Bool(1)
}

func (m *MockRoomDirectory) ListRooms() []types.RoomInfo {
	args := m.Called()
	return args.Get(0).([]types.RoomInfo)
}
