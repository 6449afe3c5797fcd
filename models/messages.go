package models

// Client requests.

type CreateRoomRequest struct {
	DisplayName string `json:"displayName"`
}

type JoinRoomRequest struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
}

type RoomRequest struct {
	RoomID string `json:"roomId"`
}

type SetReadyRequest struct {
	RoomID string `json:"roomId"`
	Ready  bool   `json:"ready"`
}

type SubmitMoveRequest struct {
	RoomID string `json:"roomId"`
	Move   string `json:"move"`
}

// Acks.

type ListRoomsResponse struct {
	Rooms []RoomSummary `json:"rooms"`
}

type CreateRoomResponse struct {
	RoomID string `json:"roomId,omitempty"`
	Error  string `json:"error,omitempty"`
}

type JoinRoomResponse struct {
	OK     bool   `json:"ok,omitempty"`
	RoomID string `json:"roomId,omitempty"`
	Error  string `json:"error,omitempty"`
}

type ErrorResponse struct {
	OK    bool   `json:"ok,omitempty"`
	Error string `json:"error,omitempty"`
}

// Room broadcasts.

type MembershipEvent struct {
	RoomID  string   `json:"roomId"`
	Players []Player `json:"players"`
}

type ReadyStateEvent struct {
	RoomID string          `json:"roomId"`
	Ready  map[string]bool `json:"readyByPlayer"`
}

type CountdownTickEvent struct {
	RoomID string `json:"roomId"`
	Value  int    `json:"value"`
}

type RoundStartEvent struct {
	RoomID string `json:"roomId"`
	Round  int    `json:"round"`
}

type LobbyChangedEvent struct{}
