package network

// Client -> server
const (
	MsgTypeHeartbeat  = 1
	MsgTypeListRooms  = 100
	MsgTypeJoinRoom   = 101
	MsgTypeLeaveRoom  = 102
	MsgTypeCreateRoom = 103
	MsgTypeSetReady   = 104
	MsgTypeStartGame  = 105
	MsgTypeSubmitMove = 201
)

// Server -> client
const (
	MsgTypeRoomMembership = 301
	MsgTypeReadyState     = 302
	MsgTypeCountdownTick  = 303
	MsgTypeRoundStart     = 304
	MsgTypeRoundResult    = 305
	MsgTypeLobbyChanged   = 306
)

var msgNames = map[uint16]string{
	MsgTypeHeartbeat:      "heartbeat",
	MsgTypeListRooms:      "list-rooms",
	MsgTypeJoinRoom:       "join-room",
	MsgTypeLeaveRoom:      "leave-room",
	MsgTypeCreateRoom:     "create-room",
	MsgTypeSetReady:       "set-ready",
	MsgTypeStartGame:      "start-game",
	MsgTypeSubmitMove:     "submit-move",
	MsgTypeRoomMembership: "room-membership",
	MsgTypeReadyState:     "ready-state",
	MsgTypeCountdownTick:  "countdown-tick",
	MsgTypeRoundStart:     "round-start",
	MsgTypeRoundResult:    "round-result",
	MsgTypeLobbyChanged:   "lobby-changed",
}

// MsgName returns the event name for msgID, or "unknown".
func MsgName(msgID uint16) string {
	if name, ok := msgNames[msgID]; ok {
		return name
	}
	return "unknown"
}
