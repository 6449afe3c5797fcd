package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/wfunc/rpsarena/logger"
	"github.com/wfunc/rpsarena/models"
	"github.com/wfunc/rpsarena/network"
	"github.com/wfunc/rpsarena/room"
	"github.com/wfunc/rpsarena/session"
)

// ErrBadRequest is reported for payloads that do not decode.
var ErrBadRequest = errors.New("BAD_REQUEST")

var reasonCodes = []error{
	room.ErrRoomNotFound,
	room.ErrRoomFull,
	room.ErrNotMember,
	room.ErrDuplicateSubmission,
	room.ErrRoundNotActive,
	room.ErrAlreadyActive,
	room.ErrNotAllReady,
	room.ErrAlreadyInRoom,
	room.ErrInvalidMove,
	ErrBadRequest,
}

// reasonCode maps an operation error to the code sent to clients.
func reasonCode(err error) string {
	for _, code := range reasonCodes {
		if errors.Is(err, code) {
			return code.Error()
		}
	}
	return "INTERNAL_ERROR"
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn, s.cfg.Game.SendBuffer)
	sess := session.NewSession(uuid.NewString(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlineConnections()
	wsConn.SetHeartbeat(heartbeatInterval)

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.ID)

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.ID)
		s.sessionManager.Remove(sess.ID)
		s.roomManager.Disconnect(sess.ID)
		s.monitor.DecOnlineConnections()
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
		}

		packet, err := wsConn.ReadPacket()
		if err != nil {
			if errors.Is(err, io.ErrShortBuffer) {
				logger.Log.Warnf("Session %s sent a malformed packet", sess.ID)
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Infof("Session %s read error: %v", sess.ID, err)
			}
			return
		}

		start := time.Now()
		sess.Touch()
		s.handlePacket(sess, packet)
		s.monitor.IncMessagesReceived(packet.MsgID)
		s.monitor.ObserveMessageLatency(time.Since(start))
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		// Touch already recorded the activity.
	case network.MsgTypeListRooms:
		s.reply(sess, packet.MsgID, models.ListRoomsResponse{Rooms: s.roomManager.ListJoinable()})
	case network.MsgTypeCreateRoom:
		s.handleCreateRoom(sess, packet)
	case network.MsgTypeJoinRoom:
		s.handleJoinRoom(sess, packet)
	case network.MsgTypeLeaveRoom:
		s.handleLeaveRoom(sess, packet)
	case network.MsgTypeSetReady:
		s.handleSetReady(sess, packet)
	case network.MsgTypeStartGame:
		s.handleStartGame(sess, packet)
	case network.MsgTypeSubmitMove:
		s.handleSubmitMove(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

// decode treats an empty payload as an empty object.
func decode(packet *network.Packet, v any) error {
	if len(packet.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(packet.Data, v); err != nil {
		return ErrBadRequest
	}
	return nil
}

func (s *GameServer) reply(sess *session.Session, msgID uint16, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorf("Marshal %s ack: %v", network.MsgName(msgID), err)
		return
	}
	if err := sess.Send(msgID, data); err != nil {
		logger.Log.Warnf("Ack %s to %s: %v", network.MsgName(msgID), sess.ID, err)
	}
}

// replyError acks failures only; success is observed through broadcasts.
func (s *GameServer) replyError(sess *session.Session, msgID uint16, err error) {
	if err == nil {
		return
	}
	logger.Log.Debugf("Session %s %s: %v", sess.ID, network.MsgName(msgID), err)
	s.reply(sess, msgID, models.ErrorResponse{Error: reasonCode(err)})
}

func (s *GameServer) handleCreateRoom(sess *session.Session, packet *network.Packet) {
	var req models.CreateRoomRequest
	if err := decode(packet, &req); err != nil {
		s.reply(sess, packet.MsgID, models.CreateRoomResponse{Error: reasonCode(err)})
		return
	}

	roomID, err := s.roomManager.CreateAndJoin(sess.ID, req.DisplayName)
	if err != nil {
		s.reply(sess, packet.MsgID, models.CreateRoomResponse{Error: reasonCode(err)})
		return
	}
	logger.Log.Infof("Session %s created room %s", sess.ID, roomID)
	s.reply(sess, packet.MsgID, models.CreateRoomResponse{RoomID: roomID})
}

func (s *GameServer) handleJoinRoom(sess *session.Session, packet *network.Packet) {
	var req models.JoinRoomRequest
	err := decode(packet, &req)
	if err == nil {
		err = s.roomManager.Join(req.RoomID, sess.ID, req.DisplayName)
	}
	if err != nil {
		s.reply(sess, packet.MsgID, models.JoinRoomResponse{Error: reasonCode(err)})
		return
	}
	s.reply(sess, packet.MsgID, models.JoinRoomResponse{OK: true, RoomID: req.RoomID})
}

func (s *GameServer) handleLeaveRoom(sess *session.Session, packet *network.Packet) {
	var req models.RoomRequest
	err := decode(packet, &req)
	if err == nil {
		err = s.roomManager.Leave(req.RoomID, sess.ID)
	}
	if err != nil {
		s.reply(sess, packet.MsgID, models.ErrorResponse{Error: reasonCode(err)})
		return
	}
	s.reply(sess, packet.MsgID, models.ErrorResponse{OK: true})
}

func (s *GameServer) handleSetReady(sess *session.Session, packet *network.Packet) {
	var req models.SetReadyRequest
	err := decode(packet, &req)
	if err == nil {
		err = s.roomManager.SetReady(req.RoomID, sess.ID, req.Ready)
	}
	s.replyError(sess, packet.MsgID, err)
}

func (s *GameServer) handleStartGame(sess *session.Session, packet *network.Packet) {
	var req models.RoomRequest
	err := decode(packet, &req)
	if err == nil {
		err = s.roomManager.RequestStart(req.RoomID)
	}
	s.replyError(sess, packet.MsgID, err)
}

func (s *GameServer) handleSubmitMove(sess *session.Session, packet *network.Packet) {
	var req models.SubmitMoveRequest
	err := decode(packet, &req)
	if err == nil {
		err = s.roomManager.SubmitMove(req.RoomID, sess.ID, req.Move)
	}
	s.replyError(sess, packet.MsgID, err)
}

// --- HTTP ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Warnf("Error encoding response: %v", err)
	}
}

func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": serviceName})
}

func (s *GameServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.ListRoomsResponse{Rooms: s.roomManager.ListJoinable()})
}

type roundsResponse struct {
	Rounds []models.RoundRecord `json:"rounds"`
}

func (s *GameServer) handleRecentRounds(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: ErrBadRequest.Error()})
			return
		}
		limit = n
	}

	rounds, err := s.history.Recent(r.Context(), roomID, limit)
	if err != nil {
		logger.Log.Errorf("Recent rounds for %s: %v", roomID, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "INTERNAL_ERROR"})
		return
	}
	writeJSON(w, http.StatusOK, roundsResponse{Rounds: rounds})
}
