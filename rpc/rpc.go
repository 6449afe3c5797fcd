package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/rpsarena/logger"
	"github.com/wfunc/rpsarena/models"
)

// ServiceName is the name LobbyService is registered under.
const ServiceName = "LobbyService"

// Server manages the RPC listener.
type Server struct {
	listener  net.Listener
	rpcServer *rpc.Server
}

// NewServer listens on addr and registers svc.
func NewServer(addr string, svc *LobbyService) (*Server, error) {
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(ServiceName, svc); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener:  listener,
		rpcServer: rpcServer,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start begins listening for RPC requests. It returns when the listener is closed.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.listener.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpcServer.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// Lobby lists joinable rooms.
type Lobby interface {
	ListJoinable() []models.RoomSummary
}

// History looks up resolved rounds.
type History interface {
	Recent(ctx context.Context, roomID string, limit int) ([]models.RoundRecord, error)
}

// LobbyService is the struct that exposes RPC methods.
type LobbyService struct {
	lobby   Lobby
	history History
}

func NewLobbyService(lobby Lobby, history History) *LobbyService {
	return &LobbyService{lobby: lobby, history: history}
}

type ListRoomsArgs struct{}

type ListRoomsReply struct {
	Rooms []models.RoomSummary
}

func (ls *LobbyService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	reply.Rooms = ls.lobby.ListJoinable()
	return nil
}

type RecentRoundsArgs struct {
	RoomID string
	Limit  int
}

type RecentRoundsReply struct {
	Rounds []models.RoundRecord
}

func (ls *LobbyService) RecentRounds(args *RecentRoundsArgs, reply *RecentRoundsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rounds, err := ls.history.Recent(ctx, args.RoomID, args.Limit)
	if err != nil {
		return err
	}
	reply.Rounds = rounds
	return nil
}
