package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/wfunc/rpsarena/broadcast"
	"github.com/wfunc/rpsarena/config"
	"github.com/wfunc/rpsarena/events"
	"github.com/wfunc/rpsarena/logger"
	"github.com/wfunc/rpsarena/monitor"
	"github.com/wfunc/rpsarena/persistence"
	"github.com/wfunc/rpsarena/room"
	gameserver_rpc "github.com/wfunc/rpsarena/rpc"
	"github.com/wfunc/rpsarena/services"
	"github.com/wfunc/rpsarena/session"
)

const (
	serviceName       = "rps-arena"
	heartbeatInterval = 30 * time.Second
)

type GameServer struct {
	cfg            *config.Config
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	history        *services.HistoryService
	broadcaster    *broadcast.RoomBroadcaster
	monitor        *monitor.Monitor
	rpcServer      *gameserver_rpc.Server
	httpServer     *http.Server
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once
}

// NewGameServer wires the room coordinator to its transport. A nil clock
// means the real clock.
func NewGameServer(cfg *config.Config, db persistence.Database, publisher events.Publisher, mon *monitor.Monitor, clock clockwork.Clock) (*GameServer, error) {
	if mon == nil {
		mon = monitor.NewMonitor(cfg.Metrics.Namespace)
	}
	s := &GameServer{
		cfg:            cfg,
		sessionManager: session.NewManager(),
		history:        services.NewHistoryService(db),
		monitor:        mon,
		shutdownChan:   make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	// 初始化广播器
	s.broadcaster = broadcast.NewRoomBroadcaster(s.sessionManager, publisher, cfg.NATS.SubjectPrefix)

	s.roomManager = room.NewRoomManager(room.Options{
		Clock:             clock,
		CountdownFrom:     cfg.Game.CountdownFrom,
		CountdownInterval: cfg.Game.CountdownInterval,
		Broadcaster:       s.broadcaster,
		Recorder:          s.history,
		Observer:          mon,
	})

	// 初始化RPC服务器
	if cfg.Server.RPCAddress != "" {
		rpcServer, err := gameserver_rpc.NewServer(cfg.Server.RPCAddress,
			gameserver_rpc.NewLobbyService(s.roomManager, s.history))
		if err != nil {
			s.history.Close()
			return nil, err
		}
		s.rpcServer = rpcServer
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP routes wrapped in CORS.
func (s *GameServer) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/ws", s.handleWebSocket)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/rooms", s.handleListRooms).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{roomId}/rounds", s.handleRecentRounds).Methods(http.MethodGet)
	r.Handle("/metrics", s.monitor.Handler()).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

func (s *GameServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.Server.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// Start serves HTTP (and RPC when configured) until Shutdown.
func (s *GameServer) Start() error {
	if s.rpcServer != nil {
		go s.rpcServer.Start()
	}

	logger.Log.Infof("Game server listening on %s", s.cfg.Server.HTTPAddress)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, closes every session and room, then
// flushes pending round history.
func (s *GameServer) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)
		err = s.httpServer.Shutdown(ctx)
		if s.rpcServer != nil {
			s.rpcServer.Stop()
		}
		s.sessionManager.CloseAll()
		s.roomManager.Close()
		s.history.Close()
	})
	return err
}
