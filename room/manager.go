package room

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/wfunc/rpsarena/logger"
)

const roomCodeLength = 6

// Options configures a Manager. Zero values fall back to production defaults.
type Options struct {
	Clock             clockwork.Clock
	CountdownFrom     int
	CountdownInterval time.Duration
	Broadcaster       Broadcaster
	Recorder          RoundRecorder
	Observer          Observer
	NewID             func() string
}

// Manager 管理所有房间，以及连接到房间的归属关系。
//
// Lock order is room -> registry. The registry never takes a room lock while
// holding its own mutex.
type Manager struct {
	rooms       map[string]*Room
	memberships map[string]string // connID -> roomID
	mutex       sync.RWMutex

	lobby *lobby

	clock             clockwork.Clock
	countdownFrom     int
	countdownInterval time.Duration
	broadcaster       Broadcaster
	recorder          RoundRecorder
	observer          Observer
	newID             func() string
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager(opts Options) *Manager {
	m := &Manager{
		rooms:             make(map[string]*Room),
		memberships:       make(map[string]string),
		clock:             opts.Clock,
		countdownFrom:     opts.CountdownFrom,
		countdownInterval: opts.CountdownInterval,
		broadcaster:       opts.Broadcaster,
		recorder:          opts.Recorder,
		observer:          opts.Observer,
		newID:             opts.NewID,
	}
	if m.clock == nil {
		m.clock = clockwork.NewRealClock()
	}
	if m.countdownFrom <= 0 {
		m.countdownFrom = 3
	}
	if m.countdownInterval <= 0 {
		m.countdownInterval = time.Second
	}
	if m.broadcaster == nil {
		m.broadcaster = nopBroadcaster{}
	}
	if m.observer == nil {
		m.observer = nopObserver{}
	}
	if m.newID == nil {
		m.newID = NewRoomCode
	}
	m.lobby = newLobby(m)
	return m
}

// NewRoomCode returns a short room code, falling back to a uuid-derived code
// when the random source fails.
func NewRoomCode() string {
	if id, err := gonanoid.New(roomCodeLength); err == nil {
		return id
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:roomCodeLength]
}

// CreateRoom 创建一个空房间，返回房间号
func (m *Manager) CreateRoom() string {
	m.mutex.Lock()
	id := m.newID()
	for attempts := 0; m.rooms[id] != nil; attempts++ {
		if attempts > 8 {
			id = strings.ReplaceAll(uuid.NewString(), "-", "")
			continue
		}
		id = m.newID()
	}
	r := newRoom(id, m)
	m.rooms[id] = r
	m.mutex.Unlock()

	logger.Log.Infof("Room %s created", id)
	m.observer.RoomCreated()
	m.lobby.invalidate()
	return id
}

// CreateAndJoin creates a room and joins connID to it as the first member.
func (m *Manager) CreateAndJoin(connID, displayName string) (string, error) {
	if m.RoomOf(connID) != "" {
		return "", ErrAlreadyInRoom
	}
	id := m.CreateRoom()
	if err := m.Join(id, connID, displayName); err != nil {
		m.RemoveRoom(id)
		return "", err
	}
	return id, nil
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, exists := m.rooms[id]
	return r, exists
}

// RemoveRoom 关闭并移除房间，重复调用无副作用
func (m *Manager) RemoveRoom(id string) {
	if r, ok := m.GetRoom(id); ok {
		r.Close()
	}
}

// Count returns the number of live rooms.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// RoomOf returns the room connID currently belongs to, or "".
func (m *Manager) RoomOf(connID string) string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.memberships[connID]
}

func (m *Manager) Join(roomID, connID, displayName string) error {
	r, ok := m.GetRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return r.Join(connID, displayName)
}

func (m *Manager) SetReady(roomID, connID string, ready bool) error {
	r, ok := m.GetRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return r.SetReady(connID, ready)
}

func (m *Manager) RequestStart(roomID string) error {
	r, ok := m.GetRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return r.RequestStart()
}

func (m *Manager) SubmitMove(roomID, connID, move string) error {
	r, ok := m.GetRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return r.SubmitMove(connID, move)
}

func (m *Manager) Leave(roomID, connID string) error {
	r, ok := m.GetRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return r.Leave(connID)
}

// Disconnect removes connID from whatever room it is in.
func (m *Manager) Disconnect(connID string) {
	roomID := m.RoomOf(connID)
	if roomID == "" {
		return
	}
	if err := m.Leave(roomID, connID); err != nil {
		logger.Log.Debugf("Disconnect %s from room %s: %v", connID, roomID, err)
	}
}

// Close shuts down every room.
func (m *Manager) Close() {
	m.mutex.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mutex.RUnlock()

	for _, r := range rooms {
		r.Close()
	}
}

// claim binds connID to roomID. Called with the room lock held.
func (m *Manager) claim(connID, roomID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if current, ok := m.memberships[connID]; ok && current != roomID {
		return ErrAlreadyInRoom
	}
	m.memberships[connID] = roomID
	return nil
}

// release unbinds connID if it still points at roomID. Called with the room lock held.
func (m *Manager) release(connID, roomID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.memberships[connID] == roomID {
		delete(m.memberships, connID)
	}
}

// remove unregisters a room. Called with the room lock held.
func (m *Manager) remove(id string) {
	m.mutex.Lock()
	_, exists := m.rooms[id]
	delete(m.rooms, id)
	m.mutex.Unlock()

	if !exists {
		return
	}
	logger.Log.Infof("Room %s destroyed", id)
	m.observer.RoomDestroyed()
	m.lobby.invalidate()
}
