// broadcast/broadcast.go
package broadcast

import (
	"errors"
	"fmt"

	"github.com/wfunc/rpsarena/events"
	"github.com/wfunc/rpsarena/logger"
	"github.com/wfunc/rpsarena/network"
	"github.com/wfunc/rpsarena/session"
)

// 广播接口
type Broadcaster interface {
	BroadcastToRoom(roomID string, memberIDs []string, msgID uint16, data []byte) error
	BroadcastToAll(msgID uint16, data []byte) error
}

// RoomBroadcaster 把房间事件投递给成员连接，并镜像到事件总线
type RoomBroadcaster struct {
	sessionManager *session.Manager
	publisher      events.Publisher
	subjectPrefix  string
}

func NewRoomBroadcaster(sessionManager *session.Manager, publisher events.Publisher, subjectPrefix string) *RoomBroadcaster {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &RoomBroadcaster{
		sessionManager: sessionManager,
		publisher:      publisher,
		subjectPrefix:  subjectPrefix,
	}
}

// BroadcastToRoom delivers to every member independently. The returned error
// joins the per-member failures; delivery to the others is unaffected.
func (b *RoomBroadcaster) BroadcastToRoom(roomID string, memberIDs []string, msgID uint16, data []byte) error {
	var errs []error
	for _, id := range memberIDs {
		s, ok := b.sessionManager.Get(id)
		if !ok {
			continue
		}
		if err := s.Send(msgID, data); err != nil {
			errs = append(errs, fmt.Errorf("send %s to %s: %w", network.MsgName(msgID), id, err))
		}
	}
	b.mirror(roomID, msgID, data)
	return errors.Join(errs...)
}

func (b *RoomBroadcaster) BroadcastToAll(msgID uint16, data []byte) error {
	var errs []error
	for _, s := range b.sessionManager.All() {
		if err := s.Send(msgID, data); err != nil {
			errs = append(errs, fmt.Errorf("send %s to %s: %w", network.MsgName(msgID), s.ID, err))
		}
	}
	b.mirror("", msgID, data)
	return errors.Join(errs...)
}

func (b *RoomBroadcaster) mirror(roomID string, msgID uint16, data []byte) {
	subject := events.Subject(b.subjectPrefix, roomID, network.MsgName(msgID))
	if err := b.publisher.Publish(subject, data); err != nil {
		logger.Log.Warnf("Mirror %s: %v", subject, err)
	}
}
