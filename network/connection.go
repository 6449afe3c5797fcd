// network/connection.go
package network

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wfunc/rpsarena/logger"
)

var (
	ErrSendBufferFull   = errors.New("send buffer full")
	ErrConnectionClosed = errors.New("connection closed")
	ErrPayloadTooLarge  = errors.New("payload too large")
)

const (
	headerSize   = 4
	writeTimeout = 10 * time.Second
)

type Packet struct {
	MsgID  uint16
	Data   []byte
	Length uint16
}

type Connection interface {
	Send(msgID uint16, data []byte) error
	Close() error
	RemoteAddr() net.Addr
	SetHeartbeat(interval time.Duration)
	ReadPacket() (*Packet, error)
}

// Encode 封包: 2字节消息ID + 2字节数据长度 + 数据
func Encode(msgID uint16, data []byte) ([]byte, error) {
	if len(data) > math.MaxUint16 {
		return nil, ErrPayloadTooLarge
	}
	packet := make([]byte, headerSize+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[headerSize:], data)
	return packet, nil
}

// Decode 解包
func Decode(data []byte) (*Packet, error) {
	if len(data) < headerSize {
		return nil, io.ErrShortBuffer
	}

	msgID := binary.BigEndian.Uint16(data[0:2])
	length := binary.BigEndian.Uint16(data[2:4])

	if len(data) < headerSize+int(length) {
		return nil, io.ErrShortBuffer
	}

	return &Packet{
		MsgID:  msgID,
		Length: length,
		Data:   data[headerSize : headerSize+int(length)],
	}, nil
}

// WSConnection wraps a websocket with a bounded outbound queue drained by a
// single write pump, so Send never blocks on network I/O.
type WSConnection struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	heartbeat time.Duration
}

func NewWSConnection(conn *websocket.Conn, sendBuffer int) *WSConnection {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	c := &WSConnection{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	go c.writePump()
	return c
}

// Send enqueues a packet. It fails fast when the queue is full or the
// connection is closed.
func (c *WSConnection) Send(msgID uint16, data []byte) error {
	packet, err := Encode(msgID, data)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- packet:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}

func (c *WSConnection) writePump() {
	defer c.conn.Close()

	for {
		select {
		case packet := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, packet); err != nil {
				logger.Log.Warnf("Write to %s failed: %v", c.RemoteAddr(), err)
				c.Close()
				return
			}
		case <-c.done:
			c.flush()
			return
		}
	}
}

// flush writes whatever is still queued, then says goodbye.
func (c *WSConnection) flush() {
	deadline := time.Now().Add(time.Second)
	for {
		select {
		case packet := <-c.send:
			c.conn.SetWriteDeadline(deadline)
			if err := c.conn.WriteMessage(websocket.BinaryMessage, packet); err != nil {
				return
			}
		default:
			c.conn.SetWriteDeadline(deadline)
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *WSConnection) ReadPacket() (*Packet, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if c.heartbeat > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.heartbeat * 2))
	}
	return Decode(data)
}

func (c *WSConnection) SetHeartbeat(interval time.Duration) {
	c.heartbeat = interval
	c.conn.SetReadDeadline(time.Now().Add(interval * 2))
}

// Close stops the write pump; the pump closes the socket after flushing.
func (c *WSConnection) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
