package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"
	"github.com/wfunc/rpsarena/classifier"
	"github.com/wfunc/rpsarena/models"
	"github.com/wfunc/rpsarena/network"
)

const usage = `commands:
  list            list joinable rooms
  join <room>     join a room
  ready | unready toggle readiness
  start           request the countdown
  r | p | s       submit rock, paper or scissors
  leave           leave the current room
  quit`

// send encodes v as JSON and writes one frame.
func send(c *websocket.Conn, msgID uint16, v any) error {
	var data []byte
	if v != nil {
		var err error
		if data, err = json.Marshal(v); err != nil {
			return err
		}
	}
	frame, err := network.Encode(msgID, data)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, frame)
}

// client 持有当前房间号；读循环在收到创建/加入确认时更新它
type client struct {
	conn   *websocket.Conn
	name   string
	roomCh chan string
	roomID string
}

func (cl *client) readLoop(done chan<- struct{}) {
	defer close(done)
	for {
		_, message, err := cl.conn.ReadMessage()
		if err != nil {
			log.Println("Read error:", err)
			return
		}
		packet, err := network.Decode(message)
		if err != nil {
			log.Printf("Received invalid packet of size %d", len(message))
			continue
		}

		switch packet.MsgID {
		case network.MsgTypeCreateRoom:
			var ack models.CreateRoomResponse
			if json.Unmarshal(packet.Data, &ack) == nil && ack.RoomID != "" {
				cl.setRoom(ack.RoomID)
			}
		case network.MsgTypeJoinRoom:
			var ack models.JoinRoomResponse
			if json.Unmarshal(packet.Data, &ack) == nil && ack.OK {
				cl.setRoom(ack.RoomID)
			}
		case network.MsgTypeLeaveRoom:
			var ack models.ErrorResponse
			if json.Unmarshal(packet.Data, &ack) == nil && ack.OK {
				cl.setRoom("")
			}
		}
		log.Printf("<- %s: %s", network.MsgName(packet.MsgID), string(packet.Data))
	}
}

func (cl *client) setRoom(id string) {
	select {
	case cl.roomCh <- id:
	default:
		log.Printf("Dropped room update %q", id)
	}
}

func (cl *client) syncRoom() {
	for {
		select {
		case id := <-cl.roomCh:
			cl.roomID = id
		default:
			return
		}
	}
}

func (cl *client) handle(ctx context.Context, line string) error {
	cl.syncRoom()
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "list":
		return send(cl.conn, network.MsgTypeListRooms, nil)
	case "join":
		if len(fields) < 2 {
			return fmt.Errorf("usage: join <room>")
		}
		return send(cl.conn, network.MsgTypeJoinRoom, models.JoinRoomRequest{RoomID: fields[1], DisplayName: cl.name})
	case "ready", "unready":
		return send(cl.conn, network.MsgTypeSetReady, models.SetReadyRequest{RoomID: cl.roomID, Ready: fields[0] == "ready"})
	case "start":
		return send(cl.conn, network.MsgTypeStartGame, models.RoomRequest{RoomID: cl.roomID})
	case "leave":
		return send(cl.conn, network.MsgTypeLeaveRoom, models.RoomRequest{RoomID: cl.roomID})
	case "help":
		fmt.Println(usage)
		return nil
	}

	prediction, err := classifier.TextClassifier{}.Predict(ctx, []byte(fields[0]))
	if err != nil {
		return err
	}
	move, err := classifier.ToMove(prediction, 0.5)
	if err != nil {
		return fmt.Errorf("unknown command %q", fields[0])
	}
	return send(cl.conn, network.MsgTypeSubmitMove, models.SubmitMoveRequest{RoomID: cl.roomID, Move: string(move)})
}

func main() {
	addr := pflag.String("addr", "localhost:8080", "server address")
	name := pflag.String("name", models.DefaultPlayerName, "display name")
	room := pflag.String("room", "", "room to join on connect")
	create := pflag.Bool("create", false, "create a room on connect")
	pflag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	cl := &client{conn: c, name: *name, roomCh: make(chan string, 8)}
	done := make(chan struct{})
	go cl.readLoop(done)

	switch {
	case *create:
		err = send(c, network.MsgTypeCreateRoom, models.CreateRoomRequest{DisplayName: *name})
	case *room != "":
		err = send(c, network.MsgTypeJoinRoom, models.JoinRoomRequest{RoomID: *room, DisplayName: *name})
	}
	if err != nil {
		log.Println("Write error:", err)
		return
	}

	fmt.Println(usage)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	// 心跳，保持服务端读超时不触发；所有写操作都在这个循环里
	heartbeat := time.NewTicker(20 * time.Second)
	defer heartbeat.Stop()

	ctx := context.Background()
	for {
		select {
		case <-done:
			return
		case <-heartbeat.C:
			if err := send(c, network.MsgTypeHeartbeat, nil); err != nil {
				log.Println("Heartbeat error:", err)
				return
			}
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == "quit" {
				return
			}
			if err := cl.handle(ctx, line); err != nil {
				log.Println(err)
			}
		}
	}
}
