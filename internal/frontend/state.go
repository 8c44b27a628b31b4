package frontend

import (
	"context"
	"fmt"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/janpfeifer/MemoryPairs/internal/game"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"k8s.io/klog/v2"
)

// GlobalClientState manages the connection to the server and the scoreboard.
// The game itself is fully local: it's still playable when the server can't
// be reached.
type GlobalClientState struct {
	Conn       *websocket.Conn
	Scoreboard *game.Scoreboard // nil until the server sent one
	Error      string
	Latency    time.Duration

	// Listeners for state updates
	Listeners map[string]func()
}

var State *GlobalClientState

func (s *GlobalClientState) Notify() {
	klog.V(1).Infof("GlobalClientState: Notifying %d listeners", len(s.Listeners))
	for _, l := range s.Listeners {
		if l != nil {
			l()
		}
	}
}

func InitState() {
	if State == nil {
		klog.V(1).Infof("InitState: creating new state (was nil)")
		State = &GlobalClientState{
			Listeners: make(map[string]func()),
		}
	} else {
		klog.V(1).Infof("InitState: state already exists")
	}
}

// wsURL returns the websocket endpoint of the server that served the page.
func wsURL() string {
	u := app.Window().URL()
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/ws", scheme, u.Host)
}

// ConnectWS connects to the server and starts reading the scoreboard updates.
func (s *GlobalClientState) ConnectWS() error {
	if s.Conn != nil {
		klog.Infof("ConnectWS: Closing existing connection")
		s.Conn.CloseNow()
	}

	url := wsURL()
	klog.Infof("ConnectWS: Connecting to %s", url)

	// We use a context that lasts for the duration of the connection setup.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		klog.Errorf("ConnectWS: Dial failed: %v", err)
		return fmt.Errorf("dial failed: %w", err)
	}

	s.Conn = conn
	klog.Infof("ConnectWS: Connected. Starting read loop.")
	go s.readLoop(conn)
	return nil
}

func (s *GlobalClientState) readLoop(conn *websocket.Conn) {
	ctx := context.Background()
	klog.Infof("readLoop: started")
	for {
		var msg game.WsMessage
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			klog.Errorf("readLoop: WS read error: %v", err)
			break
		}

		klog.V(1).Infof("readLoop: received message type: %s", msg.Type)
		s.handleMessage(msg)
	}
	if s.Conn == conn {
		s.Conn = nil
	}
}

func (s *GlobalClientState) handleMessage(msg game.WsMessage) {
	p, err := msg.Parse()
	if err != nil {
		klog.Errorf("handleMessage: Failed to parse %s message: %v", msg.Type, err)
		return
	}

	switch m := p.(type) {
	case *game.ScoresMessage:
		klog.Infof("handleMessage: Scoreboard updated. Wins: %d, Losses: %d", m.Scoreboard.Wins, m.Scoreboard.Losses)
		s.Scoreboard = &m.Scoreboard
		s.Error = ""
		s.Notify()

	case *game.ErrorMessage:
		klog.Warningf("handleMessage: Server error: %s", m.Message)
		s.Error = m.Message
		s.Notify()

	case *game.PingMessage:
		s.Latency = time.Since(time.Unix(0, m.ServerTime))
		pongMsg, _ := game.NewWsMessage(game.MsgTypePong, game.PongMessage{
			ServerTime: m.ServerTime,
			ClientTime: time.Now().UnixNano(),
		})
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
		defer cancel()
		if err := wsjson.Write(ctx, s.Conn, pongMsg); err != nil {
			klog.Warningf("handleMessage: Failed to send pong: %v", err)
		}

	default:
		klog.Warningf("handleMessage: Unexpected message type %s", msg.Type)
	}
}

// SendResult reports a finished round to the server.
func (s *GlobalClientState) SendResult(result game.Result) {
	if s.Conn == nil {
		klog.Warningf("SendResult: Not connected, result of round %d not reported", result.Round)
		return
	}
	msg, err := game.NewWsMessage(game.MsgTypeResult, game.ResultMessage{Result: result})
	if err != nil {
		klog.Errorf("SendResult: Failed to create result message: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
	defer cancel()
	if err := wsjson.Write(ctx, s.Conn, msg); err != nil {
		klog.Errorf("SendResult: Failed to send result: %v", err)
	}
}
