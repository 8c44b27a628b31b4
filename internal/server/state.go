package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/janpfeifer/MemoryPairs/internal/game"
	"k8s.io/klog/v2"
)

// ResultStore is where finished rounds are kept.
type ResultStore interface {
	Record(ctx context.Context, r game.Result) error
	Scoreboard(ctx context.Context) (game.Scoreboard, error)
}

// ServerState holds the connected clients and the result store.
type ServerState struct {
	Address string // Address the server is listening on, set once it started

	results ResultStore
	mu      sync.RWMutex
	clients map[*websocket.Conn]*client
}

type client struct {
	remoteAddr string
	latency    time.Duration // Measured round-trip time / 2 (one-way estimate)
	reported   int           // Number of results received
}

const writeTimeout = 2 * time.Second

// NewServerState creates the state of a server backed by results.
func NewServerState(results ResultStore) *ServerState {
	return &ServerState{
		results: results,
		clients: make(map[*websocket.Conn]*client),
	}
}

// NumClients returns the number of connected websocket clients.
func (s *ServerState) NumClients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// HandleWS upgrades the connection and serves one client until it disconnects.
func (s *ServerState) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		klog.Errorf("HandleWS: failed to accept websocket from %s: %v", r.RemoteAddr, err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	s.mu.Lock()
	s.clients[conn] = &client{remoteAddr: r.RemoteAddr}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		c := s.clients[conn]
		delete(s.clients, conn)
		s.mu.Unlock()
		klog.V(1).Infof("HandleWS: client %s gone after reporting %d results (latency %s)", c.remoteAddr, c.reported, c.latency)
	}()
	klog.Infof("HandleWS: client %s connected", r.RemoteAddr)

	if err := s.write(ctx, conn, game.MsgTypePing, game.PingMessage{ServerTime: time.Now().UnixNano()}); err != nil {
		klog.Errorf("HandleWS: failed to ping %s: %v", r.RemoteAddr, err)
		return
	}
	if err := s.sendScores(ctx, conn); err != nil {
		klog.Errorf("HandleWS: failed to send scores to %s: %v", r.RemoteAddr, err)
		return
	}

	for {
		var msg game.WsMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				klog.Infof("HandleWS: client %s disconnected", r.RemoteAddr)
			} else {
				klog.Warningf("HandleWS: read from %s failed: %v", r.RemoteAddr, err)
			}
			return
		}
		if err := s.handleMessage(ctx, conn, msg); err != nil {
			klog.Warningf("HandleWS: message %q from %s rejected: %v", msg.Type, r.RemoteAddr, err)
			if err := s.write(ctx, conn, game.MsgTypeError, game.ErrorMessage{Message: err.Error()}); err != nil {
				klog.Errorf("HandleWS: failed to send error to %s: %v", r.RemoteAddr, err)
				return
			}
		}
	}
}

func (s *ServerState) handleMessage(ctx context.Context, conn *websocket.Conn, msg game.WsMessage) error {
	p, err := msg.Parse()
	if err != nil {
		return err
	}
	switch m := p.(type) {
	case *game.ResultMessage:
		if err := s.results.Record(ctx, m.Result); err != nil {
			return fmt.Errorf("failed to record result: %w", err)
		}
		s.mu.Lock()
		if c := s.clients[conn]; c != nil {
			c.reported++
		}
		s.mu.Unlock()
		s.broadcastScores(ctx)
		return nil

	case *game.PongMessage:
		rtt := time.Since(time.Unix(0, m.ServerTime))
		s.mu.Lock()
		if c := s.clients[conn]; c != nil {
			c.latency = rtt / 2
		}
		s.mu.Unlock()
		klog.V(1).Infof("HandleWS: round-trip time %s", rtt)
		return nil

	default:
		return fmt.Errorf("unexpected message type %q from client", msg.Type)
	}
}

func (s *ServerState) sendScores(ctx context.Context, conn *websocket.Conn) error {
	board, err := s.results.Scoreboard(ctx)
	if err != nil {
		return err
	}
	return s.write(ctx, conn, game.MsgTypeScores, game.ScoresMessage{Scoreboard: board})
}

// broadcastScores sends the current scoreboard to every connected client.
func (s *ServerState) broadcastScores(ctx context.Context) {
	board, err := s.results.Scoreboard(ctx)
	if err != nil {
		klog.Errorf("broadcastScores: %v", err)
		return
	}
	s.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.mu.RUnlock()

	for _, conn := range conns {
		if err := s.write(ctx, conn, game.MsgTypeScores, game.ScoresMessage{Scoreboard: board}); err != nil {
			klog.Warningf("broadcastScores: %v", err)
		}
	}
}

func (s *ServerState) write(ctx context.Context, conn *websocket.Conn, msgType game.MessageType, payload any) error {
	msg, err := game.NewWsMessage(msgType, payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

// handleScores serves the scoreboard as JSON.
func (s *ServerState) handleScores(w http.ResponseWriter, r *http.Request) {
	board, err := s.results.Scoreboard(r.Context())
	if err != nil {
		klog.Errorf("handleScores: %v", err)
		http.Error(w, "failed to load scoreboard", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(board); err != nil {
		klog.Errorf("handleScores: failed to encode scoreboard: %v", err)
	}
}
