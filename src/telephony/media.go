package telephony

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ava-voice/ava-agent/src/audio"
	"github.com/ava-voice/ava-agent/src/logger"
)

// MediaServer accepts WebSocket media connections from Asterisk
// external media channels. Binary frames carry 8kHz mu-law audio, 160
// bytes per 20ms packet; text frames carry control messages.
type MediaServer struct {
	port     int
	onAudio  func(channelID string, mulaw []byte)
	server   *http.Server
	upgrader websocket.Upgrader
	log      *logger.Logger

	mu    sync.RWMutex
	conns map[string]*mediaConn
}

type mediaConn struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
	cancel  context.CancelFunc
}

// NewMediaServer creates a media server. onAudio is invoked from the
// connection's read loop for every inbound audio frame.
func NewMediaServer(port int, onAudio func(channelID string, mulaw []byte)) *MediaServer {
	return &MediaServer{
		port:    port,
		onAudio: onAudio,
		conns:   make(map[string]*mediaConn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: logger.WithPrefix("[Media]"),
	}
}

// Start begins listening for media connections
func (s *MediaServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/media/", s.handleWebSocket)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}

	go func() {
		s.log.Info("listening on port %d", s.port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("server error: %v", err)
		}
	}()

	return nil
}

// Stop closes every connection and shuts the listener down
func (s *MediaServer) Stop() error {
	s.mu.Lock()
	for _, c := range s.conns {
		c.cancel()
		c.conn.Close()
	}
	s.conns = make(map[string]*mediaConn)
	s.mu.Unlock()

	if s.server != nil {
		return s.server.Shutdown(context.Background())
	}
	return nil
}

func (s *MediaServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	channelID := r.URL.Path[len("/media/"):]
	s.log.Info("connection opened channel=%s remote=%s", channelID, r.RemoteAddr)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("upgrade failed channel=%s: %v", channelID, err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	mc := &mediaConn{id: channelID, conn: conn, cancel: cancel}

	s.mu.Lock()
	s.conns[channelID] = mc
	s.mu.Unlock()

	go s.readLoop(ctx, mc)
}

func (s *MediaServer) readLoop(ctx context.Context, mc *mediaConn) {
	defer func() {
		mc.cancel()
		mc.conn.Close()
		s.mu.Lock()
		delete(s.conns, mc.id)
		s.mu.Unlock()
		s.log.Info("connection closed channel=%s", mc.id)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		messageType, message, err := mc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("read error channel=%s: %v", mc.id, err)
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			if s.onAudio != nil {
				s.onAudio(mc.id, message)
			}
		case websocket.TextMessage:
			s.log.Debug("control message channel=%s: %s", mc.id, message)
		}
	}
}

// SendAudio writes audio to a channel's media connection. PCM16 input
// is converted to mu-law; mu-law passes through.
func (s *MediaServer) SendAudio(channelID string, data []byte, encoding string) error {
	s.mu.RLock()
	mc, ok := s.conns[channelID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no media connection for channel %s", channelID)
	}

	payload := data
	if audio.NormalizeEncoding(encoding) == audio.EncodingPCM16 {
		converted, err := audio.ConvertPCM16(data, audio.EncodingMulaw)
		if err != nil {
			return err
		}
		payload = converted
	}

	mc.writeMu.Lock()
	defer mc.writeMu.Unlock()
	return mc.conn.WriteMessage(websocket.BinaryMessage, payload)
}

// Connected reports whether a channel currently has a media connection
func (s *MediaServer) Connected(channelID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.conns[channelID]
	return ok
}
