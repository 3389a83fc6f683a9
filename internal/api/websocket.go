package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"avaneesh/dnp3-tester/internal/telemetry"
	"avaneesh/dnp3-tester/pkg/logger"
)

// Stream message types
const (
	MsgTypeConnected = "connected"
	MsgTypeLog       = "log"
	MsgTypeFrame     = "frame"
	MsgTypePing      = "ping"
	MsgTypePong      = "pong"
	MsgTypeError     = "error"
)

const (
	streamBuffer = 256
	writeWait    = 5 * time.Second
)

// WSMessage is one message on the live stream
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// StreamHandler pushes new log entries and frames to websocket clients
type StreamHandler struct {
	store    *telemetry.Store
	logger   logger.Logger
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a stream handler over store
func NewStreamHandler(store *telemetry.Store, log logger.Logger) *StreamHandler {
	return &StreamHandler{
		store:  store,
		logger: logger.OrNoOp(log),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
		},
	}
}

// HandleStream upgrades the connection and forwards store updates until the
// client goes away. Updates a slow client cannot take are dropped.
func (sh *StreamHandler) HandleStream(c echo.Context) error {
	ws, err := sh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	clientID := uuid.New().String()
	sh.logger.Info("stream client %s connected", clientID)
	defer sh.logger.Info("stream client %s disconnected", clientID)

	updates, cancel := sh.store.Subscribe(streamBuffer)
	defer cancel()

	// gorilla allows one concurrent writer
	var writeMu sync.Mutex
	send := func(msg WSMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		return ws.WriteJSON(msg)
	}

	if err := send(WSMessage{Type: MsgTypeConnected, ID: clientID, Timestamp: time.Now().UnixMilli()}); err != nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg WSMessage
			if err := ws.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					sh.logger.Warn("stream client %s: %v", clientID, err)
				}
				return
			}
			switch msg.Type {
			case MsgTypePing:
				_ = send(WSMessage{Type: MsgTypePong, ID: msg.ID, Timestamp: time.Now().UnixMilli()})
			default:
				_ = send(WSMessage{
					Type:      MsgTypeError,
					Payload:   mustJSON(map[string]string{"message": "unknown message type: " + msg.Type}),
					Timestamp: time.Now().UnixMilli(),
				})
			}
		}
	}()

	for {
		select {
		case u, open := <-updates:
			if !open {
				return nil
			}
			if err := send(updateMessage(u)); err != nil {
				sh.logger.Debug("stream client %s: %v", clientID, err)
				return nil
			}
		case <-done:
			return nil
		}
	}
}

func updateMessage(u telemetry.Update) WSMessage {
	if u.Log != nil {
		return WSMessage{
			Type:      MsgTypeLog,
			Payload:   mustJSON(newLogView(*u.Log)),
			Timestamp: millis(u.Log.Timestamp),
		}
	}
	return WSMessage{
		Type:      MsgTypeFrame,
		Payload:   mustJSON(newFrameView(*u.Frame)),
		Timestamp: millis(u.Frame.Timestamp),
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
