package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"mousereplay/internal/controller"
	"mousereplay/internal/protocol"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The server only listens on loopback by default
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSManager handles WebSocket connections and broadcasting
type WSManager struct {
	server     *Server
	clients    map[*WebSocketClient]bool
	clientsMu  sync.RWMutex
	broadcast  chan protocol.Message
	register   chan *WebSocketClient
	unregister chan *WebSocketClient
	shutdown   chan struct{}
	startOnce  sync.Once
	stopOnce   sync.Once
}

// WebSocketClient represents a connected status window
type WebSocketClient struct {
	manager *WSManager
	conn    *websocket.Conn
	send    chan []byte
	ip      string
}

func newWSManager(s *Server) *WSManager {
	return &WSManager{
		server:     s,
		clients:    make(map[*WebSocketClient]bool),
		broadcast:  make(chan protocol.Message, 16),
		register:   make(chan *WebSocketClient),
		unregister: make(chan *WebSocketClient),
		shutdown:   make(chan struct{}),
	}
}

func (m *WSManager) ensureStarted() {
	m.startOnce.Do(func() {
		go m.start()
		go m.feed()
	})
}

func (m *WSManager) stop() {
	m.stopOnce.Do(func() { close(m.shutdown) })
}

func (m *WSManager) start() {
	for {
		select {
		case client := <-m.register:
			m.clientsMu.Lock()
			m.clients[client] = true
			n := len(m.clients)
			m.clientsMu.Unlock()
			log.Printf("WS: New client registered from %s. Total clients: %d", client.ip, n)

		case client := <-m.unregister:
			m.clientsMu.Lock()
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				close(client.send)
				log.Printf("WS: Client unregistered from %s. Total clients: %d", client.ip, len(m.clients))
			}
			m.clientsMu.Unlock()

		case message := <-m.broadcast:
			m.broadcastMessage(message)

		case <-m.shutdown:
			m.clientsMu.Lock()
			for client := range m.clients {
				delete(m.clients, client)
				close(client.send)
			}
			m.clientsMu.Unlock()
			return
		}
	}
}

// feed relays controller updates to the hub until shutdown
func (m *WSManager) feed() {
	updates, cancel := m.server.rec.Subscribe()
	defer cancel()

	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return
			}
			select {
			case m.broadcast <- updateMessage(u):
			case <-m.shutdown:
				return
			}
		case <-m.shutdown:
			return
		}
	}
}

func updateMessage(u controller.Update) protocol.Message {
	t := protocol.TypeStatus
	if u.Kind == controller.UpdateNotice {
		t = protocol.TypeNotice
	}
	return protocol.Message{
		Type: t,
		Payload: protocol.StatusPayload{
			Message:  u.Message,
			Time:     u.At.UnixMilli(),
			Snapshot: u.Snapshot,
		},
	}
}

func (m *WSManager) broadcastMessage(message protocol.Message) {
	jsonMsg, err := json.Marshal(message)
	if err != nil {
		log.Printf("WS: Failed to marshal broadcast message: %v", err)
		return
	}

	m.clientsMu.Lock()
	defer m.clientsMu.Unlock()

	for client := range m.clients {
		select {
		case client.send <- jsonMsg:
		default:
			// Slow client, drop it
			close(client.send)
			delete(m.clients, client)
		}
	}
}

func (m *WSManager) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WS: Failed to upgrade connection: %v", err)
		return
	}

	client := &WebSocketClient{
		manager: m,
		conn:    conn,
		send:    make(chan []byte, 256),
		ip:      r.RemoteAddr,
	}

	// Queue the current state before the client can see any update
	current := m.server.rec.Snapshot()
	snap := protocol.Message{
		Type: protocol.TypeSnapshot,
		Payload: protocol.StatusPayload{
			Message:  current.Message,
			Time:     time.Now().UnixMilli(),
			Snapshot: current,
		},
	}
	if data, err := json.Marshal(snap); err == nil {
		client.send <- data
	}

	select {
	case m.register <- client:
	case <-m.shutdown:
		conn.Close()
		return
	}

	// Start pump goroutines
	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection to the hub.
func (c *WebSocketClient) readPump() {
	defer func() {
		select {
		case c.manager.unregister <- c:
		case <-c.manager.shutdown:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WS: Read error: %v", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(50 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WebSocketClient) handleMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("WS: Invalid message format: %v", err)
		return
	}
	if msg.Type != protocol.TypeCommand {
		log.Printf("WS: Ignoring %q message from %s", msg.Type, c.ip)
		return
	}

	var cmd protocol.CommandPayload
	if err := protocol.DecodePayload(msg, &cmd); err != nil {
		log.Printf("WS: Invalid command payload: %v", err)
		return
	}
	log.Printf("WS: Received %s from %s", cmd.Action, c.ip)

	// Stopping waits for the replay, so keep the read pump free
	go func() {
		if err := c.manager.server.runCommand(cmd); err != nil {
			c.reply(protocol.Message{
				Type:    protocol.TypeError,
				Payload: protocol.ErrorPayload{Action: cmd.Action, Error: err.Error()},
			})
		}
	}()
}

// reply queues msg for this client only. It gives up if the client is gone.
func (c *WebSocketClient) reply(msg protocol.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.manager.clientsMu.RLock()
	defer c.manager.clientsMu.RUnlock()
	if !c.manager.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (s *Server) runCommand(cmd protocol.CommandPayload) error {
	switch cmd.Action {
	case protocol.CommandToggleRecording:
		return s.rec.ToggleRecording()
	case protocol.CommandReplay:
		return s.rec.TriggerReplayNow()
	case protocol.CommandStopReplay:
		return s.stopReplay()
	case protocol.CommandToggleAuto:
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_, err := s.rec.ToggleAutoReplay(ctx)
		return err
	case protocol.CommandAddSchedule:
		_, err := s.rec.AddScheduleEntry(cmd.Entry)
		return err
	case protocol.CommandRemoveSchedule:
		return s.rec.RemoveScheduleEntry(cmd.Entry)
	case protocol.CommandSetAutoInterval:
		return s.setAutoInterval(cmd.Interval)
	}
	return fmt.Errorf("unknown command %q", cmd.Action)
}
