package ws

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/cableworks/backend/internal/rope"
	"github.com/cableworks/backend/internal/sim"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Client represents a connected WebSocket viewer of one rope.
type Client struct {
	conn     *websocket.Conn
	viewerID string
	ropeID   string
	send     chan []byte
}

// Hub maintains the set of active clients, keyed by viewer and grouped
// into per-rope rooms.
type Hub struct {
	clients    map[string]*Client            // viewerID -> Client
	ropeRooms  map[string]map[string]*Client // ropeID -> viewerID -> Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		ropeRooms:  make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// RopeHub is the single hub for all simulations.
var RopeHub *Hub

var manager *sim.Manager

func init() {
	RopeHub = NewHub()
	go runRopeHub(RopeHub)
}

// SetManager wires the simulation manager the command handlers call into.
func SetManager(m *sim.Manager) {
	manager = m
}

// Publish implements sim.FramePublisher: frames and events land in the
// rope's room without blocking the step worker.
func (h *Hub) Publish(ropeID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, exists := h.ropeRooms[ropeID]; exists {
		for _, client := range room {
			select {
			case client.send <- payload:
			default:
				// Client's buffer is full
				log.Printf("[WS] send buffer full for viewer %s on rope %s, dropping message", client.viewerID, ropeID)
			}
		}
	}
}

// WSMessage is the envelope for viewer commands.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Command data types
type ForceData struct {
	Force    rope.Vec3 `json:"force"`
	Segment  int       `json:"segment"`
	Duration float64   `json:"duration"`
}

type PositionData struct {
	Position rope.Vec3 `json:"position"`
}

type CutData struct {
	Segment int `json:"segment"`
}

type AnchorData struct {
	End      rope.End  `json:"end"`
	Position rope.Vec3 `json:"position"`
}

// HandleWebSocket upgrades a viewer connection for one rope, identified
// by the :id path parameter (or a "rope" query parameter when mounted
// without one).
func HandleWebSocket(c *gin.Context) {
	ropeID := c.Param("id")
	if ropeID == "" {
		ropeID = c.Query("rope")
	}
	if ropeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rope id required"})
		return
	}
	if manager == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "simulation not ready"})
		return
	}
	if _, err := manager.Snapshot(ropeID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "rope not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] upgrade error: %v", err)
		return
	}

	client := &Client{
		conn:     conn,
		viewerID: newViewerID(),
		ropeID:   ropeID,
		send:     make(chan []byte, 256),
	}

	RopeHub.register <- client

	go client.writePump()
	go client.readPump()
}

func runRopeHub(h *Hub) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.viewerID] = client
			if _, exists := h.ropeRooms[client.ropeID]; !exists {
				h.ropeRooms[client.ropeID] = make(map[string]*Client)
			}
			h.ropeRooms[client.ropeID][client.viewerID] = client
			h.mu.Unlock()

			log.Printf("[WS] viewer %s subscribed to rope %s", client.viewerID, client.ropeID)
			client.sendSnapshot()

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.viewerID]; ok && cur == client {
				delete(h.clients, client.viewerID)
				if room, exists := h.ropeRooms[client.ropeID]; exists {
					delete(room, client.viewerID)
					if len(room) == 0 {
						delete(h.ropeRooms, client.ropeID)
					}
				}
				log.Printf("[WS] viewer %s left rope %s", client.viewerID, client.ropeID)

				// Closing under the lock: Publish holds the read lock while
				// sending, so nothing can write to the channel after this.
				close(client.send)
			}
			h.mu.Unlock()
		}
	}
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Channel closed — connection is being replaced or cleaned up.
				// Best-effort close frame; ignore errors (conn may already be closed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] write error for viewer %s: %v", c.viewerID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] ping error for viewer %s: %v", c.viewerID, err)
				return
			}
		}
	}
}

// readPump reads viewer commands.
func (c *Client) readPump() {
	defer func() {
		RopeHub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] unexpected close for viewer %s: %v", c.viewerID, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage dispatches a viewer command to the simulation manager.
// Commands run between steps (the manager lock serializes them against
// the step worker), so viewers can manipulate a rope live.
func (c *Client) handleMessage(msg WSMessage) {
	switch msg.Type {
	case "get_state":
		c.sendSnapshot()

	case "apply_force":
		var data ForceData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid force data")
			return
		}
		if err := manager.ApplyForce(c.ropeID, data.Force, data.Segment, data.Duration); err != nil {
			c.sendError(err.Error())
		}

	case "grab":
		var data PositionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid grab data")
			return
		}
		index, err := manager.Grab(c.ropeID, data.Position)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.sendJSON(map[string]interface{}{"type": "grab_result", "segment": index})

	case "move_grab":
		var data PositionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid move data")
			return
		}
		if err := manager.MoveGrab(c.ropeID, data.Position); err != nil {
			c.sendError(err.Error())
		}

	case "release":
		if err := manager.Release(c.ropeID); err != nil {
			c.sendError(err.Error())
		}

	case "cut":
		var data CutData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid cut data")
			return
		}
		if err := manager.Cut(c.ropeID, data.Segment); err != nil {
			c.sendError(err.Error())
		}

	case "reset":
		if err := manager.ResetRope(c.ropeID); err != nil {
			c.sendError(err.Error())
		}

	case "move_anchor":
		var data AnchorData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid anchor data")
			return
		}
		if err := manager.AttachAnchor(c.ropeID, data.End, data.Position); err != nil {
			c.sendError(err.Error())
		}

	case "detach_anchor":
		var data AnchorData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid anchor data")
			return
		}
		if err := manager.DetachAnchor(c.ropeID, data.End); err != nil {
			c.sendError(err.Error())
		}

	default:
		c.sendError("unknown message type")
	}
}

// sendSnapshot pushes the rope's full current state to this viewer.
func (c *Client) sendSnapshot() {
	snap, err := manager.Snapshot(c.ropeID)
	if err != nil {
		c.sendError("rope not found")
		return
	}
	c.sendJSON(map[string]interface{}{
		"type":     "rope_state",
		"snapshot": snap,
	})
}

func (c *Client) sendJSON(message map[string]interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] error marshaling message: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("[WS] dropped message for viewer %s (buffer full)", c.viewerID)
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	c.sendJSON(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}

func newViewerID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "viewer_unknown"
	}
	return "viewer_" + hex.EncodeToString(b)
}
