package notify

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// message type constants for websocket communication
const (
	// is sent with a fresh quota snapshot after the user's usage changed
	TypeCreditsUpdated = "credits_updated"

	// is sent when an error occurs
	TypeError = "error"

	// is sent by server before shutdown
	TypeServerShutdown = "server_shutdown"
)

// client connection constants
const (
	// time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// clients only send control frames
	maxMessageSize = 4 * 1024

	sendBufferSize = 16
)

// hub connection limit constants
const (
	maxConnectionsPerUser = 5
	maxConnectionsPerIP   = 10
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrHubStopped       = errors.New("hub stopped")
)

// represents a websocket message with typed payload
type Message struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type ServerShutdownPayload struct {
	Reason string `json:"reason"`
}

// one websocket connection of a user
type Client struct {
	ID        string
	UserID    string
	IPAddress string

	conn *websocket.Conn
	hub  *Hub
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

// tracks connected clients per user and delivers messages to them
type Hub struct {
	// user ID -> client ID -> client
	users map[string]map[string]*Client

	Register   chan *Client
	Unregister chan *Client

	deliveries chan delivery

	mu sync.RWMutex

	// connection tracking: IP address -> count of connections
	ipConnections map[string]int

	shutdownOnce sync.Once
	shutdown     chan struct{}
	done         chan struct{}
}

type delivery struct {
	userID string
	msg    *Message
}
