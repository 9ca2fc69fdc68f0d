package notify

import (
	"time"

	"codeberg.org/cvforge/server/internal/logger"
	"codeberg.org/cvforge/server/internal/quota"
)

func NewHub() *Hub {
	return &Hub{
		users:         make(map[string]map[string]*Client),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		deliveries:    make(chan delivery, 256),
		ipConnections: make(map[string]int),
		shutdown:      make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// starts the hub's main loop; returns after Shutdown
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case d := <-h.deliveries:
			h.deliver(d.userID, d.msg)

		case <-h.shutdown:
			h.closeAllConnections()
			return
		}
	}
}

// queues msg for every connection of userID. never blocks the caller; when
// the queue is full the message is dropped and the client catches up on its
// next refresh.
func (h *Hub) Send(userID string, msg *Message) error {
	select {
	case <-h.shutdown:
		return ErrHubStopped
	default:
	}

	select {
	case h.deliveries <- delivery{userID: userID, msg: msg}:
		return nil
	default:
		logger.Warn("notification queue full, dropping message",
			"user_id", userID,
			"message_type", msg.Type,
		)
		return nil
	}
}

// pushes a credits_updated message; matches quota.Listener
func (h *Hub) NotifyCredits(userID string, snapshot quota.Snapshot) {
	msg, err := NewMessage(TypeCreditsUpdated, snapshot)
	if err != nil {
		logger.ErrorErr(err, "failed to create credits message", "user_id", userID)
		return
	}

	if err := h.Send(userID, msg); err != nil {
		logger.Debug("credits notification skipped", "user_id", userID, "error", err)
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.users[client.UserID] == nil {
		h.users[client.UserID] = make(map[string]*Client)
	}

	h.users[client.UserID][client.ID] = client

	logger.Info("client registered",
		"client_id", client.ID,
		"user_id", client.UserID,
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userClients, exists := h.users[client.UserID]
	if !exists {
		return
	}

	if _, exists := userClients[client.ID]; !exists {
		return
	}

	delete(userClients, client.ID)
	client.Close()

	if len(userClients) == 0 {
		delete(h.users, client.UserID)
	}

	if client.IPAddress != "" {
		h.ipConnections[client.IPAddress]--

		if h.ipConnections[client.IPAddress] <= 0 {
			delete(h.ipConnections, client.IPAddress)
		}
	}

	logger.Info("client unregistered",
		"client_id", client.ID,
		"user_id", client.UserID,
	)
}

func (h *Hub) deliver(userID string, msg *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for clientID, client := range h.users[userID] {
		if err := client.Send(msg); err != nil {
			logger.ErrorErr(err, "failed to send message to client",
				"client_id", clientID,
				"user_id", userID,
			)
		}
	}
}

// returns the number of live connections for a user
func (h *Hub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.users[userID])
}

// checks if a new connection should be allowed based on limits
func (h *Hub) CanAcceptConnection(userID, ipAddress string) (bool, string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.users[userID]) >= maxConnectionsPerUser {
		return false, "Maximum connections per user exceeded"
	}

	if h.ipConnections[ipAddress] >= maxConnectionsPerIP {
		return false, "Maximum connections per IP address exceeded"
	}

	return true, ""
}

// increments the connection count for an IP address
func (h *Hub) TrackIPConnection(ipAddress string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ipConnections[ipAddress]++
}

// undoes TrackIPConnection for a connection that never registered
func (h *Hub) ReleaseIPConnection(ipAddress string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.ipConnections[ipAddress]--

	if h.ipConnections[ipAddress] <= 0 {
		delete(h.ipConnections, ipAddress)
	}
}

// returns the number of tracked connections for an IP address
func (h *Hub) IPConnectionCount(ipAddress string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.ipConnections[ipAddress]
}

// stops Run and closes every connection. safe to call more than once.
func (h *Hub) Shutdown() {
	h.shutdownOnce.Do(func() {
		close(h.shutdown)
	})
}

// closed once Run has returned
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()

	shutdownMsg, err := NewMessage(TypeServerShutdown, ServerShutdownPayload{
		Reason: "server is shutting down",
	})

	if err == nil {
		for _, userClients := range h.users {
			for _, client := range userClients {
				client.Send(shutdownMsg) //nolint:errcheck,gosec // best effort
			}
		}
	}

	h.mu.Unlock()

	// give write pumps a moment to flush the shutdown message
	time.Sleep(100 * time.Millisecond)

	h.mu.Lock()
	defer h.mu.Unlock()

	logger.Info("closing all websocket connections")

	for _, userClients := range h.users {
		for _, client := range userClients {
			client.Close()
		}
	}

	h.users = make(map[string]map[string]*Client)
	h.ipConnections = make(map[string]int)
}
