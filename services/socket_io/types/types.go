package socketio_types

import (
	"strconv"
	"sync"

	"Scorekeep/services/metrics"

	"github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

// Conn is the part of a socket connection the server pushes through.
type Conn interface {
	ID() string
	Emit(event string, args ...interface{})
}

// socketConn adapts a socket.io connection to Conn.
type socketConn struct {
	s *socket.Socket
}

func WrapSocket(s *socket.Socket) Conn {
	return &socketConn{s: s}
}

func (c *socketConn) ID() string { return string(c.s.Id()) }

func (c *socketConn) Emit(event string, args ...interface{}) {
	c.s.Emit(event, args...)
}

// Registry maps a logged in user id to the connection it announced last.
// One connection per user: a newer login replaces the older mapping.
type Registry struct {
	mutex sync.RWMutex
	conns map[uint]Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[uint]Conn)}
}

// Register maps userID to conn and returns the connection it replaced, if any.
func (r *Registry) Register(userID uint, conn Conn) Conn {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	prev := r.conns[userID]
	r.conns[userID] = conn
	metrics.RealtimeConnections.Set(float64(len(r.conns)))
	if prev != nil && prev.ID() == conn.ID() {
		return nil
	}
	return prev
}

// Unregister removes the mapping only while it still points at conn, so a
// late disconnect of a replaced socket leaves the newer one alone.
func (r *Registry) Unregister(userID uint, conn Conn) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	cur, ok := r.conns[userID]
	if !ok || cur.ID() != conn.ID() {
		return false
	}
	delete(r.conns, userID)
	metrics.RealtimeConnections.Set(float64(len(r.conns)))
	return true
}

func (r *Registry) Lookup(userID uint) (Conn, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	conn, ok := r.conns[userID]
	return conn, ok
}

func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.conns)
}

// Notify emits event to userID if they are connected. Delivery is at most
// once: an offline user simply misses the event and recovers by polling.
func (r *Registry) Notify(userID uint, event string, payload interface{}) bool {
	conn, ok := r.Lookup(userID)
	metrics.RealtimeEvents.WithLabelValues(event, strconv.FormatBool(ok)).Inc()
	if !ok {
		zap.S().Infof("[REALTIME] user %d not connected, %s dropped", userID, event)
		return false
	}
	conn.Emit(event, payload)
	return true
}

// SocketServer bundles the socket.io server with its user registry.
type SocketServer struct {
	Sio_server *socket.Server
	Registry   *Registry
}

func NewSocketServer() *SocketServer {
	return &SocketServer{Registry: NewRegistry()}
}
