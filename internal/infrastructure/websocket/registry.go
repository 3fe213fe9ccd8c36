package websocket

import (
	"sync"

	"printhub/internal/domain"
	"printhub/pkg/logger"
)

// Registry tracks live connections and their group memberships. All state
// is process-local; a restart forces clients to reconnect and re-register.
type Registry struct {
	connections map[string]domain.Connection         // connectionID -> connection
	groups      map[string]map[string]struct{}       // group -> set of connectionID
	memberships map[string]map[string]struct{}       // connectionID -> set of group
	mutex       sync.RWMutex
	log         logger.Logger
}

func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		connections: make(map[string]domain.Connection),
		groups:      make(map[string]map[string]struct{}),
		memberships: make(map[string]map[string]struct{}),
		log:         log,
	}
}

// Register is idempotent per connection id: re-registering replaces the
// connection handle (reconnect race) and keeps existing memberships.
func (r *Registry) Register(conn domain.Connection) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.connections[conn.ID()] = conn
	if r.memberships[conn.ID()] == nil {
		r.memberships[conn.ID()] = make(map[string]struct{})
	}

	r.log.Info("Connection registered", "connection_id", conn.ID(), "user_id", conn.UserID())
}

// Unregister removes the connection from every group in one step. Safe to
// call for an id that was never registered.
func (r *Registry) Unregister(connectionID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for group := range r.memberships[connectionID] {
		r.removeFromGroup(connectionID, group)
	}
	delete(r.memberships, connectionID)
	delete(r.connections, connectionID)

	r.log.Info("Connection unregistered", "connection_id", connectionID)
}

// Join is a no-op for an already-joined group and for unknown connections.
func (r *Registry) Join(connectionID, group string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, registered := r.connections[connectionID]; !registered {
		r.log.Warn("Join for unknown connection", "connection_id", connectionID, "group", group)
		return
	}

	if r.groups[group] == nil {
		r.groups[group] = make(map[string]struct{})
	}
	r.groups[group][connectionID] = struct{}{}
	r.memberships[connectionID][group] = struct{}{}

	r.log.Debug("Joined group", "connection_id", connectionID, "group", group)
}

// Leave is a no-op if the connection is not in the group.
func (r *Registry) Leave(connectionID, group string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.removeFromGroup(connectionID, group)
	if members, ok := r.memberships[connectionID]; ok {
		delete(members, group)
	}
}

// MembersOf returns a consistent snapshot of the group's connections.
func (r *Registry) MembersOf(group string) []domain.Connection {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ids, ok := r.groups[group]
	if !ok {
		return nil
	}

	members := make([]domain.Connection, 0, len(ids))
	for id := range ids {
		if conn, exists := r.connections[id]; exists {
			members = append(members, conn)
		}
	}
	return members
}

func (r *Registry) Get(connectionID string) (domain.Connection, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	conn, ok := r.connections[connectionID]
	return conn, ok
}

// caller holds the write lock
func (r *Registry) removeFromGroup(connectionID, group string) {
	if members, ok := r.groups[group]; ok {
		delete(members, connectionID)
		if len(members) == 0 {
			delete(r.groups, group)
		}
	}
}
