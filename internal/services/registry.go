package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog/log"
)

const registryShards = 32

// ErrNotConnected is returned when a user has no live channel
var ErrNotConnected = errors.New("user is not connected")

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// Channel is an outbound push channel to one client
type Channel interface {
	Send(data []byte) error
	Close() error
}

type registryShard struct {
	mu    sync.Mutex
	conns map[string]Channel
}

// ConnRegistry tracks at most one live channel per user. Entries are spread
// over shards so unrelated users never contend on the same lock.
type ConnRegistry struct {
	shards [registryShards]registryShard
}

// NewConnRegistry creates an empty registry
func NewConnRegistry() *ConnRegistry {
	r := &ConnRegistry{}
	for i := range r.shards {
		r.shards[i].conns = make(map[string]Channel)
	}
	return r
}

func (r *ConnRegistry) shard(userID string) *registryShard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return &r.shards[h.Sum32()%registryShards]
}

// Register installs ch as the user's channel, closing any channel it supersedes
func (r *ConnRegistry) Register(userID string, ch Channel) {
	s := r.shard(userID)
	s.mu.Lock()
	prev := s.conns[userID]
	s.conns[userID] = ch
	s.mu.Unlock()

	if prev != nil && prev != ch {
		prev.Close()
		log.Debug().Str("user_id", userID).Msg("Superseded previous connection")
	}
	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes and closes whatever channel the user has
func (r *ConnRegistry) Unregister(userID string) {
	s := r.shard(userID)
	s.mu.Lock()
	ch, ok := s.conns[userID]
	delete(s.conns, userID)
	s.mu.Unlock()

	if ok {
		ch.Close()
		log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
	}
}

// Release removes the user's entry only if it is still ch. A connection that
// was superseded by a reconnect must not evict its replacement on teardown.
func (r *ConnRegistry) Release(userID string, ch Channel) bool {
	s := r.shard(userID)
	s.mu.Lock()
	current, ok := s.conns[userID]
	owned := ok && current == ch
	if owned {
		delete(s.conns, userID)
	}
	s.mu.Unlock()

	ch.Close()
	if owned {
		log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
	}
	return owned
}

// Send delivers a message to the user's live channel. A failed write
// releases that channel.
func (r *ConnRegistry) Send(userID string, message WSMessage) error {
	s := r.shard(userID)
	s.mu.Lock()
	ch, ok := s.conns[userID]
	s.mu.Unlock()

	if !ok {
		return ErrNotConnected
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := ch.Send(data); err != nil {
		r.Release(userID, ch)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// IsOnline checks if a user has a live channel
func (r *ConnRegistry) IsOnline(userID string) bool {
	s := r.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.conns[userID]
	return ok
}

// Count returns the number of connected users
func (r *ConnRegistry) Count() int {
	n := 0
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		n += len(s.conns)
		s.mu.Unlock()
	}
	return n
}

// CloseAll drops every channel, used on shutdown
func (r *ConnRegistry) CloseAll() {
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		conns := s.conns
		s.conns = make(map[string]Channel)
		s.mu.Unlock()
		for _, ch := range conns {
			ch.Close()
		}
	}
}
