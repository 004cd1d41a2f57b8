// Package callindex maps a (caller, receiver) pair to the id of its active
// call. It is a best-effort cache used to resolve events that omit the call
// id; the store stays the source of truth.
package callindex

import (
	"context"
	"strings"
	"sync"
)

type Index interface {
	Put(ctx context.Context, callerID, receiverID, callID string) error
	Lookup(ctx context.Context, callerID, receiverID string) (string, bool, error)
	Remove(ctx context.Context, callerID, receiverID string) error
	// RemoveUser drops every entry mentioning userID in either position.
	RemoveUser(ctx context.Context, userID string) error
	// Reset empties the index; called once on process start.
	Reset(ctx context.Context) error
}

const sep = "|"

func key(callerID, receiverID string) string { return callerID + sep + receiverID }

func mentions(k, userID string) bool {
	caller, receiver, _ := strings.Cut(k, sep)
	return caller == userID || receiver == userID
}

// RemovePair drops both orientations of a pair.
func RemovePair(ctx context.Context, idx Index, a, b string) error {
	if err := idx.Remove(ctx, a, b); err != nil {
		return err
	}
	return idx.Remove(ctx, b, a)
}

type Memory struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]string)}
}

func (m *Memory) Put(_ context.Context, callerID, receiverID, callID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key(callerID, receiverID)] = callID
	return nil
}

func (m *Memory) Lookup(_ context.Context, callerID, receiverID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.entries[key(callerID, receiverID)]
	return id, ok, nil
}

func (m *Memory) Remove(_ context.Context, callerID, receiverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key(callerID, receiverID))
	return nil
}

func (m *Memory) RemoveUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if mentions(k, userID) {
			delete(m.entries, k)
		}
	}
	return nil
}

func (m *Memory) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]string)
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
