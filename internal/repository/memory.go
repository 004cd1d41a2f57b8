package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fathima-sithara/chat-hub/internal/domain"
)

// MemoryStore keeps every collection in process memory. One mutex serializes
// all writes, which gives it the same compare-and-set and transactional
// guarantees the Mongo store gets from indexes and sessions.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[string]domain.User
	requests    map[string]domain.FriendRequest
	friendships map[string]domain.Friendship // keyed by pair
	messages    map[string]domain.Message
	reactions   map[string]domain.MessageReaction // keyed by message|user
	calls       map[string]domain.Call
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]domain.User),
		requests:    make(map[string]domain.FriendRequest),
		friendships: make(map[string]domain.Friendship),
		messages:    make(map[string]domain.Message),
		reactions:   make(map[string]domain.MessageReaction),
		calls:       make(map[string]domain.Call),
	}
}

func (s *MemoryStore) Close(context.Context) error { return nil }

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// newMessageID returns a time-ordered id so messages created in the same
// instant still sort in creation order.
func newMessageID(id string) string {
	if id != "" {
		return id
	}
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return v7.String()
}

// users

func (s *MemoryStore) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	for _, existing := range s.users {
		if strings.ToLower(existing.Email) == email {
			return ErrDuplicate
		}
	}
	u.ID = newID(u.ID)
	if _, ok := s.users[u.ID]; ok {
		return ErrDuplicate
	}
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range s.users {
		if strings.ToLower(u.Email) == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) SetUserOnline(_ context.Context, id string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Online = online
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return nil
}

// friend requests

func (s *MemoryStore) CreateFriendRequest(_ context.Context, r *domain.FriendRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pair := domain.PairKey(r.SenderID, r.ReceiverID)
	for _, existing := range s.requests {
		if existing.Status == domain.FriendRequestPending && existing.PendingPair == pair {
			return ErrDuplicate
		}
	}
	r.ID = newID(r.ID)
	r.Status = domain.FriendRequestPending
	r.PendingPair = pair
	s.requests[r.ID] = *r
	return nil
}

func (s *MemoryStore) GetFriendRequest(_ context.Context, id string) (*domain.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) FindPendingRequest(_ context.Context, a, b string) (*domain.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pair := domain.PairKey(a, b)
	for _, r := range s.requests {
		if r.Status == domain.FriendRequestPending && r.PendingPair == pair {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListFriendRequests(_ context.Context, userID string, status domain.FriendRequestStatus) ([]domain.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.FriendRequest{}
	for _, r := range s.requests {
		if r.Involves(userID) && (status == "" || r.Status == status) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateFriendRequestStatus(_ context.Context, id string, from, to domain.FriendRequestStatus, at time.Time) (*domain.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != from {
		return nil, ErrStateChanged
	}
	r.Status = to
	r.UpdatedAt = at
	if to != domain.FriendRequestPending {
		r.PendingPair = ""
	}
	s.requests[id] = r
	return &r, nil
}

func (s *MemoryStore) AcceptFriendRequest(_ context.Context, id string, at time.Time) (*domain.FriendRequest, *domain.Friendship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if r.Status != domain.FriendRequestPending {
		return nil, nil, ErrStateChanged
	}
	pair := domain.PairKey(r.SenderID, r.ReceiverID)
	if _, exists := s.friendships[pair]; exists {
		return nil, nil, ErrDuplicate
	}
	r.Status = domain.FriendRequestAccepted
	r.PendingPair = ""
	r.UpdatedAt = at
	f := domain.NewFriendship(uuid.NewString(), r.SenderID, r.ReceiverID, at)
	s.requests[id] = r
	s.friendships[pair] = *f
	return &r, f, nil
}

// friendships

func (s *MemoryStore) GetFriendship(_ context.Context, a, b string) (*domain.Friendship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.friendships[domain.PairKey(a, b)]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

func (s *MemoryStore) DeleteFriendship(_ context.Context, a, b string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pair := domain.PairKey(a, b)
	if _, ok := s.friendships[pair]; !ok {
		return ErrNotFound
	}
	delete(s.friendships, pair)
	return nil
}

func (s *MemoryStore) ListFriendships(_ context.Context, userID string) ([]domain.Friendship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Friendship{}
	for _, f := range s.friendships {
		if f.UserA == userID || f.UserB == userID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// messages

func (s *MemoryStore) CreateMessage(_ context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = newMessageID(m.ID)
	stored := *m
	stored.Reactions = nil
	s.messages[m.ID] = stored
	return nil
}

func (s *MemoryStore) GetMessage(_ context.Context, id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemoryStore) ListThread(_ context.Context, a, b string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Message{}
	for _, m := range s.messages {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) MarkThreadRead(_ context.Context, senderID, receiverID string, at time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := []string{}
	for id, m := range s.messages {
		if m.SenderID != senderID || m.ReceiverID != receiverID || m.IsRead {
			continue
		}
		readAt := at
		m.IsRead = true
		m.ReadAt = &readAt
		s.messages[id] = m
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) MarkMessagesRead(_ context.Context, ids []string, receiverID string, at time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := []string{}
	for _, id := range ids {
		m, ok := s.messages[id]
		if !ok || m.ReceiverID != receiverID || m.IsRead {
			continue
		}
		readAt := at
		m.IsRead = true
		m.ReadAt = &readAt
		s.messages[id] = m
		changed = append(changed, id)
	}
	return changed, nil
}

func (s *MemoryStore) UpdateMessageContent(_ context.Context, id, content string, at time.Time) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	m.Content = content
	m.IsEdited = true
	m.UpdatedAt = at
	s.messages[id] = m
	return &m, nil
}

func (s *MemoryStore) DeleteMessage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[id]; !ok {
		return ErrNotFound
	}
	delete(s.messages, id)
	for key, r := range s.reactions {
		if r.MessageID == id {
			delete(s.reactions, key)
		}
	}
	return nil
}

// reactions

func reactionKey(messageID, userID string) string { return messageID + "|" + userID }

func (s *MemoryStore) UpsertReaction(_ context.Context, r *domain.MessageReaction) (*domain.MessageReaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := reactionKey(r.MessageID, r.UserID)
	if existing, ok := s.reactions[key]; ok {
		existing.Emoji = r.Emoji
		existing.UpdatedAt = r.UpdatedAt
		s.reactions[key] = existing
		return &existing, nil
	}
	stored := *r
	stored.ID = newID(stored.ID)
	s.reactions[key] = stored
	return &stored, nil
}

func (s *MemoryStore) DeleteReaction(_ context.Context, messageID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := reactionKey(messageID, userID)
	if _, ok := s.reactions[key]; !ok {
		return false, nil
	}
	delete(s.reactions, key)
	return true, nil
}

func (s *MemoryStore) ListReactions(_ context.Context, messageIDs []string) ([]domain.MessageReaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		wanted[id] = struct{}{}
	}
	out := []domain.MessageReaction{}
	for _, r := range s.reactions {
		if _, ok := wanted[r.MessageID]; ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// calls

func (s *MemoryStore) activeCall(pair string) (domain.Call, bool) {
	for _, c := range s.calls {
		if c.ActivePair == pair && !c.Status.Terminal() {
			return c, true
		}
	}
	return domain.Call{}, false
}

func (s *MemoryStore) SaveActiveCall(_ context.Context, c *domain.Call) (*domain.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pair := domain.PairKey(c.CallerID, c.ReceiverID)
	if existing, ok := s.activeCall(pair); ok {
		existing.CallerID = c.CallerID
		existing.ReceiverID = c.ReceiverID
		existing.CallType = c.CallType
		existing.Status = domain.CallOutgoing
		existing.StartTime = c.StartTime
		existing.UpdatedAt = c.UpdatedAt
		s.calls[existing.ID] = existing
		return &existing, nil
	}
	stored := *c
	stored.ID = newID(stored.ID)
	stored.Status = domain.CallOutgoing
	stored.ActivePair = pair
	s.calls[stored.ID] = stored
	return &stored, nil
}

func (s *MemoryStore) GetCall(_ context.Context, id string) (*domain.Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.calls[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) FindActiveCall(_ context.Context, a, b string) (*domain.Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.activeCall(domain.PairKey(a, b))
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) LatestCall(_ context.Context, callerID, receiverID string, status domain.CallStatus) (*domain.Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *domain.Call
	for _, c := range s.calls {
		if c.CallerID != callerID || c.ReceiverID != receiverID || c.Status != status {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			c := c
			latest = &c
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func applyCallUpdate(c *domain.Call, upd domain.CallUpdate) {
	c.Status = upd.Status
	if upd.StartTime != nil {
		c.StartTime = upd.StartTime
	}
	if upd.Duration != nil {
		c.Duration = upd.Duration
	}
	if upd.EndedAt != nil {
		c.EndedAt = upd.EndedAt
	}
	if upd.Status.Terminal() {
		c.ActivePair = ""
	}
	c.UpdatedAt = upd.At
}

func statusIn(s domain.CallStatus, set []domain.CallStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func (s *MemoryStore) TransitionCall(_ context.Context, id string, from []domain.CallStatus, upd domain.CallUpdate) (*domain.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !statusIn(c.Status, from) {
		return nil, ErrStateChanged
	}
	applyCallUpdate(&c, upd)
	s.calls[id] = c
	return &c, nil
}

func (s *MemoryStore) missWhere(at time.Time, match func(domain.Call) bool) []domain.Call {
	out := []domain.Call{}
	for id, c := range s.calls {
		if c.Status.Terminal() || !match(c) {
			continue
		}
		endedAt := at
		applyCallUpdate(&c, domain.CallUpdate{Status: domain.CallMissed, EndedAt: &endedAt, At: at})
		s.calls[id] = c
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *MemoryStore) MissStaleCalls(_ context.Context, createdBefore, at time.Time) ([]domain.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missWhere(at, func(c domain.Call) bool { return c.CreatedAt.Before(createdBefore) }), nil
}

func (s *MemoryStore) MissActiveCallsFor(_ context.Context, userID string, at time.Time) ([]domain.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missWhere(at, func(c domain.Call) bool { return c.Involves(userID) }), nil
}

func (s *MemoryStore) ListCalls(_ context.Context, userID string, limit int) ([]domain.Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Call{}
	for _, c := range s.calls {
		if c.Involves(userID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
