package domain

import "time"

type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestRejected FriendRequestStatus = "rejected"
	FriendRequestCanceled FriendRequestStatus = "canceled"
)

// Terminal statuses are write-once.
func (s FriendRequestStatus) Terminal() bool {
	return s == FriendRequestAccepted || s == FriendRequestRejected || s == FriendRequestCanceled
}

type FriendRequest struct {
	ID         string              `bson:"_id" json:"id"`
	SenderID   string              `bson:"sender_id" json:"senderId"`
	ReceiverID string              `bson:"receiver_id" json:"receiverId"`
	Status     FriendRequestStatus `bson:"status" json:"status"`
	// PendingPair is set only while the request is pending; a sparse unique
	// index on it keeps one pending request per pair.
	PendingPair string    `bson:"pending_pair,omitempty" json:"-"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updatedAt"`
}

// Involves reports whether userID is the sender or the receiver.
func (r *FriendRequest) Involves(userID string) bool {
	return r.SenderID == userID || r.ReceiverID == userID
}

// Friendship is stored with UserA < UserB.
type Friendship struct {
	ID        string    `bson:"_id" json:"id"`
	UserA     string    `bson:"user_a" json:"userA"`
	UserB     string    `bson:"user_b" json:"userB"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

func NewFriendship(id, a, b string, at time.Time) *Friendship {
	f := &Friendship{ID: id, UserA: a, UserB: b, CreatedAt: at}
	f.EnsureCanonicalOrder()
	return f
}

func (f *Friendship) EnsureCanonicalOrder() {
	if f.UserA > f.UserB {
		f.UserA, f.UserB = f.UserB, f.UserA
	}
}

// Other returns the friend of userID in f.
func (f *Friendship) Other(userID string) string {
	if f.UserA == userID {
		return f.UserB
	}
	return f.UserA
}

// PairKey identifies an unordered pair of users.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}
