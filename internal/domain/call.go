package domain

import "time"

type CallType string

const (
	CallAudio CallType = "audio"
	CallVideo CallType = "video"
)

func (t CallType) Valid() bool { return t == CallAudio || t == CallVideo }

type CallStatus string

// "connected" is only observed by clients; the stored status stays incoming.
const (
	CallOutgoing CallStatus = "outgoing"
	CallIncoming CallStatus = "incoming"
	CallMissed   CallStatus = "missed"
	CallEnded    CallStatus = "ended"
)

func (s CallStatus) Terminal() bool { return s == CallMissed || s == CallEnded }

// ActiveCallStatuses are the statuses a call can leave.
var ActiveCallStatuses = []CallStatus{CallOutgoing, CallIncoming}

type Call struct {
	ID         string     `bson:"_id" json:"id"`
	CallerID   string     `bson:"caller_id" json:"callerId"`
	ReceiverID string     `bson:"receiver_id" json:"receiverId"`
	CallType   CallType   `bson:"call_type" json:"callType"`
	Status     CallStatus `bson:"status" json:"status"`
	StartTime  *time.Time `bson:"start_time,omitempty" json:"startTime,omitempty"`
	// Duration is whole seconds, set when the call ends.
	Duration *int64     `bson:"duration,omitempty" json:"duration"`
	EndedAt  *time.Time `bson:"ended_at,omitempty" json:"endedAt,omitempty"`
	// ActivePair is present only while the call is non-terminal.
	ActivePair string    `bson:"active_pair,omitempty" json:"-"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updatedAt"`
}

func (c *Call) Involves(userID string) bool {
	return c.CallerID == userID || c.ReceiverID == userID
}

// Other returns the party of c that is not userID.
func (c *Call) Other(userID string) string {
	if c.CallerID == userID {
		return c.ReceiverID
	}
	return c.CallerID
}

// CallUpdate carries the fields a status transition writes.
type CallUpdate struct {
	Status    CallStatus
	StartTime *time.Time
	Duration  *int64
	EndedAt   *time.Time
	At        time.Time
}
