package events

// Outbound event names. They are part of the client compatibility surface.
const (
	FriendRequestReceived  = "friendRequest"
	FriendRequestSent      = "friendRequestSent"
	FriendRequestAccepted  = "friendRequestAccepted"
	FriendRequestRejected  = "friendRequestRejected"
	FriendRequestCancelled = "friendRequestCancelled"
	Unfriended             = "unfriended"

	ReceiveMessage         = "receiveMessage"
	MessagesRead           = "messagesRead"
	MessageUpdated         = "messageUpdated"
	MessageDeleted         = "messageDeleted"
	MessageReaction        = "messageReaction"
	MessageReactionRemoved = "messageReactionRemoved"
	UserTyping             = "userTyping"
	UserStoppedTyping      = "userStoppedTyping"
	MessageThread          = "messageThread"

	IncomingCall  = "incoming-call"
	CallInitiated = "call-initiated"
	AcceptCall    = "accept-call"
	RejectCall    = "reject-call"
	EndCall       = "end-call"
	CallUpdated   = "call-updated"

	UserStatus = "userStatus"
)

// Error event families, one per domain.
const (
	ScopeGeneral       = "error"
	ScopeCall          = "call-error"
	ScopeFriendRequest = "friendRequestError"
)

// Inbound event names sent by clients.
const (
	InJoin                = "join"
	InSendFriendRequest   = "sendFriendRequest"
	InAcceptFriendRequest = "acceptFriendRequest"
	InRejectFriendRequest = "rejectFriendRequest"
	InCancelFriendRequest = "cancelFriendRequest"
	InUnfriend            = "unfriend"
	InSendMessage         = "sendMessage"
	InFetchMessages       = "fetchMessages"
	InMarkMessagesRead    = "markMessagesRead"
	InEditMessage         = "editMessage"
	InDeleteMessage       = "deleteMessage"
	InAddReaction         = "addReaction"
	InRemoveReaction      = "removeReaction"
	InTyping              = "typing"
	InStopTyping          = "stopTyping"
	InCallUser            = "call-user"
	InAcceptCall          = "accept-call"
	InRejectCall          = "reject-call"
	InEndCall             = "end-call"
)
