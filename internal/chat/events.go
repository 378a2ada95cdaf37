package chat

import "encoding/json"

// Inbound event names (client to server).
const (
	EventCreateRoom      = "create-room"
	EventJoinRoom        = "join-room"
	EventSendMessage     = "send-message"
	EventGetRooms        = "get-rooms"
	EventStartCall       = "start-call"
	EventJoinCall        = "join-call"
	EventEndCall         = "end-call"
	EventWebRTCOffer     = "webrtc-offer"
	EventWebRTCAnswer    = "webrtc-answer"
	EventWebRTCCandidate = "webrtc-ice-candidate"
)

// Outbound event names (server to client).
const (
	EventRoomCreated    = "room-created"
	EventRoomError      = "room-error"
	EventJoinSuccess    = "join-success"
	EventJoinError      = "join-error"
	EventRoomsList      = "rooms-list"
	EventNewMessage     = "new-message"
	EventUserJoined     = "user-joined"
	EventUserLeft       = "user-left"
	EventUserList       = "user-list"
	EventCallStarted    = "call-started"
	EventCallParts      = "call-participants"
	EventJoinedCall     = "joined-call"
	EventUserJoinedCall = "user-joined-call"
	EventUserLeftCall   = "user-left-call"
	EventCallEnded      = "call-ended"
)

// Envelope is the wire frame for every event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Sender delivers one event to one connection. Implementations must not
// block: a stalled connection may drop the event and report false. The core
// never calls Send while holding a state lock.
type Sender interface {
	Send(connID, event string, data any) bool
}

type CreateRoomRequest struct {
	RoomName string `json:"roomName"`
	Password string `json:"password"`
}

type JoinRoomRequest struct {
	RoomName    string `json:"roomName"`
	Password    string `json:"password"`
	Username    string `json:"username"`
	InviteToken string `json:"inviteToken,omitempty"`
}

type JoinSuccess struct {
	RoomName  string `json:"roomName"`
	UserColor string `json:"userColor"`
}

type SendMessageRequest struct {
	Message   string `json:"message,omitempty"`
	Type      string `json:"type,omitempty"`
	ImageData string `json:"imageData,omitempty"`
}

// Message is the new-message payload. Regular chat messages fill
// Username/UserColor and either Message or ImageData; call announcements use
// the group-call type with CallType/Starter/IsActive.
type Message struct {
	Username  string `json:"username,omitempty"`
	UserColor string `json:"userColor,omitempty"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Message   string `json:"message,omitempty"`
	ImageData string `json:"imageData,omitempty"`
	CallType  string `json:"callType,omitempty"`
	Starter   string `json:"starter,omitempty"`
	IsActive  bool   `json:"isActive,omitempty"`
}

type StartCallRequest struct {
	IsVideo bool `json:"isVideo"`
}

type CallStarted struct {
	IsVideo bool `json:"isVideo"`
}

type JoinedCall struct {
	IsVideo bool `json:"isVideo"`
}

type CallParticipants struct {
	Participants []Participant `json:"participants"`
	IsVideo      bool          `json:"isVideo"`
}

type UserJoinedCall struct {
	Username string `json:"username"`
	UserID   string `json:"userId"`
}

// OfferSignal doubles as the inbound webrtc-offer request (TargetID set) and
// the forwarded copy (SenderID set). Answer and candidate signals mirror it.
type OfferSignal struct {
	Offer    json.RawMessage `json:"offer"`
	TargetID string          `json:"targetId,omitempty"`
	SenderID string          `json:"senderId,omitempty"`
}

type AnswerSignal struct {
	Answer   json.RawMessage `json:"answer"`
	TargetID string          `json:"targetId,omitempty"`
	SenderID string          `json:"senderId,omitempty"`
}

type CandidateSignal struct {
	Candidate json.RawMessage `json:"candidate"`
	TargetID  string          `json:"targetId,omitempty"`
	SenderID  string          `json:"senderId,omitempty"`
}
