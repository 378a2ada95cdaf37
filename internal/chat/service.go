package chat

import (
	"errors"
	"log/slog"
	"time"
)

var (
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidInvite = errors.New("invalid invite token")
)

// InviteVerifier checks a signed invite token and returns the room it grants
// access to.
type InviteVerifier interface {
	VerifyInvite(token string) (roomName string, err error)
}

// CallNotifier is told about started calls so out-of-band notifications
// (web push) can go out. Best effort; failures never affect the call.
type CallNotifier interface {
	CallStarted(roomName, starter string, isVideo bool)
}

// Options wires a Service. Sender and NewCredential are required; Invites
// and Notifier are optional.
type Options struct {
	Sender        Sender
	NewCredential func(password string) (Credential, error)
	Invites       InviteVerifier
	Notifier      CallNotifier
	MaxRooms      int
	NowFn         func() time.Time
	Logger        *slog.Logger
}

// Service ties the stores together and applies one connection event at a
// time: validate against the registry, mutate state, then notify through the
// presence broadcaster or the relay. Stores lock internally and hand out
// snapshots, so no send ever happens under a lock.
type Service struct {
	registry *Registry
	rooms    *Rooms
	colors   *ColorTable
	calls    *Calls
	relay    *Relay
	presence *Presence

	sender        Sender
	newCredential func(string) (Credential, error)
	invites       InviteVerifier
	notifier      CallNotifier
	nowFn         func() time.Time
	logger        *slog.Logger
}

func NewService(opts Options) *Service {
	if opts.NowFn == nil {
		opts.NowFn = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	registry := NewRegistry()
	s := &Service{
		registry:      registry,
		rooms:         NewRooms(opts.MaxRooms),
		colors:        NewColorTable(),
		calls:         NewCalls(),
		relay:         NewRelay(registry, opts.Sender, opts.Logger),
		presence:      NewPresence(opts.Sender),
		sender:        opts.Sender,
		newCredential: opts.NewCredential,
		invites:       opts.Invites,
		notifier:      opts.Notifier,
		nowFn:         opts.NowFn,
		logger:        opts.Logger,
	}
	return s
}

// Registry exposes the connection registry for read-side callers.
func (s *Service) Registry() *Registry { return s.registry }

// Connect registers a freshly opened connection.
func (s *Service) Connect(connID string) {
	s.registry.Register(connID)
	s.logger.Debug("connection opened", "conn_id", connID)
}

// Disconnect runs the full cleanup for a closed channel: implicit end-call,
// room leave, then registry release. The order guarantees no stale
// participant reference survives and that announcements still resolve the
// display name.
func (s *Service) Disconnect(connID string) {
	id, err := s.registry.Resolve(connID)
	if err != nil {
		return
	}

	if id.Room != "" {
		s.leaveCall(id)
		s.leaveRoom(id)
	}
	s.registry.Release(connID)
	s.logger.Debug("connection closed", "conn_id", connID, "room", id.Room)
}

// CreateRoom makes a new empty room and replies room-created.
func (s *Service) CreateRoom(connID string, req CreateRoomRequest) error {
	if req.RoomName == "" || req.Password == "" {
		return ErrMissingField
	}

	secret, err := s.newCredential(req.Password)
	if err != nil {
		return err
	}
	if err := s.rooms.Create(req.RoomName, secret); err != nil {
		return err
	}

	s.logger.Info("room created", "room", req.RoomName)
	s.sender.Send(connID, EventRoomCreated, req.RoomName)
	return nil
}

// JoinRoom validates the credential (or invite token), binds the connection,
// appends the member and announces the join. Nothing is mutated before all
// validation has passed.
func (s *Service) JoinRoom(connID string, req JoinRoomRequest) error {
	if req.RoomName == "" || req.Username == "" {
		return ErrMissingField
	}

	id, err := s.registry.Resolve(connID)
	if err != nil {
		return err
	}
	if id.Room != "" {
		return ErrAlreadyBound
	}

	trusted := false
	if req.InviteToken != "" {
		if s.invites == nil {
			return ErrInvalidInvite
		}
		room, err := s.invites.VerifyInvite(req.InviteToken)
		if err != nil || room != req.RoomName {
			return ErrInvalidInvite
		}
		trusted = true
	}

	// The color is assigned inside the join callback so a rejected credential
	// never consumes a palette slot.
	member, members, err := s.rooms.Join(req.RoomName, req.Password, trusted, func() Member {
		return Member{Username: req.Username, Color: s.colors.Assign(req.Username), connID: connID}
	})
	if err != nil {
		return err
	}
	if err := s.registry.Bind(connID, req.Username, req.RoomName, member.Color); err != nil {
		// Should not happen for a single-threaded connection; undo the append.
		s.rooms.Leave(req.RoomName, connID)
		return err
	}

	s.logger.Info("user joined room", "room", req.RoomName, "username", req.Username)
	s.sender.Send(connID, EventJoinSuccess, JoinSuccess{RoomName: req.RoomName, UserColor: member.Color})
	s.presence.MemberJoined(members, member)
	return nil
}

// SendMessage broadcasts a chat or image message into the sender's room.
func (s *Service) SendMessage(connID string, req SendMessageRequest) error {
	id, err := s.registry.Resolve(connID)
	if err != nil {
		return err
	}
	if id.Room == "" {
		return ErrNotInRoom
	}

	msgType := req.Type
	if msgType == "" {
		msgType = "text"
	}
	msg := Message{
		Username:  id.Username,
		UserColor: id.Color,
		Timestamp: s.timestamp(),
		Type:      msgType,
	}
	if msgType == "image" {
		msg.ImageData = req.ImageData
	} else {
		msg.Message = req.Message
	}

	members, err := s.rooms.Members(id.Room)
	if err != nil {
		return err
	}
	s.presence.Broadcast(members, EventNewMessage, msg)
	return nil
}

// ListRooms replies with the room names in creation order.
func (s *Service) ListRooms(connID string) {
	s.sender.Send(connID, EventRoomsList, s.rooms.Names())
}

// RoomNames is the REST-side view of the directory.
func (s *Service) RoomNames() []string {
	return s.rooms.Names()
}

// CheckRoomCredential verifies a password for an existing room without
// joining it. Used when minting invite tokens.
func (s *Service) CheckRoomCredential(name, password string) error {
	return s.rooms.CheckCredential(name, password)
}

// StartCall opens a call session in the caller's room and announces it in
// the room's message stream. A session already active in the room is
// replaced, not queued.
func (s *Service) StartCall(connID string, isVideo bool) error {
	id, err := s.registry.Resolve(connID)
	if err != nil {
		return err
	}
	if id.Room == "" {
		return ErrNotInRoom
	}

	kind := kindOf(isVideo)
	starter := Participant{Username: id.Username, ID: connID}
	if replaced := s.calls.Start(id.Room, starter, kind); replaced {
		s.logger.Warn("active call replaced", "room", id.Room, "starter", id.Username)
	}

	callType := "voice"
	if isVideo {
		callType = "video"
	}
	announcement := Message{
		Type:      "group-call",
		CallType:  callType,
		Starter:   id.Username,
		Timestamp: s.timestamp(),
		IsActive:  true,
	}

	members, err := s.rooms.Members(id.Room)
	if err != nil {
		return err
	}
	s.presence.Broadcast(members, EventNewMessage, announcement)
	s.sender.Send(connID, EventCallStarted, CallStarted{IsVideo: isVideo})

	s.logger.Info("call started", "room", id.Room, "starter", id.Username, "kind", kind)
	if s.notifier != nil {
		go s.notifier.CallStarted(id.Room, id.Username, isVideo)
	}
	return nil
}

// JoinCall adds the connection to the room's active session. Existing
// participants each get a targeted user-joined-call; the joiner gets the
// list of everyone already in the call so it can dial each of them.
func (s *Service) JoinCall(connID string) error {
	id, err := s.registry.Resolve(connID)
	if err != nil {
		return err
	}
	if id.Room == "" {
		return ErrNotInRoom
	}

	joiner := Participant{Username: id.Username, ID: connID}
	others, kind, err := s.calls.Join(id.Room, joiner)
	if err != nil {
		return err
	}

	s.presence.CallParticipantJoined(others, joiner)
	s.sender.Send(connID, EventCallParts, CallParticipants{Participants: others, IsVideo: kind.IsVideo()})
	s.sender.Send(connID, EventJoinedCall, JoinedCall{IsVideo: kind.IsVideo()})

	s.logger.Info("user joined call", "room", id.Room, "username", id.Username)
	return nil
}

// EndCall removes the connection from its call session. The last participant
// leaving ends the call for the whole room.
func (s *Service) EndCall(connID string) error {
	id, err := s.registry.Resolve(connID)
	if err != nil {
		return err
	}
	if id.Room == "" {
		return ErrNotInRoom
	}
	if !s.leaveCall(id) {
		return ErrNoActiveCall
	}
	return nil
}

// RelayOffer forwards an offer payload to the target connection.
func (s *Service) RelayOffer(connID string, sig OfferSignal) {
	s.relay.Offer(connID, sig.TargetID, sig.Offer)
}

// RelayAnswer forwards an answer payload to the target connection.
func (s *Service) RelayAnswer(connID string, sig AnswerSignal) {
	s.relay.Answer(connID, sig.TargetID, sig.Answer)
}

// RelayICECandidate forwards an ICE candidate to the target connection.
func (s *Service) RelayICECandidate(connID string, sig CandidateSignal) {
	s.relay.ICECandidate(connID, sig.TargetID, sig.Candidate)
}

// leaveCall removes id from its room's call session and emits the membership
// notifications: targeted user-left-call while the call continues, room-wide
// call-ended when the leaver was the last participant.
func (s *Service) leaveCall(id Identity) bool {
	remaining, ended, wasParticipant := s.calls.Leave(id.Room, id.ConnID)
	if !wasParticipant {
		return false
	}

	if ended {
		members, err := s.rooms.Members(id.Room)
		if err == nil {
			s.presence.CallEnded(members, id.ConnID, id.Username)
		}
		s.logger.Info("call ended", "room", id.Room, "last_participant", id.Username)
		return true
	}

	s.presence.CallParticipantLeft(remaining, id.Username)
	return true
}

// leaveRoom removes id's member record, announces the leave and deletes the
// room once empty.
func (s *Service) leaveRoom(id Identity) {
	removed, remaining, deleted, err := s.rooms.Leave(id.Room, id.ConnID)
	if err != nil {
		return
	}
	if removed.connID == "" {
		return
	}

	if deleted {
		// Room is gone; make sure no orphaned session lingers.
		s.calls.Drop(id.Room)
		s.logger.Info("room deleted", "room", id.Room)
		return
	}
	s.presence.MemberLeft(remaining, removed)
}

func (s *Service) timestamp() string {
	return s.nowFn().Format("3:04:05 PM")
}
