package chat

// Presence fans room and call membership changes out to the affected
// connections. It holds no state; callers pass the snapshots the stores
// returned, so no lock is held across a send.
//
// Person-specific announcements (user-joined, user-left, call-ended) exclude
// the actor; list refreshes (user-list) reach everyone including the actor.
type Presence struct {
	sender Sender
}

func NewPresence(sender Sender) *Presence {
	return &Presence{sender: sender}
}

// MemberJoined announces a join to the other members and refreshes the
// member list for everyone, the joiner included.
func (p *Presence) MemberJoined(members []Member, joined Member) {
	for _, m := range members {
		if m.connID != joined.connID {
			p.sender.Send(m.connID, EventUserJoined, joined.Username)
		}
	}
	p.Broadcast(members, EventUserList, members)
}

// MemberLeft announces a leave to the remaining members and refreshes their
// member list.
func (p *Presence) MemberLeft(remaining []Member, left Member) {
	for _, m := range remaining {
		p.sender.Send(m.connID, EventUserLeft, left.Username)
	}
	p.Broadcast(remaining, EventUserList, remaining)
}

// CallParticipantJoined notifies each existing participant individually that
// a new participant joined. Targeted unicast, never a room broadcast.
func (p *Presence) CallParticipantJoined(existing []Participant, joined Participant) {
	for _, part := range existing {
		p.sender.Send(part.ID, EventUserJoinedCall, UserJoinedCall{
			Username: joined.Username,
			UserID:   joined.ID,
		})
	}
}

// CallParticipantLeft notifies the remaining participants individually.
func (p *Presence) CallParticipantLeft(remaining []Participant, leftName string) {
	for _, part := range remaining {
		p.sender.Send(part.ID, EventUserLeftCall, leftName)
	}
}

// CallEnded tells the whole room, except the departing connection, that the
// shared call is over.
func (p *Presence) CallEnded(members []Member, actorConnID, actorName string) {
	for _, m := range members {
		if m.connID != actorConnID {
			p.sender.Send(m.connID, EventCallEnded, actorName)
		}
	}
}

// Broadcast sends one event to every member in the list.
func (p *Presence) Broadcast(members []Member, event string, data any) {
	for _, m := range members {
		p.sender.Send(m.connID, event, data)
	}
}

// BroadcastExcept sends one event to every member except connID.
func (p *Presence) BroadcastExcept(members []Member, connID, event string, data any) {
	for _, m := range members {
		if m.connID != connID {
			p.sender.Send(m.connID, event, data)
		}
	}
}
