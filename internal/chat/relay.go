package chat

import (
	"encoding/json"
	"log/slog"
)

// Relay forwards WebRTC negotiation payloads between two connections. It is
// stateless and fire-and-forget: an unknown target is a silent no-op, and the
// payload is never inspected. The negotiating endpoints own retries and
// validation.
type Relay struct {
	registry *Registry
	sender   Sender
	logger   *slog.Logger
}

func NewRelay(registry *Registry, sender Sender, logger *slog.Logger) *Relay {
	return &Relay{
		registry: registry,
		sender:   sender,
		logger:   logger,
	}
}

func (r *Relay) Offer(senderID, targetID string, offer json.RawMessage) {
	r.forward(senderID, targetID, EventWebRTCOffer, OfferSignal{Offer: offer, SenderID: senderID})
}

func (r *Relay) Answer(senderID, targetID string, answer json.RawMessage) {
	r.forward(senderID, targetID, EventWebRTCAnswer, AnswerSignal{Answer: answer, SenderID: senderID})
}

func (r *Relay) ICECandidate(senderID, targetID string, candidate json.RawMessage) {
	r.forward(senderID, targetID, EventWebRTCCandidate, CandidateSignal{Candidate: candidate, SenderID: senderID})
}

func (r *Relay) forward(senderID, targetID, event string, payload any) {
	if _, err := r.registry.Resolve(targetID); err != nil {
		// Target is gone; the originating peer simply never hears back.
		r.logger.Debug("signal dropped", "type", event, "from", senderID, "to", targetID)
		return
	}
	if !r.sender.Send(targetID, event, payload) {
		r.logger.Debug("signal not delivered", "type", event, "from", senderID, "to", targetID)
	}
}
