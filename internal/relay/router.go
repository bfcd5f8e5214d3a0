package relay

import (
	"log/slog"
)

// Router validates inbound signaling envelopes and fans them out to the
// sender's room. It never inspects the payload.
type Router struct {
	registry *Registry
	logger   *slog.Logger
}

func NewRouter(registry *Registry, logger *slog.Logger) *Router {
	return &Router{
		registry: registry,
		logger:   logger.With("component", "router"),
	}
}

// Route delivers the envelope to every other member of the sender's room.
// The sender never receives its own message back. Envelopes are relayed from
// the sender's read goroutine into each recipient's ordered send queue, so
// messages from one sender reach each recipient in the order sent.
func (r *Router) Route(sender *Conn, env *Envelope) error {
	if !env.relayable() {
		return ErrInvalidMessage
	}

	if sender.State() != StateActive || sender.Room() == "" {
		return ErrNotInRoom
	}

	out := &Envelope{
		Type:     env.Type,
		Identity: sender.Identity(),
		Payload:  env.Payload,
	}

	for _, peer := range r.registry.Members(sender.Room()) {
		if peer.ID() == sender.ID() {
			continue
		}
		peer.enqueue(out)
	}

	return nil
}
