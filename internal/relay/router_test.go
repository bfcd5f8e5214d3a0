package relay

import (
	"encoding/json"
	"errors"
	"testing"
)

func newActiveConn(t *testing.T, r *Registry, identity, room string) *Conn {
	t.Helper()
	c := newTestConn(identity, room)
	c.setState(StateAuthorized)
	r.Join(room, c)
	c.setState(StateActive)
	drain(c)
	return c
}

func TestRouter_FanOutSkipsSender(t *testing.T) {
	registry := NewRegistry(nil, discardLogger())
	router := NewRouter(registry, discardLogger())

	a := newActiveConn(t, registry, "u1", "r1")
	b := newActiveConn(t, registry, "u2", "r1")
	c := newActiveConn(t, registry, "u3", "r1")
	drain(a)
	drain(b)

	payload := json.RawMessage(`"sdp-blob"`)
	if err := router.Route(b, &Envelope{Type: MessageTypeOffer, Payload: payload}); err != nil {
		t.Fatalf("Route failed: %v", err)
	}

	for _, peer := range []*Conn{a, c} {
		got := drain(peer)
		if len(got) != 1 {
			t.Fatalf("%s: expected 1 message, got %d", peer.Identity(), len(got))
		}
		if got[0].Type != MessageTypeOffer || got[0].Identity != "u2" || string(got[0].Payload) != `"sdp-blob"` {
			t.Errorf("%s: message altered in transit: %+v", peer.Identity(), got[0])
		}
	}

	if got := drain(b); len(got) != 0 {
		t.Errorf("sender should never receive its own message, got %d", len(got))
	}
}

func TestRouter_NeverCrossesRooms(t *testing.T) {
	registry := NewRegistry(nil, discardLogger())
	router := NewRouter(registry, discardLogger())

	a := newActiveConn(t, registry, "u1", "r1")
	b := newActiveConn(t, registry, "u2", "r2")
	drain(a)

	if err := router.Route(a, &Envelope{Type: MessageTypeICECandidate}); err != nil {
		t.Fatalf("Route failed: %v", err)
	}

	if got := drain(b); len(got) != 0 {
		t.Errorf("message leaked across rooms: %+v", got)
	}
}

func TestRouter_PerSenderFIFO(t *testing.T) {
	registry := NewRegistry(nil, discardLogger())
	router := NewRouter(registry, discardLogger())

	a := newActiveConn(t, registry, "u1", "r1")
	b := newActiveConn(t, registry, "u2", "r1")
	drain(a)

	for i := 0; i < 10; i++ {
		payload, _ := json.Marshal(i)
		if err := router.Route(a, &Envelope{Type: MessageTypeICECandidate, Payload: payload}); err != nil {
			t.Fatalf("Route failed: %v", err)
		}
	}

	got := drain(b)
	if len(got) != 10 {
		t.Fatalf("expected 10 messages, got %d", len(got))
	}
	for i, env := range got {
		var n int
		if err := json.Unmarshal(env.Payload, &n); err != nil || n != i {
			t.Fatalf("message %d out of order: payload %s", i, env.Payload)
		}
	}
}

func TestRouter_RejectsInvalidMessages(t *testing.T) {
	registry := NewRegistry(nil, discardLogger())
	router := NewRouter(registry, discardLogger())

	active := newActiveConn(t, registry, "u1", "r1")

	tests := []struct {
		name    string
		sender  *Conn
		env     *Envelope
		wantErr error
	}{
		{
			name:    "unknown type",
			sender:  active,
			env:     &Envelope{Type: "subscribe"},
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "server-originated type from client",
			sender:  active,
			env:     &Envelope{Type: MessageTypePeerJoined},
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "sender not active",
			sender:  newTestConn("u2", "r1"),
			env:     &Envelope{Type: MessageTypeOffer},
			wantErr: ErrNotInRoom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := router.Route(tt.sender, tt.env); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
