package ice

import "errors"

var ErrPartialTURNConfig = errors.New("turn url configured without username/password")

// Config carries the STUN/TURN endpoints published to clients. The gateway
// never talks to these servers itself.
type Config struct {
	StunURL      string
	TurnURL      string
	TurnUsername string
	TurnPassword string
}

// Server is one entry of the iceServers array handed to RTCPeerConnection.
type Server struct {
	URLs       string `json:"urls"`
	Username   string `json:"username,omitempty"`
	Credential string `json:"credential,omitempty"`
}

// Validate rejects a half-configured TURN entry at startup instead of
// silently publishing a relay clients cannot authenticate against.
func (c Config) Validate() error {
	if c.TurnURL != "" && (c.TurnUsername == "" || c.TurnPassword == "") {
		return ErrPartialTURNConfig
	}
	return nil
}

// Servers assembles the client-facing list. The TURN entry is included only
// when fully configured.
func (c Config) Servers() []Server {
	servers := make([]Server, 0, 2)

	if c.StunURL != "" {
		servers = append(servers, Server{URLs: c.StunURL})
	}

	if c.TurnURL != "" && c.TurnUsername != "" && c.TurnPassword != "" {
		servers = append(servers, Server{
			URLs:       c.TurnURL,
			Username:   c.TurnUsername,
			Credential: c.TurnPassword,
		})
	}

	return servers
}
