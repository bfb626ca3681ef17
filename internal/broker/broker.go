// Package broker runs an embedded MQTT broker so a single host can serve
// the analyzer and its downstream services without external infrastructure.
package broker

import (
	"fmt"
	"log"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":1883"

// Server is an embedded broker with one TCP listener and no authentication.
type Server struct {
	Addr string
	srv  *mochi.Server
}

// New prepares a broker listening on addr. Call Serve to start it.
func New(addr string) (*Server, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := mochi.New(nil)
	if err := srv.AddHook(&auth.AllowHook{}, nil); err != nil {
		return nil, fmt.Errorf("broker: add auth hook: %w", err)
	}
	tcp := listeners.NewTCP(listeners.Config{Type: "tcp", ID: "tcp", Address: addr})
	if err := srv.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("broker: listen %s: %w", addr, err)
	}
	return &Server{Addr: addr, srv: srv}, nil
}

// Serve starts accepting connections and returns immediately.
func (s *Server) Serve() error {
	if err := s.srv.Serve(); err != nil {
		return fmt.Errorf("broker: serve: %w", err)
	}
	log.Printf("broker: listening on %s", s.Addr)
	return nil
}

// Close stops the listener and disconnects every client.
func (s *Server) Close() error {
	if err := s.srv.Close(); err != nil {
		return fmt.Errorf("broker: close: %w", err)
	}
	return nil
}
