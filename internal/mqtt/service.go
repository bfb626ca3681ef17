package mqtt

import (
	"fmt"
	"log"
)

// Service is the downstream side of a target: it announces its presence
// with a retained status message and listens on one data topic.
type Service struct {
	Name      string
	transport Transport
	topics    Topics
}

// NewService binds name to an established transport.
func NewService(name string, t Transport, topics Topics) *Service {
	return &Service{Name: name, transport: t, topics: topics}
}

// Will returns the last-will message for a service, to be passed to Dial
// so the broker marks it offline if the process dies.
func Will(topics Topics, name string) *Message {
	return &Message{
		Topic:    topics.Status(name),
		Payload:  []byte(PayloadOffline),
		QoS:      1,
		Retained: true,
	}
}

// Announce publishes the retained online status.
func (s *Service) Announce() error {
	err := s.transport.Publish(Message{
		Topic:    s.topics.Status(s.Name),
		Payload:  []byte(PayloadOnline),
		QoS:      1,
		Retained: true,
	})
	if err != nil {
		return fmt.Errorf("%s: announce: %w", s.Name, err)
	}
	log.Printf("%s: online", s.Name)
	return nil
}

// Listen subscribes h to the service's data topic.
func (s *Service) Listen(h Handler) error {
	topic := s.topics.For(s.Name)
	if topic == "" {
		return fmt.Errorf("%s: no data topic for service", s.Name)
	}
	if err := s.transport.Subscribe(topic, h); err != nil {
		return fmt.Errorf("%s: listen: %w", s.Name, err)
	}
	log.Printf("%s: listening on %s", s.Name, topic)
	return nil
}

// Close publishes the retained offline status and disconnects.
func (s *Service) Close() error {
	err := s.transport.Publish(Message{
		Topic:    s.topics.Status(s.Name),
		Payload:  []byte(PayloadOffline),
		QoS:      1,
		Retained: true,
	})
	if cerr := s.transport.Close(); err == nil {
		err = cerr
	}
	return err
}
