package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Defaults for Dial.
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultPublishTimeout = 5 * time.Second
	DefaultReplayCapacity = 100
	DefaultOutboxCapacity = 64
)

// Options configures a broker connection.
type Options struct {
	Broker string

	// ClientID is a stable prefix; a random suffix keeps concurrent
	// processes from kicking each other off the broker.
	ClientID string

	// Will, if set, is published by the broker when the connection drops.
	Will *Message

	// OnConnect runs after every successful (re)connection, after
	// subscriptions are restored and the replay buffer is flushed.
	OnConnect func()

	ConnectTimeout time.Duration
	PublishTimeout time.Duration
	ReplayCapacity int

	// OutboxCapacity bounds sends queued behind a slow broker.
	OutboxCapacity int
}

// RealTransport is a Transport backed by an actual MQTT broker.
type RealTransport struct {
	client         paho.Client
	publishTimeout time.Duration

	mu     sync.Mutex
	subs   map[string]Handler
	replay *replayBuffer
	outbox *outbox
}

// Dial connects to the broker and returns once the session is established.
// An unreachable broker is an error; it is not retried here.
func Dial(opts Options) (*RealTransport, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = DefaultPublishTimeout
	}
	if opts.ReplayCapacity <= 0 {
		opts.ReplayCapacity = DefaultReplayCapacity
	}
	if opts.OutboxCapacity <= 0 {
		opts.OutboxCapacity = DefaultOutboxCapacity
	}

	t := &RealTransport{
		publishTimeout: opts.PublishTimeout,
		subs:           make(map[string]Handler),
		replay:         newReplayBuffer(opts.ReplayCapacity),
	}

	po := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(clientID(opts.ClientID)).
		SetAutoReconnect(true).
		SetConnectRetry(false).
		SetConnectTimeout(opts.ConnectTimeout).
		SetMaxReconnectInterval(30 * time.Second).
		SetOrderMatters(false)

	if opts.Will != nil {
		po.SetBinaryWill(opts.Will.Topic, opts.Will.Payload, opts.Will.QoS, opts.Will.Retained)
	}

	po.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Printf("mqtt: connection lost: %v", err)
	})
	po.SetOnConnectHandler(func(c paho.Client) {
		t.restore(c)
		if opts.OnConnect != nil {
			opts.OnConnect()
		}
	})

	t.client = paho.NewClient(po)
	token := t.client.Connect()
	if !token.WaitTimeout(opts.ConnectTimeout + time.Second) {
		t.client.Disconnect(0)
		return nil, fmt.Errorf("connect to %s: timeout", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", opts.Broker, err)
	}
	t.outbox = newOutbox(opts.OutboxCapacity, t.Publish)
	return t, nil
}

func clientID(prefix string) string {
	if prefix == "" {
		prefix = "home-safety"
	}
	return prefix + "-" + uuid.NewString()[:8]
}

// restore re-subscribes and flushes messages buffered while disconnected.
// Runs on paho's connect callback goroutine.
func (t *RealTransport) restore(c paho.Client) {
	t.mu.Lock()
	subs := make(map[string]Handler, len(t.subs))
	for topic, h := range t.subs {
		subs[topic] = h
	}
	pending := t.replay.drainAll()
	t.mu.Unlock()

	for topic, h := range subs {
		c.Subscribe(topic, 1, wrap(h))
	}
	if len(pending) > 0 {
		log.Printf("mqtt: replaying %d buffered messages", len(pending))
	}
	for _, m := range pending {
		c.Publish(m.Topic, m.QoS, m.Retained, m.Payload)
	}
}

// Publish sends msg and waits up to the publish timeout. While the
// connection is down, QoS 1+ messages are buffered for replay and nil is
// returned; QoS 0 messages are dropped with an error.
func (t *RealTransport) Publish(msg Message) error {
	if !t.client.IsConnectionOpen() {
		if msg.QoS == 0 {
			return fmt.Errorf("publish %s: not connected", msg.Topic)
		}
		t.mu.Lock()
		t.replay.push(msg)
		t.mu.Unlock()
		return nil
	}

	token := t.client.Publish(msg.Topic, msg.QoS, msg.Retained, msg.Payload)
	if !token.WaitTimeout(t.publishTimeout) {
		return fmt.Errorf("publish %s: timeout", msg.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Topic, err)
	}
	return nil
}

// PublishAsync queues msg on the outbox and returns immediately. The
// outbox publishes in order with Publish semantics, so a stalled broker
// delays only the outbox goroutine.
func (t *RealTransport) PublishAsync(msg Message, done func(error)) {
	t.outbox.push(msg, done)
}

// Subscribe registers h and waits for the broker's SUBACK.
// The subscription is restored after every reconnect.
func (t *RealTransport) Subscribe(topic string, h Handler) error {
	t.mu.Lock()
	t.subs[topic] = h
	t.mu.Unlock()

	token := t.client.Subscribe(topic, 1, wrap(h))
	if !token.WaitTimeout(t.publishTimeout) {
		return fmt.Errorf("subscribe %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

func (t *RealTransport) Unsubscribe(topic string) error {
	t.mu.Lock()
	delete(t.subs, topic)
	t.mu.Unlock()

	token := t.client.Unsubscribe(topic)
	if !token.WaitTimeout(t.publishTimeout) {
		return fmt.Errorf("unsubscribe %s: timeout", topic)
	}
	return token.Error()
}

func (t *RealTransport) IsConnected() bool {
	return t.client.IsConnectionOpen()
}

// Close stops the outbox, then disconnects, allowing 1 second for
// in-flight work.
func (t *RealTransport) Close() error {
	t.outbox.close()
	t.client.Disconnect(1000)
	return nil
}

func wrap(h Handler) paho.MessageHandler {
	return func(_ paho.Client, m paho.Message) {
		h(m.Topic(), m.Payload())
	}
}
