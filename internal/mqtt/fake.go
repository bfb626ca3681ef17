package mqtt

import "sync"

// FakeTransport is an in-memory loopback broker for tests. Publications are
// recorded and delivered synchronously to matching subscriptions; retained
// messages are replayed on Subscribe.
type FakeTransport struct {
	mu sync.Mutex

	// Published contains every message passed to Publish, in order.
	Published []Message

	// Async contains every message passed to PublishAsync, in order.
	Async []Message

	// PublishError, if set, fails Publish and PublishAsync (nothing is recorded).
	PublishError error

	// SubscribeError, if set, is returned by Subscribe.
	SubscribeError error

	// Connected controls the return value of IsConnected.
	Connected bool

	// Closed tracks if Close was called.
	Closed bool

	retained map[string]Message
	subs     map[string]Handler
}

// NewFakeTransport creates a connected FakeTransport.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		Connected: true,
		retained:  make(map[string]Message),
		subs:      make(map[string]Handler),
	}
}

// Publish records msg and delivers it.
func (f *FakeTransport) Publish(msg Message) error {
	f.mu.Lock()
	if f.PublishError != nil {
		err := f.PublishError
		f.mu.Unlock()
		return err
	}
	f.Published = append(f.Published, msg)
	f.mu.Unlock()

	f.deliver(msg)
	return nil
}

// PublishAsync records msg, delivers it and reports the outcome to done
// before returning. PublishError fails it the same way as Publish.
func (f *FakeTransport) PublishAsync(msg Message, done func(error)) {
	f.mu.Lock()
	err := f.PublishError
	if err == nil {
		f.Async = append(f.Async, msg)
	}
	f.mu.Unlock()

	if err == nil {
		f.deliver(msg)
	}
	if done != nil {
		done(err)
	}
}

// Subscribe registers h and replays matching retained messages to it.
func (f *FakeTransport) Subscribe(topic string, h Handler) error {
	f.mu.Lock()
	if f.SubscribeError != nil {
		err := f.SubscribeError
		f.mu.Unlock()
		return err
	}
	f.subs[topic] = h
	var replay []Message
	for _, m := range f.retained {
		if Match(topic, m.Topic) {
			replay = append(replay, m)
		}
	}
	f.mu.Unlock()

	for _, m := range replay {
		h(m.Topic, m.Payload)
	}
	return nil
}

func (f *FakeTransport) Unsubscribe(topic string) error {
	f.mu.Lock()
	delete(f.subs, topic)
	f.mu.Unlock()
	return nil
}

func (f *FakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Close marks the transport closed and disconnected.
func (f *FakeTransport) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.Connected = false
	f.mu.Unlock()
	return nil
}

// Retain stores msg as the retained message for its topic, as if another
// client had published it earlier.
func (f *FakeTransport) Retain(msg Message) {
	msg.Retained = true
	f.mu.Lock()
	f.retained[msg.Topic] = msg
	f.mu.Unlock()
}

// Messages returns a copy of all recorded publications on topic, both
// acknowledged and async.
func (f *FakeTransport) Messages(topic string) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Message
	for _, m := range f.Published {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	for _, m := range f.Async {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// Reset clears recorded publications and injected errors.
func (f *FakeTransport) Reset() {
	f.mu.Lock()
	f.Published = nil
	f.Async = nil
	f.PublishError = nil
	f.SubscribeError = nil
	f.mu.Unlock()
}

func (f *FakeTransport) deliver(msg Message) {
	f.mu.Lock()
	if msg.Retained {
		if len(msg.Payload) == 0 {
			delete(f.retained, msg.Topic)
		} else {
			f.retained[msg.Topic] = msg
		}
	}
	var handlers []Handler
	for filter, h := range f.subs {
		if Match(filter, msg.Topic) {
			handlers = append(handlers, h)
		}
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(msg.Topic, msg.Payload)
	}
}
