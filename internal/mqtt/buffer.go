package mqtt

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/sweeney/home-safety-sensor/internal/ring"
)

// ErrOutboxFull is reported for a send dropped because the outbox queue
// was full, i.e. the broker has not kept up for a whole queue's worth.
var ErrOutboxFull = errors.New("mqtt: outbox full")

// replayBuffer holds acknowledged-delivery messages published while the
// broker connection is down, for replay on reconnect. The oldest message
// is dropped on overflow and the first drop per outage is logged.
// Not safe for concurrent use; RealTransport guards it.
type replayBuffer struct {
	ring     *ring.Buffer[Message]
	overflow bool
}

func newReplayBuffer(capacity int) *replayBuffer {
	return &replayBuffer{ring: ring.New[Message](capacity)}
}

func (r *replayBuffer) push(msg Message) {
	if r.ring.Push(msg) && !r.overflow {
		log.Printf("mqtt: replay buffer full (%d messages), dropping oldest", r.ring.Cap())
		r.overflow = true
	}
}

// drainAll returns the buffered messages oldest first and empties the buffer.
func (r *replayBuffer) drainAll() []Message {
	r.overflow = false
	return r.ring.Drain()
}

func (r *replayBuffer) len() int {
	return r.ring.Len()
}

type pending struct {
	msg  Message
	done func(error)
}

// outbox decouples senders from the broker: push never waits, and one
// goroutine publishes queued messages in order.
type outbox struct {
	queue   chan pending
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newOutbox(capacity int, publish func(Message) error) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	o := &outbox{
		queue:   make(chan pending, capacity),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go o.run(publish)
	return o
}

// push queues msg. done, if non-nil, is called once with the publish
// result, from the outbox goroutine, or synchronously with ErrOutboxFull.
func (o *outbox) push(msg Message, done func(error)) {
	select {
	case o.queue <- pending{msg: msg, done: done}:
	default:
		if done != nil {
			done(fmt.Errorf("%w: dropped %s", ErrOutboxFull, msg.Topic))
		}
	}
}

func (o *outbox) run(publish func(Message) error) {
	defer close(o.stopped)
	for {
		select {
		case <-o.quit:
			return
		case p := <-o.queue:
			err := publish(p.msg)
			if p.done != nil {
				p.done(err)
			}
		}
	}
}

// close stops the goroutine after the publish in progress, if any.
// Messages still queued are discarded. Safe to call more than once.
func (o *outbox) close() {
	o.once.Do(func() { close(o.quit) })
	<-o.stopped
}
