package protocol

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrMailboxClosed indicates the receiving role has stopped.
var ErrMailboxClosed = errors.New("mailbox closed")

// Mailbox is a bounded FIFO queue owned by one receiving role.
type Mailbox struct {
	ch   chan Message
	done chan struct{}

	mu      sync.Mutex
	closed  bool
	err     error
	senders sync.WaitGroup // Sends admitted before Close
}

func NewMailbox(size int) *Mailbox {
	if size < 0 {
		size = 0
	}
	return &Mailbox{
		ch:   make(chan Message, size),
		done: make(chan struct{}),
	}
}

// Send enqueues msg. It fails once the mailbox is closed or ctx is done. A
// Send racing with Close may still enqueue; Drain hands such messages to the
// owner.
func (m *Mailbox) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	if m.closed {
		err := m.err
		m.mu.Unlock()
		return err
	}
	m.senders.Add(1)
	m.mu.Unlock()
	defer m.senders.Done()

	select {
	case m.ch <- msg:
		return nil
	case <-m.done:
		return m.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// C is the receive side, for the owning role only.
func (m *Mailbox) C() <-chan Message {
	return m.ch
}

// Done is closed when the owner stops accepting messages.
func (m *Mailbox) Done() <-chan struct{} {
	return m.done
}

// Close stops the mailbox. Later sends fail with err, or ErrMailboxClosed
// when err is nil. Only the first call has an effect.
func (m *Mailbox) Close(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if err == nil {
		err = ErrMailboxClosed
	}
	m.closed = true
	m.err = err
	close(m.done)
}

// Err returns the reason the mailbox was closed, or nil while it is open.
func (m *Mailbox) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Drain closes the mailbox with err, if it is still open, and passes every
// message still queued to fn, including those of Sends in flight at close
// time. It returns once no admitted Send is left. Only the owner may call it.
func (m *Mailbox) Drain(err error, fn func(Message)) {
	m.Close(err)

	idle := make(chan struct{})
	go func() {
		m.senders.Wait()
		close(idle)
	}()

	for {
		select {
		case msg := <-m.ch:
			fn(msg)
		case <-idle:
			for {
				select {
				case msg := <-m.ch:
					fn(msg)
				default:
					return
				}
			}
		}
	}
}

// Call sends req and waits for its reply. A reply carrying an error is
// returned together with that error. A reply addressed to another message
// is a protocol violation.
func Call(ctx context.Context, mb *Mailbox, from Role, req Request) (Reply, error) {
	replies := make(chan Reply, 1)
	msg := NewMessage(from, req, replies)
	if err := mb.Send(ctx, msg); err != nil {
		return Reply{}, err
	}

	select {
	case r := <-replies:
		return checkReply(msg, r)
	case <-mb.Done():
		// The owner may have answered just before stopping, or answers
		// while draining.
		select {
		case r := <-replies:
			return checkReply(msg, r)
		default:
			return Reply{}, mb.Err()
		}
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

func checkReply(msg Message, r Reply) (Reply, error) {
	if r.InReplyTo != msg.ID {
		return Reply{}, fmt.Errorf("%w: reply to %s answers message %s", ErrProtocolViolation, msg.ID, r.InReplyTo)
	}
	return r, r.Err
}
