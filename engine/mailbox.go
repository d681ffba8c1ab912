package engine

import "context"

// Mailbox is a bounded single-consumer queue. Sends block while it is full
// and fail once the owning context is done.
type Mailbox[T any] struct {
	queue chan T
	ctx   context.Context
	size  int
}

// NewMailbox creates a mailbox that stops accepting messages when ctx is done.
func NewMailbox[T any](ctx context.Context, size int) *Mailbox[T] {
	return &Mailbox[T]{
		queue: make(chan T, size),
		ctx:   ctx,
		size:  size,
	}
}

// Send enqueues message. It returns ErrClosed once the mailbox context is
// done, or ctx's error when ctx ends first.
func (m *Mailbox[T]) Send(ctx context.Context, message T) error {
	if m.ctx.Err() != nil {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case m.queue <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ctx.Done():
		return ErrClosed
	}
}

// Receive blocks until a message is available or the mailbox closes.
func (m *Mailbox[T]) Receive() (T, error) {
	select {
	case message := <-m.queue:
		return message, nil
	case <-m.ctx.Done():
		var zero T
		return zero, ErrClosed
	}
}

// TryReceive returns a queued message without blocking.
func (m *Mailbox[T]) TryReceive() (T, bool) {
	select {
	case message := <-m.queue:
		return message, true
	default:
		var zero T
		return zero, false
	}
}

// Closed reports whether the mailbox has stopped accepting messages.
func (m *Mailbox[T]) Closed() bool {
	return m.ctx.Err() != nil
}

// Size returns the mailbox capacity.
func (m *Mailbox[T]) Size() int {
	return m.size
}

// Len returns the number of queued messages.
func (m *Mailbox[T]) Len() int {
	return len(m.queue)
}
