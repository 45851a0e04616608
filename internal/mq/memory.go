package mq

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

const memoryBuffer = 64

// Memory is an in-process broker. Each channel is a buffered queue shared
// by its subscribers; it is meant for single-binary setups and tests.
type Memory struct {
	mu     sync.Mutex
	queues map[string]chan Message
	closed chan struct{}
	once   sync.Once
}

func NewMemory() *Memory {
	return &Memory{queues: make(map[string]chan Message), closed: make(chan struct{})}
}

func (m *Memory) queue(channel string) chan Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[channel]
	if !ok {
		q = make(chan Message, memoryBuffer)
		m.queues[channel] = q
	}
	return q
}

// Publish enqueues a message, blocking while the channel buffer is full.
func (m *Memory) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if channel == "" {
		return "", errors.New("memory channel is required")
	}
	msg := Message{ID: uuid.NewString(), Data: append([]byte(nil), data...), Attributes: attrs}
	select {
	case <-m.closed:
		return "", errors.New("memory broker closed")
	case <-ctx.Done():
		return "", ctx.Err()
	case m.queue(channel) <- msg:
		return msg.ID, nil
	}
}

// Subscribe handles messages until ctx is done or the broker is closed.
// Failed messages are requeued.
func (m *Memory) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if channel == "" {
		return errors.New("memory channel is required")
	}
	q := m.queue(channel)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.closed:
			return nil
		case msg := <-q:
			if err := handler(ctx, msg); err != nil {
				select {
				case q <- msg:
				default:
				}
			}
		}
	}
}

func (m *Memory) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}
