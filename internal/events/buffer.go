package events

import "sync"

type message struct {
	Kind string
	Data []byte
}

// buffer is an unbounded FIFO shared by the callers of Write and the sending goroutine.
type buffer struct {
	lock     sync.Mutex
	messages []*message
}

func newBuffer() *buffer {
	return &buffer{}
}

func (b *buffer) PushBack(msg *message) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.messages = append(b.messages, msg)
}

// Pop returns nil when the buffer is empty.
func (b *buffer) Pop() *message {
	b.lock.Lock()
	defer b.lock.Unlock()

	if len(b.messages) == 0 {
		return nil
	}
	msg := b.messages[0]
	b.messages[0] = nil
	b.messages = b.messages[1:]
	return msg
}

func (b *buffer) Size() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.messages)
}
