package bridge

import (
	"encoding/json"
	"io"
	"net"
	"strings"
	"sync"
)

// fakeTransport is an in-memory client. Tests push raw JSON with push and
// read what the session sent with messages.
type fakeTransport struct {
	in     chan []byte
	closed chan struct{}

	mu         sync.Mutex
	out        []Outbound
	closeCount int
	closeOnce  sync.Once
	hangupOnce sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:     make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeTransport) ReadJSON(v interface{}) error {
	select {
	case data, ok := <-f.in:
		if !ok {
			return io.EOF
		}
		return json.Unmarshal(data, v)
	case <-f.closed:
		return net.ErrClosed
	}
}

func (f *fakeTransport) WriteJSON(v interface{}) error {
	select {
	case <-f.closed:
		return net.ErrClosed
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var msg Outbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, msg)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closeCount++
	f.mu.Unlock()

	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

// push queues a message from the client.
func (f *fakeTransport) push(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		panic(err)
	}
	f.in <- data
}

func (f *fakeTransport) pushRaw(raw string) {
	f.in <- []byte(raw)
}

// hangup simulates the client going away.
func (f *fakeTransport) hangup() {
	f.hangupOnce.Do(func() { close(f.in) })
}

func (f *fakeTransport) messages() []Outbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Outbound, len(f.out))
	copy(out, f.out)
	return out
}

func (f *fakeTransport) ofType(typ string) []Outbound {
	var out []Outbound
	for _, m := range f.messages() {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

// output joins the payloads of every data event.
func (f *fakeTransport) output() string {
	var b strings.Builder
	for _, m := range f.ofType(TypeData) {
		b.WriteString(m.Data)
	}
	return b.String()
}

func (f *fakeTransport) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

var _ Transport = (*fakeTransport)(nil)
