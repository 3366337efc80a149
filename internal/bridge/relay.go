package bridge

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// relay moves shell output to the client. A reader goroutine drains the
// shell into a buffer as fast as it produces; run flushes that buffer once
// per poll interval, so a chatty shell costs one client message per tick
// instead of one per read.
//
// Output is decoded as UTF-8. Invalid bytes become U+FFFD; a multi-byte
// character split across reads is held back until it is complete.
type relay struct {
	src      io.Reader
	interval time.Duration

	mu   sync.Mutex
	buf  bytes.Buffer
	err  error // why the reader stopped
	done chan struct{}
}

func newRelay(shell io.Reader, interval time.Duration) *relay {
	return &relay{
		src:      transform.NewReader(shell, unicode.UTF8.NewDecoder()),
		interval: interval,
		done:     make(chan struct{}),
	}
}

// pump reads until the source fails. Closing the shell ends it.
func (r *relay) pump() {
	defer close(r.done)

	chunk := make([]byte, 4096)
	for {
		n, err := r.src.Read(chunk)
		if n > 0 {
			r.mu.Lock()
			r.buf.Write(chunk[:n])
			r.mu.Unlock()
		}
		if err != nil {
			r.mu.Lock()
			r.err = err
			r.mu.Unlock()
			return
		}
	}
}

// take empties the buffer.
func (r *relay) take() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.buf.Len() == 0 {
		return ""
	}
	s := r.buf.String()
	r.buf.Reset()
	return s
}

// readErr returns the error that stopped the reader, if it has stopped.
func (r *relay) readErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// run flushes buffered output through send every interval until ctx is
// cancelled, send fails, or the shell is exhausted. It returns nil on
// cancellation, the send error, or the read error (io.EOF on a clean
// remote exit) once everything read has been flushed.
func (r *relay) run(ctx context.Context, send func(string) error) error {
	go r.pump()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		// Check for exhaustion before taking, so the last bytes read
		// are flushed before reporting it.
		var finished bool
		select {
		case <-r.done:
			finished = true
		default:
		}

		if data := r.take(); data != "" {
			if err := send(data); err != nil {
				return err
			}
		}
		if finished {
			return r.readErr()
		}
	}
}
