package sync

import (
	"context"
	"io"
	"sync"

	"go.uber.org/atomic"

	"github.com/ironleaf/merklecore/internal/config"
)

// AsyncWriter decouples the caller from the speed of the wire: messages are
// queued and a single background goroutine drains the queue and writes
// frames in order.
type AsyncWriter struct {
	conn    io.Writer
	queue   chan Message
	wg      sync.WaitGroup
	err     atomic.Error
	closeMu sync.Mutex
	closed  bool
}

// NewAsyncWriter starts the draining goroutine immediately.
func NewAsyncWriter(conn io.Writer, buffer int) *AsyncWriter {
	if buffer <= 0 {
		buffer = 64
	}
	w := &AsyncWriter{conn: conn, queue: make(chan Message, buffer)}
	w.wg.Add(1)
	go w.run()
	return w
}

// NewAsyncWriterFromConfig starts a writer whose queue is sized by cfg's
// SyncQueueDepth, in place of passing the buffer size directly.
func NewAsyncWriterFromConfig(cfg *config.Config, conn io.Writer) *AsyncWriter {
	return NewAsyncWriter(conn, cfg.SyncQueueDepth)
}

func (w *AsyncWriter) run() {
	defer w.wg.Done()
	for msg := range w.queue {
		if w.err.Load() != nil {
			continue // drain without writing once the stream has failed
		}
		if err := EncodeMessage(w.conn, msg); err != nil {
			w.err.Store(err)
		}
	}
}

// Enqueue hands msg to the writer goroutine. It never blocks on the wire
// itself, only on queue capacity (backpressure).
func (w *AsyncWriter) Enqueue(msg Message) error {
	w.closeMu.Lock()
	if w.closed {
		w.closeMu.Unlock()
		return io.ErrClosedPipe
	}
	w.closeMu.Unlock()
	w.queue <- msg
	return nil
}

// Close stops accepting new messages, waits for the queue to drain, and
// returns the first write error encountered, if any.
func (w *AsyncWriter) Close() error {
	w.closeMu.Lock()
	if w.closed {
		w.closeMu.Unlock()
		return w.err.Load()
	}
	w.closed = true
	close(w.queue)
	w.closeMu.Unlock()
	w.wg.Wait()
	return w.err.Load()
}

// AsyncReader runs a dedicated goroutine decoding the inbound stream in
// arrival order, so a caller's processing loop never blocks the decoder
// behind its own work.
type AsyncReader struct {
	incoming chan Message
	errCh    chan error
}

// NewAsyncReader starts the pump goroutine immediately.
func NewAsyncReader(conn io.Reader, buffer int) *AsyncReader {
	if buffer <= 0 {
		buffer = 64
	}
	r := &AsyncReader{incoming: make(chan Message, buffer), errCh: make(chan error, 1)}
	go r.pump(conn)
	return r
}

// NewAsyncReaderFromConfig starts a reader whose queue is sized by cfg's
// SyncQueueDepth, in place of passing the buffer size directly.
func NewAsyncReaderFromConfig(cfg *config.Config, conn io.Reader) *AsyncReader {
	return NewAsyncReader(conn, cfg.SyncQueueDepth)
}

func (r *AsyncReader) pump(conn io.Reader) {
	for {
		msg, err := DecodeMessage(conn)
		if err != nil {
			r.errCh <- err
			close(r.incoming)
			return
		}
		r.incoming <- msg
	}
}

// Next blocks until the next decoded message is available, ctx is
// cancelled, or the stream ends.
func (r *AsyncReader) Next(ctx context.Context) (Message, error) {
	select {
	case msg, ok := <-r.incoming:
		if !ok {
			return Message{}, <-r.errCh
		}
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}
