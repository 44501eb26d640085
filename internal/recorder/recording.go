package recorder

import (
	"bufio"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/wiretrace/wiretrace/internal/costqueue"
	"github.com/wiretrace/wiretrace/internal/wiremsg"
	"github.com/wiretrace/wiretrace/internal/wirepacket"
)

// writeBatchBytes is the writer's per-batch drain budget.
const writeBatchBytes = 1 << 24

// recording bundles one output file, one writer goroutine, one bounded
// queue, and the terminal result that surfaces at Stop.
type recording struct {
	path        string
	maxFileSize uint64
	bufferSize  uint64

	queue *costqueue.Queue[wirepacket.Packet]
	order atomic.Uint64
	done  chan struct{}

	mu         sync.Mutex
	inShutdown bool
	written    uint64
	result     error
}

func newRecording(path string, opts StartOptions) *recording {
	return &recording{
		path:        path,
		maxFileSize: opts.MaxFileSize,
		bufferSize:  opts.BufferSize,
		queue: costqueue.New(opts.BufferSize, func(p wirepacket.Packet) uint64 {
			return uint64(len(p.Message))
		}),
		done: make(chan struct{}),
	}
}

// run launches the background writer.
func (rec *recording) run() {
	go func() {
		defer close(rec.done)
		rec.writeFrames()
	}()
}

// writeFrames drains the queue in batches and appends encoded frames to
// the output file until the queue is consumed or a fatal condition hits.
// The terminal result is set before the file closes so shutdown sees it.
func (rec *recording) writeFrames() {
	f, err := os.Create(rec.path)
	if err != nil {
		rec.fail(err)
		return
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	var frame []byte
	batch := make([]wirepacket.Packet, 0, 64)

	for {
		batch = batch[:0]
		var popErr error
		batch, popErr = rec.queue.PopManyUpTo(writeBatchBytes, batch)

		for i := range batch {
			frame = wirepacket.Encode(frame[:0], &batch[i])

			rec.mu.Lock()
			rec.written += uint64(len(frame))
			written := rec.written
			rec.mu.Unlock()

			if written >= rec.maxFileSize {
				rec.fail(ErrLogWriteFailed)
				return
			}
			if _, err := w.Write(frame); err != nil {
				rec.fail(err)
				return
			}
		}

		if popErr != nil {
			// ErrConsumed: the producer side is closed and drained.
			return
		}
	}
}

// pushRecord offers one packet to the queue. A false return means the
// queue was full, which is fatal to the recording.
func (rec *recording) pushRecord(s Session, now time.Time, order uint64, message wiremsg.Message) bool {
	ok := rec.queue.TryPush(wirepacket.Packet{
		ConnectionID: s.ID(),
		Local:        s.LocalEndpoint(),
		Remote:       s.RemoteEndpoint(),
		Seen:         now,
		Order:        order,
		Message:      message,
	})
	if ok {
		return true
	}

	rec.queue.Close()
	rec.fail(ErrQueueWouldBlock)
	return false
}

// shutdown closes the producer side, waits for the writer to exit, and
// returns the terminal result. Safe to call more than once.
func (rec *recording) shutdown() error {
	rec.mu.Lock()
	if !rec.inShutdown {
		rec.inShutdown = true
		rec.mu.Unlock()

		rec.queue.Close()
		<-rec.done

		rec.mu.Lock()
	}
	defer rec.mu.Unlock()

	return rec.result
}

// fail records err as the terminal result unless one is already set.
func (rec *recording) fail(err error) {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.result == nil {
		rec.result = err
	}
}

// statusDoc builds the live stats snapshot for the status section.
func (rec *recording) statusDoc() bson.D {
	depth := rec.queue.GetStats().QueueDepthBytes

	rec.mu.Lock()
	defer rec.mu.Unlock()

	return bson.D{
		{Key: "running", Value: true},
		{Key: "bufferSize", Value: int64(rec.bufferSize)},
		{Key: "bufferedBytes", Value: int64(depth)},
		{Key: "currentFileSize", Value: int64(rec.written)},
		{Key: "maxFileSize", Value: int64(rec.maxFileSize)},
		{Key: "recordingFile", Value: rec.path},
	}
}
