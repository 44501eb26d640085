// Package recorder implements the live traffic recording pipeline: a
// process-global Recorder that observes every wire-protocol message
// crossing the session layer and appends it to a single binary log file
// through a bounded queue and one background writer goroutine.
package recorder

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/wiretrace/wiretrace/internal/config"
	"github.com/wiretrace/wiretrace/internal/wiremsg"
)

// StatusSectionName is the server-status section the recorder contributes.
const StatusSectionName = "trafficRecording"

var (
	// ErrAlreadyRecording is returned by Start when a recording is active.
	ErrAlreadyRecording = errors.New("traffic recording already active")
	// ErrNotRecording is returned by Stop when no recording is active.
	ErrNotRecording = errors.New("traffic recording not active")
	// ErrNoDirectory is returned by Start when no recording directory is
	// configured.
	ErrNoDirectory = errors.New("traffic recording directory not set")
	// ErrEmptyFilename is returned by Start for an empty filename.
	ErrEmptyFilename = errors.New("traffic recording filename must not be empty")
	// ErrNotSimpleFilename is returned by Start when the filename resolves
	// outside the recording directory.
	ErrNotSimpleFilename = errors.New("traffic recording filename must be a simple filename")
	// ErrInvalidOptions is returned by Start for a zero max file size or
	// buffer size with no configured default to fall back on.
	ErrInvalidOptions = errors.New("traffic recording options invalid")

	// ErrQueueWouldBlock is the terminal result of a recording whose
	// buffer filled up faster than the writer drained it.
	ErrQueueWouldBlock = errors.New("recording buffer would have blocked")
	// ErrLogWriteFailed is the terminal result of a recording that hit its
	// maximum file size.
	ErrLogWriteFailed = errors.New("hit maximum recording file size")
)

// Session is the view of a transport session the recorder needs.
type Session interface {
	// ID is a stable identifier for the session's connection.
	ID() uint64
	// LocalEndpoint is the "address:port" of the server-side socket.
	LocalEndpoint() string
	// RemoteEndpoint is the "address:port" of the peer socket.
	RemoteEndpoint() string
}

// StartOptions configures one recording.
type StartOptions struct {
	// Filename names the output file inside the recording directory. Once
	// joined onto the directory and cleaned, it must name a file directly
	// inside that directory.
	Filename string
	// MaxFileSize caps the output file. The first frame whose write would
	// reach the cap fails the recording before emission.
	MaxFileSize uint64
	// BufferSize bounds the queue between session goroutines and the
	// writer, measured in summed message payload bytes.
	BufferSize uint64
}

// Recorder holds at most one active Recording at a time. The zero value is
// unusable; construct with New. One Recorder is attached to the server's
// service context and shared by all session goroutines.
type Recorder struct {
	directory          string
	defaultMaxFileSize uint64
	defaultBufferSize  uint64

	shouldRecord atomic.Bool

	mu        sync.Mutex
	recording *recording
}

// New returns a Recorder writing into the given directory. An empty
// directory disables recording: Start will fail until one is configured.
func New(directory string) *Recorder {
	return &Recorder{directory: directory}
}

// NewFromConfig returns a Recorder configured from the loaded recording
// configuration. Zero-valued StartOptions fields fall back to the
// configured defaults.
func NewFromConfig(rc config.RecordingConfig) *Recorder {
	return &Recorder{
		directory:          rc.Directory,
		defaultMaxFileSize: rc.DefaultMaxFileSize,
		defaultBufferSize:  rc.DefaultBufferSize,
	}
}

// Start creates a new recording and launches its background writer.
func (r *Recorder) Start(opts StartOptions) error {
	if r.directory == "" {
		return ErrNoDirectory
	}

	path, err := resolvePath(r.directory, opts.Filename)
	if err != nil {
		return err
	}

	if opts.MaxFileSize == 0 {
		opts.MaxFileSize = r.defaultMaxFileSize
	}
	if opts.BufferSize == 0 {
		opts.BufferSize = r.defaultBufferSize
	}
	if opts.MaxFileSize == 0 || opts.BufferSize == 0 {
		return fmt.Errorf("%w: max file size and buffer size must be positive", ErrInvalidOptions)
	}

	r.mu.Lock()
	if r.recording != nil {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	rec := newRecording(path, opts)
	rec.run()
	r.recording = rec
	r.mu.Unlock()

	r.shouldRecord.Store(true)
	return nil
}

// Stop ends the active recording, waits for its writer to exit, and
// returns the writer's terminal result. A recording that failed earlier
// surfaces its failure here.
func (r *Recorder) Stop() error {
	r.shouldRecord.Store(false)

	r.mu.Lock()
	rec := r.recording
	r.recording = nil
	r.mu.Unlock()

	if rec == nil {
		return ErrNotRecording
	}
	return rec.shutdown()
}

// Observe records one message crossing the session layer. It is called
// synchronously on arbitrary session goroutines for every inbound and
// outbound message, and never blocks: a full buffer fails the recording
// rather than stalling traffic.
func (r *Recorder) Observe(s Session, now time.Time, message wiremsg.Message) {
	if !r.shouldRecord.Load() {
		return
	}

	r.mu.Lock()
	rec := r.recording
	r.mu.Unlock()

	if rec == nil {
		return
	}

	if rec.pushRecord(s, now, rec.order.Add(1), message) {
		return
	}

	// The push failed and the recording is now failing. Stop observing,
	// unless a new recording has been swapped in behind our back.
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording != rec {
		return
	}
	r.shouldRecord.Store(false)
}

// StatusSection returns the "trafficRecording" server-status document:
// {running: false} when idle, or the active recording's stats snapshot.
func (r *Recorder) StatusSection() bson.D {
	if !r.shouldRecord.Load() {
		return bson.D{{Key: "running", Value: false}}
	}

	r.mu.Lock()
	rec := r.recording
	r.mu.Unlock()

	if rec == nil {
		return bson.D{{Key: "running", Value: false}}
	}
	return rec.statusDoc()
}

// resolvePath joins filename onto directory and rejects anything that is
// not a simple filename directly inside it.
func resolvePath(directory, filename string) (string, error) {
	if filename == "" {
		return "", ErrEmptyFilename
	}

	parent := filepath.Clean(directory)
	path := filepath.Join(parent, filename)
	if filepath.Dir(path) != parent {
		return "", fmt.Errorf("%w: %q", ErrNotSimpleFilename, filename)
	}
	return path, nil
}
