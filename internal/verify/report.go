// Package verify checks recording files against the on-disk format's
// invariants and produces structured reports (JSON, JUnit XML) for use in
// capture pipelines and CI.
package verify

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/wiretrace/wiretrace/internal/wirepacket"
)

// Check names, used as test case names in reports.
const (
	CheckDecode     = "frame-decode"
	CheckOrder      = "order-density"
	CheckMessage    = "message-self-length"
	CheckTimestamps = "timestamp-monotonic"
)

// Report is the structured output of a verification run over one
// recording file.
type Report struct {
	File       string    `json:"file"`
	Passed     bool      `json:"passed"`
	Frames     int       `json:"frames"`
	TotalBytes int64     `json:"total_bytes"`
	Problems   []Problem `json:"problems"`
}

// Problem describes one invariant violation.
type Problem struct {
	// Frame is the 1-based frame number, or 0 for file-level problems.
	Frame  int    `json:"frame"`
	Check  string `json:"check"`
	Detail string `json:"detail"`
}

// File verifies the recording at path: every frame must decode, order
// values must form the dense sequence 1..N, and every message must match
// its self-declared length. Non-decreasing timestamps are also checked.
// Problems are
// collected in the report; only opening the file can fail outright.
func File(path string) (*Report, error) {
	f, err := os.Open(path) //nolint:gosec // recording path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open recording file: %w", err)
	}
	defer func() { _ = f.Close() }()

	report := &Report{File: path, Problems: []Problem{}}

	dec := wirepacket.NewDecoder(f)
	var lastSeen time.Time
	for {
		p, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A frame that does not decode ends the walk: everything after
			// it is unreachable without the length prefix.
			report.Problems = append(report.Problems, Problem{
				Frame:  report.Frames + 1,
				Check:  CheckDecode,
				Detail: err.Error(),
			})
			break
		}

		report.Frames++
		report.TotalBytes += int64(p.FrameSize())

		if p.Order != uint64(report.Frames) {
			report.Problems = append(report.Problems, Problem{
				Frame:  report.Frames,
				Check:  CheckOrder,
				Detail: fmt.Sprintf("expected order %d, found %d", report.Frames, p.Order),
			})
		}

		if err := p.Message.Validate(); err != nil {
			report.Problems = append(report.Problems, Problem{
				Frame:  report.Frames,
				Check:  CheckMessage,
				Detail: err.Error(),
			})
		}

		if p.Seen.Before(lastSeen) {
			report.Problems = append(report.Problems, Problem{
				Frame:  report.Frames,
				Check:  CheckTimestamps,
				Detail: fmt.Sprintf("timestamp %s precedes previous frame's %s", p.Seen.Format(time.RFC3339Nano), lastSeen.Format(time.RFC3339Nano)),
			})
		}
		lastSeen = p.Seen
	}

	report.Passed = len(report.Problems) == 0
	return report, nil
}
