// Package reader decodes traffic recording files back into the structured
// playback documents consumed by the replay tooling. It streams the binary
// log one frame at a time and emits one document per observed message,
// optionally preceded by a playback version header.
package reader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/wiretrace/wiretrace/internal/wirepacket"
)

// ReadDocuments decodes every frame of the recording at path and returns
// the playback documents, opType included. A nonexistent file yields an
// empty slice after printing a warning, matching the behavior replay
// operators expect from partially provisioned hosts.
func ReadDocuments(path string) ([]bson.D, error) {
	f, err := os.Open(path) //nolint:gosec // recording path comes from the operator
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: specified recording file does not exist (%s)\n", path)
			return []bson.D{}, nil
		}
		return nil, fmt.Errorf("failed to open recording file: %w", err)
	}
	defer func() { _ = f.Close() }()

	docs := []bson.D{}
	dec := wirepacket.NewDecoder(f)
	for {
		p, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode recording %s: %w", path, err)
		}

		doc, err := documentFromPacket(p, true)
		if err != nil {
			return nil, fmt.Errorf("failed to decode recording %s: %w", path, err)
		}
		docs = append(docs, doc)
	}
}

// Stream writes the playback file for the recording read from r to w: one
// version header document, then one document per frame in recording
// order, all as raw BSON. It returns nil on clean EOF.
func Stream(r io.Reader, w io.Writer) error {
	header, err := bson.Marshal(bson.D{
		{Key: "playbackfileversion", Value: int32(1)},
		{Key: "driveropsfiltered", Value: false},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal playback header: %w", err)
	}
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write playback header: %w", err)
	}

	dec := wirepacket.NewDecoder(r)
	for {
		p, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to decode recording: %w", err)
		}

		doc, err := documentFromPacket(p, false)
		if err != nil {
			return err
		}
		raw, err := bson.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal playback document: %w", err)
		}
		if _, err := w.Write(raw); err != nil {
			return fmt.Errorf("failed to write playback document: %w", err)
		}
	}
}
