package cmd

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wiretrace/wiretrace/internal/verify"
	"github.com/wiretrace/wiretrace/internal/wiremsg"
	"github.com/wiretrace/wiretrace/internal/wirepacket"
)

// execute runs the root command with the given args and captures output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// writeTestRecording writes a two-frame recording and returns its path.
func writeTestRecording(t *testing.T) string {
	t.Helper()

	msg := make([]byte, wiremsg.HeaderLen+5+5)
	binary.LittleEndian.PutUint32(msg[0:4], uint32(len(msg)))
	binary.LittleEndian.PutUint32(msg[4:8], 7)
	binary.LittleEndian.PutUint32(msg[12:16], uint32(wiremsg.OpQuery))

	seen := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf []byte
	for i := 1; i <= 2; i++ {
		buf = wirepacket.Encode(buf, &wirepacket.Packet{
			ConnectionID: 3,
			Local:        "127.0.0.1:27017",
			Remote:       "127.0.0.1:55555",
			Seen:         seen,
			Order:        uint64(i),
			Message:      msg,
		})
	}

	path := filepath.Join(t.TempDir(), "traffic.bin")
	require.NoError(t, os.WriteFile(path, buf, 0600))
	return path
}

func TestReadCommand(t *testing.T) {
	path := writeTestRecording(t)

	out, err := execute(t, "read", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"opType":"legacy"`)
	assert.Contains(t, lines[0], `"srcendpoint":"55555"`)
}

func TestStreamCommand(t *testing.T) {
	path := writeTestRecording(t)
	outPath := filepath.Join(t.TempDir(), "playback.bson")

	_, err := execute(t, "stream", "--input", path, "--output", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Greater(t, len(data), 4)

	headerLen := int(binary.LittleEndian.Uint32(data[:4]))
	assert.Less(t, headerLen, len(data), "header document is followed by packet documents")
}

func TestVerifyCommand(t *testing.T) {
	path := writeTestRecording(t)

	out, err := execute(t, "verify", path, "--json")
	require.NoError(t, err)

	var report verify.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Passed)
	assert.Equal(t, 2, report.Frames)
}

func TestVerifyCommandFailsOnCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.bin")
	require.NoError(t, os.WriteFile(path, binary.LittleEndian.AppendUint32(nil, 1<<27), 0600))

	_, err := execute(t, "verify", path, "--json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed verification")
}
