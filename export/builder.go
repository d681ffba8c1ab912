package export

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/tailored-agentic-units/rewind/event"
)

// Bundle entry names.
const (
	RecordingEntry = "recording.json"
	MetaEntry      = "meta.json"
)

// DefaultReason is recorded when an export is requested without a reason.
const DefaultReason = "unknown"

// Builder produces bundles at a fixed compression level.
type Builder struct {
	level int
}

// NewBuilder creates a Builder from configuration.
func NewBuilder(cfg *Config) *Builder {
	return &Builder{level: cfg.level()}
}

// Build serializes events and meta and packages them into a bundle.
// Events are written in the given order; a nil slice is written as an empty
// array. Payload bytes are copied into recording.json unchanged apart from
// surrounding whitespace, and a nil payload is written as null. Any
// serialization or compression error is returned wrapped in ErrBuildFailed
// and no partial bundle is returned.
func (b *Builder) Build(events []event.Event, meta Metadata) ([]byte, error) {
	recording, err := encodeRecording(events)
	if err != nil {
		return nil, fmt.Errorf("%w: encode recording: %w", ErrBuildFailed, err)
	}

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: marshal metadata: %w", ErrBuildFailed, err)
	}

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	w.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, b.level)
	})

	modified := time.UnixMilli(meta.Timestamp).UTC()
	if err := writeEntry(w, RecordingEntry, recording, modified); err != nil {
		return nil, err
	}
	if err := writeEntry(w, MetaEntry, metaJSON, modified); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: finalize archive: %w", ErrBuildFailed, err)
	}
	return buf.Bytes(), nil
}

// Build packages events and meta using the default configuration.
func Build(events []event.Event, meta Metadata) ([]byte, error) {
	cfg := DefaultConfig()
	return NewBuilder(&cfg).Build(events, meta)
}

// Checksum returns the hex-encoded SHA-256 of a bundle.
func Checksum(bundle []byte) string {
	sum := sha256.Sum256(bundle)
	return hex.EncodeToString(sum[:])
}

// encodeRecording writes events as a JSON array of
// {"timestamp","kind","payload"} objects. json.Marshal is not used because it
// compacts RawMessage values and escapes HTML inside them.
func encodeRecording(events []event.Event) ([]byte, error) {
	buf := make([]byte, 0, 64*len(events)+2)
	buf = append(buf, '[')
	for i, e := range events {
		payload := bytes.Trim(e.Payload, " \t\r\n")
		switch {
		case len(payload) == 0:
			payload = []byte("null")
		case !json.Valid(payload):
			return nil, fmt.Errorf("event %d: invalid payload json", i)
		}

		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, `{"timestamp":`...)
		buf = strconv.AppendInt(buf, e.Timestamp, 10)
		buf = append(buf, `,"kind":`...)
		buf = strconv.AppendInt(buf, int64(e.Kind), 10)
		buf = append(buf, `,"payload":`...)
		buf = append(buf, payload...)
		buf = append(buf, '}')
	}
	return append(buf, ']'), nil
}

func writeEntry(w *zip.Writer, name string, data []byte, modified time.Time) error {
	f, err := w.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrBuildFailed, name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrBuildFailed, name, err)
	}
	return nil
}
