package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/tailored-agentic-units/rewind/event"
)

// maxEntryBytes bounds how much of a single entry Read will decompress.
const maxEntryBytes = 512 << 20

// Bundle is a decoded export bundle.
type Bundle struct {
	Events []event.Event
	// Meta is nil when the bundle carries no meta.json.
	Meta *Metadata
	// Recording is the raw recording.json entry.
	Recording []byte
}

// Read decodes a bundle produced by Build. Payloads come back as written,
// with a null payload decoded as nil.
func Read(data []byte) (*Bundle, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
	}
	r.RegisterDecompressor(zip.Deflate, func(in io.Reader) io.ReadCloser {
		return flate.NewReader(in)
	})

	bundle := &Bundle{}
	found := false
	for _, f := range r.File {
		switch f.Name {
		case RecordingEntry:
			raw, err := readEntry(f)
			if err != nil {
				return nil, err
			}
			var events []event.Event
			if err := json.Unmarshal(raw, &events); err != nil {
				return nil, fmt.Errorf("%w: decode %s: %w", ErrInvalidBundle, RecordingEntry, err)
			}
			if events == nil {
				events = []event.Event{}
			}
			for i := range events {
				events[i].Payload = event.NormalizePayload(events[i].Payload)
			}
			bundle.Events = events
			bundle.Recording = raw
			found = true

		case MetaEntry:
			raw, err := readEntry(f)
			if err != nil {
				return nil, err
			}
			var meta Metadata
			if err := json.Unmarshal(raw, &meta); err != nil {
				return nil, fmt.Errorf("%w: decode %s: %w", ErrInvalidBundle, MetaEntry, err)
			}
			bundle.Meta = &meta
		}
	}

	if !found {
		return nil, fmt.Errorf("%w: %s not found", ErrInvalidBundle, RecordingEntry)
	}
	return bundle, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrInvalidBundle, f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrInvalidBundle, f.Name, err)
	}
	if len(data) > maxEntryBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidBundle, f.Name, maxEntryBytes)
	}
	return data, nil
}
