// Package archive implements the binary archive codec, exporter, and
// importer (spec.md §4.9–§4.11): a small self-describing container —
// magic, version, event count, a deflate-compressed JSON body, and a
// SHA-256 footer over the uncompressed body.
package archive

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/Robust-infrastructure/ri-event-log/internal/model"
)

var magic = [5]byte{'R', 'B', 'L', 'O', 'G'}

const (
	formatVersion = 0x01
	headerSize    = 10
	footerSize    = 64
)

// record is the fixed-field-order shape of one event in the archive
// body (spec.md §4.9). The struct field order IS the wire order;
// encoding/json.Marshal emits struct fields in declaration order.
type record struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	SpaceID        string         `json:"space_id"`
	Timestamp      string         `json:"timestamp"`
	SequenceNumber int64          `json:"sequence_number"`
	Hash           string         `json:"hash"`
	PreviousHash   *string        `json:"previous_hash"`
	Version        int            `json:"version"`
	Payload        map[string]any `json:"payload"`
}

func toRecord(e model.Event) record {
	return record{
		ID:             e.ID,
		Type:           string(e.Type),
		SpaceID:        e.SpaceID,
		Timestamp:      e.Timestamp,
		SequenceNumber: e.SequenceNumber,
		Hash:           e.Hash,
		PreviousHash:   e.PreviousHash,
		Version:        e.Version,
		Payload:        e.Payload,
	}
}

func (r record) toEvent() model.Event {
	return model.Event{
		ID:             r.ID,
		Type:           model.EventType(r.Type),
		SpaceID:        r.SpaceID,
		Timestamp:      r.Timestamp,
		SequenceNumber: r.SequenceNumber,
		Hash:           r.Hash,
		PreviousHash:   r.PreviousHash,
		Version:        r.Version,
		Payload:        r.Payload,
	}
}

// marshalBody serializes events to the fixed-field-order JSON array
// that is the archive body (§4.9), ahead of compression.
func marshalBody(events []model.Event) ([]byte, error) {
	records := make([]record, len(events))
	for i, e := range events {
		records[i] = toRecord(e)
	}
	return json.Marshal(records)
}

func deflate(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("archive: deflate writer: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return nil, fmt.Errorf("archive: deflate write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("archive: deflate close: %w", err)
	}
	return buf.Bytes(), nil
}

func inflate(compressed []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("archive: inflate: %w", err)
	}
	return out, nil
}

// Encode implements the archive codec's write side (§4.9): serialize,
// hash the uncompressed body, compress, and assemble the full byte
// layout.
func Encode(events []model.Event) ([]byte, error) {
	body, err := marshalBody(events)
	if err != nil {
		return nil, fmt.Errorf("archive: marshal body: %w", err)
	}

	sum := sha256Hex(body)

	compressed, err := deflate(body)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, headerSize+len(compressed)+footerSize)
	out = append(out, magic[:]...)
	out = append(out, formatVersion)

	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(events)))
	out = append(out, countBuf[:]...)

	out = append(out, compressed...)
	out = append(out, []byte(sum)...)

	return out, nil
}

// header is the parsed fixed-size prefix of an archive.
type header struct {
	EventCount uint32
	Body       []byte // compressed
	FooterHex  string
}

// parseHeader performs the purely structural checks of import
// validation steps 1–3 (§4.11) and splits the remaining bytes into
// the compressed body and the footer.
func parseHeader(data []byte) (header, error) {
	if len(data) < headerSize+footerSize {
		return header{}, fmt.Errorf("archive: too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[0:5], magic[:]) {
		return header{}, fmt.Errorf("archive: bad magic bytes")
	}
	if data[5] != formatVersion {
		return header{}, fmt.Errorf("archive: unsupported format version %d", data[5])
	}
	count := binary.BigEndian.Uint32(data[6:10])
	body := data[headerSize : len(data)-footerSize]
	footerHex := string(data[len(data)-footerSize:])
	return header{EventCount: count, Body: body, FooterHex: footerHex}, nil
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
