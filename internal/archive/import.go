package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Robust-infrastructure/ri-event-log/internal/chainlink"
	"github.com/Robust-infrastructure/ri-event-log/internal/model"
)

// ImportStore is the subset of the record store the importer needs.
type ImportStore interface {
	EventExists(ctx context.Context, id string) (bool, error)
	InsertEvent(ctx context.Context, e model.Event) error
}

// RecordError describes one malformed archive entry that was skipped
// rather than imported.
type RecordError struct {
	EventID string
	Reason  string
}

// ImportReport is the result of import_archive.
type ImportReport struct {
	ImportedEvents    int
	SkippedDuplicates int
	Errors            []RecordError
}

// Importer implements import_archive (spec.md §4.11).
type Importer struct {
	store ImportStore
}

// NewImporter creates an Importer.
func NewImporter(store ImportStore) *Importer {
	return &Importer{store: store}
}

// rawRecord is used to parse archive body entries loosely enough to
// report per-event shape errors instead of failing the whole decode.
type rawRecord struct {
	ID             *string         `json:"id"`
	Type           *string         `json:"type"`
	SpaceID        *string         `json:"space_id"`
	Timestamp      *string         `json:"timestamp"`
	SequenceNumber *int64          `json:"sequence_number"`
	Hash           *string         `json:"hash"`
	PreviousHash   *string         `json:"previous_hash"`
	Version        *int            `json:"version"`
	Payload        json.RawMessage `json:"payload"`
}

// Import runs the ordered validation and insertion sequence (§4.11).
func (im *Importer) Import(ctx context.Context, data []byte) (ImportReport, error) {
	h, err := parseHeader(data)
	if err != nil {
		return ImportReport{}, &model.ImportFailedError{Reason: err.Error()}
	}

	decompressed, err := inflate(h.Body)
	if err != nil {
		return ImportReport{}, &model.ImportFailedError{Reason: "could not decompress body: " + err.Error()}
	}

	if sha256Hex(decompressed) != h.FooterHex {
		return ImportReport{}, &model.ImportFailedError{Reason: "footer checksum does not match decompressed body"}
	}

	var rawItems []json.RawMessage
	if err := json.Unmarshal(decompressed, &rawItems); err != nil {
		return ImportReport{}, &model.ImportFailedError{Reason: "body is not a JSON array"}
	}

	if len(rawItems) != int(h.EventCount) {
		return ImportReport{}, &model.ImportFailedError{Reason: fmt.Sprintf("Header declares %d, body has %d", h.EventCount, len(rawItems))}
	}

	valid, shapeErrors := validateShapes(rawItems)

	if err := verifyPerSpaceChains(valid); err != nil {
		return ImportReport{}, err
	}

	report := ImportReport{Errors: shapeErrors}
	for _, e := range valid {
		exists, err := im.store.EventExists(ctx, e.ID)
		if err != nil {
			return ImportReport{}, model.NewDatabaseError("import_archive: exists check", err)
		}
		if exists {
			report.SkippedDuplicates++
			continue
		}
		if err := im.store.InsertEvent(ctx, e); err != nil {
			return ImportReport{}, model.NewDatabaseError("import_archive: insert", err)
		}
		report.ImportedEvents++
	}

	return report, nil
}

func validateShapes(rawItems []json.RawMessage) ([]model.Event, []RecordError) {
	var valid []model.Event
	var errs []RecordError

	for _, raw := range rawItems {
		var rr rawRecord
		if err := json.Unmarshal(raw, &rr); err != nil {
			errs = append(errs, RecordError{EventID: "unknown", Reason: "not a JSON object"})
			continue
		}

		id := "unknown"
		if rr.ID != nil {
			id = *rr.ID
		}

		if reason := shapeReason(rr); reason != "" {
			errs = append(errs, RecordError{EventID: id, Reason: reason})
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(rr.Payload))
		dec.UseNumber()
		var payload map[string]any
		if err := dec.Decode(&payload); err != nil || payload == nil {
			errs = append(errs, RecordError{EventID: id, Reason: "payload must be an object"})
			continue
		}

		valid = append(valid, model.Event{
			ID:             *rr.ID,
			Type:           model.EventType(*rr.Type),
			SpaceID:        *rr.SpaceID,
			Timestamp:      *rr.Timestamp,
			SequenceNumber: *rr.SequenceNumber,
			Hash:           *rr.Hash,
			PreviousHash:   rr.PreviousHash,
			Version:        *rr.Version,
			Payload:        payload,
		})
	}

	return valid, errs
}

func shapeReason(rr rawRecord) string {
	switch {
	case rr.ID == nil || *rr.ID == "":
		return "missing id"
	case rr.Type == nil:
		return "missing type"
	case !model.IsValidEventType(model.EventType(*rr.Type)):
		return fmt.Sprintf("%q is not one of the enumerated event types", *rr.Type)
	case rr.SpaceID == nil || *rr.SpaceID == "":
		return "missing space_id"
	case rr.Timestamp == nil || *rr.Timestamp == "":
		return "missing timestamp"
	case rr.SequenceNumber == nil:
		return "missing sequence_number"
	case rr.Hash == nil || *rr.Hash == "":
		return "missing hash"
	case rr.Version == nil:
		return "missing version"
	case len(rr.Payload) == 0:
		return "missing payload"
	}
	return ""
}

func verifyPerSpaceChains(events []model.Event) error {
	bySpace := make(map[string][]model.Event)
	for _, e := range events {
		bySpace[e.SpaceID] = append(bySpace[e.SpaceID], e)
	}

	spaceIDs := make([]string, 0, len(bySpace))
	for id := range bySpace {
		spaceIDs = append(spaceIDs, id)
	}
	sort.Strings(spaceIDs)

	for _, id := range spaceIDs {
		group := bySpace[id]
		sort.Slice(group, func(i, j int) bool { return group[i].SequenceNumber < group[j].SequenceNumber })
		if broken := chainlink.VerifyLinks(group); broken != chainlink.BrokenLinkSentinel {
			return &model.ImportFailedError{Reason: "broken hash chain in space " + id, EventID: group[broken].ID}
		}
	}

	return nil
}
