// Package query implements the event log's read path (spec.md §4.5):
// one cursor/limit/order pagination contract shared by the by-space,
// by-type, and by-time access patterns.
package query

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sort"
	"time"

	"github.com/Robust-infrastructure/ri-event-log/internal/model"
)

const (
	defaultLimit    = 100
	minLimit        = 1
	defaultMaxLimit = 1000
)

// Order is the sort direction for a page of events.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Options is the shared pagination contract for all three access
// patterns.
type Options struct {
	Limit  int
	Cursor string
	Order  Order
}

// cursor is the decoded form of the opaque pagination token: the
// (sequence_number, id) of the last row the caller already has.
type cursor struct {
	SequenceNumber int64  `json:"sequence_number"`
	ID             string `json:"id"`
}

// Page is the result of any of the three query operations.
type Page struct {
	Items      []model.Event
	NextCursor string
	Total      int
}

// Store is the subset of the record store the query engine needs.
type Store interface {
	ListBySpaceSeqRange(ctx context.Context, spaceID string, lowerSeq, upperSeq *int64, desc bool, limit int) ([]model.Event, error)
	CountInSpace(ctx context.Context, spaceID string) (int, error)
	ListByType(ctx context.Context, t model.EventType) ([]model.Event, error)
	CountByType(ctx context.Context, t model.EventType) (int, error)
	ListInTimeRange(ctx context.Context, from, to string) ([]model.Event, error)
	CountInTimeRange(ctx context.Context, from, to string) (int, error)
}

// Engine runs the three query operations against a Store.
type Engine struct {
	store    Store
	maxLimit int
}

// New creates a query Engine over store. maxLimit optionally overrides
// the hard ceiling spec.md §6's max_events_per_query configures;
// omitting it keeps the spec's default of 1000.
func New(store Store, maxLimit ...int) *Engine {
	m := maxLimit
	limit := defaultMaxLimit
	if len(m) > 0 && m[0] > 0 {
		limit = m[0]
	}
	return &Engine{store: store, maxLimit: limit}
}

// normalize applies the defaults and clamping spec.md §4.5 specifies,
// and decodes the cursor if present.
//
// spec.md §4.5 clamps limit to [1, 1000] with "0 becomes 1", but also
// separately defaults an absent limit to 100 — two rules that collide
// on a plain Go int, where the zero value cannot distinguish "caller
// omitted Limit" from "caller explicitly passed 0". This implementation
// resolves the collision by treating Limit == 0 as "omitted" and
// applying the 100 default, per Go's own zero-value-means-unset idiom
// (see DESIGN.md's Open Question decisions); an explicit 0 can never
// observably reach the literal "clamp to 1" branch as a result.
func (e *Engine) normalize(opts Options) (limit int, order Order, cur *cursor, err error) {
	limit = opts.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	if limit < minLimit {
		limit = minLimit
	}
	if limit > e.maxLimit {
		limit = e.maxLimit
	}

	order = opts.Order
	if order != Desc {
		order = Asc
	}

	if opts.Cursor == "" {
		return limit, order, nil, nil
	}
	c, err := decodeCursor(opts.Cursor)
	if err != nil {
		return 0, "", nil, &model.InvalidQueryError{Field: "cursor", Reason: "malformed cursor"}
	}
	return limit, order, c, nil
}

func decodeCursor(s string) (*cursor, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	var c cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func encodeCursor(e model.Event) string {
	raw, _ := json.Marshal(cursor{SequenceNumber: e.SequenceNumber, ID: e.ID})
	return base64.StdEncoding.EncodeToString(raw)
}

// less is the (sequence_number, id) tie-break comparator spec.md §4.5
// requires: ordered by sequence_number, then lexicographically by id.
func less(a, b model.Event) bool {
	if a.SequenceNumber != b.SequenceNumber {
		return a.SequenceNumber < b.SequenceNumber
	}
	return a.ID < b.ID
}

func sortEvents(events []model.Event, order Order) {
	sort.Slice(events, func(i, j int) bool {
		if order == Desc {
			return less(events[j], events[i])
		}
		return less(events[i], events[j])
	})
}

// paginateInMemory sorts an already-filtered slice into the requested
// order, then applies the cursor and the "limit+1, drop overflow" mechanic.
func paginateInMemory(events []model.Event, limit int, order Order, cur *cursor) Page {
	sortEvents(events, order)

	start := 0
	if cur != nil {
		start = len(events)
		for i, e := range events {
			if afterCursor(e, *cur, order) {
				start = i
				break
			}
		}
	}

	end := start + limit + 1
	if end > len(events) {
		end = len(events)
	}
	window := events[start:end]

	return finishPage(window, limit, len(events))
}

func afterCursor(e model.Event, c cursor, order Order) bool {
	ref := model.Event{SequenceNumber: c.SequenceNumber, ID: c.ID}
	if order == Desc {
		return less(e, ref)
	}
	return less(ref, e)
}

func finishPage(window []model.Event, limit, total int) Page {
	if len(window) > limit {
		items := window[:limit]
		return Page{Items: items, NextCursor: encodeCursor(items[len(items)-1]), Total: total}
	}
	return Page{Items: window, Total: total}
}

// BySpace implements query_by_space: the bounds are pushed into SQL
// via the (space_id, sequence_number) index.
func (e *Engine) BySpace(ctx context.Context, spaceID string, opts Options) (Page, error) {
	limit, order, cur, err := e.normalize(opts)
	if err != nil {
		return Page{}, err
	}

	var lower, upper *int64
	if cur != nil {
		if order == Asc {
			l := cur.SequenceNumber + 1
			lower = &l
		} else {
			u := cur.SequenceNumber - 1
			upper = &u
		}
	}

	rows, err := e.store.ListBySpaceSeqRange(ctx, spaceID, lower, upper, order == Desc, limit+1)
	if err != nil {
		return Page{}, model.NewDatabaseError("query_by_space", err)
	}
	total, err := e.store.CountInSpace(ctx, spaceID)
	if err != nil {
		return Page{}, model.NewDatabaseError("query_by_space: count", err)
	}

	return finishPage(rows, limit, total), nil
}

// ByType implements query_by_type: fetched whole, then paginated and
// ordered in memory.
func (e *Engine) ByType(ctx context.Context, t model.EventType, opts Options) (Page, error) {
	limit, order, cur, err := e.normalize(opts)
	if err != nil {
		return Page{}, err
	}

	events, err := e.store.ListByType(ctx, t)
	if err != nil {
		return Page{}, model.NewDatabaseError("query_by_type", err)
	}
	total, err := e.store.CountByType(ctx, t)
	if err != nil {
		return Page{}, model.NewDatabaseError("query_by_type: count", err)
	}

	page := paginateInMemory(events, limit, order, cur)
	page.Total = total
	return page, nil
}

// ByTime implements query_by_time over [from, to): from inclusive, to
// exclusive, ordering and pagination applied in memory.
func (e *Engine) ByTime(ctx context.Context, from, to string, opts Options) (Page, error) {
	if _, err := time.Parse(time.RFC3339, from); err != nil {
		return Page{}, &model.InvalidQueryError{Field: "from", Reason: "must be a valid ISO-8601 instant"}
	}
	if _, err := time.Parse(time.RFC3339, to); err != nil {
		return Page{}, &model.InvalidQueryError{Field: "to", Reason: "must be a valid ISO-8601 instant"}
	}

	limit, order, cur, err := e.normalize(Options{Limit: opts.Limit, Cursor: opts.Cursor, Order: opts.Order})
	if err != nil {
		return Page{}, err
	}

	events, err := e.store.ListInTimeRange(ctx, from, to)
	if err != nil {
		return Page{}, model.NewDatabaseError("query_by_time", err)
	}
	total, err := e.store.CountInTimeRange(ctx, from, to)
	if err != nil {
		return Page{}, model.NewDatabaseError("query_by_time: count", err)
	}

	page := paginateInMemory(events, limit, order, cur)
	page.Total = total
	return page, nil
}
