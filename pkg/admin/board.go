package admin

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"fleetonboard/pkg/domain"
	"fleetonboard/pkg/notify"
	"fleetonboard/pkg/store"
)

// ErrNothingSelected is returned by bulk actions with an empty selection.
var ErrNothingSelected = errors.New("no applications selected")

// Board is one operator session over the applications table. It composes
// search/filter/sort into a single query, tracks selected row ids
// independently of the fetched page, and applies bulk status updates.
// It is owned by a single session and guards itself only against the
// background watch goroutine.
type Board struct {
	store store.Store

	mu       sync.Mutex
	query    store.ApplicationQuery
	rows     []domain.Application
	selected map[string]bool
}

// NewBoard starts a board with the default query: everything, newest
// submissions first.
func NewBoard(s store.Store) *Board {
	return &Board{
		store:    s,
		query:    store.ApplicationQuery{Sort: store.SortSubmittedAt, Desc: true},
		selected: make(map[string]bool),
	}
}

// Query returns the currently composed query.
func (b *Board) Query() store.ApplicationQuery {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.query
}

// SetSearch updates the free-text filter. It does not clear the
// selection: ids selected under the old query stay selected even when
// the new result set no longer shows them (see SelectedIDs).
func (b *Board) SetSearch(text string) {
	b.mu.Lock()
	b.query.Search = text
	b.mu.Unlock()
}

// SetStatusFilter restricts to one status; empty means all.
func (b *Board) SetStatusFilter(status domain.ApplicationStatus) {
	b.mu.Lock()
	b.query.Status = status
	b.mu.Unlock()
}

// SortBy selects the sort column. Re-selecting the current column
// toggles direction; switching columns resets to descending.
func (b *Board) SortBy(field store.ApplicationSortField) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.query.Sort == field {
		b.query.Desc = !b.query.Desc
		return
	}
	b.query.Sort = field
	b.query.Desc = true
}

// Refresh runs the composed query and replaces the fetched rows.
func (b *Board) Refresh() error {
	b.mu.Lock()
	q := b.query
	b.mu.Unlock()

	rows, err := b.store.ListApplications(q)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.rows = rows
	b.mu.Unlock()
	return nil
}

// Rows returns the last fetched result set.
func (b *Board) Rows() []domain.Application {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Application, len(b.rows))
	copy(out, b.rows)
	return out
}

// Select marks one row id.
func (b *Board) Select(id string) {
	b.mu.Lock()
	b.selected[id] = true
	b.mu.Unlock()
}

// Deselect unmarks one row id.
func (b *Board) Deselect(id string) {
	b.mu.Lock()
	delete(b.selected, id)
	b.mu.Unlock()
}

// IsSelected reports whether a row id is marked.
func (b *Board) IsSelected(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selected[id]
}

// SelectAllVisible marks every currently fetched row.
func (b *Board) SelectAllVisible() {
	b.mu.Lock()
	for _, app := range b.rows {
		b.selected[app.ID] = true
	}
	b.mu.Unlock()
}

// ClearSelection drops every mark.
func (b *Board) ClearSelection() {
	b.mu.Lock()
	b.selected = make(map[string]bool)
	b.mu.Unlock()
}

// SelectedIDs returns all marked ids, including ids no longer visible
// under the current query. Stale marks surviving a filter change is
// known, possibly unintended behavior kept pending product confirmation;
// callers wanting visible-only can run PruneSelection first.
func (b *Board) SelectedIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.selected))
	for id, on := range b.selected {
		if on {
			ids = append(ids, id)
		}
	}
	return ids
}

// PruneSelection drops marks for ids absent from the fetched rows.
func (b *Board) PruneSelection() {
	b.mu.Lock()
	visible := make(map[string]struct{}, len(b.rows))
	for _, app := range b.rows {
		visible[app.ID] = struct{}{}
	}
	for id := range b.selected {
		if _, ok := visible[id]; !ok {
			delete(b.selected, id)
		}
	}
	b.mu.Unlock()
}

// BulkUpdateStatus applies one status to every selected id in a single
// backend call. On success the selection clears and the view refreshes;
// on failure the selection stays intact so the operator can retry.
func (b *Board) BulkUpdateStatus(status domain.ApplicationStatus) (int64, error) {
	ids := b.SelectedIDs()
	if len(ids) == 0 {
		return 0, ErrNothingSelected
	}
	touched, err := b.store.UpdateApplicationStatusBulk(ids, status)
	if err != nil {
		return 0, err
	}
	b.ClearSelection()
	if err := b.Refresh(); err != nil {
		return touched, err
	}
	return touched, nil
}

// Watch re-fetches the current query whenever the applications table
// changes. Events carry no diff, so every event means a full refresh.
func (b *Board) Watch(ctx context.Context, sub notify.Subscriber) error {
	events, err := sub.Subscribe(ctx)
	if err != nil {
		return err
	}
	go func() {
		for event := range events {
			if event.Table != domain.TableApplications {
				continue
			}
			if err := b.Refresh(); err != nil {
				slog.Warn("board refresh after change event failed", "err", err)
			}
		}
	}()
	return nil
}
