// Package reconcile applies a batch of client component payloads to the
// stored components of a project.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"pagebuilder/api/internal/component"
	"pagebuilder/api/internal/store"
)

// Kind classifies why a payload could not be applied.
type Kind string

const (
	KindPageNotFound      Kind = "PAGE_NOT_FOUND"
	KindComponentNotFound Kind = "COMPONENT_NOT_FOUND"
	KindInvalidPayload    Kind = "INVALID_PAYLOAD"
)

// Error reports the first payload that failed. Index is the payload's
// position in the submitted batch.
type Error struct {
	Index  int
	Page   string
	CompID string
	Kind   Kind
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("payload %d (page %q, component %q): %s: %v", e.Index, e.Page, e.CompID, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Store opens the transaction a batch runs in.
type Store interface {
	WithTx(ctx context.Context, fn func(store.Tx) error) error
}

type Reconciler struct {
	store Store
}

func New(s Store) *Reconciler {
	return &Reconciler{store: s}
}

type entry struct {
	index   int
	payload component.Payload
}

// Apply overwrites each referenced component with its payload. Payloads are
// grouped by page title; groups run in ascending title order and payloads
// keep their submitted order within a group. The batch is all or nothing:
// the first failure aborts it and no update is kept. An empty batch is a
// no-op success.
func (r *Reconciler) Apply(ctx context.Context, projectID int64, payloads []component.Payload) error {
	if len(payloads) == 0 {
		return nil
	}

	groups := map[string][]entry{}
	for i, p := range payloads {
		title, err := component.PageTitle(p)
		if err != nil {
			compID, _ := p[component.KeyID].(string)
			return &Error{Index: i, CompID: compID, Kind: KindInvalidPayload, Err: err}
		}
		groups[title] = append(groups[title], entry{index: i, payload: p})
	}

	titles := make([]string, 0, len(groups))
	for title := range groups {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	return r.store.WithTx(ctx, func(tx store.Tx) error {
		for _, title := range titles {
			if err := applyGroup(ctx, tx, projectID, title, groups[title]); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyGroup(ctx context.Context, tx store.Tx, projectID int64, title string, entries []entry) error {
	page, err := tx.PageByTitle(ctx, projectID, title)
	if err != nil {
		first := entries[0]
		compID, _ := first.payload[component.KeyID].(string)
		return classify(first.index, title, compID, KindPageNotFound, err)
	}

	for _, e := range entries {
		compID, ok := e.payload[component.KeyID].(string)
		if !ok || compID == "" {
			return &Error{Index: e.index, Page: title, Kind: KindInvalidPayload, Err: &component.ValidationError{Reason: "id must be a non-empty string"}}
		}
		existing, err := tx.ComponentByCompID(ctx, page.ID, compID)
		if err != nil {
			return classify(e.index, title, compID, KindComponentNotFound, err)
		}

		fields, style, err := component.Split(component.StripPage(e.payload))
		if err != nil {
			return &Error{Index: e.index, Page: title, CompID: compID, Kind: KindInvalidPayload, Err: err}
		}

		existing.CompID = fields.CompID
		existing.Parent = fields.Parent
		existing.Left = fields.Box.Left
		existing.Top = fields.Box.Top
		existing.Width = fields.Box.Width
		existing.Height = fields.Box.Height
		existing.SecondaryState = style
		if err := tx.UpdateComponent(ctx, existing); err != nil {
			return fmt.Errorf("update component %q on page %q: %w", fields.CompID, title, err)
		}
	}
	return nil
}

// classify turns lookup misses into a reconcile Error and passes other
// storage failures through.
func classify(index int, title, compID string, kind Kind, err error) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrAmbiguous) {
		return &Error{Index: index, Page: title, CompID: compID, Kind: kind, Err: err}
	}
	return err
}
