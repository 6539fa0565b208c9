package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/api/internal/component"
	"pagebuilder/api/internal/store"
)

// memStore keeps pages and components in memory. WithTx works on a copy and
// only swaps it in when fn succeeds.
type memStore struct {
	pages      []store.Page
	components map[int64]store.Component
	txCount    int
	updates    []string
}

type memTx struct {
	pages      []store.Page
	components map[int64]store.Component
	updates    *[]string
}

func newMemStore() *memStore {
	return &memStore{components: map[int64]store.Component{}}
}

func (m *memStore) addPage(id, projectID int64, title string) {
	m.pages = append(m.pages, store.Page{ID: id, ProjectID: projectID, Title: title})
}

func (m *memStore) addComponent(c store.Component) {
	m.components[c.ID] = c
}

func (m *memStore) WithTx(_ context.Context, fn func(store.Tx) error) error {
	m.txCount++
	snapshot := make(map[int64]store.Component, len(m.components))
	for id, c := range m.components {
		snapshot[id] = c
	}
	var updates []string
	tx := &memTx{pages: m.pages, components: snapshot, updates: &updates}
	if err := fn(tx); err != nil {
		return err
	}
	m.components = snapshot
	m.updates = append(m.updates, updates...)
	return nil
}

func (t *memTx) PageByTitle(_ context.Context, projectID int64, title string) (store.Page, error) {
	var matches []store.Page
	for _, p := range t.pages {
		if p.ProjectID == projectID && p.Title == title {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return store.Page{}, fmt.Errorf("page by title: %w", store.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return store.Page{}, fmt.Errorf("page by title: %w", store.ErrAmbiguous)
	}
}

func (t *memTx) ComponentByCompID(_ context.Context, pageID int64, compID string) (store.Component, error) {
	var matches []store.Component
	for _, c := range t.components {
		if c.PageID == pageID && c.CompID == compID {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return store.Component{}, fmt.Errorf("component: %w", store.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return store.Component{}, fmt.Errorf("component: %w", store.ErrAmbiguous)
	}
}

func (t *memTx) UpdateComponent(_ context.Context, c store.Component) error {
	t.components[c.ID] = c
	*t.updates = append(*t.updates, c.CompID)
	return nil
}

func payload(page, id string, parent any, left, top, width, height int, extra ...any) component.Payload {
	p := component.Payload{
		"page": page, "id": id, "parent": parent,
		"left": left, "top": top, "width": width, "height": height,
	}
	for i := 0; i+1 < len(extra); i += 2 {
		p[extra[i].(string)] = extra[i+1]
	}
	return p
}

func seeded() *memStore {
	m := newMemStore()
	m.addPage(1, 10, "Home")
	m.addPage(2, 10, "About")
	m.addPage(3, 20, "Home")
	m.addComponent(store.Component{ID: 100, PageID: 1, CompID: "root", Width: 200, Height: 100})
	m.addComponent(store.Component{ID: 101, PageID: 1, CompID: "child", Parent: strPtr("root"), Width: 10, Height: 10})
	m.addComponent(store.Component{ID: 200, PageID: 2, CompID: "root", Width: 300, Height: 300})
	m.addComponent(store.Component{ID: 300, PageID: 3, CompID: "root", Width: 1, Height: 1})
	return m
}

func strPtr(s string) *string { return &s }

func TestApplyUpdatesAcrossPages(t *testing.T) {
	m := seeded()
	r := New(m)

	err := r.Apply(context.Background(), 10, []component.Payload{
		payload("Home", "child", "root", 20, 10, 100, 50, "color", "red"),
		payload("About", "root", nil, 0, 0, 640, 480),
		payload("Home", "root", nil, 0, 0, 400, 200),
	})
	require.NoError(t, err)

	child := m.components[101]
	assert.Equal(t, 100, child.Width)
	assert.Equal(t, 20, child.Left)
	require.NotNil(t, child.Parent)
	assert.Equal(t, "root", *child.Parent)
	assert.Equal(t, map[string]any{"color": "red"}, child.SecondaryState, "page tag is not stored as style")

	assert.Equal(t, 640, m.components[200].Width)
	assert.Equal(t, 400, m.components[100].Width)
	assert.Equal(t, 1, m.components[300].Width, "other project untouched")

	// About sorts before Home; order inside Home is kept.
	assert.Equal(t, []string{"root", "child", "root"}, m.updates)
}

func TestApplyEmptyBatchDoesNotOpenTransaction(t *testing.T) {
	m := seeded()
	require.NoError(t, New(m).Apply(context.Background(), 10, nil))
	assert.Zero(t, m.txCount)
}

func TestApplyRollsBackWholeBatch(t *testing.T) {
	cases := []struct {
		name    string
		batch   []component.Payload
		index   int
		kind    Kind
		page    string
		compID  string
		wrapped error
	}{
		{
			name: "unknown page",
			batch: []component.Payload{
				payload("About", "root", nil, 0, 0, 1, 1),
				payload("Missing", "root", nil, 0, 0, 1, 1),
			},
			index: 1, kind: KindPageNotFound, page: "Missing", compID: "root", wrapped: store.ErrNotFound,
		},
		{
			name: "unknown component",
			batch: []component.Payload{
				payload("Home", "root", nil, 0, 0, 5, 5),
				payload("Home", "ghost", nil, 0, 0, 1, 1),
			},
			index: 1, kind: KindComponentNotFound, page: "Home", compID: "ghost", wrapped: store.ErrNotFound,
		},
		{
			name: "invalid geometry",
			batch: []component.Payload{
				payload("About", "root", nil, 0, 0, 5, 5),
				{"page": "Home", "id": "root", "parent": nil, "left": "0", "top": 0, "width": 1, "height": 1},
			},
			index: 1, kind: KindInvalidPayload, page: "Home", compID: "root", wrapped: component.ErrInvalid,
		},
		{
			name: "unknown component with invalid geometry",
			batch: []component.Payload{
				payload("About", "root", nil, 0, 0, 5, 5),
				{"page": "Home", "id": "ghost", "parent": nil, "left": "wide", "top": 0, "width": 1, "height": 1},
			},
			index: 1, kind: KindComponentNotFound, page: "Home", compID: "ghost", wrapped: store.ErrNotFound,
		},
		{
			name: "non-string id",
			batch: []component.Payload{
				payload("About", "root", nil, 0, 0, 5, 5),
				{"page": "Home", "id": 7, "parent": nil, "left": 0, "top": 0, "width": 1, "height": 1},
			},
			index: 1, kind: KindInvalidPayload, page: "Home", wrapped: component.ErrInvalid,
		},
		{
			name: "missing page tag",
			batch: []component.Payload{
				payload("About", "root", nil, 0, 0, 5, 5),
				{"id": "root", "parent": nil, "left": 0, "top": 0, "width": 1, "height": 1},
			},
			index: 1, kind: KindInvalidPayload, compID: "root", wrapped: component.ErrInvalid,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := seeded()
			err := New(m).Apply(context.Background(), 10, tc.batch)

			var rErr *Error
			require.ErrorAs(t, err, &rErr)
			assert.Equal(t, tc.index, rErr.Index)
			assert.Equal(t, tc.kind, rErr.Kind)
			assert.Equal(t, tc.page, rErr.Page)
			assert.Equal(t, tc.compID, rErr.CompID)
			require.ErrorIs(t, err, tc.wrapped)

			assert.Equal(t, 200, m.components[100].Width)
			assert.Equal(t, 300, m.components[200].Width)
			assert.Empty(t, m.updates)
		})
	}
}

func TestApplyRejectsAmbiguousPage(t *testing.T) {
	m := seeded()
	m.addPage(4, 10, "Home")

	err := New(m).Apply(context.Background(), 10, []component.Payload{
		payload("Home", "root", nil, 0, 0, 1, 1),
	})
	var rErr *Error
	require.ErrorAs(t, err, &rErr)
	assert.Equal(t, KindPageNotFound, rErr.Kind)
	require.ErrorIs(t, err, store.ErrAmbiguous)
}

func TestApplyScopesPagesToProject(t *testing.T) {
	m := seeded()
	err := New(m).Apply(context.Background(), 20, []component.Payload{
		payload("About", "root", nil, 0, 0, 1, 1),
	})
	var rErr *Error
	require.ErrorAs(t, err, &rErr)
	assert.Equal(t, KindPageNotFound, rErr.Kind)
}

type failingStore struct{ err error }

func (f failingStore) WithTx(context.Context, func(store.Tx) error) error { return f.err }

func TestApplyPassesStorageFailuresThrough(t *testing.T) {
	boom := errors.New("connection reset")
	err := New(failingStore{err: boom}).Apply(context.Background(), 10, []component.Payload{
		payload("Home", "root", nil, 0, 0, 1, 1),
	})
	require.ErrorIs(t, err, boom)
	var rErr *Error
	assert.False(t, errors.As(err, &rErr))
}
