package scope

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"pagebuilder/api/internal/store"
)

type fakeStore struct {
	projects   map[int64]store.Project
	pages      map[int64]store.Page
	components map[int64]store.Component
	err        error
}

func (f *fakeStore) GetProject(_ context.Context, id int64) (store.Project, error) {
	if f.err != nil {
		return store.Project{}, f.err
	}
	p, ok := f.projects[id]
	if !ok {
		return store.Project{}, fmt.Errorf("get project: %w", store.ErrNotFound)
	}
	return p, nil
}

func (f *fakeStore) GetPage(_ context.Context, id int64) (store.Page, error) {
	p, ok := f.pages[id]
	if !ok {
		return store.Page{}, fmt.Errorf("get page: %w", store.ErrNotFound)
	}
	return p, nil
}

func (f *fakeStore) GetComponent(_ context.Context, pageID, id int64) (store.Component, error) {
	c, ok := f.components[id]
	if !ok || c.PageID != pageID {
		return store.Component{}, fmt.Errorf("get component: %w", store.ErrNotFound)
	}
	return c, nil
}

func fixture() *fakeStore {
	return &fakeStore{
		projects: map[int64]store.Project{
			1: {ID: 1, UserID: 10, Name: "mine"},
			2: {ID: 2, UserID: 20, Name: "theirs"},
		},
		pages: map[int64]store.Page{
			100: {ID: 100, ProjectID: 1, Title: "Home"},
			200: {ID: 200, ProjectID: 2, Title: "Home"},
		},
		components: map[int64]store.Component{
			1000: {ID: 1000, PageID: 100, CompID: "root"},
			2000: {ID: 2000, PageID: 200, CompID: "root"},
		},
	}
}

func newObserved(s Store) (*Resolver, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return NewResolver(s, zap.New(core)), logs
}

func TestComponentResolvesOwnedChain(t *testing.T) {
	r, logs := newObserved(fixture())
	page, item, err := r.Component(context.Background(), 10, 1, 100, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(100), page.ID)
	assert.Equal(t, "root", item.CompID)
	assert.Zero(t, logs.Len())
}

func TestScopeFailuresLookTheSame(t *testing.T) {
	cases := []struct {
		name                             string
		user, project, page, componentID int64
		reason                           string
	}{
		{"project missing", 10, 99, 100, 1000, "project missing"},
		{"foreign project", 10, 2, 200, 2000, "project owned by another user"},
		{"page missing", 10, 1, 999, 1000, "page missing"},
		{"page in other project", 10, 1, 200, 2000, "page in another project"},
		{"component missing", 10, 1, 100, 9999, "component missing"},
		{"component on other page", 10, 1, 100, 2000, "component missing"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, logs := newObserved(fixture())
			_, _, err := r.Component(context.Background(), tc.user, tc.project, tc.page, tc.componentID)
			require.ErrorIs(t, err, ErrNotFound)
			assert.Equal(t, ErrNotFound.Error(), err.Error())

			entries := logs.FilterMessage("scope denied").All()
			require.Len(t, entries, 1)
			assert.Equal(t, tc.reason, entries[0].ContextMap()["reason"])
		})
	}
}

func TestProjectPassesStorageErrorsThrough(t *testing.T) {
	s := fixture()
	boom := errors.New("connection reset")
	s.err = boom

	_, err := NewResolver(s, nil).Project(context.Background(), 10, 1)
	require.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrNotFound))
}
