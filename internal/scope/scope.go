// Package scope resolves the user -> project -> page -> component chain that
// every authenticated operation walks before touching data.
package scope

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pagebuilder/api/internal/store"
)

// ErrNotFound is returned for every link that is missing or not owned by the
// caller. Callers cannot tell the two causes apart.
var ErrNotFound = errors.New("not found")

type Store interface {
	GetProject(ctx context.Context, projectID int64) (store.Project, error)
	GetPage(ctx context.Context, pageID int64) (store.Page, error)
	GetComponent(ctx context.Context, pageID, componentID int64) (store.Component, error)
}

type Resolver struct {
	store  Store
	logger *zap.Logger
}

func NewResolver(s Store, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: s, logger: logger}
}

// Project returns the project when userID owns it.
func (r *Resolver) Project(ctx context.Context, userID, projectID int64) (store.Project, error) {
	project, err := r.store.GetProject(ctx, projectID)
	if errors.Is(err, store.ErrNotFound) {
		r.deny("project missing", userID, zap.Int64("project_id", projectID))
		return store.Project{}, ErrNotFound
	}
	if err != nil {
		return store.Project{}, fmt.Errorf("resolve project: %w", err)
	}
	if project.UserID != userID {
		r.deny("project owned by another user", userID, zap.Int64("project_id", projectID), zap.Int64("owner_id", project.UserID))
		return store.Project{}, ErrNotFound
	}
	return project, nil
}

// Page returns the page when it belongs to a project userID owns.
func (r *Resolver) Page(ctx context.Context, userID, projectID, pageID int64) (store.Page, error) {
	if _, err := r.Project(ctx, userID, projectID); err != nil {
		return store.Page{}, err
	}
	page, err := r.store.GetPage(ctx, pageID)
	if errors.Is(err, store.ErrNotFound) {
		r.deny("page missing", userID, zap.Int64("project_id", projectID), zap.Int64("page_id", pageID))
		return store.Page{}, ErrNotFound
	}
	if err != nil {
		return store.Page{}, fmt.Errorf("resolve page: %w", err)
	}
	if page.ProjectID != projectID {
		r.deny("page in another project", userID, zap.Int64("project_id", projectID), zap.Int64("page_id", pageID))
		return store.Page{}, ErrNotFound
	}
	return page, nil
}

// Component returns the component when it lives on a page of a project
// userID owns.
func (r *Resolver) Component(ctx context.Context, userID, projectID, pageID, componentID int64) (store.Page, store.Component, error) {
	page, err := r.Page(ctx, userID, projectID, pageID)
	if err != nil {
		return store.Page{}, store.Component{}, err
	}
	item, err := r.store.GetComponent(ctx, pageID, componentID)
	if errors.Is(err, store.ErrNotFound) {
		r.deny("component missing", userID, zap.Int64("page_id", pageID), zap.Int64("component_id", componentID))
		return store.Page{}, store.Component{}, ErrNotFound
	}
	if err != nil {
		return store.Page{}, store.Component{}, fmt.Errorf("resolve component: %w", err)
	}
	return page, item, nil
}

func (r *Resolver) deny(reason string, userID int64, fields ...zap.Field) {
	r.logger.Info("scope denied", append([]zap.Field{zap.String("reason", reason), zap.Int64("user_id", userID)}, fields...)...)
}
