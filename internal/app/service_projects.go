package app

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"pagebuilder/api/internal/store"
)

// CreateProject validates the body and creates a project owned by userID.
// Project names are unique across all users.
func (s *Service) CreateProject(ctx context.Context, userID int64, body map[string]any) (map[string]any, error) {
	name, err := validateName(projectBodySchema, body, "name")
	if err != nil {
		return nil, err
	}
	project, err := s.store.CreateProject(ctx, userID, name)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, domainError(http.StatusNotAcceptable, "NAME_TAKEN", "project with this name already exists", map[string]any{"field": "name"})
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("project created", zap.Int64("user_id", userID), zap.Int64("project_id", project.ID))
	return map[string]any{"id": project.ID, "name": project.Name}, nil
}

func (s *Service) ListProjects(ctx context.Context, userID int64) ([]map[string]any, error) {
	projects, err := s.store.ListProjects(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(projects))
	for _, project := range projects {
		items = append(items, map[string]any{"name": project.Name, "id": project.ID})
	}
	return items, nil
}

func (s *Service) DeleteProject(ctx context.Context, userID, projectID int64) error {
	if _, err := s.scope.Project(ctx, userID, projectID); err != nil {
		return scopeError(err, http.StatusNotFound)
	}
	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return scopeNotFound(http.StatusNotFound)
		}
		return err
	}
	return nil
}

func (s *Service) ListPages(ctx context.Context, userID, projectID int64) ([]map[string]any, error) {
	if _, err := s.scope.Project(ctx, userID, projectID); err != nil {
		return nil, scopeError(err, http.StatusNotFound)
	}
	pages, err := s.store.ListPages(ctx, projectID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(pages))
	for _, page := range pages {
		items = append(items, map[string]any{"title": page.Title, "id": page.ID})
	}
	return items, nil
}

// CreatePage resolves the project before looking at the body, so an unowned
// project is reported as missing even when the body is malformed.
func (s *Service) CreatePage(ctx context.Context, userID, projectID int64, raw []byte) (map[string]any, error) {
	if _, err := s.scope.Project(ctx, userID, projectID); err != nil {
		return nil, scopeError(err, http.StatusNotFound)
	}
	var body map[string]any
	if err := decodeJSON(raw, &body); err != nil {
		return nil, err
	}
	title, err := validateName(pageBodySchema, body, "title")
	if err != nil {
		return nil, err
	}
	page, err := s.store.CreatePage(ctx, projectID, title)
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": page.ID, "title": page.Title}, nil
}

// DeletePage reports an unresolved project or page as 400.
func (s *Service) DeletePage(ctx context.Context, userID, projectID, pageID int64) error {
	if _, err := s.scope.Page(ctx, userID, projectID, pageID); err != nil {
		return scopeError(err, http.StatusBadRequest)
	}
	if err := s.store.DeletePage(ctx, pageID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return scopeNotFound(http.StatusBadRequest)
		}
		return err
	}
	return nil
}
