package app

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"pagebuilder/api/internal/blob"
	"pagebuilder/api/internal/export"
	"pagebuilder/api/internal/store"
)

// ExportPage renders one page as html, pdf or png.
func (s *Service) ExportPage(ctx context.Context, userID, projectID, pageID int64, formatName string) (*export.Result, error) {
	page, err := s.scope.Page(ctx, userID, projectID, pageID)
	if err != nil {
		return nil, scopeError(err, http.StatusNotFound)
	}
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return nil, domainError(http.StatusBadRequest, "UNSUPPORTED_FORMAT", "Unsupported export format", map[string]any{
			"format":    formatName,
			"supported": []string{string(export.FormatHTML), string(export.FormatPDF), string(export.FormatPNG)},
		})
	}

	tree, err := s.buildPage(ctx, page)
	if err != nil {
		return nil, err
	}
	result, err := s.exporter.Export(ctx, tree, format)
	if errors.Is(err, export.ErrRendererUnavailable) {
		s.logger.Warn("export renderer unavailable", zap.Error(err))
		return nil, domainError(http.StatusServiceUnavailable, "RENDERER_UNAVAILABLE", "Export renderer unavailable", nil)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PublishProject renders every page of the project to HTML and uploads the
// set together with a manifest.
func (s *Service) PublishProject(ctx context.Context, userID, projectID int64) (blob.Manifest, error) {
	if _, err := s.scope.Project(ctx, userID, projectID); err != nil {
		return blob.Manifest{}, scopeError(err, http.StatusNotFound)
	}
	if s.publisher == nil {
		return blob.Manifest{}, domainError(http.StatusServiceUnavailable, "PUBLISH_UNAVAILABLE", "Object storage not configured", nil)
	}

	pages, err := s.store.ListPages(ctx, projectID)
	if err != nil {
		return blob.Manifest{}, err
	}
	rendered := make([]blob.Page, 0, len(pages))
	for _, page := range pages {
		tree, err := s.buildPage(ctx, page)
		if err != nil {
			return blob.Manifest{}, err
		}
		html, err := export.RenderHTML(tree)
		if err != nil {
			return blob.Manifest{}, err
		}
		rendered = append(rendered, blob.Page{ID: page.ID, Title: page.Title, HTML: html})
	}

	manifest, err := s.publisher.Publish(ctx, projectID, rendered)
	if err != nil {
		return blob.Manifest{}, err
	}
	s.logger.Info("project published", zap.Int64("project_id", projectID), zap.Int("pages", len(rendered)))
	return manifest, nil
}

func (s *Service) buildPage(ctx context.Context, page store.Page) (export.Page, error) {
	components, err := s.store.ListPageComponents(ctx, page.ID)
	if err != nil {
		return export.Page{}, err
	}
	tree, err := export.BuildPage(page, components, s.normalizer)
	if err != nil {
		return export.Page{}, s.integrityError(err, page.ID)
	}
	return tree, nil
}
