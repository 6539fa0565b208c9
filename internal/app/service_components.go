package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"pagebuilder/api/internal/component"
	"pagebuilder/api/internal/layout"
	"pagebuilder/api/internal/reconcile"
	"pagebuilder/api/internal/store"
)

// ComponentStyle returns the derived percentage style of one component.
func (s *Service) ComponentStyle(ctx context.Context, userID, projectID, pageID, componentID int64) (layout.Style, error) {
	_, item, err := s.scope.Component(ctx, userID, projectID, pageID, componentID)
	if err != nil {
		return nil, scopeError(err, http.StatusNotFound)
	}

	var parentBox *layout.Box
	if item.Parent != nil {
		parent, err := s.store.ComponentByCompID(ctx, pageID, *item.Parent)
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrAmbiguous) {
			return nil, s.integrityError(fmt.Errorf("%w: component %q names parent %q: %v", layout.ErrBrokenReference, item.CompID, *item.Parent, err), pageID)
		}
		if err != nil {
			return nil, err
		}
		box := parent.Box()
		parentBox = &box
	}

	style, err := s.normalizer.DeriveStyle(item.SecondaryState, item.Box(), parentBox)
	if err != nil {
		return nil, s.integrityError(fmt.Errorf("component %q: %w", item.CompID, err), pageID)
	}
	return style, nil
}

// CreateComponent stores a flat client payload on a page. Scope and payload
// failures are both 400.
func (s *Service) CreateComponent(ctx context.Context, userID, projectID, pageID int64, raw []byte) (map[string]any, error) {
	if _, err := s.scope.Page(ctx, userID, projectID, pageID); err != nil {
		return nil, scopeError(err, http.StatusBadRequest)
	}
	var payload component.Payload
	if err := decodeJSON(raw, &payload); err != nil {
		return nil, err
	}
	fields, style, err := component.Split(payload)
	if err != nil {
		return nil, payloadError(err)
	}
	created, err := s.store.CreateComponent(ctx, store.Component{
		PageID:         pageID,
		CompID:         fields.CompID,
		Parent:         fields.Parent,
		Left:           fields.Box.Left,
		Top:            fields.Box.Top,
		Width:          fields.Box.Width,
		Height:         fields.Box.Height,
		SecondaryState: style,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": created.ID, "compId": created.CompID}, nil
}

func (s *Service) DeleteComponent(ctx context.Context, userID, projectID, pageID, componentID int64) error {
	if _, _, err := s.scope.Component(ctx, userID, projectID, pageID, componentID); err != nil {
		return scopeError(err, http.StatusNotFound)
	}
	if err := s.store.DeleteComponent(ctx, componentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return scopeNotFound(http.StatusNotFound)
		}
		return err
	}
	return nil
}

// ListComponents returns every component of the project in its flat client
// shape, tagged with the title of its page.
func (s *Service) ListComponents(ctx context.Context, userID, projectID int64) ([]component.Payload, error) {
	if _, err := s.scope.Project(ctx, userID, projectID); err != nil {
		return nil, scopeError(err, http.StatusNotFound)
	}
	rows, err := s.store.ListProjectComponents(ctx, projectID)
	if err != nil {
		return nil, err
	}
	items := make([]component.Payload, 0, len(rows))
	for _, row := range rows {
		payload := component.Compose(component.Fields{
			CompID: row.CompID,
			Parent: row.Parent,
			Box:    row.Box(),
		}, row.SecondaryState)
		payload[component.KeyPage] = row.PageTitle
		items = append(items, payload)
	}
	return items, nil
}

// ReconcileComponents applies a page tagged batch to the project. Any failure
// leaves storage unchanged and is reported as 400 naming the first bad payload.
func (s *Service) ReconcileComponents(ctx context.Context, userID, projectID int64, raw []byte) error {
	if _, err := s.scope.Project(ctx, userID, projectID); err != nil {
		return scopeError(err, http.StatusNotFound)
	}
	var payloads []component.Payload
	if err := decodeJSON(raw, &payloads); err != nil {
		return err
	}
	err := s.reconciler.Apply(ctx, projectID, payloads)
	var rErr *reconcile.Error
	if errors.As(err, &rErr) {
		s.logger.Info("bulk update rejected",
			zap.Int64("project_id", projectID),
			zap.Int("index", rErr.Index),
			zap.String("kind", string(rErr.Kind)),
			zap.Error(rErr.Err),
		)
		dErr := domainError(http.StatusBadRequest, "BULK_UPDATE_FAILED", "Bulk update failed", map[string]any{
			"index":  rErr.Index,
			"page":   rErr.Page,
			"compId": rErr.CompID,
			"reason": string(rErr.Kind),
		})
		dErr.Err = rErr
		return dErr
	}
	if err != nil {
		return err
	}
	s.logger.Info("bulk update applied", zap.Int64("project_id", projectID), zap.Int("count", len(payloads)))
	return nil
}

func payloadError(err error) error {
	var vErr *component.ValidationError
	if errors.As(err, &vErr) {
		return domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Invalid component", map[string]any{"reason": vErr.Reason})
	}
	return err
}

// integrityError turns stored data that cannot be laid out into a 409.
func (s *Service) integrityError(err error, pageID int64) error {
	switch {
	case errors.Is(err, layout.ErrBrokenReference):
		s.logger.Error("broken parent reference", zap.Int64("page_id", pageID), zap.Error(err))
		dErr := domainError(http.StatusConflict, "BROKEN_PARENT_REFERENCE", "Component parent does not resolve", map[string]any{"reason": err.Error()})
		dErr.Err = err
		return dErr
	case errors.Is(err, layout.ErrDegenerateParent):
		s.logger.Error("degenerate parent geometry", zap.Int64("page_id", pageID), zap.Error(err))
		dErr := domainError(http.StatusConflict, "DEGENERATE_PARENT_GEOMETRY", "Parent geometry cannot be divided by", map[string]any{"reason": err.Error()})
		dErr.Err = err
		return dErr
	}
	return err
}
