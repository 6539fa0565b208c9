package app

import (
	"net/http"
	"strconv"
)

func (s *HTTPServer) handleListProjects(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	items, err := s.service.ListProjects(r.Context(), session.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	var body map[string]any
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	payload, err := s.service.CreateProject(r.Context(), session.UserID, body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(r, "projectId")
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	if err := s.service.DeleteProject(r.Context(), sessionFrom(r.Context()).UserID, projectID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleListPages(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(r, "projectId")
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	items, err := s.service.ListPages(r.Context(), sessionFrom(r.Context()).UserID, projectID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(r, "projectId")
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	payload, err := s.service.CreatePage(r.Context(), sessionFrom(r.Context()).UserID, projectID, body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	projectID, okProject := pathID(r, "projectId")
	pageID, okPage := pathID(r, "pageId")
	if !okProject || !okPage {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Bad request", nil)
		return
	}
	if err := s.service.DeletePage(r.Context(), sessionFrom(r.Context()).UserID, projectID, pageID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleExportPage(w http.ResponseWriter, r *http.Request) {
	projectID, okProject := pathID(r, "projectId")
	pageID, okPage := pathID(r, "pageId")
	if !okProject || !okPage {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	result, err := s.service.ExportPage(r.Context(), sessionFrom(r.Context()).UserID, projectID, pageID, r.URL.Query().Get("format"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *HTTPServer) handlePublishProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(r, "projectId")
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	manifest, err := s.service.PublishProject(r.Context(), sessionFrom(r.Context()).UserID, projectID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, manifest)
}

func (s *HTTPServer) handleGetComponent(w http.ResponseWriter, r *http.Request) {
	ids, ok := componentPath(r)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	style, err := s.service.ComponentStyle(r.Context(), sessionFrom(r.Context()).UserID, ids.project, ids.page, ids.component)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, style)
}

func (s *HTTPServer) handleDeleteComponent(w http.ResponseWriter, r *http.Request) {
	ids, ok := componentPath(r)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	if err := s.service.DeleteComponent(r.Context(), sessionFrom(r.Context()).UserID, ids.project, ids.page, ids.component); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleCreateComponent(w http.ResponseWriter, r *http.Request) {
	projectID, okProject := pathID(r, "projectId")
	pageID, okPage := pathID(r, "pageId")
	if !okProject || !okPage {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Bad request", nil)
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	created, err := s.service.CreateComponent(r.Context(), sessionFrom(r.Context()).UserID, projectID, pageID, body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *HTTPServer) handleListComponents(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(r, "projectId")
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	items, err := s.service.ListComponents(r.Context(), sessionFrom(r.Context()).UserID, projectID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) handleReconcileComponents(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(r, "projectId")
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.ReconcileComponents(r.Context(), sessionFrom(r.Context()).UserID, projectID, body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type componentIDs struct {
	project   int64
	page      int64
	component int64
}

func componentPath(r *http.Request) (componentIDs, bool) {
	var ids componentIDs
	var ok bool
	if ids.project, ok = pathID(r, "projectId"); !ok {
		return ids, false
	}
	if ids.page, ok = pathID(r, "pageId"); !ok {
		return ids, false
	}
	if ids.component, ok = pathID(r, "componentId"); !ok {
		return ids, false
	}
	return ids, true
}
