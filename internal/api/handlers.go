package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/mpetrov/bugscope/internal/ingest"
	"github.com/mpetrov/bugscope/internal/project"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

// handleUploadProject ingests a multipart upload. File parts are staged in a
// temporary directory so the pipeline reads them like any other project;
// parts that cannot be staged are skipped, never the whole upload.
func (s *Server) handleUploadProject(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	tempDir, err := os.MkdirTemp("", "bugscope-upload-")
	if err != nil {
		logrus.Errorf("stage upload: %v", err)
		writeError(w, http.StatusInternalServerError, "could not stage upload")
		return
	}
	defer os.RemoveAll(tempDir)

	files := make([]project.UploadedFile, 0, len(parts))
	for _, part := range parts {
		staged, ok := stagePart(tempDir, part)
		if !ok {
			continue
		}
		files = append(files, staged)
	}

	snap := s.pipeline.ProcessFiles(r.Context(), r.FormValue("name"), files)
	if err := s.store.Save(r.Context(), snap); err != nil {
		logrus.Errorf("save project: %v", err)
		writeError(w, http.StatusInternalServerError, "could not save project")
		return
	}

	s.hub.Broadcast(Event{
		Type:      eventComplete,
		ProjectID: snap.ID,
		Stage:     "ingest",
		Message:   fmt.Sprintf("ingested %d files", snap.TotalFiles),
	})
	writeJSON(w, http.StatusCreated, snap)
}

type inlineFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type appProjectRequest struct {
	ingest.AppMeta
	Files []inlineFile `json:"files"`
}

// handleCreateAppProject ingests an application whose files arrive inline in
// the JSON body, alongside caller-declared metadata.
func (s *Server) handleCreateAppProject(w http.ResponseWriter, r *http.Request) {
	var req appProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Files) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}

	tempDir, err := os.MkdirTemp("", "bugscope-app-")
	if err != nil {
		logrus.Errorf("stage app project: %v", err)
		writeError(w, http.StatusInternalServerError, "could not stage project")
		return
	}
	defer os.RemoveAll(tempDir)

	files := make([]project.UploadedFile, 0, len(req.Files))
	for _, f := range req.Files {
		dest, ok := safeJoin(tempDir, f.Name)
		if !ok {
			logrus.Warnf("skipping file with unsafe name %q", f.Name)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			logrus.Warnf("skipping file %s: %v", f.Name, err)
			continue
		}
		if err := os.WriteFile(dest, []byte(f.Content), 0o644); err != nil {
			logrus.Warnf("skipping file %s: %v", f.Name, err)
			continue
		}
		files = append(files, project.UploadedFile{
			Name: f.Name,
			Path: dest,
			Size: int64(len(f.Content)),
		})
	}

	snap := s.pipeline.ProcessAppProject(r.Context(), files, req.AppMeta)
	if err := s.store.Save(r.Context(), snap); err != nil {
		logrus.Errorf("save project: %v", err)
		writeError(w, http.StatusInternalServerError, "could not save project")
		return
	}

	s.hub.Broadcast(Event{
		Type:      eventComplete,
		ProjectID: snap.ID,
		Stage:     "ingest",
		Message:   fmt.Sprintf("ingested %d files", snap.TotalFiles),
	})
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.List(r.Context())
	if err != nil {
		logrus.Errorf("list projects: %v", err)
		writeError(w, http.StatusInternalServerError, "could not list projects")
		return
	}
	if summaries == nil {
		summaries = []project.Summary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.store.Get(r.Context(), id)
	if errors.Is(err, project.ErrNotFound) {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		logrus.Errorf("load project %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "could not load project")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.store.Delete(r.Context(), id)
	if errors.Is(err, project.ErrNotFound) {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		logrus.Errorf("delete project %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "could not delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type analyzeRequest struct {
	Description string `json:"description"`
}

// handleAnalyzeProject runs a bug analysis for a stored project. Analysis
// itself cannot fail; only an unknown project ID or a broken store produce
// error responses.
func (s *Server) handleAnalyzeProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.store.Get(r.Context(), id)
	if errors.Is(err, project.ErrNotFound) {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		logrus.Errorf("load project %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "could not load project")
		return
	}

	// An absent or empty body means "audit the project".
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.hub.Broadcast(Event{Type: eventProgress, ProjectID: id, Stage: "analyze", Message: "analysis started"})

	analysis := s.diag.AnalyzeBug(r.Context(), snap, req.Description)
	if err := s.store.SaveAnalysis(r.Context(), id, analysis); err != nil {
		// The analysis is still returned; only implement requests depend on
		// the stored copy.
		logrus.Warnf("could not persist analysis for %s: %v", id, err)
		s.hub.Broadcast(Event{Type: eventError, ProjectID: id, Stage: "analyze", Message: "analysis could not be persisted"})
	}

	s.hub.Broadcast(Event{Type: eventComplete, ProjectID: id, Stage: "analyze", Message: "analysis ready"})
	writeJSON(w, http.StatusOK, analysis)
}

type implementRequest struct {
	FixID        string `json:"fix_id"`
	Instructions string `json:"instructions"`
}

// handleImplementFix turns a fix from the stored analysis into generated
// implementation text.
func (s *Server) handleImplementFix(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req implementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.FixID == "" {
		writeError(w, http.StatusBadRequest, "fix_id is required")
		return
	}

	snap, err := s.store.Get(r.Context(), id)
	if errors.Is(err, project.ErrNotFound) {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		logrus.Errorf("load project %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "could not load project")
		return
	}

	analysis, err := s.store.Analysis(r.Context(), id)
	if errors.Is(err, project.ErrNoAnalysis) {
		writeError(w, http.StatusNotFound, "project has not been analyzed yet")
		return
	}
	if err != nil {
		logrus.Errorf("load analysis %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "could not load analysis")
		return
	}

	fix, ok := analysis.Fix(req.FixID)
	if !ok {
		writeError(w, http.StatusNotFound, "fix not found in stored analysis")
		return
	}

	implementation := s.diag.GenerateImplementation(r.Context(), snap, fix, req.Instructions)
	writeJSON(w, http.StatusOK, map[string]string{"implementation": implementation})
}

// stagePart copies one multipart file into dir. Parts whose names would
// escape dir are skipped.
func stagePart(dir string, part *multipart.FileHeader) (project.UploadedFile, bool) {
	name := filepath.ToSlash(part.Filename)
	dest, ok := safeJoin(dir, name)
	if !ok {
		logrus.Warnf("skipping upload part with unsafe name %q", part.Filename)
		return project.UploadedFile{}, false
	}

	src, err := part.Open()
	if err != nil {
		logrus.Warnf("skipping unreadable upload part %s: %v", part.Filename, err)
		return project.UploadedFile{}, false
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		logrus.Warnf("skipping upload part %s: %v", part.Filename, err)
		return project.UploadedFile{}, false
	}
	out, err := os.Create(dest)
	if err != nil {
		logrus.Warnf("skipping upload part %s: %v", part.Filename, err)
		return project.UploadedFile{}, false
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		logrus.Warnf("skipping upload part %s: %v", part.Filename, err)
		return project.UploadedFile{}, false
	}

	return project.UploadedFile{Name: name, Path: dest, Size: part.Size}, true
}

// safeJoin joins name under root, rejecting absolute paths and parent
// traversal.
func safeJoin(root, name string) (string, bool) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if cleaned == "." || cleaned == ".." || filepath.IsAbs(cleaned) ||
		strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.Join(root, cleaned), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
