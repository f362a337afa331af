package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matzehuels/cardcrop/pkg/assign"
	"github.com/matzehuels/cardcrop/pkg/buildinfo"
	"github.com/matzehuels/cardcrop/pkg/cache"
	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
	"github.com/matzehuels/cardcrop/pkg/grid"
	"github.com/matzehuels/cardcrop/pkg/pipeline"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		buildinfo.Info
	}{"ok", buildinfo.Get()})
}

// cellsRequest asks for the grid of one page. PageIndex is the 0-based
// source page and RunIndex its position in the run (duplex parity).
type cellsRequest struct {
	Page      grid.PageSize    `json:"page"`
	Options   pipeline.Options `json:"options"`
	PageIndex int              `json:"page_index"`
	RunIndex  int              `json:"run_index"`
}

type cellsResponse struct {
	Cells      []grid.Cell        `json:"cells"`
	Placements []assign.Placement `json:"placements,omitempty"`
	Mode       string             `json:"mode,omitempty"`
}

func (s *Server) handleCells(w http.ResponseWriter, r *http.Request) {
	req := cellsRequest{Options: pipeline.DefaultOptions()}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	if req.PageIndex < 0 || req.RunIndex < 0 {
		s.writeError(w, r, cerrors.New(cerrors.ErrCodeInvalidInput, "page_index and run_index must not be negative"))
		return
	}

	opts := req.Options
	if !opts.HasMode() {
		if err := opts.ValidateForGrid(); err != nil {
			s.writeError(w, r, err)
			return
		}
		cells, err := grid.Compute(req.Page, opts.Grid())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cellsResponse{Cells: cells})
		return
	}

	if err := opts.ValidateAndSetDefaults(); err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := pipeline.PlanPage(req.Page, opts, req.PageIndex, req.RunIndex)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cellsResponse{
		Cells:      page.Cells,
		Placements: page.Placements,
		Mode:       opts.Mode().String(),
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	input, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := previewOptionsFromForm(r.MultipartForm.Value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		s.writeError(w, r, err)
		return
	}

	data, hit, err := s.runner.PreviewWithCacheInfo(r.Context(), input, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", opts.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Cache", cacheHeader(hit))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type artifactInfo struct {
	Name  string      `json:"name"`
	Slot  assign.Slot `json:"slot"`
	Pages int         `json:"pages"`
	Bytes int         `json:"bytes"`
	URL   string      `json:"url"`
}

type cropResponse struct {
	ID        string         `json:"id"`
	Mode      assign.Mode    `json:"mode"`
	Artifacts []artifactInfo `json:"artifacts"`
	Missing   []string       `json:"missing,omitempty"`
	Cached    bool           `json:"cached"`
}

func (s *Server) handleCrop(w http.ResponseWriter, r *http.Request) {
	input, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := optionsFromForm(r.MultipartForm.Value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.runner.Crop(r.Context(), input, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	id := uuid.NewString()
	resp := cropResponse{
		ID:        id,
		Mode:      result.Output.Mode,
		Artifacts: []artifactInfo{},
		Missing:   result.Output.Missing(),
		Cached:    result.CacheInfo.CropHit,
	}
	for _, a := range result.Output.Artifacts {
		key := s.runner.Keyer.JobKey(id, a.Name)
		if err := s.runner.Cache.Set(r.Context(), key, a.Data, cache.ArtifactTTL); err != nil {
			s.writeError(w, r, cerrors.Wrap(cerrors.ErrCodeInternal, err, "store %s", a.Name))
			return
		}
		resp.Artifacts = append(resp.Artifacts, artifactInfo{
			Name:  a.Name,
			Slot:  a.Slot,
			Pages: a.Pages,
			Bytes: len(a.Data),
			URL:   fmt.Sprintf("/api/artifacts/%s/%s", id, a.Name),
		})
	}

	s.logger.Info("crop job stored", "id", id, "artifacts", len(resp.Artifacts), "cached", resp.Cached)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")

	if _, err := uuid.Parse(id); err != nil {
		s.writeError(w, r, cerrors.Wrap(cerrors.ErrCodeInvalidPath, err, "invalid job id"))
		return
	}
	if err := cerrors.ValidateArtifactName(name); err != nil {
		s.writeError(w, r, err)
		return
	}

	data, ok, err := s.runner.Cache.Get(r.Context(), s.runner.Keyer.JobKey(id, name))
	if err != nil {
		s.writeError(w, r, cerrors.Wrap(cerrors.ErrCodeInternal, err, "load %s", name))
		return
	}
	if !ok {
		s.writeError(w, r, cerrors.New(cerrors.ErrCodeNotFound, "artifact %s of job %s not found or expired", name, id))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func cacheHeader(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}
