package http

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

func (s *Server) handleMetricsOptions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	opts, err := s.metrics.Options(ctx, sanitizeInput(r.URL.Query().Get("source")))
	if err != nil {
		FromError(ctx, err).Write(w)
		return
	}
	NewJSONResponse().Data(opts).Write(w)
}

// handleMetricsQuery filters, aggregates and snapshots a source. Absent
// region or product parameters select every value of the dataset; a
// selection that matches nothing is a 200 with empty set to true.
func (s *Server) handleMetricsQuery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	params, err := ParseMetricsParams(r.URL.Query())
	if err != nil {
		FromError(ctx, err).Write(w)
		return
	}
	opts, err := s.metrics.Options(ctx, params.Source)
	if err != nil {
		FromError(ctx, err).Write(w)
		return
	}
	report, err := s.metrics.Query(ctx, params.Source, params.Query(opts))
	if err != nil {
		FromError(ctx, err).Write(w)
		return
	}
	NewJSONResponse().Data(report).Write(w)
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.metrics.Sources()
	if err != nil {
		FromError(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Data(sourcesView{Sources: sources}).Write(w)
}

// handleUploadSource registers a CSV sent as the multipart field "file".
func (s *Server) handleUploadSource(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "upload too large").Write(w)
			return
		}
		BadRequestError("expected multipart form with a file field").Write(w)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		BadRequestError("missing file field").Write(w)
		return
	}
	defer file.Close()

	if ext := filepath.Ext(header.Filename); ext != "" && !strings.EqualFold(ext, ".csv") {
		UnprocessableEntityError("only CSV files are supported").Write(w)
		return
	}

	id, err := s.metrics.Upload(ctx, header.Filename, file)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	opts, err := s.metrics.Options(ctx, id)
	if err != nil {
		FromError(ctx, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(uploadView{Source: id, Options: opts}).Write(w)
}

// handleInvalidateSource drops the cached dataset so the next request
// reloads it from disk. Uploaded tables are removed.
func (s *Server) handleInvalidateSource(w http.ResponseWriter, r *http.Request) {
	id := sanitizeInput(r.PathValue("id"))
	if id == "" {
		BadRequestError("missing source id").Write(w)
		return
	}
	s.metrics.Invalidate(id)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
