package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/doctext/internal/extract"
	"github.com/hyperjump/doctext/internal/models"
	"github.com/hyperjump/doctext/internal/storage"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
	uploadField      = "file"
)

// limitTracker remembers whether the body hit http.MaxBytesReader's limit,
// since strategies absorb read errors.
type limitTracker struct {
	r        io.Reader
	exceeded bool
}

func (l *limitTracker) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		l.exceeded = true
	}
	return n, err
}

// handleExtract accepts either a multipart form with a "file" part or a raw
// body whose Content-Type names the document type. ?type= overrides both and
// may be an identifier or an extension; ?name= labels raw uploads.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if s.config != nil && s.config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	}
	name := r.URL.Query().Get("name")
	declared := r.Header.Get("Content-Type")
	var body io.Reader = r.Body

	if mt, _, _ := mime.ParseMediaType(declared); mt == "multipart/form-data" {
		part, err := s.uploadPart(r)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		defer part.Close()
		name = part.FileName()
		declared = part.Header.Get("Content-Type")
		body = part
	}

	contentType, src := resolveContentType(r.URL.Query().Get("type"), declared, name, body)
	tracker := &limitTracker{r: src}
	text, rep, err := s.extractor.ExtractReport(name, contentType, tracker)
	if errors.Is(err, extract.ErrUnsupportedFormat) {
		s.respondError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}
	if tracker.exceeded {
		s.markRejected(r, rep.ID)
		s.respondError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
		return
	}
	s.logger.Debug("extract request",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("id", rep.ID),
		zap.String("status", string(rep.Status)),
	)
	s.respondJSON(w, http.StatusOK, models.ExtractResponse{
		ID:          rep.ID,
		Name:        name,
		ContentType: contentType,
		Status:      string(rep.Status),
		Text:        text.Value,
		Absent:      text.Absent,
	})
}

// rejectedCause prefixes the history cause of an extraction whose upload was
// refused with 413 after the observer had already recorded it.
const rejectedCause = "rejected with 413, upload exceeds size limit"

// markRejected notes in the stored record that the client never got the text.
func (s *Server) markRejected(r *http.Request, id string) {
	if s.storage == nil {
		return
	}
	rec, err := s.storage.GetRecord(r.Context(), id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("load rejected extraction failed", zap.String("id", id), zap.Error(err))
		}
		return
	}
	rec.Cause = rejectedCause + ": " + rec.Cause
	if err := s.storage.SaveRecord(r.Context(), rec); err != nil {
		s.logger.Warn("mark rejected extraction failed", zap.String("id", id), zap.Error(err))
	}
}

// uploadPart returns the first multipart part named "file".
func (s *Server) uploadPart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, errors.New("invalid multipart body")
	}
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			return nil, errors.New(`multipart field "file" is required`)
		}
		if err != nil {
			return nil, errors.New("invalid multipart body")
		}
		if p.FormName() == uploadField {
			return p, nil
		}
		_ = p.Close()
	}
}

// resolveContentType picks the identifier for an upload: an explicit override,
// then the declared media type, then detection from name and content.
// Generic declared types (octet-stream) fall through to detection.
func resolveContentType(override, declared, name string, body io.Reader) (string, io.Reader) {
	if override != "" {
		if ct := extract.ContentTypeForExtension(override); ct != "" {
			return ct, body
		}
		return extract.NormalizeContentType(override), body
	}
	if ct := extract.NormalizeContentType(declared); ct != "" && ct != "application/octet-stream" {
		return ct, body
	}
	return extract.DetectReader(name, body)
}

func (s *Server) handleListExtractions(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil || limit <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	recs, err := s.storage.ListRecords(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list extractions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []*models.ExtractionRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"extractions": recs})
}

func (s *Server) handleGetExtraction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.storage.GetRecord(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "extraction not found")
		return
	}
	if err != nil {
		s.logger.Error("get extraction failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.storage.CountByStatus(r.Context())
	if err != nil {
		s.logger.Error("status: count extractions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := models.StatusResponse{ByStatus: counts}
	for _, n := range counts {
		resp.Total += n
	}
	if usage, err := storage.DiskUsageBytes(s.diskPaths...); err == nil {
		resp.DiskUsageBytes = usage
	} else {
		s.logger.Debug("status: disk usage failed", zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
