package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/entry"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/export"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/extract"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/history"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/registrar"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/textsource"
)

const (
	defaultHistoryLimit = 20
	multipartMemory     = 8 << 20
)

type handler struct {
	svc    *entry.Service
	exp    *export.Service
	cfg    Config
	logger *slog.Logger
}

// AnalyzeRequest is the JSON body accepted by POST /analyze.
type AnalyzeRequest struct {
	Text string `json:"text"`
}

// AnalyzeResponse is returned by POST /analyze.
type AnalyzeResponse struct {
	Entry     history.Entry         `json:"entry"`
	Documents []entry.DocumentInfo  `json:"documents,omitempty"`
	NewValues int                   `json:"new_values"`
	Warnings  []extract.RuleFailure `json:"warnings,omitempty"`
	LLMUsed   bool                  `json:"llm_used,omitempty"`
}

// HistoryResponse is returned by GET /history.
type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
	Count   int             `json:"count"`
}

// FieldsResponse is returned by GET /fields.
type FieldsResponse struct {
	Fields map[string][]string `json:"fields"`
	Count  int                 `json:"count"`
}

// RegisterRequest is the body of POST /fields/custom.
type RegisterRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (h *handler) index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "ai-data-entry",
		"version": h.cfg.Version,
		"status":  "ok",
	})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.logger.Warn("health.degraded", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "stats": stats})
}

func (h *handler) analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)

	in, err := h.readAnalyzeInput(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	a, err := h.svc.Analyze(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AnalyzeResponse{
		Entry:     a.Entry,
		Documents: a.Documents,
		NewValues: a.NewValues,
		Warnings:  a.Failures,
		LLMUsed:   a.LLMUsed,
	})
}

// readAnalyzeInput accepts multipart forms, JSON and raw text bodies.
func (h *handler) readAnalyzeInput(r *http.Request) (entry.Input, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return entry.Input{}, badRequest("form", err)
		}
		in := entry.Input{Text: r.FormValue("text")}
		for _, key := range []string{"file", "files"} {
			for _, fh := range r.MultipartForm.File[key] {
				f, err := fh.Open()
				if err != nil {
					return entry.Input{}, badRequest(key, err)
				}
				data, err := io.ReadAll(f)
				f.Close()
				if err != nil {
					return entry.Input{}, badRequest(key, err)
				}
				in.Files = append(in.Files, entry.File{Name: fh.Filename, Data: data})
			}
		}
		return in, nil
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return entry.Input{}, badRequest("form", err)
		}
		return entry.Input{Text: r.PostForm.Get("text")}, nil
	case "text/plain":
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return entry.Input{}, badRequest("body", err)
		}
		return entry.Input{Text: string(data)}, nil
	default:
		var req AnalyzeRequest
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return entry.Input{}, badRequest("body", err)
		}
		return entry.Input{Text: req.Text}, nil
	}
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", raw)
			return
		}
		limit = n
	}
	entries := h.svc.Recent(limit)
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Entries: entries, Count: len(entries)})
}

func (h *handler) fields(w http.ResponseWriter, r *http.Request) {
	mem := h.svc.Fields()
	out := make(map[string][]string, len(mem))
	for name, values := range mem {
		sorted := append([]string(nil), values...)
		sort.Strings(sorted)
		out[name.String()] = sorted
	}
	writeJSON(w, http.StatusOK, FieldsResponse{Fields: out, Count: len(out)})
}

func (h *handler) registerCustom(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		req.Field = r.FormValue("field")
		req.Value = r.FormValue("value")
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	updated, err := h.svc.RegisterCustom(r.Context(), req.Field, req.Value)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry": updated})
}

func (h *handler) export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid format", err.Error())
		return
	}

	var buf bytes.Buffer
	if err := h.exp.Write(r.Context(), &buf, format, h.svc.Snapshot()); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, format.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// writeServiceError maps domain errors to status codes.
func (h *handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("http.failed", "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error", "")
		return
	}
	writeError(w, status, http.StatusText(status), err.Error())
}

func statusFor(err error) int {
	var verr *entry.ValidationError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, registrar.ErrInvalidRegistration):
		return http.StatusBadRequest
	case errors.Is(err, registrar.ErrNoActiveResult):
		return http.StatusConflict
	case errors.Is(err, textsource.ErrUnsupported):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, textsource.ErrUndecodable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, textsource.ErrTooLarge), errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, textsource.ErrOCRUnavailable):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(field string, err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("reading %s: %w", field, err)
	}
	return &entry.ValidationError{Field: field, Message: strings.TrimSpace(err.Error()), Err: err}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, ErrorResponse{Error: message, Details: details})
}
