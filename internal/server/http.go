package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/common"
	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
	"github.com/joseph-ayodele/fleet-tracker/internal/export"
	"github.com/joseph-ayodele/fleet-tracker/internal/pipeline"
	"github.com/joseph-ayodele/fleet-tracker/internal/repository"
	"github.com/joseph-ayodele/fleet-tracker/internal/utils"
)

// multipartSlack covers boundaries and the vehicle_id part on top of the
// document itself.
const multipartSlack = 1 << 20

// DocumentProcessor is satisfied by *pipeline.Processor.
type DocumentProcessor interface {
	Process(ctx context.Context, doc *entity.UploadedDocument, hint *uuid.UUID) (*pipeline.Outcome, error)
}

// Pinger reports store health.
type Pinger interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

type Deps struct {
	Processor      DocumentProcessor
	Vehicles       repository.VehicleRepository
	Exporter       *export.Service
	DB             Pinger
	MaxUploadBytes int64
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

type handlers struct {
	Deps
}

// NewRouter builds the HTTP API.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = constants.MaxUploadBytes
	}
	h := &handlers{Deps: d}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestContext)
	r.Use(requestLogger(d.Logger))
	r.Use(chimiddleware.Recoverer)
	if d.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(d.RequestTimeout))
	}

	r.Get("/health", h.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", h.uploadDocument)
		r.Get("/vehicles", h.listVehicles)
		if d.Exporter != nil {
			r.Get("/exports/maintenance.xlsx", h.exportMaintenance)
		}
	})
	return r
}

// requestContext copies chi's request ID into the context key the pipeline logs.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimiddleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(common.WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http.request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"request_id", chimiddleware.GetReqID(r.Context()),
				"elapsed_ms", time.Since(start).Milliseconds())
		})
	}
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		if err := h.DB.HealthCheck(r.Context(), 3*time.Second); err != nil {
			h.Logger.Error("http.health.db_failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *handlers) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes+multipartSlack)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			h.writeError(w, http.StatusRequestEntityTooLarge, common.NewKindError(common.KindUnsupportedInput, h.tooLargeMessage(), err))
			return
		}
		h.writeError(w, http.StatusBadRequest, common.NewKindError(common.KindUnsupportedInput, "request must be multipart/form-data", err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	hint, err := parseVehicleID(r.FormValue("vehicle_id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, common.NewKindError(common.KindUnsupportedInput, "no document was uploaded", err))
		return
	}
	defer file.Close()
	if header.Size > h.MaxUploadBytes {
		h.writeError(w, http.StatusRequestEntityTooLarge, common.NewKindError(common.KindUnsupportedInput, h.tooLargeMessage(), nil))
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, h.MaxUploadBytes+1))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, common.NewKindError(common.KindUnsupportedInput, "document could not be read", err))
		return
	}
	if int64(len(content)) > h.MaxUploadBytes {
		h.writeError(w, http.StatusRequestEntityTooLarge, common.NewKindError(common.KindUnsupportedInput, h.tooLargeMessage(), nil))
		return
	}

	doc := entity.NewUploadedDocument(header.Filename, header.Header.Get("Content-Type"), content)
	out, err := h.Processor.Process(r.Context(), doc, hint)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, utils.OutcomeToMap(out))
	case common.IsSoftFailure(err):
		writeJSON(w, http.StatusUnprocessableEntity, utils.OutcomeToMap(out))
	default:
		h.writeError(w, common.HTTPStatus(common.KindOf(err)), err)
	}
}

func (h *handlers) listVehicles(w http.ResponseWriter, r *http.Request) {
	list := h.Vehicles.ListAll
	if strings.EqualFold(r.URL.Query().Get("active"), "true") {
		list = h.Vehicles.ListActive
	}
	vs, err := list(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, common.NewKindError(common.KindPersistenceFailure, "the vehicle roster is unavailable", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vehicles": utils.VehiclesToList(vs)})
}

func (h *handlers) exportMaintenance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	vid, err := parseVehicleID(q.Get("vehicle_id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	from, err := utils.ParseOptionalYMD(q.Get("from"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, common.NewKindError(common.KindConfig, "from must be YYYY-MM-DD", err))
		return
	}
	to, err := utils.ParseOptionalYMD(q.Get("to"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, common.NewKindError(common.KindConfig, "to must be YYYY-MM-DD", err))
		return
	}

	xlsx, err := h.Exporter.ExportMaintenanceXLSX(r.Context(), vid, from, to)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, common.NewKindError(common.KindPersistenceFailure, "export failed", err))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="maintenance.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(xlsx)
}

func (h *handlers) tooLargeMessage() string {
	return fmt.Sprintf("document exceeds the %d MB limit", h.MaxUploadBytes>>20)
}

func (h *handlers) writeError(w http.ResponseWriter, status int, err error) {
	kind := common.KindOf(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("http.request.failed", "kind", kind, "err", err)
	}
	writeJSON(w, status, map[string]any{
		"kind":    string(kind),
		"message": common.PublicMessage(err),
	})
}

func parseVehicleID(s string) (*uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v := common.NewValidator().Field("vehicle_id", s, common.UUID)
	if v.HasErrors() {
		return nil, common.NewKindError(common.KindConfig, "vehicle_id must be a UUID", v.Error())
	}
	id := uuid.MustParse(s)
	return &id, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
