// Package handlers provides HTTP handlers for the decode API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Rkibbe123/app-datafabric/internal/api/middleware"
	"github.com/Rkibbe123/app-datafabric/internal/infrastructure/postgres"
	"github.com/Rkibbe123/app-datafabric/internal/observability/errsink"
	"github.com/Rkibbe123/app-datafabric/internal/x12/decode"
	"github.com/Rkibbe123/app-datafabric/pkg/circuitbreaker"
)

// maxErrorLen caps decode error text returned to clients
const maxErrorLen = 256

// rejection is the body of a 422. The error text is redacted like error sink
// reports.
type rejection struct {
	Error     string `json:"error"`
	ErrorID   string `json:"error_id"`
	RequestID string `json:"request_id,omitempty"`
}

// RecordStore is the persistence the handler needs
type RecordStore interface {
	SaveResult(ctx context.Context, res *decode.Result) (postgres.SaveSummary, error)
	GetRecord(ctx context.Context, id string) (*postgres.StoredRecord, error)
}

// InterchangeHandler decodes posted interchanges and serves stored records
type InterchangeHandler struct {
	decoder *decode.Decoder
	store   RecordStore
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewInterchangeHandler creates a handler. store may be nil, in which case
// persistence is unavailable and lookups return 503.
func NewInterchangeHandler(decoder *decode.Decoder, store RecordStore, logger *zap.Logger) *InterchangeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InterchangeHandler{
		decoder: decoder,
		store:   store,
		logger:  logger,
		tracer:  otel.Tracer("interchange-handler"),
	}
}

// Routes returns the handler routes
func (h *InterchangeHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/interchanges", h.Decode)
	r.Get("/transactions/{id}", h.GetTransaction)
	return r
}

// DecodeResponse is the decode result plus, when persisted, what was saved
type DecodeResponse struct {
	*decode.Result
	Saved *postgres.SaveSummary `json:"saved,omitempty"`
}

// Decode handles POST /interchanges. The body is the raw interchange text.
// With ?persist=true the result is also stored and queued for relay.
func (h *InterchangeHandler) Decode(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "decode_interchange")
	defer span.End()

	persist := false
	if v := r.URL.Query().Get("persist"); v != "" {
		var err error
		if persist, err = strconv.ParseBool(v); err != nil {
			middleware.WriteError(w, "persist must be a boolean", http.StatusBadRequest)
			return
		}
	}
	if persist && h.store == nil {
		middleware.WriteError(w, "persistence is not configured", http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, "interchange exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes", http.StatusRequestEntityTooLarge)
			return
		}
		middleware.WriteError(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.Int("body_bytes", len(body)))

	res, err := h.decoder.Decode(ctx, string(body))
	if err != nil {
		span.RecordError(err)
		rejected := rejection{
			Error:     errsink.Sanitize(err.Error(), maxErrorLen),
			ErrorID:   errsink.ErrorID(err),
			RequestID: middleware.GetRequestID(ctx),
		}
		h.logger.Warn("interchange rejected",
			zap.String("request_id", rejected.RequestID),
			zap.String("error_id", rejected.ErrorID),
			zap.String("error", rejected.Error))
		writeJSON(w, http.StatusUnprocessableEntity, rejected)
		return
	}
	span.SetAttributes(
		attribute.String("batch_id", res.BatchID),
		attribute.Int("records", len(res.Records)),
		attribute.Int("structural_errors", len(res.StructuralErrors)))

	resp := DecodeResponse{Result: res}
	if persist {
		sum, err := h.store.SaveResult(ctx, res)
		if err != nil {
			span.RecordError(err)
			h.logger.Error("save failed",
				zap.String("batch_id", res.BatchID),
				zap.Error(err))
			if errors.Is(err, circuitbreaker.ErrOpen) {
				w.Header().Set("Retry-After", "30")
				middleware.WriteError(w, "storage temporarily unavailable", http.StatusServiceUnavailable)
				return
			}
			middleware.WriteError(w, "failed to save decoded records", http.StatusInternalServerError)
			return
		}
		resp.Saved = &sum
	}

	h.logger.Info("interchange decoded",
		zap.String("batch_id", res.BatchID),
		zap.String("interchange_control", res.Interchange.ControlNumber),
		zap.String("request_id", middleware.GetRequestID(ctx)),
		zap.String("client_id", middleware.GetClientID(ctx)),
		zap.Int("records", len(res.Records)),
		zap.Int("structural_errors", len(res.StructuralErrors)),
		zap.Bool("persisted", persist),
	)

	status := http.StatusOK
	if persist {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

// GetTransaction handles GET /transactions/{id}
func (h *InterchangeHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		middleware.WriteError(w, "id must be a UUID", http.StatusBadRequest)
		return
	}
	if h.store == nil {
		middleware.WriteError(w, "persistence is not configured", http.StatusServiceUnavailable)
		return
	}

	rec, err := h.store.GetRecord(r.Context(), id)
	switch {
	case errors.Is(err, postgres.ErrNotFound):
		middleware.WriteError(w, "transaction not found", http.StatusNotFound)
		return
	case err != nil:
		h.logger.Error("lookup failed", zap.String("id", id), zap.Error(err))
		middleware.WriteError(w, "failed to load transaction", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
