package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eugenenazirov/pressroom/internal/fit"
	"github.com/eugenenazirov/pressroom/internal/report"
	"github.com/eugenenazirov/pressroom/internal/sizes"
	"github.com/eugenenazirov/pressroom/internal/storage"
	"github.com/eugenenazirov/pressroom/internal/workbook"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var defaultCategories = []string{"Paper", "Inks", "Chemicals", "Poly Films"}

// Handler wires the fit evaluator and inventory storage into HTTP handlers.
type Handler struct {
	evaluator fit.Evaluator
	storage   storage.Storage
	logger    *zap.Logger

	categories        []string
	fitCategory       string
	defaultMinPieces  int
	lowStockThreshold decimal.Decimal

	clock func() time.Time

	mu             sync.RWMutex
	stockUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithLogger sets the logger used for non-fatal warnings.
func WithLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithCategories sets the product categories and the one whose stock feeds
// the cut-fit calculator.
func WithCategories(categories []string, fitCategory string) HandlerOption {
	return func(h *Handler) {
		if len(categories) > 0 {
			h.categories = append([]string(nil), categories...)
		}
		if fitCategory != "" {
			h.fitCategory = fitCategory
		}
	}
}

// WithFitDefaults sets the minimum pieces per sheet applied when a request omits it.
func WithFitDefaults(minPieces int) HandlerOption {
	return func(h *Handler) {
		h.defaultMinPieces = minPieces
	}
}

// WithLowStockThreshold sets the default low-stock alert threshold.
func WithLowStockThreshold(threshold float64) HandlerOption {
	return func(h *Handler) {
		h.lowStockThreshold = decimal.NewFromFloat(threshold)
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(evaluator fit.Evaluator, store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		evaluator:         evaluator,
		storage:           store,
		logger:            zap.NewNop(),
		categories:        append([]string(nil), defaultCategories...),
		fitCategory:       defaultCategories[0],
		lowStockThreshold: decimal.NewFromInt(10),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.stockUpdatedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:         "ok",
		Timestamp:      h.clock(),
		StockUpdatedAt: h.currentStockUpdatedAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleFit(w http.ResponseWriter, r *http.Request) {
	piece, category, options, elapsed, ok := h.evaluateFitRequest(w, r)
	if !ok {
		return
	}

	resp := fitResponse{
		Requested:         piece,
		Category:          category,
		Options:           options,
		Count:             len(options),
		CalculationTimeMs: elapsed.Milliseconds(),
	}
	if len(options) == 0 {
		resp.Message = "No fitting options found for this size in current " + category + " stock"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleFitExport(w http.ResponseWriter, r *http.Request) {
	piece, _, options, _, ok := h.evaluateFitRequest(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := workbook.WriteFitResults(&buf, piece, options); err != nil {
		writeInternalError(w, err)
		return
	}
	writeXLSX(w, "fit-"+piece.String()+".xlsx", buf.Bytes())
}

// evaluateFitRequest decodes a fit request, reads the fit category's current
// stock and returns the ranked, threshold-filtered options. It writes the
// error response itself and returns ok=false on failure.
func (h *Handler) evaluateFitRequest(w http.ResponseWriter, r *http.Request) (sizes.Size, string, []fit.Result, time.Duration, bool) {
	var req fitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return sizes.Size{}, "", nil, 0, false
	}

	piece, ok := sizes.Parse(req.Size)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "Could not parse size", "no <width>x<height> pair found in "+strconv.Quote(req.Size), "Use a format like 15x20")
		return sizes.Size{}, "", nil, 0, false
	}
	if err := fit.ValidatePiece(piece); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid size", err.Error())
		return sizes.Size{}, "", nil, 0, false
	}

	category := h.fitCategory
	if req.Category != "" {
		resolved, found := h.resolveCategory(req.Category)
		if !found {
			writeError(w, http.StatusNotFound, "Unknown category", strconv.Quote(req.Category)+" is not a configured category")
			return sizes.Size{}, "", nil, 0, false
		}
		category = resolved
	}

	minPieces := h.defaultMinPieces
	if req.MinPieces != nil {
		if *req.MinPieces < 0 {
			writeError(w, http.StatusBadRequest, "Invalid request", "minPieces must not be negative")
			return sizes.Size{}, "", nil, 0, false
		}
		minPieces = *req.MinPieces
	}

	levels, err := h.storage.CurrentStock(category)
	if err != nil {
		writeInternalError(w, err)
		return sizes.Size{}, "", nil, 0, false
	}

	start := time.Now()
	options := h.evaluator.EvaluateOptions(piece, report.StockRows(levels))
	options = fit.FilterMinPieces(options, minPieces)
	elapsed := time.Since(start)

	return piece, category, options, elapsed, true
}

func (h *Handler) resolveCategory(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, c := range h.categories {
		if strings.EqualFold(c, raw) {
			return c, true
		}
	}
	return "", false
}

func (h *Handler) currentStockUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stockUpdatedAt
}

func (h *Handler) markStockUpdated() {
	h.mu.Lock()
	h.stockUpdatedAt = h.clock()
	h.mu.Unlock()
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type fitRequest struct {
	Size      string `json:"size"`
	Category  string `json:"category"`
	MinPieces *int   `json:"minPieces"`
}

type fitResponse struct {
	Requested         sizes.Size   `json:"requested"`
	Category          string       `json:"category"`
	Options           []fit.Result `json:"options"`
	Count             int          `json:"count"`
	Message           string       `json:"message,omitempty"`
	CalculationTimeMs int64        `json:"calculationTimeMs"`
}

type healthResponse struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	StockUpdatedAt time.Time `json:"stockUpdatedAt"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeXLSX(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}

// writeStorageError maps storage sentinels to HTTP statuses.
func writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrMissingCategory),
		errors.Is(err, storage.ErrUnknownTransactionType),
		errors.Is(err, storage.ErrInvalidQuantity),
		errors.Is(err, storage.ErrMissingTemplateName):
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, storage.ErrTemplateExists):
		writeError(w, http.StatusConflict, "Template exists", err.Error())
	case errors.Is(err, storage.ErrTemplateNotFound):
		writeError(w, http.StatusNotFound, "Template not found", err.Error())
	default:
		writeInternalError(w, err)
	}
}
