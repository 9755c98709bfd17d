package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eugenenazirov/pressroom/internal/report"
	"github.com/eugenenazirov/pressroom/internal/storage"
	"github.com/eugenenazirov/pressroom/internal/workbook"
)

const (
	defaultRecentLimit = 10
	maxUploadBytes     = 10 << 20
	dateLayout         = "2006-01-02"
)

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	_ = r
	writeJSON(w, http.StatusOK, categoriesResponse{
		Categories:  h.categories,
		FitCategory: h.fitCategory,
	})
}

func (h *Handler) handleCurrentStock(w http.ResponseWriter, r *http.Request) {
	category, ok := h.categoryFromPath(w, r)
	if !ok {
		return
	}

	levels, err := h.storage.CurrentStock(category)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stockResponse{
		Category: category,
		Items:    toStockItems(levels),
	})
}

func (h *Handler) handleStockExport(w http.ResponseWriter, r *http.Request) {
	category, ok := h.categoryFromPath(w, r)
	if !ok {
		return
	}

	levels, err := h.storage.CurrentStock(category)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := workbook.WriteStock(&buf, levels); err != nil {
		writeInternalError(w, err)
		return
	}
	writeXLSX(w, strings.ToLower(strings.ReplaceAll(category, " ", "-"))+"-stock.xlsx", buf.Bytes())
}

func (h *Handler) handleSubcategories(w http.ResponseWriter, r *http.Request) {
	category, ok := h.categoryFromPath(w, r)
	if !ok {
		return
	}

	subs, err := h.storage.Subcategories(category)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subcategoriesResponse{Category: category, Subcategories: subs})
}

func (h *Handler) handleDeleteSubcategory(w http.ResponseWriter, r *http.Request) {
	category, ok := h.categoryFromPath(w, r)
	if !ok {
		return
	}
	subcategory := r.PathValue("subcategory")
	deleteTx := r.URL.Query().Get("transactions") == "true"

	removedStock, removedTx, err := h.storage.DeleteSubcategory(category, subcategory, deleteTx)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if removedStock > 0 || removedTx > 0 {
		h.markStockUpdated()
	}
	writeJSON(w, http.StatusOK, deleteSubcategoryResponse{
		RemovedStock:        removedStock,
		RemovedTransactions: removedTx,
	})
}

func (h *Handler) handleTransactionHistory(w http.ResponseWriter, r *http.Request) {
	category, ok := h.categoryFromPath(w, r)
	if !ok {
		return
	}
	limit, ok := intQuery(w, r, "limit", 0)
	if !ok {
		return
	}

	txs, err := h.storage.TransactionHistory(category, r.URL.Query().Get("subcategory"), limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionsResponse{Transactions: toTransactionItems(txs)})
}

func (h *Handler) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	limit, ok := intQuery(w, r, "limit", defaultRecentLimit)
	if !ok {
		return
	}

	txs, err := h.storage.RecentTransactions(limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionsResponse{Transactions: toTransactionItems(txs)})
}

func (h *Handler) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	category, found := h.resolveCategory(req.Category)
	if !found {
		writeError(w, http.StatusBadRequest, "Unknown category", strconv.Quote(req.Category)+" is not a configured category")
		return
	}

	var date time.Time
	if req.Date != "" {
		parsed, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request", "date must use YYYY-MM-DD")
			return
		}
		date = parsed
	}

	tx, err := h.storage.AddTransaction(storage.NewTransaction{
		Category:    category,
		Subcategory: req.Subcategory,
		Type:        storage.TransactionType(req.TransactionType),
		Quantity:    req.Quantity,
		Date:        date,
		Supplier:    req.Supplier,
		Notes:       req.Notes,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}
	h.markStockUpdated()

	if tx.Clamped {
		h.logger.Warn("stock out exceeded remaining quantity, clamped to zero",
			zap.String("category", tx.Category),
			zap.String("subcategory", tx.Subcategory),
			zap.String("quantity", tx.Quantity.String()),
			zap.String("request_id", requestIDFromContext(r.Context())),
		)
	}
	writeJSON(w, http.StatusCreated, toTransactionItem(tx))
}

func (h *Handler) handleUploadTransactions(w http.ResponseWriter, r *http.Request) {
	category, ok := h.categoryFromPath(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload", "expected a multipart form with an .xlsx \"file\" field")
		return
	}
	defer file.Close()

	parsed, err := workbook.ReadTransactions(file, category)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid workbook", err.Error())
		return
	}

	warnings := append([]string{}, parsed.Warnings...)
	imported := 0
	for i, tx := range parsed.Transactions {
		if _, err := h.storage.AddTransaction(tx); err != nil {
			warnings = append(warnings, "Transaction "+strconv.Itoa(i+1)+": "+err.Error())
			continue
		}
		imported++
	}
	if imported > 0 {
		h.markStockUpdated()
	}

	h.logger.Info("bulk upload processed",
		zap.String("category", category),
		zap.Int("imported", imported),
		zap.Int("skipped", len(warnings)),
	)
	writeJSON(w, http.StatusOK, uploadResponse{
		Category: category,
		Imported: imported,
		Skipped:  len(warnings),
		Warnings: warnings,
	})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	from, ok := dateQuery(w, r, "from")
	if !ok {
		return
	}
	to, ok := dateQuery(w, r, "to")
	if !ok {
		return
	}
	if !to.IsZero() {
		// "to" names a whole day.
		to = to.Add(24*time.Hour - time.Nanosecond)
	}

	txs, err := h.storage.AllTransactions()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if raw := r.URL.Query().Get("category"); raw != "" {
		category, found := h.resolveCategory(raw)
		if !found {
			writeError(w, http.StatusNotFound, "Unknown category", strconv.Quote(raw)+" is not a configured category")
			return
		}
		filtered := txs[:0]
		for _, tx := range txs {
			if tx.Category == category {
				filtered = append(filtered, tx)
			}
		}
		txs = filtered
	}

	summary := report.Summarize(report.FilterByDate(txs, from, to))
	writeJSON(w, http.StatusOK, summaryResponse{
		TotalTransactions: summary.TotalTransactions,
		TotalStockIn:      summary.TotalStockIn.InexactFloat64(),
		TotalStockOut:     summary.TotalStockOut.InexactFloat64(),
		NetChange:         summary.NetChange.InexactFloat64(),
	})
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	threshold := h.lowStockThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil || parsed.IsNegative() {
			writeError(w, http.StatusBadRequest, "Invalid request", "threshold must be a non-negative number")
			return
		}
		threshold = parsed
	}

	resp := lowStockResponse{
		Threshold:  threshold.InexactFloat64(),
		Categories: make(map[string][]stockItem, len(h.categories)),
	}
	for _, category := range h.categories {
		levels, err := h.storage.CurrentStock(category)
		if err != nil {
			writeInternalError(w, err)
			return
		}
		low := report.LowStock(levels, threshold)
		if len(low) > 0 {
			resp.Categories[category] = toStockItems(low)
			resp.Total += len(low)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	category, ok := h.categoryFromPath(w, r)
	if !ok {
		return
	}

	templates, err := h.storage.Templates(category)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	items := make([]templateItem, 0, len(templates))
	for _, t := range templates {
		items = append(items, toTemplateItem(t))
	}
	writeJSON(w, http.StatusOK, templatesResponse{Category: category, Templates: items})
}

func (h *Handler) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	category, ok := h.categoryFromPath(w, r)
	if !ok {
		return
	}

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	t, err := h.storage.SaveTemplate(req.Name, category, req.Subcategory, req.Supplier)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTemplateItem(t))
}

func (h *Handler) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	category, ok := h.categoryFromPath(w, r)
	if !ok {
		return
	}

	t, err := h.storage.TemplateByName(category, r.PathValue("name"))
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateItem(t))
}

func (h *Handler) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	category, ok := h.categoryFromPath(w, r)
	if !ok {
		return
	}

	if err := h.storage.DeleteTemplate(category, r.PathValue("name")); err != nil {
		writeStorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) categoryFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := r.PathValue("category")
	category, found := h.resolveCategory(raw)
	if !found {
		writeError(w, http.StatusNotFound, "Unknown category", strconv.Quote(raw)+" is not a configured category")
		return "", false
	}
	return category, true
}

func intQuery(w http.ResponseWriter, r *http.Request, key string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		writeError(w, http.StatusBadRequest, "Invalid request", key+" must be a non-negative integer")
		return 0, false
	}
	return value, true
}

func dateQuery(w http.ResponseWriter, r *http.Request, key string) (time.Time, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", key+" must use YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}

type transactionRequest struct {
	Category        string          `json:"category"`
	Subcategory     string          `json:"subcategory"`
	TransactionType string          `json:"transactionType"`
	Quantity        decimal.Decimal `json:"quantity"`
	Date            string          `json:"date"`
	Supplier        string          `json:"supplier"`
	Notes           string          `json:"notes"`
}

type templateRequest struct {
	Name        string `json:"name"`
	Subcategory string `json:"subcategory"`
	Supplier    string `json:"supplier"`
}

type categoriesResponse struct {
	Categories  []string `json:"categories"`
	FitCategory string   `json:"fitCategory"`
}

type stockItem struct {
	Category     string    `json:"category"`
	Subcategory  string    `json:"subcategory"`
	RemainingQty float64   `json:"remainingQty"`
	Supplier     string    `json:"supplier,omitempty"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

type stockResponse struct {
	Category string      `json:"category"`
	Items    []stockItem `json:"items"`
}

type subcategoriesResponse struct {
	Category      string   `json:"category"`
	Subcategories []string `json:"subcategories"`
}

type deleteSubcategoryResponse struct {
	RemovedStock        int `json:"removedStock"`
	RemovedTransactions int `json:"removedTransactions"`
}

type transactionItem struct {
	ID              string    `json:"id"`
	Category        string    `json:"category"`
	Subcategory     string    `json:"subcategory"`
	TransactionType string    `json:"transactionType"`
	Quantity        float64   `json:"quantity"`
	Date            string    `json:"date"`
	Supplier        string    `json:"supplier,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	Clamped         bool      `json:"clamped,omitempty"`
}

type transactionsResponse struct {
	Transactions []transactionItem `json:"transactions"`
}

type uploadResponse struct {
	Category string   `json:"category"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Warnings []string `json:"warnings,omitempty"`
}

type summaryResponse struct {
	TotalTransactions int     `json:"totalTransactions"`
	TotalStockIn      float64 `json:"totalStockIn"`
	TotalStockOut     float64 `json:"totalStockOut"`
	NetChange         float64 `json:"netChange"`
}

type lowStockResponse struct {
	Threshold  float64                `json:"threshold"`
	Total      int                    `json:"total"`
	Categories map[string][]stockItem `json:"categories"`
}

type templateItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory"`
	Supplier    string    `json:"supplier,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type templatesResponse struct {
	Category  string         `json:"category"`
	Templates []templateItem `json:"templates"`
}

func toStockItems(levels []storage.StockLevel) []stockItem {
	items := make([]stockItem, 0, len(levels))
	for _, level := range levels {
		items = append(items, stockItem{
			Category:     level.Category,
			Subcategory:  level.Subcategory,
			RemainingQty: level.RemainingQty.InexactFloat64(),
			Supplier:     level.Supplier,
			LastUpdated:  level.LastUpdated,
		})
	}
	return items
}

func toTransactionItem(tx storage.Transaction) transactionItem {
	return transactionItem{
		ID:              tx.ID,
		Category:        tx.Category,
		Subcategory:     tx.Subcategory,
		TransactionType: string(tx.Type),
		Quantity:        tx.Quantity.InexactFloat64(),
		Date:            tx.Date.Format(dateLayout),
		Supplier:        tx.Supplier,
		Notes:           tx.Notes,
		CreatedAt:       tx.CreatedAt,
		Clamped:         tx.Clamped,
	}
}

func toTransactionItems(txs []storage.Transaction) []transactionItem {
	items := make([]transactionItem, 0, len(txs))
	for _, tx := range txs {
		items = append(items, toTransactionItem(tx))
	}
	return items
}

func toTemplateItem(t storage.Template) templateItem {
	return templateItem{
		ID:          t.ID,
		Name:        t.Name,
		Category:    t.Category,
		Subcategory: t.Subcategory,
		Supplier:    t.Supplier,
		CreatedAt:   t.CreatedAt,
	}
}
