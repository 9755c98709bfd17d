package application

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/pressroom/internal/api"
	"github.com/eugenenazirov/pressroom/internal/config"
	"github.com/eugenenazirov/pressroom/internal/fit"
	"github.com/eugenenazirov/pressroom/internal/stockcache"
	"github.com/eugenenazirov/pressroom/internal/storage"
	"github.com/eugenenazirov/pressroom/internal/workbook"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage   storage.Storage
	evaluator fit.Evaluator
	handler   *api.Handler
	router    http.Handler
	logger    *zap.Logger
	server    *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	backend := storage.NewMemoryStorage()
	if cfg.SeedWorkbook != "" {
		if err := seedFromWorkbook(backend, cfg.SeedWorkbook, cfg.FitCategory, logger); err != nil {
			return nil, fmt.Errorf("failed to seed inventory: %w", err)
		}
	}
	store := stockcache.New(backend, cfg.StockCacheTTL, stockcache.WithMaxEntries(cfg.StockCacheSize))

	evaluator := fit.New()
	handler := api.NewHandler(evaluator, store,
		api.WithLogger(logger),
		api.WithCategories(cfg.Categories, cfg.FitCategory),
		api.WithFitDefaults(cfg.DefaultMinPieces),
		api.WithLowStockThreshold(cfg.LowStockThreshold),
	)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		storage:   store,
		evaluator: evaluator,
		handler:   handler,
		router:    apiRouter,
		logger:    logger,
		server:    NewServer(cfg, BuildRootHandler(apiRouter)),
	}, nil
}

// seedFromWorkbook replays the transactions of an .xlsx ledger into store
// under category. Rows the importer rejects are logged and skipped.
func seedFromWorkbook(store storage.Storage, path, category string, logger *zap.Logger) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	parsed, err := workbook.ReadTransactions(file, category)
	if err != nil {
		return err
	}
	for _, warning := range parsed.Warnings {
		logger.Warn("seed row skipped", zap.String("path", path), zap.String("reason", warning))
	}

	applied := 0
	for _, tx := range parsed.Transactions {
		if _, err := store.AddTransaction(tx); err != nil {
			logger.Warn("seed transaction rejected", zap.String("subcategory", tx.Subcategory), zap.Error(err))
			continue
		}
		applied++
	}
	logger.Info("inventory seeded",
		zap.String("path", path),
		zap.String("category", category),
		zap.Int("transactions", applied),
	)
	return nil
}

// BuildRootHandler mounts the API under /api/ and answers everything else
// with a JSON 404.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(notFoundResponse{Error: "Not found", Details: r.URL.Path})
	})
	return mux
}

type notFoundResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}
