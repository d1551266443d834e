package main

import (
	"context"
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/ikppramesh/everypaisa/backend/src/config"
	"github.com/ikppramesh/everypaisa/backend/src/database"
	"github.com/ikppramesh/everypaisa/backend/src/handlers"
	"github.com/ikppramesh/everypaisa/backend/src/ledger"
	"github.com/ikppramesh/everypaisa/backend/src/logger"
	"github.com/ikppramesh/everypaisa/backend/src/processors"
	"github.com/ikppramesh/everypaisa/backend/src/services"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("EveryPaisa SMS pipeline starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing caches...")
	categoryCache := cache.New(15*time.Minute, 30*time.Minute)
	statusCache := cache.New(cache.NoExpiration, 0)

	logger.L.Info("Initializing services and handlers...")
	txnLedger := ledger.NewSQLLedger(database.DB, config.Cfg.RestoreChunkSize)
	categorizer := processors.NewKeywordCategorizer(txnLedger, categoryCache)
	txnProcessor := processors.NewTransactionProcessor(txnLedger, categorizer)
	refundProcessor := processors.NewRefundProcessor(txnLedger, config.Cfg.RefundLookbackDays)

	smsService := services.NewSmsService(txnLedger, txnProcessor, refundProcessor, statusCache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := services.NewListener(smsService, config.Cfg.ListenerQueueSize)
	listener.Start(ctx)

	scanHandler := handlers.NewScanHandler(smsService, listener)
	txHandler := handlers.NewTransactionHandler(txnLedger)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("POST /api/scan", scanHandler.HandleScanInbox)
	apiRouter.HandleFunc("GET /api/scan/status", scanHandler.HandleScanStatus)
	apiRouter.HandleFunc("POST /api/sms", scanHandler.HandleLiveMessage)
	apiRouter.HandleFunc("POST /api/sync", scanHandler.HandleSyncInbox)
	apiRouter.HandleFunc("GET /api/transactions", txHandler.HandleGetTransactions)

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "EveryPaisa backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
