package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/btmdesk/backend/src/config"
	"github.com/username/btmdesk/backend/src/database"
	"github.com/username/btmdesk/backend/src/handlers"
	"github.com/username/btmdesk/backend/src/logger"
	"github.com/username/btmdesk/backend/src/processors"
	"github.com/username/btmdesk/backend/src/security"
	"github.com/username/btmdesk/backend/src/services"
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
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Requested-With, Cookie, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "X-CSRF-Token, ETag")
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
	logger.L.Info("btmdesk backend server starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}
	if len(config.Cfg.CSRFAuthKey) < 32 {
		logger.L.Error("CSRF_AUTH_KEY must be at least 32 bytes long.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing report cache...")
	reportCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	logger.L.Info("Initializing services and handlers...")
	authService := security.NewAuthService(config.Cfg.JWTSecret)
	emailService := services.NewEmailService()
	userHandler := handlers.NewUserHandler(authService, emailService)

	pnlProcessor := processors.NewPnLProcessor()
	commissionProcessor := processors.NewCommissionProcessor()

	reportService := services.NewReportService(pnlProcessor, reportCache)
	uploadService := services.NewUploadService(reportService)
	transactionService := services.NewTransactionService()
	atmService := services.NewATMService(reportService)
	tickerService := services.NewTickerService(reportService)
	cashService := services.NewCashService()
	commissionService := services.NewCommissionService(commissionProcessor, reportService)

	uploadHandler := handlers.NewUploadHandler(uploadService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	atmHandler := handlers.NewATMHandler(atmService)
	tickerHandler := handlers.NewTickerHandler(tickerService)
	peopleHandler := handlers.NewPeopleHandler(cashService)
	cashHandler := handlers.NewCashHandler(cashService)
	reportHandler := handlers.NewReportHandler(reportService)
	commissionHandler := handlers.NewCommissionHandler(commissionService)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("GET /api/auth/csrf", handlers.GetCSRFToken)

	authActionRouter := http.NewServeMux()
	authActionRouter.HandleFunc("POST /login", userHandler.LoginUserHandler)
	authActionRouter.HandleFunc("POST /register", userHandler.RegisterUserHandler)
	authActionRouter.HandleFunc("POST /refresh", userHandler.RefreshTokenHandler)
	authActionRouter.HandleFunc("POST /logout", userHandler.AuthMiddleware(userHandler.LogoutUserHandler))
	authActionRouter.HandleFunc("POST /request-password-reset", userHandler.RequestPasswordResetHandler)
	authActionRouter.HandleFunc("POST /reset-password", userHandler.ResetPasswordHandler)

	apiRouter.Handle("/api/auth/", http.StripPrefix("/api/auth", handlers.CSRFMiddleware(config.Cfg.CSRFAuthKey)(authActionRouter)))

	csrfProtection := handlers.CSRFMiddleware(config.Cfg.CSRFAuthKey)
	applyCsrfAndAuth := func(handler http.HandlerFunc) http.Handler {
		return csrfProtection(http.HandlerFunc(userHandler.AuthMiddleware(handler)))
	}

	apiRouter.Handle("POST /api/upload", applyCsrfAndAuth(uploadHandler.HandleUpload))
	apiRouter.Handle("GET /api/uploads", applyCsrfAndAuth(uploadHandler.HandleListUploads))
	apiRouter.Handle("DELETE /api/uploads/{id}", applyCsrfAndAuth(uploadHandler.HandleDeleteUpload))

	apiRouter.Handle("GET /api/transactions", applyCsrfAndAuth(transactionHandler.HandleGetTransactions))

	apiRouter.Handle("GET /api/atms", applyCsrfAndAuth(atmHandler.HandleListATMs))
	apiRouter.Handle("POST /api/atms", applyCsrfAndAuth(atmHandler.HandleCreateATM))
	apiRouter.Handle("GET /api/atms/{id}", applyCsrfAndAuth(atmHandler.HandleGetATM))
	apiRouter.Handle("PUT /api/atms/{id}", applyCsrfAndAuth(atmHandler.HandleUpdateATM))
	apiRouter.Handle("DELETE /api/atms/{id}", applyCsrfAndAuth(atmHandler.HandleDeleteATM))

	apiRouter.Handle("GET /api/tickers", applyCsrfAndAuth(tickerHandler.HandleListTickers))
	apiRouter.Handle("PUT /api/tickers/{id}", applyCsrfAndAuth(tickerHandler.HandleUpdateTicker))
	apiRouter.Handle("POST /api/tickers/{id}/recalculate-fees", applyCsrfAndAuth(tickerHandler.HandleRecalculateFees))

	apiRouter.Handle("GET /api/people", applyCsrfAndAuth(peopleHandler.HandleListPeople))
	apiRouter.Handle("POST /api/people", applyCsrfAndAuth(peopleHandler.HandleCreatePerson))
	apiRouter.Handle("PUT /api/people/{id}", applyCsrfAndAuth(peopleHandler.HandleUpdatePerson))
	apiRouter.Handle("DELETE /api/people/{id}", applyCsrfAndAuth(peopleHandler.HandleDeletePerson))

	apiRouter.Handle("GET /api/sales-reps", applyCsrfAndAuth(peopleHandler.HandleListSalesReps))
	apiRouter.Handle("POST /api/sales-reps", applyCsrfAndAuth(peopleHandler.HandleCreateSalesRep))
	apiRouter.Handle("PUT /api/sales-reps/{id}", applyCsrfAndAuth(peopleHandler.HandleUpdateSalesRep))
	apiRouter.Handle("DELETE /api/sales-reps/{id}", applyCsrfAndAuth(peopleHandler.HandleDeleteSalesRep))

	apiRouter.Handle("GET /api/pickups", applyCsrfAndAuth(cashHandler.HandleListPickups))
	apiRouter.Handle("POST /api/pickups", applyCsrfAndAuth(cashHandler.HandleCreatePickup))
	apiRouter.Handle("DELETE /api/pickups/{id}", applyCsrfAndAuth(cashHandler.HandleDeletePickup))

	apiRouter.Handle("GET /api/deposits", applyCsrfAndAuth(cashHandler.HandleListDeposits))
	apiRouter.Handle("POST /api/deposits", applyCsrfAndAuth(cashHandler.HandleCreateDeposit))
	apiRouter.Handle("DELETE /api/deposits/{id}", applyCsrfAndAuth(cashHandler.HandleDeleteDeposit))
	apiRouter.Handle("POST /api/deposits/{id}/links", applyCsrfAndAuth(cashHandler.HandleLinkPickups))

	apiRouter.Handle("GET /api/reports/pnl", applyCsrfAndAuth(reportHandler.HandleGetProfitLoss))
	apiRouter.Handle("GET /api/reports/pnl/export", applyCsrfAndAuth(reportHandler.HandleExportProfitLoss))

	apiRouter.Handle("POST /api/commissions/compute", applyCsrfAndAuth(commissionHandler.HandleComputeCommissions))
	apiRouter.Handle("GET /api/commissions", applyCsrfAndAuth(commissionHandler.HandleListCommissions))

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "btmdesk backend is running"})
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
		WriteTimeout: 15 * time.Second,
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
