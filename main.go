package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/cors"

	"github.com/teamboard/teamboard/database"
	"github.com/teamboard/teamboard/handlers"
	"github.com/teamboard/teamboard/services"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := LoadConfig()
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// Initialize database
	db, err := database.InitDB(cfg.DBPath, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Stores over the document collections
	taskStore := database.NewTaskStore(db)
	presenceStore := database.NewPresenceStore(db)
	projectStore := database.NewProjectStore(db)
	shortcutStore := database.NewShortcutStore(db)

	// Services
	authService := services.NewAuthService(cfg.JWTSecret)
	todoSync := services.NewTodoSync(taskStore, logger)
	gate := services.NewAccessGate(presenceStore, logger)
	notifier := services.NewEmailNotifier(cfg.SMTP)

	// WebSocket hub for live board streams
	hub := services.NewHub(todoSync, presenceStore, logger)
	go hub.Run()

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, gate, logger)
	todoHandler := handlers.NewTodoHandler(todoSync, hub, logger)
	presenceHandler := handlers.NewPresenceHandler(presenceStore, gate, logger)
	projectHandler := handlers.NewProjectHandler(projectStore, logger)
	shortcutHandler := handlers.NewShortcutHandler(shortcutStore, logger)
	notifyHandler := handlers.NewNotifyHandler(notifier, logger)

	authMiddleware := handlers.NewAuthMiddleware(authService, cfg.AdminUIDs)

	// Setup router
	r := mux.NewRouter()

	// Auth routes
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.Handle("/api/auth/verify", authMiddleware.Auth(http.HandlerFunc(authHandler.Verify))).Methods("GET")

	// Beacon and sweep routes; the unload beacon cannot carry credentials
	r.HandleFunc("/api/offline", presenceHandler.Offline).Methods("GET")
	r.HandleFunc("/api/cleanup-users", presenceHandler.Cleanup).Methods("GET")
	r.HandleFunc("/api/email-notification", notifyHandler.EmailNotification).Methods("POST")

	// Protected routes
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(authMiddleware.Auth)

	protected.HandleFunc("/todos", todoHandler.List).Methods("GET")
	protected.HandleFunc("/todos/archived", todoHandler.ListArchived).Methods("GET")
	protected.HandleFunc("/todos", todoHandler.Create).Methods("POST")
	protected.HandleFunc("/todos/{id}/status", todoHandler.SetStatus).Methods("POST")
	protected.HandleFunc("/todos/{id}/archive", todoHandler.Archive).Methods("POST")
	protected.HandleFunc("/todos/{id}/restore", todoHandler.Restore).Methods("POST")

	protected.HandleFunc("/presence/heartbeat", presenceHandler.Heartbeat).Methods("POST")
	protected.HandleFunc("/online-users", presenceHandler.ListOnline).Methods("GET")

	protected.HandleFunc("/shortcuts", shortcutHandler.List).Methods("GET")
	protected.HandleFunc("/shortcuts", shortcutHandler.Create).Methods("POST")
	protected.HandleFunc("/shortcuts/{id}", shortcutHandler.Delete).Methods("DELETE")

	protected.HandleFunc("/projects", projectHandler.List).Methods("GET")
	protected.HandleFunc("/projects", projectHandler.Create).Methods("POST")
	protected.HandleFunc("/projects/{id}", projectHandler.Get).Methods("GET")
	protected.HandleFunc("/projects/{id}", projectHandler.Update).Methods("PATCH")
	protected.HandleFunc("/projects/{id}/archive", projectHandler.SetArchived).Methods("POST")
	protected.HandleFunc("/projects/{id}", projectHandler.Delete).Methods("DELETE")

	// WebSocket route for the live board stream
	protected.HandleFunc("/ws", todoHandler.HandleWebSocket)

	// Admin routes
	admin := r.PathPrefix("/api/users").Subrouter()
	admin.Use(authMiddleware.Auth, authMiddleware.RequireAdmin)
	admin.HandleFunc("/{uid}/grant-access", presenceHandler.GrantAccess).Methods("POST")

	// Setup CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // In production, change to your domain
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	// Start server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      c.Handler(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server starting", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
