package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"freshersTicketAPI/handlers"
	"freshersTicketAPI/internal/rtdb"
	"freshersTicketAPI/middleware"
	"freshersTicketAPI/services"
)

var (
	store            rtdb.Gateway
	eventService     *services.EventService
	userService      *services.UserService
	ticketService    *services.TicketService
	accessKeyService *services.AccessKeyService
	publicOrigin     string
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gateway, err := rtdb.NewFirebaseGatewayFromEnv(ctx, "./serviceAccountKey.json")
	if err != nil {
		log.Fatal("Failed to initialize realtime database:", err)
	}
	store = gateway
	log.Println("Successfully connected to Firebase Realtime Database")

	publicOrigin = os.Getenv("PUBLIC_ORIGIN")
	if publicOrigin == "" {
		publicOrigin = "http://localhost:3333"
	}

	eventService = services.NewEventService(store)
	userService = services.NewUserService(store)
	ticketService = services.NewTicketService(store, eventService)
	accessKeyService = services.NewAccessKeyService(store, eventService)

	middleware.InitPrometheus()
}

func main() {
	// Initialize handlers
	ticketHandler := handlers.NewTicketHandler(ticketService, userService, publicOrigin)
	adminHandler := handlers.NewAdminHandler(ticketService, accessKeyService, eventService)
	eventHandler := handlers.NewEventHandler(eventService)
	userHandler := handlers.NewUserHandler(userService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		var probe interface{}
		if err := store.Get(ctx, "eventDetails", &probe); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "freshers-ticket-api"}`))
	}).Methods("GET")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes: event info and the QR verification lookup
	api.HandleFunc("/event-details", eventHandler.GetEventDetails).Methods("GET")
	api.HandleFunc("/verify-ticket/{ticketID}", ticketHandler.VerifyTicket).Methods("GET")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/user/session", userHandler.EnsureSession).Methods("POST")
	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/tickets", ticketHandler.GetMyTickets).Methods("GET")
	protected.HandleFunc("/tickets/redeem", ticketHandler.RedeemTicket).Methods("POST")

	// -------------------------------------------------------------------------
	// ADMIN ROUTES (REQUIRE ADMIN ROLE)
	// -------------------------------------------------------------------------
	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AdminAuthMiddleware)

	admin.HandleFunc("/access-keys", adminHandler.GenerateAccessKey).Methods("POST")
	admin.HandleFunc("/access-keys", adminHandler.ListAccessKeys).Methods("GET")
	admin.HandleFunc("/access-keys/{keyID}/deactivate", adminHandler.DeactivateAccessKey).Methods("POST")
	admin.HandleFunc("/tickets", adminHandler.GetAllTickets).Methods("GET")
	admin.HandleFunc("/tickets/scan", adminHandler.ScanTicket).Methods("POST")
	admin.HandleFunc("/analytics", adminHandler.GetAnalytics).Methods("GET")
	admin.HandleFunc("/event-details", adminHandler.UpdateEventDetails).Methods("PUT")

	// CORS configuration
	allowedOrigins := []string{"*"}
	if env := os.Getenv("ALLOWED_ORIGINS"); env != "" {
		allowedOrigins = strings.Split(env, ",")
	}
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins(allowedOrigins),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
