package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/tutor-crm/backend/internal/auth"
	"github.com/tutor-crm/backend/internal/database"
	"github.com/tutor-crm/backend/internal/generator"
	"github.com/tutor-crm/backend/internal/homework"
	"github.com/tutor-crm/backend/internal/middleware"
)

func main() {
	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize handlers
	authHandler := auth.NewHandler(db)

	registry := generator.NewRegistry(generator.ConfigFromEnv())
	hwStore := homework.NewStore(db)
	hwService := homework.NewService(hwStore, registry)
	hwHandler := homework.NewHandler(hwService, hwStore)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")

	protected.HandleFunc("/homework/generate", hwHandler.Generate).Methods("POST")
	protected.HandleFunc("/homework", hwHandler.List).Methods("GET")
	protected.HandleFunc("/homework/{id:[0-9]+}", hwHandler.Get).Methods("GET")
	protected.HandleFunc("/homework/{id:[0-9]+}", hwHandler.Delete).Methods("DELETE")
	protected.HandleFunc("/homework/{id:[0-9]+}/sent", hwHandler.MarkSent).Methods("POST")
	protected.HandleFunc("/subscription", hwHandler.Subscription).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
