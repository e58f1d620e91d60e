// cmd/api/main.go
// Main entry point for the application
// This file bootstraps all components and starts the server

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Internal packages
	"github.com/imadgeboyega/orbit-backend/internal/common/database"
	"github.com/imadgeboyega/orbit-backend/internal/config"
	"github.com/imadgeboyega/orbit-backend/internal/matchmaking"
	"github.com/imadgeboyega/orbit-backend/internal/notify"
	"github.com/imadgeboyega/orbit-backend/internal/profiles"
	"github.com/imadgeboyega/orbit-backend/internal/relations"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	log.Println("========================================")
	log.Println("🚀 Starting Orbit Recommendation API")
	log.Println("========================================")

	// 1. Load environment variables
	log.Println("📁 Step 1: Loading .env file...")
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: No .env file found (%v), using environment variables", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// 2. Load configuration
	log.Println("\n📋 Step 2: Loading configuration...")
	cfg := config.Load()
	log.Println("✅ Configuration loaded")

	// 3. Validate configuration
	log.Println("\n✔️  Step 3: Validating configuration...")
	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Configuration validation failed:", err)
	}
	log.Println("✅ Configuration is valid")

	// 4. Connect to PostgreSQL
	log.Println("\n🗄️  Step 4: Connecting to PostgreSQL...")
	db, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("❌ Failed to connect to PostgreSQL:", err)
	}
	defer db.Close()
	log.Println("✅ Connected to PostgreSQL successfully")

	// 5. Connect to Redis (optional)
	log.Println("\n📮 Step 5: Connecting to Redis...")
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClientFromURL(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable (%v), continuing without profile cache", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Println("✅ Connected to Redis successfully")
		}
	} else {
		log.Println("⚠️  Redis URL not configured, skipping Redis connection")
	}

	// 6. Run database migrations
	log.Println("\n🔨 Step 6: Running database migrations...")
	if err := runMigrations(db); err != nil {
		log.Fatal("❌ Failed to run migrations: ", err)
	}
	log.Println("✅ Database migrations completed")

	// 7. Initialize notification provider
	log.Println("\n📧 Step 7: Initializing email notifier...")
	var notifier notify.Notifier
	switch cfg.EmailProvider {
	case "sendgrid":
		notifier = notify.NewSendGridNotifier(cfg.SendGridAPIKey, cfg.EmailFrom)
		log.Println("   ✅ Using SendGrid for emails")
	default:
		notifier = notify.NewMockNotifier()
		log.Println("   ⚠️  Using mock email provider (development mode)")
	}

	// 8. Initialize profiles module
	log.Println("\n👤 Step 8: Initializing profiles module...")
	profilesRepo := profiles.NewPostgresRepository(db)
	profilesService := profiles.NewService(profilesRepo, redisClient, cfg.ProfileCacheTTL)
	log.Println("✅ Profiles module initialized")

	// 9. Initialize relations module
	log.Println("\n🤝 Step 9: Initializing relations module...")
	relationsRepo := relations.NewPostgresRepository(db)
	relationsService := relations.NewService(relationsRepo, notifier)
	relationsHandler := relations.NewHandler(relationsService)
	log.Println("✅ Relations module initialized")

	// 10. Initialize matchmaking module
	log.Println("\n💫 Step 10: Initializing matchmaking module...")

	generator, err := matchmaking.NewOpenAIGenerator(&matchmaking.GeneratorConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
	})
	if err != nil {
		log.Fatal("❌ Failed to create reason generator: ", err)
	}

	selector := matchmaking.NewSelector(
		profiles.NewCompositeIndex(db),
		profiles.NewBasicIndex(db),
		profiles.NewTagIndex(db),
		cfg.LookupTimeout,
	)

	matchmakingRepo := matchmaking.NewPostgresRepository(db)
	reasonCache := matchmaking.NewReasonCache(matchmakingRepo, profilesService, generator, cfg.ReasonTimeout)
	matchmakingService := matchmaking.NewService(matchmakingRepo, profilesService, relationsService, selector, reasonCache)
	matchmakingHandler := matchmaking.NewHandler(matchmakingService)
	log.Println("✅ Matchmaking module initialized")

	// 11. Setup routes
	log.Println("\n🛣️  Step 11: Setting up routes...")
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	relations.RegisterRoutes(router, relationsHandler)
	log.Println("   ✅ Relations routes registered")

	matchmaking.RegisterRoutes(router, matchmakingHandler)
	log.Println("   ✅ Matchmaking routes registered")

	router.Use(requestIDMiddleware)
	router.Use(loggingMiddleware)
	router.Use(corsMiddleware)

	// 12. Start weekly pre-generation job
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	if cfg.EnableWeeklyJob {
		scheduler := matchmaking.NewScheduler(matchmakingService, cfg.WeeklyJobHour, cfg.WeeklyJobMinute)
		scheduler.Start(schedulerCtx)
		log.Printf("   ✅ Weekly drop scheduler started (Mondays %02d:%02d)", cfg.WeeklyJobHour, cfg.WeeklyJobMinute)
	}

	// 13. Create and start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Println("\n========================================")
		log.Printf("🚀 Server starting on http://localhost%s", srv.Addr)
		log.Printf("🌍 Environment: %s", cfg.Environment)
		log.Println("========================================")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n⚠️  Shutdown signal received...")
	stopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("❌ Server forced to shutdown:", err)
	}

	log.Println("✅ Server exited gracefully")
}

var startTime = time.Now()

// healthCheck returns server health status
func healthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(startTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// requestIDMiddleware tags every request so log lines can be correlated
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs all requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		log.Printf("→ %s %s from %s", r.Method, r.RequestURI, r.RemoteAddr)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		log.Printf("← %s %s [%d] %v", r.Method, r.RequestURI, wrapped.statusCode, duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// runMigrations executes database migrations
func runMigrations(db *sqlx.DB) error {
	log.Println("   - Creating/updating tables...")

	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		// Users table
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            display_name VARCHAR(100) NOT NULL,
            email VARCHAR(255) UNIQUE,
            bio TEXT,
            interests TEXT[] NOT NULL DEFAULT '{}',
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,

		// Embeddings, one row per user, either column may be NULL
		`CREATE TABLE IF NOT EXISTS user_embeddings (
            user_id INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
            composite_embedding vector(1536),
            basic_embedding vector(1536),
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,

		// Connection requests and accepted connections
		`CREATE TABLE IF NOT EXISTS relations (
            id SERIAL PRIMARY KEY,
            sender_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            receiver_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            status VARCHAR(20) NOT NULL DEFAULT 'pending',
            responded_at TIMESTAMP,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            CONSTRAINT unique_relation_pair UNIQUE(sender_id, receiver_id)
        )`,

		// Suggestion ledger: latest outcome per (user, candidate)
		`CREATE TABLE IF NOT EXISTS suggestion_interactions (
            id SERIAL PRIMARY KEY,
            user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            suggested_user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            interaction_type VARCHAR(20) NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            CONSTRAINT unique_suggestion_interaction UNIQUE(user_id, suggested_user_id)
        )`,

		// One drop row per (user, week); the unique constraint is what makes
		// concurrent creation safe
		`CREATE TABLE IF NOT EXISTS weekly_drops (
            id SERIAL PRIMARY KEY,
            user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            week_start_date TIMESTAMP NOT NULL,
            candidate_user_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
            similarity_score DOUBLE PRECISION,
            status VARCHAR(20) NOT NULL DEFAULT 'shown',
            shown_at TIMESTAMP,
            interacted_at TIMESTAMP,
            CONSTRAINT unique_weekly_drop UNIQUE(user_id, week_start_date)
        )`,

		// Pairwise description cache, canonically ordered (user_a_id < user_b_id)
		`CREATE TABLE IF NOT EXISTS compatibility_descriptions (
            id SERIAL PRIMARY KEY,
            user_a_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            user_b_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            description TEXT NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            CONSTRAINT unique_compatibility_pair UNIQUE(user_a_id, user_b_id),
            CONSTRAINT ordered_compatibility_pair CHECK (user_a_id < user_b_id)
        )`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_relations_sender ON relations(sender_id)`,
		`CREATE INDEX IF NOT EXISTS idx_relations_receiver ON relations(receiver_id)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_user ON suggestion_interactions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_weekly_drops_user ON weekly_drops(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_embeddings_composite ON user_embeddings
            USING ivfflat (composite_embedding vector_cosine_ops) WITH (lists = 100)`,
		`CREATE INDEX IF NOT EXISTS idx_embeddings_basic ON user_embeddings
            USING ivfflat (basic_embedding vector_cosine_ops) WITH (lists = 100)`,
	}

	for i, migration := range migrations {
		log.Printf("   - Running migration %d/%d...", i+1, len(migrations))
		if _, err := db.Exec(migration); err != nil {
			if !strings.Contains(err.Error(), "already exists") {
				return fmt.Errorf("migration %d failed: %w", i+1, err)
			}
			log.Printf("   - Migration %d skipped (already exists)", i+1)
		}
	}

	log.Println("   ✅ All migrations executed successfully")
	return nil
}
