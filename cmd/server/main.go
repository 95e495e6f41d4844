package main

import (
	"context"
	"database/sql"
	"encoding/gob"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sessions "github.com/gin-contrib/sessions"
	gsessions "github.com/gin-contrib/sessions/postgres"
	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"quizforge/internal/api"
	"quizforge/internal/api/handlers"
	"quizforge/internal/db"
	"quizforge/internal/docparse"
	"quizforge/internal/llm"
	"quizforge/internal/logger"
	"quizforge/internal/quizgen"
	"quizforge/internal/r2"
	"quizforge/internal/youtube"
)

var (
	googleOauthConfig *oauth2.Config
	sessionSecretKey  []byte
)

const storeName = "quizforge_session"

// init loads the environment and assembles bootstrap config. Failures here
// use the stdlib logger; the structured logger does not exist yet.
func init() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("load .env file: %v", err)
	}

	sessionSecretKey = []byte(os.Getenv("SESSION_SECRET"))
	if len(sessionSecretKey) == 0 {
		log.Fatal("SESSION_SECRET must be set")
	}

	// The session store serializes the profile with gob.
	gob.Register(handlers.UserProfile{})

	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	redirectURL := os.Getenv("GOOGLE_REDIRECT_URL")
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		log.Fatal("GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URL must be set")
	}

	googleOauthConfig = &oauth2.Config{
		RedirectURL:  redirectURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

func main() {
	zlog, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatalf("initialize logger: %v", err)
	}
	defer zlog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database, err := db.NewDB(ctx)
	if err != nil {
		zlog.Fatal("connect database", "error", err)
	}
	defer database.Close()

	provider, err := llm.FromEnv(zlog)
	if err != nil {
		zlog.Fatal("configure LLM provider", "error", err)
	}
	if closer, ok := provider.(interface{ Close() }); ok {
		defer closer.Close()
	}
	zlog.Info("LLM provider configured", "provider", provider.Name())

	parser := docparse.New(docparse.Config{Logger: zlog})
	generator := quizgen.New(quizgen.Config{Provider: provider, Logger: zlog})

	r2Client, err := r2.NewClient(zlog)
	if err != nil {
		zlog.Fatal("configure R2 client", "error", err)
	}
	ytClient := youtube.New(zlog)

	router := gin.Default()

	// The session store needs its own database/sql pool; pgx's stdlib
	// adapter reuses the same DATABASE_URL.
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		zlog.Fatal("DATABASE_URL must be set")
	}
	sessionDB, err := sql.Open("pgx", dbURL)
	if err != nil {
		zlog.Fatal("open session store connection", "error", err)
	}
	defer sessionDB.Close()
	if err := sessionDB.Ping(); err != nil {
		zlog.Fatal("ping session store connection", "error", err)
	}

	store, err := gsessions.NewStore(sessionDB, sessionSecretKey)
	if err != nil {
		zlog.Fatal("create session store", "error", err)
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		Secure:   os.Getenv("APP_ENV") == "production",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(storeName, store))

	handler := handlers.NewHandler(handlers.Config{
		OauthConfig: googleOauthConfig,
		DB:          database,
		Parser:      parser,
		Generator:   generator,
		Youtube:     ytClient,
		R2:          r2Client,
		Logger:      zlog,
	})
	api.SetupRoutes(router, handler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		zlog.Info("server listening", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal("server forced to shutdown", "error", err)
	}
	zlog.Info("server exited")
}
