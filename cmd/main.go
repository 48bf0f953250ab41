package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"lendingdesk/internal/config"
	"lendingdesk/internal/console"
	"lendingdesk/internal/handlers"
	"lendingdesk/internal/repositories"
	"lendingdesk/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()
	docs, err := openDocuments(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}

	store := repositories.NewCatalogStore(log.Default())
	lendingService := services.NewLendingService(store, docs, services.WithLoanPeriod(cfg.LoanPeriodDays))
	if err := lendingService.Load(ctx); err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}

	if cfg.Mode == config.ModeConsole {
		if err := console.New(lendingService, os.Stdin, os.Stdout).Run(ctx); err != nil {
			log.Fatalf("console error: %v", err)
		}
		return
	}

	router := gin.Default()
	handlers.RegisterRoutes(router, lendingService)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERROR] shutdown: %v", err)
	}
	if err := lendingService.Save(shutdownCtx); err != nil {
		log.Fatalf("failed to save catalog: %v", err)
	}
}

// openDocuments picks Postgres when DATABASE_URL is set and JSON files otherwise.
func openDocuments(ctx context.Context, cfg config.Config) (repositories.Documents, error) {
	if cfg.DatabaseURL == "" {
		log.Printf("[INFO] storage: JSON files in %s", cfg.DataDir)
		return repositories.NewJSONFileDocuments(cfg.DataDir), nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	docs := repositories.NewGormDocuments(db)
	if err := docs.Migrate(ctx); err != nil {
		return nil, err
	}
	log.Printf("[INFO] storage: Postgres")
	return docs, nil
}
