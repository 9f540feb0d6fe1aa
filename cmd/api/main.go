package main

import (
	"log"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"authcore/internal/auth"
	"authcore/internal/config"
	"authcore/internal/httpserver"
	"authcore/internal/logger"
	"authcore/internal/mailer"
	"authcore/internal/metrics"
	"authcore/internal/models"
	"authcore/internal/service"
	"authcore/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg := logger.New(cfg.LogLevel)
	defer lg.Sync()

	if cfg.DatabaseURL == "" {
		lg.Fatalw("DATABASE_URL is empty")
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Session{}, &models.AuditLog{}); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}

	metrics.Init()

	users := store.NewUserRepository(db)
	sessions := store.NewSessionRepository(db)
	audit := store.NewAuditRepository(db)

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.AccessTTL)
	guard := auth.NewGuard(issuer, users, sessions)
	sender := mailer.NewLogSender(lg)

	accounts := service.NewAccountService(users, sessions, audit, issuer, lg)
	sessionSvc := service.NewSessionService(sessions, audit, lg)
	tokens := service.NewTokenService(users, sender, lg,
		cfg.ResetTokenTTL, cfg.VerificationTTL, cfg.VerificationCooldown, cfg.FrontendBaseURL)

	seedAdmin(db, cfg, lg)

	router := httpserver.NewRouter(httpserver.Deps{
		Accounts: accounts,
		Sessions: sessionSvc,
		Tokens:   tokens,
		Guard:    guard,
		Audit:    audit,
		Logger:   lg,
	})

	lg.Infow("listening", "port", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, router); err != nil {
		lg.Fatalw("server stopped", "error", err)
	}
}

// seedAdmin bootstraps the first administrator so a fresh deployment is not
// locked out. Skipped unless both seed variables are set, and a no-op when the
// account already exists.
func seedAdmin(db *gorm.DB, cfg *config.Config, lg *zap.SugaredLogger) {
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		return
	}
	email := strings.ToLower(cfg.SeedAdminEmail)
	var count int64
	db.Model(&models.User{}).Where("LOWER(email) = ?", email).Count(&count)
	if count > 0 {
		return
	}
	hash, err := auth.HashPassword(cfg.SeedAdminPassword)
	if err != nil {
		lg.Fatalw("seed admin hash failed", "error", err)
	}
	u := models.User{
		Name:            "Administrator",
		Email:           email,
		Mobile:          "00000000",
		Role:            models.RoleAdmin,
		PasswordHash:    hash,
		Status:          models.StatusActive,
		IsEmailVerified: true,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := db.Create(&u).Error; err != nil {
		lg.Warnw("seed admin failed", "error", err)
		return
	}
	lg.Infow("seeded default admin", "email", email)
}
