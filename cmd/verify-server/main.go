package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jinzhu/copier"

	"github.com/mailproof/mailproof/pkg/config"
	"github.com/mailproof/mailproof/pkg/login"
	"github.com/mailproof/mailproof/pkg/notification"
	"github.com/mailproof/mailproof/pkg/signup"
	"github.com/mailproof/mailproof/pkg/store"
	"github.com/mailproof/mailproof/pkg/token"
	"github.com/mailproof/mailproof/pkg/verification"
	verificationapi "github.com/mailproof/mailproof/pkg/verification/api"
)

type Config struct {
	AppConfig          config.AppConfig
	StoreConfig        config.StoreConfig
	VerificationConfig config.VerificationConfig
	JwtConfig          config.JwtConfig
	EmailConfig        config.EmailConfig
	DbConfig           config.DbConfig
}

func main() {
	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read config", "err", err)
		os.Exit(-1)
	}

	st, err := newStore(cfg)
	if err != nil {
		slog.Error("Failed to create store", "type", cfg.StoreConfig.PersistenceType, "err", err)
		os.Exit(-1)
	}

	notificationManager, err := newNotificationManager(cfg.EmailConfig)
	if err != nil {
		slog.Error("Failed to create notification manager", "err", err)
		os.Exit(-1)
	}

	signer := token.NewSigner(cfg.VerificationConfig.HmacSecret)

	verificationOpts := []verification.ServiceOption{
		verification.WithTokenExpiry(time.Duration(cfg.VerificationConfig.TokenExpiryHours) * time.Hour),
		verification.WithVerificationURL(cfg.VerificationConfig.VerificationURL),
	}
	if cfg.VerificationConfig.RecheckSignature {
		verificationOpts = append(verificationOpts, verification.WithSignatureRecheck())
	}
	verificationService := verification.NewService(st, signer, notificationManager, verificationOpts...)

	signupService := signup.NewService(st, verificationService)
	loginService := login.NewService(st, login.WithJwtSecret(cfg.JwtConfig.JwtSecret))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	signup.NewHandle(signupService).RegisterRoutes(r)
	login.NewHandle(loginService).RegisterRoutes(r)
	verificationapi.NewHandler(verificationService).RegisterRoutes(r)

	// Session-protected routes
	tokenAuth := jwtauth.New("HS256", []byte(cfg.JwtConfig.JwtSecret), nil)
	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator(tokenAuth))
		r.Get("/profile", func(w http.ResponseWriter, r *http.Request) {
			_, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "Unauthorized"})
				return
			}
			render.JSON(w, r, map[string]any{
				"email": claims["sub"],
				"name":  claims["name"],
			})
		})
	})

	server := &http.Server{
		Addr:    cfg.AppConfig.Addr,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Starting server", "addr", cfg.AppConfig.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Failed to shut down server", "err", err)
	}
	slog.Info("Server stopped")
}

func newStore(cfg Config) (store.Store, error) {
	storeConfig := store.StoreConfig{DataDir: cfg.StoreConfig.DataDir}

	if cfg.StoreConfig.PersistenceType == "postgres" || cfg.StoreConfig.PersistenceType == "postgresql" {
		pool, err := pgxpool.New(context.Background(), cfg.DbConfig.URL())
		if err != nil {
			return nil, err
		}
		storeConfig.Pool = pool
	}

	return store.NewStore(cfg.StoreConfig.PersistenceType, storeConfig)
}

func newNotificationManager(emailConfig config.EmailConfig) (*notification.NotificationManager, error) {
	// No SMTP host configured: simulate delivery on the console
	if emailConfig.Host == "" {
		slog.Info("No SMTP host configured, simulating email delivery on console")
		return notification.NewNotificationManagerWithOptions(
			notification.WithConsole(),
			notification.WithDefaultTemplates(),
		)
	}

	var smtpConfig notification.SMTPConfig
	if err := copier.Copy(&smtpConfig, &emailConfig); err != nil {
		return nil, err
	}

	return notification.NewNotificationManagerWithOptions(
		notification.WithSMTP(smtpConfig),
		notification.WithDefaultTemplates(),
	)
}
