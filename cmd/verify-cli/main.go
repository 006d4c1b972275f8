package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/mailproof/mailproof/pkg/config"
	"github.com/mailproof/mailproof/pkg/login"
	"github.com/mailproof/mailproof/pkg/notification"
	"github.com/mailproof/mailproof/pkg/signup"
	"github.com/mailproof/mailproof/pkg/store"
	"github.com/mailproof/mailproof/pkg/token"
	"github.com/mailproof/mailproof/pkg/verification"
)

// verify-cli is a local demo of the verification flow against a file-backed
// store, with email delivery simulated on the console.

type Config struct {
	StoreConfig        config.StoreConfig
	VerificationConfig config.VerificationConfig
}

type services struct {
	signup       *signup.Service
	verification *verification.Service
	login        *login.Service
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "failed to read config:", err)
		os.Exit(1)
	}

	svcs, err := newServices(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize:", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var result any
	switch os.Args[1] {
	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		email := fs.String("email", "", "user's email address")
		password := fs.String("password", "", "user's password")
		name := fs.String("name", "", "user's name")
		fs.Parse(os.Args[2:])
		result = runRegister(ctx, svcs, *email, *password, *name)

	case "verify":
		fs := flag.NewFlagSet("verify", flag.ExitOnError)
		tokenValue := fs.String("token", "", "verification token")
		fs.Parse(os.Args[2:])
		result = runVerify(ctx, svcs, *tokenValue)

	case "resend":
		fs := flag.NewFlagSet("resend", flag.ExitOnError)
		email := fs.String("email", "", "user's email address")
		fs.Parse(os.Args[2:])
		result = runResend(ctx, svcs, *email)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "user's email address")
		password := fs.String("password", "", "user's password")
		fs.Parse(os.Args[2:])
		result = runLogin(ctx, svcs, *email, *password)

	default:
		usage()
		os.Exit(2)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to render result:", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: verify-cli <command> [flags]

Commands:
  register  Register a new user (--email --password [--name])
  verify    Verify an email token (--token)
  resend    Resend verification email (--email)
  login     Log in a user (--email --password)
`)
}

func newServices(cfg Config) (*services, error) {
	st, err := store.NewFileStore(cfg.StoreConfig.DataDir)
	if err != nil {
		return nil, err
	}

	notificationManager, err := notification.NewNotificationManagerWithOptions(
		notification.WithConsole(),
		notification.WithDefaultTemplates(),
	)
	if err != nil {
		return nil, err
	}

	signer := token.NewSigner(cfg.VerificationConfig.HmacSecret)
	verificationService := verification.NewService(st, signer, notificationManager,
		verification.WithTokenExpiry(time.Duration(cfg.VerificationConfig.TokenExpiryHours)*time.Hour),
		verification.WithVerificationURL(cfg.VerificationConfig.VerificationURL),
	)

	return &services{
		signup:       signup.NewService(st, verificationService),
		verification: verificationService,
		login:        login.NewService(st),
	}, nil
}

type cliResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	Email             string `json:"email,omitempty"`
	EmailSent         *bool  `json:"email_sent,omitempty"`
	NeedsVerification bool   `json:"needs_verification,omitempty"`
}

func runRegister(ctx context.Context, svcs *services, email, password, name string) cliResult {
	result, err := svcs.signup.Register(ctx, signup.RegisterRequest{
		Email:    email,
		Password: password,
		Name:     name,
	})
	if err != nil {
		return cliResult{Success: false, Error: err.Error()}
	}

	return cliResult{
		Success:   true,
		Message:   "User registered successfully. Verification email sent.",
		Email:     result.Email,
		EmailSent: &result.EmailSent,
	}
}

func runVerify(ctx context.Context, svcs *services, tokenValue string) cliResult {
	email, err := svcs.verification.Redeem(ctx, tokenValue)
	if err != nil {
		return cliResult{Success: false, Error: err.Error()}
	}

	return cliResult{
		Success: true,
		Message: "Email verified successfully",
		Email:   email,
	}
}

func runResend(ctx context.Context, svcs *services, email string) cliResult {
	result, err := svcs.verification.Resend(ctx, email)
	if err != nil {
		return cliResult{Success: false, Error: err.Error()}
	}

	return cliResult{
		Success:   true,
		Message:   "Verification email resent",
		Email:     email,
		EmailSent: &result.EmailSent,
	}
}

func runLogin(ctx context.Context, svcs *services, email, password string) cliResult {
	result, err := svcs.login.Login(ctx, email, password)
	if err != nil {
		out := cliResult{Success: false, Error: err.Error()}
		if errors.Is(err, login.ErrVerificationRequired) {
			out.NeedsVerification = true
			out.Email = email
		}
		return out
	}

	return cliResult{
		Success: true,
		Message: "Login successful",
		Email:   result.Email,
	}
}
