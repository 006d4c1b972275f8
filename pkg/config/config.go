package config

import "fmt"

// AppConfig holds HTTP server configuration
type AppConfig struct {
	Addr string `env:"APP_ADDR" env-default:":4000"`
}

// StoreConfig selects and configures the persistence backend
type StoreConfig struct {
	PersistenceType string `env:"PERSISTENCE_TYPE" env-default:"file"`
	DataDir         string `env:"DATA_DIR" env-default:"./data"`
}

// VerificationConfig holds the token lifecycle configuration
type VerificationConfig struct {
	HmacSecret       string `env:"HMAC_SECRET" env-default:"your-secret-key"`
	TokenExpiryHours int    `env:"TOKEN_EXPIRY_HOURS" env-default:"24"`
	VerificationURL  string `env:"VERIFICATION_URL" env-default:"http://localhost:4000/verify"`
	RecheckSignature bool   `env:"TOKEN_SIGNATURE_RECHECK" env-default:"false"`
}

// JwtConfig holds session token configuration
type JwtConfig struct {
	JwtSecret string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
}

// EmailConfig holds SMTP email configuration. When Host is empty, delivery
// falls back to the console-simulated transport.
type EmailConfig struct {
	Host     string `env:"EMAIL_HOST" env-default:""`
	Port     int    `env:"EMAIL_PORT" env-default:"1025"`
	Username string `env:"EMAIL_USERNAME" env-default:""`
	Password string `env:"EMAIL_PASSWORD" env-default:""`
	From     string `env:"EMAIL_FROM" env-default:"noreply@example.com"`
	TLS      bool   `env:"EMAIL_TLS" env-default:"false"`
}

// DbConfig holds PostgreSQL configuration for the postgres store backend
type DbConfig struct {
	Host     string `env:"PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"PG_PORT" env-default:"5432"`
	Database string `env:"PG_DATABASE" env-default:"mailproof_db"`
	User     string `env:"PG_USER" env-default:"mailproof"`
	Password string `env:"PG_PASSWORD" env-default:"pwd"`
}

// URL renders the pgx connection string
func (d DbConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", d.User, d.Password, d.Host, d.Port, d.Database)
}
