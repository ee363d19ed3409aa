package auth

import (
	"os"
	"time"
)

// Development fallbacks. They are public knowledge and MUST be overridden
// through the environment in any real deployment.
const (
	DefaultSecretKey  = "pitchfork-dev-secret-key"
	DefaultSigningKey = "pitchfork-dev-jwt-signing-key"
	// DefaultSalt is the compiled-in salt used unless RandomSalt is enabled.
	DefaultSalt = "pitchfork-fixed-salt"

	DefaultTokenLifetime = 24 * time.Hour
)

// Config is the process-wide key material for the hasher and the token codec.
// Resolve it once at startup and pass it to the constructors; nothing in this
// package reads the environment after that.
type Config struct {
	SecretKey     string
	SigningKey    string
	Salt          string
	TokenLifetime time.Duration
	// LenientBearer strips a leading "Bearer " when present and validates the
	// remainder either way. The default rejects values without the prefix.
	LenientBearer bool
	// RandomSalt draws a fresh salt per hash instead of using Salt.
	RandomSalt bool
	Params     Params
}

// ConfigFromEnv reads auth settings from environment variables.
func ConfigFromEnv() Config {
	cfg := Config{
		SecretKey:     os.Getenv("AUTH_SECRET_KEY"),
		SigningKey:    os.Getenv("JWT_SECRET"),
		Salt:          DefaultSalt,
		TokenLifetime: DefaultTokenLifetime,
		LenientBearer: os.Getenv("AUTH_LENIENT_BEARER") == "1",
		RandomSalt:    os.Getenv("AUTH_RANDOM_SALT") == "1",
		Params:        DefaultParams,
	}
	if cfg.SecretKey == "" {
		cfg.SecretKey = DefaultSecretKey
	}
	if cfg.SigningKey == "" {
		cfg.SigningKey = DefaultSigningKey
	}
	if v := os.Getenv("JWT_LIFETIME"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.TokenLifetime = d
		}
	}
	return cfg
}

// InsecureDefaults lists the settings still using a development fallback.
func (c Config) InsecureDefaults() []string {
	var out []string
	if c.SecretKey == DefaultSecretKey {
		out = append(out, "AUTH_SECRET_KEY")
	}
	if c.SigningKey == DefaultSigningKey {
		out = append(out, "JWT_SECRET")
	}
	return out
}
