package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// defaultJurisdictions is the EU/EEA allow-list the issuer operates under.
// Override with LEDGERGATE_JURISDICTIONS (comma-separated ISO codes).
var defaultJurisdictions = []string{
	"AT", "BE", "BG", "HR", "CY", "CZ", "DK",
	"EE", "FI", "FR", "DE", "GR", "HU", "IE",
	"IT", "LV", "LT", "LU", "MT", "NL", "PL",
	"PT", "RO", "SK", "SI", "ES", "SE",
}

const (
	// Tier ceilings in minor units (cents). Level 1 accounts are capped at
	// 10k, levels 2-3 at 100k per transfer.
	defaultLevel1Limit = uint64(10_000_00)
	defaultLevel2Limit = uint64(100_000_00)

	defaultVerificationValidity = 365 * 24 * time.Hour
	defaultReserveMaxAge        = 24 * time.Hour
)

// Server captures process level configuration.
type Server struct {
	Addr           string
	SuperAuthority string
	JWTSigningKey  string

	// Policy knobs.
	Jurisdictions        []string
	Level1Limit          uint64
	Level2Limit          uint64
	VerificationValidity time.Duration
	ReserveMaxAge        time.Duration

	// Infrastructure.
	DatabaseURL  string
	RedisURL     string
	KafkaBrokers string
	AuditTopic   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:                 envOr("LEDGERGATE_ADDR", ":8080"),
		SuperAuthority:       os.Getenv("LEDGERGATE_SUPER_AUTHORITY"),
		JWTSigningKey:        envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Jurisdictions:        defaultJurisdictions,
		Level1Limit:          defaultLevel1Limit,
		Level2Limit:          defaultLevel2Limit,
		VerificationValidity: defaultVerificationValidity,
		ReserveMaxAge:        defaultReserveMaxAge,
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisURL:             os.Getenv("REDIS_URL"),
		KafkaBrokers:         os.Getenv("KAFKA_BROKERS"),
		AuditTopic:           envOr("AUDIT_TOPIC", "compliance.audit"),
	}

	if raw := os.Getenv("LEDGERGATE_JURISDICTIONS"); raw != "" {
		var codes []string
		for _, code := range strings.Split(raw, ",") {
			if code = strings.TrimSpace(code); code != "" {
				codes = append(codes, strings.ToUpper(code))
			}
		}
		if len(codes) > 0 {
			cfg.Jurisdictions = codes
		}
	}

	if v, ok := envUint("LEDGERGATE_L1_LIMIT"); ok {
		cfg.Level1Limit = v
	}
	if v, ok := envUint("LEDGERGATE_L2_LIMIT"); ok && v > cfg.Level1Limit {
		cfg.Level2Limit = v
	}
	if v, ok := envDuration("LEDGERGATE_VERIFICATION_VALIDITY"); ok {
		cfg.VerificationValidity = v
	}
	if v, ok := envDuration("LEDGERGATE_RESERVE_MAX_AGE"); ok {
		cfg.ReserveMaxAge = v
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envUint(key string) (uint64, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return v, true
}

func envDuration(key string) (time.Duration, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
