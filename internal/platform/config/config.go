package config

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile          = ".env"
	defaultPort             = "8080"
	defaultReadTimeout      = 15 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultIdleTimeout      = 120 * time.Second
	defaultSearchTTL        = 60 * time.Second
	defaultSuggestTTL       = 30 * time.Second
	defaultWalletTimeout    = 10 * time.Second
	defaultRewardThreshold  = 20000
	defaultCouponSweepEvery = time.Hour
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Firebase  FirebaseConfig
	Firestore FirestoreConfig
	Stripe    StripeConfig
	Wallet    WalletConfig
	Cache     CacheConfig
	Checkout  CheckoutConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ClientURL    string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirebaseConfig stores Firebase project settings for the identity collaborator.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// StripeConfig collects the card rail's secrets.
type StripeConfig struct {
	APIKey string
}

// WalletConfig configures the wallet redirect rail.
type WalletConfig struct {
	PaymentURL    string
	VerifyURL     string
	MerchantCode  string
	VerifyTimeout time.Duration
}

// CacheConfig bounds the search and suggestion cache entries.
type CacheConfig struct {
	SearchTTL  time.Duration
	SuggestTTL time.Duration
}

// CheckoutConfig carries order side-effect tuning.
type CheckoutConfig struct {
	// RewardThreshold is the minor-unit total at which a reward coupon is issued.
	RewardThreshold int64
	// CouponSweepInterval drives the passive expired-coupon sweep.
	CouponSweepInterval time.Duration
}

// ValidationError aggregates missing or malformed configuration fields.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: invalid fields: %s", strings.Join(e.fields, ", "))
}

// Fields lists the offending configuration keys.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Load reads configuration from the environment, first merging values from the
// optional .env file (existing environment variables win).
func Load() (Config, error) {
	mergeEnvFile(defaultEnvFile)

	cfg := Config{
		Server: ServerConfig{
			Port:         envOr("PORT", defaultPort),
			ClientURL:    strings.TrimRight(os.Getenv("CLIENT_URL"), "/"),
			ReadTimeout:  durationOr("SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationOr("SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationOr("SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
			CredentialsFile: os.Getenv("FIREBASE_CREDENTIALS_FILE"),
		},
		Firestore: FirestoreConfig{
			ProjectID:    envOr("FIRESTORE_PROJECT_ID", os.Getenv("GOOGLE_CLOUD_PROJECT")),
			EmulatorHost: os.Getenv("FIRESTORE_EMULATOR_HOST"),
		},
		Stripe: StripeConfig{
			APIKey: os.Getenv("STRIPE_API_KEY"),
		},
		Wallet: WalletConfig{
			PaymentURL:    envOr("WALLET_PAYMENT_URL", "https://esewa.com.np/epay/main"),
			VerifyURL:     envOr("WALLET_VERIFY_URL", "https://esewa.com.np/epay/transrec"),
			MerchantCode:  os.Getenv("WALLET_MERCHANT_CODE"),
			VerifyTimeout: durationOr("WALLET_VERIFY_TIMEOUT", defaultWalletTimeout),
		},
		Cache: CacheConfig{
			SearchTTL:  durationOr("SEARCH_CACHE_TTL", defaultSearchTTL),
			SuggestTTL: durationOr("SUGGEST_CACHE_TTL", defaultSuggestTTL),
		},
		Checkout: CheckoutConfig{
			RewardThreshold:     int64Or("REWARD_COUPON_THRESHOLD", defaultRewardThreshold),
			CouponSweepInterval: durationOr("COUPON_SWEEP_INTERVAL", defaultCouponSweepEvery),
		},
	}

	var invalid []string
	if strings.TrimSpace(cfg.Firestore.ProjectID) == "" {
		invalid = append(invalid, "FIRESTORE_PROJECT_ID")
	}
	if strings.TrimSpace(cfg.Server.ClientURL) == "" {
		invalid = append(invalid, "CLIENT_URL")
	}
	if cfg.Checkout.RewardThreshold < 0 {
		invalid = append(invalid, "REWARD_COUPON_THRESHOLD")
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return Config{}, &ValidationError{fields: invalid}
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
		return parsed
	}
	return fallback
}

func int64Or(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return parsed
	}
	return fallback
}

// mergeEnvFile loads KEY=VALUE pairs without overriding the live environment.
func mergeEnvFile(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
