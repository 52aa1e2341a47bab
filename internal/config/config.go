package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Policy   PolicyConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// PolicyConfig groups the tunable business rules so they can change without
// code changes.
type PolicyConfig struct {
	WaitingTariff WaitingTariff
	Cancellation  CancellationPolicy
	Geofence      GeofenceConfig
	Presence      PresenceConfig
	Subscription  SubscriptionConfig
}

// WaitingTariff prices the delay between driver arrival and ride start.
// Rates are per whole minute, evaluated at that minute's wall-clock time.
type WaitingTariff struct {
	FreeMinutes  int
	DayRate      float64 // per minute between DayStartHour and DayEndHour
	NightRate    float64 // per minute otherwise
	DayStartHour int
	DayEndHour   int
}

// CancellationPolicy parameterizes the cancellation decision rules.
type CancellationPolicy struct {
	FreeWindow time.Duration

	// Valid-reason waiver: rate-limited to ValidReasonCap uses per
	// ValidReasonWindow; over the cap the cancellation is penalized.
	ValidReasonCap          int
	ValidReasonWindow       time.Duration
	ValidReasonCompensation float64

	PenaltyFee          float64
	PenaltyCompensation float64

	// Strike severity thresholds on the driver's current distance to pickup.
	SevereDistanceKm float64
	MajorDistanceKm  float64
}

// GeofenceConfig holds the completion distance gate.
type GeofenceConfig struct {
	CompletionRadiusKm float64
}

// PresenceConfig holds heartbeat and liveness tuning.
type PresenceConfig struct {
	LivenessTTL      time.Duration
	HeartbeatLockTTL time.Duration
}

// SubscriptionConfig holds subscription-side tuning.
type SubscriptionConfig struct {
	GraceHours    int
	ReferralBonus float64
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ridecore"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "ridecore"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Policy: PolicyConfig{
			WaitingTariff: WaitingTariff{
				FreeMinutes:  getIntEnv("WAITING_FREE_MINUTES", 3),
				DayRate:      getFloatEnv("WAITING_DAY_RATE", 1.0),
				NightRate:    getFloatEnv("WAITING_NIGHT_RATE", 1.5),
				DayStartHour: getIntEnv("WAITING_DAY_START_HOUR", 6),
				DayEndHour:   getIntEnv("WAITING_DAY_END_HOUR", 22),
			},
			Cancellation: CancellationPolicy{
				FreeWindow:              getDurationEnv("CANCEL_FREE_WINDOW", 45*time.Second),
				ValidReasonCap:          getIntEnv("CANCEL_VALID_REASON_CAP", 3),
				ValidReasonWindow:       getDurationEnv("CANCEL_VALID_REASON_WINDOW", 7*24*time.Hour),
				ValidReasonCompensation: getFloatEnv("CANCEL_VALID_REASON_COMPENSATION", 20.0),
				PenaltyFee:              getFloatEnv("CANCEL_PENALTY_FEE", 30.0),
				PenaltyCompensation:     getFloatEnv("CANCEL_PENALTY_COMPENSATION", 10.0),
				SevereDistanceKm:        getFloatEnv("CANCEL_SEVERE_DISTANCE_KM", 0.5),
				MajorDistanceKm:         getFloatEnv("CANCEL_MAJOR_DISTANCE_KM", 2.0),
			},
			Geofence: GeofenceConfig{
				CompletionRadiusKm: getFloatEnv("GEOFENCE_COMPLETION_RADIUS_KM", 3.0),
			},
			Presence: PresenceConfig{
				LivenessTTL:      getDurationEnv("PRESENCE_LIVENESS_TTL", 90*time.Second),
				HeartbeatLockTTL: getDurationEnv("PRESENCE_HEARTBEAT_LOCK_TTL", 10*time.Second),
			},
			Subscription: SubscriptionConfig{
				GraceHours:    getIntEnv("SUBSCRIPTION_GRACE_HOURS", 24),
				ReferralBonus: getFloatEnv("SUBSCRIPTION_REFERRAL_BONUS", 50.0),
			},
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
