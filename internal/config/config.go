package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"geoclaim/internal/territory"
)

// ErrMissingJWTSecret is returned by Load when JWT_SECRET is unset.
var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

// Config is everything the server reads from the environment at startup.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Auth     AuthConfig
	Tracking TrackingConfig
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	ShutdownGrace  time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

// DSN builds the postgres data source name.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode, d.TimeZone,
	)
}

type LogConfig struct {
	File   string // empty means stdout only
	Level  string
	Format string // "text" or "json"
	Stdout bool
}

type AuthConfig struct {
	JWTSecret   string
	TokenTTL    time.Duration
	AdminEmails []string // signups with these addresses get the admin role
}

// TrackingConfig holds the engine thresholds plus the host policies around them.
type TrackingConfig struct {
	Thresholds     territory.Thresholds
	MaxAccuracyM   float64       // samples reporting worse accuracy are refused; 0 disables
	MaxSessionIdle time.Duration // idle sessions are cancelled by the sweeper; 0 disables
	SweepInterval  time.Duration
	TuningFile     string
}

// Load reads .env (if present) and the process environment. Engine thresholds start at
// their defaults, are overlaid by TUNING_FILE and then by individual TUNING_* variables.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, relying on environment variables")
	}

	cfg := Config{
		Server: ServerConfig{
			Addr:           getEnv("SERVER_ADDR", "0.0.0.0:8080"),
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "password"),
			Name:     getEnv("DB_NAME", "geoclaim"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			TimeZone: getEnv("DB_TIMEZONE", "UTC"),
		},
		Log: LogConfig{
			File:   getEnv("LOG_FILE", "./logs/app.log"),
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Auth: AuthConfig{
			JWTSecret:   os.Getenv("JWT_SECRET"),
			AdminEmails: splitList(strings.ToLower(os.Getenv("ADMIN_EMAILS"))),
		},
		Tracking: TrackingConfig{
			TuningFile: getEnv("TUNING_FILE", ""),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		return Config{}, ErrMissingJWTSecret
	}

	var err error
	if cfg.Server.ShutdownGrace, err = getDuration("SERVER_SHUTDOWN_GRACE", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Log.Stdout, err = getBool("LOG_STDOUT", true); err != nil {
		return Config{}, err
	}
	if cfg.Auth.TokenTTL, err = getDuration("JWT_TTL", 72*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.Tracking.MaxAccuracyM, err = getFloat("TRACKING_MAX_ACCURACY_M", 50); err != nil {
		return Config{}, err
	}
	if cfg.Tracking.MaxSessionIdle, err = getDuration("TRACKING_MAX_SESSION_IDLE", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.Tracking.SweepInterval, err = getDuration("TRACKING_SWEEP_INTERVAL", time.Minute); err != nil {
		return Config{}, err
	}

	th := territory.DefaultThresholds()
	if cfg.Tracking.TuningFile != "" {
		t, err := LoadTuning(cfg.Tracking.TuningFile)
		if err != nil {
			return Config{}, err
		}
		th = t.Apply(th)
	}
	if th, err = thresholdsFromEnv(th); err != nil {
		return Config{}, err
	}
	if err := th.Validate(); err != nil {
		return Config{}, fmt.Errorf("tracking thresholds: %w", err)
	}
	cfg.Tracking.Thresholds = th

	return cfg, nil
}

func thresholdsFromEnv(th territory.Thresholds) (territory.Thresholds, error) {
	floats := []struct {
		key string
		dst *float64
	}{
		{"TUNING_MIN_POINT_DISTANCE_M", &th.MinPointDistanceM},
		{"TUNING_WARN_SPEED_KMH", &th.WarnSpeedKmh},
		{"TUNING_HARD_SPEED_KMH", &th.HardSpeedKmh},
		{"TUNING_CLOSURE_DISTANCE_M", &th.ClosureDistanceM},
		{"TUNING_MIN_TOTAL_DISTANCE_M", &th.MinTotalDistanceM},
		{"TUNING_MIN_ENCLOSED_AREA_M2", &th.MinEnclosedAreaM2},
	}
	for _, f := range floats {
		v, err := getFloat(f.key, *f.dst)
		if err != nil {
			return th, err
		}
		*f.dst = v
	}

	points, err := getInt("TUNING_MIN_PATH_POINTS", th.MinPathPoints)
	if err != nil {
		return th, err
	}
	th.MinPathPoints = points

	policy, err := territory.ParseStopPolicy(getEnv("TUNING_STOP_POLICY", string(th.StopPolicy)))
	if err != nil {
		return th, fmt.Errorf("TUNING_STOP_POLICY: %w", err)
	}
	th.StopPolicy = policy
	return th, nil
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}

func getFloat(key string, def float64) (float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getInt(key string, def int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, def bool) (bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
