package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            int
	DataDir         string
	StoreBackend    string
	AuthSecret      string
	QueueDelayMin   time.Duration
	QueueDelayMax   time.Duration
	ProcessDelayMin time.Duration
	ProcessDelayMax time.Duration
	ShareBaseURL    string
	ThumbBaseURL    string
	SubtitleBaseURL string
	AdminPassword   string
	UserPassword    string
}

func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "7890"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	authSecret := os.Getenv("AUTH_SECRET")
	if authSecret == "" {
		return nil, fmt.Errorf("AUTH_SECRET is required")
	}

	backend := getEnv("STORE_BACKEND", "json")
	if backend != "json" && backend != "sqlite" {
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: must be json or sqlite", backend)
	}

	queueMin, err := getEnvDuration("QUEUE_DELAY_MIN_MS", 3000*time.Millisecond)
	if err != nil {
		return nil, err
	}
	queueMax, err := getEnvDuration("QUEUE_DELAY_MAX_MS", 8000*time.Millisecond)
	if err != nil {
		return nil, err
	}
	processMin, err := getEnvDuration("PROCESS_DELAY_MIN_MS", 3000*time.Millisecond)
	if err != nil {
		return nil, err
	}
	processMax, err := getEnvDuration("PROCESS_DELAY_MAX_MS", 5000*time.Millisecond)
	if err != nil {
		return nil, err
	}
	if queueMax < queueMin || processMax < processMin {
		return nil, fmt.Errorf("delay maximums must not be below their minimums")
	}

	return &Config{
		Port:            port,
		DataDir:         getEnv("DATA_DIR", "/data"),
		StoreBackend:    backend,
		AuthSecret:      authSecret,
		QueueDelayMin:   queueMin,
		QueueDelayMax:   queueMax,
		ProcessDelayMin: processMin,
		ProcessDelayMax: processMax,
		ShareBaseURL:    getEnv("SHARE_BASE_URL", "https://drive.google.com"),
		ThumbBaseURL:    getEnv("THUMB_BASE_URL", "https://placehold.co"),
		SubtitleBaseURL: getEnv("SUBTITLE_BASE_URL", "https://storage.vidmill.dev/subtitles"),
		AdminPassword:   getEnv("ADMIN_PASSWORD", "admin123"),
		UserPassword:    getEnv("USER_PASSWORD", "user123"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	ms, err := strconv.Atoi(value)
	if err != nil || ms < 0 {
		return 0, fmt.Errorf("invalid %s: expected non-negative milliseconds", key)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
