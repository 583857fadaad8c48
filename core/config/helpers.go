package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetAllSettings returns a map of the non-secret settings currently loaded in memory.
func GetAllSettings() map[string]any {
	if Global == nil {
		return map[string]any{}
	}
	return map[string]any{
		"app_debug":                      Global.App.Debug,
		"app_version":                    Global.App.Version,
		"db_driver":                      Global.Database.Driver,
		"valkey_enabled":                 Global.Valkey.Enabled,
		"webhook_async":                  Global.Webhook.Async,
		"queue_batch_size":               Global.Queue.BatchSize,
		"queue_max_attempts":             Global.Queue.DefaultMaxAttempts,
		"queue_schedule":                 Global.Queue.ScheduleSpec,
		"queue_stale_after":              Global.Queue.StaleAfter.String(),
		"campaign_send_delay":            Global.Campaign.SendDelay.String(),
		"campaign_error_ratio_threshold": Global.Campaign.ErrorRatioThreshold,
		"inbox_default_priority":         Global.Inbox.DefaultPriority,
	}
}

// Helpers
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		vLower := strings.ToLower(v)
		return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
	}
	return fallback
}
