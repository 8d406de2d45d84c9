package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetAllSettings returns the non-secret settings currently loaded, for the
// health endpoint.
func GetAllSettings() map[string]any {
	if Global == nil {
		return map[string]any{}
	}
	return map[string]any{
		"app_version":                     Global.App.Version,
		"app_debug":                       Global.App.Debug,
		"db_driver":                       Global.Database.Driver,
		"valkey_enabled":                  Global.Database.ValkeyEnabled,
		"followup_automation_enabled":     Global.FollowUp.AutomationEnabled,
		"followup_email_delivery_enabled": Global.FollowUp.EmailDeliveryEnabled,
		"followup_tick_interval":          Global.FollowUp.TickInterval.String(),
		"followup_dispatch_timeout":       Global.FollowUp.DispatchTimeout.String(),
		"followup_timezone":               Global.FollowUp.Timezone,
		"whatsapp_api_enabled":            Global.WhatsApp.Enabled,
		"mailer_enabled":                  Global.Mailer.Enabled,
		"rabbitmq_enabled":                Global.Broker.Enabled,
	}
}

// Helpers
func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
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

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		vLower := strings.ToLower(v)
		return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s", "2m") or plain seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
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

// getEnvMap parses "KEY=value,KEY2=value2". Keys are upper-cased.
func getEnvMap(key string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(os.Getenv(key), ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		k = strings.ToUpper(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
