package config

import (
	"os"
	"time"
)

type Config struct {
	DBPath string
	Addr   string
	AppURL string

	GatewayURL      string
	GatewayToken    string
	GatewaySenderID string

	TelegramBotToken string

	// Zero disables the built-in ticker for that job; an external cron
	// can always hit the trigger endpoints instead.
	DispatchInterval time.Duration
	ExpandInterval   time.Duration
	DigestInterval   time.Duration
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func Load(flagDB, flagAddr string) Config {
	return Config{
		DBPath: getEnv("TASKFLOW_DB", flagDB),
		Addr:   getEnv("TASKFLOW_ADDR", flagAddr),
		AppURL: getEnv("TASKFLOW_APP_URL", ""),

		GatewayURL:      getEnv("WHATSAPP_GATEWAY_URL", ""),
		GatewayToken:    getEnv("WHATSAPP_GATEWAY_TOKEN", ""),
		GatewaySenderID: getEnv("WHATSAPP_SENDER_ID", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		DispatchInterval: getDuration("TASKFLOW_DISPATCH_INTERVAL", time.Minute),
		ExpandInterval:   getDuration("TASKFLOW_EXPAND_INTERVAL", 24*time.Hour),
		DigestInterval:   getDuration("TASKFLOW_DIGEST_INTERVAL", 24*time.Hour),
	}
}
