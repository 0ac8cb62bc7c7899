package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"

// GatewayConfig carries the merchant credentials and endpoint settings for the
// card-payment gateway. Handlers never read gateway env vars directly; the
// struct is built once and injected into the gateway client.
type GatewayConfig struct {
	MerchantCode string
	APIKey       string
	SharedSecret string
	ShopID       string
	Endpoint     string
	ReturnURL    string
	NotifyURL    string

	ChannelCode  string
	CurrencyCode string
	LanguageCode string
	RouteNo      string

	// RedirectWrites controls whether the browser-return handler may write a
	// provisional status. The webhook stays authoritative either way.
	RedirectWrites bool
	Timeout        time.Duration
}

func GetGatewayConfig() GatewayConfig {
	cfg := GatewayConfig{
		MerchantCode: os.Getenv("GATEWAY_MERCHANT_CODE"),
		APIKey:       os.Getenv("GATEWAY_API_KEY"),
		SharedSecret: os.Getenv("GATEWAY_SHARED_SECRET"),
		ShopID:       os.Getenv("GATEWAY_SHOP_ID"),
		Endpoint:     os.Getenv("GATEWAY_ENDPOINT"),
		ReturnURL:    fmt.Sprintf("%s/api/v1/payment/return", os.Getenv("API_HOST")),
		NotifyURL:    fmt.Sprintf("%s/api/v1/webhook/payment", os.Getenv("API_HOST")),
		ChannelCode:  "0",
		CurrencyCode: "USD",
		LanguageCode: "EN",
		RouteNo:      "1",
		Timeout:      30 * time.Second,
	}
	cfg.RedirectWrites = true
	if v := os.Getenv("GATEWAY_REDIRECT_WRITES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RedirectWrites = b
		}
	}
	if v := os.Getenv("GATEWAY_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.Timeout = time.Duration(secs) * time.Second
		}
	}
	return cfg
}
