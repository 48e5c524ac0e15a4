// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
)

var validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "APP_LOG_LEVEL")
	v.BindEnv("app.env", "APP_ENV", "NODE_ENV")

	v.BindEnv("host.port", "HOST_PORT")
	v.BindEnv("host.cors_origin", "FRONTEND_ORIGIN", "CORS_ORIGIN")

	v.BindEnv("admin.key", "ADMIN_KEY")

	v.BindEnv("supabase.url", "SUPABASE_URL")
	v.BindEnv("supabase.service_role", "SUPABASE_SERVICE_ROLE", "SUPABASE_SERVICE_ROLE_KEY")

	v.BindEnv("flags.require_verification", "REQUIRE_VERIFICATION")
	v.BindEnv("flags.allow_invites", "ALLOW_INVITES")
	v.BindEnv("flags.auto_activate", "AUTO_ACTIVATE")
	v.BindEnv("flags.require_consent", "REQUIRE_CONSENT")
	v.BindEnv("flags.require_captcha", "REQUIRE_CAPTCHA")

	v.BindEnv("email.enabled", "EMAIL_ENABLED")
	v.BindEnv("email.resend_api_key", "RESEND_API_KEY")
	v.BindEnv("email.from", "EMAIL_FROM")

	v.BindEnv("tokens.verify_ttl_hours", "VERIFY_TOKEN_TTL_HOURS")
	v.BindEnv("tokens.invite_ttl_days", "INVITE_TOKEN_TTL_DAYS")

	v.BindEnv("turnstile.secret_key", "TURNSTILE_SECRET_KEY")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.env", "development")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.cors_origin", "*")

	v.SetDefault("flags.require_verification", false)
	v.SetDefault("flags.allow_invites", true)
	v.SetDefault("flags.auto_activate", false)
	v.SetDefault("flags.require_consent", false)
	v.SetDefault("flags.require_captcha", false)

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.from", "team@localhost")

	v.SetDefault("tokens.verify_ttl_hours", 72)
	v.SetDefault("tokens.invite_ttl_days", 14)

	if err := v.ReadInConfig(); err != nil {
		// The config file is optional, everything can come from envs
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetInt("tokens.verify_ttl_hours") <= 0 {
		return errors.New("tokens.verify_ttl_hours must be bigger than 0")
	}

	if v.GetInt("tokens.invite_ttl_days") <= 0 {
		return errors.New("tokens.invite_ttl_days must be bigger than 0")
	}

	if v.GetBool("flags.require_captcha") && v.GetString("turnstile.secret_key") == "" {
		return errors.New("captcha is required but turnstile secret key is missing")
	}

	if v.GetBool("email.enabled") && v.GetString("email.resend_api_key") == "" {
		zap.L().Warn("email.enabled is set but no Resend API key was provided, sends will be simulated")
	}

	if v.GetString("supabase.url") == "" || v.GetString("supabase.service_role") == "" {
		fmt.Println("[WARNING]: Supabase is not configured. Submissions will be kept in an in-memory dev store and lost on restart")
	}

	if !v.GetBool("flags.require_captcha") {
		fmt.Println("[WARNING]: Captcha verification is disabled. The signup endpoint won't be guarded against bots")
	}

	// The unconfigured-admin fallback is an explicit value computed once,
	// not an implicit runtime check. Production always denies without a key.
	if v.GetString("admin.key") == "" {
		if Production() {
			fmt.Println("[WARNING]: No admin key configured, admin endpoints will reject every request")
			v.Set("admin.allow_unconfigured", false)
		} else {
			fmt.Println("[WARNING]: No admin key configured, admin endpoints are open (development mode)")
			v.Set("admin.allow_unconfigured", true)
		}
	} else {
		v.Set("admin.allow_unconfigured", false)
	}

	return nil
}

// Production reports whether the app runs with app.env set to production.
func Production() bool {
	return strings.EqualFold(v.GetString("app.env"), "production")
}
