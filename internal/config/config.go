package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"

	"github.com/joseph475/e-commerce/internal/emvqr"
)

type Config struct {
	AppPort          string         `mapstructure:"app_port"`
	HMACSecret       string         `mapstructure:"hmac_secret"`
	SigMaxAgeSeconds int64          `mapstructure:"sig_max_age_seconds"`
	SQLiteDSN        string         `mapstructure:"sqlite_dsn"`
	CORS             CORSConfig     `mapstructure:"cors"`
	Merchant         MerchantConfig `mapstructure:"merchant"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type MerchantConfig struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
	City string `mapstructure:"city"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_port", "8080")
	v.SetDefault("hmac_secret", "")
	v.SetDefault("sig_max_age_seconds", 300)
	v.SetDefault("sqlite_dsn", "./qrpay.db")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("merchant.id", "MERCHANT001")
	v.SetDefault("merchant.name", "Your Business Name")
	v.SetDefault("merchant.city", "Manila")
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and the environment, in increasing precedence. Nested keys map to
// env vars with "_" (merchant.name -> MERCHANT_NAME).
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if n := utf8.RuneCountInString(cfg.Merchant.ID); n > emvqr.MaxMerchantIDLen {
		return Config{}, fmt.Errorf("merchant.id has %d characters, max %d", n, emvqr.MaxMerchantIDLen)
	}
	return cfg, nil
}
