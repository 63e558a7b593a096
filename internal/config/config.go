// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port       string           `yaml:"port"`
	Debug      bool             `yaml:"debug"`
	Workers    int              `yaml:"workers"`
	OrderID    string           `yaml:"order_id"` // id inicial de la primera superficie
	Signature  SignatureConfig  `yaml:"signature"`
	Cashier    CashierConfig    `yaml:"cashier"`
	Transport  TransportConfig  `yaml:"transport"`
	Console    ConsoleConfig    `yaml:"console"`
	Appearance AppearanceConfig `yaml:"appearance"`
}

// ---- SIGNATURE BACKEND ----

type SignatureConfig struct {
	BaseURL    string `yaml:"base_url"`
	Path       string `yaml:"path"`
	PackageTag string `yaml:"package_tag"`
}

// Endpoint une base_url y path sin duplicar "/"
func (s SignatureConfig) Endpoint() string {
	return strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(s.Path, "/")
}

// ---- CASHIER (consumidor de firmas verificadas) ----

type CashierConfig struct {
	URL string `yaml:"url"`
}

// ---- TRANSPORT ----

type TransportConfig struct {
	ConnectTimeoutMs int  `yaml:"connect_timeout_ms"`
	ReadTimeoutMs    int  `yaml:"read_timeout_ms"`
	WriteTimeoutMs   int  `yaml:"write_timeout_ms"`
	TrustAllCerts    bool `yaml:"trust_all_certs"` // solo con debug
	Trace            bool `yaml:"trace"`           // solo con debug
	BreakerFailures  int  `yaml:"breaker_failures"`
	BreakerOpenMs    int  `yaml:"breaker_open_ms"`
}

func (t TransportConfig) ConnectTimeout() time.Duration {
	return time.Duration(t.ConnectTimeoutMs) * time.Millisecond
}

func (t TransportConfig) ReadTimeout() time.Duration {
	return time.Duration(t.ReadTimeoutMs) * time.Millisecond
}

func (t TransportConfig) WriteTimeout() time.Duration {
	return time.Duration(t.WriteTimeoutMs) * time.Millisecond
}

func (t TransportConfig) BreakerOpen() time.Duration {
	return time.Duration(t.BreakerOpenMs) * time.Millisecond
}

// ---- CONSOLE (HTTP del operador) ----

type ConsoleConfig struct {
	SubmitRPS   float64 `yaml:"submit_rps"`
	SubmitBurst int     `yaml:"submit_burst"`
}

// ---- APPEARANCE (valores iniciales) ----

type AppearanceConfig struct {
	Language string `yaml:"language"`
	Theme    string `yaml:"theme"`
	Mode     string `yaml:"mode"`
}

// Defaults devuelve la configuración base (timeouts iguales a los del cliente original)
func Defaults() Config {
	return Config{
		Port:    "8080",
		Workers: 4,
		Signature: SignatureConfig{
			Path:       "api/v1/pay/signature",
			PackageTag: "GatePay",
		},
		Transport: TransportConfig{
			ConnectTimeoutMs: 15000,
			ReadTimeoutMs:    20000,
			WriteTimeoutMs:   15000,
			BreakerFailures:  5,
			BreakerOpenMs:    30000,
		},
		Console: ConsoleConfig{
			SubmitRPS:   2,
			SubmitBurst: 4,
		},
		Appearance: AppearanceConfig{
			Language: "en",
			Theme:    "default",
			Mode:     "auto",
		},
	}
}

// Load lee el YAML (opcional) y aplica las variables de entorno encima.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	var firstErr error
	setInt := func(key string, dst *int) {
		v := getenv(key)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s must be an integer: %w", key, err)
			}
			return
		}
		*dst = n
	}
	setBool := func(key string, dst *bool) {
		v := getenv(key)
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s must be a boolean: %w", key, err)
			}
			return
		}
		*dst = b
	}
	setFloat := func(key string, dst *float64) {
		v := getenv(key)
		if v == "" {
			return
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s must be a number: %w", key, err)
			}
			return
		}
		*dst = f
	}

	setString("PORT", &cfg.Port)
	setBool("DEBUG", &cfg.Debug)
	setInt("WORKERS", &cfg.Workers)
	setString("ORDER_ID", &cfg.OrderID)

	setString("SIGNATURE_BASE_URL", &cfg.Signature.BaseURL)
	setString("SIGNATURE_PATH", &cfg.Signature.Path)
	setString("PACKAGE_TAG", &cfg.Signature.PackageTag)
	setString("CASHIER_URL", &cfg.Cashier.URL)

	setInt("CONNECT_TIMEOUT_MS", &cfg.Transport.ConnectTimeoutMs)
	setInt("READ_TIMEOUT_MS", &cfg.Transport.ReadTimeoutMs)
	setInt("WRITE_TIMEOUT_MS", &cfg.Transport.WriteTimeoutMs)
	setBool("TRUST_ALL_CERTS", &cfg.Transport.TrustAllCerts)
	setBool("HTTP_TRACE", &cfg.Transport.Trace)
	setInt("BREAKER_FAILURES", &cfg.Transport.BreakerFailures)
	setInt("BREAKER_OPEN_MS", &cfg.Transport.BreakerOpenMs)

	setFloat("SUBMIT_RPS", &cfg.Console.SubmitRPS)
	setInt("SUBMIT_BURST", &cfg.Console.SubmitBurst)

	setString("APPEARANCE_LANGUAGE", &cfg.Appearance.Language)
	setString("APPEARANCE_THEME", &cfg.Appearance.Theme)
	setString("APPEARANCE_MODE", &cfg.Appearance.Mode)

	return firstErr
}
