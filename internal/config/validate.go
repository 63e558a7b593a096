// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/juancollazo-ch/gatepay-signature-service/internal/settings"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/validator"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	// ------------------------------------------------------------
	// ENDPOINTS
	// ------------------------------------------------------------

	if err := validateURL("signature.base_url", cfg.Signature.BaseURL); err != nil {
		return err
	}
	if err := validateURL("cashier.url", cfg.Cashier.URL); err != nil {
		return err
	}
	if err := validator.NewRequestValidator().ValidatePackageTag(cfg.Signature.PackageTag); err != nil {
		return fmt.Errorf("signature.package_tag: %w", err)
	}

	// ------------------------------------------------------------
	// TRANSPORT
	// ------------------------------------------------------------

	t := cfg.Transport
	if t.ConnectTimeoutMs <= 0 || t.ReadTimeoutMs <= 0 || t.WriteTimeoutMs <= 0 {
		return fmt.Errorf(
			"transport timeouts must be positive (connect=%d read=%d write=%d)",
			t.ConnectTimeoutMs, t.ReadTimeoutMs, t.WriteTimeoutMs,
		)
	}

	// trust-all nunca se activa en silencio: exige debug explícito
	if t.TrustAllCerts && !cfg.Debug {
		return errors.New("transport.trust_all_certs requires debug=true")
	}
	if t.Trace && !cfg.Debug {
		return errors.New("transport.trace requires debug=true")
	}

	if t.BreakerFailures <= 0 {
		return fmt.Errorf("transport.breaker_failures must be positive, got %d", t.BreakerFailures)
	}
	if t.BreakerOpenMs <= 0 {
		return fmt.Errorf("transport.breaker_open_ms must be positive, got %d", t.BreakerOpenMs)
	}

	// ------------------------------------------------------------
	// WORKERS + CONSOLE
	// ------------------------------------------------------------

	if cfg.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	if cfg.Console.SubmitRPS <= 0 || cfg.Console.SubmitBurst <= 0 {
		return errors.New("console.submit_rps and console.submit_burst must be positive")
	}

	// ------------------------------------------------------------
	// APPEARANCE
	// ------------------------------------------------------------

	if _, err := settings.FromStrings(cfg.Appearance.Language, cfg.Appearance.Theme, cfg.Appearance.Mode); err != nil {
		return fmt.Errorf("appearance: %w", err)
	}

	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: scheme must be http or https, got %q", field, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: host is required", field)
	}
	return nil
}
