package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	apperrors "github.com/juancollazo-ch/gatepay-signature-service/internal/errors"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/models"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/settings"
)

// RequestValidator validates console requests before anything reaches the network
type RequestValidator struct {
	packageTagRegex *regexp.Regexp
	colorRegex      *regexp.Regexp
}

// NewRequestValidator creates a new RequestValidator instance
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{
		// Accepts: "GatePay", "Gate_Pay-2" (letters, digits, "_" and "-", max 32)
		packageTagRegex: regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`),
		colorRegex:      regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`),
	}
}

// ValidateOrderID trims the identifier and rejects blank or unsafe values
func (v *RequestValidator) ValidateOrderID(orderID string) (string, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return "", apperrors.ErrBlankOrderID
	}

	// Prevent control characters leaking into logs and the outbound body
	for _, r := range orderID {
		if r < 0x20 || r == 0x7f {
			return "", errors.New("order id contains invalid characters")
		}
	}
	return orderID, nil
}

// ValidatePackageTag validates the package_ext sent with each signature request
func (v *RequestValidator) ValidatePackageTag(tag string) error {
	if tag == "" {
		return errors.New("package tag is required")
	}
	if !v.packageTagRegex.MatchString(tag) {
		return errors.New("package tag must be 1-32 letters, digits, '_' or '-'")
	}
	return nil
}

// ValidateSettingsRequest converts a console request into exactly one settings change
func (v *RequestValidator) ValidateSettingsRequest(req models.SettingsRequest) (settings.Change, error) {
	set := 0
	for _, present := range []bool{req.Language != "", req.Theme != "" || req.Palette != nil, req.Mode != ""} {
		if present {
			set++
		}
	}
	if set != 1 {
		return settings.Change{}, errors.New("exactly one of language, theme or mode must be provided")
	}

	switch {
	case req.Language != "":
		lang, err := settings.ParseLanguage(req.Language)
		if err != nil {
			return settings.Change{}, err
		}
		return settings.LanguageChange(lang), nil

	case req.Mode != "":
		mode, err := settings.ParseThemeMode(req.Mode)
		if err != nil {
			return settings.Change{}, err
		}
		return settings.ModeChange(mode), nil

	case req.Palette != nil:
		if req.Theme != "" && !strings.EqualFold(req.Theme, settings.PresetCustom) {
			return settings.Change{}, fmt.Errorf("palette is only allowed with theme %q", settings.PresetCustom)
		}
		palette, err := v.validatePalette(*req.Palette)
		if err != nil {
			return settings.Change{}, err
		}
		return settings.SchemeChange(settings.CustomScheme(palette)), nil

	default:
		if strings.EqualFold(req.Theme, settings.PresetCustom) {
			return settings.Change{}, errors.New("theme \"custom\" requires a palette")
		}
		scheme, err := settings.ParsePreset(req.Theme)
		if err != nil {
			return settings.Change{}, err
		}
		return settings.SchemeChange(scheme), nil
	}
}

func (v *RequestValidator) validatePalette(p models.PaletteRequest) (settings.Palette, error) {
	colors := []struct {
		name  string
		value string
	}{
		{"brand", p.Brand},
		{"brand_tag_text", p.BrandTagText},
		{"button_text", p.ButtonText},
		{"button_background", p.ButtonBackground},
		{"button_text_secondary", p.ButtonTextSecondary},
		{"button_background_secondary", p.ButtonBackgroundSecondary},
	}
	for _, c := range colors {
		if !v.colorRegex.MatchString(c.value) {
			return settings.Palette{}, fmt.Errorf("palette.%s must be #RRGGBB, got %q", c.name, c.value)
		}
	}

	// se normaliza a mayúsculas para que "#ffffff" y "#FFFFFF" comparen igual
	return settings.Palette{
		Brand:                     strings.ToUpper(p.Brand),
		BrandTagText:              strings.ToUpper(p.BrandTagText),
		ButtonText:                strings.ToUpper(p.ButtonText),
		ButtonBackground:          strings.ToUpper(p.ButtonBackground),
		ButtonTextSecondary:       strings.ToUpper(p.ButtonTextSecondary),
		ButtonBackgroundSecondary: strings.ToUpper(p.ButtonBackgroundSecondary),
	}, nil
}
