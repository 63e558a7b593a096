// Package settings modela los ajustes de apariencia: idioma, esquema de color y
// modo día/noche. Aplicar un valor distinto del activo levanta una señal de
// reinicio.
package settings

import (
	"fmt"
	"strings"
)

// Language es uno de los códigos de idioma que soporta la página de pago
type Language string

const (
	LangEN Language = "en" // English
	LangZH Language = "zh" // Simplified Chinese
	LangTW Language = "tw" // Traditional Chinese (Taiwan)
	LangHK Language = "hk" // Traditional Chinese (Hong Kong)
	LangJA Language = "ja"
	LangKO Language = "ko"
	LangES Language = "es"
	LangFR Language = "fr"
	LangDE Language = "de"
	LangRU Language = "ru"
	LangAR Language = "ar"
	LangTR Language = "tr"
	LangPT Language = "pt"
	LangVI Language = "vi"
	LangTH Language = "th"
	LangIN Language = "in" // Bahasa Indonesia usa "in", no "id"
)

var supportedLanguages = []Language{
	LangEN, LangZH, LangTW, LangHK, LangJA, LangKO, LangES, LangFR,
	LangDE, LangRU, LangAR, LangTR, LangPT, LangVI, LangTH, LangIN,
}

// Languages devuelve los códigos soportados en orden de presentación
func Languages() []Language {
	out := make([]Language, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// ParseLanguage compara code sin distinguir mayúsculas
func ParseLanguage(code string) (Language, error) {
	code = strings.TrimSpace(code)
	for _, l := range supportedLanguages {
		if strings.EqualFold(string(l), code) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unsupported language %q", code)
}

// ThemeMode es el modo día/noche
type ThemeMode int

const (
	ModeAuto ThemeMode = iota
	ModeDay
	ModeNight
)

func (m ThemeMode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeDay:
		return "day"
	case ModeNight:
		return "night"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseThemeMode(s string) (ThemeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "":
		return ModeAuto, nil
	case "day", "light":
		return ModeDay, nil
	case "night", "dark":
		return ModeNight, nil
	default:
		return ModeAuto, fmt.Errorf("unsupported theme mode %q", s)
	}
}

// Palette son los seis colores de marca en formato #RRGGBB
type Palette struct {
	Brand                     string
	BrandTagText              string
	ButtonText                string
	ButtonBackground          string
	ButtonTextSecondary       string
	ButtonBackgroundSecondary string
}

// ColorScheme es un preset o una paleta custom. Es comparable con ==.
type ColorScheme struct {
	Preset  string
	Palette Palette
}

const (
	PresetDefault   = "default"
	PresetLightBlue = "light_blue"
	PresetRed       = "red"
	PresetCustom    = "custom"
)

var presets = map[string]Palette{
	PresetDefault: {},
	PresetLightBlue: {
		Brand:                     "#2354E6",
		BrandTagText:              "#FFFFFF",
		ButtonText:                "#FFFFFF",
		ButtonBackground:          "#5B8CFF",
		ButtonTextSecondary:       "#FF8C1A",
		ButtonBackgroundSecondary: "#FFF1E0",
	},
	PresetRed: {
		Brand:                     "#F74B60",
		BrandTagText:              "#FFFFFF",
		ButtonText:                "#FFFFFF",
		ButtonBackground:          "#E0303F",
		ButtonTextSecondary:       "#FFFFFF",
		ButtonBackgroundSecondary: "#17B26A",
	},
}

// ParsePreset devuelve el preset con ese nombre
func ParsePreset(name string) (ColorScheme, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = PresetDefault
	}
	p, ok := presets[name]
	if !ok {
		return ColorScheme{}, fmt.Errorf("unknown color scheme %q", name)
	}
	return ColorScheme{Preset: name, Palette: p}, nil
}

// CustomScheme envuelve una paleta ya validada
func CustomScheme(p Palette) ColorScheme {
	return ColorScheme{Preset: PresetCustom, Palette: p}
}

func (c ColorScheme) String() string {
	if c.Preset == "" {
		return PresetDefault
	}
	return c.Preset
}

// Settings es la apariencia activa
type Settings struct {
	Language Language
	Scheme   ColorScheme
	Mode     ThemeMode
}

// Default: inglés, colores por defecto y modo automático
func Default() Settings {
	scheme, _ := ParsePreset(PresetDefault)
	return Settings{Language: LangEN, Scheme: scheme, Mode: ModeAuto}
}

// FromStrings arma la apariencia inicial desde la configuración
func FromStrings(language, theme, mode string) (Settings, error) {
	s := Default()
	var err error
	if language != "" {
		if s.Language, err = ParseLanguage(language); err != nil {
			return Settings{}, err
		}
	}
	if s.Scheme, err = ParsePreset(theme); err != nil {
		return Settings{}, err
	}
	if s.Mode, err = ParseThemeMode(mode); err != nil {
		return Settings{}, err
	}
	return s, nil
}
