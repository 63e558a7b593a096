package settings

import (
	"fmt"

	"github.com/juancollazo-ch/gatepay-signature-service/internal/compare"
	"go.uber.org/zap"
)

// Field indica qué ajuste toca un Change
type Field int

const (
	FieldLanguage Field = iota
	FieldColorScheme
	FieldThemeMode
)

func (f Field) String() string {
	switch f {
	case FieldLanguage:
		return "language"
	case FieldColorScheme:
		return "theme"
	case FieldThemeMode:
		return "mode"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// Change es un único cambio de apariencia pedido
type Change struct {
	Field    Field
	Language Language
	Scheme   ColorScheme
	Mode     ThemeMode
}

func LanguageChange(l Language) Change  { return Change{Field: FieldLanguage, Language: l} }
func SchemeChange(c ColorScheme) Change { return Change{Field: FieldColorScheme, Scheme: c} }
func ModeChange(m ThemeMode) Change     { return Change{Field: FieldThemeMode, Mode: m} }

// Differs indica si aplicar c sobre current cambia algo
func (c Change) Differs(current Settings, logger *zap.Logger) bool {
	switch c.Field {
	case FieldLanguage:
		return compare.Setting(c.Field.String(), current.Language, c.Language, logger).Changed
	case FieldColorScheme:
		return compare.Setting(c.Field.String(), current.Scheme, c.Scheme, logger).Changed
	case FieldThemeMode:
		return compare.Setting(c.Field.String(), current.Mode, c.Mode, logger).Changed
	default:
		return false
	}
}

func (c Change) applyTo(s Settings) Settings {
	switch c.Field {
	case FieldLanguage:
		s.Language = c.Language
	case FieldColorScheme:
		s.Scheme = c.Scheme
	case FieldThemeMode:
		s.Mode = c.Mode
	}
	return s
}

func (c Change) String() string {
	switch c.Field {
	case FieldLanguage:
		return fmt.Sprintf("language=%s", c.Language)
	case FieldColorScheme:
		return fmt.Sprintf("theme=%s", c.Scheme)
	case FieldThemeMode:
		return fmt.Sprintf("mode=%s", c.Mode)
	default:
		return c.Field.String()
	}
}
