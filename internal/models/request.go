package models

// SubmitRequest es el body de POST /signature. Si OrderID viene vacío se usa
// el texto pendiente de la superficie.
type SubmitRequest struct {
	OrderID string `json:"order_id,omitempty"`
}

// PendingRequest es el body de PUT /pending (lo que el operador va escribiendo)
type PendingRequest struct {
	Text string `json:"text"`
}

// SettingsRequest representa un cambio de apariencia; debe venir exactamente un campo
type SettingsRequest struct {
	Language string          `json:"language,omitempty"`
	Theme    string          `json:"theme,omitempty"`
	Palette  *PaletteRequest `json:"palette,omitempty"`
	Mode     string          `json:"mode,omitempty"`
}

// PaletteRequest son los colores de un tema "custom" en formato #RRGGBB
type PaletteRequest struct {
	Brand                     string `json:"brand"`
	BrandTagText              string `json:"brand_tag_text"`
	ButtonText                string `json:"button_text"`
	ButtonBackground          string `json:"button_background"`
	ButtonTextSecondary       string `json:"button_text_secondary"`
	ButtonBackgroundSecondary string `json:"button_background_secondary"`
}
