package models

// RestartSnapshot es el estado mínimo que sobrevive a un reinicio de la superficie.
// Se crea al confirmar un cambio de apariencia y se consume una sola vez.
type RestartSnapshot struct {
	PendingIdentifierText string `json:"pending_identifier_text"`
	LastLogLine           string `json:"last_log_line"`
	OriginalOrderID       string `json:"original_order_id,omitempty"`
}
