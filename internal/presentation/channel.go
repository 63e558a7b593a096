package presentation

import (
	"github.com/juancollazo-ch/gatepay-signature-service/internal/models"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/outcome"
)

// Update es un resultado publicado junto con la generación que lo produjo
type Update struct {
	Generation uint64
	OrderID    string
	Outcome    outcome.Outcome[models.SignatureData]
}

// Channel agrupa los tres flujos observables del proceso
type Channel struct {
	Outcomes    *Broadcast[Update]
	InputErrors *Broadcast[string]
	Logs        *Broadcast[string]
}

func NewChannel() *Channel {
	return &Channel{
		Outcomes:    NewBroadcast[Update](),
		InputErrors: NewBroadcast[string](),
		Logs:        NewBroadcast[string](),
	}
}
