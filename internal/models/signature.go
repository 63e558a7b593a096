package models

import (
	"strings"

	apperrors "github.com/juancollazo-ch/gatepay-signature-service/internal/errors"
)

// DefaultPackageTag es el package_ext que espera el backend del comercio
const DefaultPackageTag = "GatePay"

// SignatureRequest es el cuerpo enviado al backend para obtener la firma.
// Solo se construye con NewSignatureRequest, que garantiza un orderid no vacío.
type SignatureRequest struct {
	OrderID    string `json:"orderid"`
	PackageTag string `json:"package_ext"`
}

// NewSignatureRequest recorta el order id y rechaza valores vacíos antes de tocar la red
func NewSignatureRequest(orderID, packageTag string) (SignatureRequest, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return SignatureRequest{}, apperrors.ErrBlankOrderID
	}
	if packageTag == "" {
		packageTag = DefaultPackageTag
	}
	return SignatureRequest{OrderID: orderID, PackageTag: packageTag}, nil
}

// SignatureData es la autorización firmada que se entrega al cashier
type SignatureData struct {
	OrderID   string `json:"orderId"`
	Timestamp int64  `json:"timestamp"` // epoch ms
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

// Usable indica si los cuatro campos vienen informados.
// Una firma o nonce vacíos se parsean bien pero no sirven para abrir el pago.
func (d SignatureData) Usable() bool {
	return d.OrderID != "" && d.Timestamp != 0 && d.Nonce != "" && d.Signature != ""
}
