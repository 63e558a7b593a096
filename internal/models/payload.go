package models

import "strconv"

// CashierPayload es lo que recibe el consumidor de firmas verificadas para abrir el pago
type CashierPayload struct {
	PrepayID   string `json:"prepayId"`
	Timestamp  string `json:"timestamp"`
	Nonce      string `json:"nonce"`
	Signature  string `json:"signature"`
	PackageExt string `json:"package_ext"`
}

// CashierReply es la respuesta del consumidor: code 0 significa página abierta
type CashierReply struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ToCashierPayload convierte SignatureData al payload del cashier.
// El timestamp viaja como string, igual que lo espera el SDK de pago.
func (d SignatureData) ToCashierPayload(packageTag string) CashierPayload {
	if packageTag == "" {
		packageTag = DefaultPackageTag
	}
	return CashierPayload{
		PrepayID:   d.OrderID,
		Timestamp:  strconv.FormatInt(d.Timestamp, 10),
		Nonce:      d.Nonce,
		Signature:  d.Signature,
		PackageExt: packageTag,
	}
}
