package models

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

// RawReply es la forma "wire" de la respuesta del backend de firmas.
// Solo la consume el normalizador; nunca sale de él.
type RawReply struct {
	Code     int
	Message  *string
	Business *Business
}

// Business es el bloque "data" con el resultado de negocio
type Business struct {
	BizCode    *string // puede venir como string o como número
	BizMessage *string
	BizData    *BizData
}

// BizData trae la firma; el id llega como prepayId u orderId según el backend
type BizData struct {
	OrderID   *string
	Timestamp int64
	Nonce     *string
	Signature *string
}

// ParseRawReply decodifica el body con gjson.
// Los tipos heterogéneos (bizCode numérico o string) se normalizan a string;
// cualquier otro desajuste de tipos es un error.
func ParseRawReply(body []byte) (*RawReply, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("empty reply body")
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("reply is not valid JSON")
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, fmt.Errorf("reply must be a JSON object, got %s", root.Type)
	}

	reply := &RawReply{}

	code, err := optionalInt(root.Get("code"), "code")
	if err != nil {
		return nil, err
	}
	reply.Code = int(code)

	if reply.Message, err = optionalString(root.Get("message"), "message"); err != nil {
		return nil, err
	}

	data := root.Get("data")
	if data.Type == gjson.Null {
		return reply, nil
	}
	if !data.IsObject() {
		return nil, fmt.Errorf("data: expected object, got %s", data.Type)
	}

	business := &Business{}
	if business.BizCode, err = optionalString(data.Get("bizCode"), "data.bizCode"); err != nil {
		return nil, err
	}
	if business.BizMessage, err = optionalString(data.Get("bizMessage"), "data.bizMessage"); err != nil {
		return nil, err
	}

	bizData := data.Get("bizData")
	if bizData.Type != gjson.Null {
		if !bizData.IsObject() {
			return nil, fmt.Errorf("data.bizData: expected object, got %s", bizData.Type)
		}
		if business.BizData, err = parseBizData(bizData); err != nil {
			return nil, err
		}
	}

	reply.Business = business
	return reply, nil
}

func parseBizData(r gjson.Result) (*BizData, error) {
	out := &BizData{}
	var err error

	idField := r.Get("prepayId")
	if idField.Type == gjson.Null {
		idField = r.Get("orderId")
	}
	if out.OrderID, err = optionalString(idField, "data.bizData.prepayId"); err != nil {
		return nil, err
	}
	if out.Timestamp, err = optionalInt(r.Get("ts"), "data.bizData.ts"); err != nil {
		return nil, err
	}
	if out.Nonce, err = optionalString(r.Get("nonce"), "data.bizData.nonce"); err != nil {
		return nil, err
	}
	if out.Signature, err = optionalString(r.Get("signature"), "data.bizData.signature"); err != nil {
		return nil, err
	}
	return out, nil
}

// optionalString acepta null/ausente (nil), strings y números (su texto literal)
func optionalString(r gjson.Result, field string) (*string, error) {
	switch r.Type {
	case gjson.Null:
		return nil, nil
	case gjson.String:
		s := r.Str
		return &s, nil
	case gjson.Number:
		s := r.Raw
		return &s, nil
	default:
		return nil, fmt.Errorf("%s: expected string, got %s", field, r.Type)
	}
}

// optionalInt acepta null/ausente (0), enteros y strings numéricos
func optionalInt(r gjson.Result, field string) (int64, error) {
	switch r.Type {
	case gjson.Null:
		return 0, nil
	case gjson.Number:
		n, err := strconv.ParseInt(r.Raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: expected integer, got %s", field, r.Raw)
		}
		return n, nil
	case gjson.String:
		n, err := strconv.ParseInt(r.Str, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: expected integer, got %q", field, r.Str)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s: expected integer, got %s", field, r.Type)
	}
}
