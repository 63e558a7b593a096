// Package normalize convierte la respuesta cruda del backend de firmas en un
// único outcome.Outcome. Es puro: la misma respuesta da siempre el mismo
// resultado y ningún fallo se escapa.
package normalize

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/juancollazo-ch/gatepay-signature-service/internal/errors"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/models"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/outcome"
)

// Result es el Outcome de una solicitud de firma
type Result = outcome.Outcome[models.SignatureData]

// Normalize convierte reply en Success, Error o Failure.
//
// Success exige que el código de negocio esté ausente (nil, cero o vacío) y
// que exista bizData; el code de primer nivel solo no alcanza.
func Normalize(reply *models.RawReply) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = outcome.Failure[models.SignatureData](
				apperrors.ErrMalformedReply("normalize", fmt.Errorf("%v", r)),
			)
		}
	}()

	if reply == nil {
		return outcome.Failure[models.SignatureData](
			apperrors.ErrMalformedReply("normalize", fmt.Errorf("nil reply")),
		)
	}

	var bizCode, bizMessage *string
	var bizData *models.BizData
	if reply.Business != nil {
		bizCode = reply.Business.BizCode
		bizMessage = reply.Business.BizMessage
		bizData = reply.Business.BizData
	}

	if codeAbsent(bizCode) && bizData != nil {
		return outcome.Success(models.SignatureData{
			OrderID:   deref(bizData.OrderID),
			Timestamp: bizData.Timestamp,
			Nonce:     deref(bizData.Nonce),
			Signature: deref(bizData.Signature),
		})
	}

	return outcome.Error[models.SignatureData](
		errorCode(bizCode, reply.Code),
		errorMessage(bizCode, bizMessage, reply.Message, reply.Code),
	)
}

// Body decodifica y normaliza un body crudo. Un body ilegible es Failure.
func Body(body []byte) Result {
	reply, err := models.ParseRawReply(body)
	if err != nil {
		return outcome.Failure[models.SignatureData](apperrors.ErrMalformedReply("decode", err))
	}
	return Normalize(reply)
}

// codeAbsent implementa el chequeo de tres estados: nil, cero literal o vacío
func codeAbsent(code *string) bool {
	if code == nil {
		return true
	}
	c := strings.TrimSpace(*code)
	return c == "" || c == "0"
}

func errorCode(bizCode *string, topLevel int) int {
	if bizCode != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(*bizCode)); err == nil {
			return n
		}
	}
	return topLevel
}

// errorMessage prefiere el mensaje más específico y nunca devuelve vacío
func errorMessage(bizCode, bizMessage, topLevel *string, code int) string {
	if bizMessage != nil && strings.TrimSpace(*bizMessage) != "" {
		return *bizMessage
	}
	if topLevel != nil && strings.TrimSpace(*topLevel) != "" {
		return *topLevel
	}
	if bizCode != nil {
		return fmt.Sprintf("signature retrieval failed (bizCode: %s)", *bizCode)
	}
	return fmt.Sprintf("signature retrieval failed (code: %d)", code)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
