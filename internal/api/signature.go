package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/juancollazo-ch/gatepay-signature-service/internal/errors"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/logging"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/models"
)

// Sender es lo que SignatureService necesita del transporte
type Sender interface {
	Send(ctx context.Context, call Call) (*Response, error)
}

// SignatureService pide la firma de pago al backend del comercio. Un intento por llamada.
type SignatureService struct {
	transport  Sender
	endpoint   string
	packageTag string
}

func NewSignatureService(transport Sender, endpoint, packageTag string) *SignatureService {
	if packageTag == "" {
		packageTag = models.DefaultPackageTag
	}
	return &SignatureService{
		transport:  transport,
		endpoint:   endpoint,
		packageTag: packageTag,
	}
}

// RequestSignature envía {"orderid","package_ext"} y devuelve la respuesta decodificada.
// Un order id en blanco se rechaza sin tocar la red.
func (s *SignatureService) RequestSignature(ctx context.Context, orderID string) (*models.RawReply, error) {
	req, err := models.NewSignatureRequest(orderID, s.packageTag)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("error marshaling signature request: %w", err)
	}

	logger := logging.FromContext(ctx)
	logger.Info("requesting payment signature",
		zap.String("endpoint", s.endpoint),
		zap.String("package_ext", req.PackageTag),
	)

	resp, err := s.transport.Send(ctx, Call{
		Target: TargetSignature,
		Method: http.MethodPost,
		URL:    s.endpoint,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		Body: body,
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warn("signature backend returned non-2xx",
			zap.Int("status", resp.StatusCode),
			zap.Int("body_len", len(resp.Body)),
		)
		return nil, apperrors.ErrExternalAPI(resp.StatusCode,
			fmt.Sprintf("status %d", resp.StatusCode),
			fmt.Errorf("signature backend: HTTP %d", resp.StatusCode))
	}

	reply, err := models.ParseRawReply(resp.Body)
	if err != nil {
		logger.Warn("malformed signature reply", zap.Error(err))
		return nil, apperrors.ErrMalformedReply("signature reply", err)
	}

	return reply, nil
}
