package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "github.com/juancollazo-ch/gatepay-signature-service/internal/errors"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/logging"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/models"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/models/serviceresponse"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/presentation"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/settings"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/surface"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/validator"
)

// Coordinator es lo que la consola usa de *restart.Coordinator[*surface.Surface]
type Coordinator interface {
	Current() (*surface.Surface, error)
	Recreate() (*surface.Surface, error)
	RequestChange(change settings.Change) bool
	Settings() settings.Settings
	Restarts() int
}

// ConsoleHandler es la consola HTTP del operador sobre la superficie activa
type ConsoleHandler struct {
	coord     Coordinator
	channel   *presentation.Channel
	validator *validator.RequestValidator
	limiter   *rate.Limiter
}

func NewConsoleHandler(coord Coordinator, channel *presentation.Channel, submitRPS float64, submitBurst int) *ConsoleHandler {
	return &ConsoleHandler{
		coord:     coord,
		channel:   channel,
		validator: validator.NewRequestValidator(),
		limiter:   rate.NewLimiter(rate.Limit(submitRPS), submitBurst),
	}
}

// PUT /pending
func (h *ConsoleHandler) SetPending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.PendingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		zap.L().Error("Invalid JSON", zap.Error(err))
		writeError(w, apperrors.ErrValidation("invalid JSON body", err))
		return
	}

	s, err := h.coord.Current()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.SetPendingText(req.Text); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /signature
func (h *ConsoleHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.limiter.Allow() {
		zap.L().Warn("Submission rate limited")
		writeJSON(w, http.StatusTooManyRequests, serviceresponse.ErrorResponse{
			Kind:    "rate_limited",
			Message: "too many signature requests",
		})
		return
	}

	// body vacío = usar el texto pendiente de la superficie
	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !stderrors.Is(err, io.EOF) {
		zap.L().Error("Invalid JSON", zap.Error(err))
		writeError(w, apperrors.ErrValidation("invalid JSON body", err))
		return
	}

	s, err := h.coord.Current()
	if err != nil {
		writeError(w, err)
		return
	}

	gen, err := s.Submit(r.Context(), req.OrderID)
	if err != nil {
		logging.FromContext(r.Context()).Info("Submission rejected", zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, serviceresponse.SubmitResponse{
		Status:     "requesting",
		OrderID:    strings.TrimSpace(s.State().PendingText),
		Generation: gen,
	})
}

// GET /state
func (h *ConsoleHandler) State(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s, err := h.coord.Current()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.stateResponse(s))
}

// POST /settings
func (h *ConsoleHandler) ChangeSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		zap.L().Error("Invalid JSON", zap.Error(err))
		writeError(w, apperrors.ErrValidation("invalid JSON body", err))
		return
	}

	change, err := h.validator.ValidateSettingsRequest(req)
	if err != nil {
		zap.L().Error("Settings validation failed", zap.Error(err))
		writeError(w, apperrors.ErrValidation(err.Error(), err))
		return
	}

	changed := h.coord.RequestChange(change)
	zap.L().Info("Settings change processed",
		zap.Stringer("change", change),
		zap.Bool("changed", changed),
	)

	writeJSON(w, http.StatusOK, serviceresponse.SettingsResponse{
		Changed:    changed,
		Appearance: appearanceDTO(h.coord.Settings()),
	})
}

// POST /recreate
func (h *ConsoleHandler) Recreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s, err := h.coord.Recreate()
	if err != nil {
		zap.L().Error("Recreate failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.stateResponse(s))
}

func (h *ConsoleHandler) stateResponse(s *surface.Surface) serviceresponse.StateResponse {
	st := s.State()
	return serviceresponse.StateResponse{
		SurfaceID:       st.ID,
		PendingText:     st.PendingText,
		LogLine:         st.LogLine,
		Busy:            st.Busy,
		LastInputError:  st.LastInputError,
		OriginalOrderID: st.OriginalOrderID,
		Restarts:        h.coord.Restarts(),
		Appearance:      appearanceDTO(h.coord.Settings()),
	}
}

func appearanceDTO(s settings.Settings) serviceresponse.AppearanceDTO {
	return serviceresponse.AppearanceDTO{
		Language: string(s.Language),
		Theme:    s.Scheme.String(),
		Mode:     s.Mode.String(),
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("Error encoding response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	msg := err.Error()
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		msg = appErr.Message
		if appErr.Details != "" {
			msg += ": " + appErr.Details
		}
		if stderrors.Is(err, apperrors.ErrBlankOrderID) {
			msg = apperrors.ErrBlankOrderID.Error()
		}
	}
	writeJSON(w, apperrors.GetStatusCode(err), serviceresponse.ErrorResponse{
		Kind:    apperrors.GetKind(err),
		Message: msg,
	})
}
