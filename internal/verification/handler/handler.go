package handler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sapp/internal/credential/codec"
	credmodels "sapp/internal/credential/models"
	"sapp/internal/qr"
	"sapp/internal/scan"
	"sapp/internal/verification/models"
	verificationservice "sapp/internal/verification/service"
	id "sapp/pkg/domain"
	dErrors "sapp/pkg/domain-errors"
	"sapp/pkg/platform/httputil"
	"sapp/pkg/requestcontext"
	"sapp/pkg/validation"
)

// DefaultMaxFrameBytes bounds uploaded camera frames.
const DefaultMaxFrameBytes = 4 << 20

// Service defines the scan session operations used by the handler.
type Service interface {
	Start(ctx context.Context, cameraErr scan.CameraErrorKind) (*models.SessionView, error)
	Get(ctx context.Context, sessionID id.ScanSessionID) (*models.SessionView, error)
	SubmitTransport(ctx context.Context, sessionID id.ScanSessionID, raw string) (*models.ScanOutcome, error)
	SubmitFrame(ctx context.Context, sessionID id.ScanSessionID, frame image.Image) (*models.ScanOutcome, error)
	Reset(ctx context.Context, sessionID id.ScanSessionID) (*models.SessionView, error)
	History(ctx context.Context, sessionID id.ScanSessionID) ([]credmodels.ScanResult, error)
	Close(ctx context.Context, sessionID id.ScanSessionID) error
}

// Handler wires scan session endpoints to the verification service.
type Handler struct {
	service       Service
	logger        *slog.Logger
	maxFrameBytes int64
}

// New constructs a handler. Non-positive maxFrameBytes uses DefaultMaxFrameBytes.
func New(service Service, logger *slog.Logger, maxFrameBytes int64) *Handler {
	if maxFrameBytes <= 0 {
		maxFrameBytes = DefaultMaxFrameBytes
	}
	return &Handler{service: service, logger: logger, maxFrameBytes: maxFrameBytes}
}

// Register mounts scan session endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/scan-sessions", func(r chi.Router) {
		r.Post("/", h.HandleStart)
		r.Get("/{sessionID}", h.HandleGet)
		r.Delete("/{sessionID}", h.HandleClose)
		r.Post("/{sessionID}/scans", h.HandleScan)
		r.Post("/{sessionID}/frames", h.HandleFrame)
		r.Post("/{sessionID}/reset", h.HandleReset)
		r.Get("/{sessionID}/history", h.HandleHistory)
	})
}

// StartRequest is the request body for opening a scan session. CameraError is
// set when the device could not open its camera.
type StartRequest struct {
	CameraError string `json:"camera_error,omitempty" validate:"omitempty,oneof=permission_denied unavailable"`

	parsedCameraError scan.CameraErrorKind
}

func (r *StartRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.Validate(r); err != nil {
		return err
	}
	if r.CameraError != "" {
		kind, err := scan.ParseCameraErrorKind(r.CameraError)
		if err != nil {
			return dErrors.New(dErrors.CodeBadRequest, err.Error())
		}
		r.parsedCameraError = kind
	}
	return nil
}

func (r *StartRequest) ParsedCameraError() scan.CameraErrorKind {
	return r.parsedCameraError
}

// ScanRequest carries a transport string decoded on the device.
type ScanRequest struct {
	Transport string `json:"transport"`
}

func (r *ScanRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Transport == "" {
		return dErrors.New(dErrors.CodeValidation, "transport is required")
	}
	return validation.CheckStringLength("transport", r.Transport, codec.MaxTransportBytes)
}

// SessionResponse describes a scan session.
type SessionResponse struct {
	SessionID string                 `json:"session_id"`
	State     string                 `json:"state"`
	Message   string                 `json:"message,omitempty"`
	Result    *credmodels.ScanResult `json:"result,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// ScanResponse reports the outcome of one submitted frame or transport string.
type ScanResponse struct {
	Accepted bool                   `json:"accepted"`
	State    string                 `json:"state"`
	Result   *credmodels.ScanResult `json:"result,omitempty"`
}

// HistoryResponse lists a session's results, newest first.
type HistoryResponse struct {
	SessionID string                  `json:"session_id"`
	Results   []credmodels.ScanResult `json:"results"`
}

// HandleStart handles POST /scan-sessions requests. An empty body starts a
// session with a working camera.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req := &StartRequest{}
	if r.ContentLength != 0 {
		var ok bool
		req, ok = httputil.DecodeAndPrepare[StartRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
	}

	view, err := h.service.Start(ctx, req.ParsedCameraError())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to start scan session",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusCreated
	if view.State == (scan.Failed{}).Name() {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, toSessionResponse(view))
}

// HandleGet handles GET /scan-sessions/{sessionID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	view, err := h.service.Get(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(view))
}

// HandleScan handles POST /scan-sessions/{sessionID}/scans requests.
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ScanRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	outcome, err := h.service.SubmitTransport(ctx, sessionID, req.Transport)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toScanResponse(outcome))
}

// HandleFrame handles POST /scan-sessions/{sessionID}/frames requests whose
// body is a PNG or JPEG camera frame.
func (h *Handler) HandleFrame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	frame, err := qr.ReadFrame(http.MaxBytesReader(w, r.Body, h.maxFrameBytes))
	if err != nil {
		h.logger.WarnContext(ctx, "unreadable camera frame",
			"request_id", requestID,
			"error", err,
		)
		if errors.Is(err, qr.ErrFrameTooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("frame must be at most %dx%d pixels", qr.MaxFrameEdge, qr.MaxFrameEdge)))
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "frame must be a PNG or JPEG image"))
		return
	}

	outcome, err := h.service.SubmitFrame(ctx, sessionID, frame)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toScanResponse(outcome))
}

// HandleReset handles POST /scan-sessions/{sessionID}/reset requests.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	view, err := h.service.Reset(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(view))
}

// HandleHistory handles GET /scan-sessions/{sessionID}/history requests.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	results, err := h.service.History(ctx, sessionID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load verification history",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sessionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{
		SessionID: sessionID.String(),
		Results:   results,
	})
}

// HandleClose handles DELETE /scan-sessions/{sessionID} requests.
func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.service.Close(r.Context(), sessionID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (id.ScanSessionID, bool) {
	sessionID, err := id.ParseScanSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, err.Error()))
		return id.ScanSessionID{}, false
	}
	return sessionID, true
}

func toSessionResponse(v *models.SessionView) SessionResponse {
	return SessionResponse{
		SessionID: v.ID.String(),
		State:     v.State,
		Message:   v.Message,
		Result:    v.Result,
		CreatedAt: v.CreatedAt,
	}
}

func toScanResponse(o *models.ScanOutcome) ScanResponse {
	return ScanResponse{
		Accepted: o.Accepted,
		State:    o.State,
		Result:   o.Result,
	}
}

var _ Service = (*verificationservice.Service)(nil)
