package handler

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"sapp/internal/credential/models"
	credservice "sapp/internal/credential/service"
	id "sapp/pkg/domain"
	dErrors "sapp/pkg/domain-errors"
	"sapp/pkg/platform/httputil"
	"sapp/pkg/requestcontext"
	"sapp/pkg/validation"
)

// Service defines the issuance operations used by the handler.
type Service interface {
	Issue(ctx context.Context, subjectID id.SubjectID) (*models.IssuedCredential, error)
	QRCode(ctx context.Context, subjectID id.SubjectID) ([]byte, error)
}

// Handler wires credential endpoints to the credential service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts credential endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/credentials/issue", h.HandleIssue)
	r.Get("/credentials/{subjectID}/qr", h.HandleQRCode)
}

// IssueRequest is the request body for credential issuance.
type IssueRequest struct {
	SubjectID string `json:"subject_id" validate:"required,notblank,max=128"`

	parsedSubjectID id.SubjectID
}

func (r *IssueRequest) Normalize() {
	if r != nil {
		r.SubjectID = strings.TrimSpace(r.SubjectID)
	}
}

// Validate validates and parses the issuance request.
func (r *IssueRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.Validate(r); err != nil {
		return err
	}
	parsed, err := id.ParseSubjectID(r.SubjectID)
	if err != nil {
		return dErrors.New(dErrors.CodeBadRequest, err.Error())
	}
	r.parsedSubjectID = parsed
	return nil
}

func (r *IssueRequest) ParsedSubjectID() id.SubjectID {
	return r.parsedSubjectID
}

// CredentialResponse is the JSON view of a credential record.
type CredentialResponse struct {
	SubjectID      string    `json:"subject_id"`
	DisplayName    string    `json:"display_name"`
	Email          string    `json:"email,omitempty"`
	Organization   string    `json:"organization,omitempty"`
	Department     string    `json:"department,omitempty"`
	Title          string    `json:"title,omitempty"`
	MemberID       string    `json:"member_id"`
	IssuedAt       time.Time `json:"issued_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	Issuer         string    `json:"issuer"`
	IntegrityToken string    `json:"integrity_token"`
}

// IssueResponse is the response body for credential issuance.
type IssueResponse struct {
	Transport  string             `json:"transport"`
	Credential CredentialResponse `json:"credential"`
	QRPNG      string             `json:"qr_png"`
	Notice     string             `json:"notice"`
}

// HandleIssue handles POST /credentials/issue requests.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	issued, err := h.service.Issue(ctx, req.ParsedSubjectID())
	if err != nil {
		h.logIssueError(ctx, requestID, err)
		httputil.WriteError(w, err)
		return
	}

	rec := issued.Record
	httputil.WriteJSON(w, http.StatusOK, IssueResponse{
		Transport: issued.Transport,
		Credential: CredentialResponse{
			SubjectID:      rec.SubjectID,
			DisplayName:    rec.DisplayName,
			Email:          rec.Email,
			Organization:   rec.Organization,
			Department:     rec.Department,
			Title:          rec.Title,
			MemberID:       rec.MemberID,
			IssuedAt:       rec.IssuedAt,
			ExpiresAt:      rec.ExpiresAt,
			Issuer:         rec.Issuer,
			IntegrityToken: rec.IntegrityToken,
		},
		QRPNG:  base64.StdEncoding.EncodeToString(issued.QRCode),
		Notice: issued.Notice,
	})
}

// HandleQRCode handles GET /credentials/{subjectID}/qr requests with a PNG body.
func (h *Handler) HandleQRCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, err.Error()))
		return
	}

	png, err := h.service.QRCode(ctx, subjectID)
	if err != nil {
		h.logIssueError(ctx, requestID, err)
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *Handler) logIssueError(ctx context.Context, requestID string, err error) {
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		h.logger.WarnContext(ctx, "credential requested for unknown member",
			"request_id", requestID,
		)
		return
	}
	h.logger.ErrorContext(ctx, "failed to issue credential",
		"request_id", requestID,
		"error", err,
	)
}

var _ Service = (*credservice.Service)(nil)
