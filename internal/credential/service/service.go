package service

import (
	"context"
	"errors"
	"log/slog"

	"sapp/internal/credential/codec"
	"sapp/internal/credential/issuer"
	"sapp/internal/credential/models"
	"sapp/pkg/platform/privacy"
	"sapp/internal/platform/tracer"
	id "sapp/pkg/domain"
	dErrors "sapp/pkg/domain-errors"
	"sapp/pkg/platform/audit"
	"sapp/pkg/platform/sentinel"
	"sapp/pkg/requestcontext"
)

// ProfileSource is the read-only member profile lookup.
type ProfileSource interface {
	FindBySubject(ctx context.Context, subjectID id.SubjectID) (models.Profile, error)
}

// Renderer turns a transport string into a PNG QR code.
type Renderer interface {
	Render(transport string) ([]byte, error)
}

// Auditor records credential lifecycle events.
type Auditor interface {
	Log(ctx context.Context, event audit.AuditEvent, attributes ...any)
}

// Metrics counts issuance outcomes.
type Metrics interface {
	IncrementCredentialsIssued()
	IncrementIssueFailure(reason string)
}

// Option configures the credential service.
type Option func(*Service)

// Service issues credentials for members found in the profile source.
type Service struct {
	profiles ProfileSource
	issuer   *issuer.Issuer
	renderer Renderer
	auditor  Auditor
	metrics  Metrics
	tracer   tracer.Tracer
	logger   *slog.Logger
}

// NewService creates a credential service with the required dependencies.
func NewService(profiles ProfileSource, iss *issuer.Issuer, renderer Renderer, opts ...Option) *Service {
	svc := &Service{
		profiles: profiles,
		issuer:   iss,
		renderer: renderer,
		tracer:   tracer.NewNoop(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithAuditor(auditor Auditor) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Issue builds a fresh credential for subjectID as of the request time, encodes
// it and renders its QR code. Nothing is stored.
func (s *Service) Issue(ctx context.Context, subjectID id.SubjectID) (result *models.IssuedCredential, err error) {
	if subjectID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "subject_id is required")
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanCredentialIssue,
		tracer.String(tracer.AttrSubjectHash, tracer.HashSubject(subjectID.String())),
	)
	defer func() { span.End(err) }()

	profile, err := s.profiles.FindBySubject(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.countFailure("profile_not_found")
			return nil, dErrors.New(dErrors.CodeNotFound, "member profile not found")
		}
		s.countFailure("profile_lookup")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member profile")
	}

	record := s.issuer.Issue(profile, requestcontext.Now(ctx))

	transport, err := codec.Encode(record)
	if err != nil {
		s.countFailure("encode")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode credential")
	}

	png, err := s.render(ctx, transport)
	if err != nil {
		s.countFailure("render")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render credential QR code")
	}

	if s.metrics != nil {
		s.metrics.IncrementCredentialsIssued()
	}
	s.logger.DebugContext(ctx, "credential issued",
		"member_id", record.MemberID,
		"email", privacy.MaskEmail(record.Email),
		"expires_at", record.ExpiresAt,
	)
	s.logAudit(ctx, record)

	return &models.IssuedCredential{
		Record:    record,
		Transport: transport,
		QRCode:    png,
		Notice:    models.ValidityNotice(s.issuer.ValidityWindow()),
	}, nil
}

// QRCode issues a credential and returns only its PNG.
func (s *Service) QRCode(ctx context.Context, subjectID id.SubjectID) ([]byte, error) {
	issued, err := s.Issue(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return issued.QRCode, nil
}

func (s *Service) render(ctx context.Context, transport string) ([]byte, error) {
	_, span := s.tracer.Start(ctx, tracer.SpanCredentialRender)
	png, err := s.renderer.Render(transport)
	if err == nil {
		span.SetAttributes(tracer.Int64(tracer.AttrQRBytes, int64(len(png))))
	}
	span.End(err)
	return png, err
}

func (s *Service) countFailure(reason string) {
	if s.metrics != nil {
		s.metrics.IncrementIssueFailure(reason)
	}
}

func (s *Service) logAudit(ctx context.Context, record models.CredentialRecord) {
	if s.auditor == nil {
		return
	}
	s.auditor.Log(ctx, audit.EventCredentialIssued,
		"subject_id", record.SubjectID,
		"member_id", record.MemberID,
		"reason", "member_requested",
	)
}
