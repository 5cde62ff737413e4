package handler

//go:generate mockgen -source=handler.go -destination=mocks/handler_mock.go -package=mocks Service

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"sapp/internal/credential/handler/mocks"
	"sapp/internal/credential/models"
	id "sapp/pkg/domain"
	dErrors "sapp/pkg/domain-errors"
)

type HandlerSuite struct {
	suite.Suite
	router      http.Handler
	ctrl        *gomock.Controller
	mockService *mocks.MockService
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	r := chi.NewRouter()
	New(s.mockService, logger).Register(r)
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func issued() *models.IssuedCredential {
	issuedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &models.IssuedCredential{
		Record: models.CredentialRecord{
			SubjectID:      "abc123",
			DisplayName:    "Jane Doe",
			Organization:   "Acme",
			MemberID:       "SAPP-ABC12300",
			IssuedAt:       issuedAt,
			ExpiresAt:      issuedAt.Add(24 * time.Hour),
			Issuer:         "SAPP Security",
			IntegrityToken: "YWJjMTIzMjAyNi0w",
		},
		Transport: `{"subjectId":"abc123"}`,
		QRCode:    []byte{0x89, 'P', 'N', 'G'},
		Notice:    "valid for 24 hours",
	}
}

func (s *HandlerSuite) post(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestIssue() {
	s.mockService.EXPECT().Issue(gomock.Any(), id.SubjectID("abc123")).Return(issued(), nil)

	rec := s.post("/credentials/issue", `{"subject_id":"abc123"}`)

	s.Require().Equal(http.StatusOK, rec.Code)
	var resp IssueResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("SAPP-ABC12300", resp.Credential.MemberID)
	s.Equal("valid for 24 hours", resp.Notice)
	s.Equal(`{"subjectId":"abc123"}`, resp.Transport)

	png, err := base64.StdEncoding.DecodeString(resp.QRPNG)
	s.Require().NoError(err)
	s.Equal([]byte{0x89, 'P', 'N', 'G'}, png)
}

func (s *HandlerSuite) TestIssueValidation() {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"invalid json", `not json`, http.StatusBadRequest},
		{"missing subject", `{}`, http.StatusBadRequest},
		{"blank subject", `{"subject_id":"   "}`, http.StatusBadRequest},
		{"oversized subject", `{"subject_id":"` + strings.Repeat("a", 129) + `"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec := s.post("/credentials/issue", tt.body)
			assert.Equal(s.T(), tt.code, rec.Code)
		})
	}
}

func (s *HandlerSuite) TestIssueUnknownMember() {
	s.mockService.EXPECT().Issue(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "member profile not found"))

	rec := s.post("/credentials/issue", `{"subject_id":"nobody"}`)

	s.Equal(http.StatusNotFound, rec.Code)
	s.Contains(rec.Body.String(), "not_found")
}

func (s *HandlerSuite) TestQRCode() {
	s.mockService.EXPECT().QRCode(gomock.Any(), id.SubjectID("abc123")).Return([]byte("png-bytes"), nil)

	req := httptest.NewRequest(http.MethodGet, "/credentials/abc123/qr", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("image/png", rec.Header().Get("Content-Type"))
	s.Equal("no-store", rec.Header().Get("Cache-Control"))
	s.Equal("png-bytes", rec.Body.String())
}

func (s *HandlerSuite) TestQRCodeServiceError() {
	s.mockService.EXPECT().QRCode(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeInternal, "failed to render credential QR code"))

	req := httptest.NewRequest(http.MethodGet, "/credentials/abc123/qr", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusInternalServerError, rec.Code)
}
