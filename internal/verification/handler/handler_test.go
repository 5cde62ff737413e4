package handler

//go:generate mockgen -source=handler.go -destination=mocks/handler_mock.go -package=mocks Service

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	credmodels "sapp/internal/credential/models"
	"sapp/internal/qr"
	"sapp/internal/scan"
	"sapp/internal/verification/handler/mocks"
	"sapp/internal/verification/models"
	id "sapp/pkg/domain"
	dErrors "sapp/pkg/domain-errors"
)

type HandlerSuite struct {
	suite.Suite
	router      http.Handler
	ctrl        *gomock.Controller
	mockService *mocks.MockService
	sessionID   id.ScanSessionID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	r := chi.NewRouter()
	New(s.mockService, logger, 1<<20).Register(r)
	s.router = r
	s.sessionID = id.NewScanSessionID()
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) do(method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) path(suffix string) string {
	return "/scan-sessions/" + s.sessionID.String() + suffix
}

func validResult() *credmodels.ScanResult {
	r := credmodels.NewScanResult(credmodels.CredentialRecord{
		SubjectID:   "abc123",
		DisplayName: "Jane Doe",
		MemberID:    "SAPP-ABC12300",
	}, credmodels.VerdictValid, credmodels.ReasonValid, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	return &r
}

func (s *HandlerSuite) TestStart() {
	s.mockService.EXPECT().Start(gomock.Any(), scan.CameraErrorKind("")).
		Return(&models.SessionView{ID: s.sessionID, State: "scanning"}, nil)

	rec := s.do(http.MethodPost, "/scan-sessions/", "", nil)

	s.Require().Equal(http.StatusCreated, rec.Code)
	var resp SessionResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(s.sessionID.String(), resp.SessionID)
	s.Equal("scanning", resp.State)
}

func (s *HandlerSuite) TestStartWithCameraError() {
	s.mockService.EXPECT().Start(gomock.Any(), scan.CameraPermissionDenied).
		Return(&models.SessionView{ID: s.sessionID, State: "error", Message: "Camera access was denied."}, nil)

	rec := s.do(http.MethodPost, "/scan-sessions/", "application/json",
		[]byte(`{"camera_error":"permission_denied"}`))

	s.Require().Equal(http.StatusOK, rec.Code)
	var resp SessionResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("error", resp.State)
	s.Equal("Camera access was denied.", resp.Message)
}

func (s *HandlerSuite) TestStartRejectsUnknownCameraError() {
	rec := s.do(http.MethodPost, "/scan-sessions/", "application/json",
		[]byte(`{"camera_error":"on_fire"}`))
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestScan() {
	s.mockService.EXPECT().SubmitTransport(gomock.Any(), s.sessionID, `{"subjectId":"abc123"}`).
		Return(&models.ScanOutcome{Accepted: true, State: "result", Result: validResult()}, nil)

	body, _ := json.Marshal(ScanRequest{Transport: `{"subjectId":"abc123"}`})
	rec := s.do(http.MethodPost, s.path("/scans"), "application/json", body)

	s.Require().Equal(http.StatusOK, rec.Code)
	var resp ScanResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.True(resp.Accepted)
	s.Equal("result", resp.State)
	s.Require().NotNil(resp.Result)
	s.Equal(credmodels.VerdictValid, resp.Result.Verdict)
}

func (s *HandlerSuite) TestScanValidation() {
	rec := s.do(http.MethodPost, s.path("/scans"), "application/json", []byte(`{"transport":""}`))
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/scan-sessions/not-a-uuid/scans", "application/json", []byte(`{"transport":"x"}`))
	s.Equal(http.StatusBadRequest, rec.Code)

	huge, _ := json.Marshal(ScanRequest{Transport: strings.Repeat("a", 9000)})
	rec = s.do(http.MethodPost, s.path("/scans"), "application/json", huge)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestScanUnknownSession() {
	s.mockService.EXPECT().SubmitTransport(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "scan session not found"))

	rec := s.do(http.MethodPost, s.path("/scans"), "application/json", []byte(`{"transport":"x"}`))
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestFrame() {
	encoded, err := qr.NewRenderer(128).Render("hello")
	s.Require().NoError(err)

	s.mockService.EXPECT().SubmitFrame(gomock.Any(), s.sessionID, gomock.Any()).
		Return(&models.ScanOutcome{Accepted: true, State: "scanning"}, nil)

	rec := s.do(http.MethodPost, s.path("/frames"), "image/png", encoded)

	s.Require().Equal(http.StatusOK, rec.Code)
	var resp ScanResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("scanning", resp.State)
	s.Nil(resp.Result)
}

func (s *HandlerSuite) TestFrameRejectsNonImage() {
	rec := s.do(http.MethodPost, s.path("/frames"), "image/png", []byte("definitely not a png"))
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestFrameRejectsOversizedDimensions() {
	var buf bytes.Buffer
	s.Require().NoError(png.Encode(&buf, image.NewGray(image.Rect(0, 0, qr.MaxFrameEdge+1, 1))))

	rec := s.do(http.MethodPost, s.path("/frames"), "image/png", buf.Bytes())

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "frame must be at most 4096x4096 pixels")
}

func (s *HandlerSuite) TestResetInvalidState() {
	s.mockService.EXPECT().Reset(gomock.Any(), s.sessionID).
		Return(nil, dErrors.New(dErrors.CodeInvalidState, "scan session has no result to reset"))

	rec := s.do(http.MethodPost, s.path("/reset"), "", nil)
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *HandlerSuite) TestHistory() {
	s.mockService.EXPECT().History(gomock.Any(), s.sessionID).
		Return([]credmodels.ScanResult{*validResult()}, nil)

	rec := s.do(http.MethodGet, s.path("/history"), "", nil)

	s.Require().Equal(http.StatusOK, rec.Code)
	var resp HistoryResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(s.sessionID.String(), resp.SessionID)
	s.Require().Len(resp.Results, 1)
	s.Equal("SAPP-ABC12300", resp.Results[0].MemberID)
}

func (s *HandlerSuite) TestGet() {
	s.mockService.EXPECT().Get(gomock.Any(), s.sessionID).
		Return(&models.SessionView{ID: s.sessionID, State: "result", Result: validResult()}, nil)

	rec := s.do(http.MethodGet, s.path(""), "", nil)

	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"verdict":"VALID"`)
}

func (s *HandlerSuite) TestClose() {
	s.mockService.EXPECT().Close(gomock.Any(), s.sessionID).Return(nil)

	rec := s.do(http.MethodDelete, s.path(""), "", nil)
	s.Equal(http.StatusNoContent, rec.Code)
}
