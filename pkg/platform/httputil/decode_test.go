package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "sapp/pkg/domain-errors"
)

type scanBody struct {
	Transport string `json:"transport"`
}

// issueBody mirrors a handler request that trims, then validates.
type issueBody struct {
	SubjectID string `json:"subject_id"`
	trimmed   bool
}

func (r *issueBody) Normalize() {
	r.SubjectID = strings.TrimSpace(r.SubjectID)
	r.trimmed = true
}

func (r *issueBody) Validate() error {
	if r.SubjectID == "" {
		return dErrors.New(dErrors.CodeValidation, "subject_id is required")
	}
	return nil
}

type plainErrBody struct {
	Transport string `json:"transport"`
}

func (r *plainErrBody) Validate() error {
	if r.Transport == "" {
		return errors.New("transport is required")
	}
	return nil
}

type DecodeSuite struct {
	suite.Suite
	logger *slog.Logger
	ctx    context.Context
}

func TestDecodeSuite(t *testing.T) {
	suite.Run(t, new(DecodeSuite))
}

func (s *DecodeSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ctx = context.Background()
}

func (s *DecodeSuite) post(body string) (*http.Request, *httptest.ResponseRecorder) {
	return httptest.NewRequest(http.MethodPost, "/scan-sessions/x/scans", bytes.NewBufferString(body)), httptest.NewRecorder()
}

func (s *DecodeSuite) errorBody(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (s *DecodeSuite) TestDecodeJSON() {
	s.Run("decodes transport body", func() {
		req, w := s.post(`{"transport":"{\"subjectId\":\"abc\"}"}`)
		got, ok := DecodeJSON[scanBody](w, req, s.logger, s.ctx, "req-1")
		s.Require().True(ok)
		s.Equal(`{"subjectId":"abc"}`, got.Transport)
	})

	s.Run("malformed body is a bad request", func() {
		req, w := s.post(`{transport}`)
		got, ok := DecodeJSON[scanBody](w, req, s.logger, s.ctx, "req-1")
		s.False(ok)
		s.Nil(got)
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal("bad_request", s.errorBody(w)["error"])
	})

	s.Run("empty body is a bad request", func() {
		req, w := s.post("")
		_, ok := DecodeJSON[scanBody](w, req, s.logger, s.ctx, "req-1")
		s.False(ok)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("body over the limit is rejected", func() {
		req, w := s.post(`{"transport":"` + strings.Repeat("a", MaxJSONBodyBytes) + `"}`)
		_, ok := DecodeJSON[scanBody](w, req, s.logger, s.ctx, "req-1")
		s.False(ok)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *DecodeSuite) TestDecodeAndPrepare() {
	s.Run("normalizes before validating", func() {
		req, w := s.post(`{"subject_id":"  abc123  "}`)
		got, ok := DecodeAndPrepare[issueBody](w, req, s.logger, s.ctx, "req-1")
		s.Require().True(ok)
		s.True(got.trimmed)
		s.Equal("abc123", got.SubjectID)
	})

	s.Run("blank subject fails after trimming", func() {
		req, w := s.post(`{"subject_id":"   "}`)
		_, ok := DecodeAndPrepare[issueBody](w, req, s.logger, s.ctx, "req-1")
		s.False(ok)
		s.Equal(http.StatusBadRequest, w.Code)
		body := s.errorBody(w)
		s.Equal("validation_error", body["error"])
		s.Equal("subject_id is required", body["error_description"])
	})

	s.Run("plain validation errors become validation_error", func() {
		req, w := s.post(`{"transport":""}`)
		_, ok := DecodeAndPrepare[plainErrBody](w, req, s.logger, s.ctx, "req-1")
		s.False(ok)
		body := s.errorBody(w)
		s.Equal("validation_error", body["error"])
		s.Contains(body["error_description"], "transport is required")
	})

	s.Run("types without hooks pass through", func() {
		s.NoError(PrepareRequest(&scanBody{}))
	})
}

func (s *DecodeSuite) TestWriteErrorStatus() {
	cases := []struct {
		code   dErrors.Code
		status int
		name   string
	}{
		{dErrors.CodeNotFound, http.StatusNotFound, "not_found"},
		{dErrors.CodeInvalidInput, http.StatusBadRequest, "bad_request"},
		{dErrors.CodeInvalidState, http.StatusConflict, "invalid_state"},
		{dErrors.CodeUnavailable, http.StatusServiceUnavailable, "unavailable"},
		{dErrors.CodeTimeout, http.StatusGatewayTimeout, "timeout"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(tc.code, "scan session"))
		s.Equal(tc.status, w.Code, tc.code)
		s.Equal(tc.name, s.errorBody(w)["error"])
	}

	w := httptest.NewRecorder()
	WriteError(w, errors.New("redis: connection refused"))
	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal("internal_error", s.errorBody(w)["error"])
	s.NotContains(w.Body.String(), "redis")
}
