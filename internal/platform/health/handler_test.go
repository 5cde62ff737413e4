package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
)

type stubCheck struct {
	name string
	err  error
}

func (s stubCheck) Name() string                { return s.name }
func (s stubCheck) Check(context.Context) error { return s.err }

type HandlerSuite struct {
	suite.Suite
	handler *Handler
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.handler = New("test")
	s.router = chi.NewRouter()
	s.handler.Register(s.router)
}

func (s *HandlerSuite) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func (s *HandlerSuite) TestLiveness() {
	w := s.get("/health/live")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "alive")
}

func (s *HandlerSuite) TestReadinessAllUp() {
	s.handler.RegisterCheck(stubCheck{name: "redis"})
	s.handler.RegisterCheck(nil)

	w := s.get("/health/ready")
	s.Equal(http.StatusOK, w.Code)

	var resp ReadinessResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("ready", resp.Status)
	s.Equal("up", resp.Checks["redis"])
}

func (s *HandlerSuite) TestReadinessReportsFailure() {
	s.handler.RegisterCheck(stubCheck{name: "redis"})
	s.handler.RegisterCheck(stubCheck{name: "postgres", err: errors.New("connection refused")})

	w := s.get("/health/ready")
	s.Equal(http.StatusServiceUnavailable, w.Code)

	var resp ReadinessResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("not_ready", resp.Status)
	s.Equal("down: connection refused", resp.Checks["postgres"])
}

func (s *HandlerSuite) TestStatus() {
	w := s.get("/health")
	s.Equal(http.StatusOK, w.Code)

	var resp StatusResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("test", resp.Environment)
	s.Equal(Version, resp.Version)
}
