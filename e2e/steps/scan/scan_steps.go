package scan

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	POSTRaw(path, contentType string, body []byte) error
	GET(path string, headers map[string]string) error
	DELETE(path string) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseBody() []byte
	GetSessionID() string
	SetSessionID(id string)
	GetTransport() string
	GetQRCode() []byte
}

// RegisterSteps registers scan session step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &scanSteps{tc: tc}

	ctx.Step(`^I open a scan session$`, steps.openSession)
	ctx.Step(`^I open a scan session with camera error "([^"]*)"$`, steps.openSessionWithCameraError)
	ctx.Step(`^I scan the held credential$`, steps.scanHeldCredential)
	ctx.Step(`^I scan the transport "([^"]*)"$`, steps.scanTransport)
	ctx.Step(`^I upload the issued QR code as a camera frame$`, steps.uploadFrame)
	ctx.Step(`^I reset the scan session$`, steps.reset)
	ctx.Step(`^I close the scan session$`, steps.closeSession)
	ctx.Step(`^I request the scan history$`, steps.history)
	ctx.Step(`^I request the scan session$`, steps.get)
	ctx.Step(`^the scan result verdict should be "([^"]*)"$`, steps.verdictShouldBe)
	ctx.Step(`^the scan history should have (\d+) entries$`, steps.historyShouldHave)
	ctx.Step(`^the newest history entry should have verdict "([^"]*)"$`, steps.newestVerdictShouldBe)
}

type scanSteps struct {
	tc TestContext
}

func (s *scanSteps) openSession(ctx context.Context) error {
	if err := s.tc.POSTRaw("/scan-sessions", "", nil); err != nil {
		return err
	}
	return s.saveSessionID()
}

func (s *scanSteps) openSessionWithCameraError(ctx context.Context, kind string) error {
	if err := s.tc.POST("/scan-sessions", map[string]string{"camera_error": kind}); err != nil {
		return err
	}
	return s.saveSessionID()
}

func (s *scanSteps) saveSessionID() error {
	sessionID, err := s.tc.GetResponseField("session_id")
	if err != nil {
		return err
	}
	s.tc.SetSessionID(fmt.Sprint(sessionID))
	return nil
}

func (s *scanSteps) path(suffix string) string {
	return "/scan-sessions/" + s.tc.GetSessionID() + suffix
}

func (s *scanSteps) scanHeldCredential(ctx context.Context) error {
	return s.scanTransport(ctx, s.tc.GetTransport())
}

func (s *scanSteps) scanTransport(ctx context.Context, transport string) error {
	return s.tc.POST(s.path("/scans"), map[string]string{"transport": transport})
}

func (s *scanSteps) uploadFrame(ctx context.Context) error {
	return s.tc.POSTRaw(s.path("/frames"), "image/png", s.tc.GetQRCode())
}

func (s *scanSteps) reset(ctx context.Context) error {
	return s.tc.POSTRaw(s.path("/reset"), "", nil)
}

func (s *scanSteps) closeSession(ctx context.Context) error {
	return s.tc.DELETE(s.path(""))
}

func (s *scanSteps) history(ctx context.Context) error {
	return s.tc.GET(s.path("/history"), nil)
}

func (s *scanSteps) get(ctx context.Context) error {
	return s.tc.GET(s.path(""), nil)
}

type scanResult struct {
	Verdict  string `json:"verdict"`
	MemberID string `json:"member_id"`
}

func (s *scanSteps) verdictShouldBe(ctx context.Context, verdict string) error {
	var resp struct {
		Result *scanResult `json:"result"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Result == nil {
		return fmt.Errorf("response carries no scan result")
	}
	if resp.Result.Verdict != verdict {
		return fmt.Errorf("expected verdict %s but got %s", verdict, resp.Result.Verdict)
	}
	return nil
}

func (s *scanSteps) historyResults() ([]scanResult, error) {
	var resp struct {
		Results []scanResult `json:"results"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return resp.Results, nil
}

func (s *scanSteps) historyShouldHave(ctx context.Context, n int) error {
	results, err := s.historyResults()
	if err != nil {
		return err
	}
	if len(results) != n {
		return fmt.Errorf("expected %d history entries but got %d", n, len(results))
	}
	return nil
}

func (s *scanSteps) newestVerdictShouldBe(ctx context.Context, verdict string) error {
	results, err := s.historyResults()
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("history is empty")
	}
	if results[0].Verdict != verdict {
		return fmt.Errorf("expected newest verdict %s but got %s", verdict, results[0].Verdict)
	}
	return nil
}
