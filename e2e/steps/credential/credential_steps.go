package credential

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"sapp/internal/credential/codec"
	"sapp/internal/credential/issuer"
	"sapp/internal/profile/seeder"
	"sapp/internal/qr"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetLastContentType() string
	GetTransport() string
	SetTransport(t string)
	GetQRCode() []byte
	SetQRCode(png []byte)
}

// RegisterSteps registers credential issuance step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &credentialSteps{tc: tc}

	ctx.Step(`^I issue a credential for subject "([^"]*)"$`, steps.issueCredential)
	ctx.Step(`^I save the issued credential$`, steps.saveIssuedCredential)
	ctx.Step(`^I request the QR code for subject "([^"]*)"$`, steps.requestQRCode)
	ctx.Step(`^the response should be a PNG image$`, steps.responseShouldBePNG)
	ctx.Step(`^the issued QR code should decode to the issued transport$`, steps.qrShouldDecodeToTransport)
	ctx.Step(`^I hold a credential for subject "([^"]*)" issued (\d+) hours ago$`, steps.holdAgedCredential)
	ctx.Step(`^I hold a credential for subject "([^"]*)" from issuer "([^"]*)"$`, steps.holdForeignCredential)
}

type credentialSteps struct {
	tc TestContext
}

func (s *credentialSteps) issueCredential(ctx context.Context, subjectID string) error {
	return s.tc.POST("/credentials/issue", map[string]string{"subject_id": subjectID})
}

func (s *credentialSteps) saveIssuedCredential(ctx context.Context) error {
	transport, err := s.tc.GetResponseField("transport")
	if err != nil {
		return err
	}
	encoded, err := s.tc.GetResponseField("qr_png")
	if err != nil {
		return err
	}
	png, err := base64.StdEncoding.DecodeString(fmt.Sprint(encoded))
	if err != nil {
		return fmt.Errorf("qr_png is not base64: %w", err)
	}
	s.tc.SetTransport(fmt.Sprint(transport))
	s.tc.SetQRCode(png)
	return nil
}

func (s *credentialSteps) requestQRCode(ctx context.Context, subjectID string) error {
	return s.tc.GET("/credentials/"+subjectID+"/qr", nil)
}

func (s *credentialSteps) responseShouldBePNG(ctx context.Context) error {
	if ct := s.tc.GetLastContentType(); !strings.HasPrefix(ct, "image/png") {
		return fmt.Errorf("expected image/png but got %q", ct)
	}
	if _, err := qr.ReadFrame(bytes.NewReader(s.tc.GetLastResponseBody())); err != nil {
		return fmt.Errorf("response is not a readable image: %w", err)
	}
	return nil
}

func (s *credentialSteps) qrShouldDecodeToTransport(ctx context.Context) error {
	frame, err := qr.ReadFrame(bytes.NewReader(s.tc.GetQRCode()))
	if err != nil {
		return err
	}
	decoded, ok := qr.NewDecoder().DecodeFrame(frame)
	if !ok {
		return fmt.Errorf("no QR code found in issued image")
	}
	if decoded != s.tc.GetTransport() {
		return fmt.Errorf("decoded transport differs from issued transport")
	}
	return nil
}

func (s *credentialSteps) holdAgedCredential(ctx context.Context, subjectID string, hours int) error {
	return s.hold(subjectID, issuer.DefaultName, time.Now().Add(-time.Duration(hours)*time.Hour))
}

func (s *credentialSteps) holdForeignCredential(ctx context.Context, subjectID, issuerName string) error {
	return s.hold(subjectID, issuerName, time.Now())
}

// hold builds a credential locally, as a credential printed earlier or by
// another issuer would arrive at the scanner.
func (s *credentialSteps) hold(subjectID, issuerName string, issuedAt time.Time) error {
	for _, p := range seeder.DemoProfiles() {
		if p.SubjectID.String() != subjectID {
			continue
		}
		record := issuer.New(issuer.Config{Name: issuerName}).Issue(p, issuedAt)
		transport, err := codec.Encode(record)
		if err != nil {
			return err
		}
		s.tc.SetTransport(transport)
		return nil
	}
	return fmt.Errorf("no demo profile for subject %s", subjectID)
}
