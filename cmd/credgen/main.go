// Package main provides a CLI tool for issuing member credentials offline.
// The output is a transport string and a PNG QR code that the scanner accepts.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"sapp/internal/credential/codec"
	"sapp/internal/credential/issuer"
	"sapp/internal/credential/models"
	"sapp/internal/credential/validator"
	"sapp/internal/qr"
	id "sapp/pkg/domain"
	"sapp/pkg/validation"
)

type credentialOutput struct {
	Transport string            `json:"transport"`
	MemberID  string            `json:"member_id"`
	IssuedAt  string            `json:"issued_at"`
	ExpiresAt string            `json:"expires_at"`
	Notice    string            `json:"notice"`
	Files     map[string]string `json:"files,omitempty"`
}

func main() {
	issueCmd := flag.NewFlagSet("issue", flag.ExitOnError)
	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)

	subject := issueCmd.String("subject", "", "Subject ID of the member (required)")
	first := issueCmd.String("first-name", "", "First name")
	last := issueCmd.String("last-name", "", "Last name")
	email := issueCmd.String("email", "", "Email address")
	org := issueCmd.String("organization", "", "Organization")
	dept := issueCmd.String("department", "", "Department")
	title := issueCmd.String("title", "", "Job title")
	issuerName := issueCmd.String("issuer", issuer.DefaultName, "Issuer name embedded in the credential")
	validity := issueCmd.Duration("validity", issuer.DefaultValidityWindow, "Validity window")
	at := issueCmd.String("at", "", "Issue time (RFC 3339). Defaults to now.")
	out := issueCmd.String("out", "", "Write the QR code PNG to this path")
	size := issueCmd.Int("size", qr.DefaultSize, "QR code size in pixels")
	issueJSON := issueCmd.Bool("json", false, "Output as JSON")

	checkTransport := checkCmd.String("transport", "", "Transport string to validate")
	checkImage := checkCmd.String("image", "", "PNG or JPEG image containing a QR code")
	checkIssuer := checkCmd.String("issuer", issuer.DefaultName, "Expected issuer")
	checkAt := checkCmd.String("at", "", "Validation time (RFC 3339). Defaults to now.")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "issue":
		issueCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		profile := models.Profile{
			FirstName:    *first,
			LastName:     *last,
			Email:        *email,
			Organization: *org,
			Department:   *dept,
			Title:        *title,
		}
		issueCredential(*subject, profile, *issuerName, *validity, parseTime(*at), *out, *size, *issueJSON)
	case "check":
		checkCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		checkCredential(*checkTransport, *checkImage, *checkIssuer, parseTime(*checkAt))
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`credgen - Issue and check member credentials offline

Usage:
  credgen <command> [flags]

Commands:
  issue     Issue a credential and optionally write its QR code
  check     Decode and validate a transport string or QR image

Examples:
  # Issue a credential for Jane and write the QR code
  credgen issue -subject abc123 -first-name Jane -last-name Doe -organization Acme -out jane.png

  # Issue a credential that was valid yesterday
  credgen issue -subject abc123 -first-name Jane -at 2026-01-01T09:00:00Z -json

  # Validate a QR image
  credgen check -image jane.png

Use "credgen <command> -h" for more information about a command.`)
}

func issueCredential(subject string, profile models.Profile, issuerName string, validity time.Duration,
	now time.Time, out string, size int, jsonOutput bool) {
	subjectID, err := id.ParseSubjectID(subject)
	if err != nil {
		fail("Invalid subject: %v", err)
	}
	profile.SubjectID = subjectID
	if err := checkProfileLimits(profile); err != nil {
		fail("Invalid profile: %v", err)
	}

	iss := issuer.New(issuer.Config{Name: issuerName, ValidityWindow: validity})
	record := iss.Issue(profile, now)
	transport, err := codec.Encode(record)
	if err != nil {
		fail("Error encoding credential: %v", err)
	}

	output := credentialOutput{
		Transport: transport,
		MemberID:  record.MemberID,
		IssuedAt:  codec.FormatTime(record.IssuedAt),
		ExpiresAt: codec.FormatTime(record.ExpiresAt),
		Notice:    models.ValidityNotice(iss.ValidityWindow()),
	}

	if out != "" {
		png, err := qr.NewRenderer(size).Render(transport)
		if err != nil {
			fail("Error rendering QR code: %v", err)
		}
		if err := os.WriteFile(out, png, 0o600); err != nil {
			fail("Error writing %s: %v", out, err)
		}
		output.Files = map[string]string{"qr_png": out}
	}

	if jsonOutput {
		printJSON(output)
		return
	}
	fmt.Println("Member Credential")
	fmt.Println("=================")
	fmt.Printf("Display Name: %s\n", record.DisplayName)
	fmt.Printf("Member ID:    %s\n", record.MemberID)
	fmt.Printf("Issuer:       %s\n", record.Issuer)
	fmt.Printf("Issued At:    %s\n", output.IssuedAt)
	fmt.Printf("Expires At:   %s (%s)\n", output.ExpiresAt, output.Notice)
	if out != "" {
		fmt.Printf("QR Code:      %s\n", out)
	}
	fmt.Println()
	fmt.Println("Transport:")
	fmt.Println(transport)
}

func checkCredential(transport, imagePath, expectedIssuer string, now time.Time) {
	if imagePath != "" {
		f, err := os.Open(imagePath)
		if err != nil {
			fail("Error opening %s: %v", imagePath, err)
		}
		defer f.Close()
		frame, err := qr.ReadFrame(f)
		if err != nil {
			fail("Error reading %s: %v", imagePath, err)
		}
		decoded, ok := qr.NewDecoder().DecodeFrame(frame)
		if !ok {
			fail("No QR code found in %s", imagePath)
		}
		transport = decoded
	}
	if transport == "" {
		fail("One of -transport or -image is required")
	}

	record, err := codec.Decode(transport)
	if err != nil {
		fmt.Printf("Verdict: %s (%v)\n", models.VerdictInvalid, err)
		os.Exit(2)
	}
	verdict, reason := validator.New(expectedIssuer).Explain(record, now)
	fmt.Printf("Verdict:      %s (%s)\n", verdict, reason)
	fmt.Printf("Display Name: %s\n", record.DisplayName)
	fmt.Printf("Member ID:    %s\n", record.MemberID)
	fmt.Printf("Expires At:   %s\n", codec.FormatTime(record.ExpiresAt))
	if verdict != models.VerdictValid {
		os.Exit(2)
	}
}

func checkProfileLimits(p models.Profile) error {
	checks := []struct {
		field string
		value string
		max   int
	}{
		{"display name", p.FirstName + " " + p.LastName, validation.MaxDisplayNameLength},
		{"email", p.Email, validation.MaxEmailLength},
		{"organization", p.Organization, validation.MaxOrganizationLength},
		{"department", p.Department, validation.MaxDepartmentLength},
		{"title", p.Title, validation.MaxTitleLength},
	}
	for _, c := range checks {
		if err := validation.CheckStringLength(c.field, c.value, c.max); err != nil {
			return err
		}
	}
	return nil
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Now()
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		fail("Invalid time %q: %v", s, err)
	}
	return t
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail("Error encoding JSON: %v", err)
	}
}
