// Package main scans a sequence of still images as if they were camera frames
// and prints the verification history, newest first.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"sapp/internal/credential/issuer"
	"sapp/internal/credential/models"
	"sapp/internal/credential/validator"
	"sapp/internal/ledger"
	"sapp/internal/platform/logger"
	"sapp/internal/qr"
	"sapp/internal/scan"
)

func main() {
	images := flag.String("images", "", "Comma-separated PNG/JPEG frames, scanned in order (required)")
	at := flag.String("at", "", "Scan time (RFC 3339). Defaults to the wall clock.")
	expectedIssuer := flag.String("issuer", issuer.DefaultName, "Expected credential issuer")
	capacity := flag.Int("history", ledger.DefaultCapacity, "Number of results kept in history")
	jsonOutput := flag.Bool("json", false, "Output history as JSON")
	verbose := flag.Bool("v", false, "Log every scan result")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	log := logger.NewWithWriter(os.Stderr, level)

	paths := splitPaths(*images)
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "-images is required")
		flag.Usage()
		os.Exit(1)
	}

	clock := time.Now
	if *at != "" {
		fixed, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -at %q: %v\n", *at, err)
			os.Exit(1)
		}
		clock = func() time.Time { return fixed }
	}

	frames, err := loadFrames(paths)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	history := ledger.New(*capacity)
	if err := scanAll(ctx, frames, validator.New(*expectedIssuer), history, clock, log); err != nil {
		fmt.Fprintf(os.Stderr, "Scan failed: %v\n", err)
		os.Exit(1)
	}

	printHistory(history.List(), *jsonOutput)
}

// scanAll runs one session over every frame, resetting after each result so a
// single camera handle serves the whole sequence.
func scanAll(ctx context.Context, frames []image.Image, v *validator.Validator, history *ledger.Ledger,
	clock func() time.Time, log *slog.Logger) error {
	session := scan.NewSession(scan.NewImageCamera(frames...), qr.NewDecoder(), v,
		scan.WithClock(clock),
		scan.WithCallback(func(ctx context.Context, result models.ScanResult) {
			history.Append(result)
			log.InfoContext(ctx, "credential scanned",
				"verdict", result.Verdict,
				"reason", result.Reason,
				"member_id", result.MemberID,
			)
		}),
	)
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("failed to release camera", "error", err)
		}
	}()

	if err := session.Start(ctx); err != nil {
		return err
	}

	for {
		err := session.Run(ctx)
		switch {
		case errors.Is(err, scan.ErrCaptureEnded):
			return nil
		case err != nil:
			return err
		}
		if _, ok := session.State().(scan.Result); !ok {
			return nil
		}
		if err := session.Reset(); err != nil {
			return err
		}
	}
}

func loadFrames(paths []string) ([]image.Image, error) {
	frames := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", p, err)
		}
		frame, err := qr.ReadFrame(f)
		f.Close() //nolint:errcheck // read-only
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

func splitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printHistory(results []models.ScanResult, jsonOutput bool) {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
			os.Exit(1)
		}
		return
	}
	fmt.Println("Verification History")
	fmt.Println("====================")
	if len(results) == 0 {
		fmt.Println("(no credentials recognised)")
		return
	}
	for _, r := range results {
		name := r.DisplayName
		if name == "" {
			name = "-"
		}
		fmt.Printf("%-15s %-15s %-24s %s\n", r.Verdict, r.MemberID, name, r.ScannedAt.Format(time.RFC3339))
	}
}
