package scan

import (
	"context"
	"math/rand/v2"
	"testing"

	"dropsort/models"
)

func TestNopScannerMarksEverythingClean(t *testing.T) {
	refs := models.FileRefs([]string{"/a.png", "/b.txt"})

	report, err := NopScanner{}.Scan(context.Background(), refs)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if report.Total != 2 || report.Clean != 2 || report.Infected != 0 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if report.Results[1].File != "/b.txt" || report.Results[1].Message != "not scanned" {
		t.Fatalf("unexpected result: %+v", report.Results[1])
	}
}

func TestRandomScannerCountsAddUp(t *testing.T) {
	paths := make([]string, 200)
	for i := range paths {
		paths[i] = "/f"
	}
	scanner := NewRandomScanner(0.5, rand.New(rand.NewPCG(1, 2)))

	report, err := scanner.Scan(context.Background(), models.FileRefs(paths))
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if report.Total != 200 || report.Clean+report.Infected != 200 {
		t.Fatalf("counts do not add up: %+v", report)
	}
	if report.Clean == 0 || report.Infected == 0 {
		t.Fatalf("expected a mix of verdicts at rate 0.5, got %+v", report)
	}
	for _, r := range report.Results {
		if r.Clean && r.Message != "clean" || !r.Clean && r.Message != "infected" {
			t.Fatalf("message does not match verdict: %+v", r)
		}
	}
}

func TestRandomScannerExtremes(t *testing.T) {
	refs := models.FileRefs([]string{"/a", "/b", "/c"})

	never, err := NewRandomScanner(0, nil).Scan(context.Background(), refs)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if never.Infected != 0 {
		t.Fatalf("rate 0 flagged files: %+v", never)
	}

	always, err := NewRandomScanner(1, nil).Scan(context.Background(), refs)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if always.Clean != 0 {
		t.Fatalf("rate 1 passed files: %+v", always)
	}
}

func TestScanHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(ModeRandom).Scan(ctx, models.FileRefs([]string{"/a"})); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestNewFallsBackToNop(t *testing.T) {
	if _, ok := New("clamav").(NopScanner); !ok {
		t.Fatalf("expected unknown mode to return NopScanner")
	}
	if _, ok := New(ModeRandom).(*RandomScanner); !ok {
		t.Fatalf("expected random mode to return *RandomScanner")
	}
}
