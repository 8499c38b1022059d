// Package scan defines the file scanning capability.
//
// No implementation here inspects file contents. RandomScanner reproduces a
// randomized placeholder verdict and must never be used as a security gate.
package scan

import (
	"context"
	"math/rand/v2"
	"sync"

	"dropsort/models"
)

const (
	// ModeNone selects NopScanner.
	ModeNone = "none"
	// ModeRandom selects RandomScanner.
	ModeRandom = "random"
	// DefaultInfectedRate is the placeholder's chance of flagging a file.
	DefaultInfectedRate = 0.1
)

// Scanner produces per-file verdicts plus aggregate counts.
type Scanner interface {
	Scan(ctx context.Context, refs []models.FileRef) (*models.ScanReport, error)
}

// New returns the scanner for a configured mode. Unknown modes fall back to NopScanner.
func New(mode string) Scanner {
	if mode == ModeRandom {
		return NewRandomScanner(DefaultInfectedRate, nil)
	}
	return NopScanner{}
}

// NopScanner reports every file clean without looking at it.
type NopScanner struct{}

// Scan implements Scanner.
func (NopScanner) Scan(ctx context.Context, refs []models.FileRef) (*models.ScanReport, error) {
	return buildReport(ctx, refs, func() (bool, string) { return true, "not scanned" })
}

// RandomScanner flags files at random.
type RandomScanner struct {
	rate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomScanner returns a placeholder that flags each file with probability
// rate. A nil rng uses a randomly seeded source.
func NewRandomScanner(rate float64, rng *rand.Rand) *RandomScanner {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RandomScanner{rate: rate, rng: rng}
}

// Scan implements Scanner.
func (s *RandomScanner) Scan(ctx context.Context, refs []models.FileRef) (*models.ScanReport, error) {
	return buildReport(ctx, refs, func() (bool, string) {
		s.mu.Lock()
		roll := s.rng.Float64()
		s.mu.Unlock()
		if roll > s.rate {
			return true, "clean"
		}
		return false, "infected"
	})
}

func buildReport(ctx context.Context, refs []models.FileRef, verdict func() (bool, string)) (*models.ScanReport, error) {
	report := &models.ScanReport{
		Results: make([]models.ScanResult, 0, len(refs)),
		Total:   len(refs),
	}
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		clean, message := verdict()
		report.Results = append(report.Results, models.ScanResult{File: ref.Path, Clean: clean, Message: message})
		if clean {
			report.Clean++
		} else {
			report.Infected++
		}
	}
	return report, nil
}
