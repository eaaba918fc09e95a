package normalizer

import (
	"context"
	"strings"

	"github.com/brendanmarry/withwilma-sub001/internal/models"
)

// MockNormalizer is a deterministic normalizer for tests and offline runs.
// It treats the first line of the input as the title and considers any text
// longer than 40 characters a valid posting.
type MockNormalizer struct{}

// NewMockNormalizer returns a deterministic normalizer.
func NewMockNormalizer() *MockNormalizer {
	return &MockNormalizer{}
}

// Normalize returns a record derived mechanically from rawText.
func (m *MockNormalizer) Normalize(ctx context.Context, rawText string) (*models.NormalisedJob, error) {
	trimmed := strings.TrimSpace(rawText)
	title := trimmed
	if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
		title = strings.TrimSpace(trimmed[:i])
	}
	if len(title) > 120 {
		title = title[:120]
	}
	return &models.NormalisedJob{
		Title:             title,
		CleanText:         trimmed,
		IsValidJobPosting: len(trimmed) > 40,
		Confidence:        0.5,
	}, nil
}
