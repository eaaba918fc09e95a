// Package normalizer provides the text-normalization oracle: raw posting text
// in, a structured record with a validity judgment out.
package normalizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/brendanmarry/withwilma-sub001/internal/models"
)

// ErrOracle marks normalization oracle failures (transport, provider errors).
var ErrOracle = errors.New("normalization oracle error")

// ErrInvalidResponse marks a schema-invalid oracle response. A malformed
// response is a hard error, never a best-effort partial record.
var ErrInvalidResponse = errors.New("invalid normalization response")

// Normalizer turns raw text into a structured job record. It must tolerate
// arbitrary noisy input and always return a well-formed record or an error.
type Normalizer interface {
	Normalize(ctx context.Context, rawText string) (*models.NormalisedJob, error)
}

// parseResponse decodes and validates an oracle reply. The reply may wrap the
// JSON object in prose or a code fence; everything outside the outermost
// braces is ignored. Schema violations are ErrInvalidResponse.
func parseResponse(reply string) (*models.NormalisedJob, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrInvalidResponse)
	}

	dec := json.NewDecoder(strings.NewReader(reply[start : end+1]))
	dec.DisallowUnknownFields()
	var parsed struct {
		Title             *string  `json:"title"`
		Department        *string  `json:"department"`
		Location          *string  `json:"location"`
		EmploymentType    *string  `json:"employment_type"`
		Summary           *string  `json:"summary"`
		Responsibilities  []string `json:"responsibilities"`
		Requirements      []string `json:"requirements"`
		NiceToHave        []string `json:"nice_to_have"`
		SeniorityLevel    *string  `json:"seniority_level"`
		CleanText         *string  `json:"clean_text"`
		IsValidJobPosting *bool    `json:"is_valid_job_posting"`
		Confidence        *float64 `json:"confidence"`
	}
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	// Required fields: the oracle contract is all-or-nothing.
	if parsed.Title == nil || parsed.CleanText == nil || parsed.IsValidJobPosting == nil {
		return nil, fmt.Errorf("%w: missing required fields", ErrInvalidResponse)
	}

	out := &models.NormalisedJob{
		Title:             *parsed.Title,
		Responsibilities:  parsed.Responsibilities,
		Requirements:      parsed.Requirements,
		NiceToHave:        parsed.NiceToHave,
		CleanText:         *parsed.CleanText,
		IsValidJobPosting: *parsed.IsValidJobPosting,
	}
	if parsed.Department != nil {
		out.Department = *parsed.Department
	}
	if parsed.Location != nil {
		out.Location = *parsed.Location
	}
	if parsed.EmploymentType != nil {
		out.EmploymentType = *parsed.EmploymentType
	}
	if parsed.Summary != nil {
		out.Summary = *parsed.Summary
	}
	if parsed.SeniorityLevel != nil {
		out.SeniorityLevel = *parsed.SeniorityLevel
	}
	if parsed.Confidence != nil {
		out.Confidence = *parsed.Confidence
	}
	return out, nil
}
