package models

import "time"

// Job statuses.
const (
	JobStatusOpen   = "open"
	JobStatusClosed = "closed"
)

// RawJob is a candidate job posting extracted heuristically from a page,
// before normalization.
type RawJob struct {
	Title       string `json:"title"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description"`
}

// NormalisedJob is the structured record returned by the text-normalization
// oracle for a raw candidate.
type NormalisedJob struct {
	Title             string   `json:"title"`
	Department        string   `json:"department"`
	Location          string   `json:"location"`
	EmploymentType    string   `json:"employment_type"`
	Summary           string   `json:"summary"`
	Responsibilities  []string `json:"responsibilities"`
	Requirements      []string `json:"requirements"`
	NiceToHave        []string `json:"nice_to_have"`
	SeniorityLevel    string   `json:"seniority_level"`
	CleanText         string   `json:"clean_text"`
	IsValidJobPosting bool     `json:"is_valid_job_posting"`
	Confidence        float64  `json:"confidence"`
}

// ExtractedJob pairs a raw candidate with its normalized record.
type ExtractedJob struct {
	Raw        RawJob        `json:"raw"`
	Normalised NormalisedJob `json:"normalised"`
}

// Job is a normalized job posting tied to an organisation.
// (OrganisationID, Title, Location) is unique and is the upsert key.
type Job struct {
	ID               string    `json:"id" db:"id"`
	OrganisationID   string    `json:"organisation_id" db:"organisation_id"`
	SourceURL        string    `json:"source_url,omitempty" db:"source_url"`
	Title            string    `json:"title" db:"title"`
	Department       string    `json:"department,omitempty" db:"department"`
	Location         string    `json:"location,omitempty" db:"location"`
	EmploymentType   string    `json:"employment_type,omitempty" db:"employment_type"`
	Summary          string    `json:"summary,omitempty" db:"summary"`
	Responsibilities []string  `json:"responsibilities,omitempty" db:"responsibilities"`
	Requirements     []string  `json:"requirements,omitempty" db:"requirements"`
	NiceToHave       []string  `json:"nice_to_have,omitempty" db:"nice_to_have"`
	SeniorityLevel   string    `json:"seniority_level,omitempty" db:"seniority_level"`
	CleanText        string    `json:"clean_text,omitempty" db:"clean_text"`
	Status           string    `json:"status" db:"status"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}
