package models

import "time"

// FAQ is a question/answer pair scoped to an organisation. Logical identity
// is the normalized hash of the question text, not the row id.
type FAQ struct {
	ID             string    `json:"id" db:"id"`
	OrganisationID string    `json:"organisation_id" db:"organisation_id"`
	Question       string    `json:"question" db:"question"`
	Answer         string    `json:"answer" db:"answer"`
	Approved       bool      `json:"approved" db:"approved"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
