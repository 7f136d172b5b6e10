package appmodels

import "time"

//Submission statuses. Accepted and rejected are terminal; a rejected record
//may be consumed by a resubmission if the position allows it.
const (
	StatusPending  string = "pending"
	StatusAccepted string = "accepted"
	StatusRejected string = "rejected"
)

//Submission represents one applicant's attempt at one position.
type Submission struct {
	ID          string            `gorethink:"id,omitempty"`
	PositionID  string            `gorethink:"position_id"`
	ApplicantID string            `gorethink:"applicant_id"`
	GuildID     string            `gorethink:"guild_id"`
	Answers     map[string]string `gorethink:"answers"`
	Status      string            `gorethink:"status"`
	ReviewedBy  string            `gorethink:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time        `gorethink:"reviewed_at,omitempty"`
	ReviewNotes string            `gorethink:"review_notes,omitempty"`
	SubmittedAt time.Time         `gorethink:"submitted_at"`
}
