package models

import (
	"time"

	"github.com/google/uuid"
)

type CandidateStatus string

const (
	StatusQueued     CandidateStatus = "queued"
	StatusProcessing CandidateStatus = "processing"
	StatusIndexed    CandidateStatus = "indexed"
	StatusFailed     CandidateStatus = "failed"
)

// CandidateRecord is a stored CV and what was extracted from it.
type CandidateRecord struct {
	ID               uuid.UUID         `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name             string            `gorm:"type:text" json:"name,omitempty"`
	Email            string            `gorm:"type:text;index" json:"email,omitempty"`
	Phone            string            `gorm:"type:text" json:"phone,omitempty"`
	LinkedIn         string            `gorm:"type:text" json:"linkedin,omitempty"`
	GitHub           string            `gorm:"type:text" json:"github,omitempty"`
	Skills           []string          `gorm:"serializer:json" json:"skills,omitempty"`
	Sections         map[string]string `gorm:"serializer:json" json:"sections,omitempty"`
	Sector           string            `gorm:"type:text" json:"sector,omitempty"`
	Location         string            `gorm:"type:text" json:"location,omitempty"`
	Summary          *string           `gorm:"type:text" json:"summary,omitempty"`
	Filename         string            `gorm:"type:text" json:"filename"`
	OriginalFileName string            `gorm:"type:text" json:"original_filename"`
	FilePath         string            `gorm:"type:text" json:"-"`
	Pages            int               `json:"pages"`
	Status           CandidateStatus   `gorm:"not null;default:'queued'" json:"status"`
	ErrorMessage     *string           `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt        time.Time         `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CandidateRecord) TableName() string {
	return "candidates"
}

// ToCandidate is the list view of a record. score comes from the search hit.
func (r *CandidateRecord) ToCandidate(score float64, base string) Candidate {
	id := r.ID.String()
	return Candidate{
		ID:       FlexString(id),
		Name:     r.Name,
		Email:    r.Email,
		Phone:    r.Phone,
		Score:    score,
		Skills:   r.Skills,
		Sector:   r.Sector,
		Location: r.Location,
		PdfID:    FlexString(id),
		PdfURL:   PdfURL(base, id),
	}
}

func (r *CandidateRecord) ToDetail(base string) CandidateDetail {
	detail := CandidateDetail{Candidate: r.ToCandidate(0, base)}
	if r.Summary != nil {
		detail.Summary = *r.Summary
	}
	return detail
}
