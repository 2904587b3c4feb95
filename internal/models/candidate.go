package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexString decodes from a JSON string or number. Upstream ids are either.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// FlexInt decodes from a JSON number or numeric string.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(bytes.Trim(data, `"`))
	if n, err := strconv.Atoi(raw); err == nil {
		*f = FlexInt(n)
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s: %w", data, err)
	}
	*f = FlexInt(int(v))
	return nil
}

// SkillList decodes from a JSON array of strings or a single comma
// separated string. Other shapes decode as an empty list.
type SkillList []string

func (s *SkillList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*s = nil
		return nil
	}

	switch data[0] {
	case '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*s = splitSkills(raw)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make(SkillList, 0, len(items))
		for _, item := range items {
			var skill string
			if json.Unmarshal(item, &skill) == nil && strings.TrimSpace(skill) != "" {
				out = append(out, strings.TrimSpace(skill))
			}
		}
		*s = out
	default:
		*s = nil
	}
	return nil
}

func splitSkills(raw string) SkillList {
	var out SkillList
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type Candidate struct {
	ID       FlexString `json:"id,omitempty"`
	Name     string     `json:"name,omitempty"`
	Email    string     `json:"email,omitempty"`
	Phone    string     `json:"phone,omitempty"`
	Score    float64    `json:"score"`
	Skills   SkillList  `json:"skills,omitempty"`
	Sector   string     `json:"sector,omitempty"`
	Location string     `json:"location,omitempty"`
	PdfID    FlexString `json:"pdfId,omitempty"`
	PdfURL   string     `json:"pdfUrl,omitempty"`
}

type Education struct {
	Institution string `json:"institution,omitempty"`
	Degree      string `json:"degree,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
}

type Experience struct {
	Company     string `json:"company,omitempty"`
	Role        string `json:"role,omitempty"`
	Description string `json:"description,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
}

type Project struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Link        string `json:"link,omitempty"`
}

type CandidateDetail struct {
	Candidate
	Summary    string       `json:"summary,omitempty"`
	Education  []Education  `json:"education,omitempty"`
	Experience []Experience `json:"experience,omitempty"`
	Projects   []Project    `json:"projects,omitempty"`
}

// PlaceholderDetail is the minimal record shown when a candidate cannot be
// fetched: enough to render a PDF link.
func PlaceholderDetail(id, base string) *CandidateDetail {
	return &CandidateDetail{
		Candidate: Candidate{
			ID:     FlexString(id),
			Score:  0,
			PdfID:  FlexString(id),
			PdfURL: PdfURL(base, id),
		},
	}
}

// PdfURL builds the link to a stored CV.
func PdfURL(base, pdfID string) string {
	return base + "/pdf/" + pdfID + ".pdf"
}

type SearchResponse struct {
	Candidates []Candidate `json:"candidates"`
	Total      *FlexInt    `json:"total,omitempty"`
	NextOffset *FlexInt    `json:"nextOffset,omitempty"`
}

// HasMore reports whether the upstream handed out a usable cursor.
func (r *SearchResponse) HasMore() bool {
	return r.NextOffset != nil && *r.NextOffset != 0
}

type UploadMetadata struct {
	Email      string   `json:"email,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	Name       string   `json:"name,omitempty"`
	Skills     []string `json:"skills,omitempty"`
	Experience string   `json:"experience,omitempty"`
	LinkedIn   string   `json:"linkedin,omitempty"`
	GitHub     string   `json:"github,omitempty"`
}

type UploadResponse struct {
	Success  bool              `json:"success"`
	Message  string            `json:"message"`
	Metadata *UploadMetadata   `json:"metadata,omitempty"`
	FileID   string            `json:"fileId,omitempty"`
	Pages    int               `json:"pages,omitempty"`
	Excerpt  map[string]string `json:"excerpt,omitempty"`
}

// ErrorEnvelope is the body of every failed proxy response.
type ErrorEnvelope struct {
	Message string `json:"message"`
	Base    string `json:"base"`
	Target  string `json:"target"`
	Status  int    `json:"status,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Upstream  string `json:"upstream,omitempty"`
}
