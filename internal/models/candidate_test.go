package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidate_DecodesNumericAndStringIDs(t *testing.T) {
	var list []Candidate
	err := json.Unmarshal([]byte(`[
		{"id": 42, "score": 0.91, "pdfId": 42},
		{"id": "abc", "email": null},
		{"id": 7.5}
	]`), &list)
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, FlexString("42"), list[0].ID)
	assert.Equal(t, FlexString("42"), list[0].PdfID)
	assert.InDelta(t, 0.91, list[0].Score, 1e-9)
	assert.Equal(t, FlexString("abc"), list[1].ID)
	assert.Equal(t, 0.0, list[1].Score)
	assert.Empty(t, list[1].Email)
	assert.Equal(t, "7.5", list[2].ID.String())
}

func TestFlexString_RejectsObjects(t *testing.T) {
	var c Candidate
	err := json.Unmarshal([]byte(`{"id": {"nested": true}}`), &c)
	assert.Error(t, err)
}

func TestSkillList_AcceptsStringOrArray(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want SkillList
	}{
		{name: "array", raw: `["Go", " SQL ", ""]`, want: SkillList{"Go", "SQL"}},
		{name: "comma separated", raw: `"go, sql,,"`, want: SkillList{"go", "sql"}},
		{name: "mixed array", raw: `["Go", 3, null]`, want: SkillList{"Go"}},
		{name: "null", raw: `null`},
		{name: "object", raw: `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Candidate
			require.NoError(t, json.Unmarshal([]byte(`{"id":"1","skills":`+tt.raw+`}`), &c))
			assert.Equal(t, tt.want, c.Skills)
		})
	}
}

func TestSearchResponse_HasMore(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{name: "absent", body: `{"candidates":[]}`, want: false},
		{name: "zero", body: `{"candidates":[],"nextOffset":0}`, want: false},
		{name: "set", body: `{"candidates":[],"nextOffset":10}`, want: true},
		{name: "string", body: `{"candidates":[],"nextOffset":"20"}`, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp SearchResponse
			require.NoError(t, json.Unmarshal([]byte(tt.body), &resp))
			assert.Equal(t, tt.want, resp.HasMore())
		})
	}
}

func TestPlaceholderDetail(t *testing.T) {
	d := PlaceholderDetail("X", "http://b")

	assert.Equal(t, FlexString("X"), d.ID)
	assert.Equal(t, FlexString("X"), d.PdfID)
	assert.Equal(t, "http://b/pdf/X.pdf", d.PdfURL)
	assert.Equal(t, 0.0, d.Score)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"X","score":0,"pdfId":"X","pdfUrl":"http://b/pdf/X.pdf"}`, string(out))
}

func TestCandidateRecord_ToCandidate(t *testing.T) {
	id := uuid.MustParse("7f1c2a9e-0000-4000-8000-000000000001")
	summary := "Backend engineer"
	rec := &CandidateRecord{ID: id, Name: "Ana", Email: "ana@example.com", Skills: []string{"go"}, Summary: &summary}

	c := rec.ToCandidate(0.5, "http://b")
	assert.Equal(t, FlexString(id.String()), c.ID)
	assert.Equal(t, c.ID, c.PdfID)
	assert.Equal(t, "http://b/pdf/"+id.String()+".pdf", c.PdfURL)
	assert.Equal(t, 0.5, c.Score)

	d := rec.ToDetail("http://b")
	assert.Equal(t, "Backend engineer", d.Summary)
	assert.Equal(t, 0.0, d.Score)
}

func TestSearchRequest_Validate(t *testing.T) {
	offset := -1
	tests := []struct {
		name    string
		req     SearchRequest
		wantErr string
	}{
		{name: "valid", req: SearchRequest{Q: "go", K: 10}},
		{name: "empty query allowed", req: SearchRequest{K: 1}},
		{name: "k too small", req: SearchRequest{K: 0}, wantErr: "k must be at least 1"},
		{name: "k too large", req: SearchRequest{K: 101}, wantErr: "k must be at most 100"},
		{name: "negative offset", req: SearchRequest{K: 5, Offset: &offset}, wantErr: "offset must be at least 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}
