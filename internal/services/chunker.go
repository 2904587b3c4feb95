package services

import (
	"strings"
	"unicode/utf8"
)

type TextChunker interface {
	ChunkText(text string, maxChunkRunes int, overlap int) []string
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

// ChunkText groups paragraphs into chunks of about maxChunkRunes. A
// paragraph longer than that is split on word boundaries. Each chunk after
// the first starts with the last overlap runes of the previous one.
func (tc *textChunker) ChunkText(text string, maxChunkRunes int, overlap int) []string {
	if maxChunkRunes <= 0 {
		maxChunkRunes = 2000
	}
	if overlap < 0 || overlap >= maxChunkRunes {
		overlap = maxChunkRunes / 4
	}

	var pieces []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if utf8.RuneCountInString(para) <= maxChunkRunes {
			pieces = append(pieces, para)
			continue
		}
		pieces = append(pieces, splitWords(para, maxChunkRunes-overlap)...)
	}

	var (
		chunks []string
		cur    strings.Builder
		size   int
		added  bool
	)
	flush := func() {
		chunks = append(chunks, cur.String())
		tail := lastRunes(cur.String(), overlap)
		cur.Reset()
		size = 0
		added = false
		if tail != "" {
			cur.WriteString(tail)
			size = utf8.RuneCountInString(tail)
		}
	}

	for _, p := range pieces {
		n := utf8.RuneCountInString(p)
		if added && size+n+2 > maxChunkRunes {
			flush()
		}
		if size > 0 {
			cur.WriteString("\n\n")
			size += 2
		}
		cur.WriteString(p)
		size += n
		added = true
	}
	if added {
		chunks = append(chunks, cur.String())
	}

	return chunks
}

func splitWords(text string, limit int) []string {
	if limit <= 0 {
		limit = 1
	}
	var (
		out  []string
		line strings.Builder
		n    int
	)
	for _, w := range strings.Fields(text) {
		wn := utf8.RuneCountInString(w)
		if n > 0 && n+1+wn > limit {
			out = append(out, line.String())
			line.Reset()
			n = 0
		}
		if n > 0 {
			line.WriteByte(' ')
			n++
		}
		line.WriteString(w)
		n += wn
	}
	if n > 0 {
		out = append(out, line.String())
	}
	return out
}

func lastRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}
