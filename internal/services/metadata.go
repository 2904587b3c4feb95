package services

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	emailRe    = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	linkedinRe = regexp.MustCompile(`(?i)(https?://)?(www\.)?linkedin\.com/[^\s]+`)
	githubRe   = regexp.MustCompile(`(?i)(https?://)?(www\.)?github\.com/[^\s]+`)
	nonDigitRe = regexp.MustCompile(`\D`)
	digitRe    = regexp.MustCompile(`\d`)

	// Indian mobile, North American, then any long digit run. Matches that
	// touch another digit are discarded by phoneMatches.
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:\+?91[\s\-.]*)?(?:0[\s\-.]*)?(?:[6-9]\d{2}[\s\-.]?\d{3}[\s\-.]?\d{4}|[6-9]\d{9})`),
		regexp.MustCompile(`(?:\+?1[\s\-.]*)?(?:\(\d{3}\)|\d{3})[\s\-.]?\d{3}[\s\-.]?\d{4}`),
		regexp.MustCompile(`\+?\d(?:[\s\-.]?\d){6,15}`),
	}

	sectionHeaderRe = regexp.MustCompile(`^(work experience|professional experience|experience|academic projects?|projects?|education|qualifications?|academics?|technical skills?|programming skills?|skills?|certifications?|achievements?|awards?)$`)
	skillSplitRe    = regexp.MustCompile(`[,;|•·]+|\s{2,}`)
)

const (
	sectionOther       = "other"
	maxHeaderLength    = 40
	maxExperienceRunes = 300
	maxSkills          = 30
)

// CVMetadata is what can be read off a CV without a model.
type CVMetadata struct {
	Name       string
	Email      string
	Phone      string
	LinkedIn   string
	GitHub     string
	Skills     []string
	Experience string
}

// ExtractMetadata pulls contact details out of text and returns the text
// with those details removed.
func ExtractMetadata(text string) (CVMetadata, string) {
	var meta CVMetadata

	meta.Email = emailRe.FindString(text)
	meta.LinkedIn = linkedinRe.FindString(text)
	meta.GitHub = githubRe.FindString(text)
	if phones := FindPhoneNumbers(text); len(phones) > 0 {
		meta.Phone = phones[0]
	}

	clean := RedactPhoneNumbers(text)
	clean = emailRe.ReplaceAllString(clean, "")
	clean = linkedinRe.ReplaceAllString(clean, "")
	clean = githubRe.ReplaceAllString(clean, "")

	meta.Name = guessName(clean)
	return meta, clean
}

// FindPhoneNumbers returns distinct phone numbers as bare digits, in the
// order the patterns find them.
func FindPhoneNumbers(text string) []string {
	var hits []string
	seen := make(map[string]bool)
	for _, pat := range phonePatterns {
		for _, loc := range phoneMatches(pat, text) {
			norm := nonDigitRe.ReplaceAllString(text[loc[0]:loc[1]], "")
			if len(norm) < 7 || len(norm) > 16 || seen[norm] {
				continue
			}
			seen[norm] = true
			hits = append(hits, norm)
		}
	}
	return hits
}

// RedactPhoneNumbers strips the digits from every phone number in text and
// keeps the separators.
func RedactPhoneNumbers(text string) string {
	for _, pat := range phonePatterns {
		locs := phoneMatches(pat, text)
		if len(locs) == 0 {
			continue
		}
		var b strings.Builder
		prev := 0
		for _, loc := range locs {
			b.WriteString(text[prev:loc[0]])
			b.WriteString(digitRe.ReplaceAllString(text[loc[0]:loc[1]], ""))
			prev = loc[1]
		}
		b.WriteString(text[prev:])
		text = b.String()
	}
	return text
}

func phoneMatches(pat *regexp.Regexp, text string) [][]int {
	var out [][]int
	for _, loc := range pat.FindAllStringIndex(text, -1) {
		if loc[0] > 0 && isDigit(text[loc[0]-1]) {
			continue
		}
		if loc[1] < len(text) && isDigit(text[loc[1]]) {
			continue
		}
		out = append(out, loc)
	}
	return out
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// SplitSections groups lines under the most recent section header. Lines
// before the first header land in "other".
func SplitSections(text string) map[string]string {
	order := []string{sectionOther}
	lines := map[string][]string{sectionOther: nil}
	current := sectionOther

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if isSectionHeader(line) {
			current = line
			if _, ok := lines[current]; !ok {
				order = append(order, current)
			}
			lines[current] = nil
			continue
		}
		if line != "" {
			lines[current] = append(lines[current], line)
		}
	}

	sections := make(map[string]string, len(order))
	for _, h := range order {
		sections[h] = strings.Join(lines[h], " ")
	}
	return sections
}

func isSectionHeader(line string) bool {
	if line == "" || len(line) > maxHeaderLength {
		return false
	}
	key := strings.ToLower(strings.TrimRight(line, ": "))
	return sectionHeaderRe.MatchString(key)
}

// SkillsFromSections splits a skills section into distinct entries.
func SkillsFromSections(sections map[string]string) []string {
	body := sectionBody(sections, "skill")
	if body == "" {
		return nil
	}

	var skills []string
	seen := make(map[string]bool)
	for _, raw := range skillSplitRe.Split(body, -1) {
		s := strings.Trim(strings.TrimSpace(raw), "-*.")
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] || utf8.RuneCountInString(s) > 40 {
			continue
		}
		seen[key] = true
		skills = append(skills, s)
		if len(skills) == maxSkills {
			break
		}
	}
	return skills
}

// ExperienceFromSections returns the start of the experience section.
func ExperienceFromSections(sections map[string]string) string {
	return truncateRunes(sectionBody(sections, "experience"), maxExperienceRunes)
}

func sectionBody(sections map[string]string, keyword string) string {
	for header, body := range sections {
		if header != sectionOther && strings.Contains(strings.ToLower(header), keyword) && body != "" {
			return body
		}
	}
	return ""
}

// guessName takes the first short line made of letters only, which is
// where CVs usually print the candidate's name.
func guessName(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isSectionHeader(line) {
			return ""
		}
		words := strings.Fields(line)
		if len(words) < 2 || len(words) > 4 {
			continue
		}
		if strings.IndexFunc(line, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsSpace(r) && r != '.' && r != '-' && r != '\''
		}) >= 0 {
			continue
		}
		return line
	}
	return ""
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + "..."
}

// AnalyzeText extracts metadata and splits the redacted text into sections.
func AnalyzeText(text string) (CVMetadata, string, map[string]string) {
	meta, clean := ExtractMetadata(text)
	sections := SplitSections(clean)
	meta.Skills = SkillsFromSections(sections)
	meta.Experience = ExperienceFromSections(sections)
	return meta, clean, sections
}
