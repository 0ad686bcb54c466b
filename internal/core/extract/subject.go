package extract

import (
	"regexp"
	"strings"
)

var (
	subjectCaseNumberPattern = regexp.MustCompile(`(?i)CASE NUMBER\s*:?\s*(\S+)`)
	subjectStylePattern      = regexp.MustCompile(`CASE NUMBER:?\s+\S+\s+([^,]+)`)
	claimNumberPattern       = regexp.MustCompile(`(?i)(?:claim|file)[\s#:]+([0-9-]+)`)
	// "LAST, FIRST v DEFENDANT - ..." keeps only the plaintiff surname.
	subjectPartiesPattern = regexp.MustCompile(`(?i)([A-Z][A-Za-z]+)(?:,\s*[A-Z][A-Za-z\s]+?)?\s+(?:v\.?s?\.?)\s+([A-Z][A-Za-z\s/]+?)(?:\s+-|\s+/|$)`)
	assignmentPattern     = regexp.MustCompile(`Our File no\.\s+(\d+)-(\d+)\s+([^(]+?)\s+vs\s+[^(]+\(([^)]+)\)`)
	trailingPunctuation   = regexp.MustCompile(`[^\w]+$`)
	digitPattern          = regexp.MustCompile(`\d`)
)

type Parties struct {
	Plaintiff string `json:"plaintiff,omitempty"`
	Defendant string `json:"defendant,omitempty"`
}

func (p Parties) Empty() bool {
	return p.Plaintiff == "" && p.Defendant == ""
}

// Assignment is a new-matter notice: "Our File no. 272-90250273 Doe, Jane vs Citizens (001-00-603213)".
type Assignment struct {
	Client  string
	Matter  string
	Style   string
	ClaimNo string
}

func CaseNumberFromSubject(subject string) (string, bool) {
	m := subjectCaseNumberPattern.FindStringSubmatch(subject)
	if m == nil {
		return "", false
	}
	caseNumber := trailingPunctuation.ReplaceAllString(strings.TrimSpace(m[1]), "")
	if caseNumber == "" {
		return "", false
	}
	return caseNumber, true
}

// StyleFromSubject returns the caption text that follows the case number up
// to the first comma.
func StyleFromSubject(subject string) (string, bool) {
	m := subjectStylePattern.FindStringSubmatch(subject)
	if m == nil {
		return "", false
	}
	style := strings.TrimSpace(m[1])
	return style, style != ""
}

// ClaimNumberFromSubject finds "claim"/"file" labeled numbers such as
// "Claim # 2023-632391". Claim numbers share the case number key space.
func ClaimNumberFromSubject(subject string) (string, bool) {
	m := claimNumberPattern.FindStringSubmatch(subject)
	if m == nil {
		return "", false
	}
	claim := strings.TrimSpace(m[1])
	if !digitPattern.MatchString(claim) {
		return "", false
	}
	return claim, true
}

func PartiesFromSubject(subject string) (Parties, bool) {
	m := subjectPartiesPattern.FindStringSubmatch(subject)
	if m == nil {
		return Parties{}, false
	}
	return Parties{
		Plaintiff: strings.TrimSpace(m[1]),
		Defendant: strings.TrimSpace(m[2]),
	}, true
}

func AssignmentFromSubject(subject string) (Assignment, bool) {
	m := assignmentPattern.FindStringSubmatch(subject)
	if m == nil {
		return Assignment{}, false
	}
	return Assignment{
		Client:  m[1],
		Matter:  m[2],
		Style:   strings.TrimSpace(m[3]),
		ClaimNo: strings.TrimSpace(m[4]),
	}, true
}
