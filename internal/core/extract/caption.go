package extract

import (
	"regexp"
	"strings"
)

var (
	captionCaseNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[Cc]ase [Nn]o\.?:?\s*([A-Z0-9]+)`),
		regexp.MustCompile(`[Cc]ase #:?\s*([A-Z0-9]+)`),
		// Florida uniform case number, e.g. 062024CA012345AXXXCE.
		regexp.MustCompile(`([0-9]{2}[0-9]{4}[A-Z]{2}[0-9]+[A-Z]+[0-9]*)`),
	}
	captionPartiesPattern = regexp.MustCompile(`(?i)([A-Z][A-Za-z\s,\.]+?)\s+(?:vs\.?|v\.)\s+([A-Z][A-Za-z\s,\.]+?)(?:\n|,|Case)`)
	captionCourtPattern   = regexp.MustCompile(`(?i)IN THE (.+?COURT.+?)(?:IN AND FOR|COUNTY|STATE)`)
)

// Caption is what the pleading caption on the first two pages tells about the case.
type Caption struct {
	CaseNumber string  `json:"case_number,omitempty"`
	Parties    Parties `json:"parties"`
	Court      string  `json:"court,omitempty"`
}

func ParseCaption(text string) Caption {
	var caption Caption
	for _, pattern := range captionCaseNumberPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			caption.CaseNumber = m[1]
			break
		}
	}
	if m := captionPartiesPattern.FindStringSubmatch(text); m != nil {
		caption.Parties = Parties{
			Plaintiff: strings.TrimSpace(m[1]),
			Defendant: strings.TrimSpace(m[2]),
		}
	}
	if m := captionCourtPattern.FindStringSubmatch(text); m != nil {
		caption.Court = strings.TrimSpace(m[1])
	}
	return caption
}
