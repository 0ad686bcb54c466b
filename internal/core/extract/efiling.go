package extract

import (
	"regexp"
	"time"
)

const filenameDateLayout = "2006.01.02"

var efilingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[Ee]-?[Ff]iled?:?\s*(\d{1,2}[-/]\d{1,2}[-/]\d{4})`),
	regexp.MustCompile(`[Ff]iled?:?\s*(\d{1,2}[-/]\d{1,2}[-/]\d{4})`),
	regexp.MustCompile(`[Dd]ate [Ff]iled:?\s*(\d{1,2}[-/]\d{1,2}[-/]\d{4})`),
}

var efilingLayouts = []string{"1/2/2006", "1-2-2006"}

// ExtractEFilingDate looks for the court's e-filing stamp on the first page
// and returns it as YYYY.MM.DD, the form used verbatim as a filename prefix.
func ExtractEFilingDate(firstPage string) (string, bool) {
	for _, pattern := range efilingPatterns {
		m := pattern.FindStringSubmatch(firstPage)
		if m == nil {
			continue
		}
		for _, layout := range efilingLayouts {
			if parsed, err := time.Parse(layout, m[1]); err == nil {
				return parsed.Format(filenameDateLayout), true
			}
		}
	}
	return "", false
}

// DatePrefix falls back to the processing date when no stamp was found.
func DatePrefix(efiling string, ok bool, now time.Time) string {
	if ok && efiling != "" {
		return efiling
	}
	return now.Format(filenameDateLayout)
}
