package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
)

const (
	inputDateLayout     = "01-02-2006"
	canonicalDateLayout = "2006-01-02"

	DefaultCalendarFallbackWindow = 200
)

var (
	trialPeriodPattern  = regexp.MustCompile(`(?i)TRIAL PERIOD COMMENCING:\s*(\d{2}-\d{2}-\d{4})\s*to\s*(\d{2}-\d{2}-\d{4})`)
	calendarCallPattern = regexp.MustCompile(`(?i)CALENDAR CALL:\s*(\d{2}-\d{2}-\d{4})`)
)

// DateExtractor recovers scheduling dates from normalized order text.
type DateExtractor struct {
	hearingPattern *regexp.Regexp
}

// NewDateExtractor builds an extractor whose prose fallback looks at most
// window characters past "held"/"on" for a date followed by a time of day.
// Case management orders describe the conference date that way instead of
// in a labeled field.
func NewDateExtractor(window int) *DateExtractor {
	if window <= 0 {
		window = DefaultCalendarFallbackWindow
	}
	// RE2 caps counted repetition at 1000.
	if window > 1000 {
		window = 1000
	}
	pattern := fmt.Sprintf(`(?i)(?:held|on)[\s\S]{0,%d}?(\d{2}-\d{2}-\d{4})\s+\d{1,2}:\d{2}(?:\s*[AP]M)?`, window)
	return &DateExtractor{hearingPattern: regexp.MustCompile(pattern)}
}

// Extract reports ok=false when neither a calendar call nor a trial period
// was found; the type tag alone does not count as a result.
func (e *DateExtractor) Extract(text string) (domain.ExtractedDates, bool) {
	out := domain.ExtractedDates{DocumentType: DetectOrderType(text)}

	if m := trialPeriodPattern.FindStringSubmatch(text); m != nil {
		out.TrialStart = CanonicalDate(m[1])
		out.TrialEnd = CanonicalDate(m[2])
	}

	if m := calendarCallPattern.FindStringSubmatch(text); m != nil {
		out.CalendarCall = CanonicalDate(m[1])
	} else if m := e.hearingPattern.FindStringSubmatch(text); m != nil {
		out.CalendarCall = CanonicalDate(m[1])
	}

	if !out.HasCalendarData() {
		return domain.ExtractedDates{}, false
	}
	return out, true
}

// DetectOrderType checks the trial order first since its text usually also
// mentions case management.
func DetectOrderType(text string) domain.DocumentType {
	upper := strings.ToUpper(text)
	switch {
	case strings.Contains(upper, "UNIFORM TRIAL ORDER"):
		return domain.DocTypeUTO
	case strings.Contains(upper, "CASE MANAGEMENT ORDER"):
		return domain.DocTypeCMO
	default:
		return domain.DocTypeOther
	}
}

// CanonicalDate converts MM-DD-YYYY to YYYY-MM-DD and returns anything it
// cannot parse unchanged.
func CanonicalDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := time.Parse(inputDateLayout, raw)
	if err != nil {
		return raw
	}
	return parsed.Format(canonicalDateLayout)
}
