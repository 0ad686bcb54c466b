package extract

import "regexp"

// PDF text extraction emits wrapped table cells as separate lines, sometimes
// with the meridiem of a neighbouring cell wedged inside a date:
// "09-16-\nAM\n2024".
var splitDatePattern = regexp.MustCompile(`(?i)(\d{2}-\d{2})-\s*[\n\r]+\s*(?:AM|PM)?\s*[\n\r]*\s*(\d{4})`)

// Normalize rejoins dates split across lines into MM-DD-YYYY tokens. Nothing
// else is touched; downstream patterns are case and whitespace tolerant.
func Normalize(text string) string {
	return splitDatePattern.ReplaceAllString(text, "${1}-${2}")
}
