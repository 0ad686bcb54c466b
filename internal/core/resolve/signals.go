package resolve

import (
	"github.com/kirillkom/court-docket-router/internal/core/domain"
	"github.com/kirillkom/court-docket-router/internal/core/extract"
)

// Signals are the weak hints a document carries about its case. They come
// from the email subject and the caption on the first two pages, never from
// the body text.
type Signals struct {
	Subject           string          `json:"subject,omitempty"`
	SubjectCaseNumber string          `json:"subject_case_number,omitempty"`
	CaptionCaseNumber string          `json:"caption_case_number,omitempty"`
	ClaimNumber       string          `json:"claim_number,omitempty"`
	SubjectParties    extract.Parties `json:"subject_parties"`
	CaptionParties    extract.Parties `json:"caption_parties"`
	Court             string          `json:"court,omitempty"`
	Style             string          `json:"style,omitempty"`
}

func SignalsFrom(doc domain.DocumentContext) Signals {
	sig := Signals{Subject: doc.SubjectLine}
	sig.SubjectCaseNumber, _ = extract.CaseNumberFromSubject(doc.SubjectLine)
	sig.ClaimNumber, _ = extract.ClaimNumberFromSubject(doc.SubjectLine)
	sig.SubjectParties, _ = extract.PartiesFromSubject(doc.SubjectLine)
	sig.Style, _ = extract.StyleFromSubject(doc.SubjectLine)

	caption := extract.ParseCaption(extract.Normalize(doc.CaptionText))
	sig.CaptionCaseNumber = caption.CaseNumber
	sig.CaptionParties = caption.Parties
	sig.Court = caption.Court
	return sig
}

// CaseNumber is the first case number seen, subject before caption.
func (s Signals) CaseNumber() string {
	if s.SubjectCaseNumber != "" {
		return s.SubjectCaseNumber
	}
	return s.CaptionCaseNumber
}

// DefendantText is what client inference matches against the configured
// defendant table.
func (s Signals) DefendantText() string {
	switch {
	case s.SubjectParties.Defendant != "":
		return s.SubjectParties.Defendant
	case s.CaptionParties.Defendant != "":
		return s.CaptionParties.Defendant
	default:
		return s.Subject
	}
}

// StyleText is the caption written into new registry rows.
func (s Signals) StyleText() string {
	if s.Style != "" {
		return s.Style
	}
	for _, parties := range []extract.Parties{s.SubjectParties, s.CaptionParties} {
		if parties.Plaintiff != "" && parties.Defendant != "" {
			return parties.Plaintiff + " vs " + parties.Defendant
		}
	}
	return ""
}
