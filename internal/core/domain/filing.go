package domain

import "time"

type DocumentType string

const (
	DocTypeUTO        DocumentType = "UTO"
	DocTypeCMO        DocumentType = "CMO"
	DocTypePleading   DocumentType = "Pleading"
	DocTypeDiscovery  DocumentType = "Discovery"
	DocTypeDeposition DocumentType = "Deposition"
	DocTypeOrder      DocumentType = "Order"
	DocTypeOther      DocumentType = "Other"
	DocTypeUnknown    DocumentType = "Unknown"
)

// IsTrialOrder reports whether the type carries calendar data worth tracking.
func (t DocumentType) IsTrialOrder() bool {
	return t == DocTypeUTO || t == DocTypeCMO
}

// Recognized is false for the catch-all types that cannot be sorted into a subfolder.
func (t DocumentType) Recognized() bool {
	switch t {
	case DocTypeUTO, DocTypeCMO, DocTypePleading, DocTypeDiscovery, DocTypeDeposition, DocTypeOrder:
		return true
	default:
		return false
	}
}

type Classification struct {
	Type      DocumentType `json:"type"`
	Subfolder string       `json:"subfolder"`
}

// ExtractedDates holds calendar data recovered from an order. Dates are
// YYYY-MM-DD strings, or the raw match when it could not be parsed; empty
// means not found. TrialStart and TrialEnd always come from the same match.
type ExtractedDates struct {
	DocumentType DocumentType `json:"document_type"`
	CalendarCall string       `json:"calendar_call,omitempty"`
	TrialStart   string       `json:"trial_start,omitempty"`
	TrialEnd     string       `json:"trial_end,omitempty"`
	EFilingDate  string       `json:"efiling_date,omitempty"`
}

func EmptyExtraction() ExtractedDates {
	return ExtractedDates{DocumentType: DocTypeOther}
}

func (d ExtractedDates) HasCalendarData() bool {
	return d.CalendarCall != "" || d.TrialStart != ""
}

type Confidence string

const (
	ConfidenceExact      Confidence = "exact"
	ConfidenceClientOnly Confidence = "client_only"
	ConfidenceUnresolved Confidence = "unresolved"
)

type CaseIdentity struct {
	Client       string     `json:"client,omitempty"`
	Matter       string     `json:"matter,omitempty"`
	Style        string     `json:"style,omitempty"`
	CaseNumber   string     `json:"case_number,omitempty"`
	RelativePath string     `json:"relative_path,omitempty"`
	Confidence   Confidence `json:"confidence"`
	ResolvedBy   string     `json:"resolved_by,omitempty"`
}

func UnresolvedIdentity() CaseIdentity {
	return CaseIdentity{Confidence: ConfidenceUnresolved}
}

func (c CaseIdentity) Resolved() bool {
	return c.Confidence == ConfidenceExact || c.Confidence == ConfidenceClientOnly
}

type FilingTier string

const (
	TierSorted         FilingTier = "sorted"
	TierUnsortedMatter FilingTier = "unsorted_matter"
	TierUnsortedClient FilingTier = "unsorted_client"
	TierUnknown        FilingTier = "unknown"
)

type FilingDecision struct {
	TargetPath string     `json:"target_path"`
	Tier       FilingTier `json:"tier"`
	Filename   string     `json:"filename"`
}

// FilingResult is the full output of one pipeline run.
type FilingResult struct {
	Decision       FilingDecision `json:"decision"`
	Dates          ExtractedDates `json:"dates"`
	Identity       CaseIdentity   `json:"identity"`
	Classification Classification `json:"classification"`
	StoredPath     string         `json:"stored_path,omitempty"`
	Duplicate      bool           `json:"duplicate,omitempty"`
	FiledAt        time.Time      `json:"filed_at,omitempty"`
}

// RegistryRecord is one row of the case registry.
type RegistryRecord struct {
	Attorney   string `json:"attorney,omitempty"`
	Client     string `json:"client"`
	Matter     string `json:"matter,omitempty"`
	Style      string `json:"style,omitempty"`
	ClaimNo    string `json:"claim_no,omitempty"`
	CaseNumber string `json:"case_number,omitempty"`
}

// MatterFolder is one client/matter directory of the case store.
type MatterFolder struct {
	Client string `json:"client"`
	Name   string `json:"name"`
}

func (f MatterFolder) RelativePath() string {
	return f.Client + "/" + f.Name
}

type StoredFile struct {
	Path      string
	Duplicate bool
}

type TrialOrderNotice struct {
	EnvelopeID string
	Title      string
	Identity   CaseIdentity
	Dates      ExtractedDates
	StoredPath string
}

// ResolveOptions carries per-call knobs of the filing pipeline. Prior is the
// identity resolved for an earlier document of the same envelope.
type ResolveOptions struct {
	Prior  *CaseIdentity
	DryRun bool
}
