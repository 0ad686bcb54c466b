package classify

import (
	"strings"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
)

// Subfolders maps each document type to its folder under a matter.
type Subfolders map[domain.DocumentType]string

func DefaultSubfolders() Subfolders {
	return Subfolders{
		domain.DocTypeUTO:        "Orders",
		domain.DocTypeCMO:        "Orders",
		domain.DocTypeOrder:      "Orders",
		domain.DocTypePleading:   "Pleadings",
		domain.DocTypeDiscovery:  "Discovery",
		domain.DocTypeDeposition: "Depositions",
		domain.DocTypeOther:      "Discovery",
		domain.DocTypeUnknown:    "Discovery",
	}
}

type titleRule struct {
	docType  domain.DocumentType
	keywords []string
}

// Title rules run after the content checks for trial orders. Filers curate
// titles, while generic words like "order" show up in unrelated prose.
var titleRules = []titleRule{
	{docType: domain.DocTypePleading, keywords: []string{"PLEADING", "COMPLAINT", "ANSWER"}},
	{docType: domain.DocTypeDiscovery, keywords: []string{"DISCOVERY", "INTERROGATOR", "REQUEST FOR PRODUCTION", "RFP", "RFA"}},
	{docType: domain.DocTypeDeposition, keywords: []string{"DEPOSITION"}},
	{docType: domain.DocTypeOrder, keywords: []string{"ORDER", "NOTICE OF HEARING"}},
}

type Classifier struct {
	subfolders Subfolders
}

// NewClassifier fills any type missing from overrides with the default folder.
func NewClassifier(overrides Subfolders) *Classifier {
	subfolders := DefaultSubfolders()
	for docType, folder := range overrides {
		if folder = strings.TrimSpace(folder); folder != "" {
			subfolders[docType] = folder
		}
	}
	return &Classifier{subfolders: subfolders}
}

// Classify decides the document type from the title and the first page. A
// scanned document without a text layer is still classified by its title;
// when the title says nothing either it is Unknown, never an error.
func (c *Classifier) Classify(title, firstPage string) domain.Classification {
	text := strings.ToUpper(firstPage)
	upperTitle := strings.ToUpper(title)
	noText := strings.TrimSpace(firstPage) == ""

	if strings.Contains(upperTitle, "UNIFORM TRIAL ORDER") || strings.Contains(text, "UNIFORM TRIAL ORDER") {
		return c.classification(domain.DocTypeUTO)
	}
	if strings.Contains(text, "CASE MANAGEMENT ORDER") {
		return c.classification(domain.DocTypeCMO)
	}
	for _, rule := range titleRules {
		if containsAny(upperTitle, rule.keywords) {
			return c.classification(rule.docType)
		}
	}
	if noText {
		return c.classification(domain.DocTypeUnknown)
	}
	return c.classification(domain.DocTypeOther)
}

func (c *Classifier) Subfolder(docType domain.DocumentType) string {
	return c.subfolders[docType]
}

func (c *Classifier) classification(docType domain.DocumentType) domain.Classification {
	return domain.Classification{Type: docType, Subfolder: c.subfolders[docType]}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
