package filing

import (
	"testing"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
)

var ordersClass = domain.Classification{Type: domain.DocTypeUTO, Subfolder: "Orders"}

func TestResolvePathTiers(t *testing.T) {
	exact := &domain.CaseIdentity{
		Client:       "272",
		Matter:       "90250143",
		RelativePath: "272/90250143 - Tomasini",
		Confidence:   domain.ConfidenceExact,
	}
	clientOnly := &domain.CaseIdentity{Client: "4700", Confidence: domain.ConfidenceClientOnly}

	cases := []struct {
		name     string
		identity *domain.CaseIdentity
		cls      domain.Classification
		wantPath string
		wantTier domain.FilingTier
	}{
		{"sorted", exact, ordersClass, "272/90250143 - Tomasini/Orders", domain.TierSorted},
		{"unknown type", exact, domain.Classification{Type: domain.DocTypeUnknown, Subfolder: "Discovery"}, "272/90250143 - Tomasini/Unsorted", domain.TierUnsortedMatter},
		{"other type", exact, domain.Classification{Type: domain.DocTypeOther, Subfolder: "Discovery"}, "272/90250143 - Tomasini/Unsorted", domain.TierUnsortedMatter},
		{"no subfolder", exact, domain.Classification{Type: domain.DocTypeOrder}, "272/90250143 - Tomasini/Unsorted", domain.TierUnsortedMatter},
		{"client only", clientOnly, ordersClass, "4700/Unsorted/Order- Trial", domain.TierUnsortedClient},
		{"nil identity", nil, ordersClass, "Unknown/Order- Trial", domain.TierUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolvePath(tc.identity, tc.cls, "Order: Trial")
			if got.TargetPath != tc.wantPath || got.Tier != tc.wantTier {
				t.Fatalf("ResolvePath() = %+v, want %s (%s)", got, tc.wantPath, tc.wantTier)
			}
		})
	}
}

func TestResolvePathExactWithoutRelativePathUsesMatter(t *testing.T) {
	identity := &domain.CaseIdentity{Client: "272", Matter: "90250143", Confidence: domain.ConfidenceExact}
	got := ResolvePath(identity, ordersClass, "x")
	if got.TargetPath != "272/90250143/Orders" {
		t.Fatalf("unexpected path %q", got.TargetPath)
	}
}

func TestResolvePathMonotonicity(t *testing.T) {
	identities := []*domain.CaseIdentity{
		nil,
		{Confidence: domain.ConfidenceUnresolved, Client: "272", Matter: "1"},
		{Confidence: domain.ConfidenceClientOnly, Client: "272"},
		{Confidence: domain.ConfidenceClientOnly, Client: "272", Matter: "1", RelativePath: "272/1"},
		{Confidence: domain.ConfidenceExact, Client: "272", RelativePath: "272/1 - A"},
		{Confidence: domain.ConfidenceExact, Client: "272"},
	}
	types := []domain.DocumentType{
		domain.DocTypeUTO, domain.DocTypeCMO, domain.DocTypePleading, domain.DocTypeDiscovery,
		domain.DocTypeDeposition, domain.DocTypeOrder, domain.DocTypeOther, domain.DocTypeUnknown,
	}
	for _, identity := range identities {
		for _, docType := range types {
			got := ResolvePath(identity, domain.Classification{Type: docType, Subfolder: "Sub"}, "t")
			if got.Tier == domain.TierSorted && (identity == nil || identity.Confidence != domain.ConfidenceExact) {
				t.Fatalf("sorted without exact identity: %+v", identity)
			}
			if got.Tier == domain.TierSorted && !docType.Recognized() {
				t.Fatalf("sorted with unrecognized type %s", docType)
			}
			if got.Tier == domain.TierUnknown && identity != nil && identity.Resolved() && identity.Client != "" {
				t.Fatalf("unknown tier with identified client: %+v", identity)
			}
		}
	}
}

func TestSanitizeTitleAndFilename(t *testing.T) {
	if got := SanitizeTitle(`  a<b>c:d"e/f\g|h?i*j  `); got != "a-b-c-d-e-f-g-h-i-j" {
		t.Fatalf("unexpected sanitized title %q", got)
	}
	if got := Filename("2025.10.24", "Order Setting Trial"); got != "2025.10.24 - Order Setting Trial.pdf" {
		t.Fatalf("unexpected filename %q", got)
	}
}
