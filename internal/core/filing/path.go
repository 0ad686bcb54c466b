package filing

import (
	"strings"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
)

const (
	unknownFolder  = "Unknown"
	unsortedFolder = "Unsorted"
)

var titleSanitizer = strings.NewReplacer(
	"<", "-", ">", "-", ":", "-", `"`, "-",
	"/", "-", `\`, "-", "|", "-", "?", "-", "*", "-",
)

// ResolvePath walks the tier ladder top-down from the least informed case.
// A nil or unresolved identity always lands in Unknown. Filename is left
// empty; callers fill it with Filename once the date prefix is known.
func ResolvePath(identity *domain.CaseIdentity, cls domain.Classification, title string) domain.FilingDecision {
	sanitized := SanitizeTitle(title)

	if identity == nil || !identity.Resolved() || strings.TrimSpace(identity.Client) == "" {
		return domain.FilingDecision{TargetPath: joinPath(unknownFolder, sanitized), Tier: domain.TierUnknown}
	}

	matterPath := matterPath(identity)
	if identity.Confidence != domain.ConfidenceExact || matterPath == "" {
		return domain.FilingDecision{
			TargetPath: joinPath(identity.Client, unsortedFolder, sanitized),
			Tier:       domain.TierUnsortedClient,
		}
	}

	if !cls.Type.Recognized() || strings.TrimSpace(cls.Subfolder) == "" {
		return domain.FilingDecision{TargetPath: joinPath(matterPath, unsortedFolder), Tier: domain.TierUnsortedMatter}
	}
	return domain.FilingDecision{TargetPath: joinPath(matterPath, cls.Subfolder), Tier: domain.TierSorted}
}

// SanitizeTitle replaces characters that are illegal in file names on common
// file stores with a hyphen.
func SanitizeTitle(title string) string {
	return strings.TrimSpace(titleSanitizer.Replace(title))
}

func Filename(prefix, title string) string {
	return prefix + " - " + SanitizeTitle(title) + ".pdf"
}

func matterPath(identity *domain.CaseIdentity) string {
	if p := strings.Trim(identity.RelativePath, "/ "); p != "" {
		return p
	}
	if strings.TrimSpace(identity.Matter) == "" {
		return ""
	}
	return identity.Client + "/" + identity.Matter
}

func joinPath(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}
