package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
	"github.com/kirillkom/court-docket-router/internal/core/ports"
)

const (
	minPartyNameLength = 3
	// Shorter ids are too likely to appear inside unrelated folder names.
	minFolderScanIDLength = 6
)

// Index is a point-in-time snapshot of the case registry and the matter
// folder listing. Case and claim numbers share one key space.
type Index struct {
	mu         sync.RWMutex
	byKey      map[string]domain.RegistryRecord
	folders    []domain.MatterFolder
	upperNames []string
	parties    map[string][]int
	// words maps each style word of 3+ characters to the folders using it.
	words   map[string][]int
	styles  map[string]bool
	builtAt time.Time
}

func NewIndex(records []domain.RegistryRecord, folders []domain.MatterFolder, builtAt time.Time) *Index {
	ix := &Index{
		byKey:      make(map[string]domain.RegistryRecord, len(records)*2),
		folders:    append([]domain.MatterFolder(nil), folders...),
		upperNames: make([]string, 0, len(folders)),
		parties:    make(map[string][]int),
		words:      make(map[string][]int),
		styles:     make(map[string]bool),
		builtAt:    builtAt,
	}
	for i, folder := range folders {
		ix.upperNames = append(ix.upperNames, strings.ToUpper(folder.Name))
		seen := make(map[string]bool)
		for _, word := range significantWords(styleFromFolder(folder.Name)) {
			if !seen[word] {
				seen[word] = true
				ix.words[word] = append(ix.words[word], i)
			}
		}
	}
	for _, record := range records {
		ix.addKeys(record)
	}
	return ix
}

func (ix *Index) BuiltAt() time.Time {
	return ix.builtAt
}

// Record returns the first registry row keyed by id.
func (ix *Index) Record(id string) (domain.RegistryRecord, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	record, ok := ix.byKey[normalizeKey(id)]
	return record, ok
}

// LookupCase resolves a case or claim number. A registry row whose matter
// folder exists is exact; a row without a folder only names the client. When
// the registry has nothing, a folder whose name contains the id wins if it is
// the only one and the id is long enough to be meaningful.
func (ix *Index) LookupCase(id string) (domain.CaseIdentity, bool) {
	key := normalizeKey(id)
	if key == "" {
		return domain.UnresolvedIdentity(), false
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if record, ok := ix.byKey[key]; ok && strings.TrimSpace(record.Client) != "" {
		caseNumber := record.CaseNumber
		if caseNumber == "" {
			caseNumber = id
		}
		if folder, found := ix.matterFolder(record.Client, record.Matter); found {
			style := styleFromFolder(folder.Name)
			if style == "" {
				style = record.Style
			}
			return domain.CaseIdentity{
				Client:       folder.Client,
				Matter:       record.Matter,
				Style:        style,
				CaseNumber:   caseNumber,
				RelativePath: folder.RelativePath(),
				Confidence:   domain.ConfidenceExact,
			}, true
		}
		return domain.CaseIdentity{
			Client:     record.Client,
			Style:      record.Style,
			CaseNumber: caseNumber,
			Confidence: domain.ConfidenceClientOnly,
		}, true
	}

	if len(key) < minFolderScanIDLength {
		return domain.UnresolvedIdentity(), false
	}
	match := -1
	for i, name := range ix.upperNames {
		if !strings.Contains(name, key) {
			continue
		}
		if match >= 0 {
			return domain.UnresolvedIdentity(), false
		}
		match = i
	}
	if match < 0 {
		return domain.UnresolvedIdentity(), false
	}
	identity := identityFromFolder(ix.folders[match])
	identity.CaseNumber = strings.TrimSpace(id)
	return identity, true
}

// HasStyle reports whether the registry already holds a row for the client
// with the same style, compared case-insensitively.
func (ix *Index) HasStyle(client, style string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.styles[styleKey(client, style)]
}

// MatchParty accepts a party name only when exactly one folder contains it.
// When no folder name contains the whole name, the folders sharing at least
// two of its words are tried, again only if there is exactly one.
func (ix *Index) MatchParty(name string) (domain.MatterFolder, bool) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if len(key) < minPartyNameLength {
		return domain.MatterFolder{}, false
	}
	candidates := ix.partyCandidates(key)
	if len(candidates) != 1 {
		return domain.MatterFolder{}, false
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.folders[candidates[0]], true
}

// AddRecord reflects a registry append so later lookups in the same run see it.
func (ix *Index) AddRecord(record domain.RegistryRecord) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.addKeys(record)
}

func (ix *Index) partyCandidates(key string) []int {
	ix.mu.RLock()
	cached, ok := ix.parties[key]
	ix.mu.RUnlock()
	if ok {
		return cached
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if cached, ok := ix.parties[key]; ok {
		return cached
	}
	var candidates []int
	for i, name := range ix.upperNames {
		if strings.Contains(name, key) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		candidates = ix.wordCandidates(key)
	}
	ix.parties[key] = candidates
	return candidates
}

// wordCandidates intersects the folders of every party word the index knows.
// Words no folder uses ("CORP", "LLC") are ignored, but at least two must
// match so one common word cannot pick a folder.
// caller holds the lock
func (ix *Index) wordCandidates(key string) []int {
	var (
		current map[int]bool
		matched int
	)
	for _, word := range significantWords(key) {
		folders, ok := ix.words[word]
		if !ok {
			continue
		}
		matched++
		next := make(map[int]bool, len(folders))
		for _, i := range folders {
			if current == nil || current[i] {
				next[i] = true
			}
		}
		current = next
	}
	if matched < 2 {
		return nil
	}
	candidates := make([]int, 0, len(current))
	for i := range ix.upperNames {
		if current[i] {
			candidates = append(candidates, i)
		}
	}
	return candidates
}

// caller holds the lock
func (ix *Index) matterFolder(client, matter string) (domain.MatterFolder, bool) {
	matter = strings.TrimSpace(matter)
	if matter == "" {
		return domain.MatterFolder{}, false
	}
	for _, folder := range ix.folders {
		if folder.Client == client && strings.HasPrefix(folder.Name, matter) {
			return folder, true
		}
	}
	return domain.MatterFolder{}, false
}

func (ix *Index) addKeys(record domain.RegistryRecord) {
	if strings.TrimSpace(record.Style) != "" {
		ix.styles[styleKey(record.Client, record.Style)] = true
	}
	for _, id := range []string{record.CaseNumber, record.ClaimNo} {
		key := normalizeKey(id)
		if key == "" {
			continue
		}
		if _, exists := ix.byKey[key]; !exists {
			ix.byKey[key] = record
		}
	}
}

func normalizeKey(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func styleKey(client, style string) string {
	return strings.TrimSpace(client) + "|" + strings.Join(strings.Fields(strings.ToUpper(style)), " ")
}

func significantWords(text string) []string {
	fields := strings.FieldsFunc(strings.ToUpper(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := fields[:0]
	for _, field := range fields {
		if len(field) >= minPartyNameLength {
			words = append(words, field)
		}
	}
	return words
}

// Matter folders are named "<matter> - <style>".
func styleFromFolder(name string) string {
	if _, style, ok := strings.Cut(name, " - "); ok {
		return strings.TrimSpace(style)
	}
	return ""
}

func matterFromFolder(name string) string {
	if matter, _, ok := strings.Cut(name, " - "); ok {
		return strings.TrimSpace(matter)
	}
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

func identityFromFolder(folder domain.MatterFolder) domain.CaseIdentity {
	return domain.CaseIdentity{
		Client:       folder.Client,
		Matter:       matterFromFolder(folder.Name),
		Style:        styleFromFolder(folder.Name),
		RelativePath: folder.RelativePath(),
		Confidence:   domain.ConfidenceExact,
	}
}

// IndexProvider hands out the current Index and rebuilds it when it is older
// than the TTL or after Invalidate. A zero TTL keeps the snapshot until invalidated.
type IndexProvider struct {
	registry ports.CaseRegistry
	store    ports.CaseStore
	ttl      time.Duration
	now      func() time.Time

	mu             sync.Mutex
	current        *Index
	registryWarned bool
}

func NewIndexProvider(registry ports.CaseRegistry, store ports.CaseStore, ttl time.Duration) *IndexProvider {
	return &IndexProvider{
		registry: registry,
		store:    store,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (p *IndexProvider) Index(ctx context.Context) (*Index, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil && (p.ttl <= 0 || p.now().Sub(p.current.builtAt) < p.ttl) {
		return p.current, nil
	}

	records, err := p.registry.Records(ctx)
	if err != nil {
		if !domain.IsKind(err, domain.ErrRegistryUnavailable) {
			return nil, fmt.Errorf("load case registry: %w", err)
		}
		if !p.registryWarned {
			slog.Warn("case_registry_unavailable", "error", err.Error())
			p.registryWarned = true
		}
		records = nil
	} else {
		p.registryWarned = false
	}

	folders, err := p.store.ListMatterFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list matter folders: %w", err)
	}

	p.current = NewIndex(records, folders, p.now())
	slog.Info("case_index_built", "records", len(records), "folders", len(folders))
	return p.current, nil
}

func (p *IndexProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = nil
}
