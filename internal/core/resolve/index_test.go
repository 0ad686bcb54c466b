package resolve

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
)

var sampleFolders = []domain.MatterFolder{
	{Client: "272", Name: "90250143 - Tomasini"},
	{Client: "300", Name: "1001 - Smith, John"},
	{Client: "300", Name: "1002 - Smith, Mary"},
	{Client: "310", Name: "2001 - Unique Defendant Corp Claim"},
	{Client: "320", Name: "3001 - Garcia 072023CA000111AXXXCE"},
}

func TestLookupCaseExactWhenMatterFolderExists(t *testing.T) {
	ix := NewIndex([]domain.RegistryRecord{
		{Client: "272", Matter: "90250143", Style: "Tomasini vs Citizens", CaseNumber: "062024CA018136AXXXCE"},
	}, sampleFolders, time.Now())

	got, ok := ix.LookupCase(" 062024ca018136axxxce ")
	if !ok {
		t.Fatalf("expected lookup hit")
	}
	if got.Confidence != domain.ConfidenceExact || got.RelativePath != "272/90250143 - Tomasini" {
		t.Fatalf("unexpected identity %+v", got)
	}
	if got.Style != "Tomasini" || got.Matter != "90250143" {
		t.Fatalf("expected folder style and registry matter, got %+v", got)
	}
}

func TestLookupCaseClientOnlyWithoutFolder(t *testing.T) {
	ix := NewIndex([]domain.RegistryRecord{
		{Client: "400", Matter: "777", Style: "Doe vs Roe", CaseNumber: "CASE-1"},
	}, sampleFolders, time.Now())

	got, ok := ix.LookupCase("CASE-1")
	if !ok || got.Confidence != domain.ConfidenceClientOnly || got.Client != "400" {
		t.Fatalf("expected client-only identity, got %+v (%v)", got, ok)
	}
	if got.Matter != "" || got.RelativePath != "" {
		t.Fatalf("client-only identity must not carry a matter path: %+v", got)
	}
}

func TestLookupCaseFallsBackToFolderScan(t *testing.T) {
	ix := NewIndex(nil, sampleFolders, time.Now())
	got, ok := ix.LookupCase("072023CA000111AXXXCE")
	if !ok || got.Confidence != domain.ConfidenceExact {
		t.Fatalf("expected folder-scan hit, got %+v", got)
	}
	if got.Client != "320" || got.Matter != "3001" || got.RelativePath != "320/3001 - Garcia 072023CA000111AXXXCE" {
		t.Fatalf("unexpected identity %+v", got)
	}
}

func TestLookupCaseFolderScanNeedsLongUniqueID(t *testing.T) {
	folders := []domain.MatterFolder{
		{Client: "300", Name: "1203 - Profile 12 LLC"},
		{Client: "301", Name: "1204 - Doe 612"},
		{Client: "302", Name: "5001 - Roe 062025CC000777"},
		{Client: "303", Name: "5002 - Roe 062025CC000777 Appeal"},
	}
	ix := NewIndex(nil, folders, time.Now())

	if got, ok := ix.LookupCase("12"); ok {
		t.Fatalf("short id must not scan folders, got %+v", got)
	}
	if got, ok := ix.LookupCase("062025CC000777"); ok {
		t.Fatalf("id found in two folders must stay unresolved, got %+v", got)
	}
}

func TestLookupCaseClaimNumberSharesKeySpace(t *testing.T) {
	ix := NewIndex([]domain.RegistryRecord{
		{Client: "272", Matter: "90250143", ClaimNo: "001-00-603213"},
	}, sampleFolders, time.Now())
	got, ok := ix.LookupCase("001-00-603213")
	if !ok || got.Confidence != domain.ConfidenceExact {
		t.Fatalf("expected claim number hit, got %+v", got)
	}
}

func TestLookupCaseMiss(t *testing.T) {
	ix := NewIndex(nil, sampleFolders, time.Now())
	if got, ok := ix.LookupCase("NOPE-123"); ok || got.Confidence != domain.ConfidenceUnresolved {
		t.Fatalf("expected miss, got %+v", got)
	}
	if _, ok := ix.LookupCase("  "); ok {
		t.Fatalf("blank id must not match")
	}
}

func TestMatchPartyRequiresUniqueFolder(t *testing.T) {
	ix := NewIndex(nil, sampleFolders, time.Now())

	if _, ok := ix.MatchParty("SMITH"); ok {
		t.Fatalf("ambiguous party must stay unresolved")
	}
	folder, ok := ix.MatchParty("unique defendant")
	if !ok || folder.Client != "310" {
		t.Fatalf("expected unique match, got %+v (%v)", folder, ok)
	}
	if _, ok := ix.MatchParty("Zz"); ok {
		t.Fatalf("names shorter than three characters must be rejected")
	}
	if _, ok := ix.MatchParty("Nobody"); ok {
		t.Fatalf("expected no match")
	}
}

func TestMatchPartyFallsBackToStyleWords(t *testing.T) {
	ix := NewIndex(nil, []domain.MatterFolder{
		{Client: "310", Name: "2001 - Unique Defendant"},
		{Client: "272", Name: "90250143 - Tomasini"},
		{Client: "400", Name: "4001 - Acme Insurance"},
		{Client: "401", Name: "4002 - Beta Insurance"},
	}, time.Now())

	folder, ok := ix.MatchParty("Unique Defendant Corp")
	if !ok || folder.Client != "310" {
		t.Fatalf("expected word match, got %+v (%v)", folder, ok)
	}
	if _, ok := ix.MatchParty("Gamma Insurance Co"); ok {
		t.Fatalf("one shared word must not pick a folder")
	}
	if _, ok := ix.MatchParty("Acme Beta Insurance"); ok {
		t.Fatalf("words spread over several folders must stay unresolved")
	}
}

func TestIndexTracksStyles(t *testing.T) {
	ix := NewIndex([]domain.RegistryRecord{{Client: "272", Style: "Tomasini vs Citizens"}}, nil, time.Now())
	if !ix.HasStyle("272", "TOMASINI  VS CITIZENS") {
		t.Fatalf("expected known style")
	}
	if ix.HasStyle("300", "Tomasini vs Citizens") {
		t.Fatalf("style is per client")
	}
	ix.AddRecord(domain.RegistryRecord{Client: "4700", Style: "Jones vs Acme"})
	if !ix.HasStyle("4700", "jones vs acme") {
		t.Fatalf("appended style must be visible")
	}
}

func TestMatchPartyMemoizesCandidates(t *testing.T) {
	ix := NewIndex(nil, sampleFolders, time.Now())
	ix.MatchParty("SMITH")
	if got := len(ix.parties["SMITH"]); got != 2 {
		t.Fatalf("expected 2 memoized candidates, got %d", got)
	}
}

func TestAddRecordIsVisibleToLookups(t *testing.T) {
	ix := NewIndex(nil, nil, time.Now())
	ix.AddRecord(domain.RegistryRecord{Client: "4694", CaseNumber: "NEW-1"})
	got, ok := ix.LookupCase("NEW-1")
	if !ok || got.Client != "4694" {
		t.Fatalf("expected appended record, got %+v", got)
	}
}

func TestIndexProviderCachesUntilTTL(t *testing.T) {
	registry := &registryFake{}
	provider := NewIndexProvider(registry, &storeFake{folders: sampleFolders}, time.Minute)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	provider.now = func() time.Time { return now }

	first, err := provider.Index(context.Background())
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	second, _ := provider.Index(context.Background())
	if first != second || registry.recordCalls != 1 {
		t.Fatalf("expected cached index, calls=%d", registry.recordCalls)
	}

	now = now.Add(2 * time.Minute)
	third, _ := provider.Index(context.Background())
	if third == first || registry.recordCalls != 2 {
		t.Fatalf("expected rebuild after ttl, calls=%d", registry.recordCalls)
	}

	provider.Invalidate()
	if _, err := provider.Index(context.Background()); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if registry.recordCalls != 3 {
		t.Fatalf("expected rebuild after invalidate, calls=%d", registry.recordCalls)
	}
}

func TestIndexProviderDegradesWhenRegistryUnavailable(t *testing.T) {
	registry := &registryFake{recordsErr: domain.WrapError(domain.ErrRegistryUnavailable, "read registry", errors.New("missing column Case No."))}
	provider := NewIndexProvider(registry, &storeFake{folders: sampleFolders}, 0)

	ix, err := provider.Index(context.Background())
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if _, ok := ix.LookupCase("072023CA000111AXXXCE"); !ok {
		t.Fatalf("folder scan must still work")
	}
}

func TestIndexProviderPropagatesIOErrors(t *testing.T) {
	provider := NewIndexProvider(&registryFake{recordsErr: errors.New("disk gone")}, &storeFake{}, 0)
	if _, err := provider.Index(context.Background()); err == nil {
		t.Fatalf("expected registry read error")
	}

	provider = NewIndexProvider(&registryFake{}, &storeFake{err: fmt.Errorf("share offline")}, 0)
	if _, err := provider.Index(context.Background()); err == nil {
		t.Fatalf("expected folder listing error")
	}
}
