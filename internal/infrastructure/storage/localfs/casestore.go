package localfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
)

// Folders the filing ladder creates itself; they are never matters.
var reservedFolders = map[string]bool{
	"UNSORTED": true,
	"UNKNOWN":  true,
}

// CaseStore is the client/matter tree on a mounted share:
// <root>/<client>/<matter folder>/<subfolder>/<file>.
type CaseStore struct {
	root string
}

func NewCaseStore(root string) (*CaseStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open case store", errors.New("root path is empty"))
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create case store root: %w", err)
	}
	return &CaseStore{root: root}, nil
}

// ListMatterFolders returns (client, folder) pairs sorted by client and then
// folder name so resolution is deterministic across runs.
func (s *CaseStore) ListMatterFolders(_ context.Context) ([]domain.MatterFolder, error) {
	clients, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read case store root: %w", err)
	}

	var folders []domain.MatterFolder
	for _, client := range visibleDirs(clients) {
		matters, err := os.ReadDir(filepath.Join(s.root, client))
		if err != nil {
			return nil, fmt.Errorf("read client folder %s: %w", client, err)
		}
		for _, matter := range visibleDirs(matters) {
			folders = append(folders, domain.MatterFolder{Client: client, Name: matter})
		}
	}
	return folders, nil
}

// Write stores data at dir/filename. Identical content already in place is
// reported as a duplicate; different content is replaced.
func (s *CaseStore) Write(_ context.Context, dir, filename string, data []byte) (domain.StoredFile, error) {
	rel := strings.Trim(dir, "/") + "/" + filename
	target, err := resolveUnder(s.root, rel)
	if err != nil {
		return domain.StoredFile{}, err
	}

	existing, err := os.ReadFile(target)
	switch {
	case err == nil && bytes.Equal(existing, data):
		return domain.StoredFile{Path: rel, Duplicate: true}, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return domain.StoredFile{}, fmt.Errorf("read existing file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return domain.StoredFile{}, fmt.Errorf("create target dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".filing-*")
	if err != nil {
		return domain.StoredFile{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return domain.StoredFile{}, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return domain.StoredFile{}, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return domain.StoredFile{}, fmt.Errorf("move file into place: %w", err)
	}
	return domain.StoredFile{Path: rel}, nil
}

func visibleDirs(entries []os.DirEntry) []string {
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, ".") || reservedFolders[strings.ToUpper(name)] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
