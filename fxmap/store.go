package fxmap

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store is a persistent set of named bijective maps, keyed by FX name.
type Store struct {
	mu   sync.Mutex
	path string
	log  *slog.Logger
	fx   map[string]*Map
}

// NewStore returns an empty store bound to path. Use Load to populate
// it from disk.
func NewStore(path string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		path: path,
		log:  log,
		fx:   make(map[string]*Map),
	}
}

// Load reads path and returns a populated Store. A missing file, or a
// file containing an empty document, yields an empty store.
func Load(path string, log *slog.Logger) (*Store, error) {
	s := NewStore(path, log)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("fxmap: reading %s: %w", path, err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("fxmap: parsing %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return s, nil
	}
	root := doc.Content[0]
	if root.Kind == 0 {
		return s, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("fxmap: %s: top-level document must be a mapping", path)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		fxNameNode := root.Content[i]
		fxMapNode := root.Content[i+1]

		fxName := fxNameNode.Value
		if fxMapNode.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("fxmap: fx %q: expected a mapping of source to target", fxName)
		}

		pairs := make(map[int]int, len(fxMapNode.Content)/2)
		seenSources := make(map[int]bool, len(fxMapNode.Content)/2)
		for j := 0; j+1 < len(fxMapNode.Content); j += 2 {
			sourceNode := fxMapNode.Content[j]
			targetNode := fxMapNode.Content[j+1]

			source, err := strconv.Atoi(sourceNode.Value)
			if err != nil {
				return nil, fmt.Errorf("fxmap: fx %q: source %q is not an integer", fxName, sourceNode.Value)
			}
			target, err := strconv.Atoi(targetNode.Value)
			if err != nil {
				return nil, fmt.Errorf("fxmap: fx %q: target %q is not an integer", fxName, targetNode.Value)
			}
			if seenSources[source] {
				return nil, fmt.Errorf("fxmap: fx %q: duplicate source key %d", fxName, source)
			}
			seenSources[source] = true
			pairs[source] = target
		}

		m, err := fromPairs(fxName, pairs)
		if err != nil {
			return nil, err
		}
		s.fx[fxName] = m
	}

	return s, nil
}

// GetOrCreate returns the Map for fxName, creating a fresh empty one
// on first access.
func (s *Store) GetOrCreate(fxName string) *Map {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.fx[fxName]
	if !ok {
		m = NewMap()
		s.fx[fxName] = m
	}
	return m
}

// Save writes the store to its path atomically (write-temp + rename).
func (s *Store) Save() error {
	s.mu.Lock()
	snapshot := make(map[string][]Pair, len(s.fx))
	for name, m := range s.fx {
		snapshot[name] = m.Pairs()
	}
	path := s.path
	s.mu.Unlock()

	out := make(map[string]map[int]int, len(snapshot))
	for name, pairs := range snapshot {
		entry := make(map[int]int, len(pairs))
		for _, p := range pairs {
			entry[p.Source] = p.Target
		}
		out[name] = entry
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("fxmap: marshaling store: %w", err)
	}

	if err := writeFileAtomic(path, data); err != nil {
		s.log.Error("failed to persist fx map store", slog.String("path", path), slog.Any("err", err))
		return err
	}
	s.log.Info("persisted fx map store", slog.String("path", path), slog.Int("fx_count", len(out)))
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("fxmap: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed away

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("fxmap: writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fxmap: syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fxmap: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("fxmap: renaming temp file into place: %w", err)
	}
	return nil
}

// DefaultPath returns the well-known FX map store path under the
// user's home directory, matching spec's ~/.oscremap_fxmaps.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("fxmap: resolving home directory: %w", err)
	}
	return filepath.Join(home, ".oscremap_fxmaps.yaml"), nil
}
