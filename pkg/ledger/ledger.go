package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"igsaved/pkg/logger"
)

const fileName = "downloaded.json"

// fileFormat is the persisted shape of the ledger. Downloaded maps post
// pk to the time its media and metadata were fully written.
type fileFormat struct {
	Downloaded  map[string]time.Time `json:"downloaded"`
	LastUpdated time.Time            `json:"last_updated"`
}

// Ledger is the durable record of which posts have been fully downloaded.
// It is loaded once at start and persisted atomically so a crash mid-write
// cannot corrupt it.
type Ledger struct {
	path    string
	entries map[string]time.Time
	dirty   bool
	mu      sync.RWMutex
	logger  logger.Logger
}

// Open loads the ledger from dataDir, creating the directory and starting
// empty when no ledger file exists yet.
func Open(dataDir string, log logger.Logger) (*Ledger, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	l := &Ledger{
		path:    filepath.Join(dataDir, fileName),
		entries: make(map[string]time.Time),
		logger:  log,
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info("no previous download history found")
			return l, nil
		}
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("failed to decode ledger file: %w", err)
	}
	if ff.Downloaded != nil {
		l.entries = ff.Downloaded
	}

	log.InfoWithFields("ledger loaded", map[string]interface{}{
		"known_posts": len(l.entries),
		"path":        l.path,
	})

	return l, nil
}

// Contains reports whether the post identified by pk was fully downloaded
// in a previous run or earlier in this one.
func (l *Ledger) Contains(pk string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[pk]
	return ok
}

// MarkDone records a fully downloaded post. Marking an already-present pk
// is a no-op, preserving the original timestamp.
func (l *Ledger) MarkDone(pk string, downloadedAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[pk]; ok {
		return
	}
	l.entries[pk] = downloadedAt
	l.dirty = true
}

// Len returns the number of recorded posts.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// PKs returns the recorded identifiers in sorted order.
func (l *Ledger) PKs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pks := make([]string, 0, len(l.entries))
	for pk := range l.entries {
		pks = append(pks, pk)
	}
	sort.Strings(pks)
	return pks
}

// Persist writes the full set back to disk via write-to-temp-then-rename,
// so the file stays valid JSON even across crashes. A clean ledger is not
// rewritten.
func (l *Ledger) Persist() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.dirty {
		return nil
	}

	ff := fileFormat{
		Downloaded:  l.entries,
		LastUpdated: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	tempPath := l.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary ledger file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write ledger: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync ledger file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close ledger file: %w", err)
	}

	if err := os.Rename(tempPath, l.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}

	l.dirty = false

	l.logger.DebugWithFields("ledger persisted", map[string]interface{}{
		"known_posts": len(l.entries),
	})

	return nil
}
