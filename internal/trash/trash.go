// Package trash implements reversible removal: items are moved into a
// holding directory and recorded in a history file so they can be
// restored or audited later.
package trash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	historyVersion  = 1
	historyFileName = "history.json"
)

// Entry records one recycled item.
type Entry struct {
	ID        string    `json:"id"`
	PlanID    string    `json:"plan_id,omitempty"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Size      int64     `json:"size"`
	IsDir     bool      `json:"is_dir"`
	Timestamp time.Time `json:"timestamp"`
	Restored  bool      `json:"restored,omitempty"`
}

// History is the on-disk trash ledger.
type History struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
}

// Trash is a holding area rooted at a directory.
type Trash struct {
	dir         string
	historyPath string
}

// New opens (creating if needed) the holding area at dir.
func New(dir string) (*Trash, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create trash directory: %w", err)
	}
	return &Trash{dir: dir, historyPath: filepath.Join(dir, historyFileName)}, nil
}

// Dir returns the holding area root.
func (t *Trash) Dir() string { return t.dir }

// Recycle moves path into the holding area and appends a history entry.
// The move is a rename; a failure (cross-device, locked file, missing
// permissions) leaves the item untouched and is reported to the caller.
func (t *Trash) Recycle(path, planID string) (*Entry, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}

	id := entryID(path)
	dest := filepath.Join(t.dir, id, filepath.Base(path))
	if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
		return nil, fmt.Errorf("prepare holding slot: %w", err)
	}
	if err := os.Rename(path, dest); err != nil {
		// Clean up the empty slot so failed attempts leave no debris.
		os.Remove(filepath.Dir(dest))
		return nil, err
	}

	entry := Entry{
		ID:        id,
		PlanID:    planID,
		From:      path,
		To:        dest,
		Size:      info.Size(),
		IsDir:     info.IsDir(),
		Timestamp: time.Now(),
	}
	if err := t.appendHistory(entry); err != nil {
		return &entry, fmt.Errorf("item recycled but history not recorded: %w", err)
	}
	return &entry, nil
}

// Restore moves a recycled entry back to its original location. Fails
// if something new occupies the original path.
func (t *Trash) Restore(entry Entry) error {
	if _, err := os.Lstat(entry.From); err == nil {
		return fmt.Errorf("restore target already exists: %s", entry.From)
	}
	if err := os.MkdirAll(filepath.Dir(entry.From), 0o755); err != nil {
		return fmt.Errorf("recreate parent directory: %w", err)
	}
	if err := os.Rename(entry.To, entry.From); err != nil {
		return err
	}
	os.Remove(filepath.Dir(entry.To))
	return t.markRestored(entry.ID)
}

// Entries returns the full history, newest last. A missing or malformed
// history file reads as empty.
func (t *Trash) Entries() ([]Entry, error) {
	h := t.loadHistory()
	return h.Entries, nil
}

// EntriesForPlan filters history by plan ID.
func (t *Trash) EntriesForPlan(planID string) ([]Entry, error) {
	h := t.loadHistory()
	var out []Entry
	for _, e := range h.Entries {
		if e.PlanID == planID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *Trash) loadHistory() History {
	h := History{Version: historyVersion}
	data, err := os.ReadFile(t.historyPath)
	if err != nil {
		return h
	}
	var loaded History
	if err := json.Unmarshal(data, &loaded); err != nil {
		return h
	}
	if loaded.Version == 0 {
		loaded.Version = historyVersion
	}
	return loaded
}

func (t *Trash) appendHistory(entry Entry) error {
	h := t.loadHistory()
	h.Entries = append(h.Entries, entry)
	return t.writeHistory(h)
}

func (t *Trash) markRestored(id string) error {
	h := t.loadHistory()
	for i := range h.Entries {
		if h.Entries[i].ID == id {
			h.Entries[i].Restored = true
		}
	}
	return t.writeHistory(h)
}

func (t *Trash) writeHistory(h History) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}
	tmp := t.historyPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, t.historyPath)
}

// entryID derives a unique slot name from the source path and the
// current instant, so recycling the same path twice never collides.
func entryID(path string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", path, time.Now().UnixNano())))
	return hex.EncodeToString(h[:])[:12]
}
