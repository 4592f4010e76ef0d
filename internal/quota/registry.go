// Package quota implements the process-wide quota-halt registry:
// a small JSON file mapping platform -> release-at epoch
// seconds, written atomically via temp-file-rename so a crash mid-write
// never leaves a torn file behind.
package quota

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/techappsUT/social-queue/internal/platformtypes"
)

// Registry reads and writes the quota-halt file. Every public method
// reloads from disk first, so a second process (or a restarted one) always
// observes the latest halts ("QuotaRegistry is a process-wide
// file-backed state; every read reloads from disk").
//
// The orchestrator is the sole writer; Registry itself does
// not serialize concurrent writers beyond what atomic rename buys it.
type Registry struct {
	path string
}

// NewRegistry returns a Registry backed by the file at path. The file is
// created lazily on first write; a missing file reads as "no halts".
func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

// Load returns the full platform -> release_at map, tolerating a missing
// file as empty.
func (r *Registry) Load() (map[platformtypes.Platform]time.Time, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return map[platformtypes.Platform]time.Time{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return map[platformtypes.Platform]time.Time{}, nil
	}

	raw := map[string]int64{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(map[platformtypes.Platform]time.Time, len(raw))
	for platform, epoch := range raw {
		out[platformtypes.Platform(platform)] = time.Unix(epoch, 0).UTC()
	}
	return out, nil
}

// store persists current atomically: write to a sibling temp file, then
// rename over the destination.
func (r *Registry) store(current map[platformtypes.Platform]time.Time) error {
	raw := make(map[string]int64, len(current))
	for platform, t := range current {
		raw[string(platform)] = t.Unix()
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// StoreQuota records that platform is halted until releaseAt.
func (r *Registry) StoreQuota(platform platformtypes.Platform, releaseAt time.Time) error {
	current, err := r.Load()
	if err != nil {
		return err
	}
	current[platform] = releaseAt
	return r.store(current)
}

// RemoveQuota clears any halt recorded for platform. A no-op if none exists.
func (r *Registry) RemoveQuota(platform platformtypes.Platform) error {
	current, err := r.Load()
	if err != nil {
		return err
	}
	if _, ok := current[platform]; !ok {
		return nil
	}
	delete(current, platform)
	return r.store(current)
}

// HasQuotaHalt reports whether platform is currently halted. A halt whose
// release time has passed is treated as expired and removed as a side
// effect ("halted{t} -> ready when the next invocation of
// HasQuotaHalt observes now() >= t; QuotaRegistry entry is removed").
func (r *Registry) HasQuotaHalt(platform platformtypes.Platform) (bool, error) {
	current, err := r.Load()
	if err != nil {
		return false, err
	}
	releaseAt, ok := current[platform]
	if !ok {
		return false, nil
	}
	if time.Now().Before(releaseAt) {
		return true, nil
	}
	delete(current, platform)
	if err := r.store(current); err != nil {
		return false, err
	}
	return false, nil
}
