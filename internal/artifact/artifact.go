// Package artifact persists stage outputs as immutable timestamped JSON
// files, one per pipeline stage invocation.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/menufest/menufest/internal/schema"
)

const timestampLayout = "20060102_150405"

// SelectorArtifact is the selector stage output as written to disk.
type SelectorArtifact struct {
	schema.SelectorResult
	GeneratedAt string `json:"generated_at"`
}

// PlannerArtifact is the planner stage envelope as written to disk. It is
// persisted on failure too, with Error and RawResponse filled in.
type PlannerArtifact struct {
	schema.PlannerResponse
	GeneratedAt string `json:"generated_at"`
}

// Store writes and reads artifacts under a single directory.
type Store struct {
	Dir string
}

// New ensures the artifact directory exists.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = "artifacts"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Store{Dir: dir}, nil
}

// SaveSelector persists a selector result and returns the file path.
func (s *Store) SaveSelector(res schema.SelectorResult) (string, error) {
	now := time.Now()
	art := SelectorArtifact{SelectorResult: res, GeneratedAt: now.Format(time.RFC3339)}
	return s.write("selector_output", now, art)
}

// SavePlanner persists a planner envelope, successful or not, and returns
// the file path.
func (s *Store) SavePlanner(resp schema.PlannerResponse) (string, error) {
	now := time.Now()
	art := PlannerArtifact{PlannerResponse: resp, GeneratedAt: now.Format(time.RFC3339)}
	return s.write("planner_output", now, art)
}

// LoadSelector reads a previously saved selector artifact for replay.
func (s *Store) LoadSelector(path string) (schema.SelectorResult, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.Dir, path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return schema.SelectorResult{}, fmt.Errorf("read selector artifact: %w", err)
	}
	var art SelectorArtifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return schema.SelectorResult{}, fmt.Errorf("parse selector artifact %s: %w", path, err)
	}
	if art.DailyMeals == nil {
		art.DailyMeals = []schema.DayMeal{}
	}
	return art.SelectorResult, nil
}

// write creates a new timestamped file, never overwriting an earlier
// artifact. Same-second collisions get a numeric suffix.
func (s *Store) write(prefix string, now time.Time, v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s artifact: %w", prefix, err)
	}
	base := fmt.Sprintf("%s_%s", prefix, now.Format(timestampLayout))
	for i := 0; ; i++ {
		name := base + ".json"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.json", base, i)
		}
		path := filepath.Join(s.Dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s artifact: %w", prefix, err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("write %s artifact: %w", prefix, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close %s artifact: %w", prefix, err)
		}
		return path, nil
	}
}
