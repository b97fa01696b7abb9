// Package checkpoint implements a directory-scoped, filesystem-backed
// checkpoint store. Checkpoint ids are sha256-derived (entity id, stage,
// save time and payload), grounded on the same hashing discipline the teacher repo uses
// for chunk content hashes; durability relies on the filesystem rename
// being the commit, the same "write temp, rename into place" contract the
// teacher's SQLite file already depends on for crash safety.
package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/brunobiangulo/knowgraph/errs"
)

// schemaVersion is bumped whenever the on-disk envelope shape changes.
const schemaVersion = 1

// Checkpoint is a persisted snapshot of pipeline progress for one
// (entity_id, stage) pair.
type Checkpoint struct {
	SchemaVersion int            `json:"schema_version"`
	ID            string         `json:"id"`
	EntityID      string         `json:"entity_id"`
	Stage         string         `json:"stage"`
	Timestamp     time.Time      `json:"timestamp"`
	Data          map[string]any `json:"data"`
}

// Store is a directory-scoped checkpoint store.
type Store struct {
	dir string
}

// New returns a Store rooted at dir, creating dir if it does not exist.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.New(errs.KindCheckpoint, "create checkpoint directory", err)
	}
	return &Store{dir: dir}, nil
}

// contentID derives a checkpoint id from a sha256 over the entity id,
// stage, current time and payload, so repeated saves of identical data
// get distinct ids.
func contentID(entityID, stage string, data map[string]any) (string, error) {
	buf, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(append([]byte(entityID+"|"+stage+"|"+time.Now().Format(time.RFC3339Nano)+"|"), buf...))
	return hex.EncodeToString(h[:])[:16], nil
}

// fileName encodes {entity_id, stage, id} so listing/filtering stays
// path-only, per spec.md §3.
func fileName(entityID, stage, id string) string {
	return fmt.Sprintf("%s_%s_%s.json", sanitize(entityID), sanitize(stage), id)
}

// sanitize strips path separators from identifiers so they are safe path
// components.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, string(filepath.Separator), "-")
	return s
}

// Save writes a new checkpoint for (entityID, stage) and returns it. The
// write is atomic: the payload is written to a uniquely named temp file and
// renamed into place.
func (s *Store) Save(entityID, stage string, data map[string]any) (*Checkpoint, error) {
	id, err := contentID(entityID, stage, data)
	if err != nil {
		return nil, errs.New(errs.KindCheckpoint, "hash checkpoint payload", err)
	}

	cp := &Checkpoint{
		SchemaVersion: schemaVersion,
		ID:            id,
		EntityID:      entityID,
		Stage:         stage,
		Timestamp:     time.Now().UTC(),
		Data:          data,
	}

	buf, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return nil, errs.New(errs.KindCheckpoint, "marshal checkpoint", err)
	}

	finalPath := filepath.Join(s.dir, fileName(entityID, stage, id))
	tmpPath := finalPath + fmt.Sprintf(".tmp-%d", time.Now().UnixNano())

	if err := os.WriteFile(tmpPath, buf, 0o644); err != nil {
		return nil, errs.New(errs.KindCheckpoint, "write checkpoint temp file", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return nil, errs.New(errs.KindCheckpoint, "rename checkpoint into place", err)
	}

	return cp, nil
}

// Load reads the checkpoint identified by (entityID, stage, id).
func (s *Store) Load(entityID, stage, id string) (*Checkpoint, error) {
	path := filepath.Join(s.dir, fileName(entityID, stage, id))
	return s.loadPath(path)
}

func (s *Store) loadPath(path string) (*Checkpoint, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.KindCheckpoint, "read checkpoint", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(buf, &cp); err != nil {
		return nil, errs.New(errs.KindCheckpoint, "decode checkpoint", err)
	}
	return &cp, nil
}

// List returns checkpoints, optionally filtered by entityID and/or stage
// (empty string means "any"). Filtering reads the decoded (entity_id,
// stage) fields rather than re-deriving them from the file name: fileName
// joins {entity_id}_{stage}_{id} with "_", and either component may itself
// contain "_" (e.g. the "<stage>_completed" stage Task writes),
// making that split ambiguous.
func (s *Store) List(entityID, stage string) ([]*Checkpoint, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errs.New(errs.KindCheckpoint, "list checkpoint directory", err)
	}

	var out []*Checkpoint
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		cp, err := s.loadPath(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		if entityID != "" && cp.EntityID != entityID {
			continue
		}
		if stage != "" && cp.Stage != stage {
			continue
		}
		out = append(out, cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Latest returns the newest-by-timestamp checkpoint for (entityID, stage),
// or nil if none exist.
func (s *Store) Latest(entityID, stage string) (*Checkpoint, error) {
	all, err := s.List(entityID, stage)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[len(all)-1], nil
}

// Delete removes the checkpoint identified by (entityID, stage, id).
func (s *Store) Delete(entityID, stage, id string) error {
	path := filepath.Join(s.dir, fileName(entityID, stage, id))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errs.New(errs.KindCheckpoint, "delete checkpoint", err)
	}
	return nil
}

// CleanOld removes every checkpoint older than maxAge.
func (s *Store) CleanOld(maxAge time.Duration) error {
	all, err := s.List("", "")
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-maxAge)
	for _, cp := range all {
		if cp.Timestamp.Before(cutoff) {
			if err := s.Delete(cp.EntityID, cp.Stage, cp.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// CleanSuccessful deletes every checkpoint for entityID except those whose
// stage equals finalStage (spec.md §4.4).
func (s *Store) CleanSuccessful(entityID, finalStage string) error {
	all, err := s.List(entityID, "")
	if err != nil {
		return err
	}
	for _, cp := range all {
		if cp.Stage == finalStage {
			continue
		}
		if err := s.Delete(cp.EntityID, cp.Stage, cp.ID); err != nil {
			return err
		}
	}
	return nil
}
