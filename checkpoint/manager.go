// Package checkpoint persists and restores full training state so a
// run can resume after interruption without replaying traversals.
package checkpoint

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"holdemcfr/cfr"
)

const (
	stateVersion = 1
	fileExt      = ".ckpt"
)

var stateMagic = []byte("HCCKP")

var (
	// ErrNoCheckpoint means the directory holds no checkpoint at all;
	// the caller starts a fresh run.
	ErrNoCheckpoint = errors.New("no checkpoint found")
	// ErrAllCorrupt means checkpoints exist but none verified. This is
	// fatal: silently restarting from scratch would discard a run the
	// operator believes exists.
	ErrAllCorrupt = errors.New("all checkpoints failed verification")
)

// TrainingState is everything needed to resume: the sample
// reservoirs, the per-player snapshot arenas, the live network
// parameters and the identity of the abstraction the samples were
// encoded with.
type TrainingState struct {
	RunID         string
	Iteration     int
	TableDigest   string
	Reservoirs    []*cfr.Reservoir
	ArenaRecords  [][]cfr.SnapshotRecord
	CurrentParams []cfr.Predictor
}

// Manager writes rotated checkpoint generations into one directory.
// Writes are atomic (tmp file, fsync, rename) and verified by reading
// the artifact back before older generations are pruned, so the
// newest verified checkpoint is never lost to a partial write.
type Manager struct {
	dir  string
	keep int
}

func NewManager(dir string, keep int) (*Manager, error) {
	if keep <= 0 {
		keep = 5
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &Manager{dir: dir, keep: keep}, nil
}

func (m *Manager) path(iteration int) string {
	return filepath.Join(m.dir, fmt.Sprintf("state-%010d%s", iteration, fileExt))
}

// Save persists the state as a new generation and prunes old ones.
func (m *Manager) Save(state *TrainingState) error {
	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(state); err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	sum := sha256.Sum256(body.Bytes())

	final := m.path(state.Iteration)
	tmp := final + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	_, err = f.Write(stateMagic)
	if err == nil {
		_, err = f.Write([]byte{stateVersion})
	}
	if err == nil {
		_, err = f.Write(sum[:])
	}
	if err == nil {
		_, err = f.Write(body.Bytes())
	}
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return err
	}

	// Read-back verification before anything older is deleted.
	if _, err := readState(final); err != nil {
		return fmt.Errorf("verify %s: %w", final, err)
	}
	m.prune()
	return nil
}

// prune removes generations beyond the retention count, oldest first.
func (m *Manager) prune() {
	files := m.generations()
	for len(files) > m.keep {
		os.Remove(filepath.Join(m.dir, files[0]))
		files = files[1:]
	}
}

// generations lists checkpoint files sorted oldest first. The zero
// padded iteration in the name makes lexical order chronological.
func (m *Manager) generations() []string {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == fileExt {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// Load restores the newest verifiable generation. Corrupt generations
// are skipped with a fallback to the next older one.
func (m *Manager) Load() (*TrainingState, error) {
	files := m.generations()
	if len(files) == 0 {
		return nil, ErrNoCheckpoint
	}

	var lastErr error
	for i := len(files) - 1; i >= 0; i-- {
		state, err := readState(filepath.Join(m.dir, files[i]))
		if err == nil {
			return state, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: last error: %v", ErrAllCorrupt, lastErr)
}

func readState(path string) (*TrainingState, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	header := len(stateMagic) + 1 + sha256.Size
	if len(raw) < header || !bytes.Equal(raw[:len(stateMagic)], stateMagic) {
		return nil, fmt.Errorf("%s: not a checkpoint", path)
	}
	if v := raw[len(stateMagic)]; v != stateVersion {
		return nil, fmt.Errorf("%s: checkpoint version %d, want %d", path, v, stateVersion)
	}
	stored := raw[len(stateMagic)+1 : header]
	body := raw[header:]
	if sum := sha256.Sum256(body); !bytes.Equal(stored, sum[:]) {
		return nil, fmt.Errorf("%s: checksum mismatch", path)
	}

	var state TrainingState
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(&state); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &state, nil
}
