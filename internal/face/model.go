package face

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
)

// ManifestFile is the face-api.js weights manifest of the recognition net.
const ManifestFile = "face_recognition_model-weights_manifest.json"

// DefaultDescriptorLength is used when the manifest carries no "fc" layer.
const DefaultDescriptorLength = 128

var (
	ErrModelUnavailable  = errors.New("face model unavailable")
	ErrInvalidDescriptor = errors.New("invalid face descriptor")
)

type manifestGroup struct {
	Weights []struct {
		Name  string `json:"name"`
		Shape []int  `json:"shape"`
	} `json:"weights"`
	Paths []string `json:"paths"`
}

// Model is the process-wide handle on the recognition model files. It is loaded on
// first use; a successful load is kept for the life of the process, a failed one is retried
// by the next caller.
type Model struct {
	dir string

	mu            sync.Mutex
	loaded        bool
	descriptorLen int
	loads         int
}

func NewModel(dir string) *Model {
	return &Model{dir: dir}
}

// Dir is the directory holding the model files.
func (m *Model) Dir() string { return m.dir }

// EnsureLoaded loads the manifest once. Concurrent callers block on the same load.
func (m *Model) EnsureLoaded(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.loads++
	n, err := readManifest(m.dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	m.descriptorLen = n
	m.loaded = true
	return nil
}

// DescriptorLength is the length of descriptors produced by the model, 0 before loading.
func (m *Model) DescriptorLength() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.descriptorLen
}

// Validate checks a non-empty descriptor against the loaded model.
func (m *Model) Validate(descriptor []float64) error {
	want := m.DescriptorLength()
	if want == 0 {
		return ErrModelUnavailable
	}
	if len(descriptor) != want {
		return fmt.Errorf("%w: expected %d values, got %d", ErrInvalidDescriptor, want, len(descriptor))
	}
	for _, v := range descriptor {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value", ErrInvalidDescriptor)
		}
	}
	return nil
}

func readManifest(dir string) (int, error) {
	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return 0, err
	}
	var groups []manifestGroup
	if err := json.Unmarshal(raw, &groups); err != nil {
		return 0, fmt.Errorf("decode manifest: %w", err)
	}
	length := DefaultDescriptorLength
	for _, g := range groups {
		for _, p := range g.Paths {
			if _, err := os.Stat(filepath.Join(dir, p)); err != nil {
				return 0, fmt.Errorf("weights shard %s: %w", p, err)
			}
		}
		for _, w := range g.Weights {
			if w.Name == "fc" && len(w.Shape) == 2 {
				length = w.Shape[1]
			}
		}
	}
	return length, nil
}
