// Package render owns every on-screen chart and graph. Builders turn domain data
// into artifacts; the Adapter keeps at most one live handle per slot and draws
// them on a Surface.
package render

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Slot names a place on the surface.
type Slot string

const (
	SlotTree              Slot = "tree-graph"
	SlotVotes             Slot = "tree-votes"
	SlotStyleDistribution Slot = "style-distribution"
	SlotFeatureImportance Slot = "feature-importance"
	SlotModelPerformance  Slot = "model-performance"
	SlotProfile           Slot = "feature-profile"
	SlotMaterialUsage     Slot = "features-material-usage"
	SlotPerformance       Slot = "features-performance-activity"
	SlotLearningFocus     Slot = "features-learning-focus"
)

// Kind is the artifact encoding.
type Kind string

const (
	KindPNG     Kind = "png"
	KindMermaid Kind = "mermaid"
)

// Artifact is one rendered chart or graph.
type Artifact struct {
	Slot  Slot   `json:"slot"`
	Kind  Kind   `json:"kind"`
	Title string `json:"title"`
	Data  []byte `json:"data"`
}

// Ext returns the file extension for the artifact kind.
func (a Artifact) Ext() string {
	if a.Kind == KindMermaid {
		return "mmd"
	}
	return string(a.Kind)
}

// ContentType returns the MIME type of Data.
func (a Artifact) ContentType() string {
	if a.Kind == KindMermaid {
		return "text/plain; charset=utf-8"
	}
	return "image/png"
}

// Surface displays artifacts.
type Surface interface {
	Draw(a Artifact) error
	Erase(slot Slot) error
}

var (
	ErrSlotOccupied = errors.New("slot already holds a live chart")
	ErrNoData       = errors.New("nothing to draw")
)

// Handle is the live rendering held for one slot.
type Handle struct {
	ID       uint64
	Artifact Artifact
}

// Adapter tracks live handles so a slot is never drawn twice without the old
// rendering being destroyed first. Safe for concurrent use.
type Adapter struct {
	mu      sync.Mutex
	surface Surface
	handles map[Slot]Handle
	nextID  uint64
}

func NewAdapter(s Surface) *Adapter {
	return &Adapter{
		surface: s,
		handles: make(map[Slot]Handle),
	}
}

// Create draws a into an empty slot.
func (ad *Adapter) Create(a Artifact) (Handle, error) {
	ad.mu.Lock()
	defer ad.mu.Unlock()
	if _, ok := ad.handles[a.Slot]; ok {
		return Handle{}, fmt.Errorf("create %s: %w", a.Slot, ErrSlotOccupied)
	}
	return ad.create(a)
}

// Replace destroys whatever the slot holds, then draws a.
func (ad *Adapter) Replace(a Artifact) (Handle, error) {
	ad.mu.Lock()
	defer ad.mu.Unlock()
	if err := ad.destroy(a.Slot); err != nil {
		return Handle{}, err
	}
	return ad.create(a)
}

// Destroy erases the slot. Destroying an empty slot is a no-op.
func (ad *Adapter) Destroy(slot Slot) error {
	ad.mu.Lock()
	defer ad.mu.Unlock()
	return ad.destroy(slot)
}

// Current returns the live handle of slot.
func (ad *Adapter) Current(slot Slot) (Handle, bool) {
	ad.mu.Lock()
	defer ad.mu.Unlock()
	h, ok := ad.handles[slot]
	return h, ok
}

// Slots lists occupied slots in name order.
func (ad *Adapter) Slots() []Slot {
	ad.mu.Lock()
	defer ad.mu.Unlock()
	out := make([]Slot, 0, len(ad.handles))
	for s := range ad.handles {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Close destroys every live handle.
func (ad *Adapter) Close() error {
	ad.mu.Lock()
	defer ad.mu.Unlock()
	var errs []error
	for slot := range ad.handles {
		if err := ad.destroy(slot); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (ad *Adapter) create(a Artifact) (Handle, error) {
	if err := ad.surface.Draw(a); err != nil {
		return Handle{}, fmt.Errorf("draw %s: %w", a.Slot, err)
	}
	ad.nextID++
	h := Handle{ID: ad.nextID, Artifact: a}
	ad.handles[a.Slot] = h
	return h, nil
}

func (ad *Adapter) destroy(slot Slot) error {
	if _, ok := ad.handles[slot]; !ok {
		return nil
	}
	delete(ad.handles, slot)
	if err := ad.surface.Erase(slot); err != nil {
		return fmt.Errorf("erase %s: %w", slot, err)
	}
	return nil
}
