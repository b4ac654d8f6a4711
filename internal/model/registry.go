package model

import (
	"fmt"
	"sync/atomic"

	"github.com/transitmate/backend/internal/feature"
)

// Registry is the single current-artifact slot shared between scoring (read
// path) and retraining (write path). Replacement is one atomic pointer swap of
// an immutable value, so concurrent readers always observe either the old or
// the new artifact in full and a retrain never blocks scoring.
type Registry struct {
	slot atomic.Pointer[Artifact]
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Active returns the current artifact, or nil when none has been activated.
func (r *Registry) Active() *Artifact {
	return r.slot.Load()
}

// Activate installs the artifact after a shape check. The previous artifact is
// simply unreferenced, not destroyed; durable retention belongs to the store.
func (r *Registry) Activate(a *Artifact) error {
	if a == nil {
		return fmt.Errorf("cannot activate nil artifact")
	}
	if a.Meta.FeatureLength != feature.VectorLen {
		return fmt.Errorf("refusing artifact v%d with feature length %d, want %d",
			a.Meta.Version, a.Meta.FeatureLength, feature.VectorLen)
	}
	r.slot.Store(a)
	return nil
}
