package cas

import (
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

// Opener opens build stage caches that share one snapshotter and observer.
type Opener struct {
	snapshotter ports.Snapshotter
	observer    ports.StageObserver
}

// NewOpener creates a new Opener.
func NewOpener(snapshotter ports.Snapshotter) *Opener {
	return &Opener{snapshotter: snapshotter}
}

// WithObserver makes every cache opened afterwards record statistics on obs.
func (o *Opener) WithObserver(obs ports.StageObserver) *Opener {
	return &Opener{snapshotter: o.snapshotter, observer: obs}
}

// Open opens the cache of a build stage below dir.
func (o *Opener) Open(dir string, build *domain.Build, stage string, reporter Reporter) (*Cache, error) {
	c, err := Open(dir, build.Name, build.Mode, stage, o.snapshotter, reporter)
	if err != nil {
		return nil, err
	}
	if o.observer != nil {
		c.WithObserver(o.observer)
	}
	return c, nil
}
