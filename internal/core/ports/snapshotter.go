package ports

import "go.trai.ch/kiln/internal/core/domain"

// Snapshotter records and checks file dependency fingerprints.
//
//go:generate mockgen -source=snapshotter.go -destination=mocks/mock_snapshotter.go -package=mocks
type Snapshotter interface {
	// Capture fingerprints the given paths as they are now.
	Capture(paths []string) (domain.Snapshot, error)

	// Validate reports whether every path recorded in the snapshot is unchanged.
	Validate(snapshot domain.Snapshot) (bool, error)
}
