package cas

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/kiln/internal/adapters/fs"
)

// NodeID is the unique identifier for the cache opener Graft node.
const NodeID graft.ID = "adapter.cache_opener"

func init() {
	graft.Register(graft.Node[*Opener]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.SnapshotterNodeID},
		Run: func(ctx context.Context) (*Opener, error) {
			snapshotter, err := graft.Dep[*fs.Snapshotter](ctx)
			if err != nil {
				return nil, err
			}
			return NewOpener(snapshotter), nil
		},
	})
}
