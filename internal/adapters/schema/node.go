package schema

import (
	"context"

	"github.com/grindlemire/graft"
)

const (
	// DefaultsNodeID is the unique identifier for the defaults provider Graft node.
	DefaultsNodeID graft.ID = "adapter.schema_defaults"
	// ValidatorNodeID is the unique identifier for the build validator Graft node.
	ValidatorNodeID graft.ID = "adapter.schema_validator"
)

func init() {
	graft.Register(graft.Node[*Defaults]{
		ID:        DefaultsNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Defaults, error) {
			return NewDefaults(), nil
		},
	})

	graft.Register(graft.Node[*Validator]{
		ID:        ValidatorNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Validator, error) {
			return NewValidator(), nil
		},
	})
}
