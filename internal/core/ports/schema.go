package ports

import "go.trai.ch/kiln/internal/core/domain"

// DefaultsProvider fills missing sub-fields of a partial configuration value from the schema.
//
//go:generate mockgen -source=schema.go -destination=mocks/mock_schema.go -package=mocks
type DefaultsProvider interface {
	// ApplyDefaults returns partial completed with the defaults the schema declares
	// for the given key of the named schema. The input map is not modified.
	ApplyDefaults(partial map[string]any, schemaName, key string) map[string]any
}

// BuildValidator validates a finalized Build against its schema.
type BuildValidator interface {
	// Validate returns an error describing every violation, or nil.
	Validate(build *domain.Build) error
}
