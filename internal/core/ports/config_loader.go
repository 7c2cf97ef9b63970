package ports

import "go.trai.ch/kiln/internal/core/domain"

// ConfigLoader defines the interface for loading the raw, layered build configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the configuration found at or above cwd and returns its raw layers.
	Load(cwd string) (*domain.RawConfig, error)

	// DiscoverRoot walks up from cwd to find the project root.
	// Returns the directory containing kiln.yaml or package.json.
	DiscoverRoot(cwd string) (string, error)
}
