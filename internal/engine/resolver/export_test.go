package resolver

// Exported for testing.
var (
	NormalizeOption = normalizeOption
	InferType       = inferType
	InferTarget     = inferTarget
	DeepMerge       = deepMerge
	RequireFields   = requireFields
)
