package resolver

import (
	"regexp"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
)

// typePatterns guess a build type from its name, first match wins.
// Kept for configurations written before types were explicit.
var typePatterns = []struct {
	pattern *regexp.Regexp
	typ     domain.BuildType
}{
	{regexp.MustCompile(`web(worker|app|view)`), domain.TypeWebapp},
	{regexp.MustCompile(`tests?`), domain.TypeTests},
	{regexp.MustCompile(`typ(es|ings)`), domain.TypeTypes},
	{regexp.MustCompile(`jsdoc`), domain.TypeJsdoc},
	{regexp.MustCompile(`script`), domain.TypeScript},
}

var webworkerPattern = regexp.MustCompile(`webworker`)

func inferType(name string, override domain.BuildType) domain.BuildType {
	if override != "" {
		return override
	}
	lower := strings.ToLower(name)
	for _, p := range typePatterns {
		if p.pattern.MatchString(lower) {
			return p.typ
		}
	}
	return domain.TypeApp
}

func inferTarget(name string, typ domain.BuildType, override domain.Target) domain.Target {
	if override != "" {
		return override
	}
	if webworkerPattern.MatchString(strings.ToLower(name)) {
		return domain.TargetWebworker
	}
	if typ == domain.TypeWebapp {
		return domain.TargetWeb
	}
	return domain.TargetNode
}
