package schema

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var validBuildNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// Validator implements ports.BuildValidator.
type Validator struct{}

var _ ports.BuildValidator = (*Validator)(nil)

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks a finalized Build and returns every violation joined, or nil.
func (v *Validator) Validate(build *domain.Build) error {
	var errs []error
	fail := func(field, reason string) {
		err := zerr.Wrap(errors.New(field+" "+reason), domain.ErrSchemaValidation.Error())
		errs = append(errs, zerr.With(err, "build", build.Name))
	}

	if !validBuildNameRegex.MatchString(build.Name) {
		fail("name", fmt.Sprintf("%q must match %s", build.Name, validBuildNameRegex))
	}
	if !build.Type.Valid() {
		fail("type", fmt.Sprintf("unknown build type %q", build.Type))
	}
	if !build.Mode.Valid() {
		fail("mode", fmt.Sprintf("unknown mode %q", build.Mode))
	}
	if !build.Target.Valid() {
		fail("target", fmt.Sprintf("unknown target %q", build.Target))
	}

	for field, path := range map[string]string{
		"paths.base": build.Paths.Base,
		"paths.src":  build.Paths.Src,
		"paths.dist": build.Paths.Dist,
		"paths.ctx":  build.Paths.Ctx,
		"paths.temp": build.Paths.Temp,
	} {
		if !filepath.IsAbs(path) {
			fail(field, fmt.Sprintf("%q is not absolute", path))
		}
	}

	if build.Log.Level < 0 || build.Log.Level > 5 {
		fail("log.level", fmt.Sprintf("%d is outside 0..5", build.Log.Level))
	}

	for i, w := range build.Wait {
		field := fmt.Sprintf("wait[%d]", i)
		if w.Target == "" {
			fail(field+".target", "is required")
		}
		if w.Target == build.Name {
			fail(field+".target", "a build cannot wait on itself")
		}
		if w.Mode != domain.WaitEvent && w.Mode != domain.WaitPoll {
			fail(field+".mode", fmt.Sprintf("unknown wait mode %q", w.Mode))
		}
		if w.Timeout <= 0 {
			fail(field+".timeout", "must be positive")
		}
		if w.Mode == domain.WaitPoll && w.PollInterval <= 0 {
			fail(field+".pollInterval", "must be positive")
		}
	}

	for name, entry := range build.Entry {
		if entry.Import == "" {
			fail("entry."+name+".import", "is required")
		}
	}

	if build.Type == domain.TypeScript && len(build.Script) == 0 {
		fail("script", "script builds need a command")
	}

	return errors.Join(errs...)
}
