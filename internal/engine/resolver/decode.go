package resolver

import (
	"fmt"
	"strconv"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// buildDTO is the decoded shape of a merged build configuration, options excluded.
type buildDTO struct {
	Name   string              `yaml:"name"`
	Type   string              `yaml:"type"`
	Mode   string              `yaml:"mode"`
	Target string              `yaml:"target"`
	Paths  domain.Paths        `yaml:"paths"`
	Log    domain.LogConfig    `yaml:"log"`
	Alias  map[string]string   `yaml:"alias"`
	Source domain.SourceConfig `yaml:"source"`
	Entry  map[string]entryDTO `yaml:"entry"`
	Wait   []waitDTO           `yaml:"wait"`
	Script commandDTO          `yaml:"script"`
	VSCode map[string]any      `yaml:"vscode"`
	Debug  bool                `yaml:"debug"`
}

// entryDTO accepts either an import path or {import, dependOn}.
type entryDTO domain.EntryPoint

func (e *entryDTO) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		e.Import = value.Value
		return nil
	}
	var full struct {
		Import   string `yaml:"import"`
		DependOn string `yaml:"dependOn"`
	}
	if err := value.Decode(&full); err != nil {
		return err
	}
	*e = entryDTO{Import: full.Import, DependOn: full.DependOn}
	return nil
}

// waitDTO accepts either a build name or a full wait item.
type waitDTO struct {
	Target       string      `yaml:"target"`
	Mode         string      `yaml:"mode"`
	Timeout      durationDTO `yaml:"timeout"`
	PollInterval durationDTO `yaml:"pollInterval"`
	Path         string      `yaml:"path"`
}

func (w *waitDTO) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*w = waitDTO{Target: value.Value}
		return nil
	}
	type plain waitDTO
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*w = waitDTO(p)
	return nil
}

// durationDTO accepts milliseconds as a number or a Go duration string.
type durationDTO time.Duration

func (d *durationDTO) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	if ms, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
		*d = durationDTO(time.Duration(ms) * time.Millisecond)
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", value.Line, value.Value)
	}
	*d = durationDTO(parsed)
	return nil
}

// commandDTO accepts a single command line or an argument list.
type commandDTO []string

func (c *commandDTO) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*c = commandDTO{value.Value}
		return nil
	}
	var args []string
	if err := value.Decode(&args); err != nil {
		return err
	}
	*c = args
	return nil
}

// decodeBuild decodes a merged map, without its options, into a buildDTO.
func decodeBuild(merged map[string]any) (*buildDTO, error) {
	data, err := yaml.Marshal(merged)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrDecodeBuildFailed.Error())
	}
	var dto buildDTO
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return nil, zerr.Wrap(err, domain.ErrDecodeBuildFailed.Error())
	}
	return &dto, nil
}

func (dto *buildDTO) waitItems() []domain.WaitItem {
	if len(dto.Wait) == 0 {
		return nil
	}
	items := make([]domain.WaitItem, 0, len(dto.Wait))
	for _, w := range dto.Wait {
		item := domain.WaitItem{
			Target:       w.Target,
			Mode:         domain.WaitMode(w.Mode),
			Timeout:      time.Duration(w.Timeout),
			PollInterval: time.Duration(w.PollInterval),
			Path:         w.Path,
		}
		if item.Mode == "" {
			item.Mode = domain.WaitEvent
		}
		if item.Timeout == 0 {
			item.Timeout = domain.DefaultWaitTimeout
		}
		if item.Mode == domain.WaitPoll && item.PollInterval == 0 {
			item.PollInterval = domain.DefaultPollInterval
		}
		items = append(items, item)
	}
	return items
}

func (dto *buildDTO) entries() map[string]domain.EntryPoint {
	if len(dto.Entry) == 0 {
		return nil
	}
	out := make(map[string]domain.EntryPoint, len(dto.Entry))
	for name, e := range dto.Entry {
		out[name] = domain.EntryPoint(e)
	}
	return out
}
