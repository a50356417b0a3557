// Package scenario defines the experiment inputs: team, backlog, phase
// durations, horizon and replication count. Scenarios load from YAML or TOML
// on top of Default(), so a file only needs the fields it changes.
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/workforce-sim/sim/deliverable"
	"github.com/inference-sim/workforce-sim/sim/staffing"
	"github.com/inference-sim/workforce-sim/sim/stochastic"
)

// WeeksPerMonth converts build_months into ticks.
const WeeksPerMonth = 4

// Scenario is one experiment definition.
type Scenario struct {
	Name         string       `yaml:"name" toml:"name"`
	Seed         int64        `yaml:"seed" toml:"seed"`
	Horizon      int64        `yaml:"horizon" toml:"horizon"`
	Replications int          `yaml:"replications" toml:"replications"`
	Staffing     StaffingSpec `yaml:"staffing" toml:"staffing"`
	Backlog      Backlog      `yaml:"backlog" toml:"backlog"`
	Phases       PhaseSpec    `yaml:"phases" toml:"phases"`
}

// StaffingSpec describes the team and its hire/quit rates.
type StaffingSpec struct {
	TargetHeadcount int                `yaml:"target_headcount" toml:"target_headcount"`
	StartHeadcount  int                `yaml:"start_headcount" toml:"start_headcount"`
	Hiring          stochastic.Trigger `yaml:"hiring" toml:"hiring"`
	Quitting        stochastic.Trigger `yaml:"quitting" toml:"quitting"`
}

// Backlog lists the deliverables. Names shorter than Count are padded with
// generated "model-NN" names.
type Backlog struct {
	Count int      `yaml:"count" toml:"count"`
	Names []string `yaml:"names,omitempty" toml:"names,omitempty"`
}

// PhaseSpec holds the phase durations in ticks. BuildMonths, when set,
// replaces Build and Rebuild with the same range converted at four ticks per
// month. A nil BuildWindow means [0, horizon].
type PhaseSpec struct {
	BuildWindow     *deliverable.Window `yaml:"build_window,omitempty" toml:"build_window,omitempty"`
	Build           stochastic.Range    `yaml:"build" toml:"build"`
	BuildMonths     *stochastic.Range   `yaml:"build_months,omitempty" toml:"build_months,omitempty"`
	Monitor         stochastic.Range    `yaml:"monitor" toml:"monitor"`
	Rebuild         stochastic.Range    `yaml:"rebuild" toml:"rebuild"`
	RebuildQuarters stochastic.Range    `yaml:"rebuild_quarters" toml:"rebuild_quarters"`
}

// Default returns the modeling team the simulation was built around: a team of
// ten that starts with four, finds a hire every 20±8 weeks, loses someone every
// 40±8 weeks, and owns fifteen models over a thousand weeks.
func Default() Scenario {
	const horizon = 1000
	d := deliverable.DefaultConfig(horizon)
	return Scenario{
		Name:         "modeling-team",
		Seed:         42,
		Horizon:      horizon,
		Replications: 1000,
		Staffing: StaffingSpec{
			TargetHeadcount: 10,
			StartHeadcount:  4,
			Hiring:          stochastic.Trigger{Name: "hiring", Mean: 20, StdDev: 8},
			Quitting:        stochastic.Trigger{Name: "quitting", Mean: 40, StdDev: 8},
		},
		Backlog: Backlog{Count: 15},
		Phases: PhaseSpec{
			Build:           d.Build,
			Monitor:         d.Monitor,
			Rebuild:         d.Rebuild,
			RebuildQuarters: d.RebuildQuarters,
		},
	}
}

// Load reads a scenario file over Default(). The format is chosen by
// extension: .yaml/.yml or .toml. Unknown keys are rejected in both.
func Load(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("reading scenario: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".toml":
		return ParseTOML(data)
	default:
		return Scenario{}, fmt.Errorf("scenario %s: unsupported extension %q; use .yaml, .yml or .toml", path, filepath.Ext(path))
	}
}

// ParseYAML decodes a YAML scenario over Default() with strict field checking.
func ParseYAML(data []byte) (Scenario, error) {
	sc := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return Scenario{}, fmt.Errorf("parsing scenario YAML: %w", err)
	}
	return sc, nil
}

// ParseTOML decodes a TOML scenario over Default() and rejects undecoded keys.
func ParseTOML(data []byte) (Scenario, error) {
	sc := Default()
	md, err := toml.Decode(string(data), &sc)
	if err != nil {
		return Scenario{}, fmt.Errorf("parsing scenario TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Scenario{}, fmt.Errorf("parsing scenario TOML: unknown keys %s", strings.Join(keys, ", "))
	}
	return sc, nil
}

// Validate collects every problem in the scenario.
func (sc Scenario) Validate() error {
	var result *multierror.Error
	if sc.Horizon <= 0 {
		result = multierror.Append(result, fmt.Errorf("horizon must be positive, got %d", sc.Horizon))
	}
	if sc.Replications <= 0 {
		result = multierror.Append(result, fmt.Errorf("replications must be positive, got %d", sc.Replications))
	}
	if err := sc.StaffingConfig().Validate(); err != nil {
		result = multierror.Append(result, fmt.Errorf("staffing: %w", err))
	}
	if sc.Backlog.Count < 0 {
		result = multierror.Append(result, fmt.Errorf("backlog: count must be non-negative, got %d", sc.Backlog.Count))
	}
	if sc.Backlog.Count > 0 && len(sc.Backlog.Names) > sc.Backlog.Count {
		result = multierror.Append(result, fmt.Errorf("backlog: %d names exceed count %d", len(sc.Backlog.Names), sc.Backlog.Count))
	}
	seen := make(map[string]bool)
	for _, name := range sc.BacklogNames() {
		if seen[name] {
			result = multierror.Append(result, fmt.Errorf("backlog: duplicate deliverable %q", name))
		}
		seen[name] = true
	}
	if m := sc.Phases.BuildMonths; m != nil && (m.Min <= 0 || m.Max < m.Min) {
		result = multierror.Append(result, fmt.Errorf("phases: build_months [%d, %d] is invalid", m.Min, m.Max))
	}
	if err := sc.DeliverableConfig().Validate(); err != nil {
		result = multierror.Append(result, fmt.Errorf("phases: %w", err))
	}
	return result.ErrorOrNil()
}

// BacklogNames returns the deliverable names, padded to Count.
func (sc Scenario) BacklogNames() []string {
	names := append([]string(nil), sc.Backlog.Names...)
	for i := len(names); i < sc.Backlog.Count; i++ {
		names = append(names, fmt.Sprintf("model-%02d", i+1))
	}
	return names
}

// StaffingConfig maps the scenario onto the staffing controller's config.
func (sc Scenario) StaffingConfig() staffing.Config {
	return staffing.Config{
		Target: sc.Staffing.TargetHeadcount,
		Start:  sc.Staffing.StartHeadcount,
		Hire:   sc.Staffing.Hiring,
		Quit:   sc.Staffing.Quitting,
	}
}

// DeliverableConfig maps the scenario onto the lifecycle config, resolving
// the build window and build_months.
func (sc Scenario) DeliverableConfig() deliverable.Config {
	cfg := deliverable.Config{
		BuildWindow:     deliverable.Window{Start: 0, Deadline: sc.Horizon},
		Build:           sc.Phases.Build,
		Monitor:         sc.Phases.Monitor,
		Rebuild:         sc.Phases.Rebuild,
		RebuildQuarters: sc.Phases.RebuildQuarters,
	}
	if sc.Phases.BuildWindow != nil {
		cfg.BuildWindow = *sc.Phases.BuildWindow
	}
	if m := sc.Phases.BuildMonths; m != nil {
		weeks := stochastic.Range{Min: m.Min * WeeksPerMonth, Max: m.Max * WeeksPerMonth}
		cfg.Build = weeks
		cfg.Rebuild = weeks
	}
	return cfg
}
