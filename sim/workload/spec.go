// YAML scenario format: the resources to simulate and, per user, a script
// of timed reservation and job actions. Loaded by the CLI and by tests.

package workload

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/grid-sim/grid-sim/sim/grid"
)

// Scenario is the top-level scenario configuration.
type Scenario struct {
	Seed           int64          `yaml:"seed"`
	Horizon        int64          `yaml:"horizon"`
	MessageLatency int64          `yaml:"message_latency,omitempty"`
	Resources      []ResourceSpec `yaml:"resources"`
	Users          []UserSpec     `yaml:"users"`
}

// ResourceSpec describes one simulated resource.
type ResourceSpec struct {
	Name       string  `yaml:"name"`
	PE         int     `yaml:"pe"`
	MIPSPerPE  float64 `yaml:"mips_per_pe"`
	TimeZone   int64   `yaml:"time_zone,omitempty"`
	LocalLoad  float64 `yaml:"local_load,omitempty"`
	CostPerSec float64 `yaml:"cost_per_sec,omitempty"`
	Policy     string  `yaml:"policy"`
}

// UserSpec describes one simulated user and its scripted actions.
type UserSpec struct {
	Name     string       `yaml:"name"`
	TimeZone int64        `yaml:"time_zone,omitempty"`
	Actions  []ActionSpec `yaml:"actions"`
}

// ActionSpec is one timed step of a user script. Times are in the user's
// local ticks.
type ActionSpec struct {
	At       int64  `yaml:"at"`
	Op       string `yaml:"op"` // reserve | reserve-immediate | submit
	Resource string `yaml:"resource"`

	// reserve / reserve-immediate
	Start    int64 `yaml:"start,omitempty"`
	Duration int64 `yaml:"duration,omitempty"` // 0 on reserve-immediate means "as long as possible"
	PE       int   `yaml:"pe,omitempty"`
	Commit   bool  `yaml:"commit,omitempty"`
	Jobs     int   `yaml:"jobs,omitempty"` // gridlets attached on commit

	// submit, and job length sampling for reserve
	Length      float64 `yaml:"length,omitempty"`       // mean MI
	LengthStdev float64 `yaml:"length_stdev,omitempty"` // 0 = fixed length
}

const (
	OpReserve          = "reserve"
	OpReserveImmediate = "reserve-immediate"
	OpSubmit           = "submit"
)

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading scenario %s", path)
	}
	var scn Scenario
	if err := yaml.Unmarshal(data, &scn); err != nil {
		return nil, errors.Wrapf(err, "parsing scenario %s", path)
	}
	if err := scn.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid scenario %s", path)
	}
	return &scn, nil
}

// Validate checks the scenario for configuration errors the builder would
// otherwise hit halfway through.
func (scn *Scenario) Validate() error {
	if scn.Horizon <= 0 {
		return errors.New("horizon must be positive")
	}
	if len(scn.Resources) == 0 {
		return errors.New("at least one resource is required")
	}
	names := make(map[string]bool)
	for _, r := range scn.Resources {
		if r.Name == "" {
			return errors.New("resource without a name")
		}
		if names[r.Name] {
			return errors.Errorf("duplicate resource name %q", r.Name)
		}
		names[r.Name] = true
		if _, err := grid.ParsePolicyKind(r.Policy); err != nil {
			return errors.Wrapf(err, "resource %q", r.Name)
		}
	}
	userNames := make(map[string]bool)
	for _, u := range scn.Users {
		if u.Name == "" {
			return errors.New("user without a name")
		}
		if userNames[u.Name] {
			return errors.Errorf("duplicate user name %q", u.Name)
		}
		userNames[u.Name] = true
		for i, a := range u.Actions {
			switch a.Op {
			case OpReserve, OpReserveImmediate, OpSubmit:
			default:
				return errors.Errorf("user %q action %d: unknown op %q", u.Name, i, a.Op)
			}
			if !names[a.Resource] {
				return errors.Errorf("user %q action %d: unknown resource %q", u.Name, i, a.Resource)
			}
		}
	}
	return nil
}
