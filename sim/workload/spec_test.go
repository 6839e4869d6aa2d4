package workload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validScenario() *Scenario {
	return &Scenario{
		Seed:    42,
		Horizon: 1000,
		Resources: []ResourceSpec{
			{Name: "cluster-a", PE: 4, MIPSPerPE: 100, Policy: "advance-reservation"},
		},
		Users: []UserSpec{
			{Name: "alice", Actions: []ActionSpec{
				{At: 0, Op: OpReserve, Resource: "cluster-a", Start: 10, Duration: 50, PE: 2, Commit: true, Jobs: 2},
			}},
		},
	}
}

func TestScenarioValidate(t *testing.T) {
	require.NoError(t, validScenario().Validate())

	cases := []struct {
		name   string
		mutate func(*Scenario)
	}{
		{"zero horizon", func(s *Scenario) { s.Horizon = 0 }},
		{"no resources", func(s *Scenario) { s.Resources = nil }},
		{"unnamed resource", func(s *Scenario) { s.Resources[0].Name = "" }},
		{"duplicate resource", func(s *Scenario) { s.Resources = append(s.Resources, s.Resources[0]) }},
		{"bad policy", func(s *Scenario) { s.Resources[0].Policy = "round-robin" }},
		{"unnamed user", func(s *Scenario) { s.Users[0].Name = "" }},
		{"duplicate user", func(s *Scenario) { s.Users = append(s.Users, s.Users[0]) }},
		{"unknown op", func(s *Scenario) { s.Users[0].Actions[0].Op = "terminate" }},
		{"unknown resource in action", func(s *Scenario) { s.Users[0].Actions[0].Resource = "nowhere" }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			scn := validScenario()
			c.mutate(scn)
			assert.Error(t, scn.Validate())
		})
	}
}

func TestLoadScenario(t *testing.T) {
	const doc = `
seed: 7
horizon: 500
resources:
  - name: cluster-a
    pe: 4
    mips_per_pe: 100
    policy: advance-reservation
  - name: cluster-b
    pe: 8
    mips_per_pe: 200
    time_zone: 100
    policy: time-shared
users:
  - name: alice
    actions:
      - at: 0
        op: reserve
        resource: cluster-a
        start: 10
        duration: 50
        pe: 2
        commit: true
        jobs: 2
      - at: 5
        op: submit
        resource: cluster-b
        length: 2000
`
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	scn, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, int64(7), scn.Seed)
	assert.Equal(t, int64(500), scn.Horizon)
	require.Len(t, scn.Resources, 2)
	assert.Equal(t, int64(100), scn.Resources[1].TimeZone)
	require.Len(t, scn.Users, 1)
	require.Len(t, scn.Users[0].Actions, 2)
	assert.Equal(t, OpSubmit, scn.Users[0].Actions[1].Op)
	assert.Equal(t, 2000.0, scn.Users[0].Actions[1].Length)
}

func TestLoadScenario_Errors(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("horizon: [not, a, number]"), 0o644))
	_, err = LoadScenario(bad)
	assert.Error(t, err)

	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("horizon: 100\nresources: []\n"), 0o644))
	_, err = LoadScenario(invalid)
	assert.Error(t, err)
}

func TestPartitionedRNG_IsolatedDeterministicStreams(t *testing.T) {
	a := NewPartitionedRNG(42)
	b := NewPartitionedRNG(42)

	// Same seed, same subsystem: identical streams.
	assert.Equal(t, a.For("user_alice").Int63(), b.For("user_alice").Int63())

	// Draining one subsystem's stream never perturbs another's.
	c := NewPartitionedRNG(42)
	for i := 0; i < 100; i++ {
		c.For("user_bob").Int63()
	}
	assert.Equal(t, a.For("user_carol").Int63(), c.For("user_carol").Int63())

	// The stream object is stable across calls.
	assert.Same(t, a.For("user_alice"), a.For("user_alice"))
}
