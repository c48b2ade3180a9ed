package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "scenario.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

const validScenario = `{
	"meta": {"name": "straight", "version": 1, "description": "test track"},
	"timing": {"dt_s": 0.1, "duration_s": 5, "real_time_mode": false},
	"track": {
		"waypoints_x": [0, 5, 10, 15, 20],
		"waypoints_y": [0, 0, 0, 0, 0]
	},
	"start": {"x": 0, "y": 0.5, "psi": 0, "v": 10}
}`

func TestLoadScenario(t *testing.T) {
	t.Parallel()

	scen, err := LoadScenario(writeScenario(t, validScenario))
	require.NoError(t, err)

	assert.Equal(t, "straight", scen.Meta.Name)
	assert.Equal(t, 0.1, scen.Timing.DtS)
	assert.Len(t, scen.Track.WaypointsX, 5)
	assert.Equal(t, 8, scen.Track.FitWindow, "fit_window defaults when omitted")
	assert.Equal(t, 0.5, scen.Start.Y)
	assert.Nil(t, scen.MPC)
}

func TestLoadScenarioRejectsBadInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"not json", `{{{`},
		{"zero duration", `{"timing": {"dt_s": 0.1, "duration_s": 0},
			"track": {"waypoints_x": [0,1,2,3], "waypoints_y": [0,0,0,0]}}`},
		{"zero dt", `{"timing": {"dt_s": 0, "duration_s": 5},
			"track": {"waypoints_x": [0,1,2,3], "waypoints_y": [0,0,0,0]}}`},
		{"mismatched waypoints", `{"timing": {"dt_s": 0.1, "duration_s": 5},
			"track": {"waypoints_x": [0,1,2,3], "waypoints_y": [0,0,0]}}`},
		{"too few waypoints", `{"timing": {"dt_s": 0.1, "duration_s": 5},
			"track": {"waypoints_x": [0,1,2], "waypoints_y": [0,0,0]}}`},
		{"tiny fit window", `{"timing": {"dt_s": 0.1, "duration_s": 5},
			"track": {"waypoints_x": [0,1,2,3], "waypoints_y": [0,0,0,0], "fit_window": 2}}`},
		{"invalid mpc override", `{"timing": {"dt_s": 0.1, "duration_s": 5},
			"track": {"waypoints_x": [0,1,2,3], "waypoints_y": [0,0,0,0]},
			"mpc_config": {"horizon": 1}}`},
		{"mpc dt disagrees with timing", `{"timing": {"dt_s": 0.1, "duration_s": 5},
			"track": {"waypoints_x": [0,1,2,3], "waypoints_y": [0,0,0,0]},
			"mpc_config": {
				"horizon": 10, "dt_s": 0.05, "lf_m": 2.67, "ref_velocity": 10,
				"weight_cte": 800, "weight_epsi": 800, "weight_velocity": 1,
				"weight_steer_vel": 450, "weight_steer": 20, "weight_accel": 1,
				"weight_steer_rate": 1, "weight_accel_rate": 1,
				"steer_limit_rad": 0.436332, "accel_limit": 1.0,
				"solve_budget_s": 0.5
			}}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadScenario(writeScenario(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestControllerConfigDefaultsToScenarioDt(t *testing.T) {
	t.Parallel()

	scen, err := LoadScenario(writeScenario(t, validScenario))
	require.NoError(t, err)

	cfg := scen.ControllerConfig()
	assert.Equal(t, 0.1, cfg.Dt)
	assert.Equal(t, 10, cfg.Horizon)
}

func TestControllerConfigOverride(t *testing.T) {
	t.Parallel()

	body := `{
		"timing": {"dt_s": 0.05, "duration_s": 5},
		"track": {"waypoints_x": [0,1,2,3], "waypoints_y": [0,0,0,0]},
		"mpc_config": {
			"horizon": 8, "dt_s": 0.05, "lf_m": 2.67, "ref_velocity": 15,
			"weight_cte": 800, "weight_epsi": 800, "weight_velocity": 1,
			"weight_steer_vel": 450, "weight_steer": 20, "weight_accel": 1,
			"weight_steer_rate": 1, "weight_accel_rate": 1,
			"steer_limit_rad": 0.436332, "accel_limit": 1.0,
			"solve_budget_s": 0.04
		}
	}`
	scen, err := LoadScenario(writeScenario(t, body))
	require.NoError(t, err)

	cfg := scen.ControllerConfig()
	assert.Equal(t, 8, cfg.Horizon)
	assert.Equal(t, 15.0, cfg.RefVelocity)
	assert.Equal(t, 0.04, cfg.SolveBudgetS)
}

func TestShippedScenarioLoads(t *testing.T) {
	t.Parallel()

	scen, err := LoadScenario("wave_track_60s.json")
	require.NoError(t, err)
	require.NotNil(t, scen.MPC)
	assert.NoError(t, scen.MPC.Validate())
	assert.Equal(t, len(scen.Track.WaypointsX), len(scen.Track.WaypointsY))
}
