package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nnadams/SDC-MPC-P10/mpc"
)

// Scenario defines one closed-loop run: the track to follow, timing, and an
// optional controller configuration override.
type Scenario struct {
	Meta   ScenarioMeta   `json:"meta"`
	Timing ScenarioTiming `json:"timing"`
	Track  Track          `json:"track"`
	Start  StartPose      `json:"start"`
	MPC    *mpc.Config    `json:"mpc_config,omitempty"`
}

// ScenarioMeta contains scenario metadata.
type ScenarioMeta struct {
	Name        string `json:"name"`
	Version     int    `json:"version"`
	Description string `json:"description"`
}

// ScenarioTiming defines the control cycle and run length.
type ScenarioTiming struct {
	DtS          float64 `json:"dt_s"`
	DurationS    float64 `json:"duration_s"`
	RealTimeMode bool    `json:"real_time_mode"`
}

// Track is the global-frame reference path as waypoints. FitWindow is the
// number of waypoints ahead of the vehicle fitted per cycle.
type Track struct {
	WaypointsX []float64 `json:"waypoints_x"`
	WaypointsY []float64 `json:"waypoints_y"`
	FitWindow  int       `json:"fit_window"`
}

// StartPose is the vehicle's initial global pose for simulated runs.
type StartPose struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Psi float64 `json:"psi"`
	V   float64 `json:"v"`
}

// LoadScenario loads and validates a scenario JSON file.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read file: %w", err)
	}

	var scen Scenario
	if err := json.Unmarshal(data, &scen); err != nil {
		return Scenario{}, fmt.Errorf("unmarshal: %w", err)
	}

	if scen.Timing.DurationS <= 0 {
		return Scenario{}, fmt.Errorf("invalid duration_s: %f", scen.Timing.DurationS)
	}
	if scen.Timing.DtS <= 0 {
		return Scenario{}, fmt.Errorf("invalid dt_s: %f", scen.Timing.DtS)
	}
	if len(scen.Track.WaypointsX) != len(scen.Track.WaypointsY) {
		return Scenario{}, fmt.Errorf("waypoint arrays differ in length: %d vs %d",
			len(scen.Track.WaypointsX), len(scen.Track.WaypointsY))
	}
	if len(scen.Track.WaypointsX) < 4 {
		return Scenario{}, fmt.Errorf("need at least 4 waypoints for a cubic fit, got %d",
			len(scen.Track.WaypointsX))
	}
	if scen.Track.FitWindow == 0 {
		scen.Track.FitWindow = 8
	}
	if scen.Track.FitWindow < 4 {
		return Scenario{}, fmt.Errorf("fit_window must be >= 4, got %d", scen.Track.FitWindow)
	}
	if scen.MPC != nil {
		if err := scen.MPC.Validate(); err != nil {
			return Scenario{}, fmt.Errorf("mpc_config: %w", err)
		}
		// The controller models actuation latency as one control period, so
		// its dt must be the period the plant is actually stepped at.
		if scen.MPC.Dt != scen.Timing.DtS {
			return Scenario{}, fmt.Errorf("mpc_config dt_s %g does not match timing dt_s %g",
				scen.MPC.Dt, scen.Timing.DtS)
		}
	}
	return scen, nil
}

// ControllerConfig resolves the effective controller configuration for the
// run: the scenario override when present, otherwise the defaults with the
// scenario's control period.
func (s Scenario) ControllerConfig() mpc.Config {
	if s.MPC != nil {
		return *s.MPC
	}
	cfg := mpc.DefaultConfig()
	cfg.Dt = s.Timing.DtS
	return cfg
}
