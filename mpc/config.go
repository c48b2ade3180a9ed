package mpc

import (
	"fmt"
	"time"
)

// Config holds every tunable of the controller. A Config is immutable once
// handed to New; two controllers with different configs can run side by side.
type Config struct {
	// Horizon is the number of discrete timesteps N per solve.
	// Values above ~20 are too slow for a 100ms control period.
	Horizon int `json:"horizon"`

	// Dt is the discretization period in seconds. It is also the assumed
	// actuation latency: the dynamics apply every command one full period
	// late, so Dt should match the real actuator delay.
	Dt float64 `json:"dt_s"`

	// Lf is the distance from the front axle to the center of gravity in
	// meters. Tuned empirically so the model's turning radius matches the
	// vehicle's at constant steering and speed.
	Lf float64 `json:"lf_m"`

	// RefVelocity is the target speed, same units as VehicleState.V.
	RefVelocity float64 `json:"ref_velocity"`

	// Cost weights. These define driving behavior: cte/epsi dominate so the
	// car holds the path, the steer-times-speed term slows it into corners.
	WeightCTE       float64 `json:"weight_cte"`
	WeightEpsi      float64 `json:"weight_epsi"`
	WeightVelocity  float64 `json:"weight_velocity"`
	WeightSteerVel  float64 `json:"weight_steer_vel"` // (delta*v)^2
	WeightSteer     float64 `json:"weight_steer"`
	WeightAccel     float64 `json:"weight_accel"`
	WeightSteerRate float64 `json:"weight_steer_rate"`
	WeightAccelRate float64 `json:"weight_accel_rate"`

	// Actuator limits.
	SteerLimitRad float64 `json:"steer_limit_rad"` // symmetric, radians
	AccelLimit    float64 `json:"accel_limit"`     // symmetric, normalized

	// SolveBudgetS is the wall-clock budget handed to the NLP solver, in
	// seconds.
	SolveBudgetS float64 `json:"solve_budget_s"`
}

// SolveBudget returns the solver budget as a duration.
func (c Config) SolveBudget() time.Duration {
	return time.Duration(c.SolveBudgetS * float64(time.Second))
}

// DefaultConfig returns the tuned configuration: N=10, dt=100ms, and the
// weight set that drives the reference track cleanly at speed.
func DefaultConfig() Config {
	return Config{
		Horizon:         10,
		Dt:              0.1,
		Lf:              2.67,
		RefVelocity:     100,
		WeightCTE:       800,
		WeightEpsi:      800,
		WeightVelocity:  1,
		WeightSteerVel:  450,
		WeightSteer:     20,
		WeightAccel:     1,
		WeightSteerRate: 1,
		WeightAccelRate: 1,
		SteerLimitRad:   0.436332, // 25 degrees
		AccelLimit:      1.0,
		SolveBudgetS:    0.5,
	}
}

// Validate rejects configurations the formulation cannot express.
func (c Config) Validate() error {
	if c.Horizon < 3 {
		return fmt.Errorf("horizon must be >= 3, got %d", c.Horizon)
	}
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", c.Dt)
	}
	if c.Lf <= 0 {
		return fmt.Errorf("lf must be positive, got %f", c.Lf)
	}
	if c.SteerLimitRad <= 0 {
		return fmt.Errorf("steer limit must be positive, got %f", c.SteerLimitRad)
	}
	if c.AccelLimit <= 0 {
		return fmt.Errorf("accel limit must be positive, got %f", c.AccelLimit)
	}
	if c.SolveBudgetS <= 0 {
		return fmt.Errorf("solve budget must be positive, got %f", c.SolveBudgetS)
	}
	return nil
}
