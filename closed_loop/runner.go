package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/nnadams/SDC-MPC-P10/mpc"
	"github.com/nnadams/SDC-MPC-P10/path"
	"github.com/nnadams/SDC-MPC-P10/utils"
)

type RunnerConfig struct {
	ScenarioPath string
	Interface    string
	MapPath      string
	UseCAN       bool
	PoseFrame    string
	CmdFrame     string
}

// Runner drives one scenario to completion: each control cycle it reads the
// plant pose, fits the local reference polynomial, solves the MPC, and
// applies the first actuation.
type Runner struct {
	cfg   RunnerConfig
	log   *utils.Logger
	scen  Scenario
	ctrl  *mpc.Controller
	plant Plant
	sim   *SimPlant // non-nil when the plant is the built-in simulator

	next int // waypoint search cursor, monotone along the track
}

func NewRunner(ctx context.Context, cfg RunnerConfig, log *utils.Logger) (*Runner, error) {
	scen, err := LoadScenario(cfg.ScenarioPath)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}

	ctrl, err := mpc.New(scen.ControllerConfig())
	if err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}

	r := &Runner{cfg: cfg, log: log, scen: scen, ctrl: ctrl}

	if cfg.UseCAN {
		cmap, err := utils.LoadCANMap(cfg.MapPath)
		if err != nil {
			return nil, fmt.Errorf("load can map: %w", err)
		}
		plant, err := NewCANPlant(ctx, cfg.Interface, cmap, cfg.PoseFrame, cfg.CmdFrame)
		if err != nil {
			return nil, fmt.Errorf("can plant: %w", err)
		}
		r.plant = plant
	} else {
		sim := NewSimPlant(Pose{
			X:   scen.Start.X,
			Y:   scen.Start.Y,
			Psi: scen.Start.Psi,
			V:   scen.Start.V,
		}, ctrl.Config().Lf)
		r.sim = sim
		r.plant = sim
	}
	return r, nil
}

func (r *Runner) Close() {
	if r.plant != nil {
		_ = r.plant.Close()
	}
}

func (r *Runner) Run(ctx context.Context) error {
	dt := r.scen.Timing.DtS
	steps := int(r.scen.Timing.DurationS / dt)

	mode := "sim"
	if r.cfg.UseCAN {
		mode = "can iface=" + r.cfg.Interface
	}
	r.log.Info("Starting run: scenario=%s duration=%.1fs dt=%.0fms horizon=%d plant=%s",
		r.scen.Meta.Name, r.scen.Timing.DurationS, dt*1000, r.ctrl.Config().Horizon, mode)

	var ticker *time.Ticker
	if r.scen.Timing.RealTimeMode {
		ticker = time.NewTicker(time.Duration(dt * float64(time.Second)))
		defer ticker.Stop()
	}

	for step := 0; step < steps; step++ {
		if ticker != nil {
			select {
			case <-ctx.Done():
				r.log.Warn("Context canceled; stopping after %d cycles", step)
				return ctx.Err()
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			r.log.Warn("Context canceled; stopping after %d cycles", step)
			return ctx.Err()
		}

		done, err := r.cycle(ctx, step)
		if err != nil {
			return err
		}
		if done {
			r.log.Info("End of track reached after %d cycles", step)
			return nil
		}
	}
	r.log.Info("Completed run: %d cycles", steps)
	return nil
}

// cycle performs one control period. It reports done when too few waypoints
// remain ahead to fit the reference cubic.
func (r *Runner) cycle(ctx context.Context, step int) (bool, error) {
	pose, err := r.plant.Pose(ctx)
	if err != nil {
		return false, fmt.Errorf("read pose: %w", err)
	}

	wx, wy, ok := r.windowAhead(pose)
	if !ok {
		return true, nil
	}

	xs, ys, err := path.ToVehicleFrame(pose.X, pose.Y, pose.Psi, wx, wy)
	if err != nil {
		return false, err
	}
	cfit, err := path.Fit(xs, ys, 3)
	if err != nil {
		return false, fmt.Errorf("fit reference: %w", err)
	}
	coeffs := mpc.Coeffs{cfit[0], cfit[1], cfit[2], cfit[3]}

	// In the vehicle frame the vehicle sits at the origin with zero heading,
	// so the tracking errors come straight off the fitted polynomial.
	state := mpc.VehicleState{
		V:    pose.V,
		CTE:  coeffs.Eval(0),
		Epsi: -coeffs.TangentHeading(0),
	}

	cmd, err := r.ctrl.Solve(state, coeffs)
	switch {
	case err == nil:
	case errors.Is(err, mpc.ErrNotConverged):
		// Best-effort command: improved over the guess even without a
		// convergence certificate. Apply it, but say so.
		r.log.Warn("cycle=%d solver not converged: %v", step, err)
	default:
		return false, fmt.Errorf("solve: %w", err)
	}

	if err := r.plant.Apply(ctx, cmd.Steering, cmd.Accel); err != nil {
		return false, fmt.Errorf("apply command: %w", err)
	}
	if r.sim != nil {
		r.sim.Step(r.scen.Timing.DtS)
	}

	r.log.Debug("cycle=%d v=%.2f cte=%.3f epsi=%.3f steer=%.4f accel=%.3f cost=%.1f",
		step, pose.V, state.CTE, state.Epsi, cmd.Steering, cmd.Accel, cmd.Cost)
	if step%50 == 0 {
		r.log.Info("cycle=%d pos=(%.1f, %.1f) v=%.2f cte=%.3f", step, pose.X, pose.Y, pose.V, state.CTE)
	}
	return false, nil
}

// windowAhead returns the next FitWindow waypoints starting at the one
// nearest the vehicle. The cursor only moves forward so the window cannot
// snap back on self-crossing tracks.
func (r *Runner) windowAhead(pose Pose) (wx, wy []float64, ok bool) {
	tx, ty := r.scen.Track.WaypointsX, r.scen.Track.WaypointsY

	best, bestDist := r.next, math.Inf(1)
	for i := r.next; i < len(tx); i++ {
		dx, dy := tx[i]-pose.X, ty[i]-pose.Y
		if d := dx*dx + dy*dy; d < bestDist {
			best, bestDist = i, d
		}
	}
	r.next = best

	end := best + r.scen.Track.FitWindow
	if end > len(tx) {
		end = len(tx)
	}
	if end-best < 4 {
		return nil, nil, false
	}
	return tx[best:end], ty[best:end], true
}
