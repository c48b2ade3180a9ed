package main

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/nnadams/SDC-MPC-P10/utils"
)

// Pose is the vehicle's global-frame pose as seen by the plant.
type Pose struct {
	X   float64
	Y   float64
	Psi float64
	V   float64
}

// Plant is whatever the controller drives: either the built-in simulated
// vehicle or the real one behind a CAN bus.
type Plant interface {
	Pose(ctx context.Context) (Pose, error)
	Apply(ctx context.Context, steer, accel float64) error
	Close() error
}

// SimPlant is a ground-truth kinematic bicycle with a one-period actuation
// delay, matching the latency the controller compensates for.
type SimPlant struct {
	lf   float64
	pose Pose

	// active took effect last step; queued is the command waiting out the
	// actuation delay.
	activeSteer, activeAccel float64
	queuedSteer, queuedAccel float64
}

// NewSimPlant starts a simulated vehicle at the given pose.
func NewSimPlant(start Pose, lf float64) *SimPlant {
	return &SimPlant{lf: lf, pose: start}
}

func (p *SimPlant) Pose(context.Context) (Pose, error) { return p.pose, nil }

func (p *SimPlant) Apply(_ context.Context, steer, accel float64) error {
	p.queuedSteer, p.queuedAccel = steer, accel
	return nil
}

func (p *SimPlant) Close() error { return nil }

// Step advances the vehicle by dt. The command applied is the one issued a
// full period ago; the newly queued one becomes active afterwards.
func (p *SimPlant) Step(dt float64) {
	s := p.pose
	p.pose = Pose{
		X:   s.X + s.V*math.Cos(s.Psi)*dt,
		Y:   s.Y + s.V*math.Sin(s.Psi)*dt,
		Psi: s.Psi - s.V/p.lf*p.activeSteer*dt,
		V:   s.V + p.activeAccel*dt,
	}
	p.activeSteer, p.activeAccel = p.queuedSteer, p.queuedAccel
}

// CAN signal names used by the plant bridge; they must match can_map.csv.
const (
	sigPoseX   = "pos_x_m"
	sigPoseY   = "pos_y_m"
	sigHeading = "heading_rad"
	sigSpeed   = "speed_mps"
	sigSteer   = "steer_cmd_rad"
	sigAccel   = "accel_cmd"
)

// poseStaleLimit bounds how long read failures may be papered over with the
// last good pose before the control loop has to see the error.
const poseStaleLimit = 500 * time.Millisecond

// CANPlant drives a vehicle over SocketCAN: poses arrive as VEHICLE_POSE
// frames, commands leave as MPC_CMD frames.
type CANPlant struct {
	cmap   *utils.CANMap
	reader utils.CANReader
	writer utils.CANWriter

	poseFrame *utils.FrameDef
	cmdFrame  *utils.FrameDef

	mu       sync.Mutex
	last     Pose
	seen     bool
	lastGood time.Time
}

// NewCANPlant dials iface and resolves the pose and command frames in cmap.
func NewCANPlant(ctx context.Context, iface string, cmap *utils.CANMap, poseFrame, cmdFrame string) (*CANPlant, error) {
	pf, err := cmap.FrameByName(poseFrame)
	if err != nil {
		return nil, fmt.Errorf("pose frame: %w", err)
	}
	cf, err := cmap.FrameByName(cmdFrame)
	if err != nil {
		return nil, fmt.Errorf("command frame: %w", err)
	}

	writer, err := utils.NewSocketCANWriter(ctx, iface)
	if err != nil {
		return nil, err
	}
	reader, err := utils.NewSocketCANReader(ctx, iface)
	if err != nil {
		writer.Close()
		return nil, err
	}

	return &CANPlant{
		cmap:      cmap,
		reader:    reader,
		writer:    writer,
		poseFrame: pf,
		cmdFrame:  cf,
	}, nil
}

// Pose blocks until a pose frame arrives, then returns the decoded pose.
// Frames for other IDs are skipped.
func (p *CANPlant) Pose(ctx context.Context) (Pose, error) {
	for {
		frame, err := p.reader.ReadFrame(ctx)
		if err != nil {
			// Fall back to the last good pose on a transient read error so
			// one dropped frame does not stall the control loop, but only
			// while that pose is fresh: a dead bus must surface as an error,
			// not as a loop free-running on frozen data.
			p.mu.Lock()
			last, seen, at := p.last, p.seen, p.lastGood
			p.mu.Unlock()
			if seen && ctx.Err() == nil && time.Since(at) < poseStaleLimit {
				return last, nil
			}
			return Pose{}, err
		}
		if uint32(frame.ID) != p.poseFrame.ID {
			continue
		}
		values, err := p.cmap.DecodeFrame(frame)
		if err != nil {
			return Pose{}, fmt.Errorf("decode pose: %w", err)
		}
		pose := Pose{
			X:   values[sigPoseX],
			Y:   values[sigPoseY],
			Psi: values[sigHeading],
			V:   values[sigSpeed],
		}
		p.mu.Lock()
		p.last, p.seen, p.lastGood = pose, true, time.Now()
		p.mu.Unlock()
		return pose, nil
	}
}

func (p *CANPlant) Apply(ctx context.Context, steer, accel float64) error {
	frame, err := p.cmap.EncodeFrame(p.cmdFrame.Name, map[string]float64{
		sigSteer: steer,
		sigAccel: accel,
	})
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	return p.writer.WriteFrame(ctx, frame)
}

func (p *CANPlant) Close() error {
	var firstErr error
	if p.reader != nil {
		firstErr = p.reader.Close()
	}
	if p.writer != nil {
		if err := p.writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
