package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.einride.tech/can"
)

func TestSimPlantAppliesCommandsOnePeriodLate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := NewSimPlant(Pose{V: 10}, 2.67)
	require.NoError(t, p.Apply(ctx, 0.1, 1.0))

	// First step still runs on the (zero) command active before Apply.
	p.Step(0.1)
	pose, err := p.Pose(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, pose.X, 1e-12)
	assert.InDelta(t, 0.0, pose.Psi, 1e-12)
	assert.InDelta(t, 10.0, pose.V, 1e-12)

	// Second step consumes the queued command: v += a*dt.
	p.Step(0.1)
	pose, err = p.Pose(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, pose.X, 1e-12)
	assert.InDelta(t, -10.0/2.67*0.1*0.1, pose.Psi, 1e-12)
	assert.InDelta(t, 10.1, pose.V, 1e-12)
}

func TestSimPlantHoldsLastCommand(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := NewSimPlant(Pose{V: 10}, 2.67)
	require.NoError(t, p.Apply(ctx, 0, 0.5))

	// Without further Apply calls the promoted command keeps acting.
	p.Step(0.1)
	p.Step(0.1)
	p.Step(0.1)

	pose, err := p.Pose(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 10.0+2*0.05, pose.V, 1e-12)
}

func TestSimPlantTurnsAlongArc(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := NewSimPlant(Pose{V: 5}, 2.67)
	require.NoError(t, p.Apply(ctx, -0.2, 0))

	for i := 0; i < 20; i++ {
		p.Step(0.1)
	}
	pose, err := p.Pose(ctx)
	require.NoError(t, err)

	// Negative steering raises the heading, curving the path toward +y.
	assert.Greater(t, pose.Psi, 0.1)
	assert.Greater(t, pose.Y, 0.5)
	assert.InDelta(t, 5.0, pose.V, 1e-12)
}

func TestSimPlantClose(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NewSimPlant(Pose{}, 2.67).Close())
}

// deadBusReader fails every read, like an unplugged interface.
type deadBusReader struct{}

func (deadBusReader) ReadFrame(context.Context) (can.Frame, error) {
	return can.Frame{}, errors.New("read: no buffer space available")
}

func (deadBusReader) Close() error { return nil }

func TestCANPlantPoseFallbackExpires(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := &CANPlant{reader: deadBusReader{}}
	p.last = Pose{X: 3, V: 7}
	p.seen = true
	p.lastGood = time.Now()

	// A fresh last pose covers a transient read failure.
	pose, err := p.Pose(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3.0, pose.X)
	assert.Equal(t, 7.0, pose.V)

	// Once the last good pose is older than the staleness limit, the read
	// error must reach the caller instead of frozen data.
	p.lastGood = time.Now().Add(-2 * poseStaleLimit)
	_, err = p.Pose(ctx)
	assert.Error(t, err)
}

func TestCANPlantPoseErrorsWithNoHistory(t *testing.T) {
	t.Parallel()

	p := &CANPlant{reader: deadBusReader{}}
	_, err := p.Pose(context.Background())
	assert.Error(t, err)
}
