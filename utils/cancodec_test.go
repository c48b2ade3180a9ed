package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.einride.tech/can"
)

func cmdMap() *CANMap {
	fd := &FrameDef{
		ID:        0x320,
		Name:      "MPC_CMD",
		DLC:       4,
		Direction: "tx",
		CycleMS:   100,
		Signals: []SignalDef{
			{Name: "steer_cmd_rad", StartBit: 0, BitLength: 16, Signed: true,
				Factor: 0.0001, Min: -0.45, Max: 0.45},
			{Name: "accel_cmd", StartBit: 16, BitLength: 16, Signed: true,
				Factor: 0.001, Min: -1, Max: 1},
		},
	}
	return &CANMap{
		ByID:   map[uint32]*FrameDef{fd.ID: fd},
		ByName: map[string]*FrameDef{fd.Name: fd},
	}
}

func TestEncodeFrameExactBytes(t *testing.T) {
	t.Parallel()

	m := cmdMap()
	frame, err := m.EncodeFrame("MPC_CMD", map[string]float64{
		"steer_cmd_rad": -0.2, // raw -2000 = 0xF830
		"accel_cmd":     0.5,  // raw 500 = 0x01F4
	})
	require.NoError(t, err)

	assert.Equal(t, uint32(0x320), uint32(frame.ID))
	assert.Equal(t, uint8(4), frame.Length)
	assert.Equal(t, byte(0x30), frame.Data[0])
	assert.Equal(t, byte(0xF8), frame.Data[1])
	assert.Equal(t, byte(0xF4), frame.Data[2])
	assert.Equal(t, byte(0x01), frame.Data[3])
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	m := cmdMap()
	in := map[string]float64{
		"steer_cmd_rad": 0.1234,
		"accel_cmd":     -0.876,
	}

	frame, err := m.EncodeFrame("MPC_CMD", in)
	require.NoError(t, err)

	out, err := m.DecodeFrame(frame)
	require.NoError(t, err)

	assert.InDelta(t, in["steer_cmd_rad"], out["steer_cmd_rad"], 0.0001)
	assert.InDelta(t, in["accel_cmd"], out["accel_cmd"], 0.001)
}

func TestEncodeFrameClampsToSignalRange(t *testing.T) {
	t.Parallel()

	m := cmdMap()
	frame, err := m.EncodeFrame("MPC_CMD", map[string]float64{
		"steer_cmd_rad": 2.0, // far beyond the 0.45 max
		"accel_cmd":     -9,
	})
	require.NoError(t, err)

	out, err := m.DecodeFrame(frame)
	require.NoError(t, err)
	assert.InDelta(t, 0.45, out["steer_cmd_rad"], 0.0002)
	assert.InDelta(t, -1.0, out["accel_cmd"], 0.002)
}

func TestEncodeFrameUsesDefaults(t *testing.T) {
	t.Parallel()

	m := cmdMap()
	m.ByName["MPC_CMD"].Signals[1].Default = 0.25

	frame, err := m.EncodeFrame("MPC_CMD", map[string]float64{"steer_cmd_rad": 0})
	require.NoError(t, err)

	out, err := m.DecodeFrame(frame)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, out["accel_cmd"], 0.002)
}

func TestEncodeFrameUnknownName(t *testing.T) {
	t.Parallel()

	_, err := cmdMap().EncodeFrame("NOPE", nil)
	assert.Error(t, err)
}

func TestDecodeFrameErrors(t *testing.T) {
	t.Parallel()

	m := cmdMap()

	var unknown can.Frame
	unknown.ID = 0x999
	_, err := m.DecodeFrame(unknown)
	assert.Error(t, err, "unknown id")

	var short can.Frame
	short.ID = 0x320
	short.Length = 2 // frame needs DLC 4
	_, err = m.DecodeFrame(short)
	assert.Error(t, err, "truncated payload")
}

func TestSignedRawConversion(t *testing.T) {
	t.Parallel()

	for _, raw := range []int64{0, 1, -1, 500, -2000, 32767, -32768} {
		u := rawToUnsigned(raw, 16)
		assert.Equal(t, raw, unsignedToRaw(u, 16, true), "raw %d", raw)
	}

	// Unsigned passthrough.
	assert.Equal(t, int64(0xFFFF), unsignedToRaw(0xFFFF, 16, false))
}

func TestClampRaw(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(32767), clampRaw(40000, 16, true))
	assert.Equal(t, int64(-32768), clampRaw(-40000, 16, true))
	assert.Equal(t, int64(65535), clampRaw(70000, 16, false))
	assert.Equal(t, int64(0), clampRaw(-5, 16, false))
	assert.Equal(t, int64(123), clampRaw(123, 16, true))
}
