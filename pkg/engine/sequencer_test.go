package engine

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdrtray/hdrcal/pkg/calibration"
	"github.com/hdrtray/hdrcal/pkg/vcp"
)

type fakeTools bool

func (f fakeTools) Available() bool { return bool(f) }

type loadCall struct {
	display vcp.Display
	file    string
}

type fakeLoader struct {
	err   error
	calls []loadCall
}

func (f *fakeLoader) Load(d vcp.Display, file string) error {
	f.calls = append(f.calls, loadCall{display: d, file: file})
	return f.err
}

func testSnapshot() calibration.Snapshot {
	return calibration.Snapshot{
		Display: 1,
		SDR: calibration.Profile{
			Brightness: 50, RedGain: 50, GreenGain: 49, BlueGain: 49,
			ColorPreset: 12, ProfileEnabled: true,
		},
		HDR: calibration.Profile{
			Brightness: 100, RedGain: 46, GreenGain: 49, BlueGain: 49,
			ColorPreset: 12, ProfileEnabled: true,
		},
		ProfileDir:      filepath.Join("opt", "hdrcal", "profiles"),
		ColorManagement: true,
		Retry:           calibration.DefaultRetryPolicy(),
	}
}

func matchingSDR() map[vcp.Register]vcp.Value {
	return map[vcp.Register]vcp.Value{
		vcp.Brightness:  50,
		vcp.RedGain:     50,
		vcp.GreenGain:   49,
		vcp.BlueGain:    49,
		vcp.ColorPreset: 12,
	}
}

func newTestSequencer(m *vcp.Mock, loader ProfileLoader, opts ...Option) (*Sequencer, *fakeClock) {
	clock := newFakeClock()
	opts = append([]Option{WithClock(clock), WithFileCheck(func(string) bool { return true })}, opts...)
	return NewSequencer(m, loader, fakeTools(true), opts...), clock
}

func registersOf(writes []vcp.Write) []vcp.Register {
	out := make([]vcp.Register, 0, len(writes))
	for _, w := range writes {
		out = append(out, w.Register)
	}
	return out
}

func TestApplySDREndToEnd(t *testing.T) {
	prefill := matchingSDR()
	prefill[vcp.Brightness] = 40
	m := vcp.NewMock(prefill)
	s, clock := newTestSequencer(m, nil)

	require.NoError(t, s.ApplySDR(testSnapshot()))

	writes := m.Writes()
	assert.Equal(t, []vcp.Register{vcp.Brightness, vcp.RedGain, vcp.GreenGain, vcp.BlueGain}, registersOf(writes))
	for _, w := range writes {
		assert.Equal(t, vcp.Display(1), w.Display)
	}
	assert.Zero(t, m.WriteCount(vcp.ColorPreset))

	for r, want := range matchingSDR() {
		got, ok := m.Value(r)
		require.True(t, ok)
		assert.Equal(t, want, got, "register %s", r)
	}

	require.NotEmpty(t, clock.sleeps)
	assert.Equal(t, 3*time.Second, clock.sleeps[0])
}

func TestApplyToolsUnavailable(t *testing.T) {
	m := vcp.NewMock(matchingSDR())
	s := NewSequencer(m, nil, fakeTools(false), WithClock(newFakeClock()))

	require.ErrorIs(t, s.ApplySDR(testSnapshot()), ErrToolsUnavailable)
	require.ErrorIs(t, s.ApplyHDR(testSnapshot()), ErrToolsUnavailable)
	require.ErrorIs(t, s.ReapplySDR(testSnapshot(), true, calibration.ReasonManual), ErrToolsUnavailable)
	require.ErrorIs(t, s.PrepareHDR(testSnapshot()), ErrToolsUnavailable)

	assert.Empty(t, m.Writes())
	assert.Zero(t, m.ReadCount(vcp.Brightness))
	assert.Zero(t, m.ReadCount(vcp.ColorPreset))
}

func TestColorManagementDisabled(t *testing.T) {
	m := vcp.NewMock(nil)
	s, clock := newTestSequencer(m, nil)
	snap := testSnapshot()
	snap.ColorManagement = false

	require.NoError(t, s.ApplySDR(snap))
	require.NoError(t, s.ApplyHDR(snap))
	require.NoError(t, s.ReapplyHDR(snap, true, calibration.ReasonDisplayChange))

	assert.Empty(t, m.Writes())
	assert.Empty(t, clock.sleeps)
}

func TestApplySDRAbortsWhenColorPresetUnreadable(t *testing.T) {
	prefill := matchingSDR()
	delete(prefill, vcp.ColorPreset)
	m := vcp.NewMock(prefill)
	s, _ := newTestSequencer(m, nil)

	require.ErrorIs(t, s.ApplySDR(testSnapshot()), ErrNotReady)
	assert.Empty(t, m.Writes())
}

// The HDR path writes registers without ensuring the color preset, unlike
// SDR. The preset is expected to be switched beforehand by PrepareHDR. This
// is not known to be right for every monitor.
func TestApplyHDRDoesNotEnsureColorPreset(t *testing.T) {
	m := vcp.NewMock(nil)
	m.SetUnreadable(vcp.ColorPreset, true)
	s, clock := newTestSequencer(m, nil)

	require.NoError(t, s.ApplyHDR(testSnapshot()))

	assert.Zero(t, m.ReadCount(vcp.ColorPreset))
	assert.Zero(t, m.WriteCount(vcp.ColorPreset))
	assert.Equal(t, []vcp.Register{vcp.Brightness, vcp.RedGain, vcp.GreenGain, vcp.BlueGain}, registersOf(m.Writes()))
	assert.Equal(t, []time.Duration{3 * time.Second, time.Second, 2 * time.Second}, clock.sleeps)

	v, _ := m.Value(vcp.Brightness)
	assert.Equal(t, vcp.Value(100), v)
}

func TestApplyWritesEveryRegisterAndJoinsFailures(t *testing.T) {
	m := vcp.NewMock(matchingSDR())
	m.RejectWrites(vcp.RedGain, true)
	m.RejectWrites(vcp.BlueGain, true)
	s, _ := newTestSequencer(m, nil)

	err := s.ApplyHDR(testSnapshot())
	require.ErrorIs(t, err, ErrWriteFailed)
	assert.Contains(t, err.Error(), vcp.RedGain.String())
	assert.Contains(t, err.Error(), vcp.BlueGain.String())
	assert.Len(t, m.Writes(), 4)
}

func TestApplyLoadsProfile(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		enabled   bool
		exists    bool
		loaderErr error
		wantLoads int
	}{
		{name: "icc profile", file: "sdr.icc", enabled: true, exists: true, wantLoads: 1},
		{name: "loader failure is not fatal", file: "sdr.cal", enabled: true, exists: true, loaderErr: errors.New("exit 1"), wantLoads: 1},
		{name: "disabled", file: "sdr.icc", enabled: false, exists: true},
		{name: "unset", file: "", enabled: true, exists: true},
		{name: "missing file", file: "sdr.icc", enabled: true, exists: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := vcp.NewMock(matchingSDR())
			loader := &fakeLoader{err: tt.loaderErr}
			s, _ := newTestSequencer(m, loader, WithFileCheck(func(string) bool { return tt.exists }))

			snap := testSnapshot()
			snap.SDR.ProfileFile = tt.file
			snap.SDR.ProfileEnabled = tt.enabled

			require.NoError(t, s.ApplySDR(snap))
			require.Len(t, loader.calls, tt.wantLoads)
			if tt.wantLoads > 0 {
				assert.Equal(t, loadCall{display: 1, file: filepath.Join(snap.ProfileDir, tt.file)}, loader.calls[0])
			}
			assert.Len(t, m.Writes(), 4)
		})
	}
}

func TestReapplySDRAlreadyCalibrated(t *testing.T) {
	m := vcp.NewMock(matchingSDR())
	s, _ := newTestSequencer(m, nil)

	require.NoError(t, s.ReapplySDR(testSnapshot(), false, calibration.ReasonDisplayPowerOn))
	assert.Empty(t, m.Writes())
}

func TestReapplySDRForced(t *testing.T) {
	m := vcp.NewMock(matchingSDR())
	s, _ := newTestSequencer(m, nil)

	require.NoError(t, s.ReapplySDR(testSnapshot(), true, calibration.ReasonSystemResume))
	assert.Equal(t, []vcp.Register{vcp.Brightness, vcp.RedGain, vcp.GreenGain, vcp.BlueGain}, registersOf(m.Writes()))
	// One verify read each after the readiness probe.
	assert.Equal(t, 2, m.ReadCount(vcp.Brightness))
	assert.Equal(t, 1, m.ReadCount(vcp.BlueGain))
}

func TestReapplyWritesWhenRegisterDiffers(t *testing.T) {
	prefill := matchingSDR()
	prefill[vcp.GreenGain] = 30
	m := vcp.NewMock(prefill)
	s, _ := newTestSequencer(m, nil)

	require.NoError(t, s.ReapplySDR(testSnapshot(), false, calibration.ReasonDisplayChange))
	assert.Len(t, m.Writes(), 4)
	v, _ := m.Value(vcp.GreenGain)
	assert.Equal(t, vcp.Value(49), v)
}

func TestReapplyNotReady(t *testing.T) {
	m := vcp.NewMock(nil)
	s, clock := newTestSequencer(m, nil)
	start := clock.Now()

	require.ErrorIs(t, s.ReapplyHDR(testSnapshot(), true, calibration.ReasonDisplayChange), ErrNotReady)
	assert.Empty(t, m.Writes())
	assert.Equal(t, 15*time.Second, clock.Now().Sub(start))
}

func TestReapplyContinuesPastFailedWrite(t *testing.T) {
	m := vcp.NewMock(matchingSDR())
	m.RejectWrites(vcp.RedGain, true)
	s, _ := newTestSequencer(m, nil)

	err := s.ReapplySDR(testSnapshot(), true, calibration.ReasonManual)
	require.ErrorIs(t, err, ErrWriteFailed)

	assert.Equal(t, 3, m.WriteCount(vcp.RedGain))
	assert.Equal(t, 1, m.WriteCount(vcp.GreenGain))
	assert.Equal(t, 1, m.WriteCount(vcp.BlueGain))
}

func TestReapplyHDRSkipsColorPreset(t *testing.T) {
	m := vcp.NewMock(matchingSDR())
	m.SetUnreadable(vcp.ColorPreset, true)
	s, _ := newTestSequencer(m, nil)

	require.NoError(t, s.ReapplyHDR(testSnapshot(), false, calibration.ReasonDisplayChange))
	assert.Zero(t, m.ReadCount(vcp.ColorPreset))
	assert.Len(t, m.Writes(), 4)
}

func TestEnsureColorModeBounce(t *testing.T) {
	m := vcp.NewMock(map[vcp.Register]vcp.Value{vcp.ColorPreset: 5})
	m.Script(vcp.ColorPreset,
		vcp.Reads(5),  // readiness
		vcp.Reads(5),  // current value
		vcp.Reads(12), // verify
		vcp.Reads(12), // readiness after the write
		vcp.Reads(12), vcp.Reads(3), vcp.Reads(12), vcp.Reads(12),
	)
	s, _ := newTestSequencer(m, nil)

	require.NoError(t, s.EnsureColorMode(testSnapshot(), 12))
	assert.Equal(t, 1, m.WriteCount(vcp.ColorPreset))
	assert.Equal(t, 8, m.ReadCount(vcp.ColorPreset))
}

func TestEnsureColorModeNeverStable(t *testing.T) {
	m := vcp.NewMock(map[vcp.Register]vcp.Value{vcp.ColorPreset: 5})
	m.Script(vcp.ColorPreset, vcp.Reads(5), vcp.Reads(5), vcp.Reads(12), vcp.Reads(12))
	m.Script(vcp.ColorPreset, alternating(12, 5, 20)...)
	s, _ := newTestSequencer(m, nil)

	require.ErrorIs(t, s.EnsureColorMode(testSnapshot(), 12), ErrNotStable)
}

func TestPrepareHDR(t *testing.T) {
	m := vcp.NewMock(nil)
	s, clock := newTestSequencer(m, nil)
	snap := testSnapshot()
	snap.HDR.ColorPreset = 7

	require.NoError(t, s.PrepareHDR(snap))
	assert.Empty(t, m.Writes())

	snap.ColorPresetChange = true
	require.NoError(t, s.PrepareHDR(snap))
	assert.Equal(t, []vcp.Write{{Display: 1, Register: vcp.ColorPreset, Value: 7}}, m.Writes())
	assert.Equal(t, []time.Duration{3 * time.Second}, clock.sleeps)
}
