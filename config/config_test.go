package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwicat/oscremap/config"
)

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `
params: 16
params_in_row: 4
daw_osc:
  listen_ip: 0.0.0.0
  listen_port: 9001
  remote_ip: 127.0.0.1
  remote_port: 9002
controller_osc:
  listen_ip: 0.0.0.0
  listen_port: 9003
  remote_ip: 127.0.0.1
  remote_port: 9004
midi:
  input_port_name: "Controller In"
  output_port_name: "Controller Out"
  param_channel: 0
  cmd_channel: 1
  cc_param_start: 0
  cc_learn: 56
  cc_toggle_ui: 57
  cc_bypass_fx: 58
  cc_prev_fx: 59
  cc_next_fx: 60
  cc_fx_follow: 61
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Params)
	assert.Equal(t, 4, cfg.ParamsInRow)
	assert.Equal(t, 9001, cfg.DawOSC.ListenPort)
	assert.Equal(t, "127.0.0.1", cfg.ControllerOSC.RemoteIP)
	assert.Equal(t, "Controller In", cfg.Midi.InputPortName)
	assert.Equal(t, uint8(56), cfg.Midi.CCLearn)
}

func TestCCParamMapBijection(t *testing.T) {
	m := config.Midi{CCParamStart: 10}
	cpm := m.CCParamMap(4)

	for source := 1; source <= 4; source++ {
		cc, ok := cpm.CC(source)
		require.True(t, ok)
		assert.Equal(t, uint8(9+source), cc)

		gotSource, ok := cpm.Source(cc)
		require.True(t, ok)
		assert.Equal(t, source, gotSource)
	}

	_, ok := cpm.Source(14)
	assert.False(t, ok)
}

func TestInParamRangeHalfOpen(t *testing.T) {
	// cc_param_end = cc_param_start + params is exclusive (REDESIGN
	// FLAG resolution): cc_param_start=0, params=16 means CC 16 is
	// NOT a parameter CC, only 0..15 are.
	m := config.Midi{CCParamStart: 0}
	assert.True(t, m.InParamRange(0, 16))
	assert.True(t, m.InParamRange(15, 16))
	assert.False(t, m.InParamRange(16, 16))
}
