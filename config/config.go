// Package config holds the immutable configuration record consumed
// by the proxy core. Parsing it from the command line and generating
// a default configuration are deliberately out of scope for this
// package; Load here is a thin YAML loader for a single profile.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// OSCEndpoint describes one side of a bidirectional OSC link.
type OSCEndpoint struct {
	ListenIP   string `yaml:"listen_ip"`
	ListenPort int    `yaml:"listen_port"`
	RemoteIP   string `yaml:"remote_ip"`
	RemotePort int    `yaml:"remote_port"`
}

// Midi holds the controller's MIDI port names, channel assignments,
// and command CC numbers.
type Midi struct {
	InputPortName  string `yaml:"input_port_name"`
	OutputPortName string `yaml:"output_port_name"`
	ParamChannel   uint8  `yaml:"param_channel"`
	CmdChannel     uint8  `yaml:"cmd_channel"`
	CCParamStart   uint8  `yaml:"cc_param_start"`
	CCLearn        uint8  `yaml:"cc_learn"`
	CCToggleUI     uint8  `yaml:"cc_toggle_ui"`
	CCBypassFx     uint8  `yaml:"cc_bypass_fx"`
	CCPrevFx       uint8  `yaml:"cc_prev_fx"`
	CCNextFx       uint8  `yaml:"cc_next_fx"`
	CCFxFollow     uint8  `yaml:"cc_fx_follow"`
}

// Config is the immutable configuration record described in spec §3.
type Config struct {
	Params        int         `yaml:"params"`
	ParamsInRow   int         `yaml:"params_in_row"`
	DawOSC        OSCEndpoint `yaml:"daw_osc"`
	ControllerOSC OSCEndpoint `yaml:"controller_osc"`
	Midi          Midi        `yaml:"midi"`
}

// CCParamMap is the static bijection between CC numbers and source
// parameter slots, derived once from Config.
type CCParamMap struct {
	ccToSource map[uint8]int
	sourceToCC map[int]uint8
}

// CCParamMap builds the CC-number<->source-param bijection:
// cc_number = cc_param_start + (source_param - 1) for source_param in
// 1..params.
func (m Midi) CCParamMap(params int) CCParamMap {
	cpm := CCParamMap{
		ccToSource: make(map[uint8]int, params),
		sourceToCC: make(map[int]uint8, params),
	}
	for source := 1; source <= params; source++ {
		cc := m.CCParamStart + uint8(source-1)
		cpm.ccToSource[cc] = source
		cpm.sourceToCC[source] = cc
	}
	return cpm
}

// Source returns the source parameter bound to cc, if cc is a
// parameter CC.
func (m CCParamMap) Source(cc uint8) (int, bool) {
	source, ok := m.ccToSource[cc]
	return source, ok
}

// CC returns the CC number bound to source, if source is in range.
func (m CCParamMap) CC(source int) (uint8, bool) {
	cc, ok := m.sourceToCC[source]
	return cc, ok
}

// CCs returns every CC number in the map, in ascending source order.
func (m CCParamMap) CCs() []uint8 {
	ccs := make([]uint8, 0, len(m.sourceToCC))
	for source := 1; source <= len(m.sourceToCC); source++ {
		ccs = append(ccs, m.sourceToCC[source])
	}
	return ccs
}

// InParamRange reports whether cc falls within the half-open
// parameter CC range [cc_param_start, cc_param_start+params).
func (m Midi) InParamRange(cc uint8, params int) bool {
	end := m.CCParamStart + uint8(params)
	return cc >= m.CCParamStart && cc < end
}

// Load reads and parses a Config from a YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}
