// Package config loads the engine attributes a host exposes as
// user-facing knobs (ramp, snramp, snrcurv, interp, syncout, report)
// from a YAML file, tolerating a missing file the way a device table
// loaded from tocalls.yaml would.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rjw57/loopcore/loopcore"
)

// Attrs mirrors the YAML attribute file shape. Field names match the
// lower-case attribute names a control script or host flag would use.
type Attrs struct {
	Ramp     int    `yaml:"ramp"`
	SnrRamp  int    `yaml:"snramp"`
	SnrCurve string `yaml:"snrcurv"`
	Interp   string `yaml:"interp"`
	SyncOut  bool   `yaml:"syncout"`
	ReportMS int    `yaml:"report"`
}

// defaults mirror the documented attribute defaults.
func defaults() Attrs {
	return Attrs{
		Ramp:     256,
		SnrRamp:  64,
		SnrCurve: "linear",
		Interp:   "cubic",
		SyncOut:  false,
		ReportMS: 0,
	}
}

// Load reads and parses an attributes file. A missing file is not an
// error; it yields the documented defaults, the same "not found at
// this candidate path, fall through" tolerance a device-table search
// list would apply.
func Load(path string) (Attrs, error) {
	a := defaults()
	if path == "" {
		return a, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return a, nil
	}
	if err != nil {
		return a, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &a); err != nil {
		return a, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return a, nil
}

// interpByName maps the YAML interp string to the core's Interp enum,
// defaulting to cubic for anything unrecognized.
func interpByName(name string) loopcore.Interp {
	switch name {
	case "linear":
		return loopcore.InterpLinear
	case "spline":
		return loopcore.InterpSpline
	default:
		return loopcore.InterpCubic
	}
}

// curveByName maps the YAML snrcurv string to SwitchRampCurve.
func curveByName(name string) loopcore.SwitchRampCurve {
	switch name {
	case "sine_in":
		return loopcore.CurveSineIn
	case "cubic_in":
		return loopcore.CurveCubicIn
	case "cubic_out":
		return loopcore.CurveCubicOut
	case "exp_in":
		return loopcore.CurveExpIn
	case "exp_out":
		return loopcore.CurveExpOut
	case "exp_in_out":
		return loopcore.CurveExpInOut
	default:
		return loopcore.CurveLinear
	}
}

// Options translates Attrs into the loopcore.Option set New expects.
func (a Attrs) Options(w loopcore.Warner) []loopcore.Option {
	return []loopcore.Option{
		loopcore.WithInterp(interpByName(a.Interp)),
		loopcore.WithRamp(a.Ramp),
		loopcore.WithSnrRamp(a.SnrRamp),
		loopcore.WithSnrCurve(curveByName(a.SnrCurve)),
		loopcore.WithWarner(w),
	}
}
