package mavlink

import "fmt"

// Custom-mode numbers to flight-mode names, per vehicle firmware.
var (
	CopterModes = map[uint32]string{
		0:  "STABILIZE",
		1:  "ACRO",
		2:  "ALT_HOLD",
		3:  "AUTO",
		4:  "GUIDED",
		5:  "LOITER",
		6:  "RTL",
		7:  "CIRCLE",
		9:  "LAND",
		11: "DRIFT",
		13: "SPORT",
		14: "FLIP",
		15: "AUTOTUNE",
		16: "POSHOLD",
		17: "BRAKE",
		18: "THROW",
		19: "AVOID_ADSB",
		20: "GUIDED_NOGPS",
		21: "SMART_RTL",
	}

	RoverModes = map[uint32]string{
		0:  "MANUAL",
		1:  "ACRO",
		3:  "STEERING",
		4:  "HOLD",
		5:  "LOITER",
		10: "AUTO",
		11: "RTL",
		12: "SMART_RTL",
		15: "GUIDED",
	}

	PlaneModes = map[uint32]string{
		0:  "MANUAL",
		1:  "CIRCLE",
		2:  "STABILIZE",
		3:  "TRAINING",
		4:  "ACRO",
		5:  "FBWA",
		6:  "FBWB",
		7:  "CRUISE",
		8:  "AUTOTUNE",
		10: "AUTO",
		11: "RTL",
		12: "LOITER",
		15: "GUIDED",
		17: "QSTABILIZE",
		18: "QHOVER",
		19: "QLOITER",
		20: "QLAND",
		21: "QRTL",
	}
)

// ModesFor returns the mode map for a vehicle type name.
func ModesFor(vehicle string) (map[uint32]string, error) {
	switch vehicle {
	case "copter", "":
		return CopterModes, nil
	case "rover":
		return RoverModes, nil
	case "plane":
		return PlaneModes, nil
	default:
		return nil, fmt.Errorf("unknown vehicle type %q", vehicle)
	}
}
