package robotcfg

import (
	"errors"
	"fmt"
	"strconv"
)

// Smart port range of the V5 brain.
const (
	MinPort = 1
	MaxPort = 21
)

var gearCartridges = map[string]bool{"6_1": true, "18_1": true, "36_1": true}

// Validate checks the values the robot would reject or misread. It reports
// every problem found, joined into one error.
func (c Config) Validate() error {
	var errs []error
	used := make(map[int]string)

	checkPort := func(name, value string) {
		n, err := strconv.Atoi(value)
		if err != nil || n < MinPort || n > MaxPort {
			errs = append(errs, fmt.Errorf("%s: port %q must be %d-%d", name, value, MinPort, MaxPort))
			return
		}
		if other, ok := used[n]; ok {
			errs = append(errs, fmt.Errorf("%s: port %d already used by %s", name, n, other))
			return
		}
		used[n] = name
	}

	for _, slot := range motorSlots {
		m := slot.get(&c)
		checkPort(slot.Section, m.Port)
		if !validGearRatio(m.GearRatio) {
			errs = append(errs, fmt.Errorf("%s: gear ratio %q must be 6_1, 18_1, 36_1 or a positive number", slot.Section, m.GearRatio))
		}
	}
	checkPort(SectionInertial, c.InertialPort)

	if len(c.RearBumperPort) != 1 || c.RearBumperPort[0] < 'A' || c.RearBumperPort[0] > 'H' {
		errs = append(errs, fmt.Errorf("%s: 3-wire port %q must be A-H", SectionRearBumper, c.RearBumperPort))
	}

	if n, err := strconv.Atoi(c.MaxOptionsSize); err != nil || n < 4 {
		errs = append(errs, fmt.Errorf("%s: %q must be an integer of at least 4", KeyMaxOptionsSize, c.MaxOptionsSize))
	}
	for _, kv := range []KeyValue{{KeyPollingRate, c.PollingRate}, {KeyCtrlr1PollingRate, c.Ctrlr1PollingRate}} {
		if n, err := strconv.Atoi(kv.Value); err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("%s: %q must be a positive integer", kv.Key, kv.Value))
		}
	}
	if c.Version == "" {
		errs = append(errs, errors.New("VERSION is empty"))
	}

	return errors.Join(errs...)
}

func validGearRatio(s string) bool {
	if gearCartridges[s] {
		return true
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && f > 0
}
