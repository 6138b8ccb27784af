package robotcfg

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
)

// Motor is one drive motor.
type Motor struct {
	Port      string
	GearRatio string
	Reversed  bool
}

// KeyValue is a device setting the site form does not produce.
type KeyValue struct {
	Key   string
	Value string
}

// Config is the content of a configuration block.
type Config struct {
	FrontLeft  Motor
	FrontRight Motor
	RearLeft   Motor
	RearRight  Motor

	InertialPort   string
	RearBumperPort string

	PrintLogo         bool
	LogToFile         bool
	MaxOptionsSize    string
	PollingRate       string
	Ctrlr1PollingRate string

	// Extras are written after CTRLR1POLLINGRATE in the order given.
	Extras []KeyValue

	Version string
}

// motorSlot ties a section name to its form field prefix.
type motorSlot struct {
	Section string
	Field   string
	get     func(*Config) *Motor
}

// motorSlots lists the drive motors in block order.
var motorSlots = []motorSlot{
	{"FRONT_LEFT_MOTOR", "front_left", func(c *Config) *Motor { return &c.FrontLeft }},
	{"FRONT_RIGHT_MOTOR", "front_right", func(c *Config) *Motor { return &c.FrontRight }},
	{"REAR_LEFT_MOTOR", "rear_left", func(c *Config) *Motor { return &c.RearLeft }},
	{"REAR_RIGHT_MOTOR", "rear_right", func(c *Config) *Motor { return &c.RearRight }},
}

// MotorField names a drive motor's block section and form field prefix.
type MotorField struct {
	Section string
	Field   string
}

// MotorFields lists the drive motors in block order.
func MotorFields() []MotorField {
	out := make([]MotorField, len(motorSlots))
	for i, s := range motorSlots {
		out[i] = MotorField{Section: s.Section, Field: s.Field}
	}
	return out
}

// Section and key names.
const (
	SectionMotorConfig = "MOTOR_CONFIG"
	SectionInertial    = "INERTIAL"
	SectionRearBumper  = "Rear_Bumper"

	KeyPort              = "PORT"
	KeyGearRatio         = "GEAR_RATIO"
	KeyReversed          = "REVERSED"
	KeyPrintLogo         = "PRINTLOGO"
	KeyLogToFile         = "LOGTOFILE"
	KeyMaxOptionsSize    = "MAXOPTIONSSIZE"
	KeyPollingRate       = "POLLINGRATE"
	KeyCtrlr1PollingRate = "CTRLR1POLLINGRATE"
	KeyVersion           = "VERSION"
)

// extraKeys are the device settings accepted in Extras.
var extraKeys = map[string]bool{
	"CONFIGTYPE":     true,
	"TEAMNUMBER":     true,
	"LOADINGGIFPATH": true,
	"AUTOGIFPATH":    true,
	"DRIVEGIFPATH":   true,
	"CUSTOMMESSAGE":  true,
	"DRIVEMODE":      true,
	"LOGLEVEL":       true,
}

// FromForm builds a Config from submitted form values. Checkbox fields are
// true when present, whatever their value. Other values are copied verbatim.
func FromForm(form url.Values, version string) Config {
	var cfg Config
	for _, slot := range motorSlots {
		m := slot.get(&cfg)
		m.Port = form.Get(slot.Field + "_port")
		m.GearRatio = form.Get(slot.Field + "_gear_ratio")
		m.Reversed = form.Has(slot.Field + "_reversed")
	}
	cfg.InertialPort = form.Get("inertial_port")
	cfg.RearBumperPort = form.Get("rear_bumper_port")
	cfg.PrintLogo = form.Has("print_logo")
	cfg.LogToFile = form.Has("log_to_file")
	cfg.MaxOptionsSize = form.Get("max_options_size")
	cfg.PollingRate = form.Get("polling_rate")
	cfg.Ctrlr1PollingRate = form.Get("ctrlr1_polling_rate")
	cfg.Version = version
	return cfg
}

// Default returns the configuration the robot writes when it resets its SD
// card file.
func Default(version string) Config {
	return Config{
		FrontLeft:         Motor{Port: "1", GearRatio: "6_1"},
		FrontRight:        Motor{Port: "10", GearRatio: "6_1", Reversed: true},
		RearLeft:          Motor{Port: "11", GearRatio: "6_1"},
		RearRight:         Motor{Port: "20", GearRatio: "6_1", Reversed: true},
		InertialPort:      "3",
		RearBumperPort:    "A",
		PrintLogo:         true,
		LogToFile:         true,
		MaxOptionsSize:    "4",
		PollingRate:       "5",
		Ctrlr1PollingRate: "25",
		Extras: []KeyValue{
			{"CONFIGTYPE", "Brain"},
			{"TEAMNUMBER", "12"},
			{"LOADINGGIFPATH", "loading.gif"},
			{"AUTOGIFPATH", "auto.gif"},
			{"DRIVEGIFPATH", "drive.gif"},
			{"CUSTOMMESSAGE", "test"},
			{"DRIVEMODE", "Split"},
		},
		Version: version,
	}
}

// WriteTo writes the configuration block to w.
func (c Config) WriteTo(w io.Writer) (int64, error) {
	var b bytes.Buffer

	fmt.Fprintf(&b, "%s\n{\n", SectionMotorConfig)
	for _, slot := range motorSlots {
		m := slot.get(&c)
		fmt.Fprintf(&b, "  %s\n  {\n", slot.Section)
		fmt.Fprintf(&b, "      %s=%s\n", KeyPort, m.Port)
		fmt.Fprintf(&b, "      %s=%s\n", KeyGearRatio, m.GearRatio)
		fmt.Fprintf(&b, "      %s=%t\n", KeyReversed, m.Reversed)
		fmt.Fprintf(&b, "  }\n")
	}
	fmt.Fprintf(&b, "  %s\n  {\n      %s=%s\n  }\n", SectionInertial, KeyPort, c.InertialPort)
	fmt.Fprintf(&b, "  %s\n  {\n      %s=%s\n  }\n", SectionRearBumper, KeyPort, c.RearBumperPort)
	fmt.Fprintf(&b, "  %s=%t\n", KeyPrintLogo, c.PrintLogo)
	fmt.Fprintf(&b, "  %s=%t\n", KeyLogToFile, c.LogToFile)
	fmt.Fprintf(&b, "  %s=%s\n", KeyMaxOptionsSize, c.MaxOptionsSize)
	fmt.Fprintf(&b, "  %s=%s\n", KeyPollingRate, c.PollingRate)
	fmt.Fprintf(&b, "  %s=%s\n", KeyCtrlr1PollingRate, c.Ctrlr1PollingRate)
	for _, kv := range c.Extras {
		fmt.Fprintf(&b, "  %s=%s\n", kv.Key, kv.Value)
	}
	fmt.Fprintf(&b, "  %s=%s\n", KeyVersion, c.Version)
	b.WriteString("}")

	return b.WriteTo(w)
}

// String returns the configuration block.
func (c Config) String() string {
	var b bytes.Buffer
	_, _ = c.WriteTo(&b)
	return b.String()
}
