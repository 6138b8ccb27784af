package robotcfg

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ParseError reports a problem on a specific line of a configuration block.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Parse reads a configuration block. Scalar settings may appear at the top
// level or inside MOTOR_CONFIG; motor, INERTIAL and Rear_Bumper sections may
// appear inside MOTOR_CONFIG, and INERTIAL also at the top level.
func Parse(r io.Reader) (Config, error) {
	p := parser{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		p.line++
		if err := p.handle(strings.TrimSpace(sc.Text())); err != nil {
			return Config{}, err
		}
	}
	if err := sc.Err(); err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if p.pending != "" {
		return Config{}, p.errorf("section %s never opened", p.pending)
	}
	if len(p.stack) > 0 {
		return Config{}, p.errorf("unclosed section %s", p.stack[len(p.stack)-1])
	}
	return p.cfg, nil
}

type parser struct {
	cfg     Config
	line    int
	stack   []string
	pending string
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Line: p.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) handle(line string) error {
	if line == "" || line[0] == '#' || line[0] == ';' {
		return nil
	}

	if p.pending != "" {
		if line != "{" {
			return p.errorf("expected { after %s, got %q", p.pending, line)
		}
		return p.open(p.pending)
	}

	switch {
	case line == "}":
		if len(p.stack) == 0 {
			return p.errorf("unexpected }")
		}
		p.stack = p.stack[:len(p.stack)-1]
		return nil
	case strings.HasSuffix(line, "{"):
		name := strings.TrimSpace(strings.TrimSuffix(line, "{"))
		if name == "" {
			return p.errorf("section without a name")
		}
		return p.open(name)
	case strings.Contains(line, "="):
		key, value, _ := strings.Cut(line, "=")
		return p.assign(strings.TrimSpace(key), strings.TrimSpace(value))
	default:
		if strings.ContainsAny(line, " \t") {
			return p.errorf("invalid line %q", line)
		}
		p.pending = line
		return nil
	}
}

func (p *parser) open(name string) error {
	p.pending = ""
	depth := len(p.stack)
	switch {
	case depth == 0 && (name == SectionMotorConfig || strings.EqualFold(name, SectionInertial)):
	case depth == 1 && p.stack[0] == SectionMotorConfig && p.deviceSection(name):
	default:
		return p.errorf("unexpected section %s", name)
	}
	p.stack = append(p.stack, name)
	return nil
}

func (p *parser) deviceSection(name string) bool {
	if strings.EqualFold(name, SectionInertial) || strings.EqualFold(name, SectionRearBumper) {
		return true
	}
	for _, slot := range motorSlots {
		if name == slot.Section {
			return true
		}
	}
	return false
}

func (p *parser) assign(key, value string) error {
	if len(p.stack) == 0 || (len(p.stack) == 1 && p.stack[0] == SectionMotorConfig) {
		return p.assignSetting(key, value)
	}
	return p.assignDevice(p.stack[len(p.stack)-1], key, value)
}

func (p *parser) assignDevice(section, key, value string) error {
	switch {
	case strings.EqualFold(section, SectionInertial):
		if key != KeyPort {
			return p.errorf("unknown key %s in %s", key, section)
		}
		p.cfg.InertialPort = value
		return nil
	case strings.EqualFold(section, SectionRearBumper):
		if key != KeyPort {
			return p.errorf("unknown key %s in %s", key, section)
		}
		p.cfg.RearBumperPort = value
		return nil
	}

	for _, slot := range motorSlots {
		if slot.Section != section {
			continue
		}
		m := slot.get(&p.cfg)
		switch key {
		case KeyPort:
			m.Port = value
		case KeyGearRatio:
			m.GearRatio = value
		case KeyReversed:
			b, err := parseBool(value)
			if err != nil {
				return p.errorf("%s.%s: %v", section, key, err)
			}
			m.Reversed = b
		default:
			return p.errorf("unknown key %s in %s", key, section)
		}
		return nil
	}
	return p.errorf("unknown section %s", section)
}

func (p *parser) assignSetting(key, value string) error {
	switch key {
	case KeyPrintLogo, KeyLogToFile:
		b, err := parseBool(value)
		if err != nil {
			return p.errorf("%s: %v", key, err)
		}
		if key == KeyPrintLogo {
			p.cfg.PrintLogo = b
		} else {
			p.cfg.LogToFile = b
		}
	case KeyMaxOptionsSize:
		p.cfg.MaxOptionsSize = value
	case KeyPollingRate:
		p.cfg.PollingRate = value
	case KeyCtrlr1PollingRate:
		p.cfg.Ctrlr1PollingRate = value
	case KeyVersion:
		p.cfg.Version = value
	default:
		if !extraKeys[key] {
			return p.errorf("unknown key %s", key)
		}
		p.cfg.Extras = append(p.cfg.Extras, KeyValue{Key: key, Value: value})
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch s {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}
