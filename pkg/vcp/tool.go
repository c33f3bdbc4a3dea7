package vcp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hdrtray/hdrcal/pkg/runner"
)

// Registers gets and sets VCP registers on a display.
type Registers interface {
	// Get returns ErrUnreadable or ErrToolFailed when no value is available.
	Get(d Display, r Register) (Value, error)
	// Set reports whether the tool accepted the write. It does not read back.
	Set(d Display, r Register, v Value) error
}

// Tool drives a winddcutil-compatible executable:
//
//	<tool> getvcp <display> 0x<REG>
//	<tool> setvcp <display> 0x<REG> <value>
type Tool struct {
	path   string
	runner runner.Runner
	parser *Parser
}

var _ Registers = &Tool{}

// NewTool returns a Tool. A nil parser means NewParser().
func NewTool(path string, r runner.Runner, p *Parser) *Tool {
	if p == nil {
		p = NewParser()
	}
	return &Tool{
		path:   path,
		runner: r,
		parser: p,
	}
}

// Path returns the executable path.
func (t *Tool) Path() string {
	return t.path
}

func (t *Tool) command(sub string, d Display, r Register, extra ...string) runner.Command {
	args := []string{sub, strconv.Itoa(int(d)), "0x" + r.Hex()}
	return runner.Command{Path: t.path, Args: append(args, extra...)}
}

func (t *Tool) Get(d Display, r Register) (Value, error) {
	log := logrus.WithFields(logrus.Fields{
		"display":  d,
		"register": r,
	})
	log.Trace("reading VCP register")

	code, out, err := t.runner.RunCapturing(t.command("getvcp", d, r))
	if err != nil {
		return 0, fmt.Errorf("%w: getvcp %s: %v", ErrToolFailed, r, err)
	}
	if code != 0 {
		log.WithFields(logrus.Fields{
			"exitCode": code,
			"output":   strings.TrimSpace(out),
		}).Debug("getvcp exited non-zero")
		return 0, fmt.Errorf("%w: getvcp %s exited with %d", ErrToolFailed, r, code)
	}

	v, ok := t.parser.Parse(out)
	if !ok {
		log.WithField("output", strings.TrimSpace(out)).Debug("no value in getvcp output")
		return 0, fmt.Errorf("%w: %s", ErrUnreadable, r)
	}

	log.WithField("value", v).Trace("read VCP register")
	return v, nil
}

func (t *Tool) Set(d Display, r Register, v Value) error {
	logrus.WithFields(logrus.Fields{
		"display":  d,
		"register": r,
		"value":    v,
	}).Trace("writing VCP register")

	code, err := t.runner.Run(t.command("setvcp", d, r, strconv.Itoa(int(v))))
	if err != nil {
		return fmt.Errorf("%w: setvcp %s: %v", ErrToolFailed, r, err)
	}
	if code != 0 {
		return fmt.Errorf("%w: setvcp %s=%d exited with %d", ErrToolFailed, r, v, code)
	}
	return nil
}
