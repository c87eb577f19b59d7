package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// ExitNoLicense is the exit code the renderer uses for output produced
// without a license.
const ExitNoLicense = 2

// Process runs the renderer program at Path once per draw. The request is
// written to its stdin as JSON.
//
// The zero value is not usable - set Path.
type Process struct {
	Path string
	Args []string

	// Marker, when set, is reported instead of asking the program.
	Marker *Marker
	// Stdout receives the program's output when the request has no Output.
	// Defaults to discarding it.
	Stdout io.Writer
	Logger *log.Logger

	once    sync.Once
	version Marker
}

// Version asks the program once with --version. The first output line is
// read as "<version> [<commit>]".
func (p *Process) Version() Marker {
	if p.Marker != nil {
		return *p.Marker
	}
	p.once.Do(func() {
		out, err := exec.Command(p.Path, "--version").Output()
		if err != nil {
			p.logger().Warn("renderer version query failed", "path", p.Path, "error", err)
			return
		}
		p.version = parseMarker(out)
	})
	return p.version
}

func parseMarker(out []byte) Marker {
	sc := bufio.NewScanner(bytes.NewReader(out))
	if !sc.Scan() {
		return Marker{}
	}
	fields := strings.Fields(sc.Text())
	var m Marker
	if len(fields) > 0 {
		m.Version = fields[0]
	}
	if len(fields) > 1 {
		m.Commit = strings.Trim(fields[1], "()")
	}
	return m
}

// Draw runs the program. Exit code 0 is success, [ExitNoLicense] success
// without license, and a cancelled or expired context a timeout.
func (p *Process) Draw(ctx context.Context, req Request) Status {
	logger := p.logger()
	payload, err := json.Marshal(req)
	if err != nil {
		logger.Error("encode request", "error", err)
		return StatusError
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Path, p.Args...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = req.Output
	if cmd.Stdout == nil {
		cmd.Stdout = p.Stdout
	}
	if cmd.Stdout == nil {
		cmd.Stdout = io.Discard
	}
	cmd.Stderr = &stderr

	err = cmd.Run()
	if ctx.Err() != nil {
		return StatusTimeout
	}
	if err == nil {
		return StatusSuccess
	}
	var exit *exec.ExitError
	if errors.As(err, &exit) && exit.ExitCode() == ExitNoLicense {
		return StatusSuccessWithoutLicense
	}
	logger.Error("renderer failed", "path", p.Path, "error", err, "stderr", strings.TrimSpace(stderr.String()))
	return StatusError
}

func (p *Process) logger() *log.Logger {
	if p.Logger == nil {
		return log.Default()
	}
	return p.Logger
}

var _ Engine = (*Process)(nil)
