// Package procinfo collects properties of the observed process from the
// /proc filesystem. The engine uses the entry point as the fallback
// executable when a report carries none of its own.
package procinfo

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/mhabrnal/abrt-java-connector/internal/fault"
)

// Properties holds process-level information attached to reports.
type Properties struct {
	PID        int
	Executable string // resolved /proc/<pid>/exe target
	Command    string // full command line
	EntryPoint string // main class or script, best effort
}

// Collect reads the properties of a process. Fields that cannot be resolved
// are left with defined defaults rather than failing the whole collection;
// an error is returned only when the process does not exist at all.
func Collect(pid int) (*Properties, error) {
	procDir := fmt.Sprintf("/proc/%d", pid)
	if _, err := os.Stat(procDir); err != nil {
		return nil, fmt.Errorf("process %d: %w", pid, err)
	}

	p := &Properties{
		PID:        pid,
		EntryPoint: fault.UnknownClass,
	}

	if exe, err := os.Readlink(procDir + "/exe"); err == nil {
		p.Executable = exe
	}

	if data, err := os.ReadFile(procDir + "/cmdline"); err == nil {
		args := splitCmdline(data)
		p.Command = strings.Join(args, " ")
		if entry := EntryPointFromArgs(args); entry != "" {
			p.EntryPoint = entry
		}
	}

	return p, nil
}

// FallbackExecutable returns the value reports fall back to when they carry
// no executable of their own: the entry point when known, else the resolved
// executable path.
func (p *Properties) FallbackExecutable() string {
	if p == nil {
		return fault.UnknownClass
	}
	if p.EntryPoint != "" && p.EntryPoint != fault.UnknownClass {
		return p.EntryPoint
	}
	if p.Executable != "" {
		return p.Executable
	}
	return fault.UnknownClass
}

// splitCmdline splits the NUL-separated /proc cmdline format.
func splitCmdline(data []byte) []string {
	parts := bytes.Split(bytes.TrimRight(data, "\x00"), []byte{0})
	args := make([]string, 0, len(parts))
	for _, part := range parts {
		if len(part) > 0 {
			args = append(args, string(part))
		}
	}
	return args
}

// optionsWithValue are launcher options that consume the following argument.
var optionsWithValue = map[string]bool{
	"-cp":          true,
	"-classpath":   true,
	"--class-path": true,
	"--module":     true,
	"-jar":         true,
}

// EntryPointFromArgs finds the entry point in a launcher command line: the
// first argument after the launcher itself that is neither an option nor an
// option's value. For "-jar app.jar" the jar path is the entry point.
func EntryPointFromArgs(args []string) string {
	for i := 1; i < len(args); i++ {
		arg := args[i]
		if optionsWithValue[arg] {
			if arg == "-jar" && i+1 < len(args) {
				return args[i+1]
			}
			i++ // skip the option's value
			continue
		}
		if strings.HasPrefix(arg, "-") {
			continue
		}
		return arg
	}
	return ""
}
