package infra

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/shirou/gopsutil/v3/process"
)

const debugPortFlag = "--remote-debugging-port"

// ErrHostNotRunning is returned when no host process exposes a debug port.
var ErrHostNotRunning = errors.New("host process with remote debugging not found")

// ProcessInfo is the subset of a running process the locator looks at.
type ProcessInfo struct {
	PID     int32
	Name    string
	Cmdline []string
}

// HostLocator finds the DevTools endpoint of the running host application.
type HostLocator struct {
	processName string
	list        func(ctx context.Context) ([]ProcessInfo, error)
}

// NewHostLocator creates a locator for processes whose name contains
// processName (case-insensitive).
func NewHostLocator(processName string) *HostLocator {
	return &HostLocator{processName: processName, list: listProcesses}
}

// listProcesses enumerates processes with gopsutil. Processes that exit
// mid-scan are skipped.
func listProcesses(ctx context.Context) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue // Process may have exited
		}
		cmdline, err := p.CmdlineSliceWithContext(ctx)
		if err != nil {
			continue
		}
		out = append(out, ProcessInfo{PID: p.Pid, Name: name, Cmdline: cmdline})
	}
	return out, nil
}

// DebugAddress returns host:port of the first matching process started
// with a remote debugging port.
func (l *HostLocator) DebugAddress(ctx context.Context) (string, error) {
	procs, err := l.list(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list processes: %w", err)
	}
	want := strings.ToLower(l.processName)
	for _, p := range procs {
		if !strings.Contains(strings.ToLower(p.Name), want) {
			continue
		}
		if port, ok := DebugPort(p.Cmdline); ok {
			return net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrHostNotRunning, l.processName)
}

// Resolve returns the DevTools websocket URL for the host.
func (l *HostLocator) Resolve(ctx context.Context) (string, error) {
	addr, err := l.DebugAddress(ctx)
	if err != nil {
		return "", err
	}
	return launcher.ResolveURL(addr)
}

// DebugPort extracts the remote debugging port from a command line.
// Both "--flag=N" and "--flag N" are accepted. Port 0 (random) is rejected.
func DebugPort(cmdline []string) (int, bool) {
	for i, arg := range cmdline {
		var raw string
		switch {
		case strings.HasPrefix(arg, debugPortFlag+"="):
			raw = strings.TrimPrefix(arg, debugPortFlag+"=")
		case arg == debugPortFlag && i+1 < len(cmdline):
			raw = cmdline[i+1]
		default:
			continue
		}
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return 0, false
		}
		return port, true
	}
	return 0, false
}

// StaticResolver returns a resolver for a configured control URL. A bare
// host:port is resolved to the websocket endpoint on each call.
func StaticResolver(controlURL string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		if strings.HasPrefix(controlURL, "ws://") || strings.HasPrefix(controlURL, "wss://") {
			return controlURL, nil
		}
		return launcher.ResolveURL(controlURL)
	}
}
