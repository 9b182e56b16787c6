package credentials

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// ProcessInfo describes one running language-server process as parsed
// from its command line.
type ProcessInfo struct {
	PID     int
	CSRF    string
	ExtPort int
	Version string
	Line    string
}

// Inspector abstracts the OS surfaces the resolver reads: the process
// table, per-PID socket listings, and the IDE's auth database. Each
// platform has its own idiom for the first two; the third is SQLite
// everywhere.
type Inspector interface {
	EnumerateLanguageServers(ctx context.Context) ([]ProcessInfo, error)
	ListeningPorts(ctx context.Context, pid int) ([]int, error)
	ReadAuthDB(path string) (string, error)
}

// serverBinaryMarker matches the vendor's language-server binary name in
// process command lines.
func serverBinaryMarker() string {
	switch runtime.GOOS {
	case "darwin":
		return "language_server_macos"
	case "windows":
		return "language_server_windows"
	default:
		return "language_server_linux"
	}
}

// systemInspector shells out to the platform tools. All parsing lives in
// pure helpers so it can be tested without a live process table.
type systemInspector struct{}

// NewSystemInspector returns the Inspector for the current platform.
func NewSystemInspector() Inspector {
	return systemInspector{}
}

func (systemInspector) EnumerateLanguageServers(ctx context.Context) ([]ProcessInfo, error) {
	marker := serverBinaryMarker()

	if runtime.GOOS == "windows" {
		out, err := exec.CommandContext(ctx, "wmic", "process", "get", "ProcessId,CommandLine", "/format:list").Output()
		if err != nil {
			return nil, fmt.Errorf("query process table: %w", err)
		}
		return parseWmicProcesses(string(out), marker, os.Getpid()), nil
	}

	out, err := exec.CommandContext(ctx, "ps", "-axo", "pid=,command=").Output()
	if err != nil {
		return nil, fmt.Errorf("query process table: %w", err)
	}
	return parsePSProcesses(string(out), marker, os.Getpid()), nil
}

func (systemInspector) ListeningPorts(ctx context.Context, pid int) ([]int, error) {
	switch runtime.GOOS {
	case "linux":
		ports, err := linuxListeningPorts(pid)
		if err == nil && len(ports) > 0 {
			return ports, nil
		}
		out, ssErr := exec.CommandContext(ctx, "ss", "-tlnp").Output()
		if ssErr != nil {
			if err != nil {
				return nil, err
			}
			return nil, ssErr
		}
		return parseSSPorts(string(out), pid), nil
	case "darwin":
		out, err := exec.CommandContext(ctx, "lsof", "-a", "-p", strconv.Itoa(pid), "-i", "-P", "-n").Output()
		if err != nil {
			return nil, fmt.Errorf("lsof for pid %d: %w", pid, err)
		}
		return parseLsofPorts(string(out)), nil
	case "windows":
		out, err := exec.CommandContext(ctx, "netstat", "-ano", "-p", "TCP").Output()
		if err != nil {
			return nil, fmt.Errorf("netstat: %w", err)
		}
		return parseNetstatPorts(string(out), pid), nil
	default:
		return nil, fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
}

// linuxListeningPorts intersects the pid's socket fd inodes with the
// kernel's TCP tables.
func linuxListeningPorts(pid int) ([]int, error) {
	fdDir := fmt.Sprintf("/proc/%d/fd", pid)
	entries, err := os.ReadDir(fdDir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fdDir, err)
	}

	inodes := make(map[string]struct{})
	for _, entry := range entries {
		target, err := os.Readlink(filepath.Join(fdDir, entry.Name()))
		if err != nil {
			continue
		}
		if inode, ok := strings.CutPrefix(target, "socket:["); ok {
			inodes[strings.TrimSuffix(inode, "]")] = struct{}{}
		}
	}

	var ports []int
	for _, table := range []string{"/proc/net/tcp", "/proc/net/tcp6"} {
		data, err := os.ReadFile(table)
		if err != nil {
			continue
		}
		ports = append(ports, parseProcNetTCP(string(data), inodes)...)
	}
	return ports, nil
}
