// Package deps checks that external binaries the queue hands work to are
// installed.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Requirement defines an external binary ytqueue relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, checkBinary(req))
	}
	return results
}

func checkBinary(req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if cmd == "" {
		status.Detail = "command not configured"
		return status
	}
	if _, err := exec.LookPath(cmd); err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", cmd)
		return status
	}
	status.Available = true
	return status
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			out = append(out, status)
		}
	}
	return out
}

// CheckFFmpegNextTo reports the ffmpeg the engine will use. A bundled ffmpeg
// beside the engine binary wins over one found on PATH.
func CheckFFmpegNextTo(engineCommand string) Status {
	status := Status{
		Name:        "FFmpeg",
		Description: "Used by the engine for video composition",
		Optional:    true,
	}
	if resolved, err := exec.LookPath(strings.TrimSpace(engineCommand)); err == nil && engineCommand != "" {
		bundled := filepath.Join(filepath.Dir(resolved), "ffmpeg")
		if info, err := os.Stat(bundled); err == nil && !info.IsDir() && info.Mode().Perm()&0o111 != 0 {
			status.Command = bundled
			status.Available = true
			return status
		}
	}
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		status.Command = path
		status.Available = true
		return status
	}
	status.Command = "ffmpeg"
	status.Detail = `binary "ffmpeg" not found`
	return status
}
