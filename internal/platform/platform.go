// Package platform describes the host the commands will run on.
package platform

import (
	"bufio"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Info is what the prompt and the cache key need to know about the host.
type Info struct {
	OSName    string `json:"os_name"`
	OSVersion string `json:"os_version,omitempty"`
	Distro    string `json:"distro,omitempty"`
	Shell     string `json:"shell,omitempty"`
	Arch      string `json:"arch"`
}

// Name is the value used in cache keys.
func (i Info) Name() string {
	if i.Distro != "" {
		return i.OSName + "/" + i.Distro
	}
	return i.OSName
}

// String renders a one-line description.
func (i Info) String() string {
	parts := []string{i.OSName}
	if i.Distro != "" {
		parts = append(parts, i.Distro)
	}
	if i.OSVersion != "" {
		parts = append(parts, i.OSVersion)
	}
	parts = append(parts, i.Arch)
	s := strings.Join(parts, " ")
	if i.Shell != "" {
		s += ", shell " + i.Shell
	}
	return s
}

// Detect inspects the running host. Missing details are left empty.
func Detect() Info {
	info := Info{
		OSName: runtime.GOOS,
		Arch:   runtime.GOARCH,
		Shell:  filepath.Base(os.Getenv("SHELL")),
	}
	if info.Shell == "." {
		info.Shell = ""
	}

	switch runtime.GOOS {
	case "linux":
		if f, err := os.Open("/etc/os-release"); err == nil {
			info.Distro, info.OSVersion = ParseOSRelease(f)
			f.Close()
		}
		if info.OSVersion == "" {
			info.OSVersion = uname()
		}
	case "darwin":
		if out, err := exec.Command("sw_vers", "-productVersion").Output(); err == nil {
			info.OSVersion = strings.TrimSpace(string(out))
		}
	default:
		info.OSVersion = uname()
	}
	return info
}

// ParseOSRelease reads the distribution name and version from an
// os-release file.
func ParseOSRelease(r io.Reader) (distro, version string) {
	fields := map[string]string{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields[k] = strings.Trim(v, `"'`)
	}

	distro = fields["ID"]
	if distro == "" {
		distro = strings.ToLower(fields["NAME"])
	}
	version = fields["VERSION_ID"]
	return distro, version
}

func uname() string {
	if runtime.GOOS == "windows" {
		return ""
	}
	out, err := exec.Command("uname", "-r").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
