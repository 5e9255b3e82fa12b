// Package browser opens generated reports in the system default browser.
package browser

import (
	"net/url"
	"os/exec"
	"path/filepath"
	"runtime"
)

// OpenFile opens the local file at path. The file is passed as a file:// URL.
func OpenFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return Open(FileURL(abs))
}

// Open opens target in the system default browser without waiting for it.
func Open(target string) error {
	return command(runtime.GOOS, target).Start()
}

// FileURL converts an absolute path to a file:// URL.
func FileURL(abs string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	if filepath.VolumeName(abs) != "" {
		// C:\x → file:///C:/x
		u.Path = "/" + filepath.ToSlash(abs)
	}
	return u.String()
}

func command(goos, target string) *exec.Cmd {
	switch goos {
	case "windows":
		return exec.Command("cmd", "/c", "start", "", target)
	case "darwin":
		return exec.Command("open", target)
	default: // linux + others
		return exec.Command("xdg-open", target)
	}
}
