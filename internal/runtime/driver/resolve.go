package driver

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrBrowserNotFound is returned when no Chromium executable can be located.
var ErrBrowserNotFound = errors.New("chromium browser not found")

var browserNames = []string{
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"microsoft-edge",
	"brave-browser",
}

// ResolveBrowser returns an executable path. A configured value must exist;
// an empty value triggers detection.
func ResolveBrowser(configured string) (string, error) {
	if configured != "" {
		if path, ok := resolveExecutablePath(configured); ok {
			return path, nil
		}
		return "", errors.New("browser not found: " + configured)
	}
	return FindBrowser()
}

// FindBrowser searches PATH and the usual install locations.
func FindBrowser() (string, error) {
	for _, name := range browserNames {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}

	home, _ := os.UserHomeDir()
	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = append(candidates,
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
			filepath.Join(home, "Applications/Google Chrome.app/Contents/MacOS/Google Chrome"),
		)
	case "linux":
		candidates = append(candidates,
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/usr/bin/google-chrome",
			"/snap/bin/chromium",
			"/opt/google/chrome/chrome",
		)
	case "windows":
		candidates = append(candidates,
			filepath.Join(os.Getenv("ProgramFiles"), "Google", "Chrome", "Application", "chrome.exe"),
			filepath.Join(os.Getenv("ProgramFiles(x86)"), "Google", "Chrome", "Application", "chrome.exe"),
			filepath.Join(home, "AppData", "Local", "Google", "Chrome", "Application", "chrome.exe"),
			filepath.Join(os.Getenv("ProgramFiles(x86)"), "Microsoft", "Edge", "Application", "msedge.exe"),
		)
	}

	for _, path := range candidates {
		if isExecutable(path) {
			return path, nil
		}
	}
	return "", ErrBrowserNotFound
}

func resolveExecutablePath(command string) (string, bool) {
	if command == "" {
		return "", false
	}
	if filepath.IsAbs(command) || strings.Contains(command, string(os.PathSeparator)) {
		if isExecutable(command) {
			return command, true
		}
		return "", false
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return "", false
	}
	return path, true
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return runtime.GOOS == "windows" || info.Mode()&0o111 != 0
}
