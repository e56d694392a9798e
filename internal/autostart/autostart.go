// Package autostart provides auto-start functionality.
package autostart

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"runtime"
	"text/template"
)

// Label identifies the login item on every platform
const Label = "com.mousereplay.agent"

// ErrUnsupported is returned on platforms without a login item mechanism
var ErrUnsupported = errors.New("autostart: unsupported platform")

const macLaunchAgentPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
{{- range .Args}}
        <string>{{.}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>`

var plistTmpl = template.Must(template.New("plist").Parse(macLaunchAgentPlist))

// renderPlist builds the LaunchAgent document for execPath
func renderPlist(execPath string, args []string) ([]byte, error) {
	var buf bytes.Buffer
	err := plistTmpl.Execute(&buf, struct {
		Label          string
		ExecutablePath string
		Args           []string
	}{Label, execPath, args})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// commandLine quotes execPath and args for a Windows Run entry
func commandLine(execPath string, args []string) string {
	s := `"` + execPath + `"`
	for _, a := range args {
		s += " " + a
	}
	return s
}

// Enable starts the current executable with args on login
func Enable(args ...string) error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	return enable(execPath, args)
}

// Disable removes the login item
func Disable() error {
	return disable()
}

// IsEnabled checks if auto-start is enabled
func IsEnabled() bool {
	return isEnabled()
}

// Platform names the login item mechanism in use
func Platform() string {
	switch runtime.GOOS {
	case "darwin":
		return "LaunchAgent"
	case "windows":
		return "Run registry key"
	}
	return "none"
}
