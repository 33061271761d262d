package handshake

import (
	"context"
	"regexp"
	"strings"
	"time"

	"twincast/libs/proc"
	"twincast/libs/werr"
)

// Passwords tried before touching any wordlist
var CommonPasswords = []string{
	"12345678", "password", "admin", "1234567890", "qwerty123",
	"password123", "123456789", "admin123", "welcome", "12345",
	"123456", "password1",
}

var keyFoundRe = regexp.MustCompile(`KEY FOUND!\s*\[\s*(.+?)\s*\]`)

// ParseKey extracts the recovered key from aircrack-ng output
func ParseKey(output string) (string, bool) {
	if match := keyFoundRe.FindStringSubmatch(output); match != nil {
		return match[1], true
	}
	return "", false
}

// HasHandshake checks aircrack-ng's listing output for a usable handshake
func HasHandshake(output string) bool {
	var lower string = strings.ToLower(output)
	if strings.Contains(lower, "1 handshake") {
		return true
	}
	return strings.Contains(lower, "wpa") && strings.Contains(lower, "handshake")
}

// Validate asks aircrack-ng whether the capture holds a handshake
func Validate(ctx context.Context, capFile string) bool {
	out, err := proc.Run(ctx, 15*time.Second, "aircrack-ng", capFile)
	if err != nil {
		return false
	}
	return HasHandshake(out)
}

// CrackCommon pipes the short fixed dictionary over stdin
func CrackCommon(ctx context.Context, capFile string) (string, error) {
	var stdin string = strings.Join(CommonPasswords, "\n") + "\n"
	out, err := proc.RunStdin(ctx, 30*time.Second, stdin, "aircrack-ng", "-w", "-", capFile)
	if err != nil {
		return "", err
	}
	if key, found := ParseKey(out); found {
		return key, nil
	}
	return "", werr.New(werr.CrackNotFound, "common passwords exhausted")
}

// CrackWordlist runs the user-supplied wordlist with a hard bound
func CrackWordlist(ctx context.Context, capFile string, wordlist string) (string, error) {
	out, err := proc.Run(ctx, 30*time.Second, "aircrack-ng", "-w", wordlist, capFile)
	if key, found := ParseKey(out); found {
		return key, nil
	}
	if err != nil {
		return "", err
	}
	return "", werr.New(werr.CrackNotFound, "wordlist exhausted")
}
