// Package redact hides secrets (encryption passphrases, account passwords)
// before a command line or tool output is printed or stored.
package redact

import (
	"sort"
	"strings"
)

// Placeholder replaces every redacted value.
const Placeholder = "[REDACTED]"

// secretFlags are recovery tool options whose following argument is secret.
var secretFlags = map[string]bool{
	"-encryption_key": true,
	"-e":              true,
	"-password":       true,
	"-p":              true,
}

// Redactor replaces known secret values.
type Redactor struct {
	secrets []string
}

// New returns a Redactor for the given secret values. Empty values are ignored.
func New(secrets ...string) *Redactor {
	r := &Redactor{}
	for _, s := range secrets {
		if s != "" {
			r.secrets = append(r.secrets, s)
		}
	}
	// Longest first so a secret containing another is replaced whole.
	sort.SliceStable(r.secrets, func(i, j int) bool {
		return len(r.secrets[i]) > len(r.secrets[j])
	})
	return r
}

// Args returns a copy of args with the value after each secret flag, and any
// argument containing a known secret, replaced.
func (r *Redactor) Args(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if i > 0 && secretFlags[args[i-1]] {
			out[i] = Placeholder
			continue
		}
		out[i] = r.String(a)
	}
	return out
}

// String replaces every occurrence of a known secret in s.
func (r *Redactor) String(s string) string {
	for _, secret := range r.secrets {
		s = strings.ReplaceAll(s, secret, Placeholder)
	}
	return s
}

// CommandLine renders binary and args for display with secrets hidden.
func (r *Redactor) CommandLine(binary string, args []string) string {
	parts := append([]string{binary}, r.Args(args)...)
	for i, p := range parts {
		if p == "" || strings.ContainsAny(p, " \t'\"") {
			parts[i] = "'" + strings.ReplaceAll(p, "'", `'\''`) + "'"
		}
	}
	return strings.Join(parts, " ")
}
