package process

import (
	"os/exec"
	"strings"
)

// BuildCommand constructs an *exec.Cmd for a command line. It avoids invoking
// a shell when not necessary and respects an explicit shell invocation
// already present in the command string (e.g. "sh -c 'echo hi'"), avoiding
// double-wrapping with another shell.
func BuildCommand(cmdStr string) *exec.Cmd {
	cmdStr = strings.TrimSpace(cmdStr)
	if cmdStr == "" {
		// #nosec G204
		return exec.Command("/bin/true")
	}
	if after, ok := parseExplicitShell(cmdStr); ok {
		// Absolute shell path so PATH overrides in Env cannot break the spawn.
		// #nosec G204
		return exec.Command("/bin/sh", "-c", after)
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", cmdStr)
	}
	parts := strings.Fields(cmdStr)
	// #nosec G204
	return exec.Command(parts[0], parts[1:]...)
}

// parseExplicitShell detects "sh -c <ARG>" style prefixes and returns the
// argument after -c with one surrounding quote pair stripped.
func parseExplicitShell(cmdStr string) (string, bool) {
	trim := strings.TrimLeft(cmdStr, " \t")
	for _, p := range []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "} {
		if strings.HasPrefix(trim, p) {
			after := trim[len(p):]
			if n := len(after); n >= 2 {
				if (after[0] == '\'' && after[n-1] == '\'') || (after[0] == '"' && after[n-1] == '"') {
					after = after[1 : n-1]
				}
			}
			return after, true
		}
	}
	return "", false
}

// DeriveName produces a process name from the command's first token.
func DeriveName(cmdStr string) string {
	fields := strings.Fields(strings.TrimSpace(cmdStr))
	if len(fields) == 0 {
		return ""
	}
	tok := fields[0]
	if i := strings.LastIndexByte(tok, '/'); i >= 0 {
		tok = tok[i+1:]
	}
	return tok
}
