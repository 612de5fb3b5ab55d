package env

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Merge composes key-value sources left to right; later sources overwrite
// earlier keys on conflict and nil sources are skipped.
func Merge(sources ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, src := range sources {
		for k, v := range src {
			out[k] = v
		}
	}
	return out
}

// LoadFile reads a dotenv-style file (KEY=VALUE lines, # comments, quoted
// values). Keys must start with a letter or underscore and contain only
// letters, digits and underscores.
func LoadFile(path string) (map[string]string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("env file %s: %w", path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("env file %s: is a directory", path)
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("env file %s: %w", path, err)
	}
	for k := range vars {
		if !keyPattern.MatchString(k) {
			return nil, fmt.Errorf("env file %s: invalid key %q", path, k)
		}
	}
	return vars, nil
}

// GlobalFiles returns the well-known global env files that exist, in
// precedence order: <stateDir>/.env first, then ./.env.
func GlobalFiles(stateDir string) []string {
	var out []string
	candidates := []string{filepath.Join(stateDir, ".env")}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, ".env"))
	}
	for _, p := range candidates {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			out = append(out, p)
		}
	}
	return out
}

// Sources describes the inputs to a process environment, lowest precedence
// first: host env, global env files, group env map, group env file, process
// env map, process env file, explicit override map.
//
// Global files are a best-effort convenience layer: a file that fails to
// load is skipped. Group/process/override files are required once named; a
// missing or unreadable one is a hard error.
type Sources struct {
	UseOSEnv       bool
	GlobalFiles    []string
	GroupEnv       map[string]string
	GroupEnvFile   string
	ProcessEnv     map[string]string
	ProcessEnvFile string
	Override       map[string]string
}

// Build assembles the merged environment for a process spawn.
func Build(src Sources) (map[string]string, error) {
	var layers []map[string]string
	if src.UseOSEnv {
		layers = append(layers, fromOS())
	}
	for _, p := range src.GlobalFiles {
		if vars, err := LoadFile(p); err == nil {
			layers = append(layers, vars)
		}
	}
	layers = append(layers, src.GroupEnv)
	if src.GroupEnvFile != "" {
		vars, err := LoadFile(src.GroupEnvFile)
		if err != nil {
			return nil, fmt.Errorf("group %w", err)
		}
		layers = append(layers, vars)
	}
	layers = append(layers, src.ProcessEnv)
	if src.ProcessEnvFile != "" {
		vars, err := LoadFile(src.ProcessEnvFile)
		if err != nil {
			return nil, fmt.Errorf("process %w", err)
		}
		layers = append(layers, vars)
	}
	layers = append(layers, src.Override)
	return Merge(layers...), nil
}

// ToSlice converts a map to sorted "K=V" form for exec.Cmd.Env.
func ToSlice(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func fromOS() map[string]string {
	base := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			base[kv[:i]] = kv[i+1:]
		}
	}
	return base
}
