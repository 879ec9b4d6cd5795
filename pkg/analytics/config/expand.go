package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// bracePattern matches ${NAME}; NAME is alphanumeric and underscore.
var bracePattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// UndefinedVariableError is returned when expansion references variables
// that are not set.
type UndefinedVariableError struct {
	Names []string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined variable: %s", e.Names[0])
	}
	return fmt.Sprintf("undefined variables: %s", strings.Join(e.Names, ", "))
}

// Expand returns a copy of cfg in which every top-level string value has
// its ${NAME} references replaced using lookup, typically os.LookupEnv.
// A reference lookup cannot resolve is an *UndefinedVariableError.
func Expand(cfg Config, lookup func(string) (string, bool)) (Config, error) {
	out := make(map[string]any, len(cfg.data))
	missing := map[string]bool{}

	for key, v := range cfg.data {
		s, ok := v.(string)
		if !ok {
			out[key] = v
			continue
		}
		out[key] = bracePattern.ReplaceAllStringFunc(s, func(match string) string {
			name := match[2 : len(match)-1]
			if val, ok := lookup(name); ok {
				return val
			}
			missing[name] = true
			return match
		})
	}

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		sort.Strings(names)
		return Config{}, &UndefinedVariableError{Names: names}
	}
	return New(out), nil
}
