package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"
)

// splitArgs splits a command line the way a POSIX shell would, without expansion.
// Shell operators such as & and ; must be quoted; the shell never chains commands.
func splitArgs(line string) ([]string, error) {
	p := shellwords.NewParser()
	args, err := p.Parse(line)
	if err != nil {
		return nil, errors.New("unterminated quote or escape")
	}
	if p.Position >= 0 {
		op := ""
		if runes := []rune(line); p.Position < len(runes) {
			op = string(runes[p.Position])
		}
		return nil, fmt.Errorf("unquoted %q: put the argument in quotes", op)
	}
	return args, nil
}

// fields parses key=value arguments.
func fields(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		out[strings.ToLower(k)] = v
	}
	return out, nil
}
