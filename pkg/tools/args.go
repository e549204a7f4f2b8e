package tools

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/zhufengning/extrautils/pkg/utils"
)

func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive number, got %q", utils.ErrInvalidArgument, what, s)
	}
	return id, nil
}

// takeFlag removes every occurrence of a boolean flag from args.
func takeFlag(args []string, names ...string) ([]string, bool) {
	rest := make([]string, 0, len(args))
	found := false
	for _, a := range args {
		if slices.Contains(names, a) {
			found = true
			continue
		}
		rest = append(rest, a)
	}
	return rest, found
}

// takeOption removes a flag and its value from args.
func takeOption(args []string, names ...string) ([]string, string, error) {
	rest := make([]string, 0, len(args))
	value := ""
	for i := 0; i < len(args); i++ {
		if slices.Contains(names, args[i]) {
			if i+1 >= len(args) {
				return nil, "", fmt.Errorf("%w: %s needs a value", utils.ErrInvalidArgument, args[i])
			}
			value = args[i+1]
			i++
			continue
		}
		rest = append(rest, args[i])
	}
	return rest, value, nil
}
