package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

func Parse(data io.Reader, container interface{}) (interface{}, error) {
	if err := json.NewDecoder(data).Decode(container); err != nil {
		return nil, err
	}
	return container, nil
}

func ParseUint(args []string, i int, name string) (uint, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing parameter for %s", name)
	}
	value, err := strconv.ParseUint(args[i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse %s as uint", args[i])
	}
	return uint(value), nil
}

// Truncate shortens s to at most n runes, marking the cut with "...".
// Newlines are flattened so the result fits in one table cell.
func Truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
