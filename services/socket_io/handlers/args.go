package handlers

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// toUint reads an id sent by a client, which arrives as a JSON number or
// as a numeric string.
func toUint(v interface{}) (uint, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 || n != math.Trunc(n) || n > math.MaxUint32 {
			return 0, false
		}
		return uint(n), true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint(n), true
	case uint:
		return n, true
	case json.Number:
		return toUint(n.String())
	case string:
		id, err := strconv.ParseUint(strings.TrimSpace(n), 10, 32)
		if err != nil {
			return 0, false
		}
		return uint(id), true
	default:
		return 0, false
	}
}
