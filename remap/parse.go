package remap

import (
	"strconv"
	"strings"
)

// parseParamAddr recognizes the fixed "/fx/param/<T>/<attr>" address
// shape and extracts T and attr. T is the integer segment immediately
// before the last segment, per §4.4.1's parsing note — matching on
// address prefixes inside the handler rather than registering one
// route per parameter slot, per §9.
func parseParamAddr(addr string) (param int, attr string, ok bool) {
	const prefix = "/fx/param/"
	if !strings.HasPrefix(addr, prefix) {
		return 0, "", false
	}
	rest := strings.TrimPrefix(addr, prefix)
	segs := strings.Split(rest, "/")
	if len(segs) != 2 {
		return 0, "", false
	}
	p, err := strconv.Atoi(segs[0])
	if err != nil {
		return 0, "", false
	}
	return p, segs[1], true
}

// argFloat best-effort coerces args[i] to a float64. Unlike the
// teacher's BindFloat (which panics on an unrecognized type), an
// unexpected argument type here is a protocol error per §7: the
// message is dropped and the caller logs nothing further beyond what
// ok=false already signals to the handler.
func argFloat(args []any, i int) (float64, bool) {
	if i >= len(args) {
		return 0, false
	}
	switch v := args[i].(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func argString(args []any, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(string)
	return s, ok
}

func argBool(args []any, i int) (bool, bool) {
	if i >= len(args) {
		return false, false
	}
	switch v := args[i].(type) {
	case bool:
		return v, true
	case int32:
		return v != 0, true
	case int64:
		return v != 0, true
	case int:
		return v != 0, true
	default:
		return false, false
	}
}
