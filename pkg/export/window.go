package export

import (
	"math"
	"strconv"
	"time"
)

// Window is an absolute [Start, End] export range. Explicit start/end
// values are forwarded to the upstream exactly as received (it accepts
// both unix seconds and RFC3339); values derived from 'last' are encoded
// as unix seconds. A zero Window leaves the range unconstrained and the
// upstream's own default applies.
type Window struct {
	Start string
	End   string
}

// IsZero reports whether no range is set.
func (w Window) IsZero() bool {
	return w.Start == "" && w.End == ""
}

// ResolveWindow computes the export range from the request's convenience
// parameters. Explicit start+end take precedence and pass through
// untouched. Otherwise 'last' resolves to end = now, start = now - last,
// both against the single now captured at request receipt. A non-numeric
// or negative 'last' yields ErrInvalidParameter.
func ResolveWindow(now time.Time, last, start, end string) (Window, error) {
	if start != "" && end != "" {
		return Window{Start: start, End: end}, nil
	}

	if last != "" {
		secs, err := strconv.ParseFloat(last, 64)
		if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
			return Window{}, ErrInvalidParameter
		}
		return Window{
			Start: strconv.FormatInt(now.Add(-time.Duration(secs*float64(time.Second))).Unix(), 10),
			End:   strconv.FormatInt(now.Unix(), 10),
		}, nil
	}

	// Partial explicit bounds pass through as given.
	return Window{Start: start, End: end}, nil
}
