package export

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultMatcher selects every series when the request supplies no
// match[] expressions.
const DefaultMatcher = "{__name__!=''}"

// upstreamExportPath is the VictoriaMetrics native export endpoint.
const upstreamExportPath = "/api/v1/export"

// Request is the validated, typed form of an inbound export request.
// Parsing confines all query-parameter validation to one step; everything
// downstream operates on these values only.
type Request struct {
	// Target is the upstream base URL, validated absolute with a scheme.
	Target *url.URL

	// RawTarget is the target exactly as the caller supplied it, used as
	// the metric label.
	RawTarget string

	// Matchers holds the match[] expressions in the order received.
	// Empty means the default matcher is synthesized at query build time.
	Matchers []string

	// Window is the resolved export range, possibly zero.
	Window Window
}

// ParseRequest validates the inbound query parameters into a Request,
// resolving the export window against now.
func ParseRequest(r *http.Request, now time.Time) (*Request, error) {
	q := r.URL.Query()

	target := q.Get("target")
	if target == "" {
		return nil, ErrInvalidTarget
	}
	u, err := url.Parse(target)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, ErrInvalidTarget
	}

	window, err := ResolveWindow(now, q.Get("last"), q.Get("start"), q.Get("end"))
	if err != nil {
		return nil, err
	}

	return &Request{
		Target:    u,
		RawTarget: target,
		Matchers:  q["match[]"],
		Window:    window,
	}, nil
}

// QueryURL builds the full upstream export URL: the target base joined
// with /api/v1/export, encoded start/end when a window was resolved, and
// at least one match[] parameter. The translator performs no network
// access; the result is built once per request and never mutated.
func (req *Request) QueryURL() string {
	params := url.Values{}
	if req.Window.Start != "" {
		params.Set("start", req.Window.Start)
	}
	if req.Window.End != "" {
		params.Set("end", req.Window.End)
	}

	matchers := req.Matchers
	if len(matchers) == 0 {
		matchers = []string{DefaultMatcher}
	}
	for _, m := range matchers {
		params.Add("match[]", m)
	}

	u := *req.Target
	u.Path = strings.TrimSuffix(u.Path, "/") + upstreamExportPath
	u.RawQuery = params.Encode()
	return u.String()
}
