package export_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/apozlevich/vmexporter/pkg/export"
	"github.com/apozlevich/vmexporter/pkg/metrics"
)

// fakeRecorder captures outcomes for assertions.
type fakeRecorder struct {
	mu       sync.Mutex
	outcomes []export.Outcome
}

func (f *fakeRecorder) Record(o export.Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, o)
}

func (f *fakeRecorder) all() []export.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]export.Outcome(nil), f.outcomes...)
}

func newTestHandler(recorder export.Recorder) *export.Handler {
	return export.NewHandler(export.NewClient(5*time.Second), recorder, zap.NewNop())
}

func doExport(h *export.Handler, rawQuery string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/export?"+rawQuery, nil)
	rr := httptest.NewRecorder()
	h.HandleExport(rr, req)
	return rr
}

func errorReason(t *testing.T, body []byte) string {
	t.Helper()
	var resp struct {
		Reason string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Reason
}

func TestHandleExport_Success(t *testing.T) {
	const body = "metric_a 1 100\nmetric_b 2 100\nmetric_c 3 100\n"

	var upstreamQuery url.Values
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamQuery = r.URL.Query()
		require.Equal(t, "/api/v1/export", r.URL.Path)
		io.WriteString(w, body)
	}))
	defer upstream.Close()

	recorder := &fakeRecorder{}
	rr := doExport(newTestHandler(recorder), "target="+url.QueryEscape(upstream.URL)+"&last=60")

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, body, rr.Body.String())

	// The upstream received the default matcher and a 60 second window.
	require.Equal(t, []string{export.DefaultMatcher}, upstreamQuery["match[]"])
	start, err := strconv.ParseInt(upstreamQuery.Get("start"), 10, 64)
	require.NoError(t, err)
	end, err := strconv.ParseInt(upstreamQuery.Get("end"), 10, 64)
	require.NoError(t, err)
	require.Equal(t, int64(60), end-start)

	outcomes := recorder.all()
	require.Len(t, outcomes, 1)
	require.True(t, outcomes[0].Success)
	require.Equal(t, int64(3), outcomes[0].Records)
	require.Equal(t, upstream.URL, outcomes[0].Target)
}

func TestHandleExport_MissingTarget(t *testing.T) {
	recorder := &fakeRecorder{}
	rr := doExport(newTestHandler(recorder), "last=60")

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, export.ReasonInvalidTarget, errorReason(t, rr.Body.Bytes()))
	// Validation failures are not export attempts.
	require.Empty(t, recorder.all())
}

func TestHandleExport_InvalidLast(t *testing.T) {
	recorder := &fakeRecorder{}
	rr := doExport(newTestHandler(recorder), "target="+url.QueryEscape("http://h:8428")+"&last=nope")

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, export.ReasonInvalidParameter, errorReason(t, rr.Body.Bytes()))
	require.Empty(t, recorder.all())
}

func TestHandleExport_UpstreamRefused(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := upstream.URL
	upstream.Close()

	recorder := &fakeRecorder{}
	rr := doExport(newTestHandler(recorder), "target="+url.QueryEscape(target))

	require.Equal(t, http.StatusBadGateway, rr.Code)
	require.Equal(t, export.ReasonUpstreamUnavailable, errorReason(t, rr.Body.Bytes()))

	outcomes := recorder.all()
	require.Len(t, outcomes, 1)
	require.False(t, outcomes[0].Success)
	require.Zero(t, outcomes[0].Records)
}

func TestHandleExport_UpstreamErrorStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	recorder := &fakeRecorder{}
	rr := doExport(newTestHandler(recorder), "target="+url.QueryEscape(upstream.URL))

	require.Equal(t, http.StatusBadGateway, rr.Code)

	var resp struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, export.ReasonUpstreamUnavailable, resp.Reason)
	require.Contains(t, resp.Message, "503")

	outcomes := recorder.all()
	require.Len(t, outcomes, 1)
	require.False(t, outcomes[0].Success)
}

func TestHandleExport_StreamInterrupted(t *testing.T) {
	// The upstream promises more than it delivers, so the body read fails
	// after 400 complete records have been forwarded.
	delivered := strings.Repeat("metric_x 1 100\n", 400)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(delivered)*2))
		io.WriteString(w, delivered)
	}))
	defer upstream.Close()

	recorder := &fakeRecorder{}
	handler := newTestHandler(recorder)
	// Serve through a real server: the interruption is signalled to the
	// caller by aborting the chunked response.
	front := httptest.NewServer(http.HandlerFunc(handler.HandleExport))
	defer front.Close()

	resp, err := http.Get(front.URL + "?target=" + url.QueryEscape(upstream.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	// Forwarding had begun, so the status is 200 and the body truncated.
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, readErr := io.ReadAll(resp.Body)
	require.Error(t, readErr, "caller must observe an incomplete response")
	require.Equal(t, delivered, string(body))

	outcomes := recorder.all()
	require.Len(t, outcomes, 1)
	require.False(t, outcomes[0].Success)
	require.Equal(t, int64(400), outcomes[0].Records)
}

func counterValue(t *testing.T, registry *metrics.Registry, name, target string) float64 {
	t.Helper()
	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "target" && lp.GetValue() == target {
					if m.GetCounter() != nil {
						return m.GetCounter().GetValue()
					}
					if m.GetGauge() != nil {
						return m.GetGauge().GetValue()
					}
				}
			}
		}
	}
	return 0
}

func TestHandleExport_ConcurrentTargetsDoNotCrossContaminate(t *testing.T) {
	newUpstream := func(records int) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for i := 0; i < records; i++ {
				fmt.Fprintf(w, "metric_%d 1\n", i)
			}
		}))
	}
	upstreamA := newUpstream(10)
	defer upstreamA.Close()
	upstreamB := newUpstream(25)
	defer upstreamB.Close()

	registry := metrics.NewRegistry()
	handler := export.NewHandler(export.NewClient(5*time.Second), registry, zap.NewNop())

	const exportsA, exportsB = 8, 5
	var wg sync.WaitGroup
	run := func(target string, n int) {
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				req := httptest.NewRequest(http.MethodGet, "/export?target="+url.QueryEscape(target), nil)
				handler.HandleExport(httptest.NewRecorder(), req)
			}()
		}
	}
	run(upstreamA.URL, exportsA)
	run(upstreamB.URL, exportsB)
	wg.Wait()

	require.Equal(t, float64(exportsA), counterValue(t, registry, "vmexporter_export_count", upstreamA.URL))
	require.Equal(t, float64(exportsB), counterValue(t, registry, "vmexporter_export_count", upstreamB.URL))
	require.Equal(t, float64(exportsA*10), counterValue(t, registry, "vmexporter_export_metrics", upstreamA.URL))
	require.Equal(t, float64(exportsB*25), counterValue(t, registry, "vmexporter_export_metrics", upstreamB.URL))
	require.Zero(t, counterValue(t, registry, "vmexporter_export_failures", upstreamA.URL))
	require.Zero(t, counterValue(t, registry, "vmexporter_export_failures", upstreamB.URL))
}
