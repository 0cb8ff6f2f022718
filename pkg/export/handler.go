package export

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/apozlevich/vmexporter/pkg/httpx"
)

// Outcome is the instrumentation record of one attempted export. It is
// produced once per request that reached the upstream and consumed
// exactly once by the recorder; parameter errors never produce one.
type Outcome struct {
	Target   string
	Duration time.Duration
	Success  bool
	Records  int64
}

// Recorder consumes per-export outcomes.
type Recorder interface {
	Record(Outcome)
}

// Notifier receives per-export outcomes for live subscribers.
type Notifier interface {
	Notify(Outcome)
}

// Handler serves the export endpoint: it translates the inbound request
// into an upstream export query, streams the body back to the caller and
// records one outcome per attempt.
type Handler struct {
	client   *Client
	recorder Recorder
	notifier Notifier
	logger   *zap.Logger
}

// NewHandler creates an export handler.
func NewHandler(client *Client, recorder Recorder, logger *zap.Logger) *Handler {
	return &Handler{
		client:   client,
		recorder: recorder,
		logger:   logger,
	}
}

// SetNotifier attaches an optional outcome notifier, e.g. the websocket
// event hub.
func (h *Handler) SetNotifier(n Notifier) {
	h.notifier = n
}

// HandleExport handles GET <export-path>.
// Query params:
//   - target: upstream base URL (required, absolute with scheme)
//   - last: export the trailing N seconds (optional)
//   - start, end: explicit range in upstream-native encoding (optional,
//     take precedence over last)
//   - match[]: series selectors, repeatable (default {__name__!=''})
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	// One instant anchors both the resolved window and the duration
	// accounting for this request.
	now := time.Now()

	req, err := ParseRequest(r, now)
	if err != nil {
		// Validation failures are not export attempts and leave the
		// recorder untouched.
		reason := ReasonInvalidParameter
		if errors.Is(err, ErrInvalidTarget) {
			reason = ReasonInvalidTarget
		}
		httpx.RespondError(w, http.StatusBadRequest, reason, err.Error())
		return
	}

	queryURL := req.QueryURL()

	body, err := h.client.Fetch(r.Context(), queryURL)
	if err != nil {
		h.logger.Warn("upstream fetch failed",
			zap.String("target", req.RawTarget),
			zap.String("url", queryURL),
			zap.Error(err))
		h.finish(Outcome{Target: req.RawTarget, Duration: time.Since(now)})

		message := err.Error()
		var upstreamErr *UpstreamError
		if errors.As(err, &upstreamErr) && upstreamErr.StatusCode != 0 {
			message = fmt.Sprintf("upstream returned status %d", upstreamErr.StatusCode)
		}
		httpx.RespondError(w, http.StatusBadGateway, ReasonUpstreamUnavailable, message)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	var flush func()
	if flusher, ok := w.(http.Flusher); ok {
		flush = flusher.Flush
	}

	records, err := Relay(w, body, flush)
	duration := time.Since(now)
	h.finish(Outcome{
		Target:   req.RawTarget,
		Duration: duration,
		Success:  err == nil,
		Records:  records,
	})

	if err != nil {
		// Forwarding already began; whatever was sent stands and the
		// failure is visible through the self-metrics and this log line.
		h.logger.Warn("export stream interrupted",
			zap.String("target", req.RawTarget),
			zap.String("url", queryURL),
			zap.Int64("records", records),
			zap.Error(err))
		// Abort the connection so the caller sees a truncated chunked
		// body instead of a well-formed one with records missing.
		panic(http.ErrAbortHandler)
	}

	h.logger.Info("export completed",
		zap.String("target", req.RawTarget),
		zap.Int64("records", records),
		zap.Duration("duration", duration))
}

func (h *Handler) finish(o Outcome) {
	h.recorder.Record(o)
	if h.notifier != nil {
		h.notifier.Notify(o)
	}
}
