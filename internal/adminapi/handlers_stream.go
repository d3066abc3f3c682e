package adminapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mcpx/pkg/metrics"
)

// streamSessions emits keepalive events until the client goes away.
func (a *App) streamSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	interval := a.heartbeatInterval(ctx)

	h := w.Header()
	h.Set("Cache-Control", "no-cache")
	h.Set("Content-Type", "text/event-stream")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	metrics.StreamsActive.Inc()
	defer metrics.StreamsActive.Dec()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for ctx.Err() == nil {
		if _, err := fmt.Fprintf(w, "event: keepalive\ndata: %s\n\n", a.now().UTC().Format(time.RFC3339Nano)); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			a.log.Debugw("stream flush failed", "err", err)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// heartbeatInterval reads the configured cadence once per connection.
func (a *App) heartbeatInterval(ctx context.Context) time.Duration {
	secs, ok, err := a.public.Heartbeat(ctx)
	switch {
	case err != nil:
		a.log.Warnw("heartbeat lookup failed, using default", "default", defaultHeartbeat, "err", err)
		return defaultHeartbeat
	case !ok:
		return defaultHeartbeat
	case secs <= 0:
		a.log.Warnw("non-positive heartbeat, using default", "configured", secs, "default", defaultHeartbeat)
		return defaultHeartbeat
	case secs > maxHeartbeatSeconds:
		a.log.Warnw("heartbeat too long, capping", "configured", secs, "max", maxHeartbeatSeconds)
		return maxHeartbeatSeconds * time.Second
	}
	return time.Duration(secs) * time.Second
}
