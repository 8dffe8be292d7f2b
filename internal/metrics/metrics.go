package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frameview/frameview/internal/preview"
)

// Collector provides a minimal Prometheus-compatible metrics exporter.
type Collector struct {
	startedAt time.Time

	watchdogFires atomic.Uint64

	requestsByOp  sync.Map // string -> *atomic.Uint64
	errorsByOp    sync.Map // string -> *atomic.Uint64
	pollsByResult sync.Map // string -> *atomic.Uint64
}

func New() *Collector {
	return &Collector{startedAt: time.Now().UTC()}
}

// IncRequest counts one orchestrator call by operation.
func (c *Collector) IncRequest(op string) {
	if c == nil {
		return
	}
	bump(&c.requestsByOp, op)
}

// IncRequestError counts one failed orchestrator call by operation.
func (c *Collector) IncRequestError(op string) {
	if c == nil {
		return
	}
	bump(&c.errorsByOp, op)
}

// IncPoll counts one provisioning status poll by its classified result.
func (c *Collector) IncPoll(result preview.PollResult) {
	if c == nil {
		return
	}
	bump(&c.pollsByResult, string(result))
}

// IncWatchdogFire counts one load watchdog expiry.
func (c *Collector) IncWatchdogFire() {
	if c == nil {
		return
	}
	c.watchdogFires.Add(1)
}

func bump(m *sync.Map, key string) {
	if key == "" {
		key = "unknown"
	}
	ptr, _ := m.LoadOrStore(key, &atomic.Uint64{})
	ptr.(*atomic.Uint64).Add(1)
}

type HandlerOptions struct {
	// State reports the current preview lifecycle state for the enum gauge.
	State func() string
	// Watchers reports how many snapshot consumers are connected.
	Watchers func() int
}

func (c *Collector) Handler(opts HandlerOptions) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		fmt.Fprint(w, "# HELP frameview_up Whether the frameview server is running.\n")
		fmt.Fprint(w, "# TYPE frameview_up gauge\n")
		fmt.Fprint(w, "frameview_up 1\n")

		fmt.Fprint(w, "# HELP frameview_uptime_seconds Seconds since the server started.\n")
		fmt.Fprint(w, "# TYPE frameview_uptime_seconds gauge\n")
		fmt.Fprintf(w, "frameview_uptime_seconds %d\n", int(time.Since(c.startedAt).Seconds()))

		fmt.Fprint(w, "# HELP frameview_watchdog_fires_total Load watchdog expiries.\n")
		fmt.Fprint(w, "# TYPE frameview_watchdog_fires_total counter\n")
		fmt.Fprintf(w, "frameview_watchdog_fires_total %d\n", c.watchdogFires.Load())

		writeLabeled(w, "frameview_orchestrator_requests_total",
			"Orchestrator calls issued, by operation.", "op", &c.requestsByOp)
		writeLabeled(w, "frameview_orchestrator_errors_total",
			"Orchestrator calls that failed, by operation.", "op", &c.errorsByOp)
		writeLabeled(w, "frameview_status_polls_total",
			"Provisioning status polls, by classified result.", "result", &c.pollsByResult)

		if opts.State != nil {
			fmt.Fprint(w, "# HELP frameview_preview_state Current preview lifecycle state.\n")
			fmt.Fprint(w, "# TYPE frameview_preview_state gauge\n")
			fmt.Fprintf(w, "frameview_preview_state{state=%q} 1\n", escapeLabelValue(opts.State()))
		}

		if opts.Watchers != nil {
			fmt.Fprint(w, "# HELP frameview_watchers_active Connected snapshot watchers.\n")
			fmt.Fprint(w, "# TYPE frameview_watchers_active gauge\n")
			fmt.Fprintf(w, "frameview_watchers_active %d\n", opts.Watchers())
		}
	})
}

func writeLabeled(w http.ResponseWriter, name, help, label string, m *sync.Map) {
	keys := snapshotKeys(m)
	if len(keys) == 0 {
		return
	}
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	for _, k := range keys {
		ptr, _ := m.Load(k)
		n := uint64(0)
		if ptr != nil {
			n = ptr.(*atomic.Uint64).Load()
		}
		fmt.Fprintf(w, "%s{%s=%q} %d\n", name, label, escapeLabelValue(k), n)
	}
}

func snapshotKeys(m *sync.Map) []string {
	var out []string
	m.Range(func(k, _ any) bool {
		if s, ok := k.(string); ok {
			out = append(out, s)
		}
		return true
	})
	sort.Strings(out)
	return out
}

func escapeLabelValue(v string) string {
	// Prometheus text format label escaping for " and \ and newlines.
	v = strings.ReplaceAll(v, "\\", "\\\\")
	v = strings.ReplaceAll(v, "\n", "\\n")
	v = strings.ReplaceAll(v, "\"", "\\\"")
	return v
}
