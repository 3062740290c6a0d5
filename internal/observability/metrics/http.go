// Package metrics keeps in-process HTTP counters for the insight proxy and
// renders them in the Prometheus text exposition format.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const namespace = "soulscan"

var defaultBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

type series struct {
	handler string
	method  string
}

type histogram struct {
	counts []uint64
	sum    float64
	count  uint64
}

type collector struct {
	mu       sync.Mutex
	requests map[series]map[int]uint64
	latency  map[series]*histogram
}

func newCollector() *collector {
	return &collector{
		requests: make(map[series]map[int]uint64),
		latency:  make(map[series]*histogram),
	}
}

var httpCollector = newCollector()

// ObserveHTTPRequest records one finished request.
func ObserveHTTPRequest(handler, method string, status int, duration time.Duration) {
	httpCollector.observe(handler, method, status, duration)
}

func (c *collector) observe(handler, method string, status int, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := series{handler: handler, method: method}
	codes := c.requests[key]
	if codes == nil {
		codes = make(map[int]uint64)
		c.requests[key] = codes
	}
	codes[status]++

	hist := c.latency[key]
	if hist == nil {
		hist = &histogram{counts: make([]uint64, len(defaultBuckets))}
		c.latency[key] = hist
	}
	seconds := duration.Seconds()
	hist.count++
	hist.sum += seconds
	for idx, bound := range defaultBuckets {
		if seconds <= bound {
			hist.counts[idx]++
		}
	}
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument wraps next so every request is counted under handler.
func Instrument(handler string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			ObserveHTTPRequest(handler, methodLabel(r.Method), rec.status, time.Since(start))
		}()
		next.ServeHTTP(rec, r)
	})
}

// methodLabel folds non-standard methods into "OTHER" to bound label cardinality.
func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace:
		return method
	default:
		return "OTHER"
	}
}

// Handler exposes the metrics in Prometheus text exposition format.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = fmt.Fprint(w, httpCollector.render())
	})
}

func (c *collector) render() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]series, 0, len(c.latency))
	for key := range c.latency {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].handler == keys[j].handler {
			return keys[i].method < keys[j].method
		}
		return keys[i].handler < keys[j].handler
	})

	var b strings.Builder
	requests := namespace + "_http_requests_total"
	errorsTotal := namespace + "_http_request_errors_total"
	duration := namespace + "_http_request_duration_seconds"

	fmt.Fprintf(&b, "# HELP %s Total number of HTTP requests processed.\n# TYPE %s counter\n", requests, requests)
	for _, key := range keys {
		codes := make([]int, 0, len(c.requests[key]))
		for code := range c.requests[key] {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			fmt.Fprintf(&b, "%s{%s,code=\"%d\"} %d\n", requests, key.labels(), code, c.requests[key][code])
		}
	}

	fmt.Fprintf(&b, "# HELP %s Total number of HTTP requests that resulted in a server error.\n# TYPE %s counter\n", errorsTotal, errorsTotal)
	for _, key := range keys {
		var failed uint64
		for code, n := range c.requests[key] {
			if code >= 500 {
				failed += n
			}
		}
		fmt.Fprintf(&b, "%s{%s} %d\n", errorsTotal, key.labels(), failed)
	}

	fmt.Fprintf(&b, "# HELP %s HTTP request duration in seconds.\n# TYPE %s histogram\n", duration, duration)
	for _, key := range keys {
		hist := c.latency[key]
		for idx, bound := range defaultBuckets {
			fmt.Fprintf(&b, "%s_bucket{%s,le=\"%s\"} %d\n", duration, key.labels(), formatFloat(bound), hist.counts[idx])
		}
		fmt.Fprintf(&b, "%s_bucket{%s,le=\"+Inf\"} %d\n", duration, key.labels(), hist.count)
		fmt.Fprintf(&b, "%s_sum{%s} %s\n", duration, key.labels(), formatFloat(hist.sum))
		fmt.Fprintf(&b, "%s_count{%s} %d\n", duration, key.labels(), hist.count)
	}
	return b.String()
}

func (s series) labels() string {
	return fmt.Sprintf("handler=\"%s\",method=\"%s\"", escape(s.handler), escape(s.method))
}

func escape(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	return strings.ReplaceAll(value, "\n", "")
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
