package observer

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Span and metric attribute keys.
var (
	AttrMethod = attribute.Key("http.request.method")
	AttrPath   = attribute.Key("url.path")
	AttrStatus = attribute.Key("http.response.status_code")
)

// Transport is an http.RoundTripper that opens a span per API request
// and records request count and latency. Inject it into the Client via
// steprun.WithHTTPClient:
//
//	hc := &http.Client{Transport: observer.NewTransport(nil, inst)}
//	client := steprun.NewClient(baseURL, steprun.WithHTTPClient(hc))
type Transport struct {
	base http.RoundTripper
	inst *Instruments
}

// NewTransport wraps base (nil means http.DefaultTransport) with
// instrumentation.
func NewTransport(base http.RoundTripper, inst *Instruments) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, inst: inst}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, span := t.inst.Tracer.Start(req.Context(), "api.request", trace.WithAttributes(
		AttrMethod.String(req.Method),
		AttrPath.String(req.URL.Path),
	))
	defer span.End()
	start := time.Now()

	resp, err := t.base.RoundTrip(req.WithContext(ctx))

	durationMs := float64(time.Since(start).Milliseconds())
	attrs := []attribute.KeyValue{
		AttrMethod.String(req.Method),
		AttrPath.String(req.URL.Path),
	}
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	default:
		span.SetAttributes(AttrStatus.Int(resp.StatusCode))
		attrs = append(attrs, AttrStatus.Int(resp.StatusCode))
		if resp.StatusCode >= 400 {
			span.SetStatus(codes.Error, resp.Status)
		}
	}

	t.inst.Requests.Add(ctx, 1, metric.WithAttributes(attrs...))
	t.inst.RequestDuration.Record(ctx, durationMs, metric.WithAttributes(attrs...))

	return resp, err
}
