package telegram

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func spanAttrs(method, verb string, async bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("telegram.method", method),
		attribute.String("http.request.method", verb),
		attribute.Bool("telegram.async", async),
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// finishSpan annotates the span with the call outcome. The body is not
// recorded: transport failure messages carry the token-bearing URL.
func finishSpan(span trace.Span, res *Result) {
	span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode()))
	if res.HasError() {
		span.SetStatus(codes.Error, "telegram call failed")
		return
	}
	span.SetStatus(codes.Ok, "")
}
