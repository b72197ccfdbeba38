package memoize

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("@agentuity/go-memoize/memoize")
