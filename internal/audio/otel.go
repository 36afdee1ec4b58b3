package audio

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/emomap/engine/internal/audio"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
