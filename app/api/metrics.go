package api

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

var (
	datesCounter  = metrics.NewCounter(`daterange_dates_total`)
	errorsCounter = metrics.NewCounter(`daterange_errors_total`)
)

func countRequest(path string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`daterange_requests_total{path=%q}`, path)).Inc()
}
