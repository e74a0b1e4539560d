package observability

import "context"

// Compose returns a Provider that traces and logs through base and records
// every metric in base and in each of extra. It is how a log-based backend is
// paired with a dedicated metrics backend such as promobs.
func Compose(base Provider, extra ...Metrics) Provider {
	if len(extra) == 0 {
		return base
	}
	return &composite{Provider: base, extra: extra}
}

type composite struct {
	Provider
	extra []Metrics
}

func (c *composite) Counter(name string) Counter {
	counters := make(multiCounter, 0, len(c.extra)+1)
	counters = append(counters, c.Provider.Counter(name))
	for _, metrics := range c.extra {
		counters = append(counters, metrics.Counter(name))
	}
	return counters
}

func (c *composite) Histogram(name string) Histogram {
	histograms := make(multiHistogram, 0, len(c.extra)+1)
	histograms = append(histograms, c.Provider.Histogram(name))
	for _, metrics := range c.extra {
		histograms = append(histograms, metrics.Histogram(name))
	}
	return histograms
}

type multiCounter []Counter

func (m multiCounter) Add(ctx context.Context, value int64, attrs ...Attribute) {
	for _, counter := range m {
		if counter != nil {
			counter.Add(ctx, value, attrs...)
		}
	}
}

type multiHistogram []Histogram

func (m multiHistogram) Record(ctx context.Context, value float64, attrs ...Attribute) {
	for _, histogram := range m {
		if histogram != nil {
			histogram.Record(ctx, value, attrs...)
		}
	}
}
