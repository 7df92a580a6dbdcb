package measure

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

// StepSummary is the digest of the metric of one step.
type StepSummary struct {
	Name       string
	Count      int64
	Average    time.Duration
	Total      time.Duration
	Transports map[string]time.Duration
}

// Summarize returns the digest of every step that processed at least one element, sorted by name.
func Summarize(m Measure) []StepSummary {
	var res []StepSummary

	for name, mt := range m.AllMetrics() {
		if mt.Count() == 0 && mt.GetTotalDuration() == 0 {
			continue
		}

		sum := StepSummary{
			Name:       name,
			Count:      mt.Count(),
			Average:    mt.AVGDuration(),
			Total:      mt.GetTotalDuration(),
			Transports: make(map[string]time.Duration),
		}

		for input, info := range mt.AVGTransportDuration() {
			sum.Transports[input] = info.Elapsed
		}

		res = append(res, sum)
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].Name < res[j].Name
	})

	return res
}

// Log writes the digest of every step at debug level.
func Log(logger *zap.Logger, m Measure) {
	for _, sum := range Summarize(m) {
		fields := []zap.Field{
			zap.String("step", sum.Name),
			zap.Int64("count", sum.Count),
			zap.Duration("average", sum.Average),
		}

		if sum.Total > 0 {
			fields = append(fields, zap.Duration("total", sum.Total))
		}

		for input, elapsed := range sum.Transports {
			fields = append(fields, zap.Duration("from "+input, elapsed))
		}

		logger.Debug("pipeline step", fields...)
	}
}
