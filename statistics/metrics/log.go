// Package metrics formats go-metrics registries into periodic log lines.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	gometrics "github.com/rcrowley/go-metrics"

	"github.com/brodyxchen/vsockcmd/log"
)

// LogRoutine logs r every freq until closeChan is closed.
func LogRoutine(title string, r gometrics.Registry, freq time.Duration, closeChan chan struct{}) {
	go func() {
		ticker := time.NewTicker(freq)
		defer ticker.Stop()
		for {
			select {
			case <-closeChan:
				return
			case <-ticker.C:
				if msg := Format(title, r); msg != "" {
					log.Info(msg)
				}
			}
		}
	}()
}

// Format renders counters, gauges, histograms and meters. Histograms are
// cleared after being read so every line covers one interval.
func Format(title string, r gometrics.Registry) string {
	var counterList, gaugeList, histList, meterList []string

	r.Each(func(name string, i interface{}) {
		switch metric := i.(type) {
		case gometrics.Counter:
			counterList = append(counterList, fmt.Sprintf("%s: %d", name, metric.Count()))
		case gometrics.Gauge:
			if v := metric.Value(); v != 0 {
				gaugeList = append(gaugeList, fmt.Sprintf("%s: %d", name, v))
			}
		case gometrics.GaugeFloat64:
			if v := metric.Value(); v != 0 {
				gaugeList = append(gaugeList, fmt.Sprintf("%s: %f", name, v))
			}
		case gometrics.Histogram:
			if metric.Count() == 0 {
				return
			}
			h := metric.Snapshot()
			metric.Clear()
			ps := h.Percentiles([]float64{0.5, 0.75, 0.95, 0.99})
			histList = append(histList, fmt.Sprintf("%s: count=%d, min=%d, max=%d, mean=%.2f, stddev=%.2f, median=%.2f, 75%%=%.2f, 95%%=%.2f, 99%%=%.2f",
				name, h.Count(), h.Min(), h.Max(), h.Mean(), h.StdDev(), ps[0], ps[1], ps[2], ps[3]))
		case gometrics.Meter:
			if metric.Count() == 0 {
				return
			}
			m := metric.Snapshot()
			meterList = append(meterList, fmt.Sprintf("%s: count=%d, 1mRate=%.2f, 5mRate=%.2f, 15mRate=%.2f, meanRate=%.2f",
				name, m.Count(), m.Rate1(), m.Rate5(), m.Rate15(), m.RateMean()))
		}
	})

	sb := strings.Builder{}
	section(&sb, "counter", counterList)
	section(&sb, "gauge", gaugeList)
	section(&sb, "hist", histList)
	section(&sb, "meter", meterList)

	if sb.Len() > 0 {
		return title + "==>" + sb.String()
	}
	return ""
}

func section(sb *strings.Builder, kind string, list []string) {
	if len(list) == 0 {
		return
	}
	sort.Strings(list)
	sb.WriteString(fmt.Sprintf("%s(%v):{", kind, len(list)))
	for _, v := range list {
		sb.WriteString("[")
		sb.WriteString(v)
		sb.WriteString("],")
	}
	sb.WriteString("}, ")
}
