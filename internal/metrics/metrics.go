// Package metrics turns a Prometheus text-exposition response into a flat
// map of metric name (optionally with labels) to value, the shape a
// ready-check or a running-node accessor needs to answer "has this metric
// appeared yet" / "what is its current value" without round-tripping
// through the wire format itself.
//
// Two near-identical hand-written parsers existed upstream
// (prom-parser/prom-metrics-parser); only the label- and chain-aware one
// was ever wired into the orchestrator, so that's the one this package
// ports — using the real exposition-format parser instead of a bespoke
// grammar, since nothing about Prometheus's text format is specific to
// this domain.
package metrics

import (
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/zombienet-go/zombienet/internal/zerr"
)

// Map is a flat metric key (name with or without its exporter prefix, each
// with its full label set or with its chain label removed) to value.
type Map map[string]float64

// Parse decodes a Prometheus text-exposition document and returns every
// metric under four keys, matching the original parser's
// zombienet-v1-compatible lookup shape:
//
//	<name>{labels}          <name_without_prefix>{labels}
//	<name>{labels-no-chain} <name_without_prefix>{labels-no-chain}
//
// "prefix" is the first underscore-delimited segment of the metric name
// (e.g. "substrate" in "substrate_block_height"); callers that don't care
// about it can look up the unprefixed key directly.
func Parse(text string) (Map, error) {
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(strings.NewReader(text))
	if err != nil {
		return nil, zerr.New(zerr.IO, "parsing prometheus exposition text", err)
	}

	out := make(Map)
	for name, family := range families {
		withoutPrefix := dropPrefix(name)
		for _, m := range family.Metric {
			val, ok := metricValue(m)
			if !ok {
				continue
			}
			withChain, withoutChain := labelSuffixes(m.GetLabel())

			out[name+withoutChain] = val
			out[withoutPrefix+withoutChain] = val
			out[name+withChain] = val
			out[withoutPrefix+withChain] = val
		}
	}
	return out, nil
}

// Get looks up a metric by any key Parse produced: a bare name for an
// unlabeled metric, or a name with the `name{k="v",...}` label suffix,
// which callers format themselves to pick a chain or label set.
func (m Map) Get(name string) (float64, bool) {
	v, ok := m[name]
	return v, ok
}

func dropPrefix(name string) string {
	parts := strings.SplitN(name, "_", 2)
	if len(parts) < 2 {
		return name
	}
	return parts[1]
}

// labelSuffixes returns the `{k="v",...}` suffix twice: once including
// every label, once with the "chain" label dropped. A metric with no
// non-chain labels yields "" for the without-chain variant.
func labelSuffixes(labels []*dto.LabelPair) (withChain, withoutChain string) {
	var withChainParts, withoutChainParts []string
	for _, lp := range labels {
		part := lp.GetName() + `="` + lp.GetValue() + `"`
		withChainParts = append(withChainParts, part)
		if lp.GetName() != "chain" {
			withoutChainParts = append(withoutChainParts, part)
		}
	}
	sort.Strings(withChainParts)
	sort.Strings(withoutChainParts)
	return bracket(withChainParts), bracket(withoutChainParts)
}

func bracket(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func metricValue(m *dto.Metric) (float64, bool) {
	switch {
	case m.Gauge != nil:
		return m.Gauge.GetValue(), true
	case m.Counter != nil:
		return m.Counter.GetValue(), true
	case m.Untyped != nil:
		return m.Untyped.GetValue(), true
	default:
		return 0, false
	}
}
