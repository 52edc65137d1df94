// Package graphfilter implements the graph post-filters of §4.12:
// per-param threshold filters composable via AndCascade/OrCascade, and the
// two-stage composition filter that both thresholds and caps the surviving
// node/edge count. Grounded on the teacher's config.ValidationErrors
// composition pattern — a slice of independent checks combined into one
// pass/fail decision — generalized here from "accumulate errors" to
// "accumulate keep/drop votes".
package graphfilter

import (
	"math"
	"sort"

	"github.com/dbsmedya/goxplore/internal/graphmodel"
)

// Mode selects how a multi-group threshold is satisfied: Any requires at
// least one group's value to fall in range, All requires every group's to.
type Mode int

const (
	Any Mode = iota
	All
)

// NodeRecord is the per-node metric bundle a node filter decides over,
// produced by the AAG generator (§4.11).
type NodeRecord struct {
	ID                    graphmodel.NodeID
	PerGroupPrevalence    map[string]float64
	PerGroupMissingRatio  map[string]float64
	HasDistinction        bool
	PrevalenceDifference  float64
	PrevalenceRatio       float64
}

// EdgeRecord is the per-edge metric bundle an edge filter decides over.
type EdgeRecord struct {
	From, To                  graphmodel.NodeID
	PerGroupCondPrevalence     map[string]float64
	PerGroupCondIncrease       map[string]float64
	PerGroupIncreaseRatio      map[string]float64
}

// ThresholdParamFilter is the primitive of §4.12: keep a record whose
// per-group values for one param satisfy [Min, Max] under Mode.
type ThresholdParamFilter struct {
	Min, Max *float64
	Mode     Mode
}

func (f ThresholdParamFilter) inRange(v float64) bool {
	if f.Min != nil && v < *f.Min {
		return false
	}
	if f.Max != nil && v > *f.Max {
		return false
	}
	return true
}

// keep evaluates the filter against one record's per-group values for a
// single param. An empty values map never passes (there is nothing to
// satisfy the bound against).
func (f ThresholdParamFilter) keep(values map[string]float64) bool {
	if len(values) == 0 {
		return false
	}
	switch f.Mode {
	case Any:
		for _, v := range values {
			if f.inRange(v) {
				return true
			}
		}
		return false
	default: // All
		for _, v := range values {
			if !f.inRange(v) {
				return false
			}
		}
		return true
	}
}

// NodeFilter decides whether a node survives.
type NodeFilter interface {
	KeepNode(n NodeRecord) bool
}

// EdgeFilter decides whether an edge survives.
type EdgeFilter interface {
	KeepEdge(e EdgeRecord) bool
}

// PrevalenceFilter applies a ThresholdParamFilter to a node's per-group prevalence.
type PrevalenceFilter struct{ ThresholdParamFilter }

func (f PrevalenceFilter) KeepNode(n NodeRecord) bool { return f.keep(n.PerGroupPrevalence) }

// MissingRatioFilter applies a ThresholdParamFilter to a node's per-group missing ratio.
type MissingRatioFilter struct{ ThresholdParamFilter }

func (f MissingRatioFilter) KeepNode(n NodeRecord) bool { return f.keep(n.PerGroupMissingRatio) }

// CondPrevalenceFilter applies a ThresholdParamFilter to an edge's per-group conditional prevalence.
type CondPrevalenceFilter struct{ ThresholdParamFilter }

func (f CondPrevalenceFilter) KeepEdge(e EdgeRecord) bool { return f.keep(e.PerGroupCondPrevalence) }

// CondIncreaseFilter applies a ThresholdParamFilter to an edge's per-group conditional increase.
type CondIncreaseFilter struct{ ThresholdParamFilter }

func (f CondIncreaseFilter) KeepEdge(e EdgeRecord) bool { return f.keep(e.PerGroupCondIncrease) }

// IncreaseRatioFilter applies a ThresholdParamFilter to an edge's per-group increase ratio.
type IncreaseRatioFilter struct{ ThresholdParamFilter }

func (f IncreaseRatioFilter) KeepEdge(e EdgeRecord) bool { return f.keep(e.PerGroupIncreaseRatio) }

// AndCascadeNodes keeps a node only if every filter keeps it.
type AndCascadeNodes []NodeFilter

func (a AndCascadeNodes) KeepNode(n NodeRecord) bool {
	for _, f := range a {
		if !f.KeepNode(n) {
			return false
		}
	}
	return true
}

// OrCascadeNodes keeps a node if any filter keeps it.
type OrCascadeNodes []NodeFilter

func (o OrCascadeNodes) KeepNode(n NodeRecord) bool {
	for _, f := range o {
		if f.KeepNode(n) {
			return true
		}
	}
	return false
}

// AndCascadeEdges keeps an edge only if every filter keeps it.
type AndCascadeEdges []EdgeFilter

func (a AndCascadeEdges) KeepEdge(e EdgeRecord) bool {
	for _, f := range a {
		if !f.KeepEdge(e) {
			return false
		}
	}
	return true
}

// OrCascadeEdges keeps an edge if any filter keeps it.
type OrCascadeEdges []EdgeFilter

func (o OrCascadeEdges) KeepEdge(e EdgeRecord) bool {
	for _, f := range o {
		if f.KeepEdge(e) {
			return true
		}
	}
	return false
}

// Ratio3 is a three-way split summing to 1.0 (frequency/prevalence-diff/
// prevalence-ratio for nodes; cond-prevalence/cond-increase/increase-ratio
// for edges).
type Ratio3 struct{ A, B, C float64 }

// CompositionFilter is the two-stage post-filter of §4.12.
type CompositionFilter struct {
	NodeThresholds []NodeFilter
	PercNofNodes   float64
	MaxNofNodes    int
	NodeRatio      Ratio3

	EdgeThresholds             []EdgeFilter
	PercNofEdges               float64
	MaxNofEdges                int
	EdgeRatio                  Ratio3
	IncludeConditionalDecrease bool
}

// Apply runs stage 1 (threshold drop) then stage 2 (capped, composition-
// ratio-driven top-N selection) over nodes and edges independently.
func (c CompositionFilter) Apply(nodes []NodeRecord, edges []EdgeRecord) ([]NodeRecord, []EdgeRecord) {
	survivingNodes := filterNodes(nodes, c.NodeThresholds)
	keepNodes := topNNodes(survivingNodes, c.cap(len(survivingNodes), c.PercNofNodes, c.MaxNofNodes), c.NodeRatio)

	survivingEdges := filterEdges(edges, c.EdgeThresholds)
	keepEdges := topNEdges(survivingEdges, c.cap(len(survivingEdges), c.PercNofEdges, c.MaxNofEdges), c.EdgeRatio, c.IncludeConditionalDecrease)

	return keepNodes, keepEdges
}

func (c CompositionFilter) cap(total int, perc float64, max int) int {
	n := int(perc * float64(total))
	if max > 0 && n > max {
		n = max
	}
	if n > total {
		n = total
	}
	return n
}

func filterNodes(nodes []NodeRecord, filters []NodeFilter) []NodeRecord {
	if len(filters) == 0 {
		return append([]NodeRecord(nil), nodes...)
	}
	cascade := AndCascadeNodes(filters)
	var out []NodeRecord
	for _, n := range nodes {
		if cascade.KeepNode(n) {
			out = append(out, n)
		}
	}
	return out
}

func filterEdges(edges []EdgeRecord, filters []EdgeFilter) []EdgeRecord {
	if len(filters) == 0 {
		return append([]EdgeRecord(nil), edges...)
	}
	cascade := AndCascadeEdges(filters)
	var out []EdgeRecord
	for _, e := range edges {
		if cascade.KeepEdge(e) {
			out = append(out, e)
		}
	}
	return out
}

func maxAbs(values map[string]float64) float64 {
	var m float64
	for _, v := range values {
		if v < 0 {
			v = -v
		}
		if v > m {
			m = v
		}
	}
	return m
}

func maxOf(values map[string]float64) float64 {
	var m float64
	first := true
	for _, v := range values {
		if first || v > m {
			m = v
			first = false
		}
	}
	return m
}

func topNNodes(nodes []NodeRecord, n int, ratio Ratio3) []NodeRecord {
	if n <= 0 || len(nodes) == 0 {
		return nil
	}
	byFreq := append([]NodeRecord(nil), nodes...)
	sort.SliceStable(byFreq, func(i, j int) bool { return maxOf(byFreq[i].PerGroupPrevalence) > maxOf(byFreq[j].PerGroupPrevalence) })
	byDiff := append([]NodeRecord(nil), nodes...)
	sort.SliceStable(byDiff, func(i, j int) bool {
		return absf(byDiff[i].PrevalenceDifference) > absf(byDiff[j].PrevalenceDifference)
	})
	byRatio := append([]NodeRecord(nil), nodes...)
	sort.SliceStable(byRatio, func(i, j int) bool { return byRatio[i].PrevalenceRatio > byRatio[j].PrevalenceRatio })

	nFreq, nDiff, nRatio := splitN(n, ratio)

	seen := make(map[graphmodel.NodeID]bool)
	var out []NodeRecord
	take := func(src []NodeRecord, k int) {
		for i := 0; i < k && i < len(src); i++ {
			if !seen[src[i].ID] {
				seen[src[i].ID] = true
				out = append(out, src[i])
			}
		}
	}
	take(byFreq, nFreq)
	take(byDiff, nDiff)
	take(byRatio, nRatio)
	return out
}

func topNEdges(edges []EdgeRecord, n int, ratio Ratio3, includeDecrease bool) []EdgeRecord {
	if n <= 0 || len(edges) == 0 {
		return nil
	}
	byCondPrev := append([]EdgeRecord(nil), edges...)
	sort.SliceStable(byCondPrev, func(i, j int) bool {
		return maxOf(byCondPrev[i].PerGroupCondPrevalence) > maxOf(byCondPrev[j].PerGroupCondPrevalence)
	})
	byIncrease := append([]EdgeRecord(nil), edges...)
	increaseValue := func(e EdgeRecord) float64 {
		if includeDecrease {
			return maxAbs(e.PerGroupCondIncrease)
		}
		return maxOf(e.PerGroupCondIncrease)
	}
	sort.SliceStable(byIncrease, func(i, j int) bool { return increaseValue(byIncrease[i]) > increaseValue(byIncrease[j]) })
	byRatio := append([]EdgeRecord(nil), edges...)
	ratioValue := func(e EdgeRecord) float64 {
		r := maxOf(e.PerGroupIncreaseRatio)
		if includeDecrease && r > 0 && r < 1 {
			return 1 / r
		}
		return r
	}
	sort.SliceStable(byRatio, func(i, j int) bool { return ratioValue(byRatio[i]) > ratioValue(byRatio[j]) })

	nCondPrev, nIncrease, nRatio := splitN(n, ratio)

	type edgeKey struct {
		from, to graphmodel.NodeID
	}
	seen := make(map[edgeKey]bool)
	var out []EdgeRecord
	take := func(src []EdgeRecord, k int) {
		for i := 0; i < k && i < len(src); i++ {
			key := edgeKey{src[i].From, src[i].To}
			if !seen[key] {
				seen[key] = true
				out = append(out, src[i])
			}
		}
	}
	take(byCondPrev, nCondPrev)
	take(byIncrease, nIncrease)
	take(byRatio, nRatio)
	return out
}

func splitN(n int, ratio Ratio3) (a, b, c int) {
	a = int(math.Round(ratio.A * float64(n)))
	b = int(math.Round(ratio.B * float64(n)))
	c = n - a - b
	if c < 0 {
		c = 0
	}
	return a, b, c
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
