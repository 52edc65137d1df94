// Package aag is the AAG (Attribute Affinity Graph) generator of §4.11:
// given a base graph (§4.6), a set of named group selectors, and a Graph
// Source capable of resolving a selector to its member Key nodes, it
// computes per-group prevalence/missing-ratio for every attribute node
// reachable from a group's members within a bounded path length,
// cross-group prevalence_difference/prevalence_ratio, and pairwise
// co-occurrence/conditional-prevalence/conditional-increase/
// increase-ratio between every two nodes some member reached together —
// then labels nodes and edges from those numbers and hands the result to
// an optional pre-filter (narrowing the O(n^2) pairwise stage) and lets
// the caller apply a post-filter (§4.12) over the final NodeMetrics/
// EdgeMetrics.
//
// This is a heavy adaptation of the teacher's archiver/discovery.go queue-
// based breadth-first traversal, generalized from "discover every
// descendant record of an archive root" to "discover every attribute a
// group's members can reach within a bounded number of hops" — the same
// visited-set-plus-queue idiom, following key-to-attribute edges forward
// and CONNECTED_TO edges in both directions instead of a single FK
// direction.
package aag

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/dbsmedya/goxplore/internal/graphfilter"
	"github.com/dbsmedya/goxplore/internal/graphmodel"
	"github.com/dbsmedya/goxplore/internal/groupselect"
	"github.com/dbsmedya/goxplore/internal/xplerr"
)

// AAG edge types (§4.6), disjoint from the base graph's edge types and
// assigned only by this package.
const (
	HighRelation   graphmodel.EdgeType = "HIGH_RELATION"
	MediumRelation graphmodel.EdgeType = "MEDIUM_RELATION"
	LowRelation    graphmodel.EdgeType = "LOW_RELATION"
	Unassigned     graphmodel.EdgeType = "UNASSIGNED"
)

// Node labels this package adds on top of a node's base §4.6 labels.
const (
	LabelLowFrequency    = "LowFrequency"
	LabelMediumFrequency = "MediumFrequency"
	LabelHighFrequency   = "HighFrequency"

	LabelMediumDistinction = "MediumDistinction"
	LabelHighDistinction   = "HighDistinction"
)

// GroupResolver resolves a group selector to its member Key nodes. A
// concrete implementation wraps a Graph Source's execute_path_query (§6)
// against the selector compiled by internal/groupselect.
type GroupResolver interface {
	Members(sel groupselect.GroupSelector) ([]graphmodel.NodeID, error)
}

// PosNegPair names the two groups whose prevalence difference/ratio is
// taken directly rather than as a max over every pair of configured
// groups.
type PosNegPair struct {
	Positive, Negative string
}

// Thresholds configures the frequency/distinction/relation bands and the
// bounded-traversal depth. See DESIGN.md for the Open Question decision
// on MaxPathLength's default.
type Thresholds struct {
	MaxPathLength int

	FrequencyLow  float64
	FrequencyHigh float64

	DistinctionDiffLow   float64
	DistinctionDiffHigh  float64
	DistinctionRatioLow  float64
	DistinctionRatioHigh float64
}

// DefaultThresholds mirrors the bands named in §4.11: frequency at
// 0.1/0.5, distinction at a 0.1/0.2 prevalence-difference band or a
// 1.5/2.0 prevalence-ratio band, six hops of traversal.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxPathLength:        6,
		FrequencyLow:         0.1,
		FrequencyHigh:        0.5,
		DistinctionDiffLow:   0.1,
		DistinctionDiffHigh:  0.2,
		DistinctionRatioLow:  1.5,
		DistinctionRatioHigh: 2.0,
	}
}

// NodeMetrics is the per-node metric bundle §4.11 computes, convertible
// to a graphfilter.NodeRecord for post-filtering.
type NodeMetrics struct {
	NodeID                graphmodel.NodeID
	PerGroupPrevalence    map[string]float64
	PerGroupMissingRatio  map[string]float64
	PrevalenceDifference  float64
	PrevalenceRatio       float64
	Labels                []string
}

// Record converts m to the graphfilter post-filter's input shape.
func (m NodeMetrics) Record() graphfilter.NodeRecord {
	return graphfilter.NodeRecord{
		ID:                   m.NodeID,
		PerGroupPrevalence:   m.PerGroupPrevalence,
		PerGroupMissingRatio: m.PerGroupMissingRatio,
		HasDistinction:       hasLabel(m.Labels, LabelMediumDistinction) || hasLabel(m.Labels, LabelHighDistinction),
		PrevalenceDifference: m.PrevalenceDifference,
		PrevalenceRatio:      m.PrevalenceRatio,
	}
}

// EdgeMetrics is the per-directed-pair metric bundle §4.11 computes.
type EdgeMetrics struct {
	From, To               graphmodel.NodeID
	PerGroupCoOccurrence   map[string]int64
	PerGroupCondPrevalence map[string]float64
	PerGroupCondIncrease   map[string]float64
	PerGroupIncreaseRatio  map[string]float64
	Type                   graphmodel.EdgeType
}

// Record converts m to the graphfilter post-filter's input shape.
func (m EdgeMetrics) Record() graphfilter.EdgeRecord {
	return graphfilter.EdgeRecord{
		From:                   m.From,
		To:                     m.To,
		PerGroupCondPrevalence: m.PerGroupCondPrevalence,
		PerGroupCondIncrease:   m.PerGroupCondIncrease,
		PerGroupIncreaseRatio:  m.PerGroupIncreaseRatio,
	}
}

// Result is the AAG generator's output before any post-filter runs.
type Result struct {
	Nodes []NodeMetrics
	Edges []EdgeMetrics
}

type varKey struct{ table, variable string }

// Generate computes the AAG metrics of §4.11 over g for the named
// groups. preFilter narrows the candidate node set before the O(n^2)
// pairwise co-occurrence stage; it does not drop nodes from the returned
// Result.Nodes, only from pairwise consideration. Pass the returned
// Result's records through a graphfilter.CompositionFilter for the §4.12
// post-filter.
func Generate(ctx context.Context, g *graphmodel.Graph, groups map[string]groupselect.GroupSelector, resolver GroupResolver, posNeg *PosNegPair, th Thresholds, preFilter []graphfilter.NodeFilter) (*Result, error) {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	groupSize := make(map[string]int, len(names))
	memberReach := make(map[string]map[graphmodel.NodeID]map[graphmodel.NodeID]bool, len(names))

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, xplerr.ErrCancelled
		}
		members, err := resolver.Members(groups[name])
		if err != nil {
			return nil, fmt.Errorf("aag: group %q: %w", name, err)
		}
		groupSize[name] = len(members)
		reach := make(map[graphmodel.NodeID]map[graphmodel.NodeID]bool, len(members))
		for _, m := range members {
			reach[m] = boundedReach(g, m, th.MaxPathLength)
		}
		memberReach[name] = reach
	}

	perNodeGroupCount := map[graphmodel.NodeID]map[string]int64{}
	varReachedBy := map[varKey]map[string]int{}

	for _, name := range names {
		for _, reached := range memberReach[name] {
			seenVars := map[varKey]bool{}
			for id := range reached {
				node := g.Node(id)
				if perNodeGroupCount[id] == nil {
					perNodeGroupCount[id] = map[string]int64{}
				}
				perNodeGroupCount[id][name]++
				seenVars[varKey{node.Table, node.Variable}] = true
			}
			for vk := range seenVars {
				if varReachedBy[vk] == nil {
					varReachedBy[vk] = map[string]int{}
				}
				varReachedBy[vk][name]++
			}
		}
	}

	var nodeIDs []graphmodel.NodeID
	for id := range perNodeGroupCount {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Slice(nodeIDs, func(i, j int) bool { return nodeIDs[i] < nodeIDs[j] })

	nodeMetrics := make(map[graphmodel.NodeID]*NodeMetrics, len(nodeIDs))
	for _, id := range nodeIDs {
		node := g.Node(id)
		vk := varKey{node.Table, node.Variable}
		nm := &NodeMetrics{NodeID: id, PerGroupPrevalence: map[string]float64{}, PerGroupMissingRatio: map[string]float64{}}
		for _, name := range names {
			size := groupSize[name]
			if size == 0 {
				continue
			}
			reachedMembers := varReachedBy[vk][name]
			missing := size - reachedMembers
			nm.PerGroupMissingRatio[name] = float64(missing) / float64(size)
			if reachedMembers > 0 {
				nm.PerGroupPrevalence[name] = float64(perNodeGroupCount[id][name]) / float64(reachedMembers)
			}
		}
		applyCrossGroupStats(nm, names, posNeg)
		nm.Labels = frequencyLabels(nm, th)
		nodeMetrics[id] = nm
	}

	candidateIDs := nodeIDs
	if len(preFilter) > 0 {
		cascade := graphfilter.AndCascadeNodes(preFilter)
		var filtered []graphmodel.NodeID
		for _, id := range nodeIDs {
			if cascade.KeepNode(nodeMetrics[id].Record()) {
				filtered = append(filtered, id)
			}
		}
		candidateIDs = filtered
	}
	candidateSet := make(map[graphmodel.NodeID]bool, len(candidateIDs))
	for _, id := range candidateIDs {
		candidateSet[id] = true
	}

	type pairKey struct{ a, b graphmodel.NodeID }
	coOcc := map[pairKey]map[string]int64{}
	for _, name := range names {
		for _, reached := range memberReach[name] {
			var present []graphmodel.NodeID
			for id := range reached {
				if candidateSet[id] {
					present = append(present, id)
				}
			}
			sort.Slice(present, func(i, j int) bool { return present[i] < present[j] })
			for i := 0; i < len(present); i++ {
				for j := i + 1; j < len(present); j++ {
					key := pairKey{present[i], present[j]}
					if coOcc[key] == nil {
						coOcc[key] = map[string]int64{}
					}
					coOcc[key][name]++
				}
			}
		}
	}

	var pairKeys []pairKey
	for k := range coOcc {
		pairKeys = append(pairKeys, k)
	}
	sort.Slice(pairKeys, func(i, j int) bool {
		if pairKeys[i].a != pairKeys[j].a {
			return pairKeys[i].a < pairKeys[j].a
		}
		return pairKeys[i].b < pairKeys[j].b
	})

	var edges []EdgeMetrics
	for _, key := range pairKeys {
		counts := coOcc[key]
		edges = append(edges, buildEdge(key.a, key.b, counts, perNodeGroupCount, nodeMetrics, names, th))
		edges = append(edges, buildEdge(key.b, key.a, counts, perNodeGroupCount, nodeMetrics, names, th))
	}

	result := &Result{Edges: edges}
	for _, id := range nodeIDs {
		result.Nodes = append(result.Nodes, *nodeMetrics[id])
	}
	return result, nil
}

// boundedReach walks g from start up to maxDepth hops, returning the
// Attribute/AttributeBin nodes encountered. HAS_ATTR_VAL and ASSIGNED_BIN
// edges are followed only in their declared direction (key to attribute,
// attribute to bin), so a member never reaches another row through a
// shared attribute node; CONNECTED_TO edges are followed both ways. Key
// nodes are traversed through (a path may cross into another table's
// rows via CONNECTED_TO) but never counted as "reached" themselves.
func boundedReach(g *graphmodel.Graph, start graphmodel.NodeID, maxDepth int) map[graphmodel.NodeID]bool {
	adj := make(map[graphmodel.NodeID][]graphmodel.NodeID)
	for _, e := range g.Edges() {
		adj[e.Source] = append(adj[e.Source], e.Target)
		if e.Type == graphmodel.ConnectedTo {
			adj[e.Target] = append(adj[e.Target], e.Source)
		}
	}
	reached := make(map[graphmodel.NodeID]bool)
	visited := map[graphmodel.NodeID]bool{start: true}
	type frontier struct {
		id    graphmodel.NodeID
		depth int
	}
	queue := []frontier{{start, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		for _, next := range adj[cur.id] {
			if visited[next] {
				continue
			}
			visited[next] = true
			if isAttrOrBin(g.Node(next)) {
				reached[next] = true
			}
			queue = append(queue, frontier{next, cur.depth + 1})
		}
	}
	return reached
}

func isAttrOrBin(n *graphmodel.Node) bool {
	for _, l := range n.Labels {
		if l == graphmodel.LabelAttribute || l == graphmodel.LabelAttributeBin {
			return true
		}
	}
	return false
}

// applyCrossGroupStats fills PrevalenceDifference/PrevalenceRatio: the
// direct (pos,neg) pair when posNeg is configured, otherwise the maximum
// over every pair of configured groups. Ratio is always expressed as
// max/min so it honors the >=1 invariant regardless of which group is
// "positive".
func applyCrossGroupStats(nm *NodeMetrics, names []string, posNeg *PosNegPair) {
	if posNeg != nil {
		pos, posOK := nm.PerGroupPrevalence[posNeg.Positive]
		neg, negOK := nm.PerGroupPrevalence[posNeg.Negative]
		if !posOK || !negOK {
			return
		}
		nm.PrevalenceDifference = absf(pos - neg)
		nm.PrevalenceRatio = ratioOf(pos, neg)
		return
	}
	var maxDiff, maxRatio float64
	have := false
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			pi, okI := nm.PerGroupPrevalence[names[i]]
			pj, okJ := nm.PerGroupPrevalence[names[j]]
			if !okI || !okJ {
				continue
			}
			have = true
			if d := absf(pi - pj); d > maxDiff {
				maxDiff = d
			}
			if r := ratioOf(pi, pj); r > maxRatio {
				maxRatio = r
			}
		}
	}
	if have {
		nm.PrevalenceDifference = maxDiff
		nm.PrevalenceRatio = maxRatio
	}
}

// ratioOf returns max(a,b)/min(a,b), pinned to +Inf when the minimum is
// zero and the maximum is not (a real distinction, not a division by
// zero), or 0 when both are zero (no relation to report).
func ratioOf(a, b float64) float64 {
	hi, lo := a, b
	if lo > hi {
		hi, lo = lo, hi
	}
	if lo == 0 {
		if hi == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return hi / lo
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func frequencyLabels(nm *NodeMetrics, th Thresholds) []string {
	peak := maxOf(nm.PerGroupPrevalence)
	labels := []string{}
	switch {
	case peak >= th.FrequencyHigh:
		labels = append(labels, LabelHighFrequency)
	case peak >= th.FrequencyLow:
		labels = append(labels, LabelMediumFrequency)
	default:
		labels = append(labels, LabelLowFrequency)
	}
	if nm.PrevalenceDifference >= th.DistinctionDiffHigh || nm.PrevalenceRatio >= th.DistinctionRatioHigh {
		labels = append(labels, LabelHighDistinction)
	} else if nm.PrevalenceDifference >= th.DistinctionDiffLow || nm.PrevalenceRatio >= th.DistinctionRatioLow {
		labels = append(labels, LabelMediumDistinction)
	}
	return labels
}

func buildEdge(from, to graphmodel.NodeID, counts map[string]int64, perNodeGroupCount map[graphmodel.NodeID]map[string]int64, nodeMetrics map[graphmodel.NodeID]*NodeMetrics, names []string, th Thresholds) EdgeMetrics {
	em := EdgeMetrics{
		From:                   from,
		To:                     to,
		PerGroupCoOccurrence:   counts,
		PerGroupCondPrevalence: map[string]float64{},
		PerGroupCondIncrease:   map[string]float64{},
		PerGroupIncreaseRatio:  map[string]float64{},
	}
	toPrevalence := nodeMetrics[to].PerGroupPrevalence
	for _, name := range names {
		countFrom := perNodeGroupCount[from][name]
		if countFrom == 0 {
			continue
		}
		co := counts[name]
		condPrevalence := float64(co) / float64(countFrom)
		em.PerGroupCondPrevalence[name] = condPrevalence

		prevTo, ok := toPrevalence[name]
		if !ok {
			continue
		}
		em.PerGroupCondIncrease[name] = condPrevalence - prevTo
		switch {
		case prevTo > 0:
			em.PerGroupIncreaseRatio[name] = condPrevalence / prevTo
		case condPrevalence > 0:
			em.PerGroupIncreaseRatio[name] = math.Inf(1)
		}
	}
	em.Type = relationType(em, th)
	return em
}

func relationType(em EdgeMetrics, th Thresholds) graphmodel.EdgeType {
	peak := maxOf(em.PerGroupCondPrevalence)
	if len(em.PerGroupCondPrevalence) == 0 {
		return Unassigned
	}
	switch {
	case peak >= th.FrequencyHigh:
		return HighRelation
	case peak >= th.FrequencyLow:
		return MediumRelation
	default:
		return LowRelation
	}
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

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}
