package pipeline

import (
	"fmt"

	"github.com/dbsmedya/goxplore/internal/aag"
	"github.com/dbsmedya/goxplore/internal/config"
	"github.com/dbsmedya/goxplore/internal/expr"
	"github.com/dbsmedya/goxplore/internal/graphfilter"
	"github.com/dbsmedya/goxplore/internal/groupselect"
)

// buildGroups parses every configured group's condition string (§4.2
// printed form) into a groupselect.GroupSelector keyed by group name.
func buildGroups(job *config.JobConfig) (map[string]groupselect.GroupSelector, error) {
	groups := make(map[string]groupselect.GroupSelector, len(job.Groups))
	for name, gc := range job.Groups {
		cond, err := expr.Parse(gc.Condition)
		if err != nil {
			return nil, fmt.Errorf("pipeline: group %q condition: %w", name, err)
		}
		groups[name] = groupselect.GroupSelector{
			GroupName:  name,
			GroupTable: gc.Table,
			Condition:  cond,
		}
	}
	return groups, nil
}

// buildPosNeg converts the configured pos/neg pair, if any, to the AAG
// generator's PosNegPair. A nil JobConfig.PosNeg means the run takes the
// max over every pair of configured groups instead of one directional
// comparison.
func buildPosNeg(job *config.JobConfig) *aag.PosNegPair {
	if job.PosNeg == nil {
		return nil
	}
	return &aag.PosNegPair{Positive: job.PosNeg.Positive, Negative: job.PosNeg.Negative}
}

// buildAAGThresholds converts the job's configured bands to
// aag.Thresholds, falling back to aag.DefaultThresholds for any field
// left at its zero value so a config that only overrides one band
// doesn't zero out the rest.
func buildAAGThresholds(cfg config.AAGConfig) aag.Thresholds {
	th := aag.DefaultThresholds()
	if cfg.MaxPathLength > 0 {
		th.MaxPathLength = cfg.MaxPathLength
	}
	if cfg.FrequencyLow > 0 {
		th.FrequencyLow = cfg.FrequencyLow
	}
	if cfg.FrequencyHigh > 0 {
		th.FrequencyHigh = cfg.FrequencyHigh
	}
	if cfg.DistinctionDiffLow > 0 {
		th.DistinctionDiffLow = cfg.DistinctionDiffLow
	}
	if cfg.DistinctionDiffHigh > 0 {
		th.DistinctionDiffHigh = cfg.DistinctionDiffHigh
	}
	if cfg.DistinctionRatioLow > 0 {
		th.DistinctionRatioLow = cfg.DistinctionRatioLow
	}
	if cfg.DistinctionRatioHigh > 0 {
		th.DistinctionRatioHigh = cfg.DistinctionRatioHigh
	}
	return th
}

// buildCompositionFilter converts the job's §4.12 filter settings into a
// graphfilter.CompositionFilter. The node/edge ratio splits are left at
// an even three-way default since no job has yet needed to skew them;
// a future config field can thread Ratio3 through once one does.
func buildCompositionFilter(cfg config.FilterConfig) graphfilter.CompositionFilter {
	even := graphfilter.Ratio3{A: 1.0 / 3, B: 1.0 / 3, C: 1.0 / 3}

	var nodeFilters []graphfilter.NodeFilter
	if cfg.PrevalenceMin != nil || cfg.PrevalenceMax != nil {
		nodeFilters = append(nodeFilters, graphfilter.PrevalenceFilter{
			ThresholdParamFilter: graphfilter.ThresholdParamFilter{Min: cfg.PrevalenceMin, Max: cfg.PrevalenceMax, Mode: graphfilter.Any},
		})
	}
	if cfg.MissingRatioMax != nil {
		nodeFilters = append(nodeFilters, graphfilter.MissingRatioFilter{
			ThresholdParamFilter: graphfilter.ThresholdParamFilter{Max: cfg.MissingRatioMax, Mode: graphfilter.All},
		})
	}

	var edgeFilters []graphfilter.EdgeFilter
	if cfg.CondPrevalenceMin != nil {
		edgeFilters = append(edgeFilters, graphfilter.CondPrevalenceFilter{
			ThresholdParamFilter: graphfilter.ThresholdParamFilter{Min: cfg.CondPrevalenceMin, Mode: graphfilter.Any},
		})
	}

	return graphfilter.CompositionFilter{
		NodeThresholds:             nodeFilters,
		PercNofNodes:               percOrAll(cfg.PercNofNodes),
		MaxNofNodes:                cfg.MaxNofNodes,
		NodeRatio:                  even,
		EdgeThresholds:             edgeFilters,
		PercNofEdges:               percOrAll(cfg.PercNofEdges),
		MaxNofEdges:                cfg.MaxNofEdges,
		EdgeRatio:                  even,
		IncludeConditionalDecrease: cfg.IncludeConditionalDecrease,
	}
}

// percOrAll treats an unconfigured (zero) percentage as "keep
// everything that reached this stage" rather than "keep nothing".
func percOrAll(p float64) float64 {
	if p <= 0 {
		return 1.0
	}
	return p
}
