package metagen

import (
	"sort"

	"github.com/dbsmedya/goxplore/internal/metadata"
	"github.com/dbsmedya/goxplore/internal/rowio"
	"github.com/elliotchance/orderedmap/v2"
)

// frequency is a per-variable scan result: a raw-string multiset, a
// per-DataType successful-cast count, and the missing count, gathered
// in a single pass over the column (§4.5 step 3).
type frequency struct {
	counts       map[string]int64
	order        []string // first-seen order, for deterministic category ranking ties
	castCounts   map[metadata.DataType]int64
	missingCount int
	maxLen       int
}

func buildFrequency(col string, rows []rowio.Row, th Thresholds) *frequency {
	f := &frequency{
		counts:     make(map[string]int64),
		castCounts: make(map[metadata.DataType]int64),
	}
	for _, row := range rows {
		raw := row[col]
		if th.isMissing(raw) {
			f.missingCount++
			continue
		}
		if _, seen := f.counts[raw]; !seen {
			f.order = append(f.order, raw)
		}
		f.counts[raw]++
		if len(raw) > f.maxLen {
			f.maxLen = len(raw)
		}
		for _, dt := range []metadata.DataType{metadata.Integer, metadata.Decimal, metadata.String} {
			if _, ok := metadata.Cast(raw, dt); ok {
				f.castCounts[dt]++
			}
		}
	}
	return f
}

func (f *frequency) total() int64 {
	var n int64
	for _, c := range f.counts {
		n += c
	}
	return n
}

func (f *frequency) distinctCount() int {
	return len(f.counts)
}

// dominantType returns the DataType with the most successful casts,
// preferring the narrowest type on a tie (Integer < Decimal < String).
func (f *frequency) dominantType() metadata.DataType {
	best := metadata.String
	var bestCount int64 = -1
	for _, dt := range []metadata.DataType{metadata.Integer, metadata.Decimal, metadata.String} {
		c := f.castCounts[dt]
		if c > bestCount {
			bestCount = c
			best = dt
		}
	}
	return best
}

// dataTypeDistribution renders, per DataType, the fraction of non-missing
// values whose most specific castable type (metadata.DominantCastableType)
// is that type, summing to 1 across DataType (§3.2).
func (f *frequency) dataTypeDistribution() map[metadata.DataType]float64 {
	total := f.total()
	if total == 0 {
		return nil
	}
	perType := make(map[metadata.DataType]int64, 3)
	for raw, c := range f.counts {
		perType[metadata.DominantCastableType(raw)] += c
	}
	out := make(map[metadata.DataType]float64, 3)
	for _, dt := range []metadata.DataType{metadata.Integer, metadata.Decimal, metadata.String} {
		out[dt] = float64(perType[dt]) / float64(total)
	}
	return out
}

// analyzeVariable runs steps 3-5 of §4.5 for one non-key column.
func analyzeVariable(table, col string, rows []rowio.Row, th Thresholds) (*metadata.VariableInfo, error) {
	freq := buildFrequency(col, rows, th)
	dominant := freq.dominantType()
	freeText := dominant == metadata.String && freq.maxLen > th.StrLenFreeText

	isMetric := dominant != metadata.String && freq.distinctCount() > th.CategoricalThreshold

	v := &metadata.VariableInfo{
		Name:                 col,
		Table:                table,
		DataType:             dominant,
		DataTypeDistribution: freq.dataTypeDistribution(),
	}

	if isMetric {
		v.VariableType = metadata.Metric
	} else {
		v.VariableType = metadata.Categorical
	}

	artifacts, artifactRaws := detectArtifacts(freq, dominant, th.Mode)
	v.Artifacts = artifactRaws

	if !freeText {
		if isMetric {
			v.ValueDistribution = buildMetricDistribution(freq, dominant, artifacts)
			if freq.distinctCount() > th.BinningThreshold {
				v.Binning = &metadata.Binning{ShouldBin: true}
			}
		} else {
			if dist, ok := buildCategoricalDistribution(freq, dominant, artifacts); ok {
				v.ValueDistribution = dist
			}
		}
	}

	return v, nil
}

// detectArtifacts implements §3.3's artifact rules: under
// OnlyDataTypeMismatch, a raw value that fails to cast to the
// dominant type is an artifact; under DataTypeMismatchAndOutliers,
// additionally any metric value outside the Tukey fences that occurs
// exactly once is an artifact. Returns the set of artifact raw values
// (for counting) and the ordered list of distinct artifact strings
// (for VariableInfo.Artifacts).
func detectArtifacts(freq *frequency, dominant metadata.DataType, mode ArtifactMode) (map[string]bool, []string) {
	artifacts := make(map[string]bool)
	if mode == NoArtifacts {
		return artifacts, nil
	}
	for _, raw := range freq.order {
		if _, ok := metadata.Cast(raw, dominant); !ok {
			artifacts[raw] = true
		}
	}
	if mode == DataTypeMismatchAndOutliers && dominant != metadata.String {
		fences, ok := tukeyFences(freq, dominant)
		if ok {
			for _, raw := range freq.order {
				if artifacts[raw] {
					continue
				}
				val, ok := metadata.Cast(raw, dominant)
				if !ok {
					continue
				}
				d := val.AsDecimal()
				if freq.counts[raw] == 1 && (d < fences.lower || d > fences.upper) {
					artifacts[raw] = true
				}
			}
		}
	}
	var ordered []string
	for _, raw := range freq.order {
		if artifacts[raw] {
			ordered = append(ordered, raw)
		}
	}
	return artifacts, ordered
}

type fenceRange struct{ lower, upper float64 }

func tukeyFences(freq *frequency, dominant metadata.DataType) (fenceRange, bool) {
	values := castNumericValues(freq, dominant)
	if len(values) == 0 {
		return fenceRange{}, false
	}
	q1 := percentile(values, 0.25)
	q3 := percentile(values, 0.75)
	iqr := q3 - q1
	return fenceRange{lower: q1 - 1.5*iqr, upper: q3 + 1.5*iqr}, true
}

// castNumericValues expands the frequency multiset into a sorted slice
// of float64s, one entry per occurrence (not per distinct value), so
// percentile/median weight by frequency the way a flat row scan would.
func castNumericValues(freq *frequency, dominant metadata.DataType) []float64 {
	var values []float64
	for _, raw := range freq.order {
		val, ok := metadata.Cast(raw, dominant)
		if !ok {
			continue
		}
		for i := int64(0); i < freq.counts[raw]; i++ {
			values = append(values, val.AsDecimal())
		}
	}
	sort.Float64s(values)
	return values
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := p * float64(len(sorted)-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func buildMetricDistribution(freq *frequency, dominant metadata.DataType, artifacts map[string]bool) metadata.MetricDistribution {
	values := castNumericValues(freq, dominant)
	fences, _ := tukeyFences(freq, dominant)
	dist := metadata.MetricDistribution{
		LowerFence:   fences.lower,
		UpperFence:   fences.upper,
		MissingCount: freq.missingCount,
	}
	if len(values) > 0 {
		dist.Median = percentile(values, 0.5)
		dist.Q1 = percentile(values, 0.25)
		dist.Q3 = percentile(values, 0.75)
	}
	for _, raw := range freq.order {
		val, ok := metadata.Cast(raw, dominant)
		if !ok {
			continue
		}
		d := val.AsDecimal()
		if freq.counts[raw] == 1 && (d < fences.lower || d > fences.upper) {
			dist.Outliers = append(dist.Outliers, val)
		}
	}
	for raw := range artifacts {
		dist.ArtifactCount += int(freq.counts[raw])
	}
	return dist
}

// buildCategoricalDistribution implements the top-10/≥50% rule of
// §3.3: the distribution is omitted entirely (ok=false) if the top 10
// categories do not together reach half of the non-missing total.
func buildCategoricalDistribution(freq *frequency, dominant metadata.DataType, artifacts map[string]bool) (metadata.CategoricalDistribution, bool) {
	type entry struct {
		raw   string
		count int64
	}
	entries := make([]entry, 0, len(freq.order))
	for _, raw := range freq.order {
		entries = append(entries, entry{raw: raw, count: freq.counts[raw]})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].count > entries[j].count })

	total := freq.total()
	if total == 0 {
		return metadata.CategoricalDistribution{}, false
	}

	top := entries
	if len(top) > 10 {
		top = top[:10]
	}
	var topSum int64
	for _, e := range top {
		topSum += e.count
	}
	if float64(topSum) < 0.5*float64(total) {
		return metadata.CategoricalDistribution{}, false
	}

	dist := metadata.CategoricalDistribution{
		CategoryCounts: orderedmap.NewOrderedMap[metadata.Value, int64](),
		MissingCount:   freq.missingCount,
	}
	for _, e := range top {
		val, ok := metadata.Cast(e.raw, dominant)
		if !ok {
			continue
		}
		dist.CategoryCounts.Set(val, e.count)
	}
	var other int64
	for _, e := range entries[len(top):] {
		other += e.count
	}
	dist.OtherCount = other
	for raw := range artifacts {
		dist.ArtifactCount += int(freq.counts[raw])
	}
	return dist, true
}
