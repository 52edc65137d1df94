package graphmodel

import (
	"fmt"
	"sort"

	"github.com/dbsmedya/goxplore/internal/logger"
	"github.com/dbsmedya/goxplore/internal/metadata"
	"github.com/dbsmedya/goxplore/internal/rowio"
)

const (
	BinLow    = "low"
	BinNormal = "normal"
	BinHigh   = "high"
)

// pendingFK is a CONNECTED_TO edge whose target table's Key nodes may not
// exist yet (it could be processed later in table order, or never, if the
// referenced row is absent), so resolution is deferred to a second pass.
type pendingFK struct {
	from     NodeID
	variable string
	refTable string
	rawValue string
}

// binSample is one metric attribute node awaiting its bin assignment,
// deferred until every row of its table has been scanned so the
// central-60% reference range (when not explicitly configured) can be
// computed over the whole column.
type binSample struct {
	attrID NodeID
	value  float64
}

// Translate builds the base graph of §4.9 from a MetaData and a per-table
// row loader: one Key node per row, one deduplicated Attribute node per
// (table, variable, value) triple linked to its row's Key node, a
// CONNECTED_TO edge per foreign key, and ASSIGNED_BIN edges for metric
// variables flagged should_bin. log may be nil; a nil logger silently
// drops the warnings this function would otherwise emit.
func Translate(md *metadata.MetaData, loader func(table string) ([]rowio.Row, error), log *logger.Logger) (*Graph, error) {
	g := New()
	var pending []pendingFK

	for _, tableName := range md.TableNames() {
		table, _ := md.Table(tableName)
		if table.PrimaryKey == nil {
			return nil, fmt.Errorf("graphmodel: table %q has no primary key, cannot translate", tableName)
		}
		pkVar := *table.PrimaryKey
		pkInfo, _ := table.Variable(pkVar)

		rows, err := loader(tableName)
		if err != nil {
			return nil, fmt.Errorf("graphmodel: loading table %q: %w", tableName, err)
		}

		binSamples := make(map[string][]binSample) // variable -> samples
		for _, row := range rows {
			rawPK := row[pkVar]
			pkVal, ok := metadata.Cast(rawPK, pkInfo.DataType)
			if !ok {
				pkVal = metadata.NewStringValue(rawPK)
			}
			keyID := g.AddKeyNode(tableName, pkVal, rawPK)

			for _, col := range table.VariableNames() {
				if col == pkVar {
					continue
				}
				v, _ := table.Variable(col)
				raw := row[col]

				if v.VariableType == metadata.ForeignKey {
					refTable, _ := table.ForeignKeys.Get(col)
					pending = append(pending, pendingFK{from: keyID, variable: col, refTable: refTable, rawValue: raw})
					continue
				}

				val, ok := metadata.Cast(raw, v.DataType)
				if !ok {
					val = metadata.NewStringValue(raw)
				}
				attrID := g.AddAttributeNode(tableName, col, val)
				g.AddEdge(keyID, attrID, HasAttrVal)

				if shouldBin(v) && !excluded(v.Binning.ExcludeFromBinning, raw) && ok {
					binSamples[col] = append(binSamples[col], binSample{attrID: attrID, value: val.AsDecimal()})
				}
			}
		}

		for col, samples := range binSamples {
			v, _ := table.Variable(col)
			lo, hi := referenceRange(v.Binning, samples)
			for _, s := range samples {
				bin := BinNormal
				switch {
				case s.value < lo:
					bin = BinLow
				case s.value > hi:
					bin = BinHigh
				}
				binID := g.AddBinNode(tableName, col, bin, lo, hi)
				g.AddEdge(s.attrID, binID, AssignedBin)
			}
		}
	}

	for _, fk := range pending {
		target, ok := g.ResolveKey(fk.refTable, fk.rawValue)
		if !ok {
			if log != nil {
				log.Warnw("graph translation: foreign key target not found, skipping edge",
					"variable", fk.variable, "references_table", fk.refTable, "value", fk.rawValue)
			}
			continue
		}
		g.AddEdge(fk.from, target, ConnectedTo)
	}

	return g, nil
}

func shouldBin(v *metadata.VariableInfo) bool {
	return v.VariableType == metadata.Metric && v.Binning != nil && v.Binning.ShouldBin
}

func excluded(list []string, raw string) bool {
	for _, s := range list {
		if s == raw {
			return true
		}
	}
	return false
}

// referenceRange returns the bin boundary the variable was configured
// with, or the central 60% of its observed values (the 20th and 80th
// percentiles) when none was configured.
func referenceRange(b *metadata.Binning, samples []binSample) (float64, float64) {
	if b.RefLow != nil && b.RefHigh != nil {
		return *b.RefLow, *b.RefHigh
	}
	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.value
	}
	sort.Float64s(values)
	return percentile(values, 0.2), percentile(values, 0.8)
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
