// Package metagen is the metadata generator (§4.5): it infers a
// table's primary key, foreign keys, per-variable data type, variable
// role, value distribution, and artifact annotations from a stream of
// raw rows.
//
// The statistical-inference shape — a struct of named counters filled
// incrementally, then reduced into a result — is grounded on the
// teacher's internal/verifier package's comparison idiom (accumulate
// per-field stats, then build a verdict struct from them). Numeric
// coercion reuses the cast rules of internal/metadata/value.go the way
// internal/types/convert.go centralizes coercion for the teacher's row
// scanning.
package metagen

import (
	"sort"

	"github.com/dbsmedya/goxplore/internal/metadata"
	"github.com/dbsmedya/goxplore/internal/rowio"
	"github.com/dbsmedya/goxplore/internal/xplerr"
)

// ArtifactMode selects how aggressively artifact detection runs (§3.3/§4.5).
type ArtifactMode int

const (
	NoArtifacts ArtifactMode = iota
	OnlyDataTypeMismatch
	DataTypeMismatchAndOutliers
)

// Thresholds are the tunable knobs of §4.5, with the spec's defaults.
type Thresholds struct {
	CategoricalThreshold int // distinct-value count above which a numeric variable is Metric, not Categorical
	BinningThreshold     int // distinct-value count above which a metric variable is flagged should_bin
	StrLenFreeText       int // string length above which a variable is recognized as free text
	MissingValues        []string
	Mode                 ArtifactMode
}

// DefaultThresholds returns the spec's default tunables.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CategoricalThreshold: 20,
		BinningThreshold:     20,
		StrLenFreeText:       300,
		MissingValues:        []string{"", "NaN", "NA", "nan"},
		Mode:                 DataTypeMismatchAndOutliers,
	}
}

func (th Thresholds) isMissing(raw string) bool {
	for _, m := range th.MissingValues {
		if raw == m {
			return true
		}
	}
	return false
}

// Generate infers a MetaData from a set of per-table row streams, read
// via loader (one call per table, in tableOrder). Table order in the
// result follows tableOrder.
func Generate(tableOrder []string, loader func(table string) ([]rowio.Row, error), th Thresholds) (*metadata.MetaData, error) {
	md := metadata.New()
	allRows := make(map[string][]rowio.Row, len(tableOrder))
	allHeaders := make(map[string][]string, len(tableOrder))

	for _, table := range tableOrder {
		rows, err := loader(table)
		if err != nil {
			return nil, err
		}
		header, err := checkUniformHeader(table, rows)
		if err != nil {
			return nil, err
		}
		allRows[table] = rows
		allHeaders[table] = header
	}

	// Primary keys must be known before foreign-key detection (step 2
	// references another table's PK column name), so compute them for
	// every table first.
	pkColumn := make(map[string]string, len(tableOrder))
	for _, table := range tableOrder {
		if pk, ok := detectPrimaryKey(allHeaders[table], allRows[table]); ok {
			pkColumn[table] = pk
		}
	}

	for _, table := range tableOrder {
		info := metadata.NewTableInfo(table)
		header := allHeaders[table]
		rows := allRows[table]

		pk, hasPK := pkColumn[table]

		fkTargets := make(map[string]string) // column -> referenced table
		for _, col := range header {
			if hasPK && col == pk {
				continue
			}
			for _, other := range tableOrder {
				if other == table {
					continue
				}
				otherPK, ok := pkColumn[other]
				if ok && otherPK == col {
					fkTargets[col] = other
					break
				}
			}
		}
		for col, ref := range fkTargets {
			info.SetForeignKey(col, ref)
		}

		if hasPK {
			dt, _ := dominantTypeOnly(pk, rows, th)
			if err := info.AddVariable(&metadata.VariableInfo{
				Name: pk, VariableType: metadata.PrimaryKey, DataType: dt,
			}); err != nil {
				return nil, err
			}
		}
		for col := range fkTargets {
			dt, _ := dominantTypeOnly(col, rows, th)
			if err := info.AddVariable(&metadata.VariableInfo{
				Name: col, VariableType: metadata.ForeignKey, DataType: dt,
			}); err != nil {
				return nil, err
			}
		}

		for _, col := range header {
			if hasPK && col == pk {
				continue
			}
			if _, isFK := fkTargets[col]; isFK {
				continue
			}
			v, err := analyzeVariable(table, col, rows, th)
			if err != nil {
				return nil, err
			}
			if err := info.AddVariable(v); err != nil {
				return nil, err
			}
		}

		md.AddTable(info)
	}

	return md, nil
}

// checkUniformHeader verifies every row of table declares the same
// column set, returning that header sorted by column name (§4.5's
// "schema mismatch" failure mode).
func checkUniformHeader(table string, rows []rowio.Row) ([]string, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	header := make([]string, 0, len(rows[0]))
	for col := range rows[0] {
		header = append(header, col)
	}
	sort.Strings(header)
	for _, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, &xplerr.SchemaError{Table: table, Msg: "row declares a different column count than the table header"}
		}
		for _, col := range header {
			if _, ok := row[col]; !ok {
				return nil, &xplerr.SchemaError{Table: table, Variable: col, Msg: "column absent from a row of this table"}
			}
		}
	}
	return header, nil
}

// detectPrimaryKey picks the unique, non-missing, all-distinct column,
// per §4.5 step 1. If several columns qualify, the first in header
// order wins; if none does, ok is false.
func detectPrimaryKey(header []string, rows []rowio.Row) (string, bool) {
	for _, col := range header {
		seen := make(map[string]bool, len(rows))
		distinct := true
		for _, row := range rows {
			v := row[col]
			if v == "" {
				distinct = false
				break
			}
			if seen[v] {
				distinct = false
				break
			}
			seen[v] = true
		}
		if distinct && len(rows) > 0 {
			return col, true
		}
	}
	return "", false
}

func dominantTypeOnly(col string, rows []rowio.Row, th Thresholds) (metadata.DataType, bool) {
	freq := buildFrequency(col, rows, th)
	if freq.total() == 0 {
		return metadata.String, false
	}
	return freq.dominantType(), true
}
