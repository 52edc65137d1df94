package expr

import (
	"strconv"
	"strings"
)

// Print renders e into the textual form of §4.2. Parenthesization is
// applied at every node.
func Print(e Expr) string {
	switch v := e.(type) {
	case AlwaysTrue:
		return "(TRUE)"
	case *StringAtom:
		return fmt_VariableClause(v.Variable, v.DataType.String(), v.Table, string(v.Op), quoteLiteral(v.Value))
	case *MetricAtom:
		return fmt_VariableClause(v.Variable, v.DataType.String(), v.Table, string(v.Op), formatFloat(v.Value))
	case *InListAtom:
		tokens := make([]string, len(v.Values))
		for i, val := range v.Values {
			tokens[i] = formatListToken(val)
		}
		return fmt_VariableClause(v.Variable, v.DataType.String(), v.Table, "IN", "["+strings.Join(tokens, ", ")+"]")
	case *AggregateAtom:
		var lit string
		if v.Op.IsStringOp() {
			lit = quoteLiteral(v.StringValue)
		} else {
			lit = formatFloat(v.NumericValue)
		}
		return "(AGGREGATE " + v.Aggregator.String() + " VARIABLE " + v.Variable +
			" OF TYPE " + v.SourceDataType.String() + " IN TABLE " + v.Table + " " + string(v.Op) + " " + lit + ")"
	case *Not:
		return "(NOT " + Print(v.Expr) + ")"
	case *And:
		return "(" + joinPrinted(v.Exprs, " AND ") + ")"
	case *Or:
		return "(" + joinPrinted(v.Exprs, " OR ") + ")"
	default:
		return "(TRUE)"
	}
}

func fmt_VariableClause(variable, dataType, table, opOrIn, rhs string) string {
	return "(VARIABLE " + variable + " OF TYPE " + dataType + " IN TABLE " + table + " " + opOrIn + " " + rhs + ")"
}

func joinPrinted(exprs []Expr, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = Print(e)
	}
	return strings.Join(parts, sep)
}

func quoteLiteral(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(c)
	}
	sb.WriteByte('"')
	return sb.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatListToken renders a single InListAtom candidate: unquoted when
// it has no whitespace or comma, quoted otherwise (§4.2).
func formatListToken(s string) string {
	if needsQuote(s) {
		return quoteLiteral(s)
	}
	return s
}

func needsQuote(s string) bool {
	if s == "" {
		return true
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r', ',':
			return true
		}
	}
	return false
}
