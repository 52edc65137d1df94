package conclusion

import (
	"fmt"
	"strings"

	"github.com/dbsmedya/goxplore/internal/aggregate"
	"github.com/dbsmedya/goxplore/internal/metadata"
)

// Print renders c into its textual form (§4.4):
//
//	RETURN "literal" OF TYPE T
//	COPY VARIABLE v IN TABLE t IF TYPE IS T
//	AGGREGATE AGG VARIABLE v OF TYPE T IN TABLE t
func Print(c Conclusion) string {
	switch v := c.(type) {
	case *FixedReturn:
		return fmt.Sprintf("RETURN %s OF TYPE %s", quoteLiteral(v.Value.Raw()), v.DataType)
	case *Copy:
		return fmt.Sprintf("COPY VARIABLE %s IN TABLE %s IF TYPE IS %s", v.Variable, v.OriginTable, v.DataType)
	case *Aggregate:
		return fmt.Sprintf("AGGREGATE %s VARIABLE %s OF TYPE %s IN TABLE %s", v.Aggregator, v.Variable, v.SourceDataType, v.OriginTable)
	default:
		return ""
	}
}

// Parse recovers a Conclusion from its textual form.
func Parse(s string) (Conclusion, error) {
	p := &cparser{s: s}
	kw, err := p.readWord()
	if err != nil {
		return nil, err
	}
	switch kw {
	case "RETURN":
		lit, err := p.readQuoted()
		if err != nil {
			return nil, err
		}
		if err := p.expectWord("OF"); err != nil {
			return nil, err
		}
		if err := p.expectWord("TYPE"); err != nil {
			return nil, err
		}
		dtTok, err := p.readWord()
		if err != nil {
			return nil, err
		}
		dt, err := metadata.ParseDataType(dtTok)
		if err != nil {
			return nil, fmt.Errorf("conclusion: %w", err)
		}
		return NewFixedReturn(dt, lit)
	case "COPY":
		if err := p.expectWord("VARIABLE"); err != nil {
			return nil, err
		}
		variable, err := p.readWord()
		if err != nil {
			return nil, err
		}
		if err := p.expectWord("IN"); err != nil {
			return nil, err
		}
		if err := p.expectWord("TABLE"); err != nil {
			return nil, err
		}
		table, err := p.readWord()
		if err != nil {
			return nil, err
		}
		if err := p.expectWord("IF"); err != nil {
			return nil, err
		}
		if err := p.expectWord("TYPE"); err != nil {
			return nil, err
		}
		if err := p.expectWord("IS"); err != nil {
			return nil, err
		}
		dtTok, err := p.readWord()
		if err != nil {
			return nil, err
		}
		dt, err := metadata.ParseDataType(dtTok)
		if err != nil {
			return nil, fmt.Errorf("conclusion: %w", err)
		}
		return NewCopy(dt, table, variable)
	case "AGGREGATE":
		aggTok, err := p.readWord()
		if err != nil {
			return nil, err
		}
		agg, err := aggregate.Parse(aggTok)
		if err != nil {
			return nil, fmt.Errorf("conclusion: %w", err)
		}
		if err := p.expectWord("VARIABLE"); err != nil {
			return nil, err
		}
		variable, err := p.readWord()
		if err != nil {
			return nil, err
		}
		if err := p.expectWord("OF"); err != nil {
			return nil, err
		}
		if err := p.expectWord("TYPE"); err != nil {
			return nil, err
		}
		dtTok, err := p.readWord()
		if err != nil {
			return nil, err
		}
		dt, err := metadata.ParseDataType(dtTok)
		if err != nil {
			return nil, fmt.Errorf("conclusion: %w", err)
		}
		if err := p.expectWord("IN"); err != nil {
			return nil, err
		}
		if err := p.expectWord("TABLE"); err != nil {
			return nil, err
		}
		table, err := p.readWord()
		if err != nil {
			return nil, err
		}
		return NewAggregate(dt, table, variable, agg)
	default:
		return nil, fmt.Errorf("conclusion: unrecognized form starting with %q", kw)
	}
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

type cparser struct {
	s string
	i int
}

func (p *cparser) skipWS() {
	for p.i < len(p.s) && (p.s[p.i] == ' ' || p.s[p.i] == '\t') {
		p.i++
	}
}

func (p *cparser) readWord() (string, error) {
	p.skipWS()
	start := p.i
	for p.i < len(p.s) && p.s[p.i] != ' ' && p.s[p.i] != '\t' {
		p.i++
	}
	if p.i == start {
		return "", fmt.Errorf("conclusion: expected a token at position %d", p.i)
	}
	return p.s[start:p.i], nil
}

func (p *cparser) expectWord(want string) error {
	word, err := p.readWord()
	if err != nil {
		return err
	}
	if word != want {
		return fmt.Errorf("conclusion: expected %q, got %q", want, word)
	}
	return nil
}

func (p *cparser) readQuoted() (string, error) {
	p.skipWS()
	if p.i >= len(p.s) || p.s[p.i] != '"' {
		return "", fmt.Errorf("conclusion: expected quoted literal at position %d", p.i)
	}
	p.i++
	var sb strings.Builder
	for p.i < len(p.s) && p.s[p.i] != '"' {
		if p.s[p.i] == '\\' && p.i+1 < len(p.s) {
			p.i++
		}
		sb.WriteByte(p.s[p.i])
		p.i++
	}
	if p.i >= len(p.s) {
		return "", fmt.Errorf("conclusion: unterminated quoted literal")
	}
	p.i++
	return sb.String(), nil
}
