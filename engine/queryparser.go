package engine

import (
	"strings"
	"unicode"
)

// QueryParser parses the textual query syntax:
//
//	term  field:term  +must  -mustnot  a AND b  a OR b  NOT a  (group)
//	"phrase"  prefix*  wil?card  [lower TO upper]  {lower TO upper}  *:*
//
// Plain terms and phrases are run through Analyzer; wildcard and range
// terms are only lower-cased. Clauses without an operator use
// DefaultOperator (Should unless changed).
type QueryParser struct {
	DefaultField    string
	Analyzer        Analyzer
	DefaultOperator Occur
}

func NewQueryParser(defaultField string, analyzer Analyzer) *QueryParser {
	return &QueryParser{DefaultField: defaultField, Analyzer: analyzer, DefaultOperator: Should}
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokQuoted
	tokColon
	tokPlus
	tokMinus
	tokLParen
	tokRParen
	tokRangeStart
	tokRangeEnd
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type queryLexer struct {
	input []rune
	pos   int
}

func isSpecial(r rune) bool {
	return strings.ContainsRune(`():"[]{}`, r) || unicode.IsSpace(r)
}

func (lx *queryLexer) next() (token, error) {
	for lx.pos < len(lx.input) && unicode.IsSpace(lx.input[lx.pos]) {
		lx.pos++
	}
	start := lx.pos
	if lx.pos >= len(lx.input) {
		return token{kind: tokEOF, pos: start}, nil
	}
	c := lx.input[lx.pos]
	single := func(k tokenKind) (token, error) {
		lx.pos++
		return token{kind: k, text: string(c), pos: start}, nil
	}
	switch c {
	case ':':
		return single(tokColon)
	case '(':
		return single(tokLParen)
	case ')':
		return single(tokRParen)
	case '[', '{':
		return single(tokRangeStart)
	case ']', '}':
		return single(tokRangeEnd)
	case '+':
		return single(tokPlus)
	case '-':
		return single(tokMinus)
	case '"':
		lx.pos++
		var buf strings.Builder
		for lx.pos < len(lx.input) {
			c := lx.input[lx.pos]
			lx.pos++
			switch {
			case c == '\\' && lx.pos < len(lx.input):
				buf.WriteRune(lx.input[lx.pos])
				lx.pos++
			case c == '"':
				return token{kind: tokQuoted, text: buf.String(), pos: start}, nil
			default:
				buf.WriteRune(c)
			}
		}
		return token{}, &ParseError{Query: string(lx.input), Pos: start, Msg: "unterminated phrase"}
	}

	var buf strings.Builder
	for lx.pos < len(lx.input) {
		c := lx.input[lx.pos]
		if c == '\\' && lx.pos+1 < len(lx.input) {
			buf.WriteRune(lx.input[lx.pos+1])
			lx.pos += 2
			continue
		}
		if isSpecial(c) {
			break
		}
		buf.WriteRune(c)
		lx.pos++
	}
	return token{kind: tokWord, text: buf.String(), pos: start}, nil
}

type queryParserState struct {
	p      *QueryParser
	text   string
	lx     queryLexer
	tok    token
	peeked bool
}

func (st *queryParserState) peek() (token, error) {
	if !st.peeked {
		t, err := st.lx.next()
		if err != nil {
			return token{}, err
		}
		st.tok, st.peeked = t, true
	}
	return st.tok, nil
}

func (st *queryParserState) take() (token, error) {
	t, err := st.peek()
	st.peeked = false
	return t, err
}

func (st *queryParserState) errorf(pos int, msg string) error {
	return &ParseError{Query: st.text, Pos: pos, Msg: msg}
}

// Parse parses text into a Query. A query consisting of a single non-negated
// clause is returned as that clause.
func (p *QueryParser) Parse(text string) (Query, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Query: text, Msg: "empty query"}
	}
	st := &queryParserState{p: p, text: text, lx: queryLexer{input: []rune(text)}}
	bq, err := st.parseBoolean(0)
	if err != nil {
		return nil, err
	}
	t, err := st.peek()
	if err != nil {
		return nil, err
	}
	if t.kind != tokEOF {
		return nil, st.errorf(t.pos, "unexpected "+t.text)
	}
	return simplify(bq), nil
}

func simplify(bq *BooleanQuery) Query {
	if len(bq.Clauses) == 1 && bq.Clauses[0].Occur != MustNot {
		return bq.Clauses[0].Query
	}
	return bq
}

func (st *queryParserState) parseBoolean(depth int) (*BooleanQuery, error) {
	bq := NewBooleanQuery()
	next := st.p.DefaultOperator
	explicit := false
	for {
		t, err := st.peek()
		if err != nil {
			return nil, err
		}
		if t.kind == tokEOF || t.kind == tokRParen {
			if explicit {
				return nil, st.errorf(t.pos, "missing clause after operator")
			}
			return bq, nil
		}

		if t.kind == tokWord {
			switch t.text {
			case "AND", "&&":
				st.take()
				if n := len(bq.Clauses); n > 0 && bq.Clauses[n-1].Occur == Should {
					bq.Clauses[n-1].Occur = Must
				}
				next, explicit = Must, true
				continue
			case "OR", "||":
				st.take()
				next, explicit = Should, true
				continue
			case "NOT", "!":
				st.take()
				next, explicit = MustNot, true
				continue
			}
		}

		occur := next
		switch t.kind {
		case tokPlus:
			st.take()
			occur = Must
		case tokMinus:
			st.take()
			occur = MustNot
		}

		q, err := st.parseClause(depth)
		if err != nil {
			return nil, err
		}
		if q != nil {
			bq.Add(q, occur)
		}
		next, explicit = st.p.DefaultOperator, false
	}
}

func (st *queryParserState) parseClause(depth int) (Query, error) {
	field := st.p.DefaultField
	t, err := st.take()
	if err != nil {
		return nil, err
	}
	if t.kind == tokWord {
		if c, err := st.peek(); err != nil {
			return nil, err
		} else if c.kind == tokColon {
			st.take()
			field = t.text
			if t, err = st.take(); err != nil {
				return nil, err
			}
			if field == "*" && t.kind == tokWord && t.text == "*" {
				return MatchAllDocsQuery{}, nil
			}
		}
	}
	if field == "" {
		return nil, st.errorf(t.pos, "no field given and no default field set")
	}

	switch t.kind {
	case tokLParen:
		sub, err := st.parseBoolean(depth + 1)
		if err != nil {
			return nil, err
		}
		end, err := st.take()
		if err != nil {
			return nil, err
		}
		if end.kind != tokRParen {
			return nil, st.errorf(end.pos, "missing )")
		}
		if len(sub.Clauses) == 0 {
			return nil, nil
		}
		return simplify(sub), nil
	case tokQuoted:
		return st.analyzed(field, t.text), nil
	case tokRangeStart:
		return st.parseRange(field, t)
	case tokWord:
		return st.term(field, t.text), nil
	default:
		return nil, st.errorf(t.pos, "unexpected "+t.text)
	}
}

func (st *queryParserState) parseRange(field string, start token) (Query, error) {
	var words []token
	for {
		t, err := st.take()
		if err != nil {
			return nil, err
		}
		if t.kind == tokRangeEnd {
			if len(words) != 3 || words[1].text != "TO" {
				return nil, st.errorf(start.pos, "range must look like [lower TO upper]")
			}
			bound := func(s string) []byte {
				if s == "*" {
					return nil
				}
				return []byte(lower(s))
			}
			return NewTermRangeQuery(field, bound(words[0].text), bound(words[2].text), start.text == "[", t.text == "]"), nil
		}
		if t.kind != tokWord && t.kind != tokQuoted {
			return nil, st.errorf(t.pos, "unterminated range")
		}
		words = append(words, t)
	}
}

func (st *queryParserState) term(field, text string) Query {
	if strings.ContainsAny(text, "*?") {
		text = lower(text)
		if i := strings.IndexAny(text, "*?"); i == len(text)-1 && text[i] == '*' {
			return NewPrefixQuery(NewTerm(field, text[:i]))
		}
		return NewWildcardQuery(NewTerm(field, text))
	}
	return st.analyzed(field, text)
}

// analyzed returns a query requiring all tokens of text, or nil when the
// analyzer drops every token.
func (st *queryParserState) analyzed(field, text string) Query {
	tokens := st.p.Analyzer.Tokens(field, text)
	switch len(tokens) {
	case 0:
		return nil
	case 1:
		return NewTermQuery(NewTerm(field, tokens[0]))
	}
	bq := NewBooleanQuery()
	for _, tok := range tokens {
		bq.Add(NewTermQuery(NewTerm(field, tok)), Must)
	}
	return bq
}
