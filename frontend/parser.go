// Package frontend turns DSL source text into a sealed *plan.Plan (or a
// non-empty diagnostic.List): a hand-written recursive-descent lexer and
// parser feeding the three-phase lowering §4.3 describes. Parser-combinator
// libraries are an explicit out-of-scope external collaborator.
package frontend

import (
	"fmt"

	"github.com/syssam/emdb/expr"
	"github.com/syssam/emdb/frontend/diagnostic"
)

// Parser consumes a token stream produced by Lexer into a Program.
type Parser struct {
	lex  *Lexer
	tok  Token
	peek Token
	err  error
}

// NewParser returns a Parser over file's src.
func NewParser(file, src string) (*Parser, error) {
	p := &Parser{lex: NewLexer(file, src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	p.tok = p.peek
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.peek = t
	return nil
}

func (p *Parser) at(k TokenKind) bool { return p.tok.Kind == k }

func (p *Parser) atKeyword(kw string) bool {
	return p.tok.Kind == TIdent && p.tok.Text == kw
}

func (p *Parser) expect(k TokenKind, what string) (Token, error) {
	if p.tok.Kind != k {
		return Token{}, fmt.Errorf("frontend: %s: expected %s, found %q", p.tok.Span, what, p.tok.Text)
	}
	t := p.tok
	return t, p.advance()
}

func (p *Parser) expectKeyword(kw string) (Token, error) {
	if !p.atKeyword(kw) {
		return Token{}, fmt.Errorf("frontend: %s: expected %q, found %q", p.tok.Span, kw, p.tok.Text)
	}
	t := p.tok
	return t, p.advance()
}

// ParseProgram parses an entire source file into a Program.
func (p *Parser) ParseProgram() (*Program, error) {
	prog := &Program{}
	for !p.at(TEOF) {
		switch {
		case p.atKeyword("impl"):
			impl, err := p.parseImpl()
			if err != nil {
				return nil, err
			}
			prog.Impls = append(prog.Impls, impl)
		case p.atKeyword("table"):
			t, err := p.parseTable()
			if err != nil {
				return nil, err
			}
			prog.Tables = append(prog.Tables, t)
		case p.atKeyword("query"):
			q, err := p.parseQuery()
			if err != nil {
				return nil, err
			}
			prog.Queries = append(prog.Queries, q)
		default:
			return nil, fmt.Errorf("frontend: %s: expected impl/table/query, found %q", p.tok.Span, p.tok.Text)
		}
	}
	return prog, nil
}

func (p *Parser) parseImpl() (ImplDecl, error) {
	start := p.tok.Span
	if _, err := p.expectKeyword("impl"); err != nil {
		return ImplDecl{}, err
	}
	backend, err := p.expect(TIdent, "backend identifier")
	if err != nil {
		return ImplDecl{}, err
	}
	if _, err := p.expectKeyword("as"); err != nil {
		return ImplDecl{}, err
	}
	name, err := p.expect(TIdent, "impl name")
	if err != nil {
		return ImplDecl{}, err
	}
	decl := ImplDecl{Backend: backend.Text, Name: name.Text, Opts: map[string]string{}}
	if p.at(TLBrace) {
		p.advance()
		for !p.at(TRBrace) {
			k, err := p.expect(TIdent, "option key")
			if err != nil {
				return ImplDecl{}, err
			}
			if _, err := p.expect(TColon, ":"); err != nil {
				return ImplDecl{}, err
			}
			v, err := p.expect(TIdent, "option value")
			if err != nil {
				return ImplDecl{}, err
			}
			decl.Opts[k.Text] = v.Text
			if p.at(TComma) {
				p.advance()
			}
		}
		p.advance() // }
	}
	end := p.tok.Span
	if _, err := p.expect(TSemi, ";"); err != nil {
		return ImplDecl{}, err
	}
	decl.Span = diagnostic.Span{File: start.File, Start: start.Start, End: end.End}
	return decl, nil
}

func (p *Parser) parseTable() (TableDecl, error) {
	start := p.tok.Span
	if _, err := p.expectKeyword("table"); err != nil {
		return TableDecl{}, err
	}
	name, err := p.expect(TIdent, "table name")
	if err != nil {
		return TableDecl{}, err
	}
	decl := TableDecl{Name: name.Text}
	if _, err := p.expect(TLBrace, "{"); err != nil {
		return TableDecl{}, err
	}
	for !p.at(TRBrace) {
		fname, err := p.expect(TIdent, "field name")
		if err != nil {
			return TableDecl{}, err
		}
		if _, err := p.expect(TColon, ":"); err != nil {
			return TableDecl{}, err
		}
		ftype, err := p.expect(TIdent, "field type")
		if err != nil {
			return TableDecl{}, err
		}
		decl.Fields = append(decl.Fields, FieldDecl{Name: fname.Text, Type: ftype.Text, Span: fname.Span})
		if p.at(TComma) {
			p.advance()
		}
	}
	p.advance() // }

	if p.at(TAt) {
		p.advance()
		if _, err := p.expect(TLBracket, "["); err != nil {
			return TableDecl{}, err
		}
		for !p.at(TRBracket) {
			c, err := p.parseConstraint()
			if err != nil {
				return TableDecl{}, err
			}
			decl.Constraints = append(decl.Constraints, c)
			if p.at(TComma) {
				p.advance()
			}
		}
		p.advance() // ]
	}
	end := p.tok.Span
	if _, err := p.expect(TSemi, ";"); err != nil {
		return TableDecl{}, err
	}
	decl.Span = diagnostic.Span{File: start.File, Start: start.Start, End: end.End}
	return decl, nil
}

func (p *Parser) parseConstraint() (ConstraintDecl, error) {
	span := p.tok.Span
	switch {
	case p.atKeyword("unique"):
		p.advance()
		if _, err := p.expect(TLParen, "("); err != nil {
			return ConstraintDecl{}, err
		}
		col, err := p.expect(TIdent, "column name")
		if err != nil {
			return ConstraintDecl{}, err
		}
		if _, err := p.expect(TRParen, ")"); err != nil {
			return ConstraintDecl{}, err
		}
		alias := col.Text
		if p.atKeyword("as") {
			p.advance()
			a, err := p.expect(TIdent, "alias")
			if err != nil {
				return ConstraintDecl{}, err
			}
			alias = a.Text
		}
		return ConstraintDecl{Kind: ConstraintUnique, Column: col.Text, Alias: alias, Span: span}, nil
	case p.atKeyword("pred"), p.atKeyword("limit"):
		kind := ConstraintPred
		if p.atKeyword("limit") {
			kind = ConstraintLimit
		}
		p.advance()
		if _, err := p.expect(TLParen, "("); err != nil {
			return ConstraintDecl{}, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return ConstraintDecl{}, err
		}
		if _, err := p.expect(TRParen, ")"); err != nil {
			return ConstraintDecl{}, err
		}
		alias := e.String()
		if p.atKeyword("as") {
			p.advance()
			a, err := p.expect(TIdent, "alias")
			if err != nil {
				return ConstraintDecl{}, err
			}
			alias = a.Text
		}
		return ConstraintDecl{Kind: kind, Expr: e, Alias: alias, Span: span}, nil
	}
	return ConstraintDecl{}, fmt.Errorf("frontend: %s: expected unique/pred/limit, found %q", p.tok.Span, p.tok.Text)
}

func (p *Parser) parseQuery() (QueryDecl, error) {
	start := p.tok.Span
	if _, err := p.expectKeyword("query"); err != nil {
		return QueryDecl{}, err
	}
	name, err := p.expect(TIdent, "query name")
	if err != nil {
		return QueryDecl{}, err
	}
	decl := QueryDecl{Name: name.Text}
	if _, err := p.expect(TLParen, "("); err != nil {
		return QueryDecl{}, err
	}
	for !p.at(TRParen) {
		pname, err := p.expect(TIdent, "param name")
		if err != nil {
			return QueryDecl{}, err
		}
		if _, err := p.expect(TColon, ":"); err != nil {
			return QueryDecl{}, err
		}
		ptype, err := p.expect(TIdent, "param type")
		if err != nil {
			return QueryDecl{}, err
		}
		decl.Params = append(decl.Params, ParamDecl{Name: pname.Text, Type: ptype.Text, Span: pname.Span})
		if p.at(TComma) {
			p.advance()
		}
	}
	p.advance() // )
	if _, err := p.expect(TLBrace, "{"); err != nil {
		return QueryDecl{}, err
	}
	for !p.at(TRBrace) {
		s, err := p.parseStream()
		if err != nil {
			return QueryDecl{}, err
		}
		decl.Streams = append(decl.Streams, s)
	}
	end := p.tok.Span
	p.advance() // }
	decl.Span = diagnostic.Span{File: start.File, Start: start.Start, End: end.End}
	return decl, nil
}

func (p *Parser) parseStream() (StreamDecl, error) {
	start := p.tok.Span
	s := StreamDecl{}
	op, err := p.parseOp()
	if err != nil {
		return StreamDecl{}, err
	}
	s.Ops = append(s.Ops, op)
	for p.at(TArrowStream) || p.at(TArrowSingle) {
		conn := ConnStream
		if p.at(TArrowSingle) {
			conn = ConnSingle
		}
		p.advance()
		op, err := p.parseOp()
		if err != nil {
			return StreamDecl{}, err
		}
		s.Connectors = append(s.Connectors, conn)
		s.Ops = append(s.Ops, op)
	}
	end := p.tok.Span
	if _, err := p.expect(TSemi, ";"); err != nil {
		return StreamDecl{}, err
	}
	s.Span = diagnostic.Span{File: start.File, Start: start.Start, End: end.End}
	return s, nil
}

func (p *Parser) parseAssigns() ([]Assign, error) {
	if _, err := p.expect(TLParen, "("); err != nil {
		return nil, err
	}
	var out []Assign
	for !p.at(TRParen) {
		field, err := p.expect(TIdent, "field name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TAssign, "="); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, Assign{Field: field.Text, Expr: e})
		if p.at(TComma) {
			p.advance()
		}
	}
	p.advance() // )
	return out, nil
}

func (p *Parser) parseIdentList() ([]string, error) {
	var out []string
	for {
		id, err := p.expect(TIdent, "identifier")
		if err != nil {
			return nil, err
		}
		out = append(out, id.Text)
		if p.at(TComma) {
			p.advance()
			continue
		}
		break
	}
	return out, nil
}

func (p *Parser) parseOp() (OpNode, error) {
	span := p.tok.Span
	switch {
	case p.atKeyword("row"):
		p.advance()
		assigns, err := p.parseAssigns()
		if err != nil {
			return OpNode{}, err
		}
		return OpNode{Kind: OpRow, Assigns: assigns, Span: span}, nil

	case p.atKeyword("use"):
		p.advance()
		var idents []string
		if p.at(TLParen) {
			p.advance()
			ids, err := p.parseIdentList()
			if err != nil {
				return OpNode{}, err
			}
			idents = ids
			if _, err := p.expect(TRParen, ")"); err != nil {
				return OpNode{}, err
			}
		} else {
			id, err := p.expect(TIdent, "variable name")
			if err != nil {
				return OpNode{}, err
			}
			idents = []string{id.Text}
		}
		as := ""
		if p.atKeyword("as") {
			p.advance()
			a, err := p.expect(TIdent, "binding name")
			if err != nil {
				return OpNode{}, err
			}
			as = a.Text
		}
		return OpNode{Kind: OpUse, Idents: idents, As: as, Span: span}, nil

	case p.atKeyword("ref"):
		p.advance()
		table, err := p.expect(TIdent, "table name")
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expectKeyword("as"); err != nil {
			return OpNode{}, err
		}
		as, err := p.expect(TIdent, "binding name")
		if err != nil {
			return OpNode{}, err
		}
		return OpNode{Kind: OpRef, Ident: table.Text, As: as.Text, Span: span}, nil

	case p.atKeyword("insert"):
		p.advance()
		if _, err := p.expect(TLParen, "("); err != nil {
			return OpNode{}, err
		}
		table, err := p.expect(TIdent, "table name")
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expectKeyword("as"); err != nil {
			return OpNode{}, err
		}
		if _, err := p.expectKeyword("ref"); err != nil {
			return OpNode{}, err
		}
		as, err := p.expect(TIdent, "binding name")
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expect(TRParen, ")"); err != nil {
			return OpNode{}, err
		}
		return OpNode{Kind: OpInsert, Ident: table.Text, As: as.Text, Span: span}, nil

	case p.atKeyword("update"):
		p.advance()
		if _, err := p.expect(TLParen, "("); err != nil {
			return OpNode{}, err
		}
		table, err := p.expect(TIdent, "table name")
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expectKeyword("use"); err != nil {
			return OpNode{}, err
		}
		field, err := p.expect(TIdent, "field name")
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expect(TAssign, "="); err != nil {
			return OpNode{}, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expect(TRParen, ")"); err != nil {
			return OpNode{}, err
		}
		return OpNode{Kind: OpUpdate, Ident: table.Text, Assigns: []Assign{{Field: field.Text, Expr: e}}, Span: span}, nil

	case p.atKeyword("delete"):
		p.advance()
		if _, err := p.expect(TLParen, "("); err != nil {
			return OpNode{}, err
		}
		table, err := p.expect(TIdent, "table name")
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expect(TRParen, ")"); err != nil {
			return OpNode{}, err
		}
		return OpNode{Kind: OpDelete, Ident: table.Text, Span: span}, nil

	case p.atKeyword("deref"):
		p.advance()
		if _, err := p.expect(TLParen, "("); err != nil {
			return OpNode{}, err
		}
		table, err := p.expect(TIdent, "ref field")
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expectKeyword("as"); err != nil {
			return OpNode{}, err
		}
		as, err := p.expect(TIdent, "binding name")
		if err != nil {
			return OpNode{}, err
		}
		var subset []string
		if p.atKeyword("use") {
			p.advance()
			ids, err := p.parseIdentList()
			if err != nil {
				return OpNode{}, err
			}
			subset = ids
		}
		if _, err := p.expect(TRParen, ")"); err != nil {
			return OpNode{}, err
		}
		return OpNode{Kind: OpDeRef, Ident: table.Text, As: as.Text, Idents: subset, Span: span}, nil

	case p.atKeyword("unique"):
		p.advance()
		if _, err := p.expect(TLParen, "("); err != nil {
			return OpNode{}, err
		}
		table, err := p.expect(TIdent, "table name")
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expectKeyword("for"); err != nil {
			return OpNode{}, err
		}
		recv, err := p.expect(TIdent, "record variable")
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expect(TDot, "."); err != nil {
			return OpNode{}, err
		}
		field, err := p.expect(TIdent, "field name")
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expectKeyword("as"); err != nil {
			return OpNode{}, err
		}
		if _, err := p.expectKeyword("ref"); err != nil {
			return OpNode{}, err
		}
		as, err := p.expect(TIdent, "binding name")
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expect(TRParen, ")"); err != nil {
			return OpNode{}, err
		}
		return OpNode{Kind: OpUnique, Ident: table.Text, Idents: []string{recv.Text, field.Text}, As: as.Text, Span: span}, nil

	case p.atKeyword("map"):
		p.advance()
		assigns, err := p.parseAssigns()
		if err != nil {
			return OpNode{}, err
		}
		return OpNode{Kind: OpMap, Assigns: assigns, Span: span}, nil

	case p.atKeyword("filter"):
		p.advance()
		if _, err := p.expect(TLParen, "("); err != nil {
			return OpNode{}, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expect(TRParen, ")"); err != nil {
			return OpNode{}, err
		}
		return OpNode{Kind: OpFilter, Expr: e, Span: span}, nil

	case p.atKeyword("sort"):
		p.advance()
		if _, err := p.expect(TLParen, "("); err != nil {
			return OpNode{}, err
		}
		field, err := p.expect(TIdent, "field name")
		if err != nil {
			return OpNode{}, err
		}
		desc := false
		if p.atKeyword("desc") {
			desc = true
			p.advance()
		} else if p.atKeyword("asc") {
			p.advance()
		}
		if _, err := p.expect(TRParen, ")"); err != nil {
			return OpNode{}, err
		}
		return OpNode{Kind: OpSort, Ident: field.Text, SortDesc: desc, Span: span}, nil

	case p.atKeyword("take"):
		p.advance()
		if _, err := p.expect(TLParen, "("); err != nil {
			return OpNode{}, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expect(TRParen, ")"); err != nil {
			return OpNode{}, err
		}
		return OpNode{Kind: OpTake, Expr: e, Span: span}, nil

	case p.atKeyword("fold"):
		p.advance()
		init, err := p.parseAssigns()
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expect(TArrowFold, "->"); err != nil {
			return OpNode{}, err
		}
		step, err := p.parseAssigns()
		if err != nil {
			return OpNode{}, err
		}
		return OpNode{Kind: OpFold, Assigns: init, FoldStep: step, Span: span}, nil

	case p.atKeyword("collect"):
		p.advance()
		if _, err := p.expect(TLParen, "("); err != nil {
			return OpNode{}, err
		}
		name, err := p.expect(TIdent, "bag field name")
		if err != nil {
			return OpNode{}, err
		}
		typeName := ""
		if p.atKeyword("as") {
			p.advance()
			if _, err := p.expectKeyword("type"); err != nil {
				return OpNode{}, err
			}
			tname, err := p.expect(TIdent, "type name")
			if err != nil {
				return OpNode{}, err
			}
			typeName = tname.Text
		}
		if _, err := p.expect(TRParen, ")"); err != nil {
			return OpNode{}, err
		}
		return OpNode{Kind: OpCollect, As: name.Text, CollectType: typeName, Span: span}, nil

	case p.atKeyword("groupby"):
		p.advance()
		if _, err := p.expect(TLParen, "("); err != nil {
			return OpNode{}, err
		}
		keyField, err := p.expect(TIdent, "group key field")
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expectKeyword("for"); err != nil {
			return OpNode{}, err
		}
		if _, err := p.expectKeyword("let"); err != nil {
			return OpNode{}, err
		}
		innerVar, err := p.expect(TIdent, "bound variable")
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expectKeyword("in"); err != nil {
			return OpNode{}, err
		}
		streams, err := p.parseInnerBlock()
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expect(TRParen, ")"); err != nil {
			return OpNode{}, err
		}
		return OpNode{Kind: OpGroupBy, Ident: keyField.Text, InnerVar: innerVar.Text, InnerStreams: streams, Span: span}, nil

	case p.atKeyword("foreach"):
		p.advance()
		if _, err := p.expect(TLParen, "("); err != nil {
			return OpNode{}, err
		}
		if _, err := p.expectKeyword("let"); err != nil {
			return OpNode{}, err
		}
		innerVar, err := p.expect(TIdent, "bound variable")
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expectKeyword("in"); err != nil {
			return OpNode{}, err
		}
		streams, err := p.parseInnerBlock()
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expect(TRParen, ")"); err != nil {
			return OpNode{}, err
		}
		return OpNode{Kind: OpForEach, InnerVar: innerVar.Text, InnerStreams: streams, Span: span}, nil

	case p.atKeyword("join"):
		p.advance()
		if _, err := p.expect(TLParen, "("); err != nil {
			return OpNode{}, err
		}
		if _, err := p.expectKeyword("use"); err != nil {
			return OpNode{}, err
		}
		left, err := p.expect(TIdent, "left stream")
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expect(TLBracket, "["); err != nil {
			return OpNode{}, err
		}
		kind, err := p.expect(TIdent, "join kind")
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expect(TRBracket, "]"); err != nil {
			return OpNode{}, err
		}
		if _, err := p.expectKeyword("use"); err != nil {
			return OpNode{}, err
		}
		right, err := p.expect(TIdent, "right stream")
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expect(TRParen, ")"); err != nil {
			return OpNode{}, err
		}
		return OpNode{Kind: OpJoin, Ident: left.Text, JoinOther: right.Text, Idents: []string{kind.Text}, Span: span}, nil

	case p.atKeyword("fork"):
		p.advance()
		if _, err := p.expect(TLParen, "("); err != nil {
			return OpNode{}, err
		}
		if _, err := p.expectKeyword("let"); err != nil {
			return OpNode{}, err
		}
		names, err := p.parseIdentList()
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expect(TRParen, ")"); err != nil {
			return OpNode{}, err
		}
		return OpNode{Kind: OpFork, Idents: names, Span: span}, nil

	case p.atKeyword("union"):
		p.advance()
		if _, err := p.expect(TLParen, "("); err != nil {
			return OpNode{}, err
		}
		if _, err := p.expectKeyword("use"); err != nil {
			return OpNode{}, err
		}
		names, err := p.parseIdentList()
		if err != nil {
			return OpNode{}, err
		}
		if _, err := p.expect(TRParen, ")"); err != nil {
			return OpNode{}, err
		}
		return OpNode{Kind: OpUnion, Idents: names, Span: span}, nil

	case p.atKeyword("let"):
		p.advance()
		name, err := p.expect(TIdent, "variable name")
		if err != nil {
			return OpNode{}, err
		}
		return OpNode{Kind: OpLet, Ident: name.Text, Span: span}, nil

	case p.atKeyword("return"):
		p.advance()
		return OpNode{Kind: OpReturn, Span: span}, nil
	}
	return OpNode{}, fmt.Errorf("frontend: %s: unknown operator %q", p.tok.Span, p.tok.Text)
}

func (p *Parser) parseInnerBlock() ([]StreamDecl, error) {
	if _, err := p.expect(TLBrace, "{"); err != nil {
		return nil, err
	}
	var out []StreamDecl
	for !p.at(TRBrace) {
		s, err := p.parseStream()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	p.advance() // }
	return out, nil
}

// --- expression grammar: || then && then comparisons then +- then */ then unary then primary ---

func (p *Parser) parseExpr() (expr.Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (expr.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	args := []expr.Expr{left}
	for p.at(TOrOr) {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		args = append(args, right)
	}
	if len(args) == 1 {
		return args[0], nil
	}
	return expr.Or(args...), nil
}

func (p *Parser) parseAnd() (expr.Expr, error) {
	left, err := p.parseCmp()
	if err != nil {
		return nil, err
	}
	args := []expr.Expr{left}
	for p.at(TAndAnd) {
		p.advance()
		right, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		args = append(args, right)
	}
	if len(args) == 1 {
		return args[0], nil
	}
	return expr.And(args...), nil
}

func (p *Parser) parseCmp() (expr.Expr, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	switch p.tok.Kind {
	case TEQ:
		p.advance()
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		return expr.EQ(left, right), nil
	case TNEQ:
		p.advance()
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		return expr.NEQ(left, right), nil
	case TLT:
		p.advance()
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		return expr.LT(left, right), nil
	case TLTE:
		p.advance()
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		return expr.LTE(left, right), nil
	case TGT:
		p.advance()
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		return expr.GT(left, right), nil
	case TGTE:
		p.advance()
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		return expr.GTE(left, right), nil
	}
	return left, nil
}

func (p *Parser) parseAdd() (expr.Expr, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.at(TPlus) || p.at(TMinus) {
		op := p.tok.Kind
		p.advance()
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		if op == TPlus {
			left = expr.Add(left, right)
		} else {
			left = expr.Sub(left, right)
		}
	}
	return left, nil
}

func (p *Parser) parseMul() (expr.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(TStar) || p.at(TSlash) {
		op := p.tok.Kind
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if op == TStar {
			left = expr.Mul(left, right)
		} else {
			left = expr.Div(left, right)
		}
	}
	return left, nil
}

func (p *Parser) parseUnary() (expr.Expr, error) {
	if p.at(TBang) {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return expr.NewNot(x), nil
	}
	if p.at(TMinus) {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return expr.Neg{X: x}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (expr.Expr, error) {
	switch {
	case p.at(TInt):
		v := p.tok.Text
		p.advance()
		var n int64
		fmt.Sscanf(v, "%d", &n)
		return expr.LitInt(n), nil
	case p.at(TFloat):
		v := p.tok.Text
		p.advance()
		var f float64
		fmt.Sscanf(v, "%g", &f)
		return expr.LitFloat(f), nil
	case p.at(TString):
		v := p.tok.Text
		p.advance()
		return expr.LitString(v), nil
	case p.atKeyword("true"):
		p.advance()
		return expr.LitBool(true), nil
	case p.atKeyword("false"):
		p.advance()
		return expr.LitBool(false), nil
	case p.atKeyword("nil"):
		p.advance()
		return expr.LitNil(), nil
	case p.at(TStar):
		p.advance()
		name, err := p.expect(TIdent, "field name")
		if err != nil {
			return nil, err
		}
		return expr.F(name.Text), nil
	case p.at(TLParen):
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TRParen, ")"); err != nil {
			return nil, err
		}
		return e, nil
	case p.at(TIdent):
		name := p.tok.Text
		p.advance()
		if p.at(TLParen) {
			p.advance()
			var args []expr.Expr
			for !p.at(TRParen) {
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.at(TComma) {
					p.advance()
				}
			}
			p.advance() // )
			return expr.NewCall(name, args...), nil
		}
		return expr.F(name), nil
	}
	return nil, fmt.Errorf("frontend: %s: expected expression, found %q", p.tok.Span, p.tok.Text)
}
