// Package parser implements the top-down recursive-descent parser that
// turns a token stream into an *ast.Program. The parser holds exactly one
// point of bounded lookahead (top-level function-vs-global
// disambiguation, see parseTopLevel) and otherwise commits eagerly:
// the first mismatch between the current token and what a production
// expects aborts compilation.
package parser

import (
	"fmt"

	"github.com/wholemars/minicc/internal/ast"
	"github.com/wholemars/minicc/internal/lexer"
)

// ParseError is a fatal syntax error carrying the offending position.
type ParseError struct {
	Pos lexer.Position
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Error at line %d, col %d: %s", e.Pos.Line, e.Pos.Col, e.Msg)
}

type Parser struct {
	lx  *lexer.Lexer
	tok lexer.Token
}

// ParseFile lexes and parses src in one pass, returning the first error
// encountered (lexical or syntactic); there is no error recovery.
func ParseFile(src string) (*ast.Program, error) {
	l := lexer.New(src)
	p := &Parser{lx: l, tok: l.Current()}
	return p.parseProgram()
}

func (p *Parser) next() error {
	tok, err := p.lx.Advance()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	return &ParseError{Pos: p.tok.Pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	if p.tok.Type != tt {
		return lexer.Token{}, p.errorf("expected %v, got %v", tt, p.tok.Type)
	}
	t := p.tok
	if err := p.next(); err != nil {
		return lexer.Token{}, err
	}
	return t, nil
}

func (p *Parser) at(tt lexer.TokenType) bool { return p.tok.Type == tt }

// parseProgram repeatedly applies the top-level disambiguation rule until
// end-of-input.
func (p *Parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for !p.at(lexer.EOF) {
		if err := p.parseTopLevel(prog); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

// parseTopLevel consumes a type token and an identifier, then looks one
// token ahead: `(` commits to a function definition, anything else
// commits to a global declaration. No backtracking through the lexer is
// required, since the tokens already consumed (type + name) are shared by
// both productions.
func (p *Parser) parseTopLevel(prog *ast.Program) error {
	pos := p.tok.Pos
	ret := ast.RetInt
	switch p.tok.Type {
	case lexer.KW_INT:
		ret = ast.RetInt
	case lexer.KW_VOID:
		ret = ast.RetVoid
	default:
		return p.errorf("expected 'int' or 'void' at top level, got %v", p.tok.Type)
	}
	if err := p.next(); err != nil {
		return err
	}
	nameTok, err := p.expect(lexer.IDENT)
	if err != nil {
		return err
	}

	if p.at(lexer.LPAREN) {
		fn, err := p.parseFunctionTail(pos, nameTok.Lex, ret)
		if err != nil {
			return err
		}
		prog.Funcs = append(prog.Funcs, fn)
		return nil
	}

	g, err := p.parseGlobalTail(pos, nameTok.Lex)
	if err != nil {
		return err
	}
	prog.Globals = append(prog.Globals, g)
	return nil
}

func (p *Parser) parseFunctionTail(pos lexer.Position, name string, ret ast.RetKind) (*ast.Function, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	if len(params) > 6 {
		return nil, &ParseError{Pos: pos, Msg: "function has more than 6 parameters"}
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.Function{Base: ast.Base{Pos: pos}, Name: name, Ret: ret, Params: params, Body: body}, nil
}

func (p *Parser) parseParams() ([]ast.Param, error) {
	var params []ast.Param
	if p.at(lexer.RPAREN) {
		return params, nil
	}
	for {
		// the `int` keyword before each parameter is accepted and ignored
		if p.at(lexer.KW_INT) || p.at(lexer.KW_VOID) {
			if err := p.next(); err != nil {
				return nil, err
			}
		}
		nameTok, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		params = append(params, ast.Param{Name: nameTok.Lex})
		if p.at(lexer.COMMA) {
			if err := p.next(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return params, nil
}

// parseGlobalTail parses the remainder of `int name ...` / `int name[N] ...`
// at the top level, where a non-array initializer must be a single integer
// literal and an array is always zero-initialized.
func (p *Parser) parseGlobalTail(pos lexer.Position, name string) (*ast.GlobalVar, error) {
	g := &ast.GlobalVar{Base: ast.Base{Pos: pos}, Name: name}
	if p.at(lexer.LBRACK) {
		if err := p.next(); err != nil {
			return nil, err
		}
		sizeTok, err := p.expect(lexer.INT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RBRACK); err != nil {
			return nil, err
		}
		g.IsArray = true
		g.Size = int(sizeTok.Val)
		if p.at(lexer.ASSIGN) {
			return nil, p.errorf("initializer lists are not supported for global arrays")
		}
		if _, err := p.expect(lexer.SEMI); err != nil {
			return nil, err
		}
		return g, nil
	}
	if p.at(lexer.ASSIGN) {
		if err := p.next(); err != nil {
			return nil, err
		}
		if !p.at(lexer.INT) {
			return nil, p.errorf("global initializer must be a single integer literal")
		}
		litPos := p.tok.Pos
		v := p.tok.Val
		if err := p.next(); err != nil {
			return nil, err
		}
		g.Init = &ast.NumLiteral{Base: ast.Base{Pos: litPos}, Value: v}
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	return g, nil
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	pos := p.tok.Pos
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for !p.at(lexer.RBRACE) && !p.at(lexer.EOF) {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return &ast.Block{Base: ast.Base{Pos: pos}, Stmts: stmts}, nil
}

// parseStmt dispatches on the current token. Dangling-else binds to the
// nearest preceding `if` because parseIf greedily consumes a trailing
// `else` before returning.
func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.tok.Type {
	case lexer.LBRACE:
		return p.parseBlock()
	case lexer.KW_IF:
		return p.parseIf()
	case lexer.KW_WHILE:
		return p.parseWhile()
	case lexer.KW_FOR:
		return p.parseFor()
	case lexer.KW_RETURN:
		return p.parseReturn()
	case lexer.KW_INT, lexer.KW_VOID:
		return p.parseLocalDecl()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	pos := p.tok.Pos
	if err := p.next(); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	then, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	node := &ast.If{Base: ast.Base{Pos: pos}, Cond: cond, Then: then}
	if p.at(lexer.KW_ELSE) {
		if err := p.next(); err != nil {
			return nil, err
		}
		els, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		node.Else = els
	}
	return node, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	pos := p.tok.Pos
	if err := p.next(); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &ast.While{Base: ast.Base{Pos: pos}, Cond: cond, Body: body}, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	pos := p.tok.Pos
	if err := p.next(); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}

	var init ast.Stmt
	if !p.at(lexer.SEMI) {
		var err error
		init, err = p.parseForInit()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}

	var cond ast.Expr
	if !p.at(lexer.SEMI) {
		var err error
		cond, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}

	var post ast.Stmt
	if !p.at(lexer.RPAREN) {
		var err error
		post, err = p.parseSimpleStmt()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}

	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &ast.For{Base: ast.Base{Pos: pos}, Init: init, Cond: cond, Post: post, Body: body}, nil
}

// parseForInit parses the `for` initializer clause, which is either
// `int name [= expr]` or a bare expression, without the trailing `;`.
func (p *Parser) parseForInit() (ast.Stmt, error) {
	if p.at(lexer.KW_INT) {
		return p.parseDeclNoSemi()
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Base: ast.Base{Pos: e.Position()}, X: e}, nil
}

// parseSimpleStmt parses the `for` update clause: a bare expression,
// without the trailing `;`.
func (p *Parser) parseSimpleStmt() (ast.Stmt, error) {
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Base: ast.Base{Pos: e.Position()}, X: e}, nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	pos := p.tok.Pos
	if err := p.next(); err != nil {
		return nil, err
	}
	var val ast.Expr
	if !p.at(lexer.SEMI) {
		var err error
		val, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	return &ast.Return{Base: ast.Base{Pos: pos}, Value: val}, nil
}

// parseLocalDecl parses `int name [= expr] ;` or `int name[N] ;`. An array
// declaration takes no initializer: `=` after `]` is a syntax error.
func (p *Parser) parseLocalDecl() (ast.Stmt, error) {
	decl, err := p.parseDeclNoSemi()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseDeclNoSemi() (*ast.VarDecl, error) {
	pos := p.tok.Pos
	if _, err := p.expect(lexer.KW_INT); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	decl := &ast.VarDecl{Base: ast.Base{Pos: pos}, Name: nameTok.Lex}
	if p.at(lexer.LBRACK) {
		if err := p.next(); err != nil {
			return nil, err
		}
		sizeTok, err := p.expect(lexer.INT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RBRACK); err != nil {
			return nil, err
		}
		decl.IsArray = true
		decl.Size = int(sizeTok.Val)
		return decl, nil
	}
	if p.at(lexer.ASSIGN) {
		if err := p.next(); err != nil {
			return nil, err
		}
		init, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		decl.Init = init
	}
	return decl, nil
}

// parseExprStmt parses a bare expression statement, which also covers
// plain assignment (`x = expr;`, `a[i] = expr;`) since Assign is itself
// an Expr produced by the assignment level of the precedence ladder.
func (p *Parser) parseExprStmt() (ast.Stmt, error) {
	pos := p.tok.Pos
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Base: ast.Base{Pos: pos}, X: e}, nil
}

// Expression grammar (lowest to highest precedence, left-associative
// except assignment which is right-associative):
//
//	assignment -> logical-or -> logical-and -> equality -> relational ->
//	additive -> multiplicative -> unary -> primary

func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() (ast.Expr, error) {
	left, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	var compound ast.CompoundOp
	switch p.tok.Type {
	case lexer.ASSIGN:
		compound = ast.CompoundPlain
	case lexer.PLUSEQ:
		compound = ast.CompoundAdd
	case lexer.MINUSEQ:
		compound = ast.CompoundSub
	default:
		return left, nil
	}
	var target ast.AssignTarget
	switch t := left.(type) {
	case *ast.Variable:
		target = t
	case *ast.ArrayAccess:
		target = t
	default:
		return nil, &ParseError{Pos: left.Position(), Msg: "assignment target must be a variable or array element"}
	}
	pos := p.tok.Pos
	if err := p.next(); err != nil {
		return nil, err
	}
	value, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	return &ast.Assign{Base: ast.Base{Pos: pos}, Target: target, Value: value, Compound: compound}, nil
}

func (p *Parser) parseLogicalOr() (ast.Expr, error) {
	left, err := p.parseLogicalAnd()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.OROR) {
		pos := p.tok.Pos
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseLogicalAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Base: ast.Base{Pos: pos}, Op: ast.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseLogicalAnd() (ast.Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.ANDAND) {
		pos := p.tok.Pos
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Base: ast.Base{Pos: pos}, Op: ast.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseEquality() (ast.Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.EQEQ) || p.at(lexer.NEQ) {
		op := ast.OpEq
		if p.at(lexer.NEQ) {
			op = ast.OpNe
		}
		pos := p.tok.Pos
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Base: ast.Base{Pos: pos}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseRelational() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinOp
		switch p.tok.Type {
		case lexer.LT:
			op = ast.OpLt
		case lexer.LE:
			op = ast.OpLe
		case lexer.GT:
			op = ast.OpGt
		case lexer.GE:
			op = ast.OpGe
		default:
			return left, nil
		}
		pos := p.tok.Pos
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Base: ast.Base{Pos: pos}, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.PLUS) || p.at(lexer.MINUS) {
		op := ast.OpAdd
		if p.at(lexer.MINUS) {
			op = ast.OpSub
		}
		pos := p.tok.Pos
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Base: ast.Base{Pos: pos}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.STAR) || p.at(lexer.SLASH) || p.at(lexer.PERCENT) {
		var op ast.BinOp
		switch p.tok.Type {
		case lexer.STAR:
			op = ast.OpMul
		case lexer.SLASH:
			op = ast.OpDiv
		case lexer.PERCENT:
			op = ast.OpMod
		}
		pos := p.tok.Pos
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Base: ast.Base{Pos: pos}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

// parseUnary handles the prefix operators -, !, ++, --. The increment and
// decrement prefixes are desugared here into an Assign whose value is
// `var ± 1`; there is no distinct AST node for them and no post-increment
// form.
func (p *Parser) parseUnary() (ast.Expr, error) {
	switch p.tok.Type {
	case lexer.MINUS:
		pos := p.tok.Pos
		if err := p.next(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Base: ast.Base{Pos: pos}, Op: ast.OpNeg, Operand: operand}, nil
	case lexer.BANG:
		pos := p.tok.Pos
		if err := p.next(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Base: ast.Base{Pos: pos}, Op: ast.OpNot, Operand: operand}, nil
	case lexer.PLUSPLUS, lexer.MINUSMINUS:
		pos := p.tok.Pos
		compound := ast.CompoundAdd
		if p.tok.Type == lexer.MINUSMINUS {
			compound = ast.CompoundSub
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		if !p.at(lexer.IDENT) {
			return nil, p.errorf("expected identifier after '++'/'--'")
		}
		nameTok := p.tok
		if err := p.next(); err != nil {
			return nil, err
		}
		target := &ast.Variable{Base: ast.Base{Pos: nameTok.Pos}, Name: nameTok.Lex}
		one := &ast.NumLiteral{Base: ast.Base{Pos: pos}, Value: 1}
		return &ast.Assign{Base: ast.Base{Pos: pos}, Target: target, Value: one, Compound: compound}, nil
	default:
		return p.parsePrimary()
	}
}

// parsePrimary handles integer/string literals, parenthesized
// expressions, and identifier-led productions (call, array access,
// variable reference), plus address-of.
func (p *Parser) parsePrimary() (ast.Expr, error) {
	switch p.tok.Type {
	case lexer.INT:
		pos, v := p.tok.Pos, p.tok.Val
		if err := p.next(); err != nil {
			return nil, err
		}
		return &ast.NumLiteral{Base: ast.Base{Pos: pos}, Value: v}, nil
	case lexer.STRING:
		pos, s := p.tok.Pos, p.tok.Lex
		if err := p.next(); err != nil {
			return nil, err
		}
		return &ast.StringLiteral{Base: ast.Base{Pos: pos}, Text: s}, nil
	case lexer.LPAREN:
		if err := p.next(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	case lexer.AMP:
		pos := p.tok.Pos
		if err := p.next(); err != nil {
			return nil, err
		}
		if !p.at(lexer.IDENT) {
			return nil, p.errorf("expected identifier after '&'")
		}
		nameTok := p.tok
		if err := p.next(); err != nil {
			return nil, err
		}
		return &ast.AddressOf{Base: ast.Base{Pos: pos}, Name: nameTok.Lex}, nil
	case lexer.IDENT:
		pos, name := p.tok.Pos, p.tok.Lex
		if err := p.next(); err != nil {
			return nil, err
		}
		switch p.tok.Type {
		case lexer.LPAREN:
			if err := p.next(); err != nil {
				return nil, err
			}
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			if len(args) > 8 {
				return nil, &ParseError{Pos: pos, Msg: "call has more than 8 arguments"}
			}
			if _, err := p.expect(lexer.RPAREN); err != nil {
				return nil, err
			}
			return &ast.Call{Base: ast.Base{Pos: pos}, Name: name, Args: args}, nil
		case lexer.LBRACK:
			if err := p.next(); err != nil {
				return nil, err
			}
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RBRACK); err != nil {
				return nil, err
			}
			return &ast.ArrayAccess{Base: ast.Base{Pos: pos}, Name: name, Index: idx}, nil
		default:
			return &ast.Variable{Base: ast.Base{Pos: pos}, Name: name}, nil
		}
	default:
		return nil, p.errorf("unexpected token %v in expression", p.tok.Type)
	}
}

func (p *Parser) parseArgs() ([]ast.Expr, error) {
	var args []ast.Expr
	if p.at(lexer.RPAREN) {
		return args, nil
	}
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.at(lexer.COMMA) {
			if err := p.next(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return args, nil
}
