// Package parser builds an AST from a token stream via recursive descent,
// one production per precedence level.
package parser

import (
	"github.com/waxwing-lang/loxwalk/internal/ast"
	"github.com/waxwing-lang/loxwalk/internal/errs"
	"github.com/waxwing-lang/loxwalk/internal/source"
	"github.com/waxwing-lang/loxwalk/internal/token"
)

const maxArgs = 255

// Parser consumes a fixed token slice and accumulates parse errors rather
// than failing on the first one, so a single run can surface several.
type Parser struct {
	buf    *source.Buffer
	tokens []token.Token
	pos    int
	errors []*errs.Error
}

// New creates a Parser over a complete token stream (including its
// terminating EOF token).
func New(buf *source.Buffer, tokens []token.Token) *Parser {
	return &Parser{buf: buf, tokens: tokens}
}

// Parse consumes the whole token stream, returning every top-level
// declaration it could recover plus every parse error encountered.
func Parse(buf *source.Buffer, tokens []token.Token) ([]ast.Stmt, []*errs.Error) {
	p := New(buf, tokens)
	return p.parseProgram()
}

func (p *Parser) parseProgram() ([]ast.Stmt, []*errs.Error) {
	var stmts []ast.Stmt
	for !p.isAtEnd() {
		stmt, err := p.declaration()
		if err != nil {
			p.addError(err)
			p.synchronize()
			continue
		}
		stmts = append(stmts, stmt)
	}
	return stmts, p.errors
}

// --- Declarations ---

func (p *Parser) declaration() (ast.Stmt, *errs.Error) {
	switch {
	case p.match(token.VAR):
		return p.varDecl()
	case p.match(token.FUN):
		return p.funDecl()
	case p.match(token.CLASS):
		return p.classDecl()
	default:
		return p.statement()
	}
}

func (p *Parser) varDecl() (ast.Stmt, *errs.Error) {
	start := p.previous().Loc // consumed "var"
	name, err := p.consume(token.IDENTIFIER, "expected a variable name")
	if err != nil {
		return nil, err
	}
	var init ast.Expr
	if p.match(token.EQUAL) {
		init, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	semi, err := p.consume(token.SEMICOLON, "expected ';' after variable declaration")
	if err != nil {
		return nil, err
	}
	return &ast.VarStmt{ast.At(start.Merge(semi.Loc)), name.Lexeme(p.buf), init}, nil
}

// funDecl parses a named `fun` declaration, at top level or inside a block;
// the `fun` keyword has already been consumed.
func (p *Parser) funDecl() (ast.Stmt, *errs.Error) {
	start := p.previous().Loc
	name, err := p.consume(token.IDENTIFIER, "expected a function name")
	if err != nil {
		return nil, err
	}
	params, body, end, err := p.functionTail()
	if err != nil {
		return nil, err
	}
	return &ast.Function{ast.At(start.Merge(end)), name.Lexeme(p.buf), params, body}, nil
}

// functionTail parses "(" params? ")" block, shared by named functions,
// methods, and anonymous lambdas.
func (p *Parser) functionTail() ([]string, []ast.Stmt, source.Location, *errs.Error) {
	if _, err := p.consume(token.LEFT_PAREN, "expected '(' after function name"); err != nil {
		return nil, nil, source.Location{}, err
	}
	var params []string
	if !p.check(token.RIGHT_PAREN) {
		for {
			if len(params) >= maxArgs {
				return nil, nil, source.Location{}, p.errorAt(p.peek().Loc, errs.KindTooManyParameters, "can't have more than 255 parameters")
			}
			name, err := p.consume(token.IDENTIFIER, "expected a parameter name")
			if err != nil {
				return nil, nil, source.Location{}, err
			}
			params = append(params, name.Lexeme(p.buf))
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	if _, err := p.consume(token.RIGHT_PAREN, "expected ')' after parameters"); err != nil {
		return nil, nil, source.Location{}, err
	}
	if _, err := p.consume(token.LEFT_BRACE, "expected '{' before function body"); err != nil {
		return nil, nil, source.Location{}, err
	}
	body, end, err := p.blockBody()
	if err != nil {
		return nil, nil, source.Location{}, err
	}
	return params, body, end, nil
}

func (p *Parser) classDecl() (ast.Stmt, *errs.Error) {
	start := p.previous().Loc
	name, err := p.consume(token.IDENTIFIER, "expected a class name")
	if err != nil {
		return nil, err
	}

	var baseClass *ast.Var
	if p.match(token.LESS) {
		baseName, err := p.consume(token.IDENTIFIER, "expected a base class name")
		if err != nil {
			return nil, err
		}
		baseClass = &ast.Var{ast.At(baseName.Loc), baseName.Lexeme(p.buf), 0}
	}

	if _, err := p.consume(token.LEFT_BRACE, "expected '{' before class body"); err != nil {
		return nil, err
	}

	var methods []ast.Method
	for !p.check(token.RIGHT_BRACE) && !p.isAtEnd() {
		method, err := p.method()
		if err != nil {
			return nil, err
		}
		methods = append(methods, *method)
	}
	end, err := p.consume(token.RIGHT_BRACE, "expected '}' after class body")
	if err != nil {
		return nil, err
	}
	return &ast.Class{ast.At(start.Merge(end.Loc)), name.Lexeme(p.buf), baseClass, methods}, nil
}

func (p *Parser) method() (*ast.Method, *errs.Error) {
	name, err := p.consume(token.IDENTIFIER, "expected a method name")
	if err != nil {
		return nil, err
	}
	params, body, end, err := p.functionTail()
	if err != nil {
		return nil, err
	}
	return &ast.Method{ast.At(name.Loc.Merge(end)), name.Lexeme(p.buf), params, body}, nil
}

// --- Statements ---

func (p *Parser) statement() (ast.Stmt, *errs.Error) {
	switch {
	case p.match(token.IF):
		return p.ifStmt()
	case p.match(token.WHILE):
		return p.whileStmt()
	case p.match(token.FOR):
		return p.forStmt()
	case p.match(token.PRINT):
		return p.printStmt()
	case p.match(token.RETURN):
		return p.returnStmt()
	case p.match(token.BREAK):
		return p.breakStmt()
	case p.match(token.CONTINUE):
		return p.continueStmt()
	case p.match(token.LEFT_BRACE):
		return p.block()
	default:
		return p.exprStmt()
	}
}

func (p *Parser) block() (ast.Stmt, *errs.Error) {
	start := p.previous().Loc
	stmts, end, err := p.blockBody()
	if err != nil {
		return nil, err
	}
	return &ast.Block{ast.At(start.Merge(end)), stmts}, nil
}

// blockBody parses statements up to (and consuming) the closing '}'; the
// opening '{' must already have been consumed by the caller.
func (p *Parser) blockBody() ([]ast.Stmt, source.Location, *errs.Error) {
	var stmts []ast.Stmt
	for !p.check(token.RIGHT_BRACE) && !p.isAtEnd() {
		stmt, err := p.declaration()
		if err != nil {
			p.addError(err)
			p.synchronize()
			continue
		}
		stmts = append(stmts, stmt)
	}
	end, err := p.consume(token.RIGHT_BRACE, "expected '}' after block")
	if err != nil {
		return nil, source.Location{}, err
	}
	return stmts, end.Loc, nil
}

func (p *Parser) ifStmt() (ast.Stmt, *errs.Error) {
	start := p.previous().Loc
	if _, err := p.consume(token.LEFT_PAREN, "expected '(' after 'if'"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RIGHT_PAREN, "expected ')' after condition"); err != nil {
		return nil, err
	}
	then, err := p.statement()
	if err != nil {
		return nil, err
	}
	end := then.Location()
	var elseBranch ast.Stmt
	if p.match(token.ELSE) {
		elseBranch, err = p.statement()
		if err != nil {
			return nil, err
		}
		end = elseBranch.Location()
	}
	return &ast.If{ast.At(start.Merge(end)), cond, then, elseBranch}, nil
}

func (p *Parser) whileStmt() (ast.Stmt, *errs.Error) {
	start := p.previous().Loc
	if _, err := p.consume(token.LEFT_PAREN, "expected '(' after 'while'"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RIGHT_PAREN, "expected ')' after condition"); err != nil {
		return nil, err
	}
	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	return &ast.While{ast.At(start.Merge(body.Location())), cond, body, nil}, nil
}

// forStmt desugars `for (init; cond; incr) body` into a While node that
// carries incr separately rather than appending it to the body block, so
// that a `continue` inside body still runs incr before the next iteration.
func (p *Parser) forStmt() (ast.Stmt, *errs.Error) {
	start := p.previous().Loc
	if _, err := p.consume(token.LEFT_PAREN, "expected '(' after 'for'"); err != nil {
		return nil, err
	}

	var init ast.Stmt
	var err *errs.Error
	switch {
	case p.match(token.SEMICOLON):
		// no initializer
	case p.match(token.VAR):
		init, err = p.varDecl()
	default:
		init, err = p.exprStmt()
	}
	if err != nil {
		return nil, err
	}

	var cond ast.Expr
	if !p.check(token.SEMICOLON) {
		cond, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(token.SEMICOLON, "expected ';' after loop condition"); err != nil {
		return nil, err
	}

	var incr ast.Expr
	if !p.check(token.RIGHT_PAREN) {
		incr, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(token.RIGHT_PAREN, "expected ')' after for clauses"); err != nil {
		return nil, err
	}

	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	if cond == nil {
		cond = &ast.Literal{ast.At(start), ast.LiteralValue{Kind: ast.LiteralBool, Bool: true}}
	}

	loop := &ast.While{ast.At(start.Merge(body.Location())), cond, body, incr}
	if init == nil {
		return loop, nil
	}
	return &ast.Block{ast.At(start.Merge(body.Location())), []ast.Stmt{init, loop}}, nil
}

func (p *Parser) printStmt() (ast.Stmt, *errs.Error) {
	start := p.previous().Loc
	value, err := p.expression()
	if err != nil {
		return nil, err
	}
	end, err := p.consume(token.SEMICOLON, "expected ';' after value")
	if err != nil {
		return nil, err
	}
	return &ast.Print{ast.At(start.Merge(end.Loc)), value}, nil
}

func (p *Parser) returnStmt() (ast.Stmt, *errs.Error) {
	start := p.previous().Loc
	var value ast.Expr
	var err *errs.Error
	if !p.check(token.SEMICOLON) {
		value, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	end, err := p.consume(token.SEMICOLON, "expected ';' after return value")
	if err != nil {
		return nil, err
	}
	return &ast.Return{ast.At(start.Merge(end.Loc)), value}, nil
}

func (p *Parser) breakStmt() (ast.Stmt, *errs.Error) {
	start := p.previous().Loc
	end, err := p.consume(token.SEMICOLON, "expected ';' after 'break'")
	if err != nil {
		return nil, err
	}
	return &ast.Break{ast.At(start.Merge(end.Loc))}, nil
}

func (p *Parser) continueStmt() (ast.Stmt, *errs.Error) {
	start := p.previous().Loc
	end, err := p.consume(token.SEMICOLON, "expected ';' after 'continue'")
	if err != nil {
		return nil, err
	}
	return &ast.Continue{ast.At(start.Merge(end.Loc))}, nil
}

func (p *Parser) exprStmt() (ast.Stmt, *errs.Error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	end, err := p.consume(token.SEMICOLON, "expected ';' after expression")
	if err != nil {
		return nil, err
	}
	return &ast.ExprStmt{ast.At(expr.Location().Merge(end.Loc)), expr}, nil
}

// --- Expressions, lowest precedence first ---

func (p *Parser) expression() (ast.Expr, *errs.Error) {
	return p.assignment()
}

func (p *Parser) assignment() (ast.Expr, *errs.Error) {
	lhs, err := p.ternary()
	if err != nil {
		return nil, err
	}
	if !p.match(token.EQUAL) {
		return lhs, nil
	}
	value, err := p.assignment()
	if err != nil {
		return nil, err
	}
	loc := lhs.Location().Merge(value.Location())
	switch target := lhs.(type) {
	case *ast.Var:
		return &ast.Assign{ast.At(loc), target.Name, value, 0}, nil
	case *ast.Get:
		return &ast.Set{ast.At(loc), target.Object, target.Name, value}, nil
	default:
		return nil, p.errorAt(lhs.Location(), errs.KindInvalidAssignment, "invalid assignment target")
	}
}

func (p *Parser) ternary() (ast.Expr, *errs.Error) {
	cond, err := p.logicOr()
	if err != nil {
		return nil, err
	}
	if !p.match(token.QUESTION) {
		return cond, nil
	}
	then, err := p.logicOr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.COLON, "expected ':' in ternary expression"); err != nil {
		return nil, err
	}
	elseExpr, err := p.ternary()
	if err != nil {
		return nil, err
	}
	return &ast.Ternary{ast.At(cond.Location().Merge(elseExpr.Location())), cond, then, elseExpr}, nil
}

func (p *Parser) logicOr() (ast.Expr, *errs.Error) {
	left, err := p.logicAnd()
	if err != nil {
		return nil, err
	}
	for p.match(token.OR) {
		right, err := p.logicAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Logical{ast.At(left.Location().Merge(right.Location())), left, right, ast.OpOr}
	}
	return left, nil
}

func (p *Parser) logicAnd() (ast.Expr, *errs.Error) {
	left, err := p.equality()
	if err != nil {
		return nil, err
	}
	for p.match(token.AND) {
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		left = &ast.Logical{ast.At(left.Location().Merge(right.Location())), left, right, ast.OpAnd}
	}
	return left, nil
}

func (p *Parser) equality() (ast.Expr, *errs.Error) {
	left, err := p.comparison()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch {
		case p.match(token.EQUAL_EQUAL):
			op = ast.OpEq
		case p.match(token.BANG_EQUAL):
			op = ast.OpNotEq
		default:
			return left, nil
		}
		right, err := p.comparison()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{ast.At(left.Location().Merge(right.Location())), left, right, op}
	}
}

func (p *Parser) comparison() (ast.Expr, *errs.Error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch {
		case p.match(token.LESS):
			op = ast.OpLess
		case p.match(token.LESS_EQUAL):
			op = ast.OpLessEq
		case p.match(token.GREATER):
			op = ast.OpGreater
		case p.match(token.GREATER_EQUAL):
			op = ast.OpGreaterEq
		default:
			return left, nil
		}
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{ast.At(left.Location().Merge(right.Location())), left, right, op}
	}
}

func (p *Parser) term() (ast.Expr, *errs.Error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch {
		case p.match(token.PLUS):
			op = ast.OpAdd
		case p.match(token.MINUS):
			op = ast.OpSub
		default:
			return left, nil
		}
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{ast.At(left.Location().Merge(right.Location())), left, right, op}
	}
}

func (p *Parser) factor() (ast.Expr, *errs.Error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch {
		case p.match(token.STAR):
			op = ast.OpMul
		case p.match(token.SLASH):
			op = ast.OpDiv
		case p.match(token.PERCENT):
			op = ast.OpMod
		default:
			return left, nil
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{ast.At(left.Location().Merge(right.Location())), left, right, op}
	}
}

func (p *Parser) unary() (ast.Expr, *errs.Error) {
	var op ast.UnaryOp
	switch {
	case p.match(token.BANG):
		op = ast.OpNot
	case p.match(token.MINUS):
		op = ast.OpNegate
	default:
		return p.lambda()
	}
	start := p.previous().Loc
	operand, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &ast.Unary{ast.At(start.Merge(operand.Location())), op, operand}, nil
}

func (p *Parser) lambda() (ast.Expr, *errs.Error) {
	if !p.match(token.FUN) {
		return p.call()
	}
	start := p.previous().Loc
	params, body, end, err := p.functionTail()
	if err != nil {
		return nil, err
	}
	return &ast.Lambda{ast.At(start.Merge(end)), params, body}, nil
}

func (p *Parser) call() (ast.Expr, *errs.Error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.match(token.LEFT_PAREN):
			expr, err = p.finishCall(expr)
			if err != nil {
				return nil, err
			}
		case p.match(token.DOT):
			name, err := p.consume(token.IDENTIFIER, "expected a property name after '.'")
			if err != nil {
				return nil, err
			}
			expr = &ast.Get{ast.At(expr.Location().Merge(name.Loc)), expr, name.Lexeme(p.buf)}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) finishCall(callee ast.Expr) (ast.Expr, *errs.Error) {
	var args []ast.Expr
	if !p.check(token.RIGHT_PAREN) {
		for {
			if len(args) >= maxArgs {
				return nil, p.errorAt(p.peek().Loc, errs.KindTooManyArguments, "can't have more than 255 arguments")
			}
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	end, err := p.consume(token.RIGHT_PAREN, "expected ')' after arguments")
	if err != nil {
		return nil, err
	}
	return &ast.Call{ast.At(callee.Location().Merge(end.Loc)), callee, args}, nil
}

func (p *Parser) primary() (ast.Expr, *errs.Error) {
	tok := p.peek()
	switch {
	case p.match(token.NUMBER):
		return &ast.Literal{ast.At(tok.Loc), ast.LiteralValue{Kind: ast.LiteralNumber, Num: parseNumber(tok.Lexeme(p.buf))}}, nil
	case p.match(token.STRING):
		lex := tok.Lexeme(p.buf)
		return &ast.Literal{ast.At(tok.Loc), ast.LiteralValue{Kind: ast.LiteralString, Str: lex[1 : len(lex)-1]}}, nil
	case p.match(token.TRUE):
		return &ast.Literal{ast.At(tok.Loc), ast.LiteralValue{Kind: ast.LiteralBool, Bool: true}}, nil
	case p.match(token.FALSE):
		return &ast.Literal{ast.At(tok.Loc), ast.LiteralValue{Kind: ast.LiteralBool, Bool: false}}, nil
	case p.match(token.NIL):
		return &ast.Literal{ast.At(tok.Loc), ast.LiteralValue{Kind: ast.LiteralNil}}, nil
	case p.match(token.THIS):
		return &ast.This{ast.At(tok.Loc), 0}, nil
	case p.match(token.SUPER):
		if _, err := p.consume(token.DOT, "expected '.' after 'super'"); err != nil {
			return nil, err
		}
		name, err := p.consume(token.IDENTIFIER, "expected a method name after 'super.'")
		if err != nil {
			return nil, err
		}
		return &ast.Super{ast.At(tok.Loc.Merge(name.Loc)), name.Lexeme(p.buf), 0}, nil
	case p.match(token.IDENTIFIER):
		return &ast.Var{ast.At(tok.Loc), tok.Lexeme(p.buf), 0}, nil
	case p.match(token.LEFT_PAREN):
		inner, err := p.expression()
		if err != nil {
			return nil, err
		}
		end, err := p.consume(token.RIGHT_PAREN, "expected ')' after expression")
		if err != nil {
			return nil, err
		}
		return &ast.Grouping{ast.At(tok.Loc.Merge(end.Loc)), inner}, nil
	default:
		return nil, p.errorAt(tok.Loc, errs.KindUnexpectedToken, "expected an expression")
	}
}

// parseNumber converts a scanner-verified NUMBER lexeme; the scanner never
// emits a NUMBER token whose text fails to parse, so this cannot fail.
func parseNumber(lexeme string) float64 {
	var n float64
	var frac float64 = 1
	inFrac := false
	for i := 0; i < len(lexeme); i++ {
		c := lexeme[i]
		if c == '.' {
			inFrac = true
			continue
		}
		d := float64(c - '0')
		if inFrac {
			frac /= 10
			n += d * frac
		} else {
			n = n*10 + d
		}
	}
	return n
}

// --- Token-stream primitives ---

func (p *Parser) isAtEnd() bool { return p.peek().Kind == token.EOF }

func (p *Parser) peek() token.Token { return p.tokens[p.pos] }

func (p *Parser) previous() token.Token { return p.tokens[p.pos-1] }

func (p *Parser) check(kind token.Kind) bool { return p.peek().Kind == kind }

func (p *Parser) advance() token.Token {
	if !p.isAtEnd() {
		p.pos++
	}
	return p.previous()
}

func (p *Parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) consume(kind token.Kind, message string) (token.Token, *errs.Error) {
	if p.check(kind) {
		return p.advance(), nil
	}
	return token.Token{}, p.errorAt(p.peek().Loc, errs.KindUnexpectedToken, message)
}

func (p *Parser) errorAt(loc source.Location, kind errs.Kind, message string) *errs.Error {
	return errs.New(errs.Parse, kind, loc, message)
}

func (p *Parser) addError(err *errs.Error) {
	p.errors = append(p.errors, err)
}

// synchronize discards tokens until it reaches a likely statement boundary,
// so one parse error doesn't prevent surfacing the rest.
func (p *Parser) synchronize() {
	p.advance()
	for !p.isAtEnd() {
		if p.tokens[p.pos-1].Kind == token.SEMICOLON {
			return
		}
		switch p.peek().Kind {
		case token.CLASS, token.FUN, token.VAR, token.IF, token.FOR, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		p.advance()
	}
}
