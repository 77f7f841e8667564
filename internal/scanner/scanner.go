// Package scanner turns a source buffer into a token stream. It is a
// hand-written, single-pass, O(n) scanner: no regular expressions, no
// backtracking beyond a single character of lookahead.
package scanner

import (
	"github.com/waxwing-lang/loxwalk/internal/errs"
	"github.com/waxwing-lang/loxwalk/internal/source"
	"github.com/waxwing-lang/loxwalk/internal/token"
)

// singleCharKinds is a fast lookup from an ASCII byte to the token it spells
// on its own, for the punctuation that never combines with a following
// character. Two-or-one-character operators (!, =, <, >) are handled by
// explicit lookahead instead, since their meaning depends on it.
var singleCharKinds = buildSingleCharTable()

func buildSingleCharTable() [128]token.Kind {
	var t [128]token.Kind
	for i := range t {
		t[i] = token.ILLEGAL
	}
	t['('] = token.LEFT_PAREN
	t[')'] = token.RIGHT_PAREN
	t['{'] = token.LEFT_BRACE
	t['}'] = token.RIGHT_BRACE
	t[','] = token.COMMA
	t['.'] = token.DOT
	t[';'] = token.SEMICOLON
	t[':'] = token.COLON
	t['?'] = token.QUESTION
	t['-'] = token.MINUS
	t['+'] = token.PLUS
	t['*'] = token.STAR
	t['%'] = token.PERCENT
	return t
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

// Scanner produces tokens from a source buffer one at a time.
type Scanner struct {
	buf        *source.Buffer
	cursor     int
	line       int
	lineOffset int
}

// New creates a Scanner positioned at the start of buf.
func New(buf *source.Buffer) *Scanner {
	return &Scanner{buf: buf, line: 1}
}

// ScanAll scans the entire buffer, returning every token up to and including
// a terminating EOF token, plus every lexical error encountered along the
// way. Scanning continues past a recoverable error (an unrecognized
// character) so a single run can surface more than one problem, matching the
// "errors are collected within a stage" policy spec.md §7 describes for the
// static stages. An unterminated string or unbalanced block comment consumes
// the rest of the input, so at most one of those can occur per run.
func (s *Scanner) ScanAll() ([]token.Token, []*errs.Error) {
	var tokens []token.Token
	var errors []*errs.Error

	for {
		tok, err := s.next()
		if err != nil {
			errors = append(errors, err)
		}
		tokens = append(tokens, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return tokens, errors
}

func (s *Scanner) atEnd() bool { return s.cursor >= s.buf.Len() }

func (s *Scanner) peek() byte { return s.buf.At(s.cursor) }

func (s *Scanner) peekAt(offset int) byte { return s.buf.At(s.cursor + offset) }

func (s *Scanner) advance(n int) {
	s.cursor += n
	s.lineOffset += n
}

func (s *Scanner) newline() {
	s.cursor++
	s.line++
	s.lineOffset = 0
}

func (s *Scanner) loc(start, startLine, startOffset, length int) source.Location {
	return source.Location{Cursor: start, Line: startLine, LineOffset: startOffset, Length: length}
}

// next scans a single token, skipping whitespace and comments first.
func (s *Scanner) next() (token.Token, *errs.Error) {
	for {
		if s.atEnd() {
			return token.Token{Kind: token.EOF, Loc: s.loc(s.cursor, s.line, s.lineOffset, 0)}, nil
		}
		c := s.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			s.advance(1)
			continue
		case c == '\n':
			s.newline()
			continue
		case c == '/' && s.peekAt(1) == '/':
			s.skipLineComment()
			continue
		case c == '/' && s.peekAt(1) == '*':
			if err := s.skipBlockComment(); err != nil {
				return token.Token{Kind: token.ILLEGAL, Loc: err.Loc}, err
			}
			continue
		}
		break
	}

	start, startLine, startOffset := s.cursor, s.line, s.lineOffset
	c := s.peek()

	switch {
	case c < 128 && singleCharKinds[c] != token.ILLEGAL:
		s.advance(1)
		return token.Token{Kind: singleCharKinds[c], Loc: s.loc(start, startLine, startOffset, 1)}, nil
	case c == '!':
		return s.twoCharOp(token.BANG_EQUAL, token.BANG, start, startLine, startOffset), nil
	case c == '=':
		return s.twoCharOp(token.EQUAL_EQUAL, token.EQUAL, start, startLine, startOffset), nil
	case c == '<':
		return s.twoCharOp(token.LESS_EQUAL, token.LESS, start, startLine, startOffset), nil
	case c == '>':
		return s.twoCharOp(token.GREATER_EQUAL, token.GREATER, start, startLine, startOffset), nil
	case c == '/':
		s.advance(1)
		return token.Token{Kind: token.SLASH, Loc: s.loc(start, startLine, startOffset, 1)}, nil
	case c == '"':
		return s.scanString(start, startLine, startOffset)
	case isDigit(c):
		return s.scanNumber(start, startLine, startOffset), nil
	case isIdentStart(c):
		return s.scanIdentifier(start, startLine, startOffset), nil
	default:
		loc := s.loc(start, startLine, startOffset, 1)
		s.advance(1)
		return token.Token{Kind: token.ILLEGAL, Loc: loc},
			errs.New(errs.Lexical, errs.KindUnrecognizedCharacter, loc, "unrecognized character")
	}
}

func (s *Scanner) twoCharOp(two, one token.Kind, start, startLine, startOffset int) token.Token {
	if s.peekAt(1) == '=' {
		s.advance(2)
		return token.Token{Kind: two, Loc: s.loc(start, startLine, startOffset, 2)}
	}
	s.advance(1)
	return token.Token{Kind: one, Loc: s.loc(start, startLine, startOffset, 1)}
}

func (s *Scanner) skipLineComment() {
	for !s.atEnd() && s.peek() != '\n' {
		s.advance(1)
	}
}

// skipBlockComment consumes a /* ... */ comment, tracking nesting so inner
// block comments don't terminate the outer one early.
func (s *Scanner) skipBlockComment() *errs.Error {
	start, startLine, startOffset := s.cursor, s.line, s.lineOffset
	s.advance(2) // opening "/*"
	depth := 1
	for depth > 0 {
		if s.atEnd() {
			loc := s.loc(start, startLine, startOffset, s.cursor-start)
			return errs.New(errs.Lexical, errs.KindUnbalancedBlockComment, loc, "unterminated block comment")
		}
		switch {
		case s.peek() == '/' && s.peekAt(1) == '*':
			depth++
			s.advance(2)
		case s.peek() == '*' && s.peekAt(1) == '/':
			depth--
			s.advance(2)
		case s.peek() == '\n':
			s.newline()
		default:
			s.advance(1)
		}
	}
	return nil
}

func (s *Scanner) scanString(start, startLine, startOffset int) (token.Token, *errs.Error) {
	s.advance(1) // opening quote
	for {
		if s.atEnd() {
			loc := s.loc(start, startLine, startOffset, s.cursor-start)
			return token.Token{Kind: token.ILLEGAL, Loc: loc},
				errs.New(errs.Lexical, errs.KindUnterminatedString, loc, "unterminated string")
		}
		if s.peek() == '\n' {
			s.newline()
			continue
		}
		if s.peek() == '"' {
			s.advance(1)
			return token.Token{Kind: token.STRING, Loc: s.loc(start, startLine, startOffset, s.cursor-start)}, nil
		}
		s.advance(1)
	}
}

// scanNumber scans one or more digits with an optional fractional part that
// requires a digit after the dot, so `1.` lexes as NUMBER("1") then DOT.
func (s *Scanner) scanNumber(start, startLine, startOffset int) token.Token {
	for !s.atEnd() && isDigit(s.peek()) {
		s.advance(1)
	}
	if !s.atEnd() && s.peek() == '.' && isDigit(s.peekAt(1)) {
		s.advance(1)
		for !s.atEnd() && isDigit(s.peek()) {
			s.advance(1)
		}
	}
	return token.Token{Kind: token.NUMBER, Loc: s.loc(start, startLine, startOffset, s.cursor-start)}
}

func (s *Scanner) scanIdentifier(start, startLine, startOffset int) token.Token {
	for !s.atEnd() && isIdentPart(s.peek()) {
		s.advance(1)
	}
	lexeme := s.buf.Lexeme(s.loc(start, startLine, startOffset, s.cursor-start))
	kind, isKeyword := token.Keywords[lexeme]
	if !isKeyword {
		kind = token.IDENTIFIER
	}
	return token.Token{Kind: kind, Loc: s.loc(start, startLine, startOffset, s.cursor-start)}
}
