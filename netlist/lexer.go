package netlist

import (
	"strconv"
	"unicode"
	"unicode/utf8"
)

type tokType int

// Tokens
const (
	tokEOF tokType = iota
	tokRaw
	tokIdent
	tokBracketOpen
	tokBracketClose
	tokComma
	tokInt
	tokEqual
)

var tokNames = [...]string{
	tokEOF:          "end of input",
	tokRaw:          "character",
	tokIdent:        "identifier",
	tokBracketOpen:  "'['",
	tokBracketClose: "']'",
	tokComma:        "','",
	tokInt:          "integer",
	tokEqual:        "'='",
}

func (t tokType) String() string { return tokNames[t] }

type token struct {
	typ tokType
	pos int
	val string
	n   int // value of tokInt
}

func (t token) String() string {
	switch t.typ {
	case tokRaw, tokIdent, tokInt:
		return t.typ.String() + " " + strconv.Quote(t.val)
	}
	return t.typ.String()
}

const eof = -1

// stateFn is a lexer state. A nil stateFn returns the lexer to its initial
// state.
//
type stateFn func(l *lexer) stateFn

// lexer splits wiring strings into tokens.
//
type lexer struct {
	input string
	start int // start of the current token
	pos   int
	width int // width of the last rune read
	state stateFn
	toks  []token
}

func newLexer(input string) *lexer {
	return &lexer{input: input, state: lexInit}
}

// lex returns the next token.
//
func (l *lexer) lex() token {
	for len(l.toks) == 0 {
		if s := l.state(l); s != nil {
			l.state = s
		} else {
			l.state = lexInit
		}
	}
	t := l.toks[0]
	l.toks = l.toks[1:]
	return t
}

func (l *lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += w
	l.width = w
	return r
}

func (l *lexer) backup() { l.pos -= l.width }

func (l *lexer) acceptWhile(f func(rune) bool) {
	for f(l.next()) {
	}
	l.backup()
}

func (l *lexer) emit(t tokType) {
	l.toks = append(l.toks, token{typ: t, pos: l.start, val: l.input[l.start:l.pos]})
	l.start = l.pos
}

func (l *lexer) ignore() { l.start = l.pos }

func lexInit(l *lexer) stateFn {
	r := l.next()
	switch {
	case r == eof:
		return lexEOF
	case unicode.IsSpace(r):
		l.acceptWhile(unicode.IsSpace)
		l.ignore()
	case unicode.IsLetter(r) || r == '_':
		return lexIdent
	case '0' <= r && r <= '9':
		return lexNumber
	case r == '[':
		l.emit(tokBracketOpen)
	case r == ']':
		l.emit(tokBracketClose)
	case r == ',':
		l.emit(tokComma)
	case r == '=':
		l.emit(tokEqual)
	default:
		l.emit(tokRaw)
		return lexEOF
	}
	return nil
}

func isDigit(r rune) bool { return '0' <= r && r <= '9' }

func isIdent(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' }

func lexNumber(l *lexer) stateFn {
	l.acceptWhile(isDigit)
	n, err := strconv.Atoi(l.input[l.start:l.pos])
	if err != nil {
		l.emit(tokRaw)
		return lexEOF
	}
	l.emit(tokInt)
	l.toks[len(l.toks)-1].n = n
	return nil
}

func lexIdent(l *lexer) stateFn {
	l.acceptWhile(isIdent)
	l.emit(tokIdent)
	return nil
}

// lexEOF places the lexer in End-Of-File state.
// Once in this state, the lexer will only emit EOF.
//
func lexEOF(l *lexer) stateFn {
	l.toks = append(l.toks, token{typ: tokEOF, pos: l.pos})
	return lexEOF
}
