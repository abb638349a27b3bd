package parser

import (
	"fmt"
	"unicode"
)

// TokenType represents the type of a token
type TokenType int

const (
	TOKEN_ILLEGAL TokenType = iota
	TOKEN_EOF

	// Identifiers and literals
	TOKEN_IDENTIFIER
	TOKEN_STRING // String literals (quoted)
	TOKEN_NUMBER

	// Keywords
	TOKEN_ENUM
	TOKEN_MODEL
	TOKEN_FIELD
	TOKEN_REQUIRED
	TOKEN_FORMAT
	TOKEN_HAS_MANY
	TOKEN_HAS_ONE
	TOKEN_BELONGS_TO
	TOKEN_UNIQUE
	TOKEN_ALLOW
	TOKEN_TO
	TOKEN_WHEN
	TOKEN_AUTHORIZATION

	// Delimiters
	TOKEN_COLON
	TOKEN_LBRACE
	TOKEN_RBRACE
	TOKEN_LPAREN
	TOKEN_RPAREN
	TOKEN_COMMA
)

var tokenNames = map[TokenType]string{
	TOKEN_ILLEGAL:       "ILLEGAL",
	TOKEN_EOF:           "EOF",
	TOKEN_IDENTIFIER:    "IDENTIFIER",
	TOKEN_STRING:        "STRING",
	TOKEN_NUMBER:        "NUMBER",
	TOKEN_ENUM:          "enum",
	TOKEN_MODEL:         "model",
	TOKEN_FIELD:         "field",
	TOKEN_REQUIRED:      "required",
	TOKEN_FORMAT:        "format",
	TOKEN_HAS_MANY:      "hasMany",
	TOKEN_HAS_ONE:       "hasOne",
	TOKEN_BELONGS_TO:    "belongsTo",
	TOKEN_UNIQUE:        "unique",
	TOKEN_ALLOW:         "allow",
	TOKEN_TO:            "to",
	TOKEN_WHEN:          "when",
	TOKEN_AUTHORIZATION: "authorization",
	TOKEN_COLON:         ":",
	TOKEN_LBRACE:        "{",
	TOKEN_RBRACE:        "}",
	TOKEN_LPAREN:        "(",
	TOKEN_RPAREN:        ")",
	TOKEN_COMMA:         ",",
}

var keywords = map[string]TokenType{
	"enum":          TOKEN_ENUM,
	"model":         TOKEN_MODEL,
	"field":         TOKEN_FIELD,
	"required":      TOKEN_REQUIRED,
	"format":        TOKEN_FORMAT,
	"hasMany":       TOKEN_HAS_MANY,
	"hasOne":        TOKEN_HAS_ONE,
	"belongsTo":     TOKEN_BELONGS_TO,
	"unique":        TOKEN_UNIQUE,
	"allow":         TOKEN_ALLOW,
	"to":            TOKEN_TO,
	"when":          TOKEN_WHEN,
	"authorization": TOKEN_AUTHORIZATION,
}

var delimiters = map[byte]TokenType{
	':': TOKEN_COLON,
	'{': TOKEN_LBRACE,
	'}': TOKEN_RBRACE,
	'(': TOKEN_LPAREN,
	')': TOKEN_RPAREN,
	',': TOKEN_COMMA,
}

// Token represents a lexical token
type Token struct {
	Type   TokenType
	Value  string
	Line   int
	Column int
}

// String returns a string representation of the token
func (t *Token) String() string {
	typeName := tokenNames[t.Type]
	if typeName == "" {
		typeName = fmt.Sprintf("UNKNOWN(%d)", t.Type)
	}
	return fmt.Sprintf("%s(%s) at %d:%d", typeName, t.Value, t.Line, t.Column)
}

// Lexer performs lexical analysis
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
	column       int
}

// NewLexer creates a new Lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0 // EOF
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// skipComment skips single-line comments starting with // or #
func (l *Lexer) skipComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

func (l *Lexer) atComment() bool {
	return l.ch == '#' || (l.ch == '/' && l.peekChar() == '/')
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber() string {
	position := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readString reads a string literal enclosed in double quotes.
// A backslash escapes the next character.
func (l *Lexer) readString() (string, bool) {
	var out []byte
	for {
		l.readChar()
		switch l.ch {
		case '"':
			return string(out), true
		case 0, '\n':
			return string(out), false
		case '\\':
			l.readChar()
			if l.ch == 0 {
				return string(out), false
			}
		}
		out = append(out, l.ch)
	}
}

// NextToken returns the next token
func (l *Lexer) NextToken() (*Token, error) {
	for {
		l.skipWhitespace()
		if l.atComment() {
			l.skipComment()
		} else {
			break
		}
	}

	line := l.line
	column := l.column

	if t, ok := delimiters[l.ch]; ok {
		tok := &Token{Type: t, Value: string(l.ch), Line: line, Column: column}
		l.readChar()
		return tok, nil
	}

	switch {
	case l.ch == 0:
		return &Token{Type: TOKEN_EOF, Line: line, Column: column}, nil
	case l.ch == '"':
		value, ok := l.readString()
		if !ok {
			return nil, fmt.Errorf("unterminated string at %d:%d", line, column)
		}
		l.readChar() // Skip closing quote
		return &Token{Type: TOKEN_STRING, Value: value, Line: line, Column: column}, nil
	case isLetter(l.ch):
		value := l.readIdentifier()
		tokenType := TOKEN_IDENTIFIER
		if kw, ok := keywords[value]; ok {
			tokenType = kw
		}
		return &Token{Type: tokenType, Value: value, Line: line, Column: column}, nil
	case isDigit(l.ch):
		value := l.readNumber()
		return &Token{Type: TOKEN_NUMBER, Value: value, Line: line, Column: column}, nil
	default:
		ch := l.ch
		l.readChar()
		return nil, fmt.Errorf("illegal character '%c' at %d:%d", ch, line, column)
	}
}

func isLetter(ch byte) bool {
	return ch < 0x80 && unicode.IsLetter(rune(ch))
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
