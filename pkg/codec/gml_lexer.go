package codec

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"strings"
	"unicode"
)

// gmlTokenType represents the type of a GML token
type gmlTokenType int

const (
	gmlEOF gmlTokenType = iota
	gmlKey
	gmlInt
	gmlReal
	gmlString
	gmlOpen  // [
	gmlClose // ]
)

func (t gmlTokenType) String() string {
	switch t {
	case gmlEOF:
		return "end of input"
	case gmlKey:
		return "key"
	case gmlInt:
		return "integer"
	case gmlReal:
		return "real"
	case gmlString:
		return "string"
	case gmlOpen:
		return "'['"
	case gmlClose:
		return "']'"
	default:
		return fmt.Sprintf("token(%d)", int(t))
	}
}

// gmlToken represents a lexical token
type gmlToken struct {
	Type   gmlTokenType
	Value  string
	Line   int
	Column int
}

// gmlLexer tokenizes GML from a stream, one token at a time.
type gmlLexer struct {
	r      *bufio.Reader
	line   int
	column int
}

func newGMLLexer(r io.Reader) *gmlLexer {
	return &gmlLexer{r: bufio.NewReader(r), line: 1, column: 0}
}

func (l *gmlLexer) read() (rune, error) {
	ch, _, err := l.r.ReadRune()
	if err != nil {
		return 0, err
	}
	if ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
	return ch, nil
}

func (l *gmlLexer) peek() (rune, error) {
	ch, _, err := l.r.ReadRune()
	if err != nil {
		return 0, err
	}
	return ch, l.r.UnreadRune()
}

// next returns the next token, or a token of type gmlEOF at end of input.
func (l *gmlLexer) next() (gmlToken, error) {
	for {
		ch, err := l.read()
		if err == io.EOF {
			return gmlToken{Type: gmlEOF, Line: l.line, Column: l.column}, nil
		}
		if err != nil {
			return gmlToken{}, err
		}

		switch {
		case unicode.IsSpace(ch):
			continue
		case ch == '#':
			if err := l.skipLine(); err != nil {
				return gmlToken{}, err
			}
			continue
		case ch == '[':
			return l.makeToken(gmlOpen, "["), nil
		case ch == ']':
			return l.makeToken(gmlClose, "]"), nil
		case ch == '"':
			return l.readString()
		case ch == '-' || ch == '+' || ch == '.' || unicode.IsDigit(ch):
			return l.readNumber(ch)
		case unicode.IsLetter(ch) || ch == '_':
			return l.readKey(ch)
		default:
			return gmlToken{}, fmt.Errorf("unexpected character '%c' at line %d, column %d", ch, l.line, l.column)
		}
	}
}

func (l *gmlLexer) makeToken(t gmlTokenType, value string) gmlToken {
	return gmlToken{Type: t, Value: value, Line: l.line, Column: l.column}
}

func (l *gmlLexer) skipLine() error {
	for {
		ch, err := l.read()
		if err == io.EOF || ch == '\n' {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// readKey reads an identifier
func (l *gmlLexer) readKey(first rune) (gmlToken, error) {
	tok := l.makeToken(gmlKey, "")
	var sb strings.Builder
	sb.WriteRune(first)
	for {
		ch, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return gmlToken{}, err
		}
		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && ch != '_' {
			break
		}
		l.read()
		sb.WriteRune(ch)
	}
	tok.Value = sb.String()
	return tok, nil
}

// readNumber reads an integer or real literal
func (l *gmlLexer) readNumber(first rune) (gmlToken, error) {
	tok := l.makeToken(gmlInt, "")
	var sb strings.Builder
	sb.WriteRune(first)
	isReal := first == '.'
scan:
	for {
		ch, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return gmlToken{}, err
		}
		switch {
		case unicode.IsDigit(ch):
		case ch == '.' || ch == 'e' || ch == 'E':
			isReal = true
		case (ch == '-' || ch == '+') && strings.ContainsAny(sb.String()[sb.Len()-1:], "eE"):
		default:
			break scan
		}
		l.read()
		sb.WriteRune(ch)
	}
	tok.Value = sb.String()
	if isReal {
		tok.Type = gmlReal
	}
	if tok.Value == "-" || tok.Value == "+" || tok.Value == "." {
		return gmlToken{}, fmt.Errorf("invalid number at line %d, column %d", tok.Line, tok.Column)
	}
	return tok, nil
}

// readString reads a quoted string. GML has no backslash escapes; quotes
// and markup characters are written as HTML entities.
func (l *gmlLexer) readString() (gmlToken, error) {
	tok := l.makeToken(gmlString, "")
	var sb strings.Builder
	for {
		ch, err := l.read()
		if err == io.EOF {
			return gmlToken{}, fmt.Errorf("unterminated string at line %d", tok.Line)
		}
		if err != nil {
			return gmlToken{}, err
		}
		if ch == '"' {
			break
		}
		sb.WriteRune(ch)
	}
	tok.Value = html.UnescapeString(sb.String())
	return tok, nil
}
