package parser

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	ErrUnterminatedQuote = errors.New("unterminated quote")
	ErrLeadingOperator   = errors.New("operator without a left-hand side")
)

// TokenKind classifies a token produced by Tokenize.
type TokenKind int

const (
	Simple TokenKind = iota
	Quoted
	Pipe
	Background
	SequentialAnd
)

func (k TokenKind) String() string {
	switch k {
	case Simple:
		return "Simple"
	case Quoted:
		return "Quoted"
	case Pipe:
		return "Pipe"
	case Background:
		return "Background"
	case SequentialAnd:
		return "SequentialAnd"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// IsOperator reports whether the kind closes the pending invocation.
func (k TokenKind) IsOperator() bool {
	return k == Pipe || k == Background || k == SequentialAnd
}

type Token struct {
	Text string
	Kind TokenKind
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)", t.Kind, t.Text)
}

type scanState int

const (
	stateIgnore scanState = iota
	stateWord
	stateLeftQuote
)

// Tokenize splits a raw input line into typed tokens. It either returns
// every token of the line or an error, never a partial result.
func Tokenize(line string) ([]Token, error) {
	trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
	if strings.HasPrefix(trimmed, "|") || strings.HasPrefix(trimmed, "&") {
		return nil, fmt.Errorf("%w: %q", ErrLeadingOperator, trimmed[:1])
	}

	var (
		tokens []Token
		buf    strings.Builder
		state  = stateIgnore
	)

	flush := func(kind TokenKind) {
		tokens = append(tokens, Token{Text: buf.String(), Kind: kind})
		buf.Reset()
		state = stateIgnore
	}

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case unicode.IsSpace(c):
			switch state {
			case stateLeftQuote:
				buf.WriteRune(c)
			case stateWord:
				if buf.Len() > 0 {
					flush(Simple)
				}
				state = stateIgnore
			}
		case c == '|' && state != stateLeftQuote:
			flush(Pipe)
		case c == '&' && state != stateLeftQuote:
			kind := Background
			if i+1 < len(runes) && runes[i+1] == '&' {
				kind = SequentialAnd
				i++
			}
			flush(kind)
		case c == '"':
			pending := buf.String()
			if strings.HasSuffix(pending, `\`) {
				buf.Reset()
				buf.WriteString(strings.TrimSuffix(pending, `\`))
				buf.WriteRune(c)
				if state == stateIgnore {
					state = stateWord
				}
				continue
			}
			if state == stateLeftQuote {
				flush(Quoted)
			} else {
				state = stateLeftQuote
			}
		default:
			if state == stateIgnore {
				state = stateWord
			}
			buf.WriteRune(c)
		}
	}

	switch {
	case state == stateLeftQuote:
		return nil, ErrUnterminatedQuote
	case buf.Len() > 0:
		flush(Simple)
	}
	return tokens, nil
}
