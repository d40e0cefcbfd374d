package parser

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestTokenizeQuotedAndPipe(t *testing.T) {
	tokens, err := Tokenize(`a "b c" | d`)
	if err != nil {
		t.Fatal(err)
	}
	expected := []Token{
		{Text: "a", Kind: Simple},
		{Text: "b c", Kind: Quoted},
		{Text: "", Kind: Pipe},
		{Text: "d", Kind: Simple},
	}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("expected %v, got %v", expected, tokens)
	}
}

func TestTokenizeOperators(t *testing.T) {
	tests := []struct {
		line string
		want []Token
	}{
		{"echo hi && echo bye", []Token{
			{"echo", Simple}, {"hi", Simple}, {"", SequentialAnd}, {"echo", Simple}, {"bye", Simple},
		}},
		{"sleep 5 &", []Token{
			{"sleep", Simple}, {"5", Simple}, {"", Background},
		}},
		{"ls|wc", []Token{
			{"ls", Pipe}, {"wc", Simple},
		}},
		{"a&&b", []Token{
			{"a", SequentialAnd}, {"b", Simple},
		}},
		{"a | | b", []Token{
			{"a", Simple}, {"", Pipe}, {"", Pipe}, {"b", Simple},
		}},
	}
	for _, tt := range tests {
		got, err := Tokenize(tt.line)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tt.line, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%q: expected %v, got %v", tt.line, tt.want, got)
		}
	}
}

func TestTokenizeEscapedQuote(t *testing.T) {
	tokens, err := Tokenize(`echo "say \"hi\" now"`)
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %v", tokens)
	}
	if tokens[1].Kind != Quoted || tokens[1].Text != `say "hi" now` {
		t.Errorf("unexpected quoted token %v", tokens[1])
	}
}

func TestTokenizeOperatorsInsideQuotes(t *testing.T) {
	tokens, err := Tokenize(`grep "a|b && c"`)
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 2 || tokens[1].Text != "a|b && c" {
		t.Errorf("expected literal operators inside quotes, got %v", tokens)
	}
}

func TestTokenizeUnterminatedQuote(t *testing.T) {
	for _, line := range []string{`echo "abc`, `echo "`} {
		tokens, err := Tokenize(line)
		if !errors.Is(err, ErrUnterminatedQuote) {
			t.Errorf("%q: expected ErrUnterminatedQuote, got %v", line, err)
		}
		if tokens != nil {
			t.Errorf("%q: expected no tokens, got %v", line, tokens)
		}
	}
}

func TestTokenizeLeadingOperator(t *testing.T) {
	for _, line := range []string{"| ls", "&& ls", "& ls", "   | ls"} {
		if _, err := Tokenize(line); !errors.Is(err, ErrLeadingOperator) {
			t.Errorf("%q: expected ErrLeadingOperator, got %v", line, err)
		}
	}
}

func TestTokenizeRejoinWords(t *testing.T) {
	lines := []string{
		"ls -la /tmp",
		"  git   commit -m   msg  ",
		"a b\tc",
	}
	for _, line := range lines {
		tokens, err := Tokenize(line)
		if err != nil {
			t.Fatalf("%q: %v", line, err)
		}
		var words []string
		for _, tok := range tokens {
			if !tok.Kind.IsOperator() {
				words = append(words, tok.Text)
			}
		}
		if got, want := strings.Join(words, " "), strings.Join(strings.Fields(line), " "); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}

func TestTokenizeEmpty(t *testing.T) {
	tokens, err := Tokenize("   ")
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 0 {
		t.Errorf("expected no tokens, got %v", tokens)
	}
}
