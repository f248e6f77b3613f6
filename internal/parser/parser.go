package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anmitsu/go-shlex"

	"jobshell/internal/command"
)

// ErrSyntax is wrapped by every error Parse returns.
var ErrSyntax = errors.New("syntax error")

type tokenKind int

const (
	word tokenKind = iota
	pipe
	redirectIn
	redirectOut
	appendOut
	background
)

type token struct {
	kind tokenKind
	text string
	// offset of an operator within the line
	offset int
}

// Parse splits a command line into pipeline stages. Quoting follows POSIX
// shell rules; operators (| < > >> &) only count outside quotes. A trailing &
// runs the whole line in the background. An empty line yields no commands.
func Parse(line string) ([]*command.Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}

	tokens, err := lex(line)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	bg := false
	text := line
	if n := len(tokens); n > 0 && tokens[n-1].kind == background {
		bg = true
		text = strings.TrimSpace(line[:tokens[n-1].offset])
		tokens = tokens[:n-1]
	}

	var (
		cmds []*command.Command
		cur  = &command.Command{}
	)
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.kind {
		case word:
			cur.Args = append(cur.Args, tok.text)
		case pipe:
			if cur.Argc() == 0 {
				return nil, unexpected(tok)
			}
			cmds = append(cmds, cur)
			cur = &command.Command{}
		case redirectIn, redirectOut, appendOut:
			if i+1 == len(tokens) || tokens[i+1].kind != word {
				return nil, fmt.Errorf("%w: missing file after %q", ErrSyntax, tok.text)
			}
			i++
			target := tokens[i].text
			if tok.kind == redirectIn {
				cur.RedirectIn = target
			} else {
				cur.RedirectOut = target
				cur.Append = tok.kind == appendOut
			}
		case background:
			return nil, unexpected(tok)
		}
	}
	if cur.Argc() == 0 {
		if len(cmds) > 0 || bg || cur.RedirectIn != "" || cur.RedirectOut != "" {
			return nil, fmt.Errorf("%w: missing command", ErrSyntax)
		}
		return nil, nil
	}
	cmds = append(cmds, cur)

	for _, cmd := range cmds {
		cmd.Line = text
		cmd.Background = bg
	}
	return cmds, nil
}

func unexpected(tok token) error {
	return fmt.Errorf("%w: unexpected %q", ErrSyntax, tok.text)
}

// lex cuts the line at unquoted operators and splits the text in between into
// words with shlex.
func lex(line string) ([]token, error) {
	var (
		tokens []token
		start  int
		quote  rune
		escape bool
	)

	flush := func(end int) error {
		words, err := shlex.Split(line[start:end], true)
		if err != nil {
			return err
		}
		for _, w := range words {
			tokens = append(tokens, token{kind: word, text: w})
		}
		return nil
	}

	for i := 0; i < len(line); i++ {
		c := rune(line[i])
		switch {
		case escape:
			escape = false
			continue
		case c == '\\' && quote != '\'':
			escape = true
			continue
		case quote != 0:
			if c == quote {
				quote = 0
			}
			continue
		case c == '\'' || c == '"':
			quote = c
			continue
		}

		op := token{offset: i}
		switch c {
		case '|':
			op.kind, op.text = pipe, "|"
		case '&':
			op.kind, op.text = background, "&"
		case '<':
			op.kind, op.text = redirectIn, "<"
		case '>':
			op.kind, op.text = redirectOut, ">"
			if i+1 < len(line) && line[i+1] == '>' {
				op.kind, op.text = appendOut, ">>"
			}
		default:
			continue
		}

		if err := flush(i); err != nil {
			return nil, err
		}
		tokens = append(tokens, op)
		i += len(op.text) - 1
		start = i + 1
	}

	if err := flush(len(line)); err != nil {
		return nil, err
	}
	return tokens, nil
}
