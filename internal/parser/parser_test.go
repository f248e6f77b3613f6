package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobshell/internal/command"
)

func TestParse(t *testing.T) {
	cases := map[string]struct {
		line string
		want []*command.Command
	}{
		"empty": {"   ", nil},
		"simple": {"ls -l", []*command.Command{
			{Args: []string{"ls", "-l"}, Line: "ls -l"},
		}},
		"background": {"  sleep 100 &  ", []*command.Command{
			{Args: []string{"sleep", "100"}, Line: "sleep 100", Background: true},
		}},
		"background-glued": {"sleep 100&", []*command.Command{
			{Args: []string{"sleep", "100"}, Line: "sleep 100", Background: true},
		}},
		"quoted-operators": {`echo "a | b" 'c > d'`, []*command.Command{
			{Args: []string{"echo", "a | b", "c > d"}, Line: `echo "a | b" 'c > d'`},
		}},
		"escaped-pipe": {`echo a\|b`, []*command.Command{
			{Args: []string{"echo", "a|b"}, Line: `echo a\|b`},
		}},
		"redirect-glued": {"echo hi>out", []*command.Command{
			{Args: []string{"echo", "hi"}, Line: "echo hi>out", RedirectOut: "out"},
		}},
		"pipeline": {"cat < in.txt | tr a-z A-Z >> out.txt &", []*command.Command{
			{
				Args:       []string{"cat"},
				Line:       "cat < in.txt | tr a-z A-Z >> out.txt",
				Background: true,
				RedirectIn: "in.txt",
			},
			{
				Args:        []string{"tr", "a-z", "A-Z"},
				Line:        "cat < in.txt | tr a-z A-Z >> out.txt",
				Background:  true,
				RedirectOut: "out.txt",
				Append:      true,
			},
		}},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := Parse(tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	for _, line := range []string{
		"| ls",
		"ls |",
		"ls | | wc",
		"ls >",
		"ls > | wc",
		"< in",
		"sleep 1 & ls",
		"&",
		`echo "unterminated`,
		`echo trailing\`,
	} {
		t.Run(line, func(t *testing.T) {
			cmds, err := Parse(line)
			assert.ErrorIs(t, err, ErrSyntax)
			assert.Nil(t, cmds)
		})
	}
}
