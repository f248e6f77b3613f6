package repl

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"jobshell/internal/executor"
)

// syncBuffer is written by the shell goroutine and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newShell(t *testing.T, in io.Reader, interactive bool) (*Shell, *syncBuffer, chan os.Signal) {
	t.Helper()
	out := new(syncBuffer)
	signals := make(chan os.Signal, 4)
	devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	require.NoError(t, err)
	t.Cleanup(func() { devnull.Close() })

	ex := executor.New(executor.Options{
		Out:          out,
		Stdout:       devnull,
		Stderr:       devnull,
		Signals:      signals,
		PollInterval: time.Millisecond,
	})
	sh := New(Options{
		Executor:    ex,
		Signals:     signals,
		In:          in,
		Out:         out,
		Color:       "never",
		Interactive: interactive,
	})
	return sh, out, signals
}

func TestRunScript(t *testing.T) {
	file := filepath.Join(t.TempDir(), "out")
	script := strings.Join([]string{
		"echo one > " + file,
		"",
		"echo two >> " + file,
		"exit 3",
		"echo never >> " + file,
	}, "\n")
	sh, out, _ := newShell(t, strings.NewReader(script), false)

	assert.Equal(t, 3, sh.Run(context.Background()))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))
	assert.Empty(t, out.String())
}

func TestRunEndOfInput(t *testing.T) {
	sh, out, _ := newShell(t, strings.NewReader("false"), true)

	assert.Equal(t, 1, sh.Run(context.Background()))
	assert.Equal(t, "jobshell> \n", out.String())
}

func TestRunReportsErrors(t *testing.T) {
	script := "ls |\njobshell-no-such-command\nfg\n"
	sh, out, _ := newShell(t, strings.NewReader(script), false)

	sh.Run(context.Background())

	assert.Equal(t, "jobshell: syntax error: missing command\n"+
		"jobshell-no-such-command: command not found\n"+
		"fg: no current job\n", out.String())
}

func TestRunBackgroundJobAnnounced(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	sh, out, signals := newShell(t, pr, false)

	done := make(chan int)
	go func() { done <- sh.Run(context.Background()) }()

	_, err := io.WriteString(pw, "true &\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		select {
		case signals <- unix.SIGCHLD:
		default:
		}
		return strings.Contains(out.String(), "[1]   Done                   true\n")
	}, 5*time.Second, 10*time.Millisecond)

	_, err = io.WriteString(pw, "exit 4\n")
	require.NoError(t, err)
	assert.Equal(t, 4, <-done)
}

func TestInterruptAtPrompt(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	sh, out, signals := newShell(t, pr, true)

	done := make(chan int)
	go func() { done <- sh.Run(context.Background()) }()

	signals <- unix.SIGINT
	require.Eventually(t, func() bool {
		return out.String() == "jobshell> \njobshell> "
	}, 5*time.Second, 10*time.Millisecond)

	_, err := io.WriteString(pw, "exit\n")
	require.NoError(t, err)
	assert.Zero(t, <-done)
}

func TestRunCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	sh, _, _ := newShell(t, pr, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int)
	go func() { done <- sh.Run(ctx) }()
	cancel()

	select {
	case status := <-done:
		assert.Zero(t, status)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestColorPrompt(t *testing.T) {
	out := new(bytes.Buffer)
	sh := New(Options{Out: out, Color: "always", Interactive: true, Prompt: "$ "})

	sh.showPrompt()

	assert.Equal(t, "\x1b[32;1m$ \x1b[0m", out.String())
}
