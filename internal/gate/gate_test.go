package gate

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	calls []Command
	code  int
	err   error
}

func (r *recordingRunner) Run(ctx context.Context, cmd Command) (int, error) {
	r.calls = append(r.calls, cmd)
	return r.code, r.err
}

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func newTestGate(env map[string]string, runner Runner) (*Gate, *bytes.Buffer) {
	var stderr bytes.Buffer
	return &Gate{
		Lookup:  envLookup(env),
		Environ: func() []string { return []string{"TELEGRAM_BOT_TOKEN=" + env["TELEGRAM_BOT_TOKEN"], "PORT=8080"} },
		Resolve: func() (string, error) { return "/opt/joinkeeper/joinkeeper", nil },
		Runner:  runner,
		Stderr:  &stderr,
	}, &stderr
}

func TestCheck(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, Check(envLookup(nil)), ErrMissingToken)
	assert.ErrorIs(t, Check(envLookup(map[string]string{TokenEnv: ""})), ErrMissingToken)
	assert.NoError(t, Check(envLookup(map[string]string{TokenEnv: "123:ABC"})))
}

func TestMain_MissingToken(t *testing.T) {
	t.Parallel()

	for name, env := range map[string]map[string]string{
		"unset": {},
		"empty": {TokenEnv: ""},
	} {
		env := env
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			runner := &recordingRunner{}
			g, stderr := newTestGate(env, runner)

			assert.Equal(t, 1, g.Main(context.Background()))
			assert.Contains(t, stderr.String(), "❌")
			assert.Empty(t, runner.calls)
		})
	}
}

func TestMain_LaunchesOnce(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	g, stderr := newTestGate(map[string]string{TokenEnv: "123:ABC"}, runner)

	assert.Equal(t, 0, g.Main(context.Background()))
	assert.Empty(t, stderr.String())
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "/opt/joinkeeper/joinkeeper", runner.calls[0].Path)
	assert.Equal(t, []string{"run"}, runner.calls[0].Args)
	assert.Equal(t, []string{"TELEGRAM_BOT_TOKEN=123:ABC", "PORT=8080"}, runner.calls[0].Env)
}

func TestMain_DelegatesExitCode(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{code: 3}
	g, _ := newTestGate(map[string]string{TokenEnv: "123:ABC"}, runner)

	assert.Equal(t, 3, g.Main(context.Background()))
}

func TestMain_StartFailure(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{err: errors.New("exec format error")}
	g, stderr := newTestGate(map[string]string{TokenEnv: "123:ABC"}, runner)

	assert.Equal(t, 1, g.Main(context.Background()))
	assert.Contains(t, stderr.String(), "❌")

	g, stderr = newTestGate(map[string]string{TokenEnv: "123:ABC"}, &recordingRunner{})
	g.Resolve = func() (string, error) { return "", errors.New("not found") }
	assert.Equal(t, 1, g.Main(context.Background()))
	assert.Contains(t, stderr.String(), "❌")
}

func TestResolveBinary(t *testing.T) {
	t.Parallel()

	noPath := func(string) (string, error) { return "", exec.ErrNotFound }

	got, err := ResolveBinary("/custom/bot", "/usr/local/bin/launcher", noPath)
	require.NoError(t, err)
	assert.Equal(t, "/custom/bot", got)

	dir := t.TempDir()
	sibling := filepath.Join(dir, BinaryName)
	require.NoError(t, os.WriteFile(sibling, []byte("#!/bin/sh\n"), 0o755))
	got, err = ResolveBinary("", filepath.Join(dir, "launcher"), noPath)
	require.NoError(t, err)
	assert.Equal(t, sibling, got)

	got, err = ResolveBinary("", filepath.Join(t.TempDir(), "launcher"), func(string) (string, error) { return "/usr/bin/joinkeeper", nil })
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/joinkeeper", got)

	_, err = ResolveBinary("", filepath.Join(t.TempDir(), "launcher"), noPath)
	assert.ErrorIs(t, err, exec.ErrNotFound)
}

func TestExecRunner(t *testing.T) {
	t.Parallel()

	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	var stdout bytes.Buffer
	code, err := ExecRunner{}.Run(context.Background(), Command{
		Path:   sh,
		Args:   []string{"-c", "echo $GREETING; exit 3"},
		Env:    []string{"GREETING=hello"},
		Stdout: &stdout,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Equal(t, "hello\n", stdout.String())

	_, err = ExecRunner{}.Run(context.Background(), Command{Path: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

// lockedBuffer lets the test read output while the child is still writing.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// trapChild starts a shell that exits 7 on SIGTERM once it reports ready.
func trapChild(t *testing.T, ctx context.Context) <-chan int {
	t.Helper()

	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	stdout := &lockedBuffer{}
	codes := make(chan int, 1)
	go func() {
		code, err := ExecRunner{}.Run(ctx, Command{
			Path:   sh,
			Args:   []string{"-c", `trap "exit 7" TERM; echo ready; while :; do sleep 0.05; done`},
			Stdout: stdout,
		})
		assert.NoError(t, err)
		codes <- code
	}()

	require.Eventually(t, func() bool { return strings.Contains(stdout.String(), "ready") },
		5*time.Second, 10*time.Millisecond)
	return codes
}

func waitExit(t *testing.T, codes <-chan int) int {
	t.Helper()
	select {
	case code := <-codes:
		return code
	case <-time.After(5 * time.Second):
		t.Fatal("child did not exit")
		return -1
	}
}

// Not parallel: the signal is delivered to the whole test process.
func TestExecRunner_ForwardsSIGTERM(t *testing.T) {
	codes := trapChild(t, context.Background())

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	assert.Equal(t, 7, waitExit(t, codes))
}

func TestExecRunner_ContextCancelTerminatesChild(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	codes := trapChild(t, ctx)

	cancel()

	assert.Equal(t, 7, waitExit(t, codes))
}
