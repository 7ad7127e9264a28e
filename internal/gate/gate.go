// Package gate refuses to start the bot without a Telegram token and hands
// the process over to the bot binary otherwise.
package gate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// TokenEnv is the variable that must be present for the bot to start.
const TokenEnv = "TELEGRAM_BOT_TOKEN"

// BinaryEnv overrides the path of the launched binary.
const BinaryEnv = "JOINKEEPER_BIN"

// BinaryName is the bot binary looked up next to the launcher and on PATH.
const BinaryName = "joinkeeper"

// ErrMissingToken is returned by Check when the token is absent or empty.
var ErrMissingToken = errors.New(TokenEnv + " is not set")

// MissingTokenMessage is printed to stderr when the token is missing.
const MissingTokenMessage = "❌ " + TokenEnv + " не найден!\n" +
	"Для локальной разработки: создайте файл .env с токеном\n" +
	"Для Render: добавьте переменную окружения " + TokenEnv

// Check verifies that the token variable exists and is not empty. The token
// format is left to the bot itself.
func Check(lookup func(string) (string, bool)) error {
	if v, ok := lookup(TokenEnv); !ok || v == "" {
		return ErrMissingToken
	}
	return nil
}

// Command is a process to launch.
type Command struct {
	Path   string
	Args   []string
	Env    []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Runner runs a command to completion and returns its exit code.
type Runner interface {
	Run(ctx context.Context, cmd Command) (int, error)
}

// Gate checks the environment and launches the bot exactly once.
type Gate struct {
	Lookup  func(string) (string, bool)
	Environ func() []string
	Resolve func() (string, error)
	Runner  Runner
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

// New returns a Gate wired to the real process environment.
func New() *Gate {
	return &Gate{
		Lookup:  os.LookupEnv,
		Environ: os.Environ,
		Resolve: func() (string, error) {
			self, _ := os.Executable()
			return ResolveBinary(os.Getenv(BinaryEnv), self, exec.LookPath)
		},
		Runner: ExecRunner{},
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Main runs the gate and returns the process exit code: 1 when the token is
// missing or the bot cannot be started, the bot's own exit code otherwise.
func (g *Gate) Main(ctx context.Context) int {
	if err := Check(g.Lookup); err != nil {
		fmt.Fprintln(g.Stderr, MissingTokenMessage)
		return 1
	}

	bin, err := g.Resolve()
	if err != nil {
		fmt.Fprintf(g.Stderr, "❌ Не удалось найти %s: %v\n", BinaryName, err)
		return 1
	}

	code, err := g.Runner.Run(ctx, Command{
		Path:   bin,
		Args:   []string{"run"},
		Env:    g.Environ(),
		Stdin:  g.Stdin,
		Stdout: g.Stdout,
		Stderr: g.Stderr,
	})
	if err != nil {
		fmt.Fprintf(g.Stderr, "❌ Не удалось запустить %s: %v\n", bin, err)
		return 1
	}
	return code
}

// ResolveBinary picks the bot binary: the override when set, then a file
// named BinaryName next to self, then BinaryName on PATH.
func ResolveBinary(override, self string, lookPath func(string) (string, error)) (string, error) {
	if override != "" {
		return override, nil
	}
	if self != "" {
		candidate := filepath.Join(filepath.Dir(self), BinaryName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	path, err := lookPath(BinaryName)
	if err != nil {
		return "", fmt.Errorf("%s not found next to the launcher or on PATH: %w", BinaryName, err)
	}
	return path, nil
}
