package cmd

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timvw/iorepl/internal/mux"
	"github.com/timvw/iorepl/internal/mux/muxtest"
	"github.com/timvw/iorepl/internal/preflight"
)

// hostEnv pretends tmux and netcat are installed and the given paths exist.
type hostEnv struct {
	missingTools map[string]bool
	paths        map[string]fs.FileMode
	// statted, if set, collects every path looked at.
	statted *[]string
}

func (e hostEnv) LookPath(file string) (string, error) {
	if e.missingTools[file] {
		return "", errors.New("not found")
	}
	return "/usr/bin/" + file, nil
}

func (e hostEnv) Stat(name string) (fs.FileInfo, error) {
	if e.statted != nil {
		*e.statted = append(*e.statted, name)
	}
	mode, ok := e.paths[name]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return stat{mode: mode}, nil
}

type stat struct{ mode fs.FileMode }

func (s stat) Name() string       { return "" }
func (s stat) Size() int64        { return 0 }
func (s stat) Mode() fs.FileMode  { return s.mode }
func (s stat) ModTime() time.Time { return time.Time{} }
func (s stat) IsDir() bool        { return s.mode.IsDir() }
func (s stat) Sys() any           { return nil }

func run7Env() hostEnv {
	return hostEnv{paths: map[string]fs.FileMode{
		"/tmp/logfiles/":              fs.ModeDir,
		"/tmp/logfiles/example17.log": 0,
		"/tmp/logfiles/example27.log": 0,
		"/tmp/logfiles/example37.log": 0,
	}}
}

// execute runs the root command with args against env and a fresh fake runner.
func execute(t *testing.T, env preflight.Env, args ...string) (*muxtest.Runner, string, error) {
	t.Helper()
	r := muxtest.NewRunner()
	out, err := executeWith(t, env, r, args...)
	return r, out, err
}

func executeWith(t *testing.T, env preflight.Env, r *muxtest.Runner, args ...string) (string, error) {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("IOREPL_LOG_LEVEL", "error")
	t.Setenv("IOREPL_MAX_ATTEMPTS", "")
	t.Setenv("IOREPL_RETRY_TIMEOUT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	origDir, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(origDir) })
	require.NoError(t, os.Chdir(dir))

	origEnv, origRunner := preflightEnv, newRunner
	preflightEnv = env
	newRunner = func() mux.Runner { return r }
	t.Cleanup(func() { preflightEnv, newRunner = origEnv, origRunner })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestRoot_BuildsLayout(t *testing.T) {
	r, _, err := execute(t, run7Env(), "7")
	require.NoError(t, err)

	calls := r.Calls()
	require.Len(t, calls, 17)

	count := func(sub string) int {
		n := 0
		for _, c := range calls {
			if c[1] == sub {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 1, count("kill-session"))
	assert.Equal(t, 1, count("new-session"))
	assert.Equal(t, 14, count("send-keys"))
	assert.Equal(t, 1, count("attach-session"))
	assert.Equal(t, []string{"tmux", "attach-session", "-t", "iorepl_tmux"}, calls[16])

	joined := make([]string, len(calls))
	for i, c := range calls {
		joined[i] = strings.Join(c, " ")
	}
	all := strings.Join(joined, "\n")
	for _, want := range []string{
		"tail -f /tmp/logfiles/example17.log",
		"tail -f /tmp/logfiles/example27.log",
		"tail -f /tmp/logfiles/example37.log",
		"netcat localhost 123",
		"netcat localhost 124",
	} {
		assert.Contains(t, all, want)
	}
}

func TestRoot_HelpRunsNothing(t *testing.T) {
	for _, flag := range []string{"-h", "--help"} {
		t.Run(flag, func(t *testing.T) {
			r, out, err := execute(t, run7Env(), flag)
			require.NoError(t, err)
			assert.Empty(t, r.Calls())
			assert.Contains(t, out, "six-pane tmux session")
		})
	}
}

func TestRoot_PreconditionFailuresRunNothing(t *testing.T) {
	noLogDir := run7Env()
	delete(noLogDir.paths, "/tmp/logfiles/")
	noThirdLog := run7Env()
	delete(noThirdLog.paths, "/tmp/logfiles/example37.log")

	tests := []struct {
		name string
		env  hostEnv
		args []string
		kind error
	}{
		{"no arguments", run7Env(), nil, preflight.ErrUsage},
		{"two arguments", run7Env(), []string{"7", "8"}, preflight.ErrUsage},
		{"not an integer", run7Env(), []string{"x"}, preflight.ErrInvalidRunID},
		{"missing log dir", noLogDir, []string{"7"}, preflight.ErrMissingLogDir},
		{"missing log file", noThirdLog, []string{"7"}, preflight.ErrMissingLogFile},
		{"missing tmux", hostEnv{missingTools: map[string]bool{"tmux": true}}, []string{"7"}, preflight.ErrMissingMultiplexer},
		{"missing netcat", hostEnv{missingTools: map[string]bool{"netcat": true}}, []string{"7"}, preflight.ErrMissingNetClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, err := execute(t, tt.env, tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Empty(t, r.Calls())
		})
	}
}

func TestRoot_TailsTheFilesItChecked(t *testing.T) {
	var statted []string
	env := run7Env()
	env.statted = &statted

	r, _, err := execute(t, env, "7")
	require.NoError(t, err)

	require.Equal(t, []string{
		"/tmp/logfiles/",
		"/tmp/logfiles/example17.log",
		"/tmp/logfiles/example27.log",
		"/tmp/logfiles/example37.log",
	}, statted)
	for i, path := range statted[1:] {
		target := "iorepl_tmux." + strconv.Itoa(i)
		assert.Equal(t, 1, r.Count("tmux", "send-keys", "-t", target, "tail -f "+path, "ENTER"))
	}
}

func TestRoot_SubcommandWordsAreRunIDs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		kind error
	}{
		{"help", []string{"help"}, preflight.ErrInvalidRunID},
		{"help with flag", []string{"help", "-h"}, preflight.ErrUsage},
		{"help with run id", []string{"help", "7"}, preflight.ErrUsage},
		{"completion", []string{"completion"}, preflight.ErrInvalidRunID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, err := execute(t, run7Env(), tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Empty(t, r.Calls())
		})
	}
}

func TestRoot_CheckedStepFailure(t *testing.T) {
	r := muxtest.NewRunner()
	r.Script([]string{"tmux", "send-keys", "-t", "iorepl_tmux.4", "netcat localhost 123", "ENTER"}, 1)

	_, err := executeWith(t, run7Env(), r, "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input-0")
	assert.Equal(t, 0, r.Count("tmux", "attach-session", "-t", "iorepl_tmux"))
}

func TestPlan_PrintsGridAndSteps(t *testing.T) {
	r, out, err := execute(t, run7Env(), "plan", "7")
	require.NoError(t, err)
	assert.Empty(t, r.Calls())

	for _, want := range []string{
		"tail example17.log",
		"netcat localhost:124",
		"quit (Enter kills iorepl_tmux)",
		"Steps (17)",
		"split-5",
		"tmux attach-session -t iorepl_tmux",
	} {
		assert.Contains(t, out, want)
	}
}

func TestPlan_RejectsNonInteger(t *testing.T) {
	_, _, err := execute(t, run7Env(), "plan", "seven")
	assert.Error(t, err)
}

func TestKill(t *testing.T) {
	t.Run("running", func(t *testing.T) {
		r, out, err := execute(t, run7Env(), "kill")
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"tmux", "kill-session", "-t", "iorepl_tmux"}}, r.Calls())
		assert.Empty(t, out)
	})
}

func TestKill_NoSession(t *testing.T) {
	origRunner := newRunner
	t.Cleanup(func() { newRunner = origRunner })

	r := muxtest.NewRunner()
	r.Script([]string{"tmux", "kill-session", "-t", "iorepl_tmux"}, 1)
	newRunner = func() mux.Runner { return r }

	var out bytes.Buffer
	killCmd.SetErr(&out)
	t.Cleanup(func() { killCmd.SetErr(nil) })

	require.NoError(t, killCmd.RunE(killCmd, nil))
	assert.Equal(t, "no iorepl_tmux session running\n", out.String())
}

func TestVersion(t *testing.T) {
	_, out, err := execute(t, run7Env(), "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}
