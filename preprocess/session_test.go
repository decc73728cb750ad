package preprocess

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, dir string) *Session {
	t.Helper()
	s, err := NewSession(dir)
	require.NoError(t, err)
	return s
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewSession_DefaultsToWorkingDir(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	s := newTestSession(t, "")
	assert.Equal(t, wd, s.BaseDir)
	assert.False(t, s.Ignore)
}

func TestSession_ResolvePath(t *testing.T) {
	s := &Session{BaseDir: "/base"}
	assert.Equal(t, "/base/a/b.txt", s.ResolvePath("a/b.txt"))
	assert.Equal(t, "/abs/x", s.ResolvePath("/abs/x"))
	assert.Equal(t, "/base/../up", s.ResolvePath("../up"), "path is not cleaned")

	s.BaseDir = "/base///"
	assert.Equal(t, "/base/f", s.ResolvePath("f"), "exactly one separator")

	s.BaseDir = "/"
	assert.Equal(t, "/f", s.ResolvePath("f"))
}

func TestSession_IgnoreToggle(t *testing.T) {
	s := newTestSession(t, t.TempDir())
	var out bytes.Buffer

	h, err := s.Execute(Directive{Command: CmdIgnore}, &out)
	require.NoError(t, err)
	assert.Equal(t, Recognized, h)
	assert.True(t, s.Ignore)

	h, err = s.Execute(Directive{Command: CmdIgnore, Argument: "extra"}, &out)
	require.NoError(t, err)
	assert.Equal(t, Recognized, h)
	assert.True(t, s.Ignore, "ignore is idempotent")

	h, err = s.Execute(Directive{Command: CmdEndIgnore}, &out)
	require.NoError(t, err)
	assert.Equal(t, Recognized, h)
	assert.False(t, s.Ignore)

	assert.Empty(t, out.String())
}

func TestSession_ImportIsReserved(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "mod.sh"), "echo mod\n")
	s := newTestSession(t, dir)
	var out bytes.Buffer

	h, err := s.Execute(Directive{Command: CmdImport, Argument: "mod.sh"}, &out)
	require.NoError(t, err)
	assert.Equal(t, Recognized, h)
	assert.Empty(t, out.String(), "import has no effect")
}

func TestSession_UnknownCommand(t *testing.T) {
	s := newTestSession(t, t.TempDir())
	var out bytes.Buffer

	for _, cmd := range []string{"frobnicate", "", "Include", "!/bin/sh"} {
		h, err := s.Execute(Directive{Command: cmd, Argument: "x"}, &out)
		require.NoError(t, err)
		assert.Equal(t, Unrecognized, h, "command %q", cmd)
	}
	assert.Empty(t, out.String())
}

func TestSession_IncludeRelative(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lib", "util.sh"), "X\nY\n")
	s := newTestSession(t, dir)
	var out bytes.Buffer

	h, err := s.Execute(Directive{Command: CmdInclude, Argument: "lib/util.sh"}, &out)
	require.NoError(t, err)
	assert.Equal(t, Recognized, h)
	assert.Equal(t, "X\nY\n", out.String())
	assert.Equal(t, 1, s.Stats().Included)
	assert.Equal(t, int64(4), s.Stats().IncludedBytes)
}

func TestSession_IncludeAbsoluteIgnoresBaseDir(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "abs.txt")
	writeFile(t, target, "absolute\n")
	s := newTestSession(t, filepath.Join(dir, "elsewhere"))
	var out bytes.Buffer

	_, err := s.Execute(Directive{Command: CmdInclude, Argument: target}, &out)
	require.NoError(t, err)
	assert.Equal(t, "absolute\n", out.String())
}

func TestSession_IncludeIsNotPreprocessed(t *testing.T) {
	dir := t.TempDir()
	raw := "#ignore\nkept\n#include other\n"
	writeFile(t, filepath.Join(dir, "raw.txt"), raw)
	s := newTestSession(t, dir)
	var out bytes.Buffer

	_, err := s.Execute(Directive{Command: CmdInclude, Argument: "raw.txt"}, &out)
	require.NoError(t, err)
	assert.Equal(t, raw, out.String())
	assert.False(t, s.Ignore, "directives inside included files do not run")
}

func TestSession_IncludeSoftMisses(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "file.txt"), "data\n")

	tests := []struct {
		name string
		path string
	}{
		{"missing file", "nope.txt"},
		{"missing directory", "no/such/file.txt"},
		{"file used as directory", "file.txt/child"},
		{"name too long", strings.Repeat("n", 5000)},
		{"empty path", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, dir)
			var out bytes.Buffer
			h, err := s.Execute(Directive{Command: CmdInclude, Argument: tt.path}, &out)
			require.NoError(t, err)
			assert.Equal(t, Recognized, h)
			assert.Empty(t, out.String())
			assert.Zero(t, s.Stats().Included)
		})
	}
}

func TestSession_IncludeDirectoryFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	s := newTestSession(t, dir)

	_, err := s.Execute(Directive{Command: CmdInclude, Argument: "sub"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileOpen)
	assert.ErrorIs(t, err, syscall.EISDIR)
}

// Permission failures need an unprivileged user: root bypasses mode bits.
// TestSession_IncludeDirectoryFails and TestSession_IncludeStatFails cover
// the same error kinds without that requirement.
func TestSession_IncludeUnreadableFails(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "secret.txt")
	writeFile(t, target, "secret\n")
	require.NoError(t, os.Chmod(target, 0o000))
	s := newTestSession(t, dir)

	_, err := s.Execute(Directive{Command: CmdInclude, Argument: "secret.txt"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileOpen)
	assert.ErrorIs(t, err, os.ErrPermission)

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, target, pe.Path)
}

func TestSession_IncludeStatFails(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name  string
		setup func(t *testing.T) string
		errno error
	}{
		{
			name:  "nul byte in path",
			setup: func(t *testing.T) string { return "bad\x00name" },
			errno: syscall.EINVAL,
		},
		{
			name: "symlink loop",
			setup: func(t *testing.T) string {
				if runtime.GOOS == "windows" {
					t.Skip("symlinks need privileges on windows")
				}
				a, b := filepath.Join(dir, "loop-a"), filepath.Join(dir, "loop-b")
				require.NoError(t, os.Symlink(b, a))
				require.NoError(t, os.Symlink(a, b))
				return "loop-a"
			},
			errno: syscall.ELOOP,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t)
			s := newTestSession(t, dir)
			var out bytes.Buffer

			_, err := s.Execute(Directive{Command: CmdInclude, Argument: path}, &out)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrPathQuery)
			assert.ErrorIs(t, err, tt.errno)
			assert.Empty(t, out.String())
		})
	}
}

func TestSession_IncludePathQueryFails(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	dir := t.TempDir()
	locked := filepath.Join(dir, "locked")
	writeFile(t, filepath.Join(locked, "f.txt"), "f\n")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o755) })
	s := newTestSession(t, dir)

	_, err := s.Execute(Directive{Command: CmdInclude, Argument: "locked/f.txt"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPathQuery)
	assert.ErrorIs(t, err, syscall.EACCES)
}

func TestSession_IncludeWriteFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "payload\n")
	s := newTestSession(t, dir)

	_, err := s.Execute(Directive{Command: CmdInclude, Argument: "a.txt"}, failingWriter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutputWrite)
	assert.ErrorIs(t, err, errSinkFull)
	assert.NotErrorIs(t, err, ErrFileOpen)
}

var errSinkFull = errors.New("sink full")

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errSinkFull }
