package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func lookup(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestFromEnv(t *testing.T) {
	testCases := []struct {
		desc string
		env  map[string]string
		want Env
	}{
		{
			desc: "defaults",
			want: Env{UseTrax: true, Folder: "."},
		},
		{
			desc: "folder protocol",
			env: map[string]string{
				VOT_USE_TRAX:     "0",
				VOT_MULTI_OBJECT: "yes",
				VOT_FOLDER:       "/tmp/seq",
				VOT_LOG_LEVEL:    "debug",
			},
			want: Env{MultiObject: true, Folder: "/tmp/seq", LogLevel: "debug"},
		},
		{
			desc: "socket and garbage bool",
			env:  map[string]string{TRAX_SOCKET: " 9090 ", VOT_USE_TRAX: "maybe"},
			want: Env{UseTrax: true, Socket: "9090", Folder: "."},
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			if diff := cmp.Diff(tC.want, FromEnv(lookup(tC.env))); diff != "" {
				t.Errorf("FromEnv() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("VOT_CONFIG_TEST_KEY=from-file\n"), 0o644))
	t.Setenv("VOT_CONFIG_TEST_KEY", "")
	os.Unsetenv("VOT_CONFIG_TEST_KEY")
	require.NoError(t, LoadDotEnv(path))
	require.Equal(t, "from-file", os.Getenv("VOT_CONFIG_TEST_KEY"))
}

func TestLoadFile(t *testing.T) {
	f, err := LoadFile("")
	require.NoError(t, err)
	require.Equal(t, Default(), f)

	t.Setenv("VOT_TEST_SCORE", "0.5")
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ncc:
  min_score: ${VOT_TEST_SCORE}
  hash_distance: 10
cache_size: 4
`), 0o644))
	f, err = LoadFile(path)
	require.NoError(t, err)
	want := Default()
	want.NCC.MinScore = 0.5
	want.NCC.HashDistance = 10
	want.CacheSize = 4
	require.Equal(t, want, f)
}

func TestLoadFileErrors(t *testing.T) {
	testCases := []struct {
		desc string
		body string
	}{
		{desc: "unknown key", body: "ncc:\n  speed: 3\n"},
		{desc: "window", body: "ncc:\n  window_scale: 0.5\n"},
		{desc: "score", body: "ncc:\n  min_score: 2\n"},
		{desc: "cache", body: "cache_size: -1\n"},
		{desc: "syntax", body: "ncc: [\n"},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tracker.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tC.body), 0o644))
			_, err := LoadFile(path)
			require.True(t, errors.Is(err, ErrConfig), "%v", err)
		})
	}

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
