package env_test

import (
	"bytes"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"go.followtheprocess.codes/httprun/internal/env"
	"go.followtheprocess.codes/log"
	"go.followtheprocess.codes/test"
)

// writeFiles creates a directory containing files (name -> contents) and returns its path.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, contents := range files {
		err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644)
		test.Ok(t, err)
	}
	return dir
}

func discard() *log.Logger {
	return log.New(io.Discard)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		files map[string]string   // Files to create in the search directory
		want  map[string]env.Vars // Expected environments
		name  string              // Name of the test case
		names []string            // Expected environment names, in order
		order env.MergeOrder      // Merge order to use
	}{
		{
			name:  "empty dir",
			files: nil,
			names: nil,
			want:  map[string]env.Vars{},
		},
		{
			name: "single json",
			files: map[string]string{
				"http.env.json": `{"prod": {"HOST": "api.example.com"}}`,
			},
			names: []string{"prod"},
			want: map[string]env.Vars{
				"prod": {"HOST": "api.example.com"},
			},
		},
		{
			name: "declaration order preserved",
			files: map[string]string{
				"env.json": `{"zeta": {"A": "1"}, "alpha": {"A": "2"}, "mid": {"A": "3"}}`,
			},
			names: []string{"zeta", "alpha", "mid"},
			want: map[string]env.Vars{
				"zeta":  {"A": "1"},
				"alpha": {"A": "2"},
				"mid":   {"A": "3"},
			},
		},
		{
			name: "later file overwrites whole environment",
			files: map[string]string{
				"a.env.json": `{"dev": {"HOST": "localhost", "PORT": "8080"}, "prod": {"HOST": "a"}}`,
				"b.env.json": `{"dev": {"HOST": "127.0.0.1"}}`,
			},
			names: []string{"dev", "prod"},
			want: map[string]env.Vars{
				"dev":  {"HOST": "127.0.0.1"},
				"prod": {"HOST": "a"},
			},
		},
		{
			name: "non string values",
			files: map[string]string{
				"env.json": `{"dev": {"PORT": 8080, "DEBUG": true, "NOTHING": null}}`,
			},
			names: []string{"dev"},
			want: map[string]env.Vars{
				"dev": {"PORT": "8080", "DEBUG": "true", "NOTHING": "null"},
			},
		},
		{
			name: "default synthesised from dotenv",
			files: map[string]string{
				".env": "TOKEN=abc\nHOST=localhost",
			},
			names: []string{"default"},
			want: map[string]env.Vars{
				"default": {"TOKEN": "abc", "HOST": "localhost"},
			},
		},
		{
			name: "empty dotenv still synthesises default",
			files: map[string]string{
				".env": "# nothing here",
			},
			names: []string{"default"},
			want: map[string]env.Vars{
				"default": {},
			},
		},
		{
			name: "dotenv files merge key by key",
			files: map[string]string{
				".env":       "A=1\nB=1",
				"local.env":  "B=2\nC=2",
				"unrelated":  "A=nope",
				"notenv.txt": "A=nope",
			},
			names: []string{"default"},
			want: map[string]env.Vars{
				"default": {"A": "1", "B": "2", "C": "2"},
			},
		},
		{
			name: "named wins",
			files: map[string]string{
				"http.env.json": `{"dev": {"HOST": "localhost"}, "prod": {"HOST": "api.example.com", "TOKEN": "prod"}}`,
				".env":          "TOKEN=shared\nUSER=me",
			},
			order: env.NamedWins,
			names: []string{"dev", "prod"},
			want: map[string]env.Vars{
				"dev":  {"HOST": "localhost", "TOKEN": "shared", "USER": "me"},
				"prod": {"HOST": "api.example.com", "TOKEN": "prod", "USER": "me"},
			},
		},
		{
			name: "default wins",
			files: map[string]string{
				"http.env.json": `{"dev": {"HOST": "localhost"}, "prod": {"HOST": "api.example.com", "TOKEN": "prod"}}`,
				".env":          "TOKEN=shared\nUSER=me",
			},
			order: env.DefaultWins,
			names: []string{"dev", "prod"},
			want: map[string]env.Vars{
				"dev":  {"HOST": "localhost", "TOKEN": "shared", "USER": "me"},
				"prod": {"HOST": "api.example.com", "TOKEN": "shared", "USER": "me"},
			},
		},
		{
			name: "malformed json skipped",
			files: map[string]string{
				"a.env.json": `{"dev": {"HOST": "localhost"}}`,
				"b.env.json": `{"prod": {"HOST": `,
			},
			names: []string{"dev"},
			want: map[string]env.Vars{
				"dev": {"HOST": "localhost"},
			},
		},
		{
			name: "top level array skipped",
			files: map[string]string{
				"env.json": `["dev"]`,
				".env":     "A=1",
			},
			names: []string{"default"},
			want: map[string]env.Vars{
				"default": {"A": "1"},
			},
		},
		{
			name: "non object environment skipped",
			files: map[string]string{
				"env.json": `{"dev": "oops", "prod": {"A": "1"}}`,
			},
			names: []string{"prod"},
			want: map[string]env.Vars{
				"prod": {"A": "1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeFiles(t, tt.files)

			loader := env.NewLoader(discard(), env.WithMergeOrder(tt.order))
			set := loader.Load(dir)

			test.EqualFunc(t, set.Names(), tt.names, slices.Equal, test.Context("environment names mismatch"))
			test.Equal(t, set.Len(), len(tt.want))

			for name, want := range tt.want {
				got, ok := set.Get(name)
				test.True(t, ok, test.Context("missing environment %q", name))
				test.EqualFunc(t, got, want, maps.Equal, test.Context("environment %q mismatch", name))
			}
		})
	}
}

func TestLoadMultipleDirs(t *testing.T) {
	cwd := writeFiles(t, map[string]string{
		"http.env.json": `{"dev": {"HOST": "cwd"}}`,
		".env":          "A=cwd\nB=cwd",
	})
	docs := writeFiles(t, map[string]string{
		"http.env.json": `{"dev": {"HOST": "docs"}, "prod": {"HOST": "docs"}}`,
		".env":          "B=docs",
	})

	loader := env.NewLoader(discard())

	// Duplicates and missing directories are fine
	set := loader.Load(cwd, docs, cwd+string(filepath.Separator), filepath.Join(cwd, "missing"))

	test.EqualFunc(t, set.Names(), []string{"dev", "prod"}, slices.Equal)

	dev, _ := set.Get("dev")
	test.EqualFunc(t, dev, env.Vars{"HOST": "docs", "A": "cwd", "B": "docs"}, maps.Equal)
}

func TestLoadNothing(t *testing.T) {
	loader := env.NewLoader(discard())
	set := loader.Load(filepath.Join(t.TempDir(), "does", "not", "exist"))

	test.Equal(t, set.Len(), 0)

	var zero env.Set
	test.Equal(t, zero.Len(), 0)
	_, ok := zero.Get("anything")
	test.True(t, !ok)
}

func TestLoadErrorsObservable(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"bad.env.json": `not json`,
		"env.json":     `{"dev": {"A": "1"}}`,
	})

	logs := &bytes.Buffer{}

	var skipped []*env.LoadError
	loader := env.NewLoader(log.New(logs), env.OnError(func(err *env.LoadError) {
		skipped = append(skipped, err)
	}))

	set := loader.Load(dir)
	test.Equal(t, set.Len(), 1)

	test.Equal(t, len(skipped), 1)
	test.Equal(t, skipped[0].Path, filepath.Join(dir, "bad.env.json"))
	test.True(t, strings.Contains(skipped[0].Error(), "invalid JSON"))

	test.True(t, strings.Contains(logs.String(), "Skipping environment file"), test.Context("got logs: %s", logs.String()))
}

func TestLoadFreshEachTime(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"env.json": `{"dev": {"A": "1"}}`,
	})

	loader := env.NewLoader(discard())
	first := loader.Load(dir)

	err := os.WriteFile(filepath.Join(dir, "env.json"), []byte(`{"dev": {"A": "2"}}`), 0o644)
	test.Ok(t, err)

	second := loader.Load(dir)

	a, _ := first.Get("dev")
	b, _ := second.Get("dev")
	test.Equal(t, a["A"], "1")
	test.Equal(t, b["A"], "2")
}

func TestSearchDirs(t *testing.T) {
	tests := []struct {
		name string   // Name of the test case
		cwd  string   // Working directory
		file string   // Document path
		want []string // Expected dirs
	}{
		{
			name: "stdin",
			cwd:  "/work",
			file: "",
			want: []string{"/work"},
		},
		{
			name: "relative",
			cwd:  "/work",
			file: "api/users.http",
			want: []string{"/work", "/work/api"},
		},
		{
			name: "absolute",
			cwd:  "/work",
			file: "/elsewhere/users.http",
			want: []string{"/work", "/elsewhere"},
		},
		{
			name: "same dir",
			cwd:  "/work",
			file: "users.http",
			want: []string{"/work", "/work"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := env.SearchDirs(filepath.FromSlash(tt.cwd), filepath.FromSlash(tt.file))

			want := make([]string, 0, len(tt.want))
			for _, dir := range tt.want {
				want = append(want, filepath.FromSlash(dir))
			}

			test.EqualFunc(t, got, want, slices.Equal)
		})
	}
}

func TestMergeOrderString(t *testing.T) {
	test.Equal(t, env.NamedWins.String(), "named-wins")
	test.Equal(t, env.DefaultWins.String(), "default-wins")
	test.Equal(t, env.MergeOrder(42).String(), "MergeOrder(42)")
}
