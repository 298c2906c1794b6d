package cli

import (
	"bytes"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/matzehuels/patrolgraph/pkg/bitmap"
	"github.com/matzehuels/patrolgraph/pkg/cache"
	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
	"github.com/matzehuels/patrolgraph/pkg/patrol"
	"github.com/matzehuels/patrolgraph/pkg/pipeline"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		cfg, err := loadConfig("")
		if err != nil {
			t.Fatalf("loadConfig: %v", err)
		}
		if cfg.Cache.Backend != backendFile {
			t.Errorf("backend = %q, want %q", cfg.Cache.Backend, backendFile)
		}
	})

	t.Run("full", func(t *testing.T) {
		path := writeFile(t, "patrol.toml", `
[build]
max_distance = 12.5
connector = "cycle"
k = 5
partitions = 3
weight_expr = "Visible / 10"

[cache]
backend = "redis"
redis_addr = "localhost:6380"
redis_db = 2
reuse = true
`)
		cfg, err := loadConfig(path)
		if err != nil {
			t.Fatalf("loadConfig: %v", err)
		}
		b := cfg.Build
		if b.MaxDistance != 12.5 || b.Connector != "cycle" || b.K != 5 || b.Partitions != 3 || b.WeightExpr != "Visible / 10" {
			t.Errorf("build = %+v", b)
		}
		c := cfg.Cache
		if c.Backend != backendRedis || c.RedisAddr != "localhost:6380" || c.RedisDB != 2 || !c.Reuse {
			t.Errorf("cache = %+v", c)
		}
	})

	t.Run("backend defaults to file", func(t *testing.T) {
		path := writeFile(t, "patrol.toml", "[build]\nk = 2\n")
		cfg, err := loadConfig(path)
		if err != nil {
			t.Fatalf("loadConfig: %v", err)
		}
		if cfg.Cache.Backend != backendFile {
			t.Errorf("backend = %q, want %q", cfg.Cache.Backend, backendFile)
		}
	})
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    perrors.Code
	}{
		{"unknown key", "[build]\nconectr = \"cycle\"\n", perrors.ErrCodeInvalidOption},
		{"bad backend", "[cache]\nbackend = \"memcached\"\n", perrors.ErrCodeInvalidOption},
		{"malformed", "[build\nk = ", perrors.ErrCodeInvalidOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeFile(t, "patrol.toml", tt.content))
			if !perrors.Is(err, tt.code) {
				t.Errorf("loadConfig() error = %v, want code %s", err, tt.code)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		if err == nil {
			t.Error("expected error for missing config")
		}
	})
}

func TestMergeOptions(t *testing.T) {
	var flagged pipeline.Options
	flags := pflag.NewFlagSet("build", pflag.ContinueOnError)
	bindOptionFlags(flags, &flagged)
	if err := flags.Parse([]string{"--connector", "all-pairs", "-n", "4"}); err != nil {
		t.Fatal(err)
	}

	base := pipeline.Options{Connector: "cycle", K: 7, Partitions: 2, WeightExpr: "X"}
	got := mergeOptions(base, flagged, flags)

	if got.Connector != "all-pairs" {
		t.Errorf("Connector = %q, want flag value", got.Connector)
	}
	if got.Partitions != 4 {
		t.Errorf("Partitions = %d, want flag value 4", got.Partitions)
	}
	if got.K != 7 {
		t.Errorf("K = %d, unset flag should keep config value 7", got.K)
	}
	if got.WeightExpr != "X" {
		t.Errorf("WeightExpr = %q, unset flag should keep config value", got.WeightExpr)
	}
}

func TestNewKeyer(t *testing.T) {
	opts := cache.VisibilityKeyOpts{Algorithm: "exhaustive"}
	plain := newKeyer(cacheConfig{}).VisibilityKey("abc", opts)
	scoped := newKeyer(cacheConfig{Namespace: "warehouse"}).VisibilityKey("abc", opts)
	if scoped != "warehouse:"+plain {
		t.Errorf("scoped key = %q, want prefix on %q", scoped, plain)
	}
}

func TestClearCacheNamespace(t *testing.T) {
	ctx := t.Context()
	dir := t.TempDir()
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	opts := cache.GraphKeyOpts{Connector: "rknn"}
	own := newKeyer(cacheConfig{Namespace: "lab"}).GraphKey("h", opts)
	other := newKeyer(cacheConfig{Namespace: "depot"}).GraphKey("h", opts)
	for _, k := range []string{own, other} {
		if err := fc.Set(ctx, k, []byte("g"), 0); err != nil {
			t.Fatal(err)
		}
	}

	if err := clearCache(ctx, cacheConfig{Backend: backendFile, Dir: dir, Namespace: "lab"}); err != nil {
		t.Fatalf("clearCache: %v", err)
	}
	if _, hit, _ := fc.Get(ctx, own); hit {
		t.Error("namespace entry survived clear")
	}
	if _, hit, _ := fc.Get(ctx, other); !hit {
		t.Error("clear removed another namespace's entry")
	}

	if err := clearCache(ctx, cacheConfig{Backend: backendFile, Dir: dir}); err != nil {
		t.Fatalf("clearCache: %v", err)
	}
	if _, hit, _ := fc.Get(ctx, other); hit {
		t.Error("clear without namespace should remove everything")
	}
}

func TestParseOrigin(t *testing.T) {
	tests := []struct {
		in      string
		want    image.Point
		wantErr bool
	}{
		{"3,4", image.Pt(3, 4), false},
		{" 0 , 12 ", image.Pt(0, 12), false},
		{"-1,2", image.Pt(-1, 2), false},
		{"3", image.Point{}, true},
		{"a,b", image.Point{}, true},
		{"", image.Point{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseOrigin(tt.in)
			if tt.wantErr {
				if !perrors.Is(err, perrors.ErrCodeInvalidOption) {
					t.Errorf("parseOrigin(%q) error = %v, want INVALID_OPTION", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseOrigin(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseOrigin(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestVisibilityGrid(t *testing.T) {
	walls := bitmap.MustParse(
		"#####",
		"#...#",
		"#####",
	)
	a := bitmap.MustParse(
		".....",
		".###.",
		".....",
	)
	origin := image.Pt(1, 1)

	if got, want := visibilityGrid(walls, origin, a, nil), "#####\n#@**#\n#####"; got != want {
		t.Errorf("single grid:\n%s\nwant:\n%s", got, want)
	}

	a2 := bitmap.MustParse(
		".....",
		".##..",
		".....",
	)
	b2 := bitmap.MustParse(
		".....",
		".#.#.",
		".....",
	)
	if got, want := visibilityGrid(walls, origin, a2, b2), "#####\n#@ef#\n#####"; got != want {
		t.Errorf("compare grid:\n%s\nwant:\n%s", got, want)
	}
}

func TestDefaultOutput(t *testing.T) {
	tests := map[string]string{
		"maps/floor1.txt": "maps/floor1.graph.json",
		"floor":           "floor.graph.json",
		"a.b/c.map":       "a.b/c.graph.json",
	}
	for in, want := range tests {
		if got := defaultOutput(in); got != want {
			t.Errorf("defaultOutput(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPartitionTable(t *testing.T) {
	g := patrol.New([]image.Point{{0, 0}, {1, 0}, {2, 0}})
	parts := []patrol.Partition{
		{ID: 0, VertexIDs: []int{0, 1}},
		{ID: 1, VertexIDs: []int{2}},
	}
	out := partitionTable(g, parts)
	for _, want := range []string{"Territory", "Members", "0 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("partition table missing %q:\n%s", want, out)
		}
	}
}

func TestStatsLine(t *testing.T) {
	res := &pipeline.Result{Stats: pipeline.Stats{Guards: 4, Edges: 5, TotalTime: 12 * time.Millisecond}}
	line := statsLine(res)
	for _, want := range []string{"4 guards", "5 edges", "fresh"} {
		if !strings.Contains(line, want) {
			t.Errorf("statsLine() = %q, missing %q", line, want)
		}
	}
	if strings.Contains(line, "partitions") {
		t.Errorf("statsLine() = %q, zero counts should be omitted", line)
	}

	res.CacheInfo.GraphHit = true
	if line := statsLine(res); !strings.Contains(line, "cached") {
		t.Errorf("statsLine() = %q, want cached marker", line)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("0123456789", 5); got != "0123…" {
		t.Errorf("truncate() = %q, want %q", got, "0123…")
	}
}

func TestRootCommand(t *testing.T) {
	root := New(&bytes.Buffer{}, log.WarnLevel).RootCommand()
	want := map[string]bool{"build": false, "visibility": false, "cache": false, "completion": false}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("root command missing %q", name)
		}
	}
}

func TestBuildCommand(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	dir := t.TempDir()
	input := filepath.Join(dir, "floor.txt")
	mapText := strings.Join([]string{
		"############",
		"#....#.....#",
		"#....#.....#",
		"#..........#",
		"#....#.....#",
		"############",
	}, "\n")
	if err := os.WriteFile(input, []byte(mapText), 0o644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "out.json")
	geo := filepath.Join(dir, "out.geojson")

	root := New(&bytes.Buffer{}, log.WarnLevel).RootCommand()
	root.SetArgs([]string{"build", input, "--no-cache", "-o", output, "--geojson", geo, "--connector", "cycle"})
	if err := root.Execute(); err != nil {
		t.Fatalf("build: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var doc struct {
		Vertices []json.RawMessage `json:"vertices"`
		Edges    []json.RawMessage `json:"edges"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(doc.Vertices) == 0 {
		t.Error("graph has no vertices")
	}
	if _, err := os.Stat(geo); err != nil {
		t.Errorf("geojson not written: %v", err)
	}
}

func TestBuildCommandMissingMap(t *testing.T) {
	root := New(&bytes.Buffer{}, log.WarnLevel).RootCommand()
	root.SetArgs([]string{"build", filepath.Join(t.TempDir(), "missing.txt"), "--no-cache"})
	root.SetErr(&bytes.Buffer{})
	err := root.Execute()
	if !perrors.Is(err, perrors.ErrCodeFileNotFound) {
		t.Errorf("build error = %v, want FILE_NOT_FOUND", err)
	}
}
