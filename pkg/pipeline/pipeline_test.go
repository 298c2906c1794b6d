package pipeline

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/matzehuels/patrolgraph/pkg/bitmap"
	"github.com/matzehuels/patrolgraph/pkg/cache"
	"github.com/matzehuels/patrolgraph/pkg/distance"
	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
	"github.com/matzehuels/patrolgraph/pkg/guard"
	"github.com/matzehuels/patrolgraph/pkg/patrol"
)

func testMap() *bitmap.Bitmap {
	return bitmap.MustParse(
		"############",
		"#....#.....#",
		"#....#.....#",
		"#..........#",
		"#....#.....#",
		"############",
	)
}

func TestValidateAndSetDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error: %v", err)
	}
	if opts.Algorithm != DefaultAlgorithm {
		t.Errorf("Algorithm = %q, want %q", opts.Algorithm, DefaultAlgorithm)
	}
	if opts.Connector != DefaultConnector {
		t.Errorf("Connector = %q, want %q", opts.Connector, DefaultConnector)
	}
	if opts.K != DefaultK || opts.Partitions != DefaultPartitions {
		t.Errorf("K = %d, Partitions = %d", opts.K, opts.Partitions)
	}
	if opts.Logger == nil {
		t.Error("Logger should default to a discard logger")
	}

	// Idempotent
	before := opts
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("second call error: %v", err)
	}
	if opts != before {
		t.Errorf("second call changed options: %+v -> %+v", before, opts)
	}
}

func TestValidateAndSetDefaultsErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"negative max distance", Options{MaxDistance: -1}},
		{"unknown algorithm", Options{Algorithm: "raycast"}},
		{"negative workers", Options{Workers: -2}},
		{"unknown connector", Options{Connector: "star"}},
		{"negative k", Options{K: -1}},
		{"negative partitions", Options{Partitions: -3}},
		{"too many partitions", Options{Partitions: MaxPartitions + 1}},
		{"weight syntax", Options{WeightExpr: "Visible *"}},
		{"weight not numeric", Options{WeightExpr: "Visible > 3"}},
		{"weight unknown field", Options{WeightExpr: "Height * 2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !perrors.Is(err, perrors.ErrCodeInvalidOption) {
				t.Errorf("error = %v, want INVALID_OPTION", err)
			}
		})
	}
}

func TestGraphKeyOpts(t *testing.T) {
	a := Options{Connector: "cycle", Partitions: 2, MaxDistance: 8}
	b := a
	b.Connector = "rknn"
	for _, o := range []*Options{&a, &b} {
		if err := o.ValidateAndSetDefaults(); err != nil {
			t.Fatal(err)
		}
	}

	keyer := cache.NewDefaultKeyer()
	ka := keyer.GraphKey("h", a.GraphKeyOpts())
	kb := keyer.GraphKey("h", b.GraphKeyOpts())
	if ka == kb {
		t.Error("different connectors should produce different keys")
	}
	if got := a.GraphKeyOpts().MaxDistance; got != 8 {
		t.Errorf("MaxDistance = %v, want 8", got)
	}
	if got := a.VisibilityOptions().Algorithm; string(got) != DefaultAlgorithm {
		t.Errorf("VisibilityOptions().Algorithm = %q", got)
	}
}

func TestWeightProgram(t *testing.T) {
	tests := []struct {
		expr    string
		env     WeightEnv
		want    float64
		wantErr bool
	}{
		{"1", WeightEnv{}, 1, false},
		{"Visible * 0.5", WeightEnv{Visible: 9}, 4.5, false},
		{"Degree > 2 ? 2 : 1", WeightEnv{Degree: 3}, 2, false},
		{"X + Y", WeightEnv{X: 2, Y: 5}, 7, false},
		{"Visible / Vertices", WeightEnv{Visible: 10, Vertices: 4}, 2.5, false},
		{"X - 10", WeightEnv{X: 1}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			w, err := CompileWeight(tt.expr)
			if err != nil {
				t.Fatalf("CompileWeight() error: %v", err)
			}
			got, err := w.Eval(tt.env)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Eval() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !perrors.Is(err, perrors.ErrCodeWeightEvaluation) {
					t.Errorf("error code = %s, want WEIGHT_EVALUATION", perrors.GetCode(err))
				}
				return
			}
			if got != tt.want {
				t.Errorf("Eval() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	walls := testMap()
	b := NewBuilder(nil, BuilderOptions{})
	defer b.Close()

	res, err := b.Build(context.Background(), walls, Options{Partitions: 2})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if res.BuildID == "" || res.MapHash != walls.Hash() {
		t.Errorf("BuildID = %q, MapHash = %q", res.BuildID, res.MapHash)
	}
	if res.Stats.FreeTiles != walls.Free() {
		t.Errorf("FreeTiles = %d, want %d", res.Stats.FreeTiles, walls.Free())
	}

	// Guards see every free tile.
	if got := guard.Coverage(res.Visibility, res.Guards).Count(); got != walls.Free() {
		t.Errorf("guards cover %d tiles, want %d", got, walls.Free())
	}

	g := res.Graph
	if g.Len() != len(res.Guards) || res.Stats.Guards != len(res.Guards) {
		t.Errorf("graph has %d vertices for %d guards", g.Len(), len(res.Guards))
	}
	for i, gd := range res.Guards {
		v, _ := g.Vertex(i)
		if v.Position.X != gd.X || v.Position.Y != gd.Y {
			t.Errorf("vertex %d at %v, guard at (%d,%d)", i, v.Position, gd.X, gd.Y)
		}
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
	if res.Stats.Edges != g.EdgeCount() {
		t.Errorf("Stats.Edges = %d, want %d", res.Stats.Edges, g.EdgeCount())
	}
	if g.Meta()[MetaVersion] == "" || g.Meta()[MetaVersion] == nil {
		t.Errorf("Meta() missing %s: %v", MetaVersion, g.Meta())
	}
	if g.Meta()[MetaBuildID] != res.BuildID || g.Meta()["connector"] != DefaultConnector {
		t.Errorf("Meta() = %v", g.Meta())
	}

	requireCover(t, res.Partitions, g.Len())
	if res.Stats.Partitions != len(res.Partitions) {
		t.Errorf("Stats.Partitions = %d, want %d", res.Stats.Partitions, len(res.Partitions))
	}
	if res.CacheInfo.VisibilityHit || res.CacheInfo.GraphHit {
		t.Errorf("CacheInfo = %+v, want no hits without a cache", res.CacheInfo)
	}
}

func TestBuildConnectors(t *testing.T) {
	for name := range ValidConnectors {
		t.Run(name, func(t *testing.T) {
			b := NewBuilder(nil, BuilderOptions{})
			res, err := b.Build(context.Background(), testMap(), Options{Connector: name})
			if err != nil {
				t.Fatalf("Build() error: %v", err)
			}
			if !res.Graph.Connected() {
				t.Errorf("%s graph is not connected: %v", name, res.Graph.Components())
			}
		})
	}
}

func TestBuildCaching(t *testing.T) {
	backend, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	b := NewBuilder(backend, BuilderOptions{})
	defer b.Close()

	ctx := context.Background()
	walls := testMap()
	opts := Options{Partitions: 2, Connector: "cycle"}

	first, err := b.Build(ctx, walls, opts)
	if err != nil {
		t.Fatalf("first Build() error: %v", err)
	}
	if first.CacheInfo.GraphHit || first.CacheInfo.VisibilityHit {
		t.Errorf("first build CacheInfo = %+v", first.CacheInfo)
	}

	second, err := b.Build(ctx, walls, opts)
	if err != nil {
		t.Fatalf("second Build() error: %v", err)
	}
	if !second.CacheInfo.GraphHit {
		t.Fatal("second build should hit the graph cache")
	}
	if second.BuildID != first.BuildID {
		t.Errorf("BuildID = %q, want cached %q", second.BuildID, first.BuildID)
	}
	if !slices.Equal(second.Graph.Edges(), first.Graph.Edges()) {
		t.Errorf("cached edges = %v, want %v", second.Graph.Edges(), first.Graph.Edges())
	}
	if len(second.Partitions) != len(first.Partitions) {
		t.Errorf("cached partitions = %v, want %v", second.Partitions, first.Partitions)
	}

	opts.Refresh = true
	third, err := b.Build(ctx, walls, opts)
	if err != nil {
		t.Fatalf("refresh Build() error: %v", err)
	}
	if third.CacheInfo.GraphHit || !third.CacheInfo.VisibilityHit {
		t.Errorf("refresh CacheInfo = %+v, want visibility hit only", third.CacheInfo)
	}
	if third.BuildID == first.BuildID {
		t.Error("refresh should produce a new build id")
	}
}

func TestBuildIgnoresGraphsFromEarlierBuilders(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	walls := testMap()
	opts := Options{Connector: "cycle"}

	build := func(reuse bool) *Result {
		t.Helper()
		backend, err := cache.NewFileCache(dir)
		if err != nil {
			t.Fatal(err)
		}
		b := NewBuilder(backend, BuilderOptions{ReuseVisibility: reuse})
		defer b.Close()
		res, err := b.Build(ctx, walls, opts)
		if err != nil {
			t.Fatalf("Build() error: %v", err)
		}
		return res
	}

	first := build(false)
	second := build(false)
	if second.CacheInfo.GraphHit || second.CacheInfo.VisibilityHit {
		t.Errorf("fresh builder CacheInfo = %+v, want no hits", second.CacheInfo)
	}
	if second.BuildID == first.BuildID {
		t.Error("fresh builder served the earlier builder's graph")
	}

	third := build(true)
	if !third.CacheInfo.GraphHit || third.BuildID != second.BuildID {
		t.Errorf("reusing builder CacheInfo = %+v, build id %q, want graph %q",
			third.CacheInfo, third.BuildID, second.BuildID)
	}
}

func TestBuildKeepsOtherNamespaces(t *testing.T) {
	ctx := context.Background()
	backend, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	walls := testMap()
	opts := Options{Connector: "cycle"}

	lab := NewBuilder(backend, BuilderOptions{Keyer: cache.NewScopedKeyer(nil, "lab:")})
	depot := NewBuilder(backend, BuilderOptions{Keyer: cache.NewScopedKeyer(nil, "depot:")})

	first, err := lab.Build(ctx, walls, opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := depot.Build(ctx, walls, opts); err != nil {
		t.Fatal(err)
	}
	again, err := lab.Build(ctx, walls, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !again.CacheInfo.GraphHit || again.BuildID != first.BuildID {
		t.Errorf("another namespace's first build dropped this graph: %+v", again.CacheInfo)
	}
}

func TestBuildWeights(t *testing.T) {
	b := NewBuilder(nil, BuilderOptions{})
	res, err := b.Build(context.Background(), testMap(), Options{WeightExpr: "Visible"})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	for _, v := range res.Graph.Vertices() {
		want := float64(res.Visibility.At(v.Position.X, v.Position.Y).Count())
		if v.Weight != want {
			t.Errorf("vertex %d weight = %v, want %v", v.ID, v.Weight, want)
		}
	}
}

func TestBuildPartitionsSeparateRooms(t *testing.T) {
	walls := bitmap.MustParse(
		"....#.....",
		"....#.###.",
		"....#.#...",
	)
	b := NewBuilder(nil, BuilderOptions{})
	res, err := b.Build(context.Background(), walls, Options{Partitions: 2})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(res.Partitions) != 2 {
		t.Fatalf("Partitions = %v, want one per room", res.Partitions)
	}
	requireCover(t, res.Partitions, res.Graph.Len())
	for _, p := range res.Partitions {
		left := res.Graph.Vertices()[p.VertexIDs[0]].Position.X < 4
		for _, id := range p.VertexIDs {
			if (res.Graph.Vertices()[id].Position.X < 4) != left {
				t.Errorf("partition %d mixes both rooms: %v", p.ID, p.VertexIDs)
			}
		}
	}
}

func TestBuildErrors(t *testing.T) {
	b := NewBuilder(nil, BuilderOptions{})
	ctx := context.Background()

	if _, err := b.Build(ctx, nil, Options{}); !perrors.Is(err, perrors.ErrCodeInvalidInput) {
		t.Errorf("nil map error = %v, want INVALID_INPUT", err)
	}
	if _, err := b.Build(ctx, bitmap.MustParse("##", "##"), Options{}); !perrors.Is(err, perrors.ErrCodeInvalidMap) {
		t.Errorf("walled map error = %v, want INVALID_MAP", err)
	}
	if _, err := b.Build(ctx, testMap(), Options{Connector: "star"}); !perrors.Is(err, perrors.ErrCodeInvalidOption) {
		t.Errorf("bad connector error = %v, want INVALID_OPTION", err)
	}

	// Two rooms without a door cannot be toured.
	split := bitmap.MustParse(
		"..#..",
		"..#..",
	)
	_, err := b.Build(ctx, split, Options{Connector: "cycle"})
	if !errors.Is(err, distance.ErrDisconnected) {
		t.Errorf("disconnected cycle error = %v, want ErrDisconnected", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := b.Build(cancelled, testMap(), Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled build error = %v, want context.Canceled", err)
	}
}

func TestPartitionGraphSingletons(t *testing.T) {
	dist, err := distance.FromRows([][]int{{0, 3}, {3, 0}})
	if err != nil {
		t.Fatal(err)
	}
	parts, err := partitionGraph(dist, 4)
	if err != nil {
		t.Fatalf("partitionGraph() error: %v", err)
	}
	want := []patrol.Partition{{ID: 0, VertexIDs: []int{0}}, {ID: 1, VertexIDs: []int{1}}}
	if len(parts) != 2 || !slices.Equal(parts[0].VertexIDs, want[0].VertexIDs) || !slices.Equal(parts[1].VertexIDs, want[1].VertexIDs) {
		t.Errorf("partitionGraph() = %v, want %v", parts, want)
	}

	parts, err = partitionGraph(dist, 1)
	if err != nil || len(parts) != 1 || len(parts[0].VertexIDs) != 2 {
		t.Errorf("partitionGraph(1) = %v, %v", parts, err)
	}
}

func requireCover(t *testing.T, parts []patrol.Partition, n int) {
	t.Helper()
	seen := make([]bool, n)
	for _, p := range parts {
		for _, id := range p.VertexIDs {
			if id < 0 || id >= n || seen[id] {
				t.Fatalf("partitions %v are not a disjoint cover of %d vertices", parts, n)
			}
			seen[id] = true
		}
	}
	if slices.Contains(seen, false) {
		t.Fatalf("partitions %v miss vertices", parts)
	}
}
