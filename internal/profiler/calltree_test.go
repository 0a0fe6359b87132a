package profiler

import (
	"bytes"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// profileBuilder assembles synthetic CPU profiles.
type profileBuilder struct {
	prof  *profile.Profile
	funcs map[string]*profile.Function
}

func newProfileBuilder() *profileBuilder {
	return &profileBuilder{
		prof: &profile.Profile{
			SampleType: []*profile.ValueType{
				{Type: "samples", Unit: "count"},
				{Type: "cpu", Unit: "nanoseconds"},
			},
			PeriodType: &profile.ValueType{Type: "cpu", Unit: "nanoseconds"},
			Period:     10_000_000,
		},
		funcs: make(map[string]*profile.Function),
	}
}

func (b *profileBuilder) function(name string, startLine int64) *profile.Function {
	if fn, ok := b.funcs[name]; ok {
		return fn
	}
	fn := &profile.Function{
		ID:        uint64(len(b.prof.Function) + 1),
		Name:      name,
		Filename:  "/src/" + name + ".go",
		StartLine: startLine,
	}
	b.prof.Function = append(b.prof.Function, fn)
	b.funcs[name] = fn
	return fn
}

// location takes lines innermost first, as pprof stores them.
func (b *profileBuilder) location(lines ...profile.Line) *profile.Location {
	loc := &profile.Location{
		ID:      uint64(len(b.prof.Location) + 1),
		Address: 0x1000 + uint64(len(b.prof.Location))*0x10,
		Line:    lines,
	}
	b.prof.Location = append(b.prof.Location, loc)
	return loc
}

func (b *profileBuilder) line(name string, startLine, line int64) profile.Line {
	return profile.Line{Function: b.function(name, startLine), Line: line}
}

// sample takes locations leaf first, as pprof stores them.
func (b *profileBuilder) sample(count int64, locs ...*profile.Location) {
	b.prof.Sample = append(b.prof.Sample, &profile.Sample{
		Location: locs,
		Value:    []int64{count, count * b.prof.Period},
	})
}

func childNames(n CallTreeNode) []string {
	var names []string
	for _, c := range n.Children() {
		names = append(names, c.Name())
	}
	return names
}

func TestBuildCallTree(t *testing.T) {
	b := newProfileBuilder()
	mainAt12 := b.location(b.line("main.main", 10, 12))
	mainAt13 := b.location(b.line("main.main", 10, 13))
	work := b.location(b.line("main.work", 20, 22))
	other := b.location(b.line("main.other", 30, 31))

	b.sample(3, work, mainAt12)
	b.sample(1, mainAt13)
	b.sample(2, other, mainAt12)
	b.sample(4, work, mainAt13)
	b.sample(0, other, mainAt13)

	root := BuildCallTree(b.prof)

	assert.Equal(t, "(root)", root.Name())
	assert.Zero(t, root.HitCount())
	require.Equal(t, []string{"main.main"}, childNames(root))

	mainNode := root.Children()[0]
	assert.Equal(t, "/src/main.main.go", mainNode.ResourceName())
	assert.Equal(t, 10, mainNode.Line())
	assert.Equal(t, int64(1), mainNode.HitCount())
	assert.Equal(t, map[int]int64{13: 1}, mainNode.HitLines())
	require.Equal(t, []string{"main.work", "main.other"}, childNames(mainNode), "children keep first-seen order")

	workNode := mainNode.Children()[0]
	assert.Equal(t, int64(7), workNode.HitCount())
	assert.Equal(t, map[int]int64{22: 7}, workNode.HitLines())
	assert.Empty(t, workNode.Children())

	otherNode := mainNode.Children()[1]
	assert.Equal(t, int64(2), otherNode.HitCount())
}

func TestBuildCallTree_InlinedFrames(t *testing.T) {
	b := newProfileBuilder()
	// One location: inner is inlined into outer.
	loc := b.location(
		b.line("pkg.inner", 40, 41),
		b.line("pkg.outer", 50, 55),
	)
	b.sample(5, loc)

	root := BuildCallTree(b.prof)

	require.Equal(t, []string{"pkg.outer"}, childNames(root))
	outer := root.Children()[0]
	require.Equal(t, []string{"pkg.inner"}, childNames(outer))
	inner := outer.Children()[0]
	assert.Equal(t, int64(5), inner.HitCount())
	assert.Equal(t, map[int]int64{41: 5}, inner.HitLines())
	assert.Zero(t, outer.HitCount())
}

func TestBuildCallTree_UnsymbolizedLocation(t *testing.T) {
	b := newProfileBuilder()
	loc := b.location()
	loc.Mapping = &profile.Mapping{ID: 1, File: "/usr/lib/libc.so.6"}
	b.prof.Mapping = append(b.prof.Mapping, loc.Mapping)
	b.sample(2, loc)

	root := BuildCallTree(b.prof)

	require.Len(t, root.Children(), 1)
	n := root.Children()[0]
	assert.Equal(t, "0x1000", n.Name())
	assert.Equal(t, "/usr/lib/libc.so.6", n.ResourceName())
	assert.Equal(t, int64(2), n.HitCount())
	assert.Empty(t, n.HitLines())
}

func TestBuildCallTree_CallUIDStable(t *testing.T) {
	b := newProfileBuilder()
	a := b.location(b.line("main.a", 1, 2))
	c := b.location(b.line("main.c", 5, 6))
	shared := b.location(b.line("main.shared", 10, 11))
	b.sample(1, shared, a)
	b.sample(1, shared, c)

	root := BuildCallTree(b.prof)

	require.Len(t, root.Children(), 2)
	underA := root.Children()[0].Children()[0]
	underC := root.Children()[1].Children()[0]
	assert.Equal(t, "main.shared", underA.Name())
	assert.Equal(t, underA.CallUID(), underC.CallUID())
	assert.NotEqual(t, root.Children()[0].CallUID(), root.Children()[1].CallUID())

	again := BuildCallTree(b.prof)
	assert.Equal(t, underA.CallUID(), again.Children()[0].Children()[0].CallUID())
}

func TestBuildCallTree_SampleTypeFallback(t *testing.T) {
	b := newProfileBuilder()
	b.prof.SampleType = []*profile.ValueType{{Type: "cpu", Unit: "nanoseconds"}}
	loc := b.location(b.line("main.main", 1, 3))
	b.prof.Sample = append(b.prof.Sample, &profile.Sample{Location: []*profile.Location{loc}, Value: []int64{7}})

	root := BuildCallTree(b.prof)

	require.Len(t, root.Children(), 1)
	assert.Equal(t, int64(7), root.Children()[0].HitCount())
}

func TestBuildCallTree_EmptyStackCountsOnRoot(t *testing.T) {
	b := newProfileBuilder()
	b.sample(3)

	root := BuildCallTree(b.prof)

	assert.Equal(t, int64(3), root.HitCount())
	assert.Empty(t, root.Children())
}

func TestBuildCallTree_Nil(t *testing.T) {
	root := BuildCallTree(nil)

	assert.Equal(t, "(root)", root.Name())
	assert.Empty(t, root.Children())
}

func TestBuildCallTree_RoundTripThroughEncoding(t *testing.T) {
	b := newProfileBuilder()
	b.sample(2, b.location(b.line("main.work", 20, 21)), b.location(b.line("main.main", 10, 11)))

	var buf bytes.Buffer
	require.NoError(t, b.prof.Write(&buf))
	parsed, err := profile.Parse(&buf)
	require.NoError(t, err)

	root := BuildCallTree(parsed)

	require.Equal(t, []string{"main.main"}, childNames(root))
	assert.Equal(t, []string{"main.work"}, childNames(root.Children()[0]))
	assert.Equal(t, int64(2), root.Children()[0].Children()[0].HitCount())
}
