package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenesplit/command"
	"scenesplit/command/video"
	"scenesplit/models"
)

const mb = 1 << 20

func seg(name string, size int64) models.Segment {
	return models.Segment{Name: name, Path: "/work/split/" + name, Size: size}
}

func encodeFactory(seg models.Segment) command.Command {
	return video.NewEncodeBuilder(seg, "/work/encode")
}

func names(segs []models.Segment) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.Name
	}
	return out
}

func fiveSegments() []models.Segment {
	return []models.Segment{
		seg("001.mkv", 9*mb),
		seg("002.mkv", 1*mb),
		seg("003.mkv", 5*mb),
		seg("004.mkv", 7*mb),
		seg("005.mkv", 3*mb),
	}
}

func TestOrder_SizeDescending(t *testing.T) {
	ordered := Order(fiveSegments())
	assert.Equal(t, []string{"001.mkv", "004.mkv", "003.mkv", "005.mkv", "002.mkv"}, names(ordered))

	for i := 1; i < len(ordered); i++ {
		assert.GreaterOrEqual(t, ordered[i-1].Size, ordered[i].Size)
	}
}

func TestOrder_DoesNotMutateInput(t *testing.T) {
	in := fiveSegments()
	_ = Order(in)
	assert.Equal(t, []string{"001.mkv", "002.mkv", "003.mkv", "004.mkv", "005.mkv"}, names(in))
}

func TestOrder_TieBreakIsReproducible(t *testing.T) {
	in := []models.Segment{
		seg("c.mkv", 10), seg("a.mkv", 10), seg("d.mkv", 20), seg("b.mkv", 10),
	}
	first := names(Order(in))
	assert.Equal(t, []string{"d.mkv", "a.mkv", "b.mkv", "c.mkv"}, first)

	// Same input in a different order yields the same queue.
	shuffled := []models.Segment{in[3], in[1], in[0], in[2]}
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, names(Order(shuffled)))
	}
}

func TestBuild_ExcludeSmallestByDefault(t *testing.T) {
	plan, err := Build(fiveSegments(), TailExcludeSmallest, encodeFactory)
	require.NoError(t, err)

	assert.Equal(t, []string{"001.mkv", "004.mkv", "003.mkv", "005.mkv"}, names(plan.Segments()))
	require.Len(t, plan.Excluded, 1)
	assert.Equal(t, "002.mkv", plan.Excluded[0].Name)

	assert.Equal(t, "/work/encode/001.mkv", plan.Items[0].OutputPath())
}

func TestBuild_EmptyPolicyMeansDefault(t *testing.T) {
	plan, err := Build(fiveSegments(), "", encodeFactory)
	require.NoError(t, err)
	assert.Len(t, plan.Items, 4)
	assert.Len(t, plan.Excluded, 1)
}

func TestBuild_Include(t *testing.T) {
	plan, err := Build(fiveSegments(), TailInclude, encodeFactory)
	require.NoError(t, err)

	assert.Equal(t, []string{"001.mkv", "004.mkv", "003.mkv", "005.mkv", "002.mkv"}, names(plan.Segments()))
	assert.Empty(t, plan.Excluded)
}

func TestBuild_ExcludesOnlyOneOfEqualSmallest(t *testing.T) {
	in := []models.Segment{seg("001.mkv", 50), seg("002.mkv", 5), seg("003.mkv", 5)}
	plan, err := Build(in, TailExcludeSmallest, encodeFactory)
	require.NoError(t, err)

	assert.Equal(t, []string{"001.mkv", "002.mkv"}, names(plan.Segments()))
	require.Len(t, plan.Excluded, 1)
	assert.Equal(t, "003.mkv", plan.Excluded[0].Name)
}

func TestBuild_SingleSegmentNeverExcluded(t *testing.T) {
	plan, err := Build([]models.Segment{seg("001.mkv", 42)}, TailExcludeSmallest, encodeFactory)
	require.NoError(t, err)
	assert.Len(t, plan.Items, 1)
	assert.Empty(t, plan.Excluded)
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(fiveSegments(), TailInclude, nil)
	assert.Error(t, err)

	_, err = Build(nil, TailInclude, encodeFactory)
	assert.Error(t, err)

	_, err = Build(fiveSegments(), TailPolicy("drop-last"), encodeFactory)
	assert.ErrorContains(t, err, "invalid tail policy")

	dup := []models.Segment{seg("001.mkv", 1), seg("001.mkv", 2)}
	_, err = Build(dup, TailInclude, encodeFactory)
	assert.Error(t, err)

	_, err = Build(fiveSegments(), TailInclude, func(models.Segment) command.Command { return nil })
	assert.ErrorContains(t, err, "no command built")
}

func TestParseTailPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    TailPolicy
		wantErr bool
	}{
		{"", TailExcludeSmallest, false},
		{"exclude-smallest", TailExcludeSmallest, false},
		{" Include ", TailInclude, false},
		{"none", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTailPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
