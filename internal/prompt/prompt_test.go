package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDeterministic(t *testing.T) {
	first, err := Build("uppercase each line", "a\nb\nc", 2)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := Build("uppercase each line", "a\nb\nc", 2)
		require.NoError(t, err)
		assert.Equal(t, first, again, "repeated build %d differed", i)
	}
}

func TestBuildPreamble(t *testing.T) {
	rendered, err := Build("count the words", "", 0)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rendered, "# You are part of a tool that creates Risor code"))
	assert.Contains(t, rendered, "`data`")
	assert.Contains(t, rendered, "`result`")
	assert.True(t, strings.HasSuffix(rendered, "# count the words:\n"))
	assert.NotContains(t, rendered, PreviewMarker)
}

func TestBuildPreviewBlock(t *testing.T) {
	rendered, err := Build("sum the second column", "x 1\ny 2\nz 3\n", 2)
	require.NoError(t, err)

	assert.Contains(t, rendered, "# First 2 lines of `data`:")
	assert.Contains(t, rendered, "#>x 1\n#>y 2")
	assert.NotContains(t, rendered, "#>z 3", "lines beyond the preview count must not appear")
}

func TestBuildPreviewShorterInput(t *testing.T) {
	rendered, err := Build("task", "only\ntwo", 10)
	require.NoError(t, err)

	assert.Contains(t, rendered, "#>only\n#>two")
	assert.Equal(t, 2, strings.Count(rendered, PreviewMarker), "every available line appears exactly once")
}

func TestBuildPreviewOrder(t *testing.T) {
	rendered, err := Build("task", "first\nsecond\nthird", 3)
	require.NoError(t, err)

	firstIdx := strings.Index(rendered, "#>first")
	secondIdx := strings.Index(rendered, "#>second")
	thirdIdx := strings.Index(rendered, "#>third")
	require.NotEqual(t, -1, firstIdx)
	require.NotEqual(t, -1, secondIdx)
	require.NotEqual(t, -1, thirdIdx)
	assert.Less(t, firstIdx, secondIdx)
	assert.Less(t, secondIdx, thirdIdx)
}

func TestBuildNoPreviewForEmptyInput(t *testing.T) {
	rendered, err := Build("task", "", 5)
	require.NoError(t, err)
	assert.NotContains(t, rendered, "First 5 lines")
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name         string
		task         string
		previewLines int
	}{
		{name: "empty task", task: "", previewLines: 0},
		{name: "whitespace task", task: "   \n", previewLines: 0},
		{name: "negative preview", task: "task", previewLines: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.task, "input", tt.previewLines)
			assert.Error(t, err)
		})
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "trailing newline", input: "a\nb\n", want: []string{"a", "b"}},
		{name: "no trailing newline", input: "a\nb", want: []string{"a", "b"}},
		{name: "crlf", input: "a\r\nb\r\n", want: []string{"a", "b"}},
		{name: "single line", input: "a", want: []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitLines(tt.input))
		})
	}
}
