package diagram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeevan-health/triage/pkg/schema"
)

func TestRenderASCII(t *testing.T) {
	m, err := Build(feverProtocol(), []schema.NodeID{"1", "2"})
	require.NoError(t, err)

	out := RenderASCII(m)
	assert.True(t, strings.HasPrefix(out, "=== Fever ===\n"))
	assert.Contains(t, out, "1. Fever>103?")
	assert.Contains(t, out, "2. High: ER")
	assert.Contains(t, out, "[HIGH]")
	assert.Contains(t, out, "[LOW]")
	assert.Contains(t, out, "(visited)")
	assert.Contains(t, out, "1 --yes--> 2 *")
	assert.Contains(t, out, "1 --no--> 3\n")
}

func TestMakeBox_Width(t *testing.T) {
	box := makeBox(&Node{ID: "1", Label: "Fever?", Kind: NodeKindQuestion})
	require.Len(t, box.lines, 3)
	assert.Equal(t, len("1. Fever?")+4, box.width)
	for _, line := range box.lines {
		assert.Equal(t, box.width, len([]rune(line)))
	}
}
