package diagram

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeevan-health/triage/pkg/schema"
)

func assertPNG(t *testing.T, png []byte) {
	t.Helper()
	require.True(t, len(png) > 8, "PNG should be larger than header")
	assert.Equal(t, byte(0x89), png[0])
	assert.Equal(t, byte('P'), png[1])
	assert.Equal(t, byte('N'), png[2])
	assert.Equal(t, byte('G'), png[3])
}

func TestRenderImage(t *testing.T) {
	m, err := Build(feverProtocol(), []schema.NodeID{"1", "2"})
	require.NoError(t, err)

	png, err := RenderImage(context.Background(), m)
	require.NoError(t, err)
	assertPNG(t, png)
}

func TestRenderImage_Gaps(t *testing.T) {
	m, err := Build(gappyProtocol(), nil)
	require.NoError(t, err)

	png, err := RenderImage(context.Background(), m)
	require.NoError(t, err)
	assertPNG(t, png)
}
