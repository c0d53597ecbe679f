package gpu

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/model-viewer/internal/ui"
)

func TestClipSpaceVertices(t *testing.T) {
	data := ui.DrawData{
		DisplayWidth:  800,
		DisplayHeight: 600,
		Vertices: []ui.Vertex{
			{Position: mgl32.Vec2{0, 0}, TexCoord: mgl32.Vec2{0.25, 0.5}, Color: ui.ColorText},
			{Position: mgl32.Vec2{800, 600}},
			{Position: mgl32.Vec2{400, 300}},
		},
		Indices: []uint32{0, 1, 2},
	}

	vertices := clipSpaceVertices(data)
	require.Len(t, vertices, 3)

	require.InDelta(t, -1, vertices[0].Position[0], 1e-6)
	require.InDelta(t, -1, vertices[0].Position[1], 1e-6)
	require.InDelta(t, 1, vertices[1].Position[0], 1e-6)
	require.InDelta(t, 1, vertices[1].Position[1], 1e-6)
	require.InDelta(t, 0, vertices[2].Position[0], 1e-6)
	require.InDelta(t, 0, vertices[2].Position[1], 1e-6)

	// Only positions move.
	require.Equal(t, data.Vertices[0].TexCoord, vertices[0].TexCoord)
	require.Equal(t, data.Vertices[0].Color, vertices[0].Color)
	require.Equal(t, mgl32.Vec2{0, 0}, data.Vertices[0].Position)
}

func TestUIVertexEncodesAtStride(t *testing.T) {
	encoded, err := encodeData([]ui.Vertex{{}, {}})
	require.NoError(t, err)
	require.Len(t, encoded, 2*ui.VertexStride)
}
