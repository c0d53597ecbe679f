package mesh

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

const quadOBJ = `o quad
v -0.5 -0.5 0
v 0.5 -0.5 0
v 0.5 0.5 0
v -0.5 0.5 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
f 1/1 2/2 3/3 4/4
`

// Two triangles sharing an edge, written with duplicated position and
// texcoord entries. Identical attribute values must collapse.
const duplicatedOBJ = `o tris
v 0 0 0
v 1 0 0
v 1 1 0
v 0 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 0
vt 1 1
vt 0 1
f 1/1 2/2 3/3
f 4/4 5/5 6/6
`

// Same position, different texture coordinates: must stay distinct.
const seamOBJ = `o seam
v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vt 1 0
vt 0 1
vt 0.5 0.5
f 1/1 2/2 3/3
f 1/4 3/3 2/2
`

func decodeString(t *testing.T, src string) *Mesh {
	m, err := Decode(strings.NewReader(src), nil)
	require.NoError(t, err)
	return m
}

func TestDecodeQuadFan(t *testing.T) {
	m := decodeString(t, quadOBJ)
	require.Len(t, m.Vertices, 4)
	require.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, m.Indices)

	for _, v := range m.Vertices {
		require.Equal(t, mgl32.Vec3{1, 1, 1}, v.Color)
	}

	// V is flipped
	require.Equal(t, mgl32.Vec2{0, 1}, m.Vertices[0].TexCoord)
	require.Equal(t, mgl32.Vec2{1, 0}, m.Vertices[2].TexCoord)
}

func TestDecodeDedupsByValue(t *testing.T) {
	m := decodeString(t, duplicatedOBJ)
	require.Len(t, m.Vertices, 4)
	require.Len(t, m.Indices, 6)
	require.Equal(t, m.Indices[0], m.Indices[3])
	require.Equal(t, m.Indices[2], m.Indices[4])
}

func TestDecodeKeepsSeams(t *testing.T) {
	m := decodeString(t, seamOBJ)
	require.Len(t, m.Vertices, 4)
	require.NotEqual(t, m.Indices[0], m.Indices[3])
	require.Equal(t, m.Indices[1], m.Indices[5])
	require.Equal(t, m.Indices[2], m.Indices[4])
}

func TestIndicesResolveToIdenticalVertices(t *testing.T) {
	m := decodeString(t, duplicatedOBJ)
	seen := map[Vertex]uint32{}
	for _, idx := range m.Indices {
		v := m.Vertices[idx]
		if prev, ok := seen[v]; ok {
			require.Equal(t, prev, idx)
		}
		seen[v] = idx
	}
	require.Len(t, seen, len(m.Vertices))
}

func TestLoadTwiceIsIdentical(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.obj")
	require.NoError(t, os.WriteFile(path, []byte(duplicatedOBJ+quadOBJ), 0o644))

	first, err := LoadFile(path, "")
	require.NoError(t, err)
	second, err := LoadFile(path, "")
	require.NoError(t, err)

	require.Equal(t, first.Vertices, second.Vertices)
	require.Equal(t, first.Indices, second.Indices)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.obj"), "")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecodeEmpty(t *testing.T) {
	_, err := Decode(strings.NewReader("o empty\nv 0 0 0\n"), nil)
	require.Error(t, err)
}

func TestDecodeFaceOutOfRange(t *testing.T) {
	var err error
	require.NotPanics(t, func() {
		_, err = Decode(strings.NewReader("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 9\n"), nil)
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "vertex 9 of 3")
}

func TestVertexLayout(t *testing.T) {
	require.Equal(t, 32, VertexStride)
	require.Equal(t, 0, PositionOffset)
	require.Equal(t, 12, ColorOffset)
	require.Equal(t, 24, TexCoordOffset)
}
