package mesh

import (
	"io"
	"os"
	"strings"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is the interleaved layout consumed by the model pipeline. It is
// comparable, so it doubles as the exact-equality dedup key.
type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
	TexCoord mgl32.Vec2
}

const (
	VertexStride   = int(unsafe.Sizeof(Vertex{}))
	PositionOffset = int(unsafe.Offsetof(Vertex{}.Position))
	ColorOffset    = int(unsafe.Offsetof(Vertex{}.Color))
	TexCoordOffset = int(unsafe.Offsetof(Vertex{}.TexCoord))
)

var white = mgl32.Vec3{1, 1, 1}

type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// LoadFile decodes a Wavefront OBJ file. materialPath may be empty.
func LoadFile(objPath, materialPath string) (*Mesh, error) {
	meshFile, err := os.Open(objPath)
	if err != nil {
		return nil, errors.Wrap(err, "load mesh")
	}
	defer meshFile.Close()

	var matReader io.Reader = strings.NewReader("")
	if materialPath != "" {
		matFile, err := os.Open(materialPath)
		if err != nil {
			return nil, errors.Wrap(err, "load mesh material")
		}
		defer matFile.Close()
		matReader = matFile
	}

	m, err := Decode(meshFile, matReader)
	if err != nil {
		return nil, errors.Wrapf(err, "load mesh %s", objPath)
	}
	return m, nil
}

func Decode(objReader, matReader io.Reader) (*Mesh, error) {
	if matReader == nil {
		matReader = strings.NewReader("")
	}

	decoder, err := obj.DecodeReader(objReader, matReader)
	if err != nil {
		return nil, err
	}

	b := newBuilder()
	for _, decodedObj := range decoder.Objects {
		for _, face := range decodedObj.Faces {
			// Triangulate polygon faces as a fan around the first corner.
			for i := 2; i < len(face.Vertices); i++ {
				for _, corner := range [3]int{0, i - 1, i} {
					v, err := vertexAt(decoder, face, corner)
					if err != nil {
						return nil, errors.Wrapf(err, "object %q", decodedObj.Name)
					}
					b.add(v)
				}
			}
		}
	}

	if len(b.mesh.Indices) == 0 {
		return nil, errors.New("mesh has no faces")
	}

	return b.mesh, nil
}

func vertexAt(decoder *obj.Decoder, face obj.Face, corner int) (Vertex, error) {
	vertInd := face.Vertices[corner]
	if vertInd < 0 || vertInd*3+2 >= len(decoder.Vertices) {
		return Vertex{}, errors.Newf("face references vertex %d of %d", vertInd+1, len(decoder.Vertices)/3)
	}

	vert := Vertex{
		Position: mgl32.Vec3{
			decoder.Vertices[vertInd*3],
			decoder.Vertices[vertInd*3+1],
			decoder.Vertices[vertInd*3+2],
		},
		Color: white,
	}

	if corner < len(face.Uvs) {
		uvInd := face.Uvs[corner]
		if uvInd >= 0 && uvInd*2+1 < len(decoder.Uvs) {
			// Image origin is top-left.
			vert.TexCoord = mgl32.Vec2{
				decoder.Uvs[uvInd*2],
				1.0 - decoder.Uvs[uvInd*2+1],
			}
		}
	}

	return vert, nil
}

type builder struct {
	mesh   *Mesh
	unique map[Vertex]uint32
}

func newBuilder() *builder {
	return &builder{
		mesh:   &Mesh{},
		unique: make(map[Vertex]uint32),
	}
}

func (b *builder) add(v Vertex) {
	index, exists := b.unique[v]
	if !exists {
		index = uint32(len(b.mesh.Vertices))
		b.mesh.Vertices = append(b.mesh.Vertices, v)
		b.unique[v] = index
	}
	b.mesh.Indices = append(b.mesh.Indices, index)
}
