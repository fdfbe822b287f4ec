// Mesh (.mdl) format parser and encoder.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/follower-catcher/pkg/math"
)

// Mesh format errors.
var (
	ErrTruncatedMesh      = errors.New("truncated mesh data")
	ErrInvalidMeshCount   = errors.New("invalid mesh count")
	ErrInvalidVertexCount = errors.New("invalid vertex count")
	ErrInvalidIndexCount  = errors.New("invalid index count")
	ErrIndexOutOfRange    = errors.New("index out of range")
)

// Limits guarding against corrupt counts before allocating.
const (
	maxMeshParts    = 1024
	maxMeshVertices = 1 << 20
	maxMeshIndices  = 3 << 20
)

// Vertex is a position plus texture coordinate, 20 bytes on disk.
type Vertex struct {
	Position [3]float32
	TexCoord [2]float32
}

// VertexSize is the packed size of a Vertex in bytes.
const VertexSize = 20

// MeshPart is one vertex/index set of a mesh.
type MeshPart struct {
	Vertices []Vertex
	Indices  []uint32
	// Inverted holds Indices with each triangle's winding reversed,
	// for drawing under a mirroring transform.
	Inverted []uint32
}

// TriangleCount returns the number of triangles in the part.
func (p *MeshPart) TriangleCount() int {
	return len(p.Indices) / 3
}

// Mesh is a parsed .mdl file.
type Mesh struct {
	Bounds math.BBox
	Parts  []MeshPart
}

// VertexCount returns the number of vertices across all parts.
func (m *Mesh) VertexCount() int {
	n := 0
	for i := range m.Parts {
		n += len(m.Parts[i].Vertices)
	}
	return n
}

// IndexCount returns the number of indices across all parts.
func (m *Mesh) IndexCount() int {
	n := 0
	for i := range m.Parts {
		n += len(m.Parts[i].Indices)
	}
	return n
}

// ParseMesh parses mesh data from a byte slice.
func ParseMesh(data []byte) (*Mesh, error) {
	r := bytes.NewReader(data)
	mesh := &Mesh{}

	var box [6]float32
	if err := binary.Read(r, binary.LittleEndian, &box); err != nil {
		return nil, fmt.Errorf("%w: bounding box", ErrTruncatedMesh)
	}
	mesh.Bounds = math.BBox{
		Min: math.Vec3{X: box[0], Y: box[1], Z: box[2]},
		Max: math.Vec3{X: box[3], Y: box[4], Z: box[5]},
	}

	var partCount int32
	if err := binary.Read(r, binary.LittleEndian, &partCount); err != nil {
		return nil, fmt.Errorf("%w: mesh count", ErrTruncatedMesh)
	}
	if partCount < 0 || partCount > maxMeshParts {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMeshCount, partCount)
	}

	mesh.Parts = make([]MeshPart, partCount)
	for i := range mesh.Parts {
		if err := parseMeshPart(r, &mesh.Parts[i]); err != nil {
			return nil, fmt.Errorf("parsing mesh %d: %w", i, err)
		}
	}

	return mesh, nil
}

func parseMeshPart(r *bytes.Reader, part *MeshPart) error {
	var vertexCount int32
	if err := binary.Read(r, binary.LittleEndian, &vertexCount); err != nil {
		return fmt.Errorf("%w: vertex count", ErrTruncatedMesh)
	}
	if vertexCount < 0 || vertexCount > maxMeshVertices {
		return fmt.Errorf("%w: %d", ErrInvalidVertexCount, vertexCount)
	}
	if int64(r.Len()) < int64(vertexCount)*VertexSize {
		return fmt.Errorf("%w: %d vertices", ErrTruncatedMesh, vertexCount)
	}
	part.Vertices = make([]Vertex, vertexCount)
	if err := binary.Read(r, binary.LittleEndian, part.Vertices); err != nil {
		return fmt.Errorf("%w: vertices", ErrTruncatedMesh)
	}

	var indexCount int32
	if err := binary.Read(r, binary.LittleEndian, &indexCount); err != nil {
		return fmt.Errorf("%w: index count", ErrTruncatedMesh)
	}
	if indexCount < 0 || indexCount > maxMeshIndices || indexCount%3 != 0 {
		return fmt.Errorf("%w: %d", ErrInvalidIndexCount, indexCount)
	}
	if int64(r.Len()) < int64(indexCount)*4 {
		return fmt.Errorf("%w: %d indices", ErrTruncatedMesh, indexCount)
	}
	raw := make([]int32, indexCount)
	if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
		return fmt.Errorf("%w: indices", ErrTruncatedMesh)
	}

	part.Indices = make([]uint32, indexCount)
	for i, idx := range raw {
		if idx < 0 || idx >= vertexCount {
			return fmt.Errorf("%w: index %d = %d, %d vertices", ErrIndexOutOfRange, i, idx, vertexCount)
		}
		part.Indices[i] = uint32(idx)
	}
	part.Inverted = SwapWinding(part.Indices)
	return nil
}

// SwapWinding returns a copy of indices with the first two indices of every
// triangle exchanged, reversing its winding order. A trailing partial
// triangle is copied unchanged.
func SwapWinding(indices []uint32) []uint32 {
	out := make([]uint32, len(indices))
	copy(out, indices)
	for i := 0; i+2 < len(out); i += 3 {
		out[i], out[i+1] = out[i+1], out[i]
	}
	return out
}

// ParseMeshFile parses a mesh file from disk.
func ParseMeshFile(path string) (*Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mesh file: %w", err)
	}
	return ParseMesh(data)
}

// EncodeMesh writes m in the .mdl layout. Inverted index buffers are derived
// data and are not written.
func EncodeMesh(w io.Writer, m *Mesh) error {
	var buf bytes.Buffer
	le := binary.LittleEndian

	box := [6]float32{
		m.Bounds.Min.X, m.Bounds.Min.Y, m.Bounds.Min.Z,
		m.Bounds.Max.X, m.Bounds.Max.Y, m.Bounds.Max.Z,
	}
	binary.Write(&buf, le, box)
	binary.Write(&buf, le, int32(len(m.Parts)))

	for i := range m.Parts {
		p := &m.Parts[i]
		if len(p.Indices)%3 != 0 {
			return fmt.Errorf("encoding mesh %d: %w: %d", i, ErrInvalidIndexCount, len(p.Indices))
		}
		binary.Write(&buf, le, int32(len(p.Vertices)))
		binary.Write(&buf, le, p.Vertices)
		binary.Write(&buf, le, int32(len(p.Indices)))
		for _, idx := range p.Indices {
			if int(idx) >= len(p.Vertices) {
				return fmt.Errorf("encoding mesh %d: %w: %d", i, ErrIndexOutOfRange, idx)
			}
			binary.Write(&buf, le, int32(idx))
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// Cube returns a single-part axis-aligned cube of the given edge length
// centered on the origin: 8 vertices and 12 triangles.
func Cube(size float32) *Mesh {
	h := size / 2
	corners := [8][3]float32{
		{-h, -h, -h}, {h, -h, -h}, {h, h, -h}, {-h, h, -h},
		{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h},
	}
	uvs := [8][2]float32{
		{0, 1}, {1, 1}, {1, 0}, {0, 0},
		{1, 1}, {0, 1}, {0, 0}, {1, 0},
	}

	part := MeshPart{Vertices: make([]Vertex, 8)}
	for i := range corners {
		part.Vertices[i] = Vertex{Position: corners[i], TexCoord: uvs[i]}
	}
	part.Indices = []uint32{
		0, 2, 1, 0, 3, 2, // back
		4, 5, 6, 4, 6, 7, // front
		0, 4, 7, 0, 7, 3, // left
		1, 2, 6, 1, 6, 5, // right
		3, 7, 6, 3, 6, 2, // top
		0, 1, 5, 0, 5, 4, // bottom
	}
	part.Inverted = SwapWinding(part.Indices)

	return &Mesh{
		Bounds: math.BBox{
			Min: math.Vec3{X: -h, Y: -h, Z: -h},
			Max: math.Vec3{X: h, Y: h, Z: h},
		},
		Parts: []MeshPart{part},
	}
}
