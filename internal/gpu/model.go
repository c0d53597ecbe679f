package gpu

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/model-viewer/internal/mesh"
)

// Model holds the device-local vertex and index buffers of one mesh.
type Model struct {
	device *DeviceContext

	vertexCount int
	indexCount  int

	vertexBuffer       core1_0.Buffer
	vertexBufferMemory core1_0.DeviceMemory
	indexBuffer        core1_0.Buffer
	indexBufferMemory  core1_0.DeviceMemory
}

func NewModel(device *DeviceContext, m *mesh.Mesh) (*Model, error) {
	if len(m.Vertices) == 0 || len(m.Indices) == 0 {
		return nil, errors.New("model: mesh is empty")
	}

	model := &Model{
		device:      device,
		vertexCount: len(m.Vertices),
		indexCount:  len(m.Indices),
	}

	var err error
	model.vertexBuffer, model.vertexBufferMemory, err = device.CreateDeviceLocalBuffer(m.Vertices, core1_0.BufferUsageVertexBuffer)
	if err != nil {
		return nil, errors.Wrap(err, "model: vertex buffer")
	}

	model.indexBuffer, model.indexBufferMemory, err = device.CreateDeviceLocalBuffer(m.Indices, core1_0.BufferUsageIndexBuffer)
	if err != nil {
		model.destroyBuffers()
		return nil, errors.Wrap(err, "model: index buffer")
	}

	device.Retain()
	return model, nil
}

// Bind binds the vertex buffer at binding 0 and the 32-bit index buffer.
func (m *Model) Bind(buffer core1_0.CommandBuffer) {
	buffer.CmdBindVertexBuffers(0, []core1_0.Buffer{m.vertexBuffer}, []int{0})
	buffer.CmdBindIndexBuffer(m.indexBuffer, 0, core1_0.IndexTypeUInt32)
}

func (m *Model) VertexCount() int {
	return m.vertexCount
}

func (m *Model) IndexCount() int {
	return m.indexCount
}

func (m *Model) destroyBuffers() {
	if m.indexBuffer != nil {
		m.indexBuffer.Destroy(nil)
		m.indexBuffer = nil
	}

	if m.indexBufferMemory != nil {
		m.indexBufferMemory.Free(nil)
		m.indexBufferMemory = nil
	}

	if m.vertexBuffer != nil {
		m.vertexBuffer.Destroy(nil)
		m.vertexBuffer = nil
	}

	if m.vertexBufferMemory != nil {
		m.vertexBufferMemory.Free(nil)
		m.vertexBufferMemory = nil
	}
}

func (m *Model) Destroy() {
	if m.device == nil {
		return
	}

	m.destroyBuffers()
	m.device.Release()
	m.device = nil
}
