package gpu

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/model-viewer/internal/mesh"
)

func TestCheckImageCounts(t *testing.T) {
	require.NoError(t, checkImageCounts(3, map[string]int{
		"framebuffers":    3,
		"uniform buffers": 3,
		"descriptor sets": 3,
	}))

	err := checkImageCounts(3, map[string]int{
		"framebuffers":    3,
		"uniform buffers": 2,
		"descriptor sets": 3,
	})
	require.Error(t, err)
	require.True(t, errors.HasAssertionFailure(err))
	require.Contains(t, err.Error(), "uniform buffers")
}

func TestVertexInputMatchesMeshLayout(t *testing.T) {
	bindings := vertexBindingDescriptions()
	require.Len(t, bindings, 1)
	require.Equal(t, mesh.VertexStride, bindings[0].Stride)

	attributes := vertexAttributeDescriptions()
	require.Len(t, attributes, 3)
	for i, attribute := range attributes {
		require.Equal(t, i, attribute.Location)
		require.Less(t, attribute.Offset, mesh.VertexStride)
	}
	require.Equal(t, core1_0.FormatR32G32SignedFloat, attributes[2].Format)
}

func TestDeviceContextRefusesDestroyWithDependents(t *testing.T) {
	dc := &DeviceContext{}
	dc.Retain()
	dc.Retain()

	err := dc.Destroy()
	require.Error(t, err)
	require.True(t, errors.HasAssertionFailure(err))

	dc.Release()
	dc.Release()
	dc.Release()
	require.Zero(t, dc.Dependents())
	require.NoError(t, dc.Destroy())
}
