package gpu

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/core1_0"
)

func project(proj mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	clip := proj.Mul4x1(p.Vec4(1))
	return clip.Vec3().Mul(1 / clip[3])
}

func TestUniformsAtStart(t *testing.T) {
	ubo := ComputeUniforms(0, core1_0.Extent2D{Width: 1920, Height: 1080})
	require.True(t, ubo.Model.ApproxEqual(mgl32.Ident4()))

	// the eye maps to the view-space origin
	origin := ubo.View.Mul4x1(mgl32.Vec4{2, 2, 2, 1})
	require.InDelta(t, 0, origin.Vec3().Len(), 1e-5)
}

func TestUniformsRotateAboutZ(t *testing.T) {
	ubo := ComputeUniforms(2*time.Second, core1_0.Extent2D{Width: 800, Height: 600})

	// 2s at 45 degrees per second is a quarter turn
	x := ubo.Model.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	require.InDelta(t, 0, x[0], 1e-5)
	require.InDelta(t, 1, x[1], 1e-5)
	require.InDelta(t, 0, x[2], 1e-5)
}

func TestProjectionFlipsY(t *testing.T) {
	ubo := ComputeUniforms(0, core1_0.Extent2D{Width: 800, Height: 600})
	require.Less(t, ubo.Proj[5], float32(0))

	// above the view axis lands in the upper half, which is negative Y in
	// Vulkan clip space
	above := project(ubo.Proj, mgl32.Vec3{0, 1, -5})
	require.Less(t, above[1], float32(0))

	require.InDelta(t, -ubo.Proj[5]/(800.0/600.0), ubo.Proj[0], 1e-5)
}

func TestProjectionDepthRange(t *testing.T) {
	proj := perspective(mgl32.DegToRad(45), 1, nearPlane, farPlane)

	require.InDelta(t, 0, project(proj, mgl32.Vec3{0, 0, -nearPlane})[2], 1e-5)
	require.InDelta(t, 1, project(proj, mgl32.Vec3{0, 0, -farPlane})[2], 1e-5)
}

func TestUniformsDegenerateExtent(t *testing.T) {
	ubo := ComputeUniforms(0, core1_0.Extent2D{})
	require.InDelta(t, -ubo.Proj[5], ubo.Proj[0], 1e-6)
}

func TestUniformBufferSize(t *testing.T) {
	require.Equal(t, 3*16*4, uniformBufferSize)
}
