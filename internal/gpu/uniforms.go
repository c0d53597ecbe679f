package gpu

import (
	"math"
	"time"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/core1_0"
)

type UniformBufferObject struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

const uniformBufferSize = int(unsafe.Sizeof(UniformBufferObject{}))

const (
	rotationDegreesPerSecond = 45
	fieldOfViewDegrees       = 45
	nearPlane                = 0.1
	farPlane                 = 10.0
)

var (
	eye    = mgl32.Vec3{2, 2, 2}
	center = mgl32.Vec3{0, 0, 0}
	up     = mgl32.Vec3{0, 0, 1}
)

// ComputeUniforms spins the model about Z and looks at it from a fixed eye.
func ComputeUniforms(elapsed time.Duration, extent core1_0.Extent2D) UniformBufferObject {
	seconds := elapsed.Seconds()
	angle := float32(math.Mod(seconds*rotationDegreesPerSecond, 360))

	aspectRatio := float32(1)
	if extent.Width > 0 && extent.Height > 0 {
		aspectRatio = float32(extent.Width) / float32(extent.Height)
	}

	return UniformBufferObject{
		Model: mgl32.HomogRotate3D(mgl32.DegToRad(angle), up),
		View:  mgl32.LookAtV(eye, center, up),
		Proj:  perspective(mgl32.DegToRad(fieldOfViewDegrees), aspectRatio, nearPlane, farPlane),
	}
}

// perspective maps view depth [near, far] to [0, 1] and flips Y, since Vulkan
// clip space points Y down.
func perspective(fovy, aspect, near, far float32) mgl32.Mat4 {
	f := float32(1 / math.Tan(float64(fovy)/2))
	fmn := far - near

	proj := mgl32.Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, -far / fmn, -1,
		0, 0, -(far * near) / fmn, 0,
	}
	proj[5] *= -1
	return proj
}
