package camera

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// UniformSize is the byte size of the camera uniform block in the tile and post shaders.
const UniformSize = 80

// GPUCameraUniform mirrors the WGSL CameraUniform block: a column-major view-projection matrix
// at offset 0 and the camera position at offset 64, padded to 80 bytes.
type GPUCameraUniform struct {
	ViewProj       mgl32.Mat4
	CameraPosition mgl32.Vec3
}

// Marshal packs the uniform into little-endian bytes for upload.
//
// Returns:
//   - []byte: UniformSize bytes
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, UniformSize)
	put := func(off int, v float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
	}
	for i, v := range g.ViewProj {
		put(i*4, v)
	}
	for i, v := range g.CameraPosition {
		put(64+i*4, v)
	}
	return buf
}
