package material

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUTileUniform is the GPU-aligned uniform shared by the foreground and background tile shaders.
// Matches the WGSL TileUniform struct in shader/assets/tile.wgsl.
// Size: 80 bytes (mat4x4<f32> + vec4<f32>).
type GPUTileUniform struct {
	Model  [16]float32 // offset  0: model matrix, column-major
	Params [4]float32  // offset 64: opacity, blur radius in texels, texel size, flip v
}

// Size returns the size of the GPUTileUniform struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUTileUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUTileUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload.
func (g *GPUTileUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Model[i]))
	}
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.Params[i]))
	}
	return buf
}

// GPUPostProcessParams is the GPU-aligned uniform of the post-process fragment shader.
// Matches the WGSL PostParams struct in shader/assets/postprocess.wgsl.
// Size: 16 bytes (one vec4<f32>).
type GPUPostProcessParams struct {
	Params [4]float32 // offset 0: distortion, vignette offset, vignette darkness, unused
}

// Size returns the size of the GPUPostProcessParams struct in bytes.
func (g *GPUPostProcessParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUPostProcessParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload.
func (g *GPUPostProcessParams) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Params[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Params[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Params[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Params[3]))
	return buf
}
