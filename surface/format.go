// Package surface computes the CPU-side byte layout of GPU surfaces.
//
// Formats are identified by their DXGI numeric value so descriptors coming
// straight out of Direct3D can be used without translation. The set of
// formats is closed: anything not listed here is reported as unsupported
// instead of being guessed.
package surface

import "fmt"

// Format is a DXGI_FORMAT value.
type Format uint32

// Class groups formats by the rule used to derive their layout.
type Class int

const (
	ClassUnknown Class = iota
	ClassLinear
	ClassPacked
	ClassPlanar420
	ClassPlanar411
	ClassBlockCompressed
)

func (c Class) String() string {
	switch c {
	case ClassLinear:
		return "linear"
	case ClassPacked:
		return "packed"
	case ClassPlanar420:
		return "planar-4:2:0"
	case ClassPlanar411:
		return "planar-4:1:1"
	case ClassBlockCompressed:
		return "block-compressed"
	default:
		return "unknown"
	}
}

const (
	FormatUnknown                  Format = 0
	FormatR32G32B32A32Typeless     Format = 1
	FormatR32G32B32A32Float        Format = 2
	FormatR32G32B32A32Uint         Format = 3
	FormatR32G32B32A32Sint         Format = 4
	FormatR32G32B32Typeless        Format = 5
	FormatR32G32B32Float           Format = 6
	FormatR32G32B32Uint            Format = 7
	FormatR32G32B32Sint            Format = 8
	FormatR16G16B16A16Typeless     Format = 9
	FormatR16G16B16A16Float        Format = 10
	FormatR16G16B16A16Unorm        Format = 11
	FormatR16G16B16A16Uint         Format = 12
	FormatR16G16B16A16Snorm        Format = 13
	FormatR16G16B16A16Sint         Format = 14
	FormatR32G32Typeless           Format = 15
	FormatR32G32Float              Format = 16
	FormatR32G32Uint               Format = 17
	FormatR32G32Sint               Format = 18
	FormatR32G8X24Typeless         Format = 19
	FormatD32FloatS8X24Uint        Format = 20
	FormatR32FloatX8X24Typeless    Format = 21
	FormatX32TypelessG8X24Uint     Format = 22
	FormatR10G10B10A2Typeless      Format = 23
	FormatR10G10B10A2Unorm         Format = 24
	FormatR10G10B10A2Uint          Format = 25
	FormatR11G11B10Float           Format = 26
	FormatR8G8B8A8Typeless         Format = 27
	FormatR8G8B8A8Unorm            Format = 28
	FormatR8G8B8A8UnormSRGB        Format = 29
	FormatR8G8B8A8Uint             Format = 30
	FormatR8G8B8A8Snorm            Format = 31
	FormatR8G8B8A8Sint             Format = 32
	FormatR16G16Typeless           Format = 33
	FormatR16G16Float              Format = 34
	FormatR16G16Unorm              Format = 35
	FormatR16G16Uint               Format = 36
	FormatR16G16Snorm              Format = 37
	FormatR16G16Sint               Format = 38
	FormatR32Typeless              Format = 39
	FormatD32Float                 Format = 40
	FormatR32Float                 Format = 41
	FormatR32Uint                  Format = 42
	FormatR32Sint                  Format = 43
	FormatR24G8Typeless            Format = 44
	FormatD24UnormS8Uint           Format = 45
	FormatR24UnormX8Typeless       Format = 46
	FormatX24TypelessG8Uint        Format = 47
	FormatR8G8Typeless             Format = 48
	FormatR8G8Unorm                Format = 49
	FormatR8G8Uint                 Format = 50
	FormatR8G8Snorm                Format = 51
	FormatR8G8Sint                 Format = 52
	FormatR16Typeless              Format = 53
	FormatR16Float                 Format = 54
	FormatD16Unorm                 Format = 55
	FormatR16Unorm                 Format = 56
	FormatR16Uint                  Format = 57
	FormatR16Snorm                 Format = 58
	FormatR16Sint                  Format = 59
	FormatR8Typeless               Format = 60
	FormatR8Unorm                  Format = 61
	FormatR8Uint                   Format = 62
	FormatR8Snorm                  Format = 63
	FormatR8Sint                   Format = 64
	FormatA8Unorm                  Format = 65
	FormatR1Unorm                  Format = 66
	FormatR9G9B9E5SharedExp        Format = 67
	FormatR8G8B8G8Unorm            Format = 68
	FormatG8R8G8B8Unorm            Format = 69
	FormatBC1Typeless              Format = 70
	FormatBC1Unorm                 Format = 71
	FormatBC1UnormSRGB             Format = 72
	FormatBC2Typeless              Format = 73
	FormatBC2Unorm                 Format = 74
	FormatBC2UnormSRGB             Format = 75
	FormatBC3Typeless              Format = 76
	FormatBC3Unorm                 Format = 77
	FormatBC3UnormSRGB             Format = 78
	FormatBC4Typeless              Format = 79
	FormatBC4Unorm                 Format = 80
	FormatBC4Snorm                 Format = 81
	FormatBC5Typeless              Format = 82
	FormatBC5Unorm                 Format = 83
	FormatBC5Snorm                 Format = 84
	FormatB5G6R5Unorm              Format = 85
	FormatB5G5R5A1Unorm            Format = 86
	FormatB8G8R8A8Unorm            Format = 87
	FormatB8G8R8X8Unorm            Format = 88
	FormatR10G10B10XRBiasA2Unorm   Format = 89
	FormatB8G8R8A8Typeless         Format = 90
	FormatB8G8R8A8UnormSRGB        Format = 91
	FormatB8G8R8X8Typeless         Format = 92
	FormatB8G8R8X8UnormSRGB        Format = 93
	FormatBC6HTypeless             Format = 94
	FormatBC6HUF16                 Format = 95
	FormatBC6HSF16                 Format = 96
	FormatBC7Typeless              Format = 97
	FormatBC7Unorm                 Format = 98
	FormatBC7UnormSRGB             Format = 99
	FormatAYUV                     Format = 100
	FormatY410                     Format = 101
	FormatY416                     Format = 102
	FormatNV12                     Format = 103
	FormatP010                     Format = 104
	FormatP016                     Format = 105
	Format420Opaque                Format = 106
	FormatYUY2                     Format = 107
	FormatY210                     Format = 108
	FormatY216                     Format = 109
	FormatNV11                     Format = 110
	FormatAI44                     Format = 111
	FormatIA44                     Format = 112
	FormatP8                       Format = 113
	FormatA8P8                     Format = 114
	FormatB4G4R4A4Unorm            Format = 115
	FormatP208                     Format = 130
	FormatV208                     Format = 131
	FormatV408                     Format = 132
)

type formatInfo struct {
	name  string
	bpp   int   // bits per texel, as reported by Direct3D
	class Class
	bpe   int // bytes per element (packed, planar) or per 4x4 block (BC)
}

var formats = map[Format]formatInfo{
	FormatR32G32B32A32Typeless: {"R32G32B32A32_TYPELESS", 128, ClassLinear, 0},
	FormatR32G32B32A32Float:    {"R32G32B32A32_FLOAT", 128, ClassLinear, 0},
	FormatR32G32B32A32Uint:     {"R32G32B32A32_UINT", 128, ClassLinear, 0},
	FormatR32G32B32A32Sint:     {"R32G32B32A32_SINT", 128, ClassLinear, 0},

	FormatR32G32B32Typeless: {"R32G32B32_TYPELESS", 96, ClassLinear, 0},
	FormatR32G32B32Float:    {"R32G32B32_FLOAT", 96, ClassLinear, 0},
	FormatR32G32B32Uint:     {"R32G32B32_UINT", 96, ClassLinear, 0},
	FormatR32G32B32Sint:     {"R32G32B32_SINT", 96, ClassLinear, 0},

	FormatR16G16B16A16Typeless:  {"R16G16B16A16_TYPELESS", 64, ClassLinear, 0},
	FormatR16G16B16A16Float:     {"R16G16B16A16_FLOAT", 64, ClassLinear, 0},
	FormatR16G16B16A16Unorm:     {"R16G16B16A16_UNORM", 64, ClassLinear, 0},
	FormatR16G16B16A16Uint:      {"R16G16B16A16_UINT", 64, ClassLinear, 0},
	FormatR16G16B16A16Snorm:     {"R16G16B16A16_SNORM", 64, ClassLinear, 0},
	FormatR16G16B16A16Sint:      {"R16G16B16A16_SINT", 64, ClassLinear, 0},
	FormatR32G32Typeless:        {"R32G32_TYPELESS", 64, ClassLinear, 0},
	FormatR32G32Float:           {"R32G32_FLOAT", 64, ClassLinear, 0},
	FormatR32G32Uint:            {"R32G32_UINT", 64, ClassLinear, 0},
	FormatR32G32Sint:            {"R32G32_SINT", 64, ClassLinear, 0},
	FormatR32G8X24Typeless:      {"R32G8X24_TYPELESS", 64, ClassLinear, 0},
	FormatD32FloatS8X24Uint:     {"D32_FLOAT_S8X24_UINT", 64, ClassLinear, 0},
	FormatR32FloatX8X24Typeless: {"R32_FLOAT_X8X24_TYPELESS", 64, ClassLinear, 0},
	FormatX32TypelessG8X24Uint:  {"X32_TYPELESS_G8X24_UINT", 64, ClassLinear, 0},
	FormatY416:                  {"Y416", 64, ClassLinear, 0},

	FormatR10G10B10A2Typeless:    {"R10G10B10A2_TYPELESS", 32, ClassLinear, 0},
	FormatR10G10B10A2Unorm:       {"R10G10B10A2_UNORM", 32, ClassLinear, 0},
	FormatR10G10B10A2Uint:        {"R10G10B10A2_UINT", 32, ClassLinear, 0},
	FormatR11G11B10Float:         {"R11G11B10_FLOAT", 32, ClassLinear, 0},
	FormatR8G8B8A8Typeless:       {"R8G8B8A8_TYPELESS", 32, ClassLinear, 0},
	FormatR8G8B8A8Unorm:          {"R8G8B8A8_UNORM", 32, ClassLinear, 0},
	FormatR8G8B8A8UnormSRGB:      {"R8G8B8A8_UNORM_SRGB", 32, ClassLinear, 0},
	FormatR8G8B8A8Uint:           {"R8G8B8A8_UINT", 32, ClassLinear, 0},
	FormatR8G8B8A8Snorm:          {"R8G8B8A8_SNORM", 32, ClassLinear, 0},
	FormatR8G8B8A8Sint:           {"R8G8B8A8_SINT", 32, ClassLinear, 0},
	FormatR16G16Typeless:         {"R16G16_TYPELESS", 32, ClassLinear, 0},
	FormatR16G16Float:            {"R16G16_FLOAT", 32, ClassLinear, 0},
	FormatR16G16Unorm:            {"R16G16_UNORM", 32, ClassLinear, 0},
	FormatR16G16Uint:             {"R16G16_UINT", 32, ClassLinear, 0},
	FormatR16G16Snorm:            {"R16G16_SNORM", 32, ClassLinear, 0},
	FormatR16G16Sint:             {"R16G16_SINT", 32, ClassLinear, 0},
	FormatR32Typeless:            {"R32_TYPELESS", 32, ClassLinear, 0},
	FormatD32Float:               {"D32_FLOAT", 32, ClassLinear, 0},
	FormatR32Float:               {"R32_FLOAT", 32, ClassLinear, 0},
	FormatR32Uint:                {"R32_UINT", 32, ClassLinear, 0},
	FormatR32Sint:                {"R32_SINT", 32, ClassLinear, 0},
	FormatR24G8Typeless:          {"R24G8_TYPELESS", 32, ClassLinear, 0},
	FormatD24UnormS8Uint:         {"D24_UNORM_S8_UINT", 32, ClassLinear, 0},
	FormatR24UnormX8Typeless:     {"R24_UNORM_X8_TYPELESS", 32, ClassLinear, 0},
	FormatX24TypelessG8Uint:      {"X24_TYPELESS_G8_UINT", 32, ClassLinear, 0},
	FormatR9G9B9E5SharedExp:      {"R9G9B9E5_SHAREDEXP", 32, ClassLinear, 0},
	FormatB8G8R8A8Unorm:          {"B8G8R8A8_UNORM", 32, ClassLinear, 0},
	FormatB8G8R8X8Unorm:          {"B8G8R8X8_UNORM", 32, ClassLinear, 0},
	FormatR10G10B10XRBiasA2Unorm: {"R10G10B10_XR_BIAS_A2_UNORM", 32, ClassLinear, 0},
	FormatB8G8R8A8Typeless:       {"B8G8R8A8_TYPELESS", 32, ClassLinear, 0},
	FormatB8G8R8A8UnormSRGB:      {"B8G8R8A8_UNORM_SRGB", 32, ClassLinear, 0},
	FormatB8G8R8X8Typeless:       {"B8G8R8X8_TYPELESS", 32, ClassLinear, 0},
	FormatB8G8R8X8UnormSRGB:      {"B8G8R8X8_UNORM_SRGB", 32, ClassLinear, 0},
	FormatAYUV:                   {"AYUV", 32, ClassLinear, 0},
	FormatY410:                   {"Y410", 32, ClassLinear, 0},

	FormatR8G8Typeless:  {"R8G8_TYPELESS", 16, ClassLinear, 0},
	FormatR8G8Unorm:     {"R8G8_UNORM", 16, ClassLinear, 0},
	FormatR8G8Uint:      {"R8G8_UINT", 16, ClassLinear, 0},
	FormatR8G8Snorm:     {"R8G8_SNORM", 16, ClassLinear, 0},
	FormatR8G8Sint:      {"R8G8_SINT", 16, ClassLinear, 0},
	FormatR16Typeless:   {"R16_TYPELESS", 16, ClassLinear, 0},
	FormatR16Float:      {"R16_FLOAT", 16, ClassLinear, 0},
	FormatD16Unorm:      {"D16_UNORM", 16, ClassLinear, 0},
	FormatR16Unorm:      {"R16_UNORM", 16, ClassLinear, 0},
	FormatR16Uint:       {"R16_UINT", 16, ClassLinear, 0},
	FormatR16Snorm:      {"R16_SNORM", 16, ClassLinear, 0},
	FormatR16Sint:       {"R16_SINT", 16, ClassLinear, 0},
	FormatB5G6R5Unorm:   {"B5G6R5_UNORM", 16, ClassLinear, 0},
	FormatB5G5R5A1Unorm: {"B5G5R5A1_UNORM", 16, ClassLinear, 0},
	FormatA8P8:          {"A8P8", 16, ClassLinear, 0},
	FormatB4G4R4A4Unorm: {"B4G4R4A4_UNORM", 16, ClassLinear, 0},
	FormatV208:          {"V208", 16, ClassLinear, 0},
	FormatV408:          {"V408", 24, ClassLinear, 0},

	FormatR8Typeless: {"R8_TYPELESS", 8, ClassLinear, 0},
	FormatR8Unorm:    {"R8_UNORM", 8, ClassLinear, 0},
	FormatR8Uint:     {"R8_UINT", 8, ClassLinear, 0},
	FormatR8Snorm:    {"R8_SNORM", 8, ClassLinear, 0},
	FormatR8Sint:     {"R8_SINT", 8, ClassLinear, 0},
	FormatA8Unorm:    {"A8_UNORM", 8, ClassLinear, 0},
	FormatAI44:       {"AI44", 8, ClassLinear, 0},
	FormatIA44:       {"IA44", 8, ClassLinear, 0},
	FormatP8:         {"P8", 8, ClassLinear, 0},

	FormatR1Unorm: {"R1_UNORM", 1, ClassLinear, 0},

	FormatR8G8B8G8Unorm: {"R8G8_B8G8_UNORM", 32, ClassPacked, 4},
	FormatG8R8G8B8Unorm: {"G8R8_G8B8_UNORM", 32, ClassPacked, 4},
	FormatYUY2:          {"YUY2", 32, ClassPacked, 4},
	FormatY210:          {"Y210", 64, ClassPacked, 8},
	FormatY216:          {"Y216", 64, ClassPacked, 8},

	FormatNV12:      {"NV12", 12, ClassPlanar420, 2},
	Format420Opaque: {"420_OPAQUE", 12, ClassPlanar420, 2},
	FormatP208:      {"P208", 16, ClassPlanar420, 2},
	FormatP010:      {"P010", 24, ClassPlanar420, 4},
	FormatP016:      {"P016", 24, ClassPlanar420, 4},

	// NV11 is 4:1:1; its layout is sized with the same doubled-row
	// convention Direct3D uses, which overestimates the real data.
	FormatNV11: {"NV11", 12, ClassPlanar411, 0},

	FormatBC1Typeless:  {"BC1_TYPELESS", 4, ClassBlockCompressed, 8},
	FormatBC1Unorm:     {"BC1_UNORM", 4, ClassBlockCompressed, 8},
	FormatBC1UnormSRGB: {"BC1_UNORM_SRGB", 4, ClassBlockCompressed, 8},
	FormatBC4Typeless:  {"BC4_TYPELESS", 4, ClassBlockCompressed, 8},
	FormatBC4Unorm:     {"BC4_UNORM", 4, ClassBlockCompressed, 8},
	FormatBC4Snorm:     {"BC4_SNORM", 4, ClassBlockCompressed, 8},
	FormatBC2Typeless:  {"BC2_TYPELESS", 8, ClassBlockCompressed, 16},
	FormatBC2Unorm:     {"BC2_UNORM", 8, ClassBlockCompressed, 16},
	FormatBC2UnormSRGB: {"BC2_UNORM_SRGB", 8, ClassBlockCompressed, 16},
	FormatBC3Typeless:  {"BC3_TYPELESS", 8, ClassBlockCompressed, 16},
	FormatBC3Unorm:     {"BC3_UNORM", 8, ClassBlockCompressed, 16},
	FormatBC3UnormSRGB: {"BC3_UNORM_SRGB", 8, ClassBlockCompressed, 16},
	FormatBC5Typeless:  {"BC5_TYPELESS", 8, ClassBlockCompressed, 16},
	FormatBC5Unorm:     {"BC5_UNORM", 8, ClassBlockCompressed, 16},
	FormatBC5Snorm:     {"BC5_SNORM", 8, ClassBlockCompressed, 16},
	FormatBC6HTypeless: {"BC6H_TYPELESS", 8, ClassBlockCompressed, 16},
	FormatBC6HUF16:     {"BC6H_UF16", 8, ClassBlockCompressed, 16},
	FormatBC6HSF16:     {"BC6H_SF16", 8, ClassBlockCompressed, 16},
	FormatBC7Typeless:  {"BC7_TYPELESS", 8, ClassBlockCompressed, 16},
	FormatBC7Unorm:     {"BC7_UNORM", 8, ClassBlockCompressed, 16},
	FormatBC7UnormSRGB: {"BC7_UNORM_SRGB", 8, ClassBlockCompressed, 16},
}

// String returns the DXGI name without the DXGI_FORMAT_ prefix.
func (f Format) String() string {
	if info, ok := formats[f]; ok {
		return info.name
	}
	if f == FormatUnknown {
		return "UNKNOWN"
	}
	return fmt.Sprintf("Format(%d)", uint32(f))
}

// Known reports whether f belongs to the supported set.
func (f Format) Known() bool {
	_, ok := formats[f]
	return ok
}

// Class returns the layout class of f, or ClassUnknown.
func (f Format) Class() Class {
	return formats[f].class
}

// BitsPerPixel returns the texel size in bits, or 0 for unknown formats.
func (f Format) BitsPerPixel() int {
	return formats[f].bpp
}

// Formats returns every supported format in ascending numeric order.
func Formats() []Format {
	out := make([]Format, 0, len(formats))
	for f := FormatR32G32B32A32Typeless; f <= FormatV408; f++ {
		if _, ok := formats[f]; ok {
			out = append(out, f)
		}
	}
	return out
}
