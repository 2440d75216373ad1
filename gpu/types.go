package gpu

// Color is a linear RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

var (
	Black       = Color{A: 1}
	White       = Color{R: 1, G: 1, B: 1, A: 1}
	Transparent = Color{}
)

// Extent is a two-dimensional size in texels.
type Extent struct {
	Width, Height uint32
}

type TextureFormat uint8

const (
	FormatRGBA8UnormSrgb TextureFormat = iota
	FormatBGRA8UnormSrgb
	FormatRGBA32Float
	FormatDepth32Float
)

func (f TextureFormat) IsDepth() bool { return f == FormatDepth32Float }

func (f TextureFormat) String() string {
	switch f {
	case FormatRGBA8UnormSrgb:
		return "rgba8unorm-srgb"
	case FormatBGRA8UnormSrgb:
		return "bgra8unorm-srgb"
	case FormatRGBA32Float:
		return "rgba32float"
	case FormatDepth32Float:
		return "depth32float"
	}
	return "unknown"
}

type TextureUsage uint32

const (
	TextureUsageCopySrc TextureUsage = 1 << iota
	TextureUsageCopyDst
	TextureUsageTextureBinding
	TextureUsageRenderAttachment
)

type BufferUsage uint32

const (
	BufferUsageCopyDst BufferUsage = 1 << iota
	BufferUsageVertex
	BufferUsageIndex
	BufferUsageUniform
)

type ShaderStage uint8

const (
	StageVertex ShaderStage = 1 << iota
	StageFragment

	StageVertexFragment = StageVertex | StageFragment
)

type BindingType uint8

const (
	BindingUniformBuffer BindingType = iota
	BindingTexture
	BindingSampler
)

type PrimitiveTopology uint8

const (
	TriangleList PrimitiveTopology = iota
	TriangleStrip
	LineList
	PointList
)

type FrontFace uint8

const (
	FrontFaceCCW FrontFace = iota
	FrontFaceCW
)

type CullMode uint8

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

type CompareFunction uint8

const (
	CompareLess CompareFunction = iota
	CompareLessEqual
	CompareGreater
	CompareAlways
)

type FilterMode uint8

const (
	FilterNearest FilterMode = iota
	FilterLinear
)

type IndexFormat uint8

const (
	IndexUint16 IndexFormat = iota
	IndexUint32
)

type VertexFormat uint8

const (
	VertexFloat32 VertexFormat = iota + 1
	VertexFloat32x2
	VertexFloat32x3
	VertexFloat32x4
)

// Components returns the number of float32 values in the format.
func (f VertexFormat) Components() int { return int(f) }

type LoadOp uint8

const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
)

type StoreOp uint8

const (
	StoreOpStore StoreOp = iota
	StoreOpDiscard
)

type PresentMode uint8

const (
	PresentFifo PresentMode = iota
	PresentImmediate
)

type BlendFactor uint8

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstAlpha
	BlendOneMinusDstAlpha
)

type BlendOperation uint8

const (
	BlendOpAdd BlendOperation = iota
	BlendOpSubtract
)

type BlendComponent struct {
	Src BlendFactor
	Dst BlendFactor
	Op  BlendOperation
}

type BlendState struct {
	Color BlendComponent
	Alpha BlendComponent
}

var (
	// BlendReplace overwrites the destination.
	BlendReplace = BlendState{
		Color: BlendComponent{Src: BlendOne, Dst: BlendZero, Op: BlendOpAdd},
		Alpha: BlendComponent{Src: BlendOne, Dst: BlendZero, Op: BlendOpAdd},
	}
	// BlendAlpha is standard non-premultiplied alpha blending.
	BlendAlpha = BlendState{
		Color: BlendComponent{Src: BlendSrcAlpha, Dst: BlendOneMinusSrcAlpha, Op: BlendOpAdd},
		Alpha: BlendComponent{Src: BlendOne, Dst: BlendOneMinusSrcAlpha, Op: BlendOpAdd},
	}
)
