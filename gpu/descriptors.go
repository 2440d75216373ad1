package gpu

type TextureDescriptor struct {
	Label  string
	Size   Extent
	Format TextureFormat
	Usage  TextureUsage
}

type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage BufferUsage
	// Contents, when set, initializes the buffer and overrides Size.
	Contents []byte
}

type SamplerDescriptor struct {
	Label     string
	MagFilter FilterMode
	MinFilter FilterMode
}

type BindGroupLayoutEntry struct {
	Binding          uint32
	Visibility       ShaderStage
	Type             BindingType
	HasDynamicOffset bool
}

type BindGroupLayoutDescriptor struct {
	Label   string
	Entries []BindGroupLayoutEntry
}

// BindGroupEntry binds exactly one of Buffer, Texture or Sampler.
type BindGroupEntry struct {
	Binding uint32
	Buffer  Buffer
	// Size limits a dynamic-offset uniform binding; zero means the whole buffer.
	Size    uint64
	Texture TextureView
	Sampler Sampler
}

type BindGroupDescriptor struct {
	Label   string
	Layout  BindGroupLayout
	Entries []BindGroupEntry
}

// ShaderModuleDescriptor carries backend specific shader source.
type ShaderModuleDescriptor struct {
	Label  string
	Source any
}

type VertexAttribute struct {
	Format   VertexFormat
	Offset   uint64
	Location uint32
}

type VertexBufferLayout struct {
	Stride     uint64
	Attributes []VertexAttribute
}

type DepthStencilState struct {
	Format       TextureFormat
	DepthWrite   bool
	DepthCompare CompareFunction
}

type RenderPipelineDescriptor struct {
	Label            string
	BindGroupLayouts []BindGroupLayout
	Module           ShaderModule
	VertexEntry      string
	FragmentEntry    string
	Buffers          []VertexBufferLayout
	Topology         PrimitiveTopology
	FrontFace        FrontFace
	CullMode         CullMode
	DepthStencil     *DepthStencilState
	TargetFormat     TextureFormat
	Blend            BlendState
}

type ColorAttachment struct {
	View       TextureView
	Load       LoadOp
	Store      StoreOp
	ClearValue Color
}

type DepthStencilAttachment struct {
	View       TextureView
	DepthLoad  LoadOp
	DepthStore StoreOp
	ClearDepth float32
}

type RenderPassDescriptor struct {
	Label            string
	ColorAttachments []ColorAttachment
	DepthStencil     *DepthStencilAttachment
}

type SurfaceConfiguration struct {
	Format      TextureFormat
	Width       uint32
	Height      uint32
	PresentMode PresentMode
}
