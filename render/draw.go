package render

import "github.com/tubereng/tuber/asset"

// DrawCommand is one mesh draw collected during Prepare. Buffer fields index
// into Context.VertexBuffers and Context.IndexBuffers.
type DrawCommand struct {
	VertexBuffer int
	IndexBuffer  int
	Indexed      bool
	VertexCount  uint32
	ElementCount uint32
	Material     asset.Handle[MaterialAsset]
	HasMaterial  bool
	Transform    Mat4
}
