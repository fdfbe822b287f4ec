// Package formats provides parsers and encoders for the runtime's binary
// asset files: meshes (.mdl) and block-compressed textures (.dxt).
package formats

// File extensions recognised by the loaders and tools.
const (
	MeshExt    = ".mdl"
	TextureExt = ".dxt"
)
