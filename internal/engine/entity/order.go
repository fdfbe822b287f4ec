package entity

import "strings"

// ByTexture orders entities by diffuse texture identity so consecutive
// draws share bound textures. Use with slices.SortStableFunc.
func ByTexture(a, b *Entity) int {
	return strings.Compare(textureKey(a), textureKey(b))
}

// ByModel orders entities by model identity so consecutive draws can reuse
// bound buffers. Use with slices.SortStableFunc.
func ByModel(a, b *Entity) int {
	return strings.Compare(modelKey(a), modelKey(b))
}

func textureKey(e *Entity) string {
	if e.Texture == nil {
		return ""
	}
	return e.Texture.Key()
}

func modelKey(e *Entity) string {
	if e.model == nil {
		return ""
	}
	return e.model.Key()
}
