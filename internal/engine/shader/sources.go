package shader

import _ "embed"

// SceneVertexShader transforms mesh vertices by the world-view-projection matrix.
//
//go:embed scene.vert
var SceneVertexShader string

// SceneFragmentShader modulates the diffuse texture by the lightmap.
//
//go:embed scene.frag
var SceneFragmentShader string
