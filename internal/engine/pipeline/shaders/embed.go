// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// SurfaceVertexShader is the vertex shader for surface shading.
//
//go:embed surface.vert
var SurfaceVertexShader string

// SurfaceFragmentShader is the fragment shader for surface shading.
//
//go:embed surface.frag
var SurfaceFragmentShader string

// PickVertexShader is the vertex shader for the picking pass.
//
//go:embed pick.vert
var PickVertexShader string

// PickFragmentShader is the fragment shader for the picking pass.
//
//go:embed pick.frag
var PickFragmentShader string

// MarkerVertexShader is the vertex shader for selection markers.
//
//go:embed marker.vert
var MarkerVertexShader string

// MarkerFragmentShader is the fragment shader for selection markers.
//
//go:embed marker.frag
var MarkerFragmentShader string
