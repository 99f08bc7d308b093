// meshview is an interactive OpenGL viewer for triangle meshes, with
// optional on-the-fly decimation for comparing an original against its
// simplified counterpart.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/trimesh/internal/config"
	"github.com/Faultbox/trimesh/internal/logger"
	"github.com/Faultbox/trimesh/internal/render"
	"github.com/Faultbox/trimesh/pkg/formats"
	"github.com/Faultbox/trimesh/pkg/trimesh"
)

const vertexShaderSource = `#version 410 core
layout (location = 0) in vec3 aPosition;
layout (location = 1) in vec3 aNormal;

uniform mat4 uView;
uniform mat4 uProjection;

out vec3 vNormal;

void main() {
    vNormal = aNormal;
    gl_Position = uProjection * uView * vec4(aPosition, 1.0);
}
`

const fragmentShaderSource = `#version 410 core
in vec3 vNormal;

uniform vec3 uLightDir;

out vec4 FragColor;

void main() {
    vec3 normal = normalize(vNormal);
    vec3 lightDir = normalize(uLightDir);
    float diff = abs(dot(normal, lightDir));
    vec3 base = vec3(0.75, 0.78, 0.82);
    vec3 result = (0.25 + 0.75 * diff) * base;
    FragColor = vec4(result, 1.0);
}
`

var (
	flagSimplify = flag.Int("simplify", 0, "Also build a decimated copy with this target face count")
	flagRatio    = flag.Float64("ratio", 0, "Also build a decimated copy keeping this fraction of faces")
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fatal(err)
	}
	defer logger.Sync()
	trimesh.SetLogger(logger.Log)

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshview [options] <mesh>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	mesh, err := formats.LoadFile(path)
	if err != nil {
		fatal(err)
	}
	logger.Info("mesh loaded",
		zap.String("path", path),
		zap.Int("vertices", len(mesh.Vertices)),
		zap.Int("faces", len(mesh.Faces)),
	)

	// Optional decimated copy, toggled with Tab at runtime.
	var simplified *trimesh.Mesh
	target := *flagSimplify
	if target == 0 && *flagRatio > 0 {
		target = int(float64(len(mesh.Faces)) * *flagRatio)
	}
	if target > 0 {
		simplified, err = mesh.Simplify(target, cfg.Simplify.Aggressiveness)
		if err != nil {
			fatal(err)
		}
		logger.Info("decimated copy built",
			zap.Int("faces", len(simplified.Faces)),
			zap.Int("target", target),
		)
	}

	window, err := render.NewWindow(render.Config{
		Title:      "meshview - " + path,
		Width:      cfg.Viewer.Width,
		Height:     cfg.Viewer.Height,
		Fullscreen: cfg.Viewer.Fullscreen,
		VSync:      cfg.Viewer.VSync,
	})
	if err != nil {
		fatal(err)
	}
	defer window.Close()

	if err := gl.Init(); err != nil {
		fatal(fmt.Errorf("initializing OpenGL: %w", err))
	}

	program, err := render.CompileProgram(vertexShaderSource, fragmentShaderSource)
	if err != nil {
		fatal(err)
	}
	defer gl.DeleteProgram(program)

	locView := render.GetUniform(program, "uView")
	locProjection := render.GetUniform(program, "uProjection")
	locLightDir := render.GetUniform(program, "uLightDir")

	buffer := render.NewMeshBuffer(mesh)
	defer buffer.Destroy()
	var simplifiedBuffer *render.MeshBuffer
	if simplified != nil {
		simplifiedBuffer = render.NewMeshBuffer(simplified)
		defer simplifiedBuffer.Destroy()
	}

	// Frame the mesh: orbit the bounding box center at a distance
	// proportional to its diagonal.
	center := render.Vec3f{}
	distance := float32(3)
	if lower, upper, err := mesh.Bounds(); err == nil {
		center = render.Vec3f{
			X: float32((lower[0] + upper[0]) / 2),
			Y: float32((lower[1] + upper[1]) / 2),
			Z: float32((lower[2] + upper[2]) / 2),
		}
		diag := vecLen(upper[0]-lower[0], upper[1]-lower[1], upper[2]-lower[2])
		distance = float32(diag) * 1.8
	}

	var (
		yaw       = float32(0.5)
		pitch     = float32(0.3)
		dragging  = false
		wireframe = cfg.Viewer.Wireframe
		showFull  = true
	)

	gl.Enable(gl.DEPTH_TEST)

	running := true
	for running {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				running = false
			case *sdl.KeyboardEvent:
				if e.Type != sdl.KEYDOWN {
					break
				}
				switch e.Keysym.Sym {
				case sdl.K_ESCAPE, sdl.K_q:
					running = false
				case sdl.K_w:
					wireframe = !wireframe
				case sdl.K_TAB:
					if simplifiedBuffer != nil {
						showFull = !showFull
					}
				}
			case *sdl.MouseButtonEvent:
				if e.Button == sdl.BUTTON_LEFT {
					dragging = e.Type == sdl.MOUSEBUTTONDOWN
				}
			case *sdl.MouseMotionEvent:
				if dragging {
					yaw += float32(e.XRel) * 0.01
					pitch += float32(e.YRel) * 0.01
					if pitch > 1.5 {
						pitch = 1.5
					}
					if pitch < -1.5 {
						pitch = -1.5
					}
				}
			case *sdl.MouseWheelEvent:
				distance *= float32(math.Pow(0.9, float64(e.Y)))
			}
		}

		width, height := window.GetSize()
		gl.Viewport(0, 0, int32(width), int32(height))
		gl.ClearColor(0.12, 0.12, 0.14, 1.0)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

		eye := render.Vec3f{
			X: center.X + distance*float32(math.Cos(float64(pitch))*math.Sin(float64(yaw))),
			Y: center.Y + distance*float32(math.Sin(float64(pitch))),
			Z: center.Z + distance*float32(math.Cos(float64(pitch))*math.Cos(float64(yaw))),
		}
		view := render.LookAt(eye, center, render.Vec3f{Y: 1})
		projection := render.Perspective(
			float32(math.Pi/4),
			float32(width)/float32(height),
			distance*0.01, distance*10,
		)

		gl.UseProgram(program)
		gl.UniformMatrix4fv(locView, 1, false, view.Ptr())
		gl.UniformMatrix4fv(locProjection, 1, false, projection.Ptr())
		gl.Uniform3f(locLightDir, 0.4, 0.8, 0.6)

		if showFull || simplifiedBuffer == nil {
			buffer.Draw(wireframe)
		} else {
			simplifiedBuffer.Draw(wireframe)
		}

		window.SwapBuffers()
	}
}

func vecLen(x, y, z float64) float64 {
	return math.Sqrt(x*x + y*y + z*z)
}
