// meshtool is a CLI utility for inspecting and converting triangle meshes.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Faultbox/trimesh/internal/config"
	"github.com/Faultbox/trimesh/internal/logger"
	"github.com/Faultbox/trimesh/pkg/formats"
	"github.com/Faultbox/trimesh/pkg/trimesh"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "bounds":
		cmdBounds(args)
	case "simplify":
		cmdSimplify(args)
	case "convert":
		cmdConvert(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshtool - triangle mesh utility

Usage:
  meshtool <command> [options]

Commands:
  info <mesh>                        Show mesh statistics
  bounds <mesh>                      Show the axis-aligned bounding box
  simplify [options] <mesh> <out>    Decimate a mesh and write the result
  convert <mesh> <out>               Re-encode a mesh (format from extension)

Examples:
  meshtool info bunny.stl
  meshtool bounds bunny.obj
  meshtool simplify -target 5000 bunny.stl bunny_lod.stl
  meshtool simplify -ratio 0.25 -verbose bunny.obj small.obj
  meshtool convert bunny.stl bunny.obj`)
}

func loadMesh(path string) *trimesh.Mesh {
	m, err := formats.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return m
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshtool info <mesh>")
		os.Exit(1)
	}

	m := loadMesh(args[0])

	fmt.Printf("Mesh:     %s\n", args[0])
	fmt.Printf("Vertices: %d\n", len(m.Vertices))
	fmt.Printf("Faces:    %d\n", len(m.Faces))
	if m.Source.Format != "" {
		fmt.Printf("Format:   %s\n", m.Source.Format)
	}
	if m.Source.Header != "" {
		fmt.Printf("Header:   %s\n", m.Source.Header)
	}
	fmt.Printf("Area:     %g\n", m.Area())

	// a closed surface pairs every directed edge
	adjacency := m.FaceAdjacency()
	watertight := len(adjacency)*2 == len(m.Faces)*3
	fmt.Printf("Shared edges: %d (watertight: %v)\n", len(adjacency), watertight)

	if lower, upper, err := m.Bounds(); err == nil {
		fmt.Printf("Bounds:   %v .. %v\n", lower, upper)
	}
}

func cmdBounds(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshtool bounds <mesh>")
		os.Exit(1)
	}

	m := loadMesh(args[0])
	lower, upper, err := m.Bounds()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Lower:   %v\n", lower)
	fmt.Printf("Upper:   %v\n", upper)
	fmt.Printf("Extents: [%g %g %g]\n", upper[0]-lower[0], upper[1]-lower[1], upper[2]-lower[2])
}

func cmdSimplify(args []string) {
	cfg := config.Default()

	fs := flag.NewFlagSet("simplify", flag.ExitOnError)
	target := fs.Int("target", 0, "Target face count (overrides -ratio)")
	ratio := fs.Float64("ratio", cfg.Simplify.TargetRatio, "Fraction of input faces to keep")
	aggressiveness := fs.Float64("aggressiveness", cfg.Simplify.Aggressiveness, "Threshold growth exponent")
	verbose := fs.Bool("verbose", cfg.Simplify.Verbose, "Log decimation progress")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: meshtool simplify [options] <mesh> <out>")
		os.Exit(1)
	}

	if *verbose {
		if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		trimesh.SetLogger(logger.Log)
	}

	m := loadMesh(fs.Arg(0))

	targetCount := *target
	if targetCount <= 0 {
		targetCount = int(float64(len(m.Faces)) * *ratio)
	}

	vertices, faces, err := trimesh.SimplifyMesh(m.Vertices, m.Faces, targetCount, *aggressiveness, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out := trimesh.New(vertices, faces)
	out.Source = m.Source
	if err := formats.SaveFile(fs.Arg(1), out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%d -> %d faces (%d -> %d vertices)\n",
		len(m.Faces), len(faces), len(m.Vertices), len(vertices))
}

func cmdConvert(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: meshtool convert <mesh> <out>")
		os.Exit(1)
	}

	m := loadMesh(args[0])
	if err := formats.SaveFile(args[1], m); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s (%d vertices, %d faces)\n", args[1], len(m.Vertices), len(m.Faces))
}
