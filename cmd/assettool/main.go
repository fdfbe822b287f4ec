// assettool inspects and produces the runtime's mesh and texture files.
package main

import (
	"fmt"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/Faultbox/follower-catcher/pkg/formats"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "info":
		err = cmdInfo(args)
	case "verify":
		err = cmdVerify(args)
	case "png":
		err = cmdPNG(args)
	case "cube":
		err = cmdCube(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`assettool - mesh (.mdl) and texture (.dxt) utility

Usage:
  assettool <command> [options]

Commands:
  info <file>               Show mesh or texture details
  verify <dir>              Parse every .mdl and .dxt under dir
  png <file.dxt> <out.png>  Export a decoded texture
  cube <out.mdl> [size]     Write a cube mesh (default size 1)

Examples:
  assettool info content/Content/Road.mdl
  assettool verify content
  assettool png content/Content/Textures/Road.dxt road.png
  assettool cube placeholder.mdl 20`)
}

func usage(line string) error {
	return fmt.Errorf("usage: assettool %s", line)
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		return usage("info <file>")
	}
	path := args[0]

	switch strings.ToLower(filepath.Ext(path)) {
	case formats.MeshExt:
		m, err := formats.ParseMeshFile(path)
		if err != nil {
			return err
		}
		size := m.Bounds.Size()
		fmt.Printf("Mesh: %s\n", path)
		fmt.Printf("  Bounds: (%.2f, %.2f, %.2f) - (%.2f, %.2f, %.2f)\n",
			m.Bounds.Min.X, m.Bounds.Min.Y, m.Bounds.Min.Z,
			m.Bounds.Max.X, m.Bounds.Max.Y, m.Bounds.Max.Z)
		fmt.Printf("  Size:   %.2f x %.2f x %.2f\n", size.X, size.Y, size.Z)
		fmt.Printf("  Parts:  %d (%d vertices, %d indices)\n", len(m.Parts), m.VertexCount(), m.IndexCount())
		for i := range m.Parts {
			p := &m.Parts[i]
			fmt.Printf("    [%d] %d vertices, %d triangles\n", i, len(p.Vertices), p.TriangleCount())
		}

	case formats.TextureExt:
		t, err := formats.ParseTextureFile(path)
		if err != nil {
			return err
		}
		fmt.Printf("Texture: %s\n", path)
		fmt.Printf("  Size:    %dx%d\n", t.Width, t.Height)
		fmt.Printf("  Payload: %s (BC3)\n", formatSize(uint64(len(t.Blocks))))

	default:
		return fmt.Errorf("unknown file type: %s", path)
	}
	return nil
}

func cmdVerify(args []string) error {
	if len(args) < 1 {
		return usage("verify <dir>")
	}

	var errs error
	meshes, textures := 0, 0
	walkErr := filepath.WalkDir(args[0], func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case formats.MeshExt:
			meshes++
			if _, err := formats.ParseMeshFile(path); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", path, err))
			}
		case formats.TextureExt:
			textures++
			t, err := formats.ParseTextureFile(path)
			if err == nil {
				_, err = t.Decode()
			}
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", path, err))
			}
		}
		return nil
	})
	if walkErr != nil {
		return walkErr
	}

	failed := multierr.Errors(errs)
	for _, err := range failed {
		fmt.Println("FAIL", err)
	}
	fmt.Printf("%d meshes, %d textures, %d failed\n", meshes, textures, len(failed))
	if len(failed) > 0 {
		return fmt.Errorf("%d files failed to parse", len(failed))
	}
	return nil
}

func cmdPNG(args []string) error {
	if len(args) < 2 {
		return usage("png <file.dxt> <out.png>")
	}

	t, err := formats.ParseTextureFile(args[0])
	if err != nil {
		return err
	}
	img, err := t.Decode()
	if err != nil {
		return err
	}

	f, err := os.Create(args[1])
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%dx%d)\n", args[1], t.Width, t.Height)
	return nil
}

func cmdCube(args []string) error {
	if len(args) < 1 {
		return usage("cube <out.mdl> [size]")
	}
	size := float32(1)
	if len(args) > 1 {
		v, err := strconv.ParseFloat(args[1], 32)
		if err != nil || v <= 0 {
			return fmt.Errorf("invalid size %q", args[1])
		}
		size = float32(v)
	}

	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	if err := formats.EncodeMesh(f, formats.Cube(size)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (cube, size %g)\n", args[0], size)
	return nil
}

func formatSize(size uint64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := uint64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
