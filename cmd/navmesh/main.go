package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/milk9111/navmesh"
	"github.com/milk9111/navmesh/config"
	"github.com/milk9111/navmesh/manager"
	"github.com/milk9111/navmesh/scene"
)

// sceneFlags are shared by every command that builds a mesh.
type sceneFlags struct {
	objFile    string
	configFile string
	yUp        bool
	verbose    bool
}

func (f *sceneFlags) register(c *cobra.Command) {
	c.PersistentFlags().StringVar(&f.objFile, "obj", "", "Wavefront OBJ file with the walkable geometry")
	c.PersistentFlags().StringVar(&f.configFile, "config", "", "YAML parameter file")
	c.PersistentFlags().BoolVar(&f.yUp, "y-up", false, "treat the OBJ file as Y-up")
	c.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "log debug output")
}

func (f *sceneFlags) logger() *slog.Logger {
	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// build loads the scene and parameters and returns a manager holding one
// built mesh.
func (f *sceneFlags) build() (*manager.Manager, *navmesh.NavMesh, error) {
	if f.objFile == "" {
		return nil, nil, fmt.Errorf("--obj is required")
	}
	params := config.Default()
	if f.configFile != "" {
		p, err := config.Load(f.configFile)
		if err != nil {
			return nil, nil, err
		}
		params = p
	}

	file, err := os.Open(f.objFile)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()
	ground, err := scene.LoadOBJ(file, "ground", f.yUp)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", f.objFile, err)
	}

	m := manager.New(manager.WithParams(params), manager.WithLogger(f.logger()))
	ground.ReparentTo(m.Scene())
	n, err := m.CreateNavMesh("")
	if err != nil {
		return nil, nil, err
	}
	if err := n.Build(ground); err != nil {
		return nil, nil, err
	}
	return m, n, nil
}

func rootCmd() *cobra.Command {
	flags := &sceneFlags{}
	c := &cobra.Command{
		Use:           "navmesh",
		Short:         "build navigation meshes and query them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.register(c)
	c.AddCommand(
		BuildCmd(flags),
		PathCmd(flags),
		RaycastCmd(flags),
		WallCmd(flags),
		SimulateCmd(flags),
	)
	return c
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
