package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/config"
	"github.com/milk9111/navmesh/engine"
	"github.com/milk9111/navmesh/scene"
)

func printVec(w io.Writer, prefix string, p common.Vec3) {
	fmt.Fprintf(w, "%s%.3f,%.3f,%.3f\n", prefix, p.X, p.Y, p.Z)
}

func BuildCmd(flags *sceneFlags) *cobra.Command {
	var out string
	c := &cobra.Command{
		Use:   "build",
		Short: "build a mesh and optionally store it",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, n, err := flags.build()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			if out == "" {
				return nil
			}
			return m.WriteFile(out)
		},
	}
	c.Flags().StringVarP(&out, "out", "o", "", "write the mesh collection to this file")
	return c
}

func parseStraight(s string) (engine.StraightOptions, error) {
	for _, o := range []engine.StraightOptions{engine.StraightNone, engine.StraightAreaCrossings, engine.StraightAllCrossings} {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown crossings option %q", s)
}

func PathCmd(flags *sceneFlags) *cobra.Command {
	var from, to, crossings string
	var follow bool
	c := &cobra.Command{
		Use:   "path",
		Short: "find a path between two points",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, n, err := flags.build()
			if err != nil {
				return err
			}
			start, end := config.ParseVec3(from), config.ParseVec3(to)
			w := cmd.OutOrStdout()
			if follow {
				pts, err := n.PathFindFollow(start, end)
				if err != nil {
					return err
				}
				for _, p := range pts {
					printVec(w, "", p)
				}
				return nil
			}
			opts, err := parseStraight(crossings)
			if err != nil {
				return err
			}
			pts, err := n.PathFindStraight(start, end, opts)
			if err != nil {
				return err
			}
			for _, p := range pts {
				fmt.Fprintf(w, "%.3f,%.3f,%.3f flags=%#x area=%d poly_flags=%#x\n",
					p.Pos.X, p.Pos.Y, p.Pos.Z, p.Flags, p.Area, p.PolyFlags)
			}
			return nil
		},
	}
	c.Flags().StringVar(&from, "from", "0,0,0", "start point x,y,z")
	c.Flags().StringVar(&to, "to", "0,0,0", "end point x,y,z")
	c.Flags().BoolVar(&follow, "follow", false, "print an evenly spaced follow path")
	c.Flags().StringVar(&crossings, "crossings", "none", "straight path crossings: none, area_crossings or all_crossings")
	return c
}

func RaycastCmd(flags *sceneFlags) *cobra.Command {
	var from, to string
	c := &cobra.Command{
		Use:   "raycast",
		Short: "cast a ray along the mesh surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, n, err := flags.build()
			if err != nil {
				return err
			}
			hit, err := n.Raycast(config.ParseVec3(from), config.ParseVec3(to))
			if err != nil {
				return err
			}
			printVec(cmd.OutOrStdout(), "hit ", hit)
			return nil
		},
	}
	c.Flags().StringVar(&from, "from", "0,0,0", "start point x,y,z")
	c.Flags().StringVar(&to, "to", "0,0,0", "end point x,y,z")
	return c
}

func WallCmd(flags *sceneFlags) *cobra.Command {
	var at string
	c := &cobra.Command{
		Use:   "wall",
		Short: "print the distance to the nearest wall",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, n, err := flags.build()
			if err != nil {
				return err
			}
			d, err := n.DistanceToWall(config.ParseVec3(at))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.3f\n", d)
			return nil
		},
	}
	c.Flags().StringVar(&at, "at", "0,0,0", "point x,y,z")
	return c
}

// SimulateCmd walks one agent towards a target and prints its position
// every step.
func SimulateCmd(flags *sceneFlags) *cobra.Command {
	var from, to string
	var steps int
	var dt float32
	c := &cobra.Command{
		Use:   "simulate",
		Short: "move an agent across the mesh",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, n, err := flags.build()
			if err != nil {
				return err
			}
			body := scene.Box("agent", 1, 1, 2)
			body.ReparentTo(m.Scene())
			body.SetPos(config.ParseVec3(from))
			a, err := m.CreateAgent(body)
			if err != nil {
				return err
			}
			if err := n.AddAgent(a); err != nil {
				return err
			}
			if err := a.SetMoveTarget(config.ParseVec3(to)); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for i := range steps {
				m.Update(dt)
				printVec(w, fmt.Sprintf("%d ", i), a.Position())
			}
			return nil
		},
	}
	c.Flags().StringVar(&from, "from", "0,0,0", "agent start x,y,z")
	c.Flags().StringVar(&to, "to", "0,0,0", "agent target x,y,z")
	c.Flags().IntVar(&steps, "steps", 100, "number of updates")
	c.Flags().Float32Var(&dt, "dt", 1.0/60, "seconds per update")
	return c
}
