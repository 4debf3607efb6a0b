package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/castcopy/internal/engine"
	"github.com/born-ml/castcopy/internal/tensor"
)

type viewFlagValues struct {
	shape    string
	srcType  string
	dstType  string
	steps    string
	dstOrder string
	kind     string
	alias    bool
}

func viewFlags(v *viewFlagValues) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "shape",
			Aliases:     []string{"s"},
			Usage:       "comma separated extents",
			Value:       "1024,1024",
			Destination: &v.shape,
		},
		&cli.StringFlag{
			Name:        "src-dtype",
			Usage:       "source element type (name or typestr)",
			Value:       "float32",
			Destination: &v.srcType,
		},
		&cli.StringFlag{
			Name:        "dst-dtype",
			Usage:       "destination element type (name or typestr)",
			Value:       "float64",
			Destination: &v.dstType,
		},
		&cli.StringFlag{
			Name:        "steps",
			Usage:       "comma separated source steps per axis, negative to reverse",
			Destination: &v.steps,
		},
		&cli.StringFlag{
			Name:        "order",
			Usage:       "destination layout (c or f)",
			Value:       "c",
			Destination: &v.dstOrder,
		},
		&cli.StringFlag{
			Name:        "usm",
			Usage:       "allocation kind (host, device, shared)",
			Value:       "host",
			Destination: &v.kind,
		},
		&cli.BoolFlag{
			Name:        "alias",
			Usage:       "write into the source block, reversed along axis 0",
			Destination: &v.alias,
		},
	}
}

func (v viewFlagValues) spec(dev tensor.Device) (viewSpec, error) {
	shape, err := parseShape(v.shape)
	if err != nil {
		return viewSpec{}, err
	}
	src, err := tensor.ParseDataType(v.srcType)
	if err != nil {
		return viewSpec{}, err
	}
	dst, err := tensor.ParseDataType(v.dstType)
	if err != nil {
		return viewSpec{}, err
	}
	steps, err := parseInts(v.steps)
	if err != nil {
		return viewSpec{}, fmt.Errorf("steps: %w", err)
	}
	kind, err := tensor.ParseUSMKind(v.kind)
	if err != nil {
		return viewSpec{}, err
	}
	return viewSpec{
		shape:    shape,
		srcType:  src,
		dstType:  dst,
		srcSteps: steps,
		dstOrder: v.dstOrder,
		alias:    v.alias,
		kind:     kind,
		device:   dev,
	}, nil
}

func planCmd() *cli.Command {
	var (
		views  viewFlagValues
		asJSON bool
	)

	flags := viewFlags(&views)
	flags = append(flags, &cli.BoolFlag{Name: "json", Usage: "print JSON", Destination: &asJSON})

	return &cli.Command{
		Name:  "plan",
		Usage: "Show how a copy would be executed",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			log, err := setupLogger(s, os.Stderr)
			if err != nil {
				return err
			}
			spec, err := views.spec(s.Device)
			if err != nil {
				return err
			}
			src, dst, err := spec.build()
			if err != nil {
				return err
			}
			defer closeViews(src, dst)

			e := engine.New(s.EngineOptions(log))
			report, err := e.Plan(src, dst)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(os.Stdout, report)
			}
			return printReport(os.Stdout, src, dst, report)
		},
	}
}

func printReport(w io.Writer, src, dst tensor.View, r engine.Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "src:       %s\n", src)
	fmt.Fprintf(&b, "dst:       %s\n", dst)
	fmt.Fprintf(&b, "cast:      %s -> %s (%s)\n", r.Src, r.Dst, r.Rule)
	fmt.Fprintf(&b, "strategy:  %s\n", r.Plan.Strategy)
	fmt.Fprintf(&b, "elements:  %d\n", r.Plan.NumElements)
	fmt.Fprintf(&b, "shape:     %v\n", r.Plan.Shape)
	fmt.Fprintf(&b, "strides:   src %v dst %v\n", r.Plan.SrcStrides, r.Plan.DstStrides)
	fmt.Fprintf(&b, "offsets:   src %d dst %d\n", r.Plan.SrcOffset, r.Plan.DstOffset)
	fmt.Fprintf(&b, "overlap:   %t\n", r.Guard.Overlap)
	if r.Guard.Staged {
		fmt.Fprintf(&b, "staged:    true (%s)\n", r.Guard.Reason)
	} else {
		fmt.Fprintf(&b, "staged:    false\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func closeViews(views ...tensor.View) {
	for _, v := range views {
		if b := v.Block(); b != nil {
			_ = b.Close()
		}
	}
}
