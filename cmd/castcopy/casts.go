package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/born-ml/castcopy/internal/cast"
	"github.com/born-ml/castcopy/internal/tensor"
)

type castEntry struct {
	Src     tensor.DataType `json:"src"`
	Dst     tensor.DataType `json:"dst"`
	Rule    string          `json:"rule"`
	BitCopy bool            `json:"bit_copy"`
}

func castsCmd() *cli.Command {
	var (
		from   string
		asJSON bool
	)

	return &cli.Command{
		Name:  "casts",
		Usage: "List supported element conversions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "only list conversions from this type", Destination: &from},
			&cli.BoolFlag{Name: "json", Usage: "print JSON", Destination: &asJSON},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			var blocked []string
			for _, dt := range s.Unsupported {
				blocked = append(blocked, dt.String())
			}

			var filter *tensor.DataType
			if from != "" {
				dt, err := tensor.ParseDataType(from)
				if err != nil {
					return err
				}
				filter = &dt
			}
			entries := castTable(filter, s.Unsupported)
			if asJSON {
				return writeJSON(os.Stdout, entries)
			}
			return printCasts(os.Stdout, entries, blocked)
		},
	}
}

// castTable lists every supported pair, skipping pairs that touch a blocked
// kind.
func castTable(filter *tensor.DataType, unsupported []tensor.DataType) []castEntry {
	var blocked [tensor.NumKinds]bool
	for _, dt := range unsupported {
		if dt.Valid() {
			blocked[dt] = true
		}
	}
	var out []castEntry
	for _, p := range cast.Pairs() {
		if filter != nil && p.Src != *filter {
			continue
		}
		if blocked[p.Src] || blocked[p.Dst] {
			continue
		}
		out = append(out, castEntry{
			Src:     p.Src,
			Dst:     p.Dst,
			Rule:    cast.Rule(p.Src, p.Dst),
			BitCopy: cast.IsBitCopy(p.Src, p.Dst),
		})
	}
	return out
}

func printCasts(w io.Writer, entries []castEntry, blocked []string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SRC\tDST\tRULE\tBITCOPY")
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", e.Src, e.Dst, e.Rule, e.BitCopy)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d conversions", len(entries))
	if err == nil && len(blocked) > 0 {
		_, err = fmt.Fprintf(w, " (disabled kinds: %v)", blocked)
	}
	if err == nil {
		_, err = fmt.Fprintln(w)
	}
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
