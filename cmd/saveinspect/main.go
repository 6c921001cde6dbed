// saveinspect dumps the structure of an encoded save: header, string table,
// entity table and the blocks written for every row and section.
//
// Usage:
//
//	saveinspect -file path/to/level.sav
//	saveinspect [-config path] -slot current [-key level]
//	saveinspect -file x.sav -format yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/l1jgo/worldstate/internal/config"
	"github.com/l1jgo/worldstate/internal/persist"
	"github.com/l1jgo/worldstate/internal/save"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "saveinspect: %v\n", err)
		os.Exit(1)
	}
}

type fieldReport struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	Count int    `yaml:"count"`
	Size  int    `yaml:"size"`
}

type blockReport struct {
	Name   string        `yaml:"name"`
	Fields []fieldReport `yaml:"fields"`
}

type rowReport struct {
	Index     int32         `yaml:"index"`
	Classname string        `yaml:"classname"`
	Flags     []string      `yaml:"flags,omitempty"`
	Location  int32         `yaml:"location"`
	Size      int32         `yaml:"size"`
	Blocks    []blockReport `yaml:"blocks,omitempty"`
}

type sectionReport struct {
	Name   string        `yaml:"name"`
	Size   int32         `yaml:"size"`
	Blocks []blockReport `yaml:"blocks,omitempty"`
}

type report struct {
	Source   string          `yaml:"source"`
	Bytes    int             `yaml:"bytes"`
	Session  string          `yaml:"session"`
	Level    string          `yaml:"level"`
	Time     float64         `yaml:"time"`
	Landmark string          `yaml:"landmark,omitempty"`
	Strings  []string        `yaml:"strings"`
	Rows     []rowReport     `yaml:"rows"`
	Sections []sectionReport `yaml:"sections,omitempty"`
}

func run() error {
	file := flag.String("file", "", "encoded save file to read")
	cfgPath := flag.String("config", config.Path(), "config file naming the store")
	slot := flag.String("slot", "", "store slot to read from")
	key := flag.String("key", "", "key inside the slot; lists the slot when empty")
	format := flag.String("format", "text", "output format: text or yaml")
	flag.Parse()

	if *file == "" && *slot == "" {
		flag.Usage()
		return fmt.Errorf("one of -file or -slot is required")
	}

	var (
		data   []byte
		source string
		err    error
	)
	if *file != "" {
		source = *file
		data, err = os.ReadFile(*file)
		if err != nil {
			return err
		}
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		cfg, err := config.Load(*cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		store, err := persist.Open(ctx, cfg.Store, zap.NewNop())
		if err != nil {
			return fmt.Errorf("store: %w", err)
		}
		defer store.Close()

		if *key == "" {
			return listSlot(ctx, os.Stdout, store, *slot)
		}
		source = *slot + "/" + *key
		data, err = store.Get(ctx, *slot, *key)
		if err != nil {
			return err
		}
	}

	rep, err := inspect(source, data)
	if err != nil {
		return err
	}
	switch *format {
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(rep)
	case "text":
		printReport(os.Stdout, rep)
		return nil
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
}

func listSlot(ctx context.Context, out io.Writer, store persist.Store, slot string) error {
	entries, err := store.List(ctx, slot)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("slot %q is empty", slot)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tBYTES\tUPDATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", e.Key, e.Size, e.UpdatedAt.Format(time.DateTime))
	}
	return tw.Flush()
}

func inspect(source string, data []byte) (*report, error) {
	b, err := save.Decode(data, save.Env{})
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", source, err)
	}
	rep := &report{
		Source:  source,
		Bytes:   len(data),
		Session: b.Header.Session.String(),
		Level:   b.Header.Level,
		Time:    b.Header.Time,
		Strings: b.Strings().Strings(),
	}
	if lm := b.Header.Landmark; lm.Use {
		rep.Landmark = fmt.Sprintf("%s @ %v", lm.Name, lm.Offset)
	}

	for _, row := range b.Entities().Rows() {
		rr := rowReport{
			Index:     row.Index,
			Classname: row.Classname,
			Flags:     flagNames(row.Flags),
			Location:  row.Location,
			Size:      row.Size,
		}
		blocks, err := b.RowBlocks(row.Index)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row.Index, err)
		}
		rr.Blocks = blockReports(blocks)
		rep.Rows = append(rep.Rows, rr)
	}

	names := make([]string, 0, len(b.Sections()))
	for name := range b.Sections() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		blocks, err := b.SectionBlocks(name)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", name, err)
		}
		rep.Sections = append(rep.Sections, sectionReport{
			Name:   name,
			Size:   b.Sections()[name].Size,
			Blocks: blockReports(blocks),
		})
	}
	return rep, nil
}

func blockReports(blocks []save.BlockInfo) []blockReport {
	out := make([]blockReport, 0, len(blocks))
	for _, blk := range blocks {
		br := blockReport{Name: blk.Name}
		for _, f := range blk.Fields {
			br.Fields = append(br.Fields, fieldReport{
				Name: f.Name, Kind: f.Kind.String(), Count: f.Count, Size: f.Size,
			})
		}
		out = append(out, br)
	}
	return out
}

func flagNames(f save.RowFlags) []string {
	var out []string
	for _, n := range []struct {
		flag save.RowFlags
		name string
	}{
		{save.RowGlobal, "global"},
		{save.RowMoveable, "moveable"},
		{save.RowRemoved, "removed"},
		{save.RowPlayer, "player"},
	} {
		if f.Has(n.flag) {
			out = append(out, n.name)
		}
	}
	return out
}

func printReport(out io.Writer, rep *report) {
	fmt.Fprintf(out, "%s (%d bytes)\n", rep.Source, rep.Bytes)
	fmt.Fprintf(out, "  session   %s\n", rep.Session)
	fmt.Fprintf(out, "  level     %s\n", rep.Level)
	fmt.Fprintf(out, "  time      %.3f\n", rep.Time)
	if rep.Landmark != "" {
		fmt.Fprintf(out, "  landmark  %s\n", rep.Landmark)
	}
	fmt.Fprintf(out, "  strings   %d\n\n", len(rep.Strings))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tCLASS\tFLAGS\tAT\tSIZE\tBLOCKS")
	for _, r := range rep.Rows {
		var blocks []string
		for _, b := range r.Blocks {
			blocks = append(blocks, fmt.Sprintf("%s(%d)", b.Name, len(b.Fields)))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n",
			r.Index, r.Classname, strings.Join(r.Flags, ","), r.Location, r.Size, strings.Join(blocks, " "))
	}
	tw.Flush()

	for _, s := range rep.Sections {
		fmt.Fprintf(out, "\nsection %s (%d bytes)\n", s.Name, s.Size)
		for _, b := range s.Blocks {
			fmt.Fprintf(out, "  %s\n", b.Name)
			for _, f := range b.Fields {
				fmt.Fprintf(out, "    %-20s %-9s x%d  %d bytes\n", f.Name, f.Kind, f.Count, f.Size)
			}
		}
	}
}
