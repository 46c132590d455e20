// Command inkgrid-cli drives the extraction pipeline without the GUI:
// it inspects documents, extracts scenes, and writes parsed-scene
// archives.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"inkgrid"
	"inkgrid/pkg/api"
	"inkgrid/pkg/archive"
	"inkgrid/pkg/extract"
	"inkgrid/pkg/source"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "info":
		if len(os.Args) < 3 {
			fmt.Println("Usage: inkgrid-cli info <file>")
			os.Exit(1)
		}
		cmdInfo(os.Args[2])

	case "extract":
		if len(os.Args) < 3 {
			fmt.Println("Usage: inkgrid-cli extract <file.pdf> [options]")
			os.Exit(1)
		}
		cmdExtract(os.Args[2:])

	case "ops":
		if len(os.Args) < 4 {
			fmt.Println("Usage: inkgrid-cli ops <file.pdf> <page>")
			os.Exit(1)
		}
		page, _ := strconv.Atoi(os.Args[3])
		cmdOps(os.Args[2], page)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`inkgrid-cli - vector scene extraction for large drawings

Usage:
  inkgrid-cli <command> [arguments]

Commands:
  info <file>                    Show scene statistics for a document or archive
  ops <file.pdf> <page>          List drawing operators for a page
  extract <file.pdf> [options]   Extract a scene and write an archive
    -o <output.inkscene>         Output file (default: <input>.inkscene)
    -pages <n>                   Limit extraction to the first n pages
    -per-row <n>                 Pages per composition row
    -no-merge                    Disable collinear segment merging
    -no-cull                     Disable the visibility culler
    -raw-rasters                 Store raster layers as raw RGBA
    -store                       Disable archive compression
    -embed-source                Embed the input file in the archive
    -v                           Verbose logging

Examples:
  inkgrid-cli info drawing.pdf
  inkgrid-cli extract drawing.pdf -o drawing.inkscene -per-row 4`)
}

func cmdInfo(path string) {
	doc, err := api.Open(path)
	if err != nil {
		fmt.Printf("Error opening %s: %v\n", path, err)
		os.Exit(1)
	}

	s := doc.Scene
	fmt.Printf("File: %s\n", path)
	fmt.Println("----------------------------------------")
	fmt.Printf("Pages: %d (grid %d per row)\n", s.PageCount, s.PagesPerRow)
	fmt.Printf("Strokes: %d\n", s.StrokeCount)
	fmt.Printf("Fill paths: %d (%d segments)\n", s.FillPathCount, s.FillSegmentCount)
	fmt.Printf("Text instances: %d (%d glyphs, %d segments)\n",
		s.TextInstanceCount, s.GlyphCount, s.GlyphSegmentCount)
	fmt.Printf("Raster layers: %d\n", s.RasterLayerCount)
	fmt.Printf("Bounds: (%.2f, %.2f) - (%.2f, %.2f)\n",
		s.Bounds.MinX, s.Bounds.MinY, s.Bounds.MaxX, s.Bounds.MaxY)
	fmt.Printf("Max half-width: %.3f\n", s.MaxHalfWidth)
	fmt.Println("----------------------------------------")
	fmt.Printf("Source segments: %d\n", s.SourceSegmentCount)
	fmt.Printf("After merge: %d\n", s.MergedSegmentCount)
	fmt.Printf("Discarded: %d transparent, %d degenerate, %d duplicate, %d contained\n",
		s.DiscardedTransparent, s.DiscardedDegenerate,
		s.DiscardedDuplicate, s.DiscardedContained)
	if s.MalformedPathCount > 0 {
		fmt.Printf("Malformed paths: %d\n", s.MalformedPathCount)
	}
	fmt.Printf("Grid: %dx%d cells, max population %d\n",
		doc.Grid.Cols, doc.Grid.Rows, doc.Grid.MaxCellPopulation)
}

func cmdOps(path string, page int) {
	src, err := source.OpenPDFFile(path)
	if err != nil {
		fmt.Printf("Error opening %s: %v\n", path, err)
		os.Exit(1)
	}
	defer src.Close()

	ops, err := src.PageOperators(context.Background(), page)
	if err != nil {
		fmt.Printf("Error reading page %d: %v\n", page, err)
		os.Exit(1)
	}
	for _, op := range ops {
		fmt.Printf("%-4s %v\n", op.Name, op.Operands)
	}
}

func cmdExtract(args []string) {
	input := args[0]
	output := input + ".inkscene"

	var extractOpts []extract.Option
	var writeOpts []archive.WriteOption
	embedSource := false
	verbose := false

	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-o":
			if i+1 < len(args) {
				i++
				output = args[i]
			}
		case "-pages":
			if i+1 < len(args) {
				i++
				if n, err := strconv.Atoi(args[i]); err == nil {
					extractOpts = append(extractOpts, extract.MaxPages(n))
				}
			}
		case "-per-row":
			if i+1 < len(args) {
				i++
				if n, err := strconv.Atoi(args[i]); err == nil {
					extractOpts = append(extractOpts, extract.PagesPerRow(n))
				}
			}
		case "-no-merge":
			extractOpts = append(extractOpts, extract.NoSegmentMerge())
		case "-no-cull":
			extractOpts = append(extractOpts, extract.NoInvisibleCull())
		case "-raw-rasters":
			writeOpts = append(writeOpts, archive.RawRasters())
		case "-store":
			writeOpts = append(writeOpts, archive.Store())
		case "-embed-source":
			embedSource = true
		case "-v":
			verbose = true
		default:
			fmt.Printf("Unknown option: %s\n", args[i])
			os.Exit(1)
		}
	}

	if verbose {
		inkgrid.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	doc, err := api.OpenContext(ctx, input, extractOpts...)
	if err != nil {
		fmt.Printf("Error extracting %s: %v\n", input, err)
		os.Exit(1)
	}

	if embedSource {
		data, err := os.ReadFile(input)
		if err != nil {
			fmt.Printf("Error reading %s: %v\n", input, err)
			os.Exit(1)
		}
		writeOpts = append(writeOpts, archive.EmbedSource("source.pdf", data))
	}

	if err := doc.SaveArchive(output, writeOpts...); err != nil {
		fmt.Printf("Error writing %s: %v\n", output, err)
		os.Exit(1)
	}

	s := doc.Scene
	fmt.Printf("Wrote %s: %d strokes, %d fills, %d text instances, %d rasters\n",
		output, s.StrokeCount, s.FillPathCount, s.TextInstanceCount, s.RasterLayerCount)
}
