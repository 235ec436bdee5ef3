package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pardox/pardox"
	"github.com/pardox/pardox/internal/version"
)

func customUsage() {
	fmt.Fprintf(os.Stderr, "Pardox DataFrame Engine CLI (version %s)\n\n", version.Version)
	fmt.Fprintf(os.Stderr, "Usage: pardox-cli [options]\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	fmt.Fprintf(os.Stderr, "  --convert IN.csv --out OUT.prdx\n\t\tIngest a CSV file and persist it in the PRDX binary format\n")
	fmt.Fprintf(os.Stderr, "  --inspect FILE.prdx\n\t\tPrint the schema and shape of a PRDX file\n")
	fmt.Fprintf(os.Stderr, "  --head N\n\t\tWith --inspect, also print the first N rows\n")
	fmt.Fprintf(os.Stderr, "  --workers N\n\t\tWorker count for CSV ingestion (default: one per CPU)\n")
	fmt.Fprintf(os.Stderr, "  --no-header\n\t\tTreat the first CSV record as data\n")
	fmt.Fprintf(os.Stderr, "  -v, --version\n\t\tPrint version information and exit\n")
	fmt.Fprintf(os.Stderr, "  -h, --help\n\t\tShow this help message and exit\n")
}

func main() {
	versionFlag := flag.Bool("v", false, "Print version and exit")
	flag.BoolVar(versionFlag, "version", false, "Print version and exit") // alias
	convertFlag := flag.String("convert", "", "CSV file to ingest")
	outFlag := flag.String("out", "", "PRDX output path for --convert")
	inspectFlag := flag.String("inspect", "", "PRDX file to inspect")
	headFlag := flag.Int("head", 0, "Rows to print with --inspect")
	workersFlag := flag.Int("workers", 0, "Worker count for CSV ingestion")
	noHeaderFlag := flag.Bool("no-header", false, "Treat the first CSV record as data")

	//nolint:reassign // Standard Go pattern for customizing flag usage message
	flag.Usage = customUsage

	flag.Parse()

	switch {
	case *versionFlag:
		fmt.Print(version.Info().String())
	case *convertFlag != "":
		if *outFlag == "" {
			fmt.Fprintln(os.Stderr, "--convert requires --out")
			os.Exit(1)
		}
		if err := runConvert(*convertFlag, *outFlag, *workersFlag, !*noHeaderFlag); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case *inspectFlag != "":
		if err := runInspect(*inspectFlag, *headFlag); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	default:
		flag.Usage()
		os.Exit(1)
	}
}

func runConvert(in, out string, workers int, header bool) error {
	opts := pardox.DefaultCSVOptions()
	opts.Header = header
	if workers > 0 {
		opts.Workers = workers
	}

	start := time.Now()
	df, err := pardox.ReadCSVFile(context.Background(), in, opts)
	if err != nil {
		return err
	}
	defer df.Release()

	if err := df.ToPRDX(out); err != nil {
		return err
	}

	rows, cols := df.Shape()
	fmt.Printf("converted %s -> %s (%d rows, %d columns) in %v\n",
		in, out, rows, cols, time.Since(start).Round(time.Millisecond))
	return nil
}

func runInspect(path string, head int) error {
	df, err := pardox.ReadPRDX(path)
	if err != nil {
		return err
	}
	defer df.Release()

	fmt.Println(df.String())

	if head <= 0 {
		return nil
	}
	if head > df.Len() {
		head = df.Len()
	}

	for i := 0; i < head; i++ {
		for j, name := range df.Columns() {
			s, err := df.Column(name)
			if err != nil {
				return err
			}
			if j > 0 {
				fmt.Print("\t")
			}
			if v, ok := s.Value(i); !ok {
				fmt.Print("null")
			} else {
				switch v.DType {
				case pardox.Int64:
					fmt.Print(v.I)
				case pardox.Float64:
					fmt.Print(v.F)
				case pardox.Utf8:
					fmt.Print(v.S)
				}
			}
		}
		fmt.Println()
	}
	return nil
}
