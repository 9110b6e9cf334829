package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cosaflow/internal"
	"cosaflow/internal/blob"
	"cosaflow/internal/config"
	"cosaflow/internal/importer"
	"cosaflow/internal/pipeline"
	"cosaflow/internal/storage"
	"cosaflow/internal/validate"
	"cosaflow/internal/workbook"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "input xlsx path")
		output := fs.String("output", "", "annotated output xlsx path")
		reportPath := fs.String("report", "", "report json path (default stdout)")
		noDB := fs.Bool("no-db", false, "skip the persistence phase")
		singleRecord := fs.Bool("single-record", false, "persist one record per sheet")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		if *noDB {
			cfg.UseDB = false
		}
		if *singleRecord {
			cfg.SingleRecordMode = true
		}

		data, err := os.ReadFile(*input)
		must(err)
		svc := pipeline.NewProcessingService(db, cfg, blob.NewLocalStore(cfg.BackupDir))
		outcome, err := svc.ProcessWorkbookBytes(*input, data)
		must(err)

		out := *output
		if out == "" {
			base := filepath.Base(*input)
			out = filepath.Join(cfg.OutputDir, base)
		}
		must(os.MkdirAll(filepath.Dir(out), 0o755))
		must(os.WriteFile(out, outcome.Output, 0o644))
		must(writeReport(outcome.Report, *reportPath))
		fmt.Printf("process done output=%s\n", out)
	case "validate":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "input xlsx path")
		output := fs.String("output", "", "annotated output xlsx path")
		reportPath := fs.String("report", "", "report json path (default stdout)")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}

		data, err := os.ReadFile(*input)
		must(err)
		cfg.UseDB = false
		svc := pipeline.NewProcessingService(nil, cfg, nil)
		outcome, err := svc.ProcessWorkbookBytes(*input, data)
		must(err)

		if *output != "" {
			must(os.MkdirAll(filepath.Dir(*output), 0o755))
			must(os.WriteFile(*output, outcome.Output, 0o644))
		}
		must(writeReport(outcome.Report, *reportPath))
	case "import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "validated xlsx path")
		singleRecord := fs.Bool("single-record", false, "persist one record per sheet")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		if *singleRecord {
			cfg.SingleRecordMode = true
		}

		data, err := os.ReadFile(*input)
		must(err)
		wb, err := workbook.OpenBytes(data)
		must(err)
		if missing := wb.MissingRequired(internal.RequiredSheets()); missing != "" {
			must(fmt.Errorf("required sheet %q not found", missing))
		}
		results := importer.New(db, cfg).Run(wb)
		fmt.Printf("import done entities=%d transactions=%d errors=%d\n",
			results.EntitiesProcessed, results.TransactionsProcessed, len(results.Errors))
		for _, e := range results.Errors {
			fmt.Fprintf(os.Stderr, "  %s\n", e)
		}
	case "db:seed-params":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "text file, one parameter name per line")
		_ = fs.Parse(os.Args[2:])
		count, err := seedFromFile(*file, func(name string) error {
			existing, err := db.FindParamIDByName(name)
			if err != nil || existing != nil {
				return err
			}
			_, err = db.InsertParam(name)
			return err
		})
		must(err)
		fmt.Printf("seeded %d parameters\n", count)
	case "db:seed-countries":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "text file, one country name per line")
		_ = fs.Parse(os.Args[2:])
		count, err := seedFromFile(*file, func(name string) error {
			existing, err := db.FindCountryIDByName(name)
			if err != nil || existing != nil {
				return err
			}
			_, err = db.InsertCountry(name)
			return err
		})
		must(err)
		fmt.Printf("seeded %d countries\n", count)
	default:
		usage()
		os.Exit(1)
	}
}

func writeReport(report validate.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// seedFromFile applies insert to every non-empty, non-comment line.
func seedFromFile(path string, insert func(string) error) (int, error) {
	if strings.TrimSpace(path) == "" {
		return 0, fmt.Errorf("--file is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := insert(line); err != nil {
			return count, err
		}
		count++
	}
	return count, scanner.Err()
}

func usage() {
	fmt.Println("usage: cosaflow <command>")
	fmt.Println("commands:")
	fmt.Println("  process --input=book.xlsx [--output=out.xlsx] [--report=report.json] [--no-db] [--single-record]")
	fmt.Println("  validate --input=book.xlsx [--output=out.xlsx] [--report=report.json]")
	fmt.Println("  import --input=book.xlsx [--single-record]")
	fmt.Println("  db:seed-params --file=params.txt")
	fmt.Println("  db:seed-countries --file=countries.txt")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
