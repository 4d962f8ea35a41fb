package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"stockimport/internal"
	"stockimport/internal/catalog"
	"stockimport/internal/config"
	"stockimport/internal/connectors"
	"stockimport/internal/listener"
	"stockimport/internal/logging"
	"stockimport/internal/pipeline"
	"stockimport/internal/storage"
	"stockimport/internal/validate"
)

// fileList collects a repeated --file flag.
type fileList []string

func (f *fileList) String() string { return strings.Join(*f, ",") }

func (f *fileList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	switch cmd {
	case "sources:load":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", cfg.SourcesFile, "sources yaml/json/toml file")
		_ = fs.Parse(os.Args[2:])
		loaded, err := config.LoadSources(*file)
		must(err)
		if len(loaded.Colors) > 0 {
			must(db.ReplaceColors(ctx, loaded.Colors))
		}
		for _, src := range loaded.Sources {
			must(db.UpsertSource(ctx, src))
		}
		fmt.Printf("sources loaded sources=%d colors=%d\n", len(loaded.Sources), len(loaded.Colors))
	case "import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		source := fs.String("source", "", "data source id")
		var files fileList
		fs.Var(&files, "file", "spreadsheet path (repeatable)")
		dryRun := fs.Bool("dry-run", false, "run the pipeline without persisting")
		out := fs.String("out", "", "optional xlsx export of the final items")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*source) == "" || len(files) == 0 {
			must(fmt.Errorf("--source and --file are required"))
		}
		in, err := readInputs(files)
		must(err)
		svc := pipeline.NewImportService(db, logger)
		res, err := svc.Import(ctx, pipeline.Request{SourceID: *source, Files: in, DryRun: *dryRun})
		var blocked *validate.BlockedError
		if errors.As(err, &blocked) {
			printResult(res)
			fmt.Fprintf(os.Stderr, "import blocked: %v\n", blocked)
			os.Exit(2)
		}
		must(err)
		printResult(res)
		if *out != "" {
			must(pipeline.ExportXLSX(res.Items, &res.Report, *out))
			fmt.Printf("exported %d items to %s\n", len(res.Items), *out)
		}
	case "detect":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		var files fileList
		fs.Var(&files, "file", "spreadsheet path (repeatable)")
		name := fs.String("name", "", "supplier name for vendor matching")
		source := fs.String("source", "", "data source id")
		_ = fs.Parse(os.Args[2:])
		if len(files) == 0 {
			must(fmt.Errorf("--file is required"))
		}
		in, err := readInputs(files)
		must(err)
		id, err := pipeline.NewImportService(db, logger).Detect(ctx, *source, *name, in)
		must(err)
		fmt.Printf("format=%s provenance=%s", id.ID, id.Provenance)
		if id.Reason != "" {
			fmt.Printf(" reason=%q", id.Reason)
		}
		fmt.Println()
	case "catalog:sync-prices":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		full := fs.Bool("full", false, "ignore the last sync time")
		_ = fs.Parse(os.Args[2:])
		must(cfg.Require("CATALOG_API_BASE_URL", cfg.CatalogAPIBaseURL))
		svc := catalog.NewSyncService(db, cfg, logger)
		count, err := svc.SyncPrices(ctx, *full)
		must(err)
		fmt.Printf("price sync complete styles=%d\n", count)
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.MailListenerLabel, "mailbox/label")
		max := fs.Int("max", cfg.MailListenerFetchMax, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := listener.MakeConnector(cfg, *provider)
		must(err)
		sources, err := db.ListSources(ctx)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(ctx, connectors.FetchQuery{Label: *label, Max: *max, Senders: connectors.SupplierSenders(sources)})
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "", "only process mails from this provider")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", cfg.MailListenerProcessBatch, "batch size")
		_ = fs.Parse(os.Args[2:])
		processor := pipeline.NewMailProcessor(db, pipeline.NewImportService(db, logger), logger)
		if strings.TrimSpace(*messageID) != "" {
			if *provider == "" {
				must(fmt.Errorf("--provider is required with --messageId"))
			}
			email, err := db.GetEmailByProviderMessageID(ctx, *provider, *messageID)
			must(err)
			if email == nil {
				must(fmt.Errorf("no stored email provider=%s messageId=%s", *provider, *messageID))
			}
			res, err := processor.ProcessEmail(ctx, *email)
			must(err)
			fmt.Printf("processed email id=%d status=%s source=%s\n", res.EmailID, res.Status, res.SourceID)
			return
		}
		sum, err := processor.ProcessPending(ctx, *batch, *provider)
		must(err)
		fmt.Printf("processed pending emails=%d imported=%d skipped=%d failed=%d blocked=%d\n",
			sum.Processed, sum.Imported, sum.Skipped, sum.Failed, sum.Blocked)
	case "mail:listen":
		s := listener.NewService(db, cfg, logger)
		must(s.Run(ctx))
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		source := fs.String("source", "", "data source id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*source) == "" {
			must(fmt.Errorf("--source is required"))
		}
		if *out == "" {
			*out = filepath.Join(cfg.OutputDir, *source+".xlsx")
		}
		items, err := db.ListInventory(ctx, *source)
		must(err)
		if len(items) == 0 {
			must(fmt.Errorf("no inventory for source=%s", *source))
		}
		var report *internal.ValidationReport
		runs, err := db.ListRuns(ctx, *source, 1)
		must(err)
		if len(runs) > 0 {
			report = &runs[0].Report
		}
		must(pipeline.ExportXLSX(items, report, *out))
		fmt.Printf("exported %d items to %s\n", len(items), *out)
	case "snapshot:show":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		source := fs.String("source", "", "data source id")
		_ = fs.Parse(os.Args[2:])
		snap, err := db.LatestSnapshot(ctx, *source)
		must(err)
		if snap == nil {
			must(fmt.Errorf("no snapshot for source=%s", *source))
		}
		printJSON(snap)
	case "runs:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		source := fs.String("source", "", "data source id")
		limit := fs.Int("limit", 10, "max runs")
		_ = fs.Parse(os.Args[2:])
		runs, err := db.ListRuns(ctx, *source, *limit)
		must(err)
		for _, r := range runs {
			fmt.Printf("%s %s status=%s format=%s final=%d file=%s\n",
				r.StartedAt.Format("2006-01-02 15:04:05"), r.ID, r.Status, r.Format.ID, r.Counts["final"], r.FileName)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func readInputs(paths []string) ([]pipeline.File, error) {
	files := make([]pipeline.File, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, pipeline.File{Name: filepath.Base(p), Content: content})
	}
	return files, nil
}

func printResult(res pipeline.Result) {
	fmt.Printf("import %s source=%s upload=%s format=%s (%s) extracted=%s\n",
		res.Status, res.SourceID, res.UploadID, res.Format.ID, res.Format.Provenance, res.ExtractedWith)
	fmt.Printf("  parsed=%d final=%d stockExpanded=%d skippedRows=%d\n",
		res.Counts.Parsed, res.Counts.Final, res.StockExpanded, res.SkippedRows)
	for _, c := range res.Report.Failures() {
		fmt.Printf("  check failed: %s: %s\n", c.Name, c.Message)
	}
	for _, w := range res.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	must(enc.Encode(v))
}

func usage() {
	fmt.Println("usage: stockimport <command>")
	fmt.Println("commands:")
	fmt.Println("  sources:load [--file=sources.yaml]")
	fmt.Println("  import --source=ID --file=PATH [--file=PATH...] [--dry-run] [--out=result.xlsx]")
	fmt.Println("  detect --file=PATH [--name=SUPPLIER] [--source=ID]")
	fmt.Println("  catalog:sync-prices [--full]")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:process [--provider=gmail|imap] [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
	fmt.Println("  export:xlsx --source=ID [--out=./out/ID.xlsx]")
	fmt.Println("  snapshot:show --source=ID")
	fmt.Println("  runs:list --source=ID [--limit=10]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
