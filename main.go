// jurico — terminology-aware translation of legal documents.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexhaus/jurico/batch"
	"github.com/lexhaus/jurico/chunk"
	"github.com/lexhaus/jurico/document"
	"github.com/lexhaus/jurico/engine"
	"github.com/lexhaus/jurico/export"
	"github.com/lexhaus/jurico/glossary"
	"github.com/lexhaus/jurico/i18n"
	"github.com/lexhaus/jurico/job"
	"github.com/lexhaus/jurico/memory"
	"github.com/lexhaus/jurico/server"
	"github.com/lexhaus/jurico/settings"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir string
	dryRun  bool
	verbose bool
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jurico",
		Short: "Terminology-aware translation of legal documents",
		Long: `jurico — terminology-aware translation of legal documents.

Translates plain-text documents between the Swiss national languages
with a strict priority cascade: an aligned reference document overrides
everything, previously confirmed translations come from the memory
store, glossary terms are enforced in the model call, and only then is
fresh model output accepted. Every segment carries exactly one
provenance source recorded in the audit report.

Commands:
  translate   Translate one document
  batch       Translate every .txt file in a directory
  serve       Run the HTTP API
  glossary    List and edit glossaries
  export      Export memory (TMX) and glossaries (TBX)
  status      Show memory and glossary statistics`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flags — inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory (jurico.yaml location)")
	root.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Skip model calls, emit marked drafts")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Detailed logging of API calls and retries")

	root.AddCommand(
		newTranslateCmd(),
		newBatchCmd(),
		newServeCmd(),
		newGlossaryCmd(),
		newExportCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Component wiring
// ---------------------------------------------------------------------------

// app bundles the shared components built from settings and jurico.yaml.
type app struct {
	settings   settings.Settings
	project    *settings.Project
	memory     *memory.Store
	glossaries *glossary.Set
	manager    *job.Manager
}

func buildApp() (*app, error) {
	env, err := settings.Load()
	if err != nil {
		return nil, err
	}
	project, err := settings.LoadProject(rootDir)
	if err != nil {
		return nil, err
	}

	filter := memory.Filter{MinLen: project.MemoryMinLen}
	if project.MemoryPlaceholderPattern != "" {
		filter.Placeholder = regexp.MustCompile(project.MemoryPlaceholderPattern)
	} else {
		filter.Placeholder = memory.DefaultFilter().Placeholder
	}
	mem, err := memory.Open(filepath.Join(env.DataRoot, "memory.json"), filter)
	if err != nil {
		return nil, err
	}

	glossaryDir := project.GlossaryDir
	if !filepath.IsAbs(glossaryDir) {
		glossaryDir = filepath.Join(rootDir, glossaryDir)
	}
	set, err := glossary.LoadDir(glossaryDir, project.SourceLang, project.TargetLang, project.FuzzyScore)
	if err != nil {
		return nil, err
	}
	logInfo(i18n.N("Loaded %d glossary", "Loaded %d glossaries", len(set.Names())), len(set.Names()))

	var eng engine.Engine
	if dryRun {
		eng = engine.DryRun{}
	} else {
		if env.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set (use --dry-run to translate without the model)")
		}
		eng = engine.NewAnthropic(env.AnthropicAPIKey, engine.WithModel(env.Model), engine.WithVerbose(verbose))
	}

	splitter := chunk.NewSplitter(project.MaxChunkChars, project.OverlapChars)
	manager := job.NewManager(mem, set, eng, splitter, env.DataRoot, project.DuplicateWindow())

	return &app{
		settings:   env,
		project:    project,
		memory:     mem,
		glossaries: set,
		manager:    manager,
	}, nil
}

// langPair resolves the effective language pair from flags and config.
func (a *app) langPair(source, target string) (string, string) {
	if source == "" {
		source = a.project.SourceLang
	}
	if target == "" {
		target = a.project.TargetLang
	}
	return source, target
}

// ---------------------------------------------------------------------------
// translate (one document)
// ---------------------------------------------------------------------------

type translateOpts struct {
	source       string
	target       string
	refSource    string
	refTarget    string
	outPath      string
	instructions string
	noGlossary   bool
	noMemory     bool
}

func newTranslateCmd() *cobra.Command {
	var opts translateOpts

	cmd := &cobra.Command{
		Use:   "translate <file>",
		Short: "Translate one document",
		Long: `Translate a plain-text document.

The translated text is written next to the input (or to --out). The
audit report with provenance markers lands in the job work directory
under the data root.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			return runTranslate(a, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "Source language (default from jurico.yaml)")
	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "Target language (default from jurico.yaml)")
	cmd.Flags().StringVar(&opts.refSource, "ref-source", "", "Reference document, source side")
	cmd.Flags().StringVar(&opts.refTarget, "ref-target", "", "Reference document, target side")
	cmd.Flags().StringVarP(&opts.outPath, "out", "o", "", "Output file (default <input>.<target>.txt)")
	cmd.Flags().StringVar(&opts.instructions, "instructions", "", "Customer instructions passed to every model call")
	cmd.Flags().BoolVar(&opts.noGlossary, "no-glossary", false, "Skip glossary matching")
	cmd.Flags().BoolVar(&opts.noMemory, "no-memory", false, "Skip translation memory lookup and recording")
	return cmd
}

func runTranslate(a *app, inPath string, opts translateOpts) error {
	source, target := a.langPair(opts.source, opts.target)

	doc, err := document.Load(inPath)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	req := job.Request{
		SourceLang:      source,
		TargetLang:      target,
		Text:            strings.Join(doc.Paragraphs, "\n\n"),
		Instructions:    opts.instructions,
		DisableGlossary: opts.noGlossary,
		DisableMemory:   opts.noMemory,
	}
	if opts.refSource != "" || opts.refTarget != "" {
		if opts.refSource == "" || opts.refTarget == "" {
			return fmt.Errorf("--ref-source and --ref-target must be given together")
		}
		src, err := os.ReadFile(opts.refSource)
		if err != nil {
			return fmt.Errorf("reading reference source: %w", err)
		}
		tgt, err := os.ReadFile(opts.refTarget)
		if err != nil {
			return fmt.Errorf("reading reference target: %w", err)
		}
		req.RefSource = string(src)
		req.RefTarget = string(tgt)
	}

	logInfo(i18n.T("Translating %s"), inPath)
	j, dup, err := a.manager.Submit(req)
	if err != nil {
		return err
	}
	if dup {
		logWarning("identical submission within the duplicate window, reusing job %s", j.ID)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	status, err := a.manager.Wait(ctx, j.ID)
	if err != nil {
		// Interrupted: request cancellation and wait for the boundary.
		logWarning("interrupt received, cancelling job %s", j.ID)
		a.manager.Cancel(j.ID)
		waitCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		status, _ = a.manager.Wait(waitCtx, j.ID)
	}

	logInfo(i18n.T("Job %s finished: %s"), j.ID, status.State)
	if status.State != job.StateCompleted {
		if status.Error != "" {
			return fmt.Errorf("%s: %s", status.FailureKind, status.Error)
		}
		return fmt.Errorf("job ended in state %s", status.State)
	}

	result, err := a.manager.Result(j.ID)
	if err != nil {
		return err
	}
	outPath := opts.outPath
	if outPath == "" {
		outPath = strings.TrimSuffix(inPath, filepath.Ext(inPath)) + "." + target + ".txt"
	}
	if err := os.WriteFile(outPath, []byte(result), 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	logSuccess("%s -> %s (%d segments: %d reference, %d memory, %d model calls, %d glossary matches)",
		inPath, outPath, status.Total,
		status.Stats.ReferenceDocApplied, status.Stats.ReusedFromMemory,
		status.Stats.ModelCalls, status.Stats.GlossaryMatches)
	logInfo("report: %s", filepath.Join(j.WorkDir, "report.json"))
	return nil
}

// ---------------------------------------------------------------------------
// batch (directory of documents)
// ---------------------------------------------------------------------------

func newBatchCmd() *cobra.Command {
	var (
		source string
		target string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Translate every .txt file in a directory",
		Long: `Translate every .txt file in a directory, sequentially.

Outcomes are recorded in manifest.json in the output directory; one
failing file does not abort the batch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			source, target = a.langPair(source, target)
			if outDir == "" {
				outDir = args[0] + "-" + target
			}

			runner := &batch.Runner{
				Manager:    a.manager,
				SourceLang: source,
				TargetLang: target,
				OutDir:     outDir,
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			manifest, err := runner.Run(ctx, args[0])
			if err != nil {
				return err
			}
			logSuccess(i18n.T("Translated %d of %d files"), manifest.Completed(), len(manifest.Items))
			logInfo("manifest: %s", filepath.Join(outDir, "manifest.json"))
			if manifest.Completed() < len(manifest.Items) {
				return fmt.Errorf("%d files failed", len(manifest.Items)-manifest.Completed())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Source language")
	cmd.Flags().StringVarP(&target, "target", "t", "", "Target language")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default <dir>-<target>)")
	return cmd
}

// ---------------------------------------------------------------------------
// serve (HTTP API)
// ---------------------------------------------------------------------------

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API for job submission, status polling, cancellation,
artifact retrieval, and Prometheus metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			srv := server.New(a.manager, a.glossaries)
			logInfo(i18n.T("Listening on %s"), addr)
			return srv.Start(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}

// ---------------------------------------------------------------------------
// glossary (list / add / rm)
// ---------------------------------------------------------------------------

func newGlossaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "glossary",
		Short: "List and edit glossaries",
	}
	cmd.AddCommand(newGlossaryListCmd(), newGlossaryAddCmd(), newGlossaryRmCmd())
	return cmd
}

func newGlossaryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loaded glossaries and their entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			for _, g := range a.glossaries.All() {
				fmt.Printf("%s (%s -> %s, %d entries)\n", g.Name, g.SourceLang, g.TargetLang, g.Len())
				for _, e := range g.Entries() {
					if e.Context != "" {
						fmt.Printf("  %s -> %s  [%s]\n", e.Term, e.Translation, e.Context)
					} else {
						fmt.Printf("  %s -> %s\n", e.Term, e.Translation)
					}
				}
			}
			return nil
		},
	}
}

func newGlossaryAddCmd() *cobra.Command {
	var contextNote string

	cmd := &cobra.Command{
		Use:   "add <glossary> <term> <translation>",
		Short: "Add an entry to a glossary",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			g := a.glossaries.Get(args[0])
			if g == nil {
				return fmt.Errorf("glossary %q not found (have: %s)", args[0], strings.Join(a.glossaries.Names(), ", "))
			}
			if err := g.Add(glossary.Entry{Term: args[1], Translation: args[2], Context: contextNote}); err != nil {
				return err
			}
			logSuccess("added %q -> %q to %s", args[1], args[2], args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&contextNote, "context", "", "Usage note for the entry")
	return cmd
}

func newGlossaryRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <glossary> <term>",
		Short: "Remove an entry from a glossary",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			g := a.glossaries.Get(args[0])
			if g == nil {
				return fmt.Errorf("glossary %q not found", args[0])
			}
			if err := g.Delete(args[1]); err != nil {
				return err
			}
			logSuccess("removed %q from %s", args[1], args[0])
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// export (TMX / TBX)
// ---------------------------------------------------------------------------

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export memory (TMX) and glossaries (TBX)",
	}
	cmd.AddCommand(newExportTMXCmd(), newExportTBXCmd())
	return cmd
}

func newExportTMXCmd() *cobra.Command {
	var (
		source  string
		target  string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "tmx",
		Short: "Export the translation memory as TMX 1.4",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			source, target = a.langPair(source, target)
			if outPath == "" {
				outPath = fmt.Sprintf("memory.%s-%s.tmx", source, target)
			}
			if err := export.SaveTMX(outPath, a.memory, source, target, version); err != nil {
				return err
			}
			logSuccess("wrote %s", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Source language")
	cmd.Flags().StringVarP(&target, "target", "t", "", "Target language")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file")
	return cmd
}

func newExportTBXCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "tbx <glossary>",
		Short: "Export one glossary as TBX-Basic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			g := a.glossaries.Get(args[0])
			if g == nil {
				return fmt.Errorf("glossary %q not found (have: %s)", args[0], strings.Join(a.glossaries.Names(), ", "))
			}
			if outPath == "" {
				outPath = args[0] + ".tbx"
			}
			if err := export.SaveTBX(outPath, g); err != nil {
				return err
			}
			logSuccess("wrote %s", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file")
	return cmd
}

// ---------------------------------------------------------------------------
// status (read-only overview)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show memory and glossary statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "\n%sProject%s\n", colorBlue, colorReset)
			fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
			absRoot, _ := filepath.Abs(rootDir)
			fmt.Fprintf(os.Stderr, "  Root:       %s\n", absRoot)
			fmt.Fprintf(os.Stderr, "  Data root:  %s\n", a.settings.DataRoot)
			fmt.Fprintf(os.Stderr, "  Languages:  %s -> %s\n", a.project.SourceLang, a.project.TargetLang)
			fmt.Fprintf(os.Stderr, "  Chunking:   max %d chars, overlap %d\n", a.project.MaxChunkChars, a.project.OverlapChars)
			fmt.Fprintf(os.Stderr, "  Fuzzy:      threshold %d%%\n", a.project.FuzzyScore)

			fmt.Fprintf(os.Stderr, "\n%sMemory%s\n", colorBlue, colorReset)
			fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
			fmt.Fprintf(os.Stderr, "  "+i18n.N("Memory contains %d entry", "Memory contains %d entries", a.memory.Len())+"\n", a.memory.Len())

			fmt.Fprintf(os.Stderr, "\n%sGlossaries%s\n", colorBlue, colorReset)
			fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
			if len(a.glossaries.Names()) == 0 {
				fmt.Fprintln(os.Stderr, "  (none)")
			}
			for _, g := range a.glossaries.All() {
				fmt.Fprintf(os.Stderr, "  %-20s %d entries\n", g.Name, g.Len())
			}
			fmt.Fprintln(os.Stderr)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("jurico version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}
