package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"archsmith/internal/facts"
	"archsmith/internal/logger"
	"archsmith/internal/regtest"
	"archsmith/internal/runner"
	"archsmith/internal/settings"
	"archsmith/internal/synth"
	"archsmith/internal/workspace"
)

// command describes a CLI subcommand. The commands slice is the single
// source of truth for both dispatch and help.
type command struct {
	name  string
	short string
	usage string
	long  string
	args  cobra.PositionalArgs
	flags func(fs *pflag.FlagSet)
	run   func(a *app, c *cobra.Command, args []string) error
}

var commands = []command{
	{
		name:  "init",
		short: "Create a new archsmith workspace",
		usage: "archsmith init <workspace> [--facts file]",
		long: `Create a new workspace at ~/.archsmith/<workspace>/.

Toolchain facts are read from --facts, or asked for interactively.
Errors if the workspace already exists.
`,
		args: cobra.ExactArgs(1),
		flags: func(fs *pflag.FlagSet) {
			fs.String("facts", "", "facts YAML file to import instead of prompting")
		},
		run: runInit,
	},
	{
		name:  "list",
		short: "List workspaces",
		usage: "archsmith list",
		long: `List every workspace under ~/.archsmith/ with its stored arch files.
`,
		args: cobra.ExactArgs(0),
		run:  runList,
	},
	{
		name:  "rm",
		short: "Delete a workspace",
		usage: "archsmith rm <workspace>",
		long: `Delete ~/.archsmith/<workspace>/ with its facts, arch files and reports.
`,
		args: cobra.ExactArgs(1),
		run:  runRemove,
	},
	{
		name:  "synth",
		short: "Synthesize the arch file for a workspace",
		usage: "archsmith synth <workspace> [--variant popt|psmp] [--install srcdir]",
		long: `Resolve the workspace facts and the environment into an arch file and
store it as ~/.archsmith/<workspace>/arch/Linux-x86-64-<toolchain>.<variant>.

With --install the stored arch files are also copied to <srcdir>/arch/.
`,
		args: cobra.ExactArgs(1),
		flags: func(fs *pflag.FlagSet) {
			fs.String("variant", "", "build variant, overrides the facts file")
			fs.String("install", "", "source tree to copy the arch files into")
		},
		run: runSynth,
	},
	{
		name:  "modinc",
		short: "Prepare vendor Fortran module files",
		usage: "archsmith modinc <workspace> <include-dir> [--out dir]",
		long: `Compile the vendor module sources in <include-dir> with $F77 and record
the output directory as the workspace module-include path.

Sources are selected by modinc.sources in .archsmith/settings.yaml.
`,
		args: cobra.ExactArgs(2),
		flags: func(fs *pflag.FlagSet) {
			fs.String("out", "", "output directory (default <workspace>/modinc)")
		},
		run: runModInc,
	},
	{
		name:  "regtest",
		short: "Judge captured regression-test output",
		usage: "archsmith regtest <workspace> <output-file> [--ignore-failures]",
		long: `Extract the test summary from captured harness output, apply the
acceptance policy and write a report to ~/.archsmith/<workspace>/reports/.

Exits non-zero when the build is rejected.
`,
		args: cobra.ExactArgs(2),
		flags: func(fs *pflag.FlagSet) {
			fs.Bool("ignore-failures", false, "treat failed tests as a warning")
			fs.String("arch", "", "arch file name the output belongs to")
		},
		run: runRegtest,
	},
	{
		name:  "report",
		short: "Show stored regression verdicts",
		usage: "archsmith report <workspace> [--arch name]",
		long: `Print the verdict of every stored report in the workspace, or only the
one for --arch. Exits non-zero if any shown verdict is a reject.
`,
		args: cobra.ExactArgs(1),
		flags: func(fs *pflag.FlagSet) {
			fs.String("arch", "", "only show the report for this arch file name")
		},
		run: runReport,
	},
	{
		name:  "harness-config",
		short: "Write the regression harness configuration",
		usage: "archsmith harness-config <workspace> <srcdir> [--stdout]",
		long: `Render cp2k_regtest.cfg for the source tree <srcdir> and write it next
to the tree, or to stdout with --stdout.
`,
		args: cobra.ExactArgs(2),
		flags: func(fs *pflag.FlagSet) {
			fs.Bool("stdout", false, "print instead of writing the file")
		},
		run: runHarnessConfig,
	},
}

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	root     string
	level    string
	timeout  time.Duration
	settings *settings.Settings
	log      *slog.Logger
	out      io.Writer
}

func (a *app) setup() error {
	s, err := settings.Load(a.root)
	if err != nil {
		return err
	}
	a.settings = s
	level := a.level
	if level == "" {
		level = s.Log.Level
	}
	a.log = logger.Init(level)
	return nil
}

func (a *app) runner() runner.Runner {
	return runner.New(a.log, a.timeout)
}

func newRootCmd() *cobra.Command {
	a := &app{out: os.Stdout}
	root := &cobra.Command{
		Use:           "archsmith",
		Short:         "archsmith: arch file synthesis and regression verdicts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			a.out = c.OutOrStdout()
			return a.setup()
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.root, "root", ".", "project root holding .archsmith/settings.yaml")
	pf.StringVar(&a.level, "log-level", "", "debug, info, warn or error (default from settings)")
	pf.DurationVar(&a.timeout, "timeout", 10*time.Minute, "limit for each external compiler invocation")

	for _, cmd := range commands {
		c := &cobra.Command{
			Use:   cmd.name,
			Short: cmd.short,
			Long:  "Usage: " + cmd.usage + "\n\n" + cmd.long,
			Args:  cmd.args,
		}
		run := cmd.run
		c.RunE = func(c *cobra.Command, args []string) error {
			return run(a, c, args)
		}
		if cmd.flags != nil {
			cmd.flags(c.Flags())
		}
		root.AddCommand(c)
	}
	return root
}

// ---------------------------------------------------------------------------
// init
// ---------------------------------------------------------------------------

func runInit(a *app, c *cobra.Command, args []string) error {
	name := args[0]
	path, _ := c.Flags().GetString("facts")

	var f *facts.Facts
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read facts: %w", err)
		}
		if f, err = facts.Parse(data); err != nil {
			return err
		}
	} else {
		answers, err := promptQuestions(facts.Questions)
		if err != nil {
			return fmt.Errorf("prompt: %w", err)
		}
		if f, err = facts.FromAnswers(answers); err != nil {
			return err
		}
	}

	w, err := workspace.Init(name, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created workspace %q at %s\n", name, w.Dir)
	return nil
}

// ---------------------------------------------------------------------------
// list / rm
// ---------------------------------------------------------------------------

func runList(a *app, _ *cobra.Command, _ []string) error {
	names, err := workspace.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(a.out, "no workspaces (run 'archsmith init <workspace>' first)")
		return nil
	}
	for _, name := range names {
		w, err := workspace.Open(name)
		if err != nil {
			return err
		}
		arch, err := w.ListArch()
		if err != nil {
			return err
		}
		if len(arch) == 0 {
			fmt.Fprintln(a.out, name)
			continue
		}
		fmt.Fprintf(a.out, "%s\t%s\n", name, strings.Join(arch, " "))
	}
	return nil
}

func runRemove(a *app, _ *cobra.Command, args []string) error {
	if err := workspace.Remove(args[0]); err != nil {
		return err
	}
	a.log.Info("workspace removed", "workspace", args[0])
	fmt.Fprintf(a.out, "removed workspace %q\n", args[0])
	return nil
}

// ---------------------------------------------------------------------------
// synth
// ---------------------------------------------------------------------------

func runSynth(a *app, c *cobra.Command, args []string) error {
	w, err := workspace.Open(args[0])
	if err != nil {
		return err
	}
	f, err := w.LoadFacts()
	if err != nil {
		return err
	}
	if v, _ := c.Flags().GetString("variant"); v != "" {
		f.Variant = facts.Variant(v)
	}

	res, err := synth.New(a.runner(), a.log).Synthesize(c.Context(), synth.RequestFrom(f))
	if err != nil {
		return err
	}
	path, err := w.WriteArch(synth.ArchFileName(f.Toolchain, f.Variant), res.Text)
	if err != nil {
		return err
	}
	a.log.Info("arch file written", "path", path, "provider", res.Provider, "directives", res.Options.Len())
	fmt.Fprintln(a.out, path)

	if src, _ := c.Flags().GetString("install"); src != "" {
		installed, err := w.Install(src)
		if err != nil {
			return err
		}
		for _, p := range installed {
			fmt.Fprintf(a.out, "  installed → %s\n", p)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// modinc
// ---------------------------------------------------------------------------

func runModInc(a *app, c *cobra.Command, args []string) error {
	w, err := workspace.Open(args[0])
	if err != nil {
		return err
	}
	f, err := w.LoadFacts()
	if err != nil {
		return err
	}

	incDir := args[1]
	sources, err := moduleSources(incDir, a.settings.ModInc.Sources)
	if err != nil {
		return err
	}
	out, _ := c.Flags().GetString("out")
	if out == "" {
		out = filepath.Join(w.Dir, "modinc")
	}
	if out, err = filepath.Abs(out); err != nil {
		return fmt.Errorf("modinc dir: %w", err)
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("create modinc dir: %w", err)
	}

	a.log.Info("preparing module files", "dir", out, "sources", len(sources))
	dir, err := synth.PrepareModInc(c.Context(), a.runner(), f.Env.F77, out, sources)
	if err != nil {
		return err
	}
	f.ModIncPath = dir
	if err := w.SaveFacts(f); err != nil {
		return err
	}
	fmt.Fprintln(a.out, dir)
	return nil
}

// moduleSources expands the configured patterns inside incDir into absolute
// paths, in pattern order without duplicates.
func moduleSources(incDir string, patterns []string) ([]string, error) {
	abs, err := filepath.Abs(incDir)
	if err != nil {
		return nil, fmt.Errorf("include dir: %w", err)
	}
	fsys := os.DirFS(abs)
	seen := make(map[string]bool)
	var sources []string
	for _, p := range patterns {
		matches, err := doublestar.Glob(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", p, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true
			sources = append(sources, filepath.Join(abs, filepath.FromSlash(m)))
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no module sources matching %s in %s", strings.Join(patterns, ", "), abs)
	}
	return sources, nil
}

// ---------------------------------------------------------------------------
// regtest
// ---------------------------------------------------------------------------

// errRejected marks a completed analysis whose verdict is reject.
var errRejected = errors.New("regression test rejected")

func runRegtest(a *app, c *cobra.Command, args []string) error {
	w, err := workspace.Open(args[0])
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read harness output: %w", err)
	}

	arch, _ := c.Flags().GetString("arch")
	if arch == "" {
		f, err := w.LoadFacts()
		if err != nil {
			return err
		}
		arch = synth.ArchFileName(f.Toolchain, f.Variant)
	}
	ignore, _ := c.Flags().GetBool("ignore-failures")
	ignore = ignore || a.settings.Regtest.IgnoreFailures

	o, err := regtest.Analyze(string(raw), ignore)
	if err != nil {
		return err
	}
	v, err := regtest.Evaluate(o)
	if err != nil {
		return err
	}
	for _, r := range v.Reasons {
		a.log.Log(c.Context(), severityLevel(r.Severity), r.Message, "category", r.Category)
	}

	report, err := regtest.WriteReport(arch, o, v)
	if err != nil {
		return err
	}
	path, err := w.WriteReport(arch, report)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s → %s\n", v.Summary(), path)
	if !v.Accept {
		return fmt.Errorf("%w: %s", errRejected, arch)
	}
	return nil
}

// ---------------------------------------------------------------------------
// report
// ---------------------------------------------------------------------------

func runReport(a *app, c *cobra.Command, args []string) error {
	w, err := workspace.Open(args[0])
	if err != nil {
		return err
	}
	var names []string
	if arch, _ := c.Flags().GetString("arch"); arch != "" {
		names = []string{arch}
	} else if names, err = w.ListReports(); err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintf(a.out, "no reports in workspace %q\n", w.Name)
		return nil
	}

	var rejected []string
	for _, name := range names {
		data, err := w.ReadReport(name)
		if err != nil {
			return err
		}
		h, _, err := regtest.ParseReport(data)
		if err != nil {
			return fmt.Errorf("%s: %w", w.ReportPath(name), err)
		}
		verdict := "accepted"
		if !h.Accept {
			verdict = "rejected"
			rejected = append(rejected, name)
		}
		fmt.Fprintf(a.out, "%s\t%s\ttotal=%d failed=%s wrong=%s new=%s correct=%s\n",
			name, verdict, h.Total, h.Failed, h.Wrong, h.New, h.Correct)
	}
	if len(rejected) > 0 {
		return fmt.Errorf("%w: %s", errRejected, strings.Join(rejected, ", "))
	}
	return nil
}

func severityLevel(s regtest.Severity) slog.Level {
	switch s {
	case regtest.SeverityReject:
		return slog.LevelError
	case regtest.SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// ---------------------------------------------------------------------------
// harness-config
// ---------------------------------------------------------------------------

func runHarnessConfig(a *app, c *cobra.Command, args []string) error {
	w, err := workspace.Open(args[0])
	if err != nil {
		return err
	}
	f, err := w.LoadFacts()
	if err != nil {
		return err
	}
	src, err := filepath.Abs(args[1])
	if err != nil {
		return fmt.Errorf("source dir: %w", err)
	}
	base := filepath.Dir(src)

	cores, err := regtest.TestCores(a.settings.Regtest.Parallel, f.Cores)
	if err != nil {
		return err
	}
	a.log.Info("using cores for the MPI tests", "cores", cores)

	if entries, err := os.ReadDir(base); err == nil {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() {
				names = append(names, e.Name())
			}
		}
		if ref, ok := regtest.ReferenceDir(names); ok {
			a.log.Info("using reference output", "dir", filepath.Join(base, ref))
		} else {
			a.log.Info("no reference output found, continuing without it")
		}
	}

	cfg := regtest.HarnessConfig{
		F90:       f.Env.F90,
		BaseDir:   base,
		Variant:   string(f.Variant),
		ArchTag:   synth.ArchTag(f.Toolchain),
		SourceDir: filepath.Base(src),
		MaxTasks:  a.settings.Regtest.MaxTasks,
		RunPrefix: regtest.MPIRunPrefix(cores),
	}
	text := cfg.Render()
	if toStdout, _ := c.Flags().GetBool("stdout"); toStdout {
		fmt.Fprint(a.out, text)
		return nil
	}
	path := filepath.Join(base, regtest.HarnessConfigName)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", regtest.HarnessConfigName, err)
	}
	a.log.Debug("harness config", "path", path, "contents", text)
	fmt.Fprintln(a.out, path)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "archsmith:", err)
		stop()
		os.Exit(1)
	}
}
