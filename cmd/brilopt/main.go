// brilopt transforms Bril programs: it splices trace-driven speculative
// fast paths into main and runs the standalone cleanup passes.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tobiwg/bril/briltxt"
	"github.com/tobiwg/bril/ir"
	"github.com/tobiwg/bril/opt"
	"github.com/tobiwg/bril/speculate"
	"github.com/tobiwg/bril/trace"
)

var (
	traceFlag = &cli.StringFlag{
		Name:  "trace",
		Usage: "`FILE` holding the recorded trace, one JSON operation per line",
	}
	bailFlag = &cli.StringFlag{
		Name:  "bail",
		Value: "bail",
		Usage: "base `NAME` for the fallback label",
	}
	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "write the result to `FILE` instead of stdout",
	}
	prettyFlag = &cli.BoolFlag{
		Name:  "pretty",
		Usage: "indent JSON output",
	}
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML `FILE` with defaults for the other flags",
	}
	cleanFlag = &cli.BoolFlag{
		Name:  "clean",
		Usage: "run trivial dead code elimination after hoisting",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Value: 0,
		Usage: "diagnostic verbosity: 0=silent, 3=info, 5=debug (stderr only)",
	}
)

var (
	speculateCommand = &cli.Command{
		Action:    doSpeculate,
		Name:      "speculate",
		Usage:     "Splice a guarded speculative fast path into main",
		ArgsUsage: "[program.json]",
		Flags:     []cli.Flag{traceFlag, bailFlag},
		Description: `
Reads a Bril program (file argument or stdin) and a recorded straight-line
trace, reduces the trace, lowers control transfers into runtime guards, and
emits the program in text form with main rewritten: a speculate/commit
bracket running the guarded trace, deferred prints after commit, and the
original body behind the bail label as a verified fallback.`,
	}
	renderCommand = &cli.Command{
		Action:    doRender,
		Name:      "render",
		Usage:     "Serialize a JSON program to its text form",
		ArgsUsage: "[program.json]",
	}
	tdceCommand = &cli.Command{
		Action:    doTDCE,
		Name:      "tdce",
		Usage:     "Delete trivially dead assignments in every function",
		ArgsUsage: "[program.json]",
	}
	lvnCommand = &cli.Command{
		Action:    doLVN,
		Name:      "lvn",
		Usage:     "Run local value numbering plus dead code elimination",
		ArgsUsage: "[program.json]",
	}
	licmCommand = &cli.Command{
		Action:    doLICM,
		Name:      "licm",
		Usage:     "Hoist loop-invariant computations into loop preheaders",
		ArgsUsage: "[program.json]",
		Flags:     []cli.Flag{cleanFlag},
	}
)

var app = &cli.App{
	Name:     "brilopt",
	Usage:    "trace-driven speculative optimizer for Bril programs",
	Flags:    []cli.Flag{outputFlag, prettyFlag, configFlag, verbosityFlag},
	Before:   setup,
	Commands: []*cli.Command{speculateCommand, renderCommand, tdceCommand, lvnCommand, licmCommand},
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "brilopt:", err)
		os.Exit(1)
	}
}

func setup(ctx *cli.Context) error {
	if path := ctx.String(configFlag.Name); path != "" {
		if err := loadConfig(path); err != nil {
			return err
		}
	}
	verbosity := ctx.Int(verbosityFlag.Name)
	if !ctx.IsSet(verbosityFlag.Name) && cfg.Verbosity > 0 {
		verbosity = cfg.Verbosity
	}
	initLogger(verbosity)
	return nil
}

// initLogger routes diagnostics to stderr so stdout stays a clean data
// stream for the transformed program.
func initLogger(verbosity int) {
	var w io.Writer = os.Stderr
	level := slog.LevelError
	switch {
	case verbosity <= 0:
		w = io.Discard
	case verbosity == 1:
		level = slog.LevelError
	case verbosity == 2:
		level = slog.LevelWarn
	case verbosity == 3:
		level = slog.LevelInfo
	default:
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func doSpeculate(ctx *cli.Context) error {
	tracePath := stringOpt(ctx, traceFlag.Name, cfg.Trace)
	if tracePath == "" {
		return errors.New("no trace input (--trace is required)")
	}
	t, err := trace.ReadFile(tracePath)
	if err != nil {
		return err
	}
	prog, err := loadProgram(ctx)
	if err != nil {
		return err
	}
	slog.Info("inputs loaded", "trace", tracePath, "instructions", len(t), "functions", len(prog.Functions))

	opts := speculate.Options{BailLabel: stringOpt(ctx, bailFlag.Name, cfg.Bail)}
	if err := speculate.Transform(prog, t, opts); err != nil {
		return err
	}
	text, err := briltxt.Render(prog)
	if err != nil {
		return err
	}
	return writeOutput(ctx, []byte(text))
}

func doRender(ctx *cli.Context) error {
	prog, err := loadProgram(ctx)
	if err != nil {
		return err
	}
	text, err := briltxt.Render(prog)
	if err != nil {
		return err
	}
	return writeOutput(ctx, []byte(text))
}

func doTDCE(ctx *cli.Context) error {
	prog, err := loadProgram(ctx)
	if err != nil {
		return err
	}
	for _, fn := range prog.Functions {
		if opt.TrivialDCE(fn) {
			slog.Debug("removed dead assignments", "function", fn.Name)
		}
	}
	return writeJSON(ctx, prog)
}

func doLVN(ctx *cli.Context) error {
	prog, err := loadProgram(ctx)
	if err != nil {
		return err
	}
	for _, fn := range prog.Functions {
		opt.LVN(fn)
	}
	return writeJSON(ctx, prog)
}

func doLICM(ctx *cli.Context) error {
	prog, err := loadProgram(ctx)
	if err != nil {
		return err
	}
	for _, fn := range prog.Functions {
		if opt.LICM(fn) {
			slog.Debug("hoisted loop invariants", "function", fn.Name)
		}
		if ctx.Bool(cleanFlag.Name) {
			opt.TrivialDCE(fn)
		}
	}
	return writeJSON(ctx, prog)
}

// loadProgram reads the program document from the first argument, or stdin
// when no argument is given.
func loadProgram(ctx *cli.Context) (*ir.Program, error) {
	var (
		data []byte
		err  error
	)
	if path := ctx.Args().First(); path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return nil, err
	}
	return ir.ReadProgram(data)
}

func writeJSON(ctx *cli.Context, prog *ir.Program) error {
	var (
		data []byte
		err  error
	)
	if ctx.Bool(prettyFlag.Name) || cfg.Pretty {
		data, err = json.MarshalIndent(prog, "", "  ")
	} else {
		data, err = json.Marshal(prog)
	}
	if err != nil {
		return err
	}
	return writeOutput(ctx, append(data, '\n'))
}

func writeOutput(ctx *cli.Context, data []byte) error {
	if path := stringOpt(ctx, outputFlag.Name, cfg.Output); path != "" {
		return os.WriteFile(path, data, 0644)
	}
	_, err := os.Stdout.Write(data)
	return err
}

// stringOpt resolves a flag against the config file: an explicitly set flag
// wins, then the config value, then the flag default.
func stringOpt(ctx *cli.Context, name, fromConfig string) string {
	if ctx.IsSet(name) || fromConfig == "" {
		return ctx.String(name)
	}
	return fromConfig
}
