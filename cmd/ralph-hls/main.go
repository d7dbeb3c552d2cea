package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"tlog.app/go/tlog"

	"github.com/raymyers/ralph-hls/pkg/cdfg"
	"github.com/raymyers/ralph-hls/pkg/config"
	"github.com/raymyers/ralph-hls/pkg/irfile"
	"github.com/raymyers/ralph-hls/pkg/liveness"
	"github.com/raymyers/ralph-hls/pkg/pipeline"
	"github.com/raymyers/ralph-hls/pkg/regalloc"
	"github.com/raymyers/ralph-hls/pkg/schedule"
)

var version = "0.1.0"

// Debug flags for dumping each stage
var (
	dCDFG  bool
	dSched bool
	dLive  bool
	dRegs  bool
	dAll   bool // spew dump of the whole result
)

var (
	configPath       string
	outputPath       string
	orderTerminators bool
	memoryOrder      bool
	verbose          bool
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// debugFlagNames lists the dump flags accepted in single-dash style
var debugFlagNames = []string{"dcdfg", "dsched", "dlive", "dregs"}

// normalizeFlags converts single-dash dump flags like -dsched to --dsched
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		for _, flagName := range debugFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
		if result[i] == "" {
			result[i] = arg
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ralph-hls [file.yaml]",
		Short: "ralph-hls schedules a CDFG and allocates its registers",
		Long: `ralph-hls is the backend of a high-level synthesis flow. It reads
one function as a control/data-flow graph, schedules every basic block
under functional-unit limits, computes variable lifetimes and packs
them into registers.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			return doRun(cmd, args[0], out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().BoolVarP(&dCDFG, "dcdfg", "", false, "Dump the CDFG")
	rootCmd.Flags().BoolVarP(&dSched, "dsched", "", false, "Dump the schedule")
	rootCmd.Flags().BoolVarP(&dLive, "dlive", "", false, "Dump liveness tables")
	rootCmd.Flags().BoolVarP(&dRegs, "dregs", "", false, "Dump register allocation")
	rootCmd.Flags().BoolVar(&dAll, "dump", false, "Dump the full pipeline result")

	rootCmd.Flags().StringVar(&configPath, "config", "", "Resource and scheduler configuration (YAML)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the result as YAML")
	rootCmd.Flags().BoolVar(&orderTerminators, "order-terminators", true, "Schedule BR/RET after the rest of their block")
	rootCmd.Flags().BoolVar(&memoryOrder, "memory-order", false, "Order LOAD/STORE pairs on the same array")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline progress to stderr")

	return rootCmd
}

// loadConfig reads --config and applies explicitly set scheduler flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	c := config.Default()
	if configPath != "" {
		var err error
		if c, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("order-terminators") {
		c.Scheduler.OrderTerminators = orderTerminators
	}
	if cmd.Flags().Changed("memory-order") {
		c.Scheduler.MemoryOrder = memoryOrder
	}
	return c, nil
}

// doRun runs the pipeline on filename and writes the requested dumps
func doRun(cmd *cobra.Command, filename string, out, errOut io.Writer) error {
	c, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-hls: %v\n", err)
		return err
	}

	g, err := irfile.Load(filename)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-hls: %v\n", err)
		return err
	}

	p, err := pipeline.FromConfig(c)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-hls: %v\n", err)
		return err
	}

	ctx := context.Background()
	if verbose {
		l := tlog.New(tlog.NewConsoleWriter(errOut, tlog.LstdFlags))
		ctx = tlog.ContextWithSpan(ctx, tlog.Span{Logger: l})
	}

	res, err := p.Run(ctx, g)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-hls: %s: %v\n", filename, err)
		return err
	}

	if dCDFG {
		if err := dump(filename, ".cdfg", out, errOut, func(w io.Writer) {
			cdfg.NewPrinter(w).PrintCDFG(g)
		}); err != nil {
			return err
		}
	}
	if dSched {
		if err := dump(filename, ".sched", out, errOut, func(w io.Writer) {
			schedule.NewPrinter(w).PrintSchedule(g, res.Schedule)
		}); err != nil {
			return err
		}
	}
	if dLive {
		if err := dump(filename, ".live", out, errOut, func(w io.Writer) {
			liveness.NewPrinter(w).PrintInfo(g, res.Liveness)
		}); err != nil {
			return err
		}
	}
	if dRegs {
		if err := dump(filename, ".regs", out, errOut, func(w io.Writer) {
			regalloc.NewPrinter(w).PrintResult(g, res.Registers)
		}); err != nil {
			return err
		}
	}
	if dAll {
		cfg := spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true, DisableCapacities: true}
		cfg.Fdump(out, res)
	}

	if outputPath != "" {
		if err := writeReport(outputPath, res); err != nil {
			fmt.Fprintf(errOut, "ralph-hls: error writing %s: %v\n", outputPath, err)
			return err
		}
	}

	fmt.Fprintf(errOut, "ralph-hls: %s: %d registers (%d local, %d global)\n",
		g.FunctionName, res.Registers.Stats.Total, res.Registers.Stats.Locals, res.Registers.Stats.Globals)
	return nil
}

// dump writes a stage dump next to the input file and to out
func dump(filename, ext string, out, errOut io.Writer, write func(io.Writer)) error {
	outputFilename := dumpFilename(filename, ext)

	outFile, err := os.Create(outputFilename)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-hls: error creating %s: %v\n", outputFilename, err)
		return err
	}
	defer outFile.Close()

	write(outFile)

	// Also print to stdout for convenience
	write(out)

	return nil
}

// dumpFilename returns the dump file for an input: f.yaml -> f.sched
func dumpFilename(filename, ext string) string {
	for _, in := range []string{".yaml", ".yml"} {
		if strings.HasSuffix(filename, in) {
			return filename[:len(filename)-len(in)] + ext
		}
	}
	return filename + ext
}

func writeReport(path string, res *pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return irfile.Write(f, irfile.NewReport(res))
}
