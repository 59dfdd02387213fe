// Command cutstock is a thin CLI wrapper around internal/engine: a
// cobra root with optimize/compare/validate subcommands, mapping
// engine errors to exit codes (0 success, 2 validation rejected, 3
// infeasible plan, 4 cancellation, 5 internal inconsistency). This
// replaces an interactive stdin wizard entirely, but keeps its
// length-parsing helpers alive in internal/lengthfmt for the optional
// --feet-inches display mode.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/profileopt/cutstock/internal/classify"
	"github.com/profileopt/cutstock/internal/cuterr"
	"github.com/profileopt/cutstock/internal/engine"
	"github.com/profileopt/cutstock/internal/lengthfmt"
	"github.com/profileopt/cutstock/internal/model"
	"github.com/profileopt/cutstock/internal/policy"
	"github.com/profileopt/cutstock/internal/report"
)

// Version information, overridable at build time with -ldflags "-X".
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

const (
	exitOK                     = 0
	exitValidationRejected     = 2
	exitInfeasible             = 3
	exitCancelled              = 4
	exitInternalInconsistency  = 5
)

func main() {
	klog.InitFlags(nil)
	os.Exit(run())
}

func run() int {
	var (
		inputPath  string
		outputPath string
		feetInches bool
		useHTML    bool
		algorithm  string
		seed       int64
		workers    int
		budgetMS   int64
	)

	root := &cobra.Command{
		Use:     "cutstock",
		Short:   "1D aluminium cutting-stock optimizer",
		Version: fmt.Sprintf("%s (%s) built %s", Version, Commit, BuildTime),
	}

	optimizeCmd := &cobra.Command{
		Use:   "optimize",
		Short: "Compute a cut plan for a demand/constraint request",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadRequest(inputPath)
			if err != nil {
				return err
			}
			if algorithm != "" {
				req.Algorithm = classify.Algorithm(algorithm)
			}
			req.Performance.Seed = seed
			req.Performance.Workers = workers
			req.Performance.BudgetMS = budgetMS

			eng := engine.New(engine.Config{MaxConcurrentOptimizations: 16})
			res, err := eng.Optimise(cmd.Context(), req)
			if err != nil {
				return err
			}
			return emitPlan(res, outputPath, useHTML, feetInches)
		},
	}
	optimizeCmd.Flags().StringVarP(&inputPath, "input", "i", "", "path to a JSON optimise request (- for stdin)")
	optimizeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "path to write the result (- or empty for stdout)")
	optimizeCmd.Flags().StringVarP(&algorithm, "algorithm", "a", "", "explicit algorithm override (ffd|bfd|nfd|wfd|genetic|simulated-annealing|branch-and-bound)")
	optimizeCmd.Flags().Int64Var(&seed, "seed", 1, "deterministic seed for metaheuristics")
	optimizeCmd.Flags().IntVar(&workers, "workers", 1, "worker pool size for metaheuristics")
	optimizeCmd.Flags().Int64Var(&budgetMS, "budget-ms", 10_000, "time budget in milliseconds for metaheuristics")
	optimizeCmd.Flags().BoolVar(&feetInches, "feet-inches", false, "pretty-print lengths as feet/inches instead of mm")
	optimizeCmd.Flags().BoolVar(&useHTML, "html", false, "render an HTML cut-ticket instead of JSON")
	_ = optimizeCmd.MarkFlagRequired("input")

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "Run several algorithms against the same request and rank them",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadRequest(inputPath)
			if err != nil {
				return err
			}
			algos := make([]classify.Algorithm, 0, len(args))
			for _, a := range args {
				algos = append(algos, classify.Algorithm(a))
			}
			if len(algos) == 0 {
				algos = []classify.Algorithm{classify.AlgoFFD, classify.AlgoBFD, classify.AlgoNFD, classify.AlgoWFD}
			}
			eng := engine.New(engine.Config{MaxConcurrentOptimizations: 16})
			comparisons, best, err := eng.Compare(cmd.Context(), req, algos)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"comparisons": comparisons, "best": best})
		},
	}
	compareCmd.Flags().StringVarP(&inputPath, "input", "i", "", "path to a JSON optimise request (- for stdin)")
	_ = compareCmd.MarkFlagRequired("input")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Run the input validation policy against a request without optimising",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadRequest(inputPath)
			if err != nil {
				return err
			}
			outcome, findings, _ := policy.Evaluate(policy.Request{Demands: req.Demands, Constraints: req.Constraints, Unit: string(req.Unit)})
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(map[string]any{"outcome": outcome, "findings": findings}); err != nil {
				return err
			}
			if outcome == policy.Rejected {
				return cuterr.Validation(req.CorrelationID, "rejected by validation policy")
			}
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&inputPath, "input", "i", "", "path to a JSON optimise request (- for stdin)")
	_ = validateCmd.MarkFlagRequired("input")

	root.AddCommand(optimizeCmd, compareCmd, validateCmd)
	root.SetContext(context.Background())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitCodeFor(err)
	}
	return exitOK
}

// requestDoc is the on-the-wire JSON shape for an optimise request.
type requestDoc struct {
	engine.Request
}

func loadRequest(path string) (engine.Request, error) {
	var f *os.File
	if path == "" || path == "-" {
		f = os.Stdin
	} else {
		var err error
		f, err = os.Open(path)
		if err != nil {
			return engine.Request{}, fmt.Errorf("cutstock: cannot open input %q: %w", path, err)
		}
		defer f.Close()
	}

	var doc requestDoc
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return engine.Request{}, fmt.Errorf("cutstock: cannot parse request JSON: %w", err)
	}
	return doc.Request, nil
}

func emitPlan(res engine.Result, outputPath string, useHTML, feetInches bool) error {
	var out *os.File
	if outputPath == "" || outputPath == "-" {
		out = os.Stdout
	} else {
		var err error
		out, err = os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("cutstock: cannot create output %q: %w", outputPath, err)
		}
		defer out.Close()
	}

	if useHTML {
		return report.WriteHTML(out, res.Plan, 0)
	}

	if feetInches {
		return writeFeetInchesSummary(out, res.Plan)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Plan)
}

// writeFeetInchesSummary prints a plain-text cut list with lengths in
// feet/inches, for shop-floor reading rather than machine consumption.
// The JSON wire format always stays in mm.
func writeFeetInchesSummary(out io.Writer, p model.Plan) error {
	fmt.Fprintf(out, "Algorithm: %s  Bars: %d  Efficiency: %.1f%%\n", p.Algorithm, p.Totals.StockCount, p.Totals.Efficiency)
	for i, b := range p.Bars {
		fmt.Fprintf(out, "Bar %d (%s, stock %s):\n", i+1, b.ProfileType, lengthfmt.PrettyInches(mmToInches(b.StockLength)))
		for _, pl := range b.Placements {
			fmt.Fprintf(out, "  cut %s\n", lengthfmt.PrettyInches(mmToInches(pl.Length)))
		}
		fmt.Fprintf(out, "  remaining %s\n", lengthfmt.PrettyInches(mmToInches(b.RemainingLength)))
	}
	return nil
}

func mmToInches(mm int64) int64 {
	return int64(float64(mm) / 25.4)
}

func exitCodeFor(err error) int {
	var ce *cuterr.Error
	if !errors.As(err, &ce) {
		return exitInternalInconsistency
	}
	switch ce.Kind {
	case cuterr.ValidationRejected, cuterr.ConstraintViolation, cuterr.ConfigError:
		return exitValidationRejected
	case cuterr.Infeasible:
		return exitInfeasible
	case cuterr.Cancelled:
		return exitCancelled
	default:
		return exitInternalInconsistency
	}
}
