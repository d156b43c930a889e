package cmd

import (
	stdctx "context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mpengine/mpcore/internal/bigint"
	"github.com/mpengine/mpcore/internal/obslog"
	"github.com/mpengine/mpcore/internal/term"
	"github.com/mpengine/mpcore/pkg/mpconfig"
	"github.com/mpengine/mpcore/pkg/telemetry"
)

var (
	// Global flags
	verbose    bool
	configPath string
	baseFlag   string
	precision  int

	logger obslog.Logger
	config *mpconfig.Config

	telemetryShutdown telemetry.ShutdownFunc
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "mpcore",
	Short: "A concurrent multi-precision big-integer arithmetic engine",
	Long: `mpcore evaluates multi-precision integer arithmetic expressed as a DAG of
constants and sums, scheduling the work across a fixed worker pool and realizing each
node's limbs only once every predecessor it depends on has been computed.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := obslog.LevelInfo
		if verbose {
			logLevel = obslog.LevelDebug
		}
		logger = obslog.NewDefaultLogger(logLevel, os.Stdout)
		obslog.SetGlobal(logger)

		cfg, err := mpconfig.Load(configPath)
		if err != nil {
			return err
		}
		config = cfg

		telemetry.SetEngineParams(baseFlag, precision)
		shutdown, err := telemetry.Init(stdctx.Background())
		if err != nil {
			logger.Warn("failed to initialize telemetry, continuing without it: %v", err)
			shutdown = func(stdctx.Context) error { return nil }
		}
		telemetryShutdown = shutdown

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if telemetryShutdown != nil {
			if err := telemetryShutdown(stdctx.Background()); err != nil {
				logger.Warn("telemetry shutdown failed: %v", err)
			}
		}
		return nil
	},
}

// Execute runs the root command and reports whether it failed. An unrecovered panic
// anywhere beneath it runs the termination-callback registry before re-panicking, so
// components like internal/healthsvc and internal/logsink that registered a callback
// still get to flip status / drain their buffers on the way down. Execute itself never
// calls os.Exit: main.go runs the registry once more on the normal-exit path (a no-op
// if the panic path already ran it) and then exits with the right status.
func Execute() (failed bool) {
	defer func() {
		if r := recover(); r != nil {
			term.Global().ExecuteAll(r)
			panic(r)
		}
	}()
	return rootCmd.Execute() != nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a mpcore config file (defaults to ./mpcore.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseFlag, "base", "dec", "I/O base for literals and output: dec, oct, or hex")
	rootCmd.PersistentFlags().IntVar(&precision, "precision", 64, "Minimum decimal/octal/hex digits of precision to reserve per value")

	binName := BinName()
	rootCmd.Example = `  # Evaluate an expression script
  ` + binName + ` eval ./expr.txt

  # Run the Fibonacci demo in hex
  ` + binName + ` demo fib 200

  # Export a DAG's graph/procedure JSON
  ` + binName + ` export ./expr.txt ./out

  # Start the health service
  ` + binName + ` serve --addr :7070`
}

// GetLogger returns the configured logger, valid only after PersistentPreRunE has run.
func GetLogger() obslog.Logger { return logger }

// GetConfig returns the loaded configuration, valid only after PersistentPreRunE has run.
func GetConfig() *mpconfig.Config { return config }

// BinName returns the base name of the current executable.
func BinName() string {
	return filepath.Base(os.Args[0])
}

// parseBase maps the --base flag's value onto bigint.IOBasic.
func parseBase(s string) (bigint.IOBasic, error) {
	switch s {
	case "dec", "":
		return bigint.Dec, nil
	case "oct":
		return bigint.Oct, nil
	case "hex":
		return bigint.Hex, nil
	default:
		return 0, fmt.Errorf("invalid base %q (valid: dec, oct, hex)", s)
	}
}
