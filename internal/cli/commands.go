package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/specialistvlad/calcfield/internal/app"
	"github.com/specialistvlad/calcfield/internal/format"
	"github.com/specialistvlad/calcfield/internal/formula"
	"github.com/spf13/cobra"
)

// state is shared by the commands of one Execute call.
type state struct {
	outW   io.Writer
	errW   io.Writer
	getenv func(string) string

	// started is set once flags and arguments have been accepted.
	started bool

	logLevel  string
	logFormat string
}

// newApp validates cfg together with the global flags and builds the app.
func (s *state) newApp(cfg app.Config) (*app.App, error) {
	cfg.LogLevel = s.logLevel
	cfg.LogFormat = s.logFormat
	appConfig, err := app.NewConfig(cfg)
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	return app.NewApp(s.outW, s.errW, appConfig), nil
}

func newRootCmd(st *state) *cobra.Command {
	getenv := st.getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	defaultLevel := getenv(EnvLogLevel)
	if defaultLevel == "" {
		defaultLevel = "info"
	}

	rootCmd := &cobra.Command{
		Use:   "calcfield",
		Short: "Evaluate computed form fields",
		Long: `calcfield - parse, validate and evaluate the arithmetic formulas of
computed form fields, resolve the order they must be computed in, and
format their results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			st.started = true
			if _, err := app.NewConfig(app.Config{LogLevel: st.logLevel, LogFormat: st.logFormat}); err != nil {
				return &ExitError{Code: ExitUsage, Message: err.Error()}
			}
			st.logLevel = strings.ToLower(st.logLevel)
			st.logFormat = strings.ToLower(st.logFormat)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&st.logLevel, "log-level", defaultLevel,
		"Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	rootCmd.PersistentFlags().StringVar(&st.logFormat, "log-format", "text",
		"Log output format. Options: 'text' or 'json'.")

	rootCmd.AddCommand(
		newValidateCmd(st),
		newDepsCmd(st),
		newCalcCmd(st),
		newFormatCmd(st),
		newOrderCmd(st),
		newRunCmd(st),
		newCheckCmd(st),
		newServeCmd(st),
	)
	return rootCmd
}

func newValidateCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FORMULA",
		Short: "Check that a formula is well-formed",
		Example: `  calcfield validate '{price} * {qty}'
  calcfield validate '({a} + 2'
  calcfield validate -- '-{a} * 2'   # "--" ends flags before a leading minus`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := formula.ValidateFormula(args[0])
			if !v.IsValid {
				return &ExitError{Code: ExitFailure, Message: v.Error}
			}
			fmt.Fprintln(st.outW, "valid")
			return nil
		},
	}
}

func newDepsCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "deps FORMULA",
		Short: "List the fields a formula reads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := formula.Parse(args[0])
			if err != nil {
				return &ExitError{Code: ExitFailure, Message: err.Error()}
			}
			for _, dep := range formula.Dependencies(node) {
				fmt.Fprintln(st.outW, dep)
			}
			return nil
		},
	}
}

// formatFlags are the formatting flags shared by calc and format.
type formatFlags struct {
	typ       string
	precision int
	currency  string
}

func (f *formatFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.typ, "type", string(format.Decimal), "Result format. Options: 'decimal', 'currency', 'percentage'.")
	cmd.Flags().IntVar(&f.precision, "precision", format.DefaultPrecision, "Number of decimal places, 0 to 10.")
	cmd.Flags().StringVar(&f.currency, "currency", format.DefaultCurrency, "ISO 4217 currency code for the currency format.")
}

func (f *formatFlags) spec() format.Spec {
	return format.FromParts(f.typ, &f.precision, f.currency)
}

func newCalcCmd(st *state) *cobra.Command {
	var (
		values []string
		ff     formatFlags
	)
	cmd := &cobra.Command{
		Use:   "calc FORMULA",
		Short: "Evaluate a formula against field values",
		Example: `  calcfield calc '{loanamount} * {rate} / 100' --value loanamount=1000 --value rate=5
  calcfield calc '{total} / {qty}' --value total=99.9 --value qty=3 --type currency
  calcfield calc --value a=2 -- '-{a} * 3'   # "--" ends flags before a leading minus`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindings, err := parseValues(values)
			if err != nil {
				return err
			}
			calc := formula.CalculateValue(args[0], bindings)
			if calc.Err != nil {
				return &ExitError{Code: ExitFailure, Message: formula.UserMessage(calc.Err)}
			}
			fmt.Fprintln(st.outW, format.Format(*calc.Result, ff.spec()))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&values, "value", nil, "Field value as KEY=VALUE. Repeatable.")
	ff.register(cmd)
	return cmd
}

// parseValues turns KEY=VALUE pairs into bindings. Values stay strings,
// exactly as a form submission would deliver them.
func parseValues(pairs []string) (formula.Bindings, error) {
	bindings := make(formula.Bindings, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("invalid --value %q: expected KEY=VALUE", pair)}
		}
		bindings[strings.TrimSpace(key)] = value
	}
	return bindings, nil
}

func newFormatCmd(st *state) *cobra.Command {
	var ff formatFlags
	cmd := &cobra.Command{
		Use:     "format NUMBER",
		Short:   "Format a number for display",
		Example: `  calcfield format 1234.5 --type currency --currency EUR
  calcfield format --type currency -- -12.5`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
			if err != nil {
				return &ExitError{Code: ExitUsage, Message: fmt.Sprintf("invalid number %q", args[0])}
			}
			fmt.Fprintln(st.outW, format.Format(value, ff.spec()))
			return nil
		},
	}
	ff.register(cmd)
	return cmd
}

func newOrderCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "order FORM",
		Short: "Print the order in which a form's computed fields are evaluated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.newApp(app.Config{FormPath: args[0]})
			if err != nil {
				return err
			}
			return a.Order(cmd.Context())
		},
	}
}

func newRunCmd(st *state) *cobra.Command {
	var (
		valuesPath string
		workers    int
		output     string
	)
	cmd := &cobra.Command{
		Use:   "run FORM",
		Short: "Evaluate every computed field of a form",
		Example: `  calcfield run loan.hcl --values submission.yaml
  calcfield run forms/ --values submission.hcl --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.newApp(app.Config{
				FormPath:   args[0],
				ValuesPath: valuesPath,
				Workers:    workers,
				Output:     output,
			})
			if err != nil {
				return err
			}
			_, err = a.Run(cmd.Context())
			return err
		},
	}
	cmd.Flags().StringVar(&valuesPath, "values", "", "Path to a .hcl, .yaml or .yml file of submitted values.")
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of concurrent workers. 0 uses one per CPU.")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format. Options: 'table' or 'json'.")
	return cmd
}

func newCheckCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "check DIR",
		Short: "Validate every form file beneath a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.newApp(app.Config{})
			if err != nil {
				return err
			}
			if err := a.Check(cmd.Context(), args[0]); err != nil {
				return &ExitError{Code: ExitFailure, Message: "one or more forms are invalid"}
			}
			return nil
		},
	}
}

func newServeCmd(st *state) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve [FORM]",
		Short: "Run the formula preview HTTP server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config{ListenAddr: listen}
			if len(args) == 1 {
				cfg.FormPath = args[0]
			}
			a, err := st.newApp(cfg)
			if err != nil {
				return err
			}
			return a.Serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":8080", "Address the server listens on.")
	return cmd
}
