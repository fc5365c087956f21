package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chazu/carve/pkg/build"
	"github.com/chazu/carve/pkg/config"
	"github.com/chazu/carve/pkg/demo"
	"github.com/chazu/carve/pkg/errs"
	"github.com/chazu/carve/pkg/region"
	"github.com/chazu/carve/pkg/vardb"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "carve",
		Short:         "Constructive solid geometry for transport-code input decks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newBuildCmd(), newCheckCmd())
	return root
}

func newBuildCmd() *cobra.Command {
	var configPath, varsPath, outPath, form string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the reference model and write its cell and surface cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(configPath)
			if err != nil {
				return err
			}
			log, err := config.NewLogger(cmd.ErrOrStderr(), settings.LogLevel)
			if err != nil {
				return err
			}
			vars := vardb.New()
			if varsPath != "" {
				if err := loadVars(vars, varsPath); err != nil {
					return err
				}
			}

			ctx, err := build.NewContext(settings, log)
			if err != nil {
				return err
			}
			d, err := demo.NewModel().Driver()
			if err != nil {
				return err
			}
			if err := d.Run(ctx, vars); err != nil {
				return err
			}
			if form != "" {
				if err := ctx.Normalize(form); err != nil {
					return err
				}
			}

			if outPath == "" {
				return writeDeck(cmd.OutOrStdout(), ctx)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			if err := writeDeck(f, ctx); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "settings file (YAML)")
	cmd.Flags().StringVar(&varsPath, "vars", "", "variable file (YAML mapping of names to numbers or expressions)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write the deck here instead of stdout")
	cmd.Flags().StringVar(&form, "form", "", "rewrite every cell as dnf or cnf, within the settings' max_terms")
	return cmd
}

func loadVars(db *vardb.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := db.LoadYAML(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// writeDeck writes the cell block, a blank line and the surface block.
func writeDeck(w io.Writer, ctx *build.Context) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "carve run %s\n", ctx.ID)
	if err := ctx.Cells.WriteCards(bw); err != nil {
		return err
	}
	fmt.Fprintln(bw)
	if err := ctx.Surfaces.WriteCards(bw); err != nil {
		return err
	}
	return bw.Flush()
}

func newCheckCmd() *cobra.Command {
	var dnf, cnf bool
	var maxTerms int
	var configPath string
	cmd := &cobra.Command{
		Use:   "check [flags] EXPR...",
		Short: "Parse a region expression and print it simplified or in a normal form",
		Long: `Parse a region expression and print it simplified or in a normal form.

Expressions often start with a negative surface, so only long flags are
recognised. Every other argument is part of the expression, and the
arguments are joined with spaces. Arguments after -- are always part of
the expression.`,
		Example: `  carve check -7 : 8
  carve check --dnf "1 (2 : 3)"
  carve check --config carve.yaml --cnf -- "1 2 : 3"`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, err := splitCheckArgs(cmd, args)
			if err != nil {
				return err
			}
			if help, _ := cmd.Flags().GetBool("help"); help {
				return cmd.Help()
			}
			if dnf && cnf {
				return errs.Configf("check", "--dnf and --cnf are mutually exclusive")
			}
			if strings.TrimSpace(expr) == "" {
				return errs.Configf("check", "no expression given")
			}
			if !cmd.Flags().Changed("max-terms") {
				settings, err := config.Load(configPath)
				if err != nil {
					return err
				}
				maxTerms = settings.MaxTerms
			}

			h, err := region.Parse(expr)
			if err != nil {
				return err
			}
			switch {
			case dnf:
				h, err = h.DNF(maxTerms)
			case cnf:
				h, err = h.CNF(maxTerms)
			default:
				h = h.Simplify()
			}
			if err != nil {
				return err
			}
			text, err := h.Serialize()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dnf, "dnf", false, "print as a union of intersections")
	cmd.Flags().BoolVar(&cnf, "cnf", false, "print as an intersection of unions")
	cmd.Flags().IntVar(&maxTerms, "max-terms", config.Default().MaxTerms, "term cap for normal forms (default: max_terms from --config)")
	cmd.Flags().StringVar(&configPath, "config", "", "settings file (YAML)")
	return cmd
}

// splitCheckArgs parses the long flags in args and returns the rest joined
// as the expression. A flag that takes a value consumes the next argument
// unless it is written --name=value.
func splitCheckArgs(cmd *cobra.Command, args []string) (string, error) {
	flags := cmd.Flags()
	var flagArgs, expr []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			expr = append(expr, args[i+1:]...)
			i = len(args)
		case a == "-h":
			flagArgs = append(flagArgs, "--help")
		case strings.HasPrefix(a, "--"):
			flagArgs = append(flagArgs, a)
			name := strings.TrimPrefix(a, "--")
			if strings.Contains(name, "=") {
				continue
			}
			if f := flags.Lookup(name); f != nil && f.NoOptDefVal == "" && i+1 < len(args) {
				i++
				flagArgs = append(flagArgs, args[i])
			}
		default:
			expr = append(expr, a)
		}
	}
	if err := flags.Parse(flagArgs); err != nil {
		return "", err
	}
	return strings.Join(expr, " "), nil
}
