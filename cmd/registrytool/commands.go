package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ptkach/nomulus/internal/app"
	"github.com/ptkach/nomulus/internal/epp"
	"github.com/ptkach/nomulus/internal/epp/session"
	"github.com/ptkach/nomulus/internal/flows"
	"github.com/ptkach/nomulus/internal/tools/tokens"
)

// opener builds the registry a command runs against.
type opener func(ctx context.Context) (*app.App, error)

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "registrytool",
		Short:         "Registry operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newExecuteCmd(open))
	root.AddCommand(newUpdateTokensCmd(open))
	root.AddCommand(newDeleteTokensCmd(open))
	return root
}

func withRegistry(cmd *cobra.Command, open opener, fn func(ctx context.Context, a *app.App) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, a)
}

func newExecuteCmd(open opener) *cobra.Command {
	var (
		registrarID string
		dryRun      bool
		superuser   bool
	)
	cmd := &cobra.Command{
		Use:   "execute [file...]",
		Short: "Execute EPP commands as a registrar",
		Long:  "Execute EPP commands read from files, or from stdin when none are given, on behalf of a registrar.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(registrarID) == "" {
				return fmt.Errorf("--registrar is required")
			}
			commands, err := readCommands(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return withRegistry(cmd, open, func(ctx context.Context, a *app.App) error {
				var failed int
				for _, raw := range commands {
					resp := a.Controller.Handle(ctx, flows.Request{
						Raw:       raw,
						Session:   session.Stateless(registrarID, session.CredentialTool, session.SourceTool),
						DryRun:    dryRun,
						Superuser: superuser,
					})
					out, err := epp.Marshal(resp)
					if err != nil {
						return fmt.Errorf("render response %s: %w", resp.Trid.ServerTRID, err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(out))
					if !resp.Result.Code.IsSuccess() {
						failed++
					}
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d commands failed", failed, len(commands))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&registrarID, "registrar", "c", "", "registrar to execute as")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "roll back every change")
	cmd.Flags().BoolVarP(&superuser, "superuser", "u", false, "bypass ownership and entitlement checks")
	return cmd
}

func readCommands(stdin io.Reader, files []string) ([][]byte, error) {
	if len(files) == 0 {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return [][]byte{raw}, nil
	}
	out := make([][]byte, 0, len(files))
	for _, name := range files {
		raw, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		out = append(out, raw)
	}
	return out, nil
}

type selectionFlags struct {
	tokens []string
	prefix string
	dryRun bool
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.tokens, "tokens", nil, "comma-separated tokens to act on")
	cmd.Flags().StringVarP(&f.prefix, "prefix", "p", "", "act on every token with this prefix")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "report the tokens without changing them")
}

func (f *selectionFlags) selection(cmd *cobra.Command) tokens.Selection {
	sel := tokens.Selection{Tokens: f.tokens}
	if cmd.Flags().Changed("prefix") {
		prefix := f.prefix
		sel.Prefix = &prefix
	}
	return sel
}

func newUpdateTokensCmd(open opener) *cobra.Command {
	var (
		sel          selectionFlags
		registrars   []string
		tlds         []string
		endPromotion bool
	)
	cmd := &cobra.Command{
		Use:   "update_tokens",
		Short: "Update allocation tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var u tokens.Update
			if cmd.Flags().Changed("allowed-registrars") {
				u.AllowedRegistrars = &registrars
			}
			if cmd.Flags().Changed("allowed-tlds") {
				u.AllowedTLDs = &tlds
			}
			u.EndPromotion = endPromotion
			return withRegistry(cmd, open, func(ctx context.Context, a *app.App) error {
				res, err := tokens.New(a.Manager, tokens.WithLogger(a.Logger)).Update(ctx, sel.selection(cmd), u, sel.dryRun)
				if err != nil {
					return err
				}
				report(cmd.OutOrStdout(), "updated", "skipped (promotion already ended)", res)
				return nil
			})
		},
	}
	sel.register(cmd)
	cmd.Flags().StringSliceVar(&registrars, "allowed-registrars", nil, "registrars allowed to use the tokens; empty allows all")
	cmd.Flags().StringSliceVar(&tlds, "allowed-tlds", nil, "TLDs the tokens apply to; empty allows all")
	cmd.Flags().BoolVar(&endPromotion, "end-token-promotion", false, "cancel the tokens' promotions now")
	return cmd
}

func newDeleteTokensCmd(open opener) *cobra.Command {
	var sel selectionFlags
	cmd := &cobra.Command{
		Use:   "delete_tokens",
		Short: "Delete unredeemed allocation tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRegistry(cmd, open, func(ctx context.Context, a *app.App) error {
				res, err := tokens.New(a.Manager, tokens.WithLogger(a.Logger)).Delete(ctx, sel.selection(cmd), sel.dryRun)
				if err != nil {
					return err
				}
				report(cmd.OutOrStdout(), "deleted", "skipped (redeemed)", res)
				return nil
			})
		},
	}
	sel.register(cmd)
	return cmd
}

func report(w io.Writer, changedVerb, skippedVerb string, res tokens.Result) {
	prefix := ""
	if res.DryRun {
		prefix = "[dry run] would have "
	}
	fmt.Fprintf(w, "%s%s %d tokens: %s\n", prefix, changedVerb, len(res.Changed), strings.Join(res.Changed, ", "))
	if len(res.Skipped) > 0 {
		fmt.Fprintf(w, "%s %d tokens: %s\n", skippedVerb, len(res.Skipped), strings.Join(res.Skipped, ", "))
	}
}
