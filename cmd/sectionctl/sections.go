package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/theme-section-installer/internal/config"
	"github.com/iliyamo/theme-section-installer/internal/facade"
	"github.com/iliyamo/theme-section-installer/internal/lifecycle"
	"github.com/iliyamo/theme-section-installer/internal/repository"
)

// sectionsCmd runs lifecycle operations for one shop through the same
// facade the embedded app uses.
func sectionsCmd() *cobra.Command {
	var shopDomain string

	cmd := &cobra.Command{
		Use:   "sections",
		Short: "Install, update and remove catalog sections in a shop's live theme",
	}
	cmd.PersistentFlags().StringVar(&shopDomain, "shop", "", "Shop domain (example.myshopify.com)")

	// run opens the database, resolves the shop and hands fn a facade.
	run := func(cmd *cobra.Command, fn func(ctx context.Context, f *facade.Facade) (any, error)) error {
		if shopDomain == "" {
			return errors.New("--shop is required")
		}
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		c, err := connector(e)
		if err != nil {
			return err
		}
		shop, err := c.Connect(cmd.Context(), shopDomain)
		if err != nil {
			return fmt.Errorf("shop %s: %w", shopDomain, err)
		}
		mgr := lifecycle.NewManager(
			repository.NewSectionRepo(e.db),
			repository.NewInstallationRepo(e.db),
			lifecycle.WithLogger(e.log),
			lifecycle.WithAppBlockPrefix(config.LoadShopifyConfig().AppBlockPrefix),
		)
		f := facade.New(mgr, shop, facade.WithConcurrency(e.cfg.BatchConcurrency), facade.WithLogger(e.log))

		out, err := fn(cmd.Context(), f)
		var partial *partialFailure
		if errors.As(err, &partial) {
			_ = printJSON(cmd.OutOrStdout(), partial.res)
		}
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	}

	one := func(use, short string, fn func(ctx context.Context, f *facade.Facade, slug string) (any, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " SLUG",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, func(ctx context.Context, f *facade.Facade) (any, error) {
					return fn(ctx, f, args[0])
				})
			},
		}
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the shop's installations and available updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, f *facade.Facade) (any, error) {
				if err := f.Refresh(ctx); err != nil {
					return nil, err
				}
				return f.Installations(), nil
			})
		},
	}

	install := &cobra.Command{
		Use:   "install SLUG...",
		Short: "Install one or more sections",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, f *facade.Facade) (any, error) {
				if len(args) == 1 {
					return f.InstallSection(ctx, args[0])
				}
				return batchOutcome(f.InstallSections(ctx, args))
			})
		},
	}

	updateAll := &cobra.Command{
		Use:   "update-all",
		Short: "Update every installation whose catalog version changed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, f *facade.Facade) (any, error) {
				return batchOutcome(f.UpdateAllSections(ctx))
			})
		},
	}

	var dryRun bool
	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove every installed section from the shop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, f *facade.Facade) (any, error) {
				return f.CleanupAll(ctx, dryRun)
			})
		},
	}
	cleanup.Flags().BoolVar(&dryRun, "dry-run", false, "Only report what would be removed")

	cmd.AddCommand(
		list,
		install,
		one("update", "Overwrite a section with the catalog version", func(ctx context.Context, f *facade.Facade, slug string) (any, error) {
			return f.UpdateSection(ctx, slug)
		}),
		updateAll,
		one("uninstall", "Remove a section from the live theme", func(ctx context.Context, f *facade.Facade, slug string) (any, error) {
			return f.UninstallSection(ctx, slug)
		}),
		cleanup,
	)
	return cmd
}

// partialFailure carries a batch result with failed items, or one that
// could not start.  The result is still printed, but the command exits
// non-zero.
type partialFailure struct{ res facade.BatchResult }

func (p *partialFailure) Error() string { return p.res.Message }

func batchOutcome(res facade.BatchResult) (any, error) {
	if res.Message != "" {
		return nil, &partialFailure{res: res}
	}
	return res, nil
}
