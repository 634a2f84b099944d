package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/theme-section-installer/internal/catalog"
	"github.com/iliyamo/theme-section-installer/internal/config"
	"github.com/iliyamo/theme-section-installer/internal/middleware"
	"github.com/iliyamo/theme-section-installer/internal/repository"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the section catalog",
	}
	cmd.AddCommand(catalogSyncCmd())
	return cmd
}

func catalogSyncCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Upsert the sections listed in a manifest",
		Long: `Read a YAML manifest of the form

  sections:
    - slug: hero-banner
      name: Hero banner
      version: "1.2.0"
      file: sections/hero-banner.liquid

and upsert every entry into the catalog.  File paths are relative to the
manifest.  The cached catalog listing is dropped afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sections, err := catalog.Load(file)
			if err != nil {
				return err
			}
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			n, err := catalog.Sync(cmd.Context(), repository.NewSectionRepo(e.db), sections)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d sections\n", n)

			rdb := config.NewRedisClient(config.LoadRedisConfig())
			if rdb == nil {
				e.log.Warn("redis unreachable; cached catalog expires on its own")
				return nil
			}
			defer rdb.Close()
			dropped, err := middleware.InvalidateCache(cmd.Context(), rdb, config.LoadCacheConfig().Prefix)
			if err != nil {
				e.log.WithError(err).Warn("catalog cache invalidation failed")
				return nil
			}
			e.log.WithField("keys", dropped).Debug("catalog cache invalidated")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "sections.yaml", "Manifest path")
	return cmd
}
