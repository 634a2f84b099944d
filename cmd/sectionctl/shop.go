package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/theme-section-installer/internal/config"
	"github.com/iliyamo/theme-section-installer/internal/repository"
	"github.com/iliyamo/theme-section-installer/internal/service"
	"github.com/iliyamo/theme-section-installer/internal/shopify"
	"github.com/iliyamo/theme-section-installer/internal/utils"
)

func shopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shop",
		Short: "Manage installed shops",
	}
	cmd.AddCommand(shopRegisterCmd())
	return cmd
}

// connector builds the same ShopConnector the server uses.
func connector(e *env) (*service.ShopConnector, error) {
	sealer, err := utils.NewSealer(e.cfg.TokenKey)
	if err != nil {
		return nil, err
	}
	opts := shopify.OptionsFromConfig(config.LoadShopifyConfig(), e.log)
	return service.NewShopConnector(repository.NewShopRepo(e.db), sealer, opts), nil
}

func shopRegisterCmd() *cobra.Command {
	var domain, token, scopes string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Store the offline access token of a shop",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			c, err := connector(e)
			if err != nil {
				return err
			}
			shop, err := c.Register(cmd.Context(), domain, token, scopes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s (id %d)\n", shop.Domain, shop.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "Shop domain (example.myshopify.com)")
	cmd.Flags().StringVar(&token, "token", "", "Offline Admin API access token")
	cmd.Flags().StringVar(&scopes, "scopes", "read_themes,write_themes,write_content", "Granted scopes")
	_ = cmd.MarkFlagRequired("domain")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}
