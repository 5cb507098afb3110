// Command gentoken signs development tokens accepted by the modelhub API.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/modelhub/modelhub/pkg/config"
	"github.com/modelhub/modelhub/pkg/entities"
	"github.com/modelhub/modelhub/pkg/server"
)

func main() {
	var (
		cfgFile string
		account entities.Account
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:     "gentoken --sub alice",
		Short:   "Sign an HS256 token for an account",
		Example: `  MODELHUB_AUTH_SECRET=changeme gentoken --sub alice --name "Alice" --ttl 24h`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.NewViper(cfgFile)
			if err != nil {
				return err
			}

			secret := v.GetString("auth_secret")
			if secret == "" {
				return errors.New("auth_secret is not configured")
			}

			token, err := server.NewToken([]byte(secret), account, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)

			return nil
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "config file holding auth_secret")
	cmd.Flags().StringVar(&account.ID, "sub", "", "account id (required)")
	cmd.Flags().StringVar(&account.Name, "name", "", "display name")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("sub")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
