package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"tengw/internal/ethsign"
)

func deriveAddressCmd(st *state) *cobra.Command {
	var generate bool

	cmd := &cobra.Command{
		Use:   "derive-address",
		Short: "Print the account address for GATEWAY_PRIVATE_KEY, or for a new key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var keyHex string
			if generate {
				key, err := ethsign.GenerateKey()
				if err != nil {
					return err
				}
				keyHex = ethsign.PrivateKeyHex(key)
			} else {
				var err error
				keyHex, err = st.cfg.RequirePrivateKey()
				if err != nil {
					return fmt.Errorf("%w (use --private-key or --generate)", err)
				}
			}

			key, err := ethsign.ParsePrivateKey(keyHex)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if generate {
				fmt.Fprintf(out, "Private Key:  %s\n", ethsign.PrivateKeyHex(key))
			}
			fmt.Fprintf(out, "Address:      %s\n", ethsign.AddressOf(key).Hex())
			return nil
		},
	}

	cmd.Flags().BoolVar(&generate, "generate", false, "generate a fresh key instead of reading one")
	return cmd
}
