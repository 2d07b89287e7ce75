package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/WeirdyBenji/librohc/internal/rohc/decomp"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the registered decompression profiles",
	Run: func(cmd *cobra.Command, args []string) {
		for _, p := range decomp.Profiles() {
			fmt.Fprintf(cmd.OutOrStdout(), "0x%04x  %-8s  msn_max_bits=%d\n",
				p.ID, p.Name, p.MSNMaxBits)
		}
	},
}
