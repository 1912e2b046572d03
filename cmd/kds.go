package cmd

import (
	"github.com/spf13/cobra"

	"example.com/mise/clients/counter/internal/models"
)

var kdsCmd = &cobra.Command{
	Use:   "kds",
	Short: "Start the kitchen display",
	Long: `Start the kitchen display: live New / Cooking / Ready buckets with
elapsed-time urgency and the single legal advance action per order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTerminal(models.DeviceKDS)
	},
}

func init() {
	rootCmd.AddCommand(kdsCmd)
	kdsCmd.Flags().StringVar(&restaurantID, "restaurant", "", "restaurant id to join")
	kdsCmd.MarkFlagRequired("restaurant")
}
