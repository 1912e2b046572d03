package cmd

import (
	"github.com/spf13/cobra"

	"example.com/mise/clients/counter/internal/models"
)

var posCmd = &cobra.Command{
	Use:   "pos",
	Short: "Start the point-of-sale terminal",
	Long: `Start the point-of-sale terminal: live order board, notifications
when orders come up ready or completed, and hand-off actions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTerminal(models.DevicePOS)
	},
}

func init() {
	rootCmd.AddCommand(posCmd)
	posCmd.Flags().StringVar(&restaurantID, "restaurant", "", "restaurant id to join")
	posCmd.MarkFlagRequired("restaurant")
}
