package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/liverelay/webcast/pkg/live"
)

func statusCmd() *cobra.Command {
	var gifts bool

	cmd := &cobra.Command{
		Use:   "status <target>",
		Short: "One-shot live status check for a TikTok target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			client := live.NewStatusClient(live.StatusClientConfig{})
			status, err := client.RoomStatus(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("target:  %s\n", live.CanonicalTarget(live.PlatformTikTok, args[0]))
			fmt.Printf("status:  %d\n", status.Status)
			fmt.Printf("live:    %v\n", status.Live())
			fmt.Printf("room id: %s\n", status.RoomID)

			if gifts && status.RoomID != "" {
				catalog, err := client.GiftList(ctx, status.RoomID)
				if err != nil {
					return err
				}
				fmt.Printf("gifts:   %d\n", len(catalog))
				for _, g := range catalog {
					fmt.Printf("  %6d  %-24s %d diamonds\n", g.ID, g.Name, g.DiamondCount)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&gifts, "gifts", false, "Also fetch the room's gift catalog")

	return cmd
}
