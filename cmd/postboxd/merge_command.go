package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesbarge/postboxd-sub001/internal/logging"
	"github.com/jamesbarge/postboxd-sub001/internal/notifications"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <duplicate-id> <canonical-id>",
		Short: "Fold a duplicate film into its canonical record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			films, _, err := ctx.stores(cmd.Context())
			if err != nil {
				return err
			}
			duplicateID, canonicalID := args[0], args[1]
			moved, err := ctx.merger(cmd, films).Merge(cmd.Context(), duplicateID, canonicalID)
			if err != nil {
				return err
			}

			payload := notifications.Payload{"duplicateID": duplicateID, "canonicalID": canonicalID, "moved": moved}
			if err := ctx.notifier().Publish(cmd.Context(), notifications.EventFilmsMerged, payload); err != nil {
				logging.WarnWithContext(ctx.loggerFor(cmd), "merge notification failed", "notification_failed",
					logging.String(logging.FieldImpact, "the merge was committed; no push alert was sent"),
					logging.Error(err))
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"duplicate_id": duplicateID,
					"canonical_id": canonicalID,
					"moved":        moved,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged %s into %s (%d references moved)\n", duplicateID, canonicalID, moved)
			return nil
		},
	}
}
