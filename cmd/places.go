package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/store"
)

var placesCmd = &cobra.Command{
	Use:   "places",
	Short: "Inspect and moderate directory entries",
}

// -- places list --

var placesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List places",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		country, _ := cmd.Flags().GetString("country")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		filter := store.PlaceFilter{
			Status:      model.PlaceStatus(status),
			CountryCode: country,
			Limit:       limit,
			Offset:      offset,
		}
		if cmd.Flags().Changed("ai") {
			ai, _ := cmd.Flags().GetInt("ai")
			filter.AICollected = &ai
		}

		places, err := st.ListPlaces(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "places list")
		}

		if len(places) == 0 {
			fmt.Fprintln(os.Stderr, "No places found.")
			return nil
		}

		formatPlaces(os.Stdout, places)
		return nil
	},
}

// -- places show --

var placesShowCmd = &cobra.Command{
	Use:   "show <place-id>",
	Short: "Show a place as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		place, err := st.GetPlace(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "places show")
		}
		if place == nil {
			return eris.Errorf("no place with id %s", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(place)
	},
}

// -- places approve / reject --

var placesApproveCmd = &cobra.Command{
	Use:   "approve <place-id>",
	Short: "Approve a pending place",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return moderate(cmd, args[0], model.StatusApproved)
	},
}

var placesRejectCmd = &cobra.Command{
	Use:   "reject <place-id>",
	Short: "Reject a pending place",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return moderate(cmd, args[0], model.StatusRejected)
	},
}

var placesPrioritizeCmd = &cobra.Command{
	Use:   "prioritize <place-id>",
	Short: "Move a pending place to the priority review queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		// Prioritizing is triage, not approval; human_approved stays unset.
		if err := st.UpdatePlaceStatus(ctx, args[0], model.StatusPendingHigh, 0); err != nil {
			return eris.Wrap(err, "places prioritize")
		}

		zap.L().Info("place prioritized", zap.String("place_id", args[0]))
		return nil
	},
}

func moderate(cmd *cobra.Command, id string, status model.PlaceStatus) error {
	ctx := cmd.Context()

	st, err := initMigratedStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	// Moderation is a human decision, so human_approved flips on either way.
	if err := st.UpdatePlaceStatus(ctx, id, status, 1); err != nil {
		return eris.Wrapf(err, "places %s", status)
	}

	zap.L().Info("place moderated", zap.String("place_id", id), zap.String("status", string(status)))
	return nil
}

// -- places merge --

var placesMergeCmd = &cobra.Command{
	Use:   "merge <target-id> <source-id>",
	Short: "Merge one place into another and delete the source",
	Long:  "Moves the source place's citations and comments onto the target, then deletes the source. Used to resolve entries the automatic checker could not safely merge.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		targetID, sourceID := args[0], args[1]
		if targetID == sourceID {
			return eris.New("target and source are the same place")
		}

		if err := st.MergePlaces(ctx, targetID, sourceID); err != nil {
			return eris.Wrap(err, "places merge")
		}

		zap.L().Info("places merged",
			zap.String("target_id", targetID),
			zap.String("source_id", sourceID),
		)
		return nil
	},
}

// formatPlaces writes a tabular place list to w.
func formatPlaces(out io.Writer, places []model.Place) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tSLUG\tCOUNTRY\tSTATUS\tEVIDENCE\tAI\tSOURCES")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t-------\t------\t--------\t--\t-------")

	for _, p := range places {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			p.ID, p.Name, p.Slug, p.CountryCode, p.Status, p.EvidenceScore, p.AICollected, len(p.Sources))
	}
	_ = w.Flush()
}

func init() {
	placesListCmd.Flags().String("status", "", "filter by status (pending|pending_high|approved|rejected)")
	placesListCmd.Flags().String("country", "", "filter by ISO country code")
	placesListCmd.Flags().Int("ai", 0, "filter by ai_collected flag (0 or 1)")
	placesListCmd.Flags().Int("limit", 50, "max places to list")
	placesListCmd.Flags().Int("offset", 0, "listing offset")

	placesCmd.AddCommand(placesListCmd, placesShowCmd, placesApproveCmd, placesRejectCmd, placesPrioritizeCmd, placesMergeCmd)
	rootCmd.AddCommand(placesCmd)
}
