package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/dedup"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/store"
)

// dupePair is one potential-duplicate pair in the report.
type dupePair struct {
	PlaceID         string   `json:"place_id"`
	PlaceName       string   `json:"place_name"`
	OtherID         string   `json:"other_id"`
	OtherName       string   `json:"other_name"`
	SimilarityScore float64  `json:"similarity_score"`
	DistanceKm      *float64 `json:"distance_km,omitempty"`
}

var dupesCmd = &cobra.Command{
	Use:   "dupes",
	Short: "Report potential duplicate entries",
	Long:  "Cross-checks every entry against the rest of the directory at the review threshold, below the bar for automatic merging. Pairs listed here need a human decision via places merge.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		country, _ := cmd.Flags().GetString("country")
		limit, _ := cmd.Flags().GetInt("limit")

		pairs, err := findDupePairs(ctx, st, country, limit)
		if err != nil {
			return eris.Wrap(err, "dupes")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(pairs)
	},
}

// findDupePairs runs the similarity search for every listed place and
// collects each cross-entry hit once.
func findDupePairs(ctx context.Context, st store.Store, country string, limit int) ([]dupePair, error) {
	places, err := st.ListPlaces(ctx, store.PlaceFilter{CountryCode: country, Limit: limit})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	pairs := []dupePair{}
	for _, p := range places {
		if p.Status == model.StatusRejected {
			continue
		}
		similar, err := st.FindSimilar(ctx, p.Name, p.Lat, p.Lon, dedup.ReviewThreshold)
		if err != nil {
			return nil, err
		}
		for _, s := range similar {
			if s.PlaceID == p.ID {
				continue
			}
			key := pairKey(p.ID, s.PlaceID)
			if seen[key] {
				continue
			}
			seen[key] = true
			pairs = append(pairs, dupePair{
				PlaceID:         p.ID,
				PlaceName:       p.Name,
				OtherID:         s.PlaceID,
				OtherName:       s.PlaceName,
				SimilarityScore: s.SimilarityScore,
				DistanceKm:      s.DistanceKm,
			})
		}
	}
	return pairs, nil
}

func pairKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}

func init() {
	dupesCmd.Flags().String("country", "", "restrict the report to one ISO country code")
	dupesCmd.Flags().Int("limit", 500, "max places to cross-check")
	rootCmd.AddCommand(dupesCmd)
}
