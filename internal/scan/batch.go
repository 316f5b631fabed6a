package scan

import (
	"strings"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/slug"
)

// batchKey groups candidates that describe the same real-world place within
// one fetch: lowercased name plus the ~1km coordinate grid cell, or the
// country code when coordinates are missing.
func batchKey(c model.Candidate) string {
	name := strings.ToLower(strings.TrimSpace(c.Name))
	if hash := slug.LocationHash(c.Lat, c.Lon); hash != "" {
		return name + "|" + hash
	}
	return name + "|" + c.CountryCode
}

// DedupBatch collapses same-place candidates produced by different providers
// in a single run, unioning their source lists before any database
// interaction. First occurrence wins for all non-source fields; order is
// preserved.
func DedupBatch(candidates []model.Candidate) []model.Candidate {
	seen := make(map[string]int, len(candidates))
	var out []model.Candidate

	for _, c := range candidates {
		key := batchKey(c)
		if i, ok := seen[key]; ok {
			out[i].Sources = model.MergeSources(out[i].Sources, c.Sources)
			// Keep the strongest external id seen for the group.
			if out[i].WikidataID == "" {
				out[i].WikidataID = c.WikidataID
			}
			if out[i].OSMID == "" {
				out[i].OSMID = c.OSMID
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, c)
	}
	return out
}
