package catalog

// Merge reconciles per-source entry lists into one deduplicated catalog.
// Entries are keyed by full composite ID, so entries from different sources
// for the same logical model stay distinct; only identical-ID collisions
// (re-fetch, cache plus live overlap) are reconciled. First-seen order is
// preserved.
//
// A collision keeps the entry with the higher completeness score; on a tie
// the lower primary price wins, and on a further tie the first-seen entry is
// kept.
func Merge(lists ...[]Entry) []Entry {
	byID := make(map[string]int)
	var merged []Entry

	for _, list := range lists {
		for _, e := range list {
			idx, seen := byID[e.ID]
			if !seen {
				byID[e.ID] = len(merged)
				merged = append(merged, e)
				continue
			}
			if preferOver(&e, &merged[idx]) {
				merged[idx] = e
			}
		}
	}

	return merged
}

// preferOver reports whether candidate should replace the already-kept entry.
func preferOver(candidate, kept *Entry) bool {
	cc, kc := candidate.Completeness(), kept.Completeness()
	if cc != kc {
		return cc > kc
	}
	return PrimaryPrice(candidate) < PrimaryPrice(kept)
}
