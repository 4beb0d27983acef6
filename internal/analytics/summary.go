package analytics

import (
	"sort"

	"github.com/ledgerkit/finrecon/internal/domain"
)

// SummarizeExternal rolls stored external rows up per source: row count,
// spend and inflow totals, and the covered date span.
func SummarizeExternal(rows []domain.ExternalTransaction) []domain.SourceSummary {
	bySource := map[domain.ExternalSource]*domain.SourceSummary{}
	for _, tx := range rows {
		s, ok := bySource[tx.Source]
		if !ok {
			s = &domain.SourceSummary{Source: tx.Source}
			bySource[tx.Source] = s
		}
		s.Rows++
		if tx.AmountMinor < 0 {
			s.SpendMinor += -tx.AmountMinor
		} else {
			s.InflowMinor += tx.AmountMinor
		}
		if !tx.PostedAt.IsZero() {
			if s.FirstDate == nil || tx.PostedAt.Before(*s.FirstDate) {
				at := tx.PostedAt
				s.FirstDate = &at
			}
			if s.LastDate == nil || tx.PostedAt.After(*s.LastDate) {
				at := tx.PostedAt
				s.LastDate = &at
			}
		}
	}
	return sortedSummaries(bySource)
}

// SummarizeMatches counts matched and unmatched records per source.
func SummarizeMatches(records []domain.MatchRecord) []domain.MatchSummary {
	bySource := map[domain.ExternalSource]*domain.MatchSummary{}
	for _, rec := range records {
		s, ok := bySource[rec.Source]
		if !ok {
			s = &domain.MatchSummary{Source: rec.Source}
			bySource[rec.Source] = s
		}
		if rec.Status == domain.MatchStatusMatched {
			s.Matched++
		} else {
			s.Unmatched++
		}
	}

	out := make([]domain.MatchSummary, 0, len(bySource))
	for _, s := range bySource {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

func sortedSummaries(bySource map[domain.ExternalSource]*domain.SourceSummary) []domain.SourceSummary {
	out := make([]domain.SourceSummary, 0, len(bySource))
	for _, s := range bySource {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}
