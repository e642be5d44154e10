package core

// Summary is a point-in-time aggregation over a ledger snapshot.
type Summary struct {
	Count      int
	Total      Money
	ByCategory map[string]Money
	ByFriend   map[string]Money
}

// SumByCategory sums amounts grouped by category. Categories with no
// records are absent from the result, never zero-valued.
func SumByCategory(records []ExpenseRecord) map[string]Money {
	out := make(map[string]Money, len(records))
	for _, r := range records {
		out[r.Category] = out[r.Category].Add(r.Amount)
	}
	return out
}

// SumByFriend sums amounts grouped by friend.
func SumByFriend(records []ExpenseRecord) map[string]Money {
	out := make(map[string]Money, len(records))
	for _, r := range records {
		out[r.Friend] = out[r.Friend].Add(r.Amount)
	}
	return out
}

// Summarize computes the full aggregation in one pass. The grand total
// always equals the sum over either grouping.
func Summarize(records []ExpenseRecord) Summary {
	s := Summary{
		Count:      len(records),
		ByCategory: make(map[string]Money),
		ByFriend:   make(map[string]Money),
	}
	for _, r := range records {
		s.Total = s.Total.Add(r.Amount)
		s.ByCategory[r.Category] = s.ByCategory[r.Category].Add(r.Amount)
		s.ByFriend[r.Friend] = s.ByFriend[r.Friend].Add(r.Amount)
	}
	return s
}
