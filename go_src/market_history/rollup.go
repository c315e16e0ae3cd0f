package market_history

import "time"

// Rollup reindexes bars onto every calendar day in [from, to].
// The first bar of a day wins. Days without a bar repeat the previous day's values with
// Filled set, and days before the first bar are dropped. Applying Rollup to its own output
// returns it unchanged.
func Rollup(bars []Bar, from, to time.Time) []Bar {
	from, to = Day(from), Day(to)
	if to.Before(from) {
		return nil
	}

	byDay := make(map[string]Bar, len(bars))
	for _, b := range bars {
		key := b.DateString()
		if _, seen := byDay[key]; seen {
			continue
		}
		b.Date = Day(b.Date)
		byDay[key] = b
	}

	out := make([]Bar, 0, daysBetween(from, to)+1)
	var last Bar
	started := false
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if b, ok := byDay[day.Format(dateLayout)]; ok {
			last, started = b, true
			out = append(out, b)
			continue
		}
		if !started {
			continue
		}
		last.Date = day
		last.Filled = true
		out = append(out, last)
	}
	return out
}
