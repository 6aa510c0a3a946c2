package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/wansing/buzz/record"
)

// DailyPlan is the outcome of PlanDaily. The caller applies Reset before Mark.
type DailyPlan struct {
	Quote Document
	Reset bool // set used_date of all quotes to record.NeverUsed
	Mark  bool // set used_date of Quote to today
}

func unused(doc Document) bool {
	v, ok := doc[record.KeyUsedDate]
	if !ok || v == nil {
		return true
	}
	s, _ := v.(string)
	return s == "" || s == record.NeverUsed
}

// DailyHash spreads sequential dates across the pool.
func DailyHash(day time.Time) uint64 {
	var seed = uint64(day.Year()*10000 + int(day.Month())*100 + day.Day())
	return (seed * 2654435761) % (1 << 32)
}

// PlanDaily picks the quote of the day from all published quotes. It returns ErrNoDocument if there are none.
func PlanDaily(quotes []Document, today time.Time) (DailyPlan, error) {

	if len(quotes) == 0 {
		return DailyPlan{}, ErrNoDocument
	}

	var todayStr = record.FormatDate(today)

	var pool = []Document{}
	for _, quote := range quotes {
		if s, _ := quote[record.KeyUsedDate].(string); s == todayStr {
			return DailyPlan{Quote: quote}, nil
		}
		if unused(quote) {
			pool = append(pool, quote)
		}
	}

	var plan = DailyPlan{Mark: true}

	if len(pool) == 0 || (today.Month() == time.January && today.Day() == 1) {
		plan.Reset = true
		pool = append([]Document{}, quotes...)
	}

	sort.Slice(pool, func(i, j int) bool {
		return fmt.Sprint(pool[i][IDKey]) < fmt.Sprint(pool[j][IDKey])
	})

	plan.Quote = pool[DailyHash(today)%uint64(len(pool))]
	return plan, nil
}
