package aggregation

import (
	"sort"
	"time"

	"github.com/chamatrack/chama-service/internal/domain"
)

// ReminderTarget is an unpaid member selected for a nudge.
type ReminderTarget struct {
	domain.Member
	DaysSinceRegistered int
}

// SelectReminderTargets returns every unpaid member, oldest registration first.
// No minimum interval between reminders is applied.
func SelectReminderTargets(members []domain.Member, now time.Time) []ReminderTarget {
	unpaid := make([]domain.Member, 0, len(members))
	for i := range members {
		if !members[i].HasPaid {
			unpaid = append(unpaid, members[i])
		}
	}
	sort.SliceStable(unpaid, func(i, j int) bool {
		return unpaid[i].CreatedAt.Before(unpaid[j].CreatedAt)
	})

	targets := make([]ReminderTarget, 0, len(unpaid))
	for _, m := range unpaid {
		days := 0
		if now.After(m.CreatedAt) {
			days = int(now.Sub(m.CreatedAt).Hours() / 24)
		}
		targets = append(targets, ReminderTarget{Member: m, DaysSinceRegistered: days})
	}
	return targets
}
