package application

import (
	"fmt"

	"github.com/streakd/streakd/internal/domain/model"
)

// Built-in frequency tables. These are policy constants, not user-editable at
// runtime; only the custom class varies per account.
var frequencyTables = map[model.FrequencyClass][]string{
	model.FrequencyDaily:    {"09:00"},
	model.FrequencyFrequent: {"09:00", "13:00", "18:00"},
	model.FrequencyHourly: {
		"09:00", "10:00", "11:00", "12:00", "13:00",
		"14:00", "15:00", "16:00", "17:00",
	},
	model.FrequencyMinimal: {"12:00"},
}

// ResolveTimes returns the ordered times-of-day at which the account fires,
// in the account's timezone. Custom accounts return exactly their configured
// list, unmodified in order; a malformed entry is an error, never silently
// dropped.
func ResolveTimes(account model.Account) ([]string, error) {
	if account.Frequency == model.FrequencyCustom {
		if len(account.CustomTimes) == 0 {
			return nil, fmt.Errorf("account %q: custom frequency with empty custom_schedule", account.Name)
		}
		out := make([]string, len(account.CustomTimes))
		for i, tod := range account.CustomTimes {
			if !model.ValidTimeOfDay(tod) {
				return nil, fmt.Errorf("account %q: malformed schedule time %q", account.Name, tod)
			}
			out[i] = tod
		}
		return out, nil
	}

	table, ok := frequencyTables[account.Frequency]
	if !ok {
		return nil, fmt.Errorf("account %q: unknown frequency class %q", account.Name, account.Frequency)
	}

	out := make([]string, len(table))
	copy(out, table)
	return out, nil
}

// ResolveEntries expands every enabled account in the snapshot into schedule
// entries. Accounts that fail to resolve are skipped and reported through the
// returned error list so one bad account cannot hide the others' schedules.
func ResolveEntries(snap *Snapshot) ([]model.ScheduleEntry, []error) {
	var entries []model.ScheduleEntry
	var errs []error

	for _, a := range snap.Enabled() {
		times, err := ResolveTimes(a)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, tod := range times {
			entries = append(entries, model.ScheduleEntry{
				Account:   a.Name,
				TimeOfDay: tod,
				Timezone:  a.Timezone,
			})
		}
	}

	return entries, errs
}
