package model

// ScheduleEntry is a derived (account, time-of-day, timezone) triple. Entries
// are regenerated from the registry snapshot on every swap and never persisted.
type ScheduleEntry struct {
	Account   string
	TimeOfDay string // zero-padded HH:MM
	Timezone  string // IANA name; empty means process-local
}
