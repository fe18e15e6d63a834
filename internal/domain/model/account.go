package model

import (
	"fmt"
	"regexp"
	"time"
)

// FrequencyClass selects which built-in schedule table an account fires on.
// Custom accounts carry their own time list instead.
type FrequencyClass string

const (
	FrequencyDaily    FrequencyClass = "daily"
	FrequencyFrequent FrequencyClass = "frequent"
	FrequencyHourly   FrequencyClass = "hourly"
	FrequencyMinimal  FrequencyClass = "minimal"
	FrequencyCustom   FrequencyClass = "custom"
)

// timeOfDayRe matches zero-padded 24-hour HH:MM values. "9:00" is rejected.
var timeOfDayRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidTimeOfDay reports whether s is a well-formed zero-padded HH:MM value.
func ValidTimeOfDay(s string) bool {
	return timeOfDayRe.MatchString(s)
}

// Account is one configured identity authorized to commit against a
// destination repository on its own schedule. Accounts are value types;
// the registry hands out immutable copies inside snapshots.
type Account struct {
	Name                   string
	Token                  string
	Username               string
	Email                  string
	RepoFullName           string // "owner/repo" destination; accounts may share one.
	Enabled                bool
	Frequency              FrequencyClass
	CustomTimes            []string // required and non-empty iff Frequency is custom
	Timezone               string   // IANA name; empty means the process-local zone
	AutoMerge              bool
	DeleteBranchAfterMerge bool
}

// Validate checks the per-account invariants. Registry-wide invariants
// (name uniqueness) are checked by config.ValidateAccounts.
func (a Account) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("account has no name")
	}
	if a.Token == "" {
		return fmt.Errorf("account %q: token is required", a.Name)
	}
	if a.Username == "" {
		return fmt.Errorf("account %q: username is required", a.Name)
	}
	if a.Email == "" {
		return fmt.Errorf("account %q: email is required", a.Name)
	}
	if a.Enabled && a.RepoFullName == "" {
		return fmt.Errorf("account %q: repo is required for enabled accounts", a.Name)
	}

	switch a.Frequency {
	case FrequencyDaily, FrequencyFrequent, FrequencyHourly, FrequencyMinimal:
		// Built-in tables; custom_schedule is ignored for these classes.
	case FrequencyCustom:
		if len(a.CustomTimes) == 0 {
			return fmt.Errorf("account %q: custom frequency requires a non-empty custom_schedule", a.Name)
		}
	default:
		return fmt.Errorf("account %q: unknown commit_frequency %q", a.Name, a.Frequency)
	}

	for _, tod := range a.CustomTimes {
		if !ValidTimeOfDay(tod) {
			return fmt.Errorf("account %q: malformed schedule time %q, want zero-padded HH:MM", a.Name, tod)
		}
	}

	if a.Timezone != "" {
		if _, err := time.LoadLocation(a.Timezone); err != nil {
			return fmt.Errorf("account %q: invalid timezone %q: %w", a.Name, a.Timezone, err)
		}
	}

	return nil
}

// Location resolves the account's timezone, falling back to the process-local
// zone when unset. Validate guarantees the name loads, so errors here mean
// the account bypassed validation and are surfaced as the local zone.
func (a Account) Location() *time.Location {
	if a.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
