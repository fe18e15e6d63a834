package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/streakd/streakd/internal/domain/model"
)

// accountJSON is the wire shape of one account entry in the accounts file.
// Pointer fields distinguish "absent" from "false" so auto_merge and
// delete_branch_after_merge can default to true.
type accountJSON struct {
	Name                   string   `json:"name"`
	Token                  string   `json:"token"`
	Username               string   `json:"username"`
	Email                  string   `json:"email"`
	Repo                   string   `json:"repo"`
	Enabled                *bool    `json:"enabled"`
	CommitFrequency        string   `json:"commit_frequency"`
	CustomSchedule         []string `json:"custom_schedule"`
	Timezone               string   `json:"timezone"`
	AutoMerge              *bool    `json:"auto_merge"`
	DeleteBranchAfterMerge *bool    `json:"delete_branch_after_merge"`
}

// LoadAccounts reads the accounts file, applies defaults, and validates the
// whole list. Any invalid entry rejects the entire list: the engine never
// runs with a partially-applied configuration.
func LoadAccounts(path string) ([]model.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}
	return ParseAccounts(data)
}

// ParseAccounts decodes and validates a JSON account list.
func ParseAccounts(data []byte) ([]model.Account, error) {
	var raw []accountJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse accounts file: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("accounts file contains no accounts")
	}

	accounts := make([]model.Account, 0, len(raw))
	for i, entry := range raw {
		account := model.Account{
			Name:                   entry.Name,
			Token:                  entry.Token,
			Username:               entry.Username,
			Email:                  entry.Email,
			RepoFullName:           entry.Repo,
			Enabled:                boolOr(entry.Enabled, true),
			Frequency:              model.FrequencyClass(entry.CommitFrequency),
			CustomTimes:            entry.CustomSchedule,
			Timezone:               entry.Timezone,
			AutoMerge:              boolOr(entry.AutoMerge, true),
			DeleteBranchAfterMerge: boolOr(entry.DeleteBranchAfterMerge, true),
		}
		if account.Name == "" {
			account.Name = fmt.Sprintf("account_%d", i+1)
		}
		if account.Frequency == "" {
			account.Frequency = model.FrequencyDaily
		}
		accounts = append(accounts, account)
	}

	if err := ValidateAccounts(accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// ValidateAccounts checks every account's invariants plus the registry-wide
// name uniqueness invariant.
func ValidateAccounts(accounts []model.Account) error {
	seen := make(map[string]struct{}, len(accounts))
	for _, a := range accounts {
		if err := a.Validate(); err != nil {
			return err
		}
		if _, dup := seen[a.Name]; dup {
			return fmt.Errorf("duplicate account name %q", a.Name)
		}
		seen[a.Name] = struct{}{}
	}
	return nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
