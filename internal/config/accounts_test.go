package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streakd/streakd/internal/domain/model"
)

func writeAccountsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAccounts_Valid(t *testing.T) {
	path := writeAccountsFile(t, `[
		{
			"name": "alpha",
			"token": "ghp_a",
			"username": "alice",
			"email": "alice@example.com",
			"repo": "org/shared-repo",
			"commit_frequency": "daily"
		},
		{
			"name": "beta",
			"token": "ghp_b",
			"username": "bob",
			"email": "bob@example.com",
			"repo": "org/shared-repo",
			"enabled": false,
			"commit_frequency": "custom",
			"custom_schedule": ["10:30", "14:15", "20:00"],
			"auto_merge": false,
			"delete_branch_after_merge": false
		}
	]`)

	accounts, err := LoadAccounts(path)

	require.NoError(t, err)
	require.Len(t, accounts, 2)

	assert.Equal(t, "alpha", accounts[0].Name)
	assert.True(t, accounts[0].Enabled, "enabled defaults to true")
	assert.True(t, accounts[0].AutoMerge, "auto_merge defaults to true")
	assert.True(t, accounts[0].DeleteBranchAfterMerge, "delete_branch_after_merge defaults to true")
	assert.Equal(t, model.FrequencyDaily, accounts[0].Frequency)

	assert.False(t, accounts[1].Enabled)
	assert.False(t, accounts[1].AutoMerge)
	assert.Equal(t, []string{"10:30", "14:15", "20:00"}, accounts[1].CustomTimes)
}

func TestLoadAccounts_MalformedTimeRejectsWholeFile(t *testing.T) {
	path := writeAccountsFile(t, `[
		{
			"name": "good",
			"token": "ghp_a",
			"username": "alice",
			"email": "alice@example.com",
			"repo": "org/repo",
			"commit_frequency": "daily"
		},
		{
			"name": "bad",
			"token": "ghp_b",
			"username": "bob",
			"email": "bob@example.com",
			"repo": "org/repo",
			"commit_frequency": "custom",
			"custom_schedule": ["9:00"]
		}
	]`)

	accounts, err := LoadAccounts(path)

	assert.Nil(t, accounts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"9:00"`)
}

func TestLoadAccounts_DuplicateName(t *testing.T) {
	path := writeAccountsFile(t, `[
		{"name": "dup", "token": "t1", "username": "u1", "email": "e1@x.com", "repo": "org/r1"},
		{"name": "dup", "token": "t2", "username": "u2", "email": "e2@x.com", "repo": "org/r2"}
	]`)

	_, err := LoadAccounts(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate account name")
}

func TestLoadAccounts_MissingRequiredField(t *testing.T) {
	path := writeAccountsFile(t, `[
		{"name": "no-token", "username": "u", "email": "e@x.com", "repo": "org/r"}
	]`)

	_, err := LoadAccounts(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
}

func TestLoadAccounts_EnabledRequiresRepo(t *testing.T) {
	path := writeAccountsFile(t, `[
		{"name": "norepo", "token": "t", "username": "u", "email": "e@x.com"}
	]`)

	_, err := LoadAccounts(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "repo")
}

func TestLoadAccounts_CustomRequiresSchedule(t *testing.T) {
	path := writeAccountsFile(t, `[
		{"name": "c", "token": "t", "username": "u", "email": "e@x.com", "repo": "org/r", "commit_frequency": "custom"}
	]`)

	_, err := LoadAccounts(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "custom_schedule")
}

func TestLoadAccounts_UnknownFrequency(t *testing.T) {
	path := writeAccountsFile(t, `[
		{"name": "c", "token": "t", "username": "u", "email": "e@x.com", "repo": "org/r", "commit_frequency": "sometimes"}
	]`)

	_, err := LoadAccounts(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sometimes")
}

func TestLoadAccounts_InvalidTimezone(t *testing.T) {
	path := writeAccountsFile(t, `[
		{"name": "c", "token": "t", "username": "u", "email": "e@x.com", "repo": "org/r", "timezone": "Not/AZone"}
	]`)

	_, err := LoadAccounts(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not/AZone")
}

func TestLoadAccounts_EmptyFile(t *testing.T) {
	path := writeAccountsFile(t, `[]`)

	_, err := LoadAccounts(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no accounts")
}

func TestLoadAccounts_MissingFile(t *testing.T) {
	_, err := LoadAccounts(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestParseAccounts_DefaultsNameAndFrequency(t *testing.T) {
	accounts, err := ParseAccounts([]byte(`[
		{"token": "t", "username": "u", "email": "e@x.com", "repo": "org/r"}
	]`))

	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "account_1", accounts[0].Name)
	assert.Equal(t, model.FrequencyDaily, accounts[0].Frequency)
}
