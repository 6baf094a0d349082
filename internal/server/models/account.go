// Package models holds the records the directory keeps per account and per
// GUID, and the row shape used by the SQL-backed record store.
package models

import (
	"slices"
	"time"
)

// AccountInfo is stored under the account-info field of an account GUID.
type AccountInfo struct {
	Name             string    `json:"name"`
	Guid             string    `json:"guid"`
	Type             string    `json:"type,omitempty"`
	Aliases          []string  `json:"aliases"`
	Guids            []string  `json:"guids"`
	Created          time.Time `json:"created"`
	Updated          time.Time `json:"updated"`
	Password         string    `json:"password,omitempty"`
	Verified         bool      `json:"verified"`
	VerificationCode string    `json:"code,omitempty"`
	CodeCreatedAt    time.Time `json:"codeTime,omitempty"`
}

// NewAccountInfo builds a fresh, unlinked account record.
func NewAccountInfo(name, guid, password string, now time.Time) *AccountInfo {
	return &AccountInfo{
		Name:     name,
		Guid:     guid,
		Aliases:  []string{},
		Guids:    []string{},
		Created:  now,
		Updated:  now,
		Password: password,
	}
}

// NoteUpdate refreshes the updated timestamp.
func (a *AccountInfo) NoteUpdate(now time.Time) { a.Updated = now }

// SetVerificationCode stores a pending code and when it was issued.
func (a *AccountInfo) SetVerificationCode(code string, now time.Time) {
	a.VerificationCode = code
	a.CodeCreatedAt = now
}

// MarkVerified flags the account verified and drops the code.
func (a *AccountInfo) MarkVerified() {
	a.Verified = true
	a.VerificationCode = ""
	a.CodeCreatedAt = time.Time{}
}

func (a *AccountInfo) ContainsAlias(alias string) bool { return slices.Contains(a.Aliases, alias) }

func (a *AccountInfo) AddAlias(alias string) bool {
	if a.ContainsAlias(alias) {
		return false
	}
	a.Aliases = append(a.Aliases, alias)
	return true
}

func (a *AccountInfo) RemoveAlias(alias string) bool {
	i := slices.Index(a.Aliases, alias)
	if i < 0 {
		return false
	}
	a.Aliases = slices.Delete(a.Aliases, i, i+1)
	return true
}

func (a *AccountInfo) ContainsGuid(guid string) bool { return slices.Contains(a.Guids, guid) }

func (a *AccountInfo) AddGuid(guid string) bool {
	if a.ContainsGuid(guid) {
		return false
	}
	a.Guids = append(a.Guids, guid)
	return true
}

func (a *AccountInfo) RemoveGuid(guid string) bool {
	i := slices.Index(a.Guids, guid)
	if i < 0 {
		return false
	}
	a.Guids = slices.Delete(a.Guids, i, i+1)
	return true
}
