package models

import (
	"slices"
	"time"
)

// GuidInfo is stored under the guid-info field of every GUID, account or
// sub-GUID alike.
type GuidInfo struct {
	Guid      string    `json:"guid"`
	Name      string    `json:"name"`
	PublicKey string    `json:"publicKey"`
	Type      string    `json:"type,omitempty"`
	Tags      []string  `json:"tags"`
	Created   time.Time `json:"created"`
	Updated   time.Time `json:"updated"`
}

func NewGuidInfo(name, guid, publicKey string, now time.Time) *GuidInfo {
	return &GuidInfo{
		Guid:      guid,
		Name:      name,
		PublicKey: publicKey,
		Tags:      []string{},
		Created:   now,
		Updated:   now,
	}
}

func (g *GuidInfo) NoteUpdate(now time.Time) { g.Updated = now }

func (g *GuidInfo) AddTag(tag string) {
	if !slices.Contains(g.Tags, tag) {
		g.Tags = append(g.Tags, tag)
	}
}

func (g *GuidInfo) RemoveTag(tag string) {
	g.Tags = slices.DeleteFunc(g.Tags, func(t string) bool { return t == tag })
}
