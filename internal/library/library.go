// Package library manages actors, their libraries and uploads: the
// ownership side of the catalog. Uploads carry the per-item import state
// machine (pending, finished, errored, skipped).
package library

import (
	"time"
)

// Library types.
const (
	TypeRegular = "regular"
	TypeChannel = "channel"
)

// Upload import statuses.
const (
	StatusPending  = "pending"
	StatusFinished = "finished"
	StatusErrored  = "errored"
	StatusSkipped  = "skipped"
)

// Actor owns libraries. Local actors have no domain.
type Actor struct {
	ID                string
	PreferredUsername string
	Domain            string
	FID               string
	IsLocal           bool
	CreatedAt         time.Time
}

// Library is a collection of uploads owned by one actor. Channel
// libraries force every upload onto the channel artist and ignore file
// tags.
type Library struct {
	ID              string
	ActorID         string
	Name            string
	FID             string
	Type            string
	ChannelArtistID string
	CreatedAt       time.Time
}

// IsChannel reports whether uploads in this library belong to a channel.
func (l *Library) IsChannel() bool { return l.Type == TypeChannel }

// Upload is one import item. ImportDetails and ImportMetadata are raw
// JSON documents; the importer interprets them.
type Upload struct {
	ID             string
	LibraryID      string
	TrackID        string
	Source         string
	ImportStatus   string
	ImportDetails  string
	ImportMetadata string
	ImportDate     *time.Time
	ClaimedAt      *time.Time
	Duration       int
	Size           int64
	Bitrate        int
	CreatedAt      time.Time
}
