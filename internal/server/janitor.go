package server

import (
	"log"
	"time"
)

// Janitor reclaims rooms that have been empty for longer than the
// retention window. Empty rooms are normally deleted eagerly when their
// last member leaves, so the sweep is a backstop; it only ever deletes
// rooms and never touches live membership.
type Janitor struct {
	store     *RoomStore
	retention time.Duration
	log       *log.Logger
}

func NewJanitor(store *RoomStore, retention time.Duration, logger *log.Logger) *Janitor {
	return &Janitor{
		store:     store,
		retention: retention,
		log:       logger,
	}
}

// Sweep deletes every room that is empty and was created before
// now-retention. It returns the number of rooms deleted. The decision
// uses only the member count and creation time; there is no
// last-activity bookkeeping.
func (j *Janitor) Sweep(now time.Time) int {
	cutoff := now.Add(-j.retention)

	var swept int
	for _, room := range j.store.All() {
		if len(room.members) == 0 && room.createdAt.Before(cutoff) {
			j.store.Delete(room.id)
			j.log.Printf("janitor swept room %q", room.id)
			swept++
		}
	}

	return swept
}
