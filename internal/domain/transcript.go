package domain

import "time"

// TranscriptEntry is one archived message of a closed ticket.
type TranscriptEntry struct {
	Timestamp  time.Time
	AuthorName string
	Content    string
}
