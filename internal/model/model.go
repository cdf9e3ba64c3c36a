package model

import "errors"

// Event is a single calendar entry. Date and Time are kept as plain
// strings ("YYYY-MM-DD" / "HH:MM") and compared as strings everywhere;
// the persisted file keeps exactly these four keys so that calendars
// written by earlier versions load unchanged.
type Event struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Description string `json:"description"`
}

// ErrInvalidEvent is returned by Validate when a required field is empty.
var ErrInvalidEvent = errors.New("event must have title, date, and time")

// Validate checks that the required fields are present. Description is
// optional and defaults to the empty string.
func (e Event) Validate() error {
	if e.Title == "" || e.Date == "" || e.Time == "" {
		return ErrInvalidEvent
	}
	return nil
}
