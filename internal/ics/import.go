package ics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "calagent/internal/log"
	"calagent/internal/model"
)

// Importer fetches a remote ICS feed and flattens its VEVENTs into plain
// calendar events. Recurrence rules are not expanded; each VEVENT becomes
// exactly one entry on its DTSTART date.
type Importer struct {
	client *http.Client
}

// NewImporter returns an Importer with a bounded HTTP client.
func NewImporter() *Importer {
	return &Importer{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Fetch downloads the ICS payload at url.
func (im *Importer) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("ics url is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	appLog.Info("ics fetch start", "url", redactURL(url))

	resp, err := im.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ics fetch: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	appLog.Info("ics fetch success", "url", redactURL(url), "bytes", len(body))
	return body, nil
}

// ParseEvents parses an ICS payload into flat events. A VEVENT without a
// summary or a usable DTSTART is logged and skipped; the rest of the
// payload still imports.
func ParseEvents(body []byte) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		ev, perr := flattenVEvent(ve)
		if perr != nil {
			appLog.Warn("ics import: skipping vevent", "reason", perr.Error())
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "event_count", len(events))
	return events, nil
}

func flattenVEvent(ve *ical.VEvent) (model.Event, error) {
	var out model.Event

	sp := ve.GetProperty(ical.ComponentPropertySummary)
	if sp == nil || sp.Value == "" {
		return out, errors.New("missing SUMMARY")
	}
	out.Title = sp.Value

	start, err := ve.GetStartAt()
	if err != nil || start.IsZero() {
		return out, errors.New("missing or unparseable DTSTART")
	}
	out.Date = start.Format(dateLayout)
	out.Time = start.Format("15:04")

	if dp := ve.GetProperty(ical.ComponentPropertyDescription); dp != nil {
		out.Description = dp.Value
	}

	return out, nil
}

// redactURL hides the path and query of a feed URL for logging; private
// ICS links routinely carry access tokens.
func redactURL(u string) string {
	const redacted = "/...(redacted)"

	i := strings.Index(u, "://")
	if i < 0 {
		return "ics://...(redacted)"
	}

	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		return u[:i+3] + rest[:j] + redacted
	}
	return u + redacted
}
