package history

import (
	"time"

	"github.com/voxcraft/voxcraft-golang/internal/models"
)

// titleMaxLen is where long source texts get cut off in list titles.
const titleMaxLen = 50

// DeriveTitle builds the display title for a history row. Voice
// conversions are labelled by their target voice since the source
// "text" is synthetic; everything else shows the source text,
// truncated.
func DeriveTitle(service models.ServiceKind, text string, voice *string) string {
	if service == models.ServiceSeedVC && voice != nil {
		return "Voice conversion to " + *voice
	}
	if text == "" {
		return "Generated clip"
	}
	runes := []rune(text)
	if len(runes) > titleMaxLen {
		return string(runes[:titleMaxLen]) + "..."
	}
	return text
}

// FormatDate renders the calendar date of a clip in local time.
func FormatDate(t time.Time) string {
	return t.Local().Format("1/2/2006")
}

// FormatTime renders the clock time of a clip as 2-digit hour:minute.
func FormatTime(t time.Time) string {
	return t.Local().Format("15:04")
}

// DateGroup is one calendar day's worth of history items.
type DateGroup struct {
	Date  string `json:"date"`
	Items []Item `json:"items"`
}

// GroupByDate buckets items by calendar date, preserving the incoming
// (newest-first) order both across and within groups. Purely a display
// concern layered on the recorder's output.
func GroupByDate(items []Item) []DateGroup {
	var groups []DateGroup
	index := map[string]int{}
	for _, item := range items {
		i, ok := index[item.Date]
		if !ok {
			i = len(groups)
			index[item.Date] = i
			groups = append(groups, DateGroup{Date: item.Date})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}
