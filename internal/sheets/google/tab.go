package google

import (
	"strings"
	"unicode/utf8"
)

// maxTabTitle is the longest sheet title the Sheets API accepts.
const maxTabTitle = 100

var tabReplacer = strings.NewReplacer(
	"[", "_", "]", "_", "*", "_", "?", "_",
	"/", "_", "\\", "_", ":", "_",
)

// TabName derives the tab title for an owner. Characters the Sheets UI
// rejects in titles are replaced and the result is cut to the title limit.
func TabName(prefix, ownerID string) string {
	name := tabReplacer.Replace(prefix + ownerID)
	if utf8.RuneCountInString(name) <= maxTabTitle {
		return name
	}
	return string([]rune(name)[:maxTabTitle])
}

// quoteRange builds an A1 range for a tab title, quoting the title and
// doubling embedded single quotes.
func quoteRange(tab, cells string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'!" + cells
}
