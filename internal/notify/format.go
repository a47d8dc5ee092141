package notify

import (
	"fmt"
	"strings"
	"time"
)

// Recipients read the mails in Morocco time
var maroc = time.FixedZone("GMT+1", 3600)

var joursFR = []string{"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi"}

var moisFR = []string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// formatDateFR renders a timestamp as a French long date, e.g.
// "Mardi, 03 juin 2025"
func formatDateFR(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	local := t.In(maroc)
	jour := []rune(joursFR[int(local.Weekday())])
	return fmt.Sprintf("%s%s, %02d %s %d",
		strings.ToUpper(string(jour[0])), string(jour[1:]), local.Day(), moisFR[int(local.Month())-1], local.Year())
}

// formatTimeFR renders just the clock time in Morocco time
func formatTimeFR(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.In(maroc).Format("15:04")
}

// orNA substitutes a placeholder for empty feed fields
func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
