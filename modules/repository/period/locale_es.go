package period

// esMonthNames and esMonthAbbrev are the codified Spanish locale set for
// filename period inference (spec.md §9 Open Questions: "required locale
// set must be codified ... currently: Spanish full + 3-letter
// abbreviations"). Index 0 is unused so month number indexes directly.
var esMonthNames = [13]string{
	"", "enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

var esMonthAbbrev = [13]string{
	"", "ene", "feb", "mar", "abr", "may", "jun",
	"jul", "ago", "sep", "oct", "nov", "dic",
}

// monthFromSpanishToken returns the 1-12 month number for a normalized
// Spanish month name or 3-letter abbreviation, or 0 if token matches none.
func monthFromSpanishToken(token string) int {
	for m := 1; m <= 12; m++ {
		if token == esMonthNames[m] || token == esMonthAbbrev[m] {
			return m
		}
	}
	return 0
}
