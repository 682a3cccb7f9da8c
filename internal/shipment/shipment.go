// Package shipment extracts the reference values for overlay text from a
// shipping document's text: container number, vessel name and arrival date.
//
// Extraction is best effort. Each pattern yields a tagged Field so the
// caller can see whether the value was matched or defaulted; Extract never
// fails, it falls back to documented placeholders and logs a warning.
package shipment

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"go-shipdocs/internal/config"
	"go-shipdocs/internal/pdfops"
)

// Defaults applied when a pattern does not match.
const (
	DefaultContainerNumber = "TCLU1234567"
	DefaultShipName        = "MV Unknown Vessel"
)

var (
	containerRe = regexp.MustCompile(`Container/Trailer:\s*([A-Za-z0-9]+)`)
	arrivalRe   = regexp.MustCompile(`Arriving per\s+(.+?)\s*\([^)]*\)\s*on\s+(\d{1,2}[./]\d{1,2}[./]\d{4})`)
)

// Data holds the values stamped onto every document of a batch. It is built
// once per batch, from the first document, and read-only afterwards.
type Data struct {
	ContainerNumber string
	ShipName        string
	ArrivalDate     string // DD.MM.YYYY
	MVField         string // "<ShipName> <ArrivalDate>"
	TodaysDate      string // DD/MM/YYYY, separator intentionally differs
}

// Field is a tagged extraction result: Value is meaningful whether or not
// the pattern matched, Matched says which.
type Field struct {
	Matched bool
	Value   string
}

// Values maps overlay field names to their text, for the overlay renderer.
func (d Data) Values() map[string]string {
	return map[string]string{
		config.FieldMVField:         d.MVField,
		config.FieldContainerNumber: d.ContainerNumber,
		config.FieldTodaysDate:      d.TodaysDate,
	}
}

// Extract derives shipment data from free text. Unmatched patterns fall back
// to defaults and are logged; Extract never fails.
func Extract(text string) Data {
	return extractAt(text, time.Now())
}

// extractAt is Extract with an injectable clock.
func extractAt(text string, now time.Time) Data {
	container := ExtractContainer(text)
	if !container.Matched {
		log.WithField("default", DefaultContainerNumber).Warn("no container/trailer number found, using placeholder")
	}

	ship, arrival := ExtractArrival(text)
	if !ship.Matched {
		log.WithFields(log.Fields{
			"ship":    DefaultShipName,
			"arrival": arrival.Value,
		}).Warn("no arrival details found, using placeholders")
	}

	d := Data{
		ContainerNumber: container.Value,
		ShipName:        ship.Value,
		ArrivalDate:     arrival.Value,
		TodaysDate:      now.Format("02/01/2006"),
	}
	d.MVField = fmt.Sprintf("%s %s", d.ShipName, d.ArrivalDate)
	return d
}

// ExtractContainer matches `Container/Trailer: <alnum>`. On a miss the
// placeholder value is returned with Matched false.
func ExtractContainer(text string) Field {
	if m := containerRe.FindStringSubmatch(text); m != nil {
		return Field{Matched: true, Value: m[1]}
	}
	return Field{Value: DefaultContainerNumber}
}

// ExtractArrival matches `Arriving per <name> (...) on <date>` and returns
// the ship name and the arrival date normalized to DD.MM.YYYY. Both `.` and
// `/` separators are accepted on input. On a miss the defaults are the
// placeholder vessel and today's date.
func ExtractArrival(text string) (ship, arrival Field) {
	if m := arrivalRe.FindStringSubmatch(text); m != nil {
		return Field{Matched: true, Value: strings.TrimSpace(m[1])},
			Field{Matched: true, Value: normalizeDate(m[2])}
	}
	return Field{Value: DefaultShipName},
		Field{Value: time.Now().Format("02.01.2006")}
}

// normalizeDate rewrites d/m/yyyy or d.m.yyyy as DD.MM.YYYY.
func normalizeDate(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == '/' })
	if len(parts) != 3 {
		return s
	}
	return fmt.Sprintf("%s.%s.%s", pad2(parts[0]), pad2(parts[1]), parts[2])
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// ExtractFromFile extracts the document's text and runs Extract on it. It
// fails only when the PDF itself is unreadable.
func ExtractFromFile(path string) (Data, error) {
	text, err := pdfops.DocumentText(path)
	if err != nil {
		return Data{}, err
	}
	return Extract(text), nil
}
