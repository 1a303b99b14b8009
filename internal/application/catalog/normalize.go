package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lleva un nombre de catálogo a su forma de búsqueda:
// minúsculas, sin tildes y con espacios colapsados ("Gramínea  con Sinodon" -> "graminea con sinodon").
func Normalize(name string) string {
	// transform.Chain guarda estado: uno por llamada.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, name)
	if err != nil {
		out = name
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}
