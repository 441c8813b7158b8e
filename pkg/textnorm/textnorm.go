// Package textnorm normaliza texto libre para búsquedas insensibles a tildes y mayúsculas
// ("Protección Auditiva" y "proteccion auditiva" producen la misma clave).
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold elimina diacríticos, aplica case folding y colapsa espacios.
func Fold(s string) string {
	// transform.Chain no es seguro para uso concurrente: se construye por llamada.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), cases.Fold(), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(out), " ")
}

// Join pliega y concatena las partes no vacías con un espacio; se usa para la columna search_text.
func Join(parts ...string) string {
	folded := make([]string, 0, len(parts))
	for _, p := range parts {
		if f := Fold(p); f != "" {
			folded = append(folded, f)
		}
	}
	return strings.Join(folded, " ")
}

// Contains indica si haystack (ya plegado) contiene la consulta tras plegarla.
// Consulta vacía siempre coincide.
func Contains(haystack, query string) bool {
	q := Fold(query)
	if q == "" {
		return true
	}
	return strings.Contains(haystack, q)
}
