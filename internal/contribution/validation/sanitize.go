package validation

import (
	"reflect"
	"strings"
	"unicode/utf8"
)

// MaxTextLength bounds every free-text field, in runes.
const MaxTextLength = 255

var stripChars = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "", "&", "")

// SanitizeText removes markup-significant characters, trims, and truncates to MaxTextLength runes.
func SanitizeText(s string) string {
	s = strings.TrimSpace(stripChars.Replace(s))
	if utf8.RuneCountInString(s) <= MaxTextLength {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:MaxTextLength]))
}

// sanitize rewrites string fields of a struct pointer in place. Fields tagged
// `sanitize:"text"` get SanitizeText; every other string is trimmed.
func sanitize(v any) {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return
	}
	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if !field.CanSet() || field.Kind() != reflect.String {
			continue
		}
		if typ.Field(i).Tag.Get("sanitize") == "text" {
			field.SetString(SanitizeText(field.String()))
			continue
		}
		field.SetString(strings.TrimSpace(field.String()))
	}
}
