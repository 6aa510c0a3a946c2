package util

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// Sanitize removes HTML markup from s and returns its text content in Unicode normalization form C.
// The content of script and style elements is dropped.
func Sanitize(s string) string {

	if !strings.ContainsAny(s, "<&") {
		return norm.NFC.String(s)
	}

	tokenizer := html.NewTokenizerFragment(strings.NewReader(s), "body")

	var text = &strings.Builder{}
	var skip string // name of the element whose content is dropped

	for {

		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break // assuming tokenizer.Err() == io.EOF
		}

		switch tt {
		case html.StartTagToken:
			tagNameBytes, _ := tokenizer.TagName()
			if tagName := string(tagNameBytes); skip == "" && (tagName == "script" || tagName == "style") {
				skip = tagName
			}
		case html.EndTagToken:
			tagNameBytes, _ := tokenizer.TagName()
			if string(tagNameBytes) == skip {
				skip = ""
			}
		case html.TextToken:
			if skip == "" {
				text.Write(tokenizer.Text()) // entities are unescaped
			}
		}
	}

	return norm.NFC.String(text.String())
}

// SanitizeValue sanitizes all strings in a decoded JSON value, descending into objects and arrays.
func SanitizeValue(v interface{}) interface{} {
	switch v := v.(type) {
	case string:
		return Sanitize(v)
	case map[string]interface{}:
		return SanitizeMap(v)
	case []interface{}:
		var result = make([]interface{}, len(v))
		for i := range v {
			result[i] = SanitizeValue(v[i])
		}
		return result
	default:
		return v
	}
}

// SanitizeMap returns a sanitized copy of m. Keys are kept as they are.
func SanitizeMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	var result = make(map[string]interface{}, len(m))
	for key, value := range m {
		result[key] = SanitizeValue(value)
	}
	return result
}
