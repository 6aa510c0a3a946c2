package record

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	KeyName      = "name"
	KeyParagraph = "paragraph"
	KeySummary   = "summary"
	KeyBirthYear = "birth_year"
	KeyDeathYear = "death_year"
	KeySourceURL = "source_url"
)

type Bio struct {
	Record
	name      string
	paragraph string
	summary   string
	birthYear *int
	deathYear *int
	sourceURL string
}

func NewBio(name, paragraph, sourceURL, language string) (*Bio, error) {
	var b = &Bio{}
	if err := b.SetLanguage(language); err != nil {
		return nil, err
	}
	b.SetName(name)
	b.SetParagraph(paragraph)
	if err := b.SetSourceURL(sourceURL); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bio) Type() Type {
	return TypeBio
}

func (b *Bio) Name() string {
	return b.name
}

func (b *Bio) Paragraph() string {
	return b.paragraph
}

func (b *Bio) Summary() string {
	return b.summary
}

// BirthYear returns the birth year and whether it is known.
func (b *Bio) BirthYear() (int, bool) {
	if b.birthYear == nil {
		return 0, false
	}
	return *b.birthYear, true
}

func (b *Bio) DeathYear() (int, bool) {
	if b.deathYear == nil {
		return 0, false
	}
	return *b.deathYear, true
}

func (b *Bio) SourceURL() string {
	return b.sourceURL
}

func (b *Bio) SetName(name string) {
	b.name = name
}

func (b *Bio) SetParagraph(paragraph string) {
	b.paragraph = paragraph
}

func (b *Bio) SetSummary(summary string) {
	b.summary = summary
}

func checkYear(field string, year *int) error {
	if year != nil && *year > now().Year() {
		return invalid(field, fmt.Sprintf("must not be after %d", now().Year()))
	}
	return nil
}

// SetBirthYear sets the birth year. nil means unknown.
func (b *Bio) SetBirthYear(year *int) error {
	if err := checkYear(KeyBirthYear, year); err != nil {
		return err
	}
	b.birthYear = year
	return nil
}

func (b *Bio) SetDeathYear(year *int) error {
	if err := checkYear(KeyDeathYear, year); err != nil {
		return err
	}
	b.deathYear = year
	return nil
}

func validURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (b *Bio) SetSourceURL(sourceURL string) error {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return invalid(KeySourceURL, "is required")
	}
	if !validURL(sourceURL) {
		return invalid(KeySourceURL, "must be a valid url")
	}
	b.sourceURL = sourceURL
	return nil
}

func (b *Bio) Validate() error {
	if err := b.Record.Validate(); err != nil {
		return err
	}
	if err := checkYear(KeyBirthYear, b.birthYear); err != nil {
		return err
	}
	if err := checkYear(KeyDeathYear, b.deathYear); err != nil {
		return err
	}
	if !validURL(b.sourceURL) {
		return invalid(KeySourceURL, "must be a valid url")
	}
	return nil
}

func optionalYear(m map[string]interface{}, key string) (*int, error) {
	v, ok := present(m, key)
	if !ok {
		return nil, nil
	}
	year, ok := toInt(v)
	if !ok {
		return nil, invalid(key, "must be an integer")
	}
	return &year, nil
}

// BioFromCanonical requires name, paragraph, language and source_url.
func BioFromCanonical(m map[string]interface{}) (*Bio, error) {

	name, err := requiredString(m, KeyName)
	if err != nil {
		return nil, err
	}
	paragraph, err := requiredString(m, KeyParagraph)
	if err != nil {
		return nil, err
	}
	language, err := requiredString(m, KeyLanguage)
	if err != nil {
		return nil, err
	}
	sourceURL, err := requiredString(m, KeySourceURL)
	if err != nil {
		return nil, err
	}

	b, err := NewBio(name, paragraph, sourceURL, language)
	if err != nil {
		return nil, err
	}

	summary, _, err := optionalString(m, KeySummary)
	if err != nil {
		return nil, err
	}
	b.SetSummary(summary)

	birthYear, err := optionalYear(m, KeyBirthYear)
	if err != nil {
		return nil, err
	}
	if err := b.SetBirthYear(birthYear); err != nil {
		return nil, err
	}

	deathYear, err := optionalYear(m, KeyDeathYear)
	if err != nil {
		return nil, err
	}
	if err := b.SetDeathYear(deathYear); err != nil {
		return nil, err
	}

	if err := b.applyCanonical(m); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bio) Canonical() map[string]interface{} {
	var m = map[string]interface{}{
		KeyName:      b.name,
		KeyParagraph: b.paragraph,
		KeySourceURL: b.sourceURL,
	}
	if b.summary != "" {
		m[KeySummary] = b.summary
	}
	if b.birthYear != nil {
		m[KeyBirthYear] = *b.birthYear
	}
	if b.deathYear != nil {
		m[KeyDeathYear] = *b.deathYear
	}
	b.writeCanonical(m)
	return m
}
