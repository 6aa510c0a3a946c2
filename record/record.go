/*
Package record validates catalog entries. Every constructor and setter either leaves the entry in a state which satisfies its invariants or returns a *ValidationError.

Entries travel between the engine and the document store in their canonical form, a plain map. FromCanonical and Canonical are inverse to each other for all required fields.
*/
package record

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// Type tags a content variant.
type Type string

const (
	TypeJoke   Type = "jokes"
	TypeTrivia Type = "trivia"
	TypeQuote  Type = "quotes"
	TypeBio    Type = "bios"
)

// Types lists all content variants.
var Types = []Type{TypeJoke, TypeTrivia, TypeQuote, TypeBio}

func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown record type %q", s)
}

// canonical keys shared by all variants
const (
	KeyID       = "id"
	KeyRefID    = "original_id"
	KeyRefAlias = "ref_id"
	KeyIsEdit   = "is_edit"
	KeyLanguage = "language"
)

// MaxTextLength is the maximum number of characters of free text fields.
const MaxTextLength = 1000

// now is replaced in tests.
var now = time.Now

// ValidationError names the violated field and rule.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Rule
}

func invalid(field, rule string) *ValidationError {
	return &ValidationError{Field: field, Rule: rule}
}

// Entity is implemented by all content variants.
type Entity interface {
	Type() Type
	Base() *Record
	Canonical() map[string]interface{}
	Validate() error
}

// Record holds the fields shared by all variants.
type Record struct {
	id       string
	refID    string
	isEdit   *bool
	language string
}

func (r *Record) Base() *Record {
	return r
}

// ID returns the store id, or "" if the record has not been stored yet.
func (r *Record) ID() string {
	return r.id
}

// RefID returns the id of the published record which an edit proposal targets.
func (r *Record) RefID() string {
	return r.refID
}

// IsEdit returns the is_edit flag and whether it is set at all.
func (r *Record) IsEdit() (bool, bool) {
	if r.isEdit == nil {
		return false, false
	}
	return *r.isEdit, true
}

func (r *Record) Language() string {
	return r.language
}

// SetID sets the id. An empty string clears it.
func (r *Record) SetID(id string) error {
	if id != "" && !IsHexID(id) {
		return invalid(KeyID, "must be 24 hexadecimal characters")
	}
	r.id = id
	return nil
}

// SetRefID sets the reference id. An empty string clears it, which is rejected while is_edit is true.
func (r *Record) SetRefID(refID string) error {
	if refID == "" {
		if edit, _ := r.IsEdit(); edit {
			return invalid(KeyRefID, "is required while is_edit is true")
		}
		r.refID = ""
		return nil
	}
	if !IsHexID(refID) {
		return invalid(KeyRefID, "must be 24 hexadecimal characters")
	}
	r.refID = refID
	return nil
}

func (r *Record) SetIsEdit(isEdit bool) error {
	if isEdit && r.refID == "" {
		return invalid(KeyIsEdit, "an edit requires original_id")
	}
	r.isEdit = &isEdit
	return nil
}

// ClearEdit removes is_edit and the reference id, as done when a proposal is published.
func (r *Record) ClearEdit() {
	r.isEdit = nil
	r.refID = ""
}

// MarkEdit turns the record into an edit proposal for the published record with the given id.
func (r *Record) MarkEdit(refID string) error {
	if err := r.SetRefID(refID); err != nil {
		return err
	}
	if refID == "" {
		return invalid(KeyRefID, "is required for an edit")
	}
	return r.SetIsEdit(true)
}

func (r *Record) SetLanguage(language string) error {
	language = strings.TrimSpace(language)
	if language == "" {
		return invalid(KeyLanguage, "is required")
	}
	r.language = language
	return nil
}

func (r *Record) Validate() error {
	if r.language == "" {
		return invalid(KeyLanguage, "is required")
	}
	if edit, _ := r.IsEdit(); edit && r.refID == "" {
		return invalid(KeyIsEdit, "an edit requires original_id")
	}
	return nil
}

// applyCanonical reads the optional shared fields and the required language from m.
func (r *Record) applyCanonical(m map[string]interface{}) error {

	language, err := requiredString(m, KeyLanguage)
	if err != nil {
		return err
	}
	if err := r.SetLanguage(language); err != nil {
		return err
	}

	if v, ok := present(m, KeyID); ok {
		id, ok := v.(string)
		if !ok {
			return invalid(KeyID, "must be a string")
		}
		if err := r.SetID(id); err != nil {
			return err
		}
	}

	// the reference id must be applied before is_edit
	for _, key := range []string{KeyRefID, KeyRefAlias} {
		if v, ok := present(m, key); ok {
			refID, ok := v.(string)
			if !ok {
				return invalid(KeyRefID, "must be a string")
			}
			if err := r.SetRefID(refID); err != nil {
				return err
			}
			break
		}
	}

	if v, ok := present(m, KeyIsEdit); ok {
		isEdit, ok := v.(bool)
		if !ok {
			return invalid(KeyIsEdit, "must be a boolean")
		}
		if err := r.SetIsEdit(isEdit); err != nil {
			return err
		}
	}

	return nil
}

// writeCanonical adds the shared fields to m, omitting unset ones.
func (r *Record) writeCanonical(m map[string]interface{}) {
	m[KeyLanguage] = r.language
	if r.id != "" {
		m[KeyID] = r.id
	}
	if r.refID != "" {
		m[KeyRefID] = r.refID
	}
	if r.isEdit != nil {
		m[KeyIsEdit] = *r.isEdit
	}
}

// FromCanonical builds the entity of the given type from its canonical form.
func FromCanonical(t Type, m map[string]interface{}) (Entity, error) {
	if m == nil {
		return nil, invalid("content", "must be an object")
	}
	switch t {
	case TypeJoke:
		return JokeFromCanonical(m)
	case TypeTrivia:
		return TriviaFromCanonical(m)
	case TypeQuote:
		return QuoteFromCanonical(m)
	case TypeBio:
		return BioFromCanonical(m)
	default:
		return nil, fmt.Errorf("unknown record type %q", t)
	}
}

// Defaults sets the default fields of a variant on a document which is about to be created.
func Defaults(t Type, doc map[string]interface{}) {
	switch t {
	case TypeQuote:
		doc[KeyUsedDate] = NeverUsed
	}
}

// ShortField returns the (possibly dotted) path of the field whose length decides whether an entry is short.
func ShortField(t Type) string {
	switch t {
	case TypeJoke:
		return KeyContent + "." + keyText
	case TypeTrivia:
		return KeyQuestion
	case TypeBio:
		return KeySummary
	default:
		return KeyContent
	}
}

// IsHexID reports whether s is 24 hexadecimal characters, the store's native id encoding.
func IsHexID(s string) bool {
	if len(s) != 24 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// helpers for reading canonical maps

func present(m map[string]interface{}, key string) (interface{}, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func requiredString(m map[string]interface{}, key string) (string, error) {
	v, ok := present(m, key)
	if !ok {
		return "", invalid(key, "is required")
	}
	s, ok := v.(string)
	if !ok {
		return "", invalid(key, "must be a string")
	}
	return s, nil
}

func optionalString(m map[string]interface{}, key string) (string, bool, error) {
	v, ok := present(m, key)
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, invalid(key, "must be a string")
	}
	return s, true, nil
}

// toInt accepts the integer representations produced by JSON and BSON decoders.
func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

func checkText(field, s string, required bool) (string, error) {
	if required && strings.TrimSpace(s) == "" {
		return "", invalid(field, "cannot be empty")
	}
	if utf8.RuneCountInString(s) > MaxTextLength {
		return "", invalid(field, fmt.Sprintf("exceeds %d characters", MaxTextLength))
	}
	return s, nil
}
