package auth

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/wansing/buzz/record"
)

// Title is the role of a credential holder.
type Title string

const (
	Employee Title = "Employee"
	Manager  Title = "Manager"
)

// ParseTitle never yields Manager by default: anything but a case-insensitive "manager" is an Employee.
func ParseTitle(s string) Title {
	if strings.EqualFold(strings.TrimSpace(s), string(Manager)) {
		return Manager
	}
	return Employee
}

const maxCredentialField = 100

// Credential is the identity issued by the authentication service. It is read-only for the engine.
type Credential struct {
	ID         string
	FirstName  string
	LastName   string
	Department string
	Title      Title
	Location   string
}

func (c *Credential) IsManager() bool {
	return c != nil && c.Title == Manager
}

// Name returns the full name.
func (c *Credential) Name() string {
	return c.FirstName + " " + c.LastName
}

func credentialField(m map[string]interface{}, key string) (string, error) {

	v, ok := m[key]
	if !ok || v == nil {
		return "", &record.ValidationError{Field: key, Rule: "is required"}
	}

	var s string
	switch v := v.(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64:
		if v != float64(int64(v)) {
			return "", &record.ValidationError{Field: key, Rule: "must be a string or an integer"}
		}
		s = strconv.FormatInt(int64(v), 10)
	default:
		return "", &record.ValidationError{Field: key, Rule: "must be a string"}
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", &record.ValidationError{Field: key, Rule: "cannot be empty"}
	}
	if utf8.RuneCountInString(s) > maxCredentialField {
		return "", &record.ValidationError{Field: key, Rule: fmt.Sprintf("exceeds %d characters", maxCredentialField)}
	}
	return s, nil
}

// CredentialFromJSON validates a decoded authentication server response.
func CredentialFromJSON(m map[string]interface{}) (*Credential, error) {

	var c = &Credential{}
	var title string

	for _, field := range []struct {
		key string
		dst *string
	}{
		{"id", &c.ID},
		{"first_name", &c.FirstName},
		{"last_name", &c.LastName},
		{"department", &c.Department},
		{"title", &title},
		{"location", &c.Location},
	} {
		s, err := credentialField(m, field.key)
		if err != nil {
			return nil, err
		}
		*field.dst = s
	}

	c.Title = ParseTitle(title)
	return c, nil
}
