package record

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	KeyCategory = "category"
	KeyAuthor   = "author"
	KeyUsedDate = "used_date"
)

var lower = cases.Lower(language.Und)

type Quote struct {
	Record
	category string
	content  string
	author   string
	usedDate string // canonical date or NeverUsed
}

func NewQuote(category, content, author, language string) (*Quote, error) {
	var q = &Quote{usedDate: NeverUsed}
	if err := q.SetLanguage(language); err != nil {
		return nil, err
	}
	q.SetCategory(category)
	if err := q.SetContent(content); err != nil {
		return nil, err
	}
	q.SetAuthor(author)
	return q, nil
}

func (q *Quote) Type() Type {
	return TypeQuote
}

func (q *Quote) Category() string {
	return q.category
}

func (q *Quote) Content() string {
	return q.content
}

func (q *Quote) Author() string {
	return q.author
}

// UsedDate returns the day on which the quote was quote of the day, as MM/DD/YYYY, or NeverUsed.
func (q *Quote) UsedDate() string {
	if q.usedDate == "" {
		return NeverUsed
	}
	return q.usedDate
}

// SetCategory stores the category in lower case.
func (q *Quote) SetCategory(category string) {
	q.category = lower.String(category)
}

func (q *Quote) SetContent(content string) error {
	content, err := checkText(KeyContent, content, true)
	if err != nil {
		return err
	}
	q.content = content
	return nil
}

func (q *Quote) SetAuthor(author string) {
	q.author = author
}

// SetUsedDate accepts any of the supported date formats and stores MM/DD/YYYY.
func (q *Quote) SetUsedDate(date string) error {
	normalized, err := NormalizeDate(date)
	if err != nil {
		return err
	}
	q.usedDate = normalized
	return nil
}

func (q *Quote) Validate() error {
	if err := q.Record.Validate(); err != nil {
		return err
	}
	_, err := checkText(KeyContent, q.content, true)
	return err
}

// QuoteFromCanonical requires content, author and language.
func QuoteFromCanonical(m map[string]interface{}) (*Quote, error) {

	content, err := requiredString(m, KeyContent)
	if err != nil {
		return nil, err
	}
	author, err := requiredString(m, KeyAuthor)
	if err != nil {
		return nil, err
	}
	language, err := requiredString(m, KeyLanguage)
	if err != nil {
		return nil, err
	}
	category, _, err := optionalString(m, KeyCategory)
	if err != nil {
		return nil, err
	}

	q, err := NewQuote(category, content, author, language)
	if err != nil {
		return nil, err
	}

	if usedDate, ok, err := optionalString(m, KeyUsedDate); err != nil {
		return nil, err
	} else if ok {
		if err := q.SetUsedDate(usedDate); err != nil {
			return nil, err
		}
	}

	if err := q.applyCanonical(m); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *Quote) Canonical() map[string]interface{} {
	var m = map[string]interface{}{
		KeyContent: q.content,
		KeyAuthor:  q.author,
	}
	if q.category != "" {
		m[KeyCategory] = q.category
	}
	if used := q.UsedDate(); used != NeverUsed {
		m[KeyUsedDate] = used
	}
	q.writeCanonical(m)
	return m
}
