package record

import "strings"

const (
	KeyLevel       = "level"
	KeyDifficulty  = "difficulty" // alias of level
	KeyContent     = "content"
	KeyExplanation = "explanation"

	keyType     = "type"
	keyText     = "text"
	keyQuestion = "question"
	keyAnswer   = "answer"
)

// ContentType tags the shape of a joke.
type ContentType string

const (
	OneLiner ContentType = "one_liner"
	QA       ContentType = "qa"
)

// JokeContent is either a one-liner (Text) or a question with an answer.
type JokeContent struct {
	Type     ContentType
	Text     string
	Question string
	Answer   string
}

func (c JokeContent) validate() error {
	switch c.Type {
	case OneLiner:
		if strings.TrimSpace(c.Text) == "" {
			return invalid(KeyContent+"."+keyText, "cannot be empty")
		}
	case QA:
		if strings.TrimSpace(c.Question) == "" {
			return invalid(KeyContent+"."+keyQuestion, "cannot be empty")
		}
		if strings.TrimSpace(c.Answer) == "" {
			return invalid(KeyContent+"."+keyAnswer, "cannot be empty")
		}
	default:
		return invalid(KeyContent+"."+keyType, `must be "one_liner" or "qa"`)
	}
	return nil
}

func (c JokeContent) canonical() map[string]interface{} {
	if c.Type == OneLiner {
		return map[string]interface{}{keyType: string(OneLiner), keyText: c.Text}
	}
	return map[string]interface{}{keyType: string(QA), keyQuestion: c.Question, keyAnswer: c.Answer}
}

func jokeContentFromCanonical(v interface{}) (JokeContent, error) {

	m, ok := v.(map[string]interface{})
	if !ok {
		return JokeContent{}, invalid(KeyContent, "must be an object")
	}

	typ, err := requiredString(m, keyType)
	if err != nil {
		return JokeContent{}, invalid(KeyContent+"."+keyType, err.(*ValidationError).Rule)
	}

	var c = JokeContent{Type: ContentType(typ)}
	var field = func(key string) (string, error) {
		s, err := requiredString(m, key)
		if err != nil {
			return "", invalid(KeyContent+"."+key, err.(*ValidationError).Rule)
		}
		return s, nil
	}

	switch c.Type {
	case OneLiner:
		if c.Text, err = field(keyText); err != nil {
			return JokeContent{}, err
		}
	case QA:
		if c.Question, err = field(keyQuestion); err != nil {
			return JokeContent{}, err
		}
		if c.Answer, err = field(keyAnswer); err != nil {
			return JokeContent{}, err
		}
	}

	return c, c.validate()
}

type Joke struct {
	Record
	difficulty  int
	content     JokeContent
	explanation string
}

// NewJoke returns a joke which satisfies all invariants, or a *ValidationError.
func NewJoke(difficulty int, content JokeContent, explanation, language string) (*Joke, error) {
	var j = &Joke{}
	if err := j.SetLanguage(language); err != nil {
		return nil, err
	}
	if err := j.SetContent(content); err != nil {
		return nil, err
	}
	j.explanation = strings.TrimSpace(explanation) // checked together with the difficulty
	if err := j.SetDifficulty(difficulty); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Joke) Type() Type {
	return TypeJoke
}

func (j *Joke) Difficulty() int {
	return j.difficulty
}

func (j *Joke) Content() JokeContent {
	return j.content
}

func (j *Joke) Explanation() string {
	return j.explanation
}

// SetDifficulty sets the level. Level 3 requires an explanation to be set before.
func (j *Joke) SetDifficulty(difficulty int) error {
	if difficulty < 1 || difficulty > 3 {
		return invalid(KeyLevel, "must be 1, 2 or 3")
	}
	if difficulty == 3 && j.explanation == "" {
		return invalid(KeyExplanation, "is required when the level is 3")
	}
	j.difficulty = difficulty
	return nil
}

func (j *Joke) SetContent(content JokeContent) error {
	if err := content.validate(); err != nil {
		return err
	}
	j.content = content
	return nil
}

func (j *Joke) SetExplanation(explanation string) error {
	explanation = strings.TrimSpace(explanation)
	if explanation == "" && j.difficulty == 3 {
		return invalid(KeyExplanation, "is required when the level is 3")
	}
	j.explanation = explanation
	return nil
}

func (j *Joke) Validate() error {
	if err := j.Record.Validate(); err != nil {
		return err
	}
	if err := j.content.validate(); err != nil {
		return err
	}
	if j.difficulty < 1 || j.difficulty > 3 {
		return invalid(KeyLevel, "must be 1, 2 or 3")
	}
	if j.difficulty == 3 && j.explanation == "" {
		return invalid(KeyExplanation, "is required when the level is 3")
	}
	return nil
}

// JokeFromCanonical requires level (or difficulty), content and language.
func JokeFromCanonical(m map[string]interface{}) (*Joke, error) {

	v, ok := present(m, KeyLevel)
	if !ok {
		v, ok = present(m, KeyDifficulty)
	}
	if !ok {
		return nil, invalid(KeyLevel, "is required")
	}
	difficulty, ok := toInt(v)
	if !ok {
		return nil, invalid(KeyLevel, "must be an integer")
	}

	v, ok = present(m, KeyContent)
	if !ok {
		return nil, invalid(KeyContent, "is required")
	}
	content, err := jokeContentFromCanonical(v)
	if err != nil {
		return nil, err
	}

	explanation, _, err := optionalString(m, KeyExplanation)
	if err != nil {
		return nil, err
	}

	language, err := requiredString(m, KeyLanguage)
	if err != nil {
		return nil, err
	}

	j, err := NewJoke(difficulty, content, explanation, language)
	if err != nil {
		return nil, err
	}
	if err := j.applyCanonical(m); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Joke) Canonical() map[string]interface{} {
	var m = map[string]interface{}{
		KeyLevel:   j.difficulty,
		KeyContent: j.content.canonical(),
	}
	if j.explanation != "" {
		m[KeyExplanation] = j.explanation
	}
	j.writeCanonical(m)
	return m
}
