package record

const (
	KeyQuestion = "question"
	KeyAnswer   = "answer"
)

type Trivia struct {
	Record
	question string
	answer   string
}

func NewTrivia(question, answer, language string) (*Trivia, error) {
	var t = &Trivia{}
	if err := t.SetLanguage(language); err != nil {
		return nil, err
	}
	if err := t.SetQuestion(question); err != nil {
		return nil, err
	}
	if err := t.SetAnswer(answer); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Trivia) Type() Type {
	return TypeTrivia
}

func (t *Trivia) Question() string {
	return t.question
}

func (t *Trivia) Answer() string {
	return t.answer
}

func (t *Trivia) SetQuestion(question string) error {
	question, err := checkText(KeyQuestion, question, true)
	if err != nil {
		return err
	}
	t.question = question
	return nil
}

func (t *Trivia) SetAnswer(answer string) error {
	answer, err := checkText(KeyAnswer, answer, true)
	if err != nil {
		return err
	}
	t.answer = answer
	return nil
}

func (t *Trivia) Validate() error {
	if err := t.Record.Validate(); err != nil {
		return err
	}
	if _, err := checkText(KeyQuestion, t.question, true); err != nil {
		return err
	}
	_, err := checkText(KeyAnswer, t.answer, true)
	return err
}

// TriviaFromCanonical requires question, answer and language.
func TriviaFromCanonical(m map[string]interface{}) (*Trivia, error) {
	question, err := requiredString(m, KeyQuestion)
	if err != nil {
		return nil, err
	}
	answer, err := requiredString(m, KeyAnswer)
	if err != nil {
		return nil, err
	}
	language, err := requiredString(m, KeyLanguage)
	if err != nil {
		return nil, err
	}
	t, err := NewTrivia(question, answer, language)
	if err != nil {
		return nil, err
	}
	if err := t.applyCanonical(m); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Trivia) Canonical() map[string]interface{} {
	var m = map[string]interface{}{
		KeyQuestion: t.question,
		KeyAnswer:   t.answer,
	}
	t.writeCanonical(m)
	return m
}
