package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type QuestionType string

const (
	QuestionText           QuestionType = "text"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionNumeric        QuestionType = "numeric"
	QuestionDate           QuestionType = "date"
	QuestionBoolean        QuestionType = "boolean"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionText, QuestionMultipleChoice, QuestionNumeric, QuestionDate, QuestionBoolean:
		return true
	}
	return false
}

type Option struct {
	Value string `json:"value" bson:"value"`
	Label string `json:"label" bson:"label"`
}

type Question struct {
	ID       string       `json:"id" bson:"id"`
	Text     string       `json:"text" bson:"text"`
	Type     QuestionType `json:"type" bson:"type"`
	Required bool         `json:"required" bson:"required"`
	HelpText string       `json:"helpText,omitempty" bson:"helpText,omitempty"`
	Options  []Option     `json:"options,omitempty" bson:"options,omitempty"`
}

func (q *Question) HasOption(value string) bool {
	for _, o := range q.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// Validate checks the question's shape. Identifiers are checked by the
// template.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question text is required")
	}
	if !q.Type.Valid() {
		return fmt.Errorf("question %q has unknown type %q", q.Text, q.Type)
	}
	if q.Type == QuestionMultipleChoice {
		if len(q.Options) == 0 {
			return fmt.Errorf("multiple choice question %q needs at least one option", q.Text)
		}
		seen := make(map[string]bool, len(q.Options))
		for i := range q.Options {
			o := &q.Options[i]
			if strings.TrimSpace(o.Value) == "" {
				return fmt.Errorf("question %q has an option without a value", q.Text)
			}
			if o.Label == "" {
				o.Label = o.Value
			}
			if seen[o.Value] {
				return fmt.Errorf("question %q has duplicate option %q", q.Text, o.Value)
			}
			seen[o.Value] = true
		}
	} else if len(q.Options) > 0 {
		return fmt.Errorf("only multiple choice questions may have options")
	}
	return nil
}

type Section struct {
	ID          string     `json:"id" bson:"id"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description,omitempty" bson:"description,omitempty"`
	Questions   []Question `json:"questions" bson:"questions"`
}

func (s *Section) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("section title is required")
	}
	for i := range s.Questions {
		if err := s.Questions[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

type Template struct {
	Base        `bson:",inline"`
	Name        string              `json:"name" bson:"name"`
	Description string              `json:"description,omitempty" bson:"description,omitempty"`
	Version     int                 `json:"version" bson:"version"`
	Active      bool                `json:"active" bson:"active"`
	Sections    []Section           `json:"sections" bson:"sections"`
	CreatedBy   *primitive.ObjectID `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
}

// NewID returns a fresh section or question identifier.
func NewID() string {
	return uuid.NewString()
}

// AssignIDs gives every section and question without an identifier a new
// one. Only called when content is first created.
func (t *Template) AssignIDs() {
	for i := range t.Sections {
		AssignSectionIDs(&t.Sections[i])
	}
}

func AssignSectionIDs(s *Section) {
	if strings.TrimSpace(s.ID) == "" {
		s.ID = NewID()
	}
	if s.Questions == nil {
		s.Questions = []Question{}
	}
	for j := range s.Questions {
		if strings.TrimSpace(s.Questions[j].ID) == "" {
			s.Questions[j].ID = NewID()
		}
	}
}

// Validate checks the full template structure including identifier
// uniqueness across sections and questions.
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if t.Sections == nil {
		t.Sections = []Section{}
	}

	seen := make(map[string]bool)
	for i := range t.Sections {
		s := &t.Sections[i]
		if s.ID == "" {
			return fmt.Errorf("section %d has no id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate id %q", s.ID)
		}
		seen[s.ID] = true
		if err := s.Validate(); err != nil {
			return err
		}
		for _, q := range s.Questions {
			if q.ID == "" {
				return fmt.Errorf("question %q has no id", q.Text)
			}
			if seen[q.ID] {
				return fmt.Errorf("duplicate id %q", q.ID)
			}
			seen[q.ID] = true
		}
	}
	return nil
}

func (t *Template) Section(id string) *Section {
	for i := range t.Sections {
		if t.Sections[i].ID == id {
			return &t.Sections[i]
		}
	}
	return nil
}

func (t *Template) Question(id string) *Question {
	for i := range t.Sections {
		for j := range t.Sections[i].Questions {
			if t.Sections[i].Questions[j].ID == id {
				return &t.Sections[i].Questions[j]
			}
		}
	}
	return nil
}

// Conform checks responses against the template's questions and returns
// them converted to the variants the question types require.
func (t *Template) Conform(responses Responses) (Responses, error) {
	out := make(Responses, len(responses))
	for qid, ans := range responses {
		q := t.Question(qid)
		if q == nil {
			return nil, fmt.Errorf("unknown question %q", qid)
		}
		conformed, err := ConformAnswer(q, ans)
		if err != nil {
			return nil, err
		}
		out[qid] = conformed
	}
	return out, nil
}

// MissingRequired lists required questions without an answer.
func (t *Template) MissingRequired(responses Responses) []string {
	var missing []string
	for _, s := range t.Sections {
		for _, q := range s.Questions {
			if !q.Required {
				continue
			}
			ans, ok := responses[q.ID]
			if !ok || ans == nil {
				missing = append(missing, q.ID)
				continue
			}
			if s, isStr := answerString(ans); isStr && strings.TrimSpace(s) == "" {
				missing = append(missing, q.ID)
			}
		}
	}
	return missing
}

type CreateTemplateRequest struct {
	Name        string    `json:"name" binding:"required"`
	Description string    `json:"description"`
	Active      *bool     `json:"active"`
	Sections    []Section `json:"sections"`
}

func (r *CreateTemplateRequest) ToTemplate() *Template {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	sections := r.Sections
	if sections == nil {
		sections = []Section{}
	}
	return &Template{
		Name:        strings.TrimSpace(r.Name),
		Description: r.Description,
		Active:      active,
		Sections:    sections,
	}
}

type UpdateTemplateRequest struct {
	Name        *string    `json:"name" binding:"omitempty,min=1"`
	Description *string    `json:"description"`
	Active      *bool      `json:"active"`
	Sections    *[]Section `json:"sections"`
}

type AddSectionRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
}

type AddQuestionRequest struct {
	Text     string       `json:"text" binding:"required"`
	Type     QuestionType `json:"type" binding:"required"`
	Required bool         `json:"required"`
	HelpText string       `json:"helpText"`
	Options  []Option     `json:"options"`
}
