package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

type AnswerKind string

const (
	AnswerText    AnswerKind = "text"
	AnswerChoice  AnswerKind = "choice"
	AnswerNumeric AnswerKind = "numeric"
	AnswerDate    AnswerKind = "date"
	AnswerBoolean AnswerKind = "boolean"
)

// Answer is one response value. The variant matches the question type.
type Answer interface {
	Kind() AnswerKind
	Value() interface{}
}

type (
	TextAnswer    string
	ChoiceAnswer  string
	NumericAnswer float64
	DateAnswer    string
	BooleanAnswer bool
)

func (a TextAnswer) Kind() AnswerKind    { return AnswerText }
func (a ChoiceAnswer) Kind() AnswerKind  { return AnswerChoice }
func (a NumericAnswer) Kind() AnswerKind { return AnswerNumeric }
func (a DateAnswer) Kind() AnswerKind    { return AnswerDate }
func (a BooleanAnswer) Kind() AnswerKind { return AnswerBoolean }

func (a TextAnswer) Value() interface{}    { return string(a) }
func (a ChoiceAnswer) Value() interface{}  { return string(a) }
func (a NumericAnswer) Value() interface{} { return float64(a) }
func (a DateAnswer) Value() interface{}    { return string(a) }
func (a BooleanAnswer) Value() interface{} { return bool(a) }

// Responses maps question ids to answers. On the wire each answer is the
// bare JSON value; in the store it is a {type, value} subdocument.
type Responses map[string]Answer

func (r *Responses) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("responses must be an object keyed by question id")
	}

	out := make(Responses, len(raw))
	for qid, v := range raw {
		ans, err := decodeJSONAnswer(v)
		if err != nil {
			return fmt.Errorf("response %q: %w", qid, err)
		}
		if ans != nil {
			out[qid] = ans
		}
	}
	*r = out
	return nil
}

func decodeJSONAnswer(v json.RawMessage) (Answer, error) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return nil, nil
	}

	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, err
		}
		return TextAnswer(s), nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(v, &b); err != nil {
			return nil, err
		}
		return BooleanAnswer(b), nil
	default:
		var n float64
		if err := json.Unmarshal(v, &n); err != nil {
			return nil, fmt.Errorf("unsupported answer value")
		}
		return NumericAnswer(n), nil
	}
}

type storedAnswer struct {
	Type  AnswerKind  `bson:"type"`
	Value interface{} `bson:"value"`
}

func (r Responses) MarshalBSON() ([]byte, error) {
	doc := make(bson.M, len(r))
	for qid, ans := range r {
		if ans == nil {
			continue
		}
		doc[qid] = storedAnswer{Type: ans.Kind(), Value: ans.Value()}
	}
	return bson.Marshal(doc)
}

func (r *Responses) UnmarshalBSON(data []byte) error {
	var raw map[string]struct {
		Type  AnswerKind    `bson:"type"`
		Value bson.RawValue `bson:"value"`
	}
	if err := bson.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Responses, len(raw))
	for qid, sa := range raw {
		ans, err := decodeStoredAnswer(sa.Type, sa.Value)
		if err != nil {
			return fmt.Errorf("response %q: %w", qid, err)
		}
		out[qid] = ans
	}
	*r = out
	return nil
}

func decodeStoredAnswer(kind AnswerKind, v bson.RawValue) (Answer, error) {
	switch kind {
	case AnswerText:
		return TextAnswer(v.StringValue()), nil
	case AnswerChoice:
		return ChoiceAnswer(v.StringValue()), nil
	case AnswerDate:
		return DateAnswer(v.StringValue()), nil
	case AnswerBoolean:
		return BooleanAnswer(v.Boolean()), nil
	case AnswerNumeric:
		switch v.Type {
		case bsontype.Int32:
			return NumericAnswer(v.Int32()), nil
		case bsontype.Int64:
			return NumericAnswer(v.Int64()), nil
		default:
			return NumericAnswer(v.Double()), nil
		}
	default:
		return nil, fmt.Errorf("unknown answer type %q", kind)
	}
}

// ConformAnswer converts an inferred answer into the variant required by
// the question and validates it.
func ConformAnswer(q *Question, ans Answer) (Answer, error) {
	switch q.Type {
	case QuestionText:
		switch a := ans.(type) {
		case TextAnswer:
			return a, nil
		case NumericAnswer:
			return TextAnswer(strconv.FormatFloat(float64(a), 'f', -1, 64)), nil
		case BooleanAnswer:
			return TextAnswer(strconv.FormatBool(bool(a))), nil
		}
	case QuestionMultipleChoice:
		s, ok := answerString(ans)
		if !ok {
			break
		}
		if !q.HasOption(s) {
			return nil, fmt.Errorf("%q is not an option of question %q", s, q.ID)
		}
		return ChoiceAnswer(s), nil
	case QuestionNumeric:
		switch a := ans.(type) {
		case NumericAnswer:
			return a, nil
		case TextAnswer:
			n, err := strconv.ParseFloat(strings.TrimSpace(string(a)), 64)
			if err == nil {
				return NumericAnswer(n), nil
			}
		}
	case QuestionDate:
		if s, ok := answerString(ans); ok {
			if _, err := ParseDate(s); err == nil {
				return DateAnswer(strings.TrimSpace(s)), nil
			}
		}
	case QuestionBoolean:
		switch a := ans.(type) {
		case BooleanAnswer:
			return a, nil
		case TextAnswer:
			if b, err := strconv.ParseBool(strings.TrimSpace(string(a))); err == nil {
				return BooleanAnswer(b), nil
			}
		}
	}
	return nil, fmt.Errorf("question %q expects a %s answer", q.ID, q.Type)
}

func answerString(ans Answer) (string, bool) {
	switch a := ans.(type) {
	case TextAnswer:
		return string(a), true
	case ChoiceAnswer:
		return string(a), true
	case DateAnswer:
		return string(a), true
	}
	return "", false
}
