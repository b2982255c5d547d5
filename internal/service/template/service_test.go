package template

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository/mocks"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
)

type fixture struct {
	svc       *Service
	templates *mocks.TemplateRepository
	visits    *mocks.VisitRepository
	events    *mocks.Emitter
}

func setup() *fixture {
	f := &fixture{
		templates: &mocks.TemplateRepository{},
		visits:    &mocks.VisitRepository{},
		events:    &mocks.Emitter{},
	}
	auditor := &mocks.Recorder{}
	auditor.On("Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	f.events.On("Emit", mock.Anything, model.EventTemplateUpdated, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.svc = NewService(f.templates, f.visits, auditor, f.events)
	return f
}

func stored() *model.Template {
	tpl := &model.Template{
		Name:    "Annual wellness",
		Version: 1,
		Active:  true,
		Sections: []model.Section{{
			ID:    "s1",
			Title: "Vitals",
			Questions: []model.Question{
				{ID: "q1", Text: "Weight", Type: model.QuestionNumeric},
				{ID: "q2", Text: "Smoker", Type: model.QuestionBoolean},
			},
		}},
	}
	tpl.ID = primitive.NewObjectID()
	return tpl
}

func TestCreateAssignsIDs(t *testing.T) {
	f := setup()
	f.templates.On("Create", mock.Anything, mock.AnythingOfType("*model.Template")).Return(nil)

	uid := primitive.NewObjectID()
	ctx := model.WithActor(context.Background(), &model.Actor{UserID: uid})
	tpl, err := f.svc.Create(ctx, &model.CreateTemplateRequest{
		Name: "Intake",
		Sections: []model.Section{{
			Title:     "History",
			Questions: []model.Question{{Text: "Allergies", Type: model.QuestionText}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, tpl.Version)
	assert.True(t, tpl.Active)
	assert.NotEmpty(t, tpl.Sections[0].ID)
	assert.NotEmpty(t, tpl.Sections[0].Questions[0].ID)
	assert.Equal(t, &uid, tpl.CreatedBy)
}

func TestCreateRejectsInvalidQuestion(t *testing.T) {
	f := setup()
	_, err := f.svc.Create(context.Background(), &model.CreateTemplateRequest{
		Name: "Intake",
		Sections: []model.Section{{
			Title:     "History",
			Questions: []model.Question{{Text: "Pick", Type: model.QuestionMultipleChoice}},
		}},
	})
	assert.True(t, apperrors.IsBadRequest(err))
	f.templates.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpdateKeepsIdentifiersAndBumpsVersion(t *testing.T) {
	f := setup()
	tpl := stored()
	f.templates.On("Get", mock.Anything, tpl.ID).Return(tpl, nil)
	f.templates.On("Replace", mock.Anything, tpl).Return(nil)

	name := "Annual wellness v2"
	sections := []model.Section{{
		ID:    "s1",
		Title: "Vitals",
		Questions: []model.Question{
			{ID: "q2", Text: "Do you smoke?", Type: model.QuestionBoolean},
			{ID: "q1", Text: "Weight (kg)", Type: model.QuestionNumeric},
		},
	}}
	got, err := f.svc.Update(context.Background(), tpl.ID.Hex(), &model.UpdateTemplateRequest{Name: &name, Sections: &sections})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, "Annual wellness v2", got.Name)
	assert.Equal(t, "q2", got.Sections[0].Questions[0].ID)
	f.events.AssertCalled(t, "Emit", mock.Anything, model.EventTemplateUpdated, tpl.ID.Hex(), mock.Anything)
}

func TestUpdateRejectsNewIdentifiers(t *testing.T) {
	tests := map[string][]model.Section{
		"missing section id": {{Title: "New"}},
		"unknown section id": {{ID: "s9", Title: "New"}},
		"missing question id": {{ID: "s1", Title: "Vitals", Questions: []model.Question{
			{Text: "Height", Type: model.QuestionNumeric},
		}}},
		"unknown question id": {{ID: "s1", Title: "Vitals", Questions: []model.Question{
			{ID: "q9", Text: "Height", Type: model.QuestionNumeric},
		}}},
	}
	for name, sections := range tests {
		t.Run(name, func(t *testing.T) {
			f := setup()
			tpl := stored()
			f.templates.On("Get", mock.Anything, tpl.ID).Return(tpl, nil)

			_, err := f.svc.Update(context.Background(), tpl.ID.Hex(), &model.UpdateTemplateRequest{Sections: &sections})
			assert.True(t, apperrors.IsBadRequest(err))
			f.templates.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateKeepsIdentifierKinds(t *testing.T) {
	tests := map[string][]model.Section{
		"question id as section": {{ID: "q1", Title: "Vitals", Questions: []model.Question{
			{ID: "q2", Text: "Smoker", Type: model.QuestionBoolean},
		}}},
		"section id as question": {{ID: "s1", Title: "Vitals", Questions: []model.Question{
			{ID: "s1", Text: "Weight", Type: model.QuestionNumeric},
		}}},
		"swapped": {{ID: "q1", Title: "Vitals", Questions: []model.Question{
			{ID: "s1", Text: "Weight", Type: model.QuestionNumeric},
		}}},
	}
	for name, sections := range tests {
		t.Run(name, func(t *testing.T) {
			f := setup()
			tpl := stored()
			f.templates.On("Get", mock.Anything, tpl.ID).Return(tpl, nil)

			_, err := f.svc.Update(context.Background(), tpl.ID.Hex(), &model.UpdateTemplateRequest{Sections: &sections})
			assert.True(t, apperrors.IsBadRequest(err), err)
			f.templates.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateQuestionType(t *testing.T) {
	retyped := func() []model.Section {
		return []model.Section{{ID: "s1", Title: "Vitals", Questions: []model.Question{
			{ID: "q1", Text: "Weight", Type: model.QuestionText},
			{ID: "q2", Text: "Smoker", Type: model.QuestionBoolean},
		}}}
	}

	t.Run("in use", func(t *testing.T) {
		f := setup()
		tpl := stored()
		f.templates.On("Get", mock.Anything, tpl.ID).Return(tpl, nil)
		f.visits.On("CountByTemplate", mock.Anything, tpl.ID).Return(int64(3), nil)

		sections := retyped()
		_, err := f.svc.Update(context.Background(), tpl.ID.Hex(), &model.UpdateTemplateRequest{Sections: &sections})
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))
		assert.Contains(t, err.Error(), "q1")
		assert.Equal(t, model.QuestionNumeric, tpl.Question("q1").Type)
		f.templates.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything)
	})

	t.Run("unused", func(t *testing.T) {
		f := setup()
		tpl := stored()
		f.templates.On("Get", mock.Anything, tpl.ID).Return(tpl, nil)
		f.templates.On("Replace", mock.Anything, tpl).Return(nil)
		f.visits.On("CountByTemplate", mock.Anything, tpl.ID).Return(int64(0), nil)

		sections := retyped()
		got, err := f.svc.Update(context.Background(), tpl.ID.Hex(), &model.UpdateTemplateRequest{Sections: &sections})
		require.NoError(t, err)
		assert.Equal(t, model.QuestionText, got.Question("q1").Type)
	})
}

func TestUpdatePropagatesVersionConflict(t *testing.T) {
	f := setup()
	tpl := stored()
	f.templates.On("Get", mock.Anything, tpl.ID).Return(tpl, nil)
	f.templates.On("Replace", mock.Anything, tpl).Return(apperrors.Conflict("template was modified concurrently", nil))

	active := false
	_, err := f.svc.Update(context.Background(), tpl.ID.Hex(), &model.UpdateTemplateRequest{Active: &active})
	assert.True(t, apperrors.IsConflict(err))
}

func TestAddSectionIgnoresClientIDs(t *testing.T) {
	f := setup()
	tpl := stored()
	f.templates.On("Get", mock.Anything, tpl.ID).Return(tpl, nil)
	f.templates.On("Replace", mock.Anything, tpl).Return(nil)

	sec, err := f.svc.AddSection(context.Background(), tpl.ID.Hex(), &model.AddSectionRequest{
		Title:     "Lifestyle",
		Questions: []model.Question{{ID: "q1", Text: "Exercise", Type: model.QuestionText}},
	})
	require.NoError(t, err)
	assert.NotEqual(t, "q1", sec.Questions[0].ID)
	assert.Len(t, tpl.Sections, 2)
	assert.Equal(t, 2, tpl.Version)
}

func TestAddQuestion(t *testing.T) {
	f := setup()
	tpl := stored()
	f.templates.On("Get", mock.Anything, tpl.ID).Return(tpl, nil)
	f.templates.On("Replace", mock.Anything, tpl).Return(nil)

	q, err := f.svc.AddQuestion(context.Background(), tpl.ID.Hex(), "s1", &model.AddQuestionRequest{
		Text:    "Diet",
		Type:    model.QuestionMultipleChoice,
		Options: []model.Option{{Value: "vegan"}, {Value: "omnivore", Label: "Omnivore"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, q.ID)
	assert.Equal(t, "vegan", q.Options[0].Label)
	assert.Len(t, tpl.Sections[0].Questions, 3)
}

func TestAddQuestionUnknownSection(t *testing.T) {
	f := setup()
	tpl := stored()
	f.templates.On("Get", mock.Anything, tpl.ID).Return(tpl, nil)

	_, err := f.svc.AddQuestion(context.Background(), tpl.ID.Hex(), "nope", &model.AddQuestionRequest{Text: "x", Type: model.QuestionText})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeleteReferencedTemplate(t *testing.T) {
	f := setup()
	id := primitive.NewObjectID()
	f.visits.On("CountByTemplate", mock.Anything, id).Return(int64(1), nil)

	err := f.svc.Delete(context.Background(), id.Hex())
	assert.True(t, apperrors.IsConflict(err))
	f.templates.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
