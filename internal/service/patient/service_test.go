package patient

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
	svc      *Service
	patients *mocks.PatientRepository
	visits   *mocks.VisitRepository
	auditor  *mocks.Recorder
}

func setup() *fixture {
	f := &fixture{
		patients: &mocks.PatientRepository{},
		visits:   &mocks.VisitRepository{},
		auditor:  &mocks.Recorder{},
	}
	f.auditor.On("Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	f.svc = NewService(f.patients, f.visits, f.auditor)
	return f
}

func TestCreate(t *testing.T) {
	f := setup()
	ctx := context.Background()

	f.patients.On("Create", ctx, mock.AnythingOfType("*model.Patient")).
		Run(func(args mock.Arguments) { args.Get(1).(*model.Patient).ID = primitive.NewObjectID() }).
		Return(nil)

	p, err := f.svc.Create(ctx, &model.CreatePatientRequest{
		FirstName:   " Jane ",
		LastName:    "Smith",
		DateOfBirth: "1980-02-03",
		Email:       "Jane@Example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane", p.FirstName)
	assert.Equal(t, "jane@example.com", p.Email)
	assert.Equal(t, []string{}, p.MedicalHistory)
	f.auditor.AssertCalled(t, "Record", ctx, model.AuditActionCreate, model.AuditEntityPatient, p.ID.Hex(), p)
}

func TestCreateRejectsBadDate(t *testing.T) {
	f := setup()
	_, err := f.svc.Create(context.Background(), &model.CreatePatientRequest{FirstName: "A", LastName: "B", DateOfBirth: "03/02/1980"})
	assert.True(t, apperrors.IsBadRequest(err))
	f.patients.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGetMalformedIDSkipsStore(t *testing.T) {
	f := setup()
	_, err := f.svc.Get(context.Background(), "not-an-id")
	assert.True(t, apperrors.IsBadRequest(err))
	f.patients.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestGetNotFound(t *testing.T) {
	f := setup()
	id := primitive.NewObjectID()
	f.patients.On("Get", mock.Anything, id).Return(nil, apperrors.NotFound("patient", nil))

	_, err := f.svc.Get(context.Background(), id.Hex())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateIsShallowMerge(t *testing.T) {
	f := setup()
	id := primitive.NewObjectID()
	stored := &model.Patient{FirstName: "Jane", LastName: "Smith", Phone: "555", MedicalHistory: []string{"asthma"}}
	stored.ID = id
	f.patients.On("Get", mock.Anything, id).Return(stored, nil)
	f.patients.On("Update", mock.Anything, stored).Return(nil)

	last := "Doe"
	p, err := f.svc.Update(context.Background(), id.Hex(), &model.UpdatePatientRequest{LastName: &last})
	require.NoError(t, err)
	assert.Equal(t, "Jane", p.FirstName)
	assert.Equal(t, "Doe", p.LastName)
	assert.Equal(t, "555", p.Phone)
	assert.Equal(t, []string{"asthma"}, p.MedicalHistory)
}

func TestDeleteWithVisitsConflicts(t *testing.T) {
	f := setup()
	id := primitive.NewObjectID()
	f.visits.On("CountByPatient", mock.Anything, id).Return(int64(2), nil)

	err := f.svc.Delete(context.Background(), id.Hex())
	assert.True(t, apperrors.IsConflict(err))
	f.patients.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDelete(t *testing.T) {
	f := setup()
	id := primitive.NewObjectID()
	f.visits.On("CountByPatient", mock.Anything, id).Return(int64(0), nil)
	f.patients.On("Delete", mock.Anything, id).Return(nil)

	require.NoError(t, f.svc.Delete(context.Background(), id.Hex()))
	f.patients.AssertExpectations(t)
}
