//go:build integration

package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
)

var testDB *DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start mongo container: %v\n", err)
		os.Exit(1)
	}

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "27017")

	testDB, err = NewDB(ctx, Config{
		URI:      fmt.Sprintf("mongodb://%s:%s", host, port.Port()),
		Database: "wellness_test",
	}, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	if err = testDB.EnsureIndexes(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create indexes: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestPatientAndVisitFlow(t *testing.T) {
	ctx := context.Background()
	patients := NewPatientRepository(testDB)
	visits := NewVisitRepository(testDB)

	p := &model.Patient{FirstName: "Jane", LastName: "Smith", DateOfBirth: "1980-02-03", Email: "jane@example.com"}
	require.NoError(t, patients.Create(ctx, p))
	require.False(t, p.ID.IsZero())

	ids, err := patients.FindIDsBySearch(ctx, "smi")
	require.NoError(t, err)
	assert.Contains(t, ids, p.ID)

	day := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		v := &model.Visit{Patient: p.ID, ScheduledDate: day.AddDate(0, 0, i), Status: model.VisitStatusScheduled}
		require.NoError(t, visits.Create(ctx, v))
	}

	from := day.AddDate(0, 0, 1)
	page, err := visits.List(ctx, repository.VisitFilter{
		ListOptions: model.ListOptions{From: &from},
		PatientIDs:  []primitive.ObjectID{p.ID},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	assert.True(t, page.Items[0].ScheduledDate.After(page.Items[1].ScheduledDate))

	n, err := visits.CountByPatient(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	empty, err := visits.List(ctx, repository.VisitFilter{PatientIDs: []primitive.ObjectID{}})
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
}

func TestTemplateReplaceDetectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	templates := NewTemplateRepository(testDB)

	tpl := &model.Template{Name: "Annual", Version: 1, Active: true}
	require.NoError(t, templates.Create(ctx, tpl))

	tpl.Version = 2
	tpl.Name = "Annual wellness"
	require.NoError(t, templates.Replace(ctx, tpl))

	stale := *tpl
	stale.Version = 2
	err := templates.Replace(ctx, &stale)
	assert.True(t, apperrors.IsConflict(err))
}

func TestUserEmailIsUnique(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(testDB)

	require.NoError(t, users.Create(ctx, &model.User{Email: "Admin@Example.com", Name: "Admin", Role: model.RoleAdmin, Status: model.UserStatusActive}))
	err := users.Create(ctx, &model.User{Email: "admin@example.com", Name: "Dup", Role: model.RoleStaff, Status: model.UserStatusPending})
	assert.True(t, apperrors.IsConflict(err))

	u, err := users.GetByEmail(ctx, "ADMIN@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Admin", u.Name)

	n, err := users.CountByRole(ctx, model.RoleAdmin, model.UserStatusActive)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestPracticeUpsert(t *testing.T) {
	ctx := context.Background()
	practice := NewPracticeRepository(testDB)

	_, err := practice.Get(ctx)
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, practice.Upsert(ctx, &model.PracticeSettings{Name: "Main St Clinic"}))
	require.NoError(t, practice.Upsert(ctx, &model.PracticeSettings{Name: "Main Street Clinic"}))

	got, err := practice.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Main Street Clinic", got.Name)
}

func TestOutboxLifecycle(t *testing.T) {
	ctx := context.Background()
	outbox := NewOutboxRepository(testDB)

	ev := &model.OutboxEvent{EventType: model.EventVisitCreated, AggregateID: "v1", Payload: model.JSONMap{"id": "v1"}}
	require.NoError(t, outbox.Create(ctx, ev))

	pending, err := outbox.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, outbox.MarkFailed(ctx, ev.ID, "broker down", false))
	pending, err = outbox.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)

	require.NoError(t, outbox.MarkProcessed(ctx, ev.ID))
	pending, err = outbox.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
