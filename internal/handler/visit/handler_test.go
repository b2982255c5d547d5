package visit

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/wellness-api/internal/handler/handlertest"
	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/service/mocks"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
)

const patientID = "64b7f0c2a1b2c3d4e5f60718"

func setup() (*gin.Engine, *mocks.VisitService) {
	svc := &mocks.VisitService{}
	r := handlertest.Engine(nil)
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r, svc
}

func storedVisit(status model.VisitStatus) *model.Visit {
	pid, _ := primitive.ObjectIDFromHex(patientID)
	v := &model.Visit{
		Patient:           pid,
		ScheduledDate:     time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		Status:            status,
		Responses:         model.Responses{},
		CompletedSections: []int{},
	}
	v.ID = primitive.NewObjectID()
	return v
}

func TestCreateVisit(t *testing.T) {
	r, svc := setup()
	v := storedVisit(model.VisitStatusScheduled)
	svc.On("Create", mock.Anything, mock.MatchedBy(func(req *model.CreateVisitRequest) bool {
		return req.Patient == patientID && req.ScheduledDate == "2025-03-01"
	})).Return(v, nil)

	w, env := handlertest.Do(t, r, http.MethodPost, "/api/v1/visits",
		`{"patient":"`+patientID+`","scheduledDate":"2025-03-01"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Value, &got))
	assert.Equal(t, "scheduled", got["status"])
	assert.Equal(t, map[string]interface{}{}, got["responses"])
}

func TestCreateVisitRejectsBadInput(t *testing.T) {
	tests := map[string]struct {
		body string
		msg  string
	}{
		"missing patient": {`{"scheduledDate":"2025-03-01"}`, "patient is required"},
		"missing date":    {`{"patient":"` + patientID + `"}`, "scheduledDate is required"},
		"bad patient id":  {`{"patient":"123","scheduledDate":"2025-03-01"}`, "patient must be a valid id"},
		"not json":        {`{`, ""},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r, svc := setup()
			w, env := handlertest.Do(t, r, http.MethodPost, "/api/v1/visits", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, env.OK)
			assert.Contains(t, env.Error.Message, tt.msg)
			svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateVisitCompletes(t *testing.T) {
	r, svc := setup()
	v := storedVisit(model.VisitStatusCompleted)
	v.Responses = model.Responses{"q1": model.TextAnswer("yes")}

	svc.On("Update", mock.Anything, v.ID.Hex(), mock.MatchedBy(func(req *model.UpdateVisitRequest) bool {
		return req.Status != nil && *req.Status == model.VisitStatusCompleted &&
			req.Responses != nil && (*req.Responses)["q1"] == model.TextAnswer("yes")
	})).Return(v, nil)

	w, env := handlertest.Do(t, r, http.MethodPut, "/api/v1/visits/"+v.ID.Hex(),
		`{"status":"completed","responses":{"q1":"yes"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Status    string                 `json:"status"`
		Responses map[string]interface{} `json:"responses"`
	}
	require.NoError(t, json.Unmarshal(env.Value, &got))
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, "yes", got.Responses["q1"])
}

func TestRecordResponses(t *testing.T) {
	r, svc := setup()
	v := storedVisit(model.VisitStatusInProgress)
	svc.On("RecordResponses", mock.Anything, v.ID.Hex(), &model.RecordResponsesRequest{
		Responses:         model.Responses{"weight": model.NumericAnswer(72.5), "smoker": model.BooleanAnswer(false)},
		CompletedSections: []int{0},
	}).Return(v, nil)

	w, _ := handlertest.Do(t, r, http.MethodPut, "/api/v1/visits/"+v.ID.Hex()+"/responses",
		`{"responses":{"weight":72.5,"smoker":false},"completedSections":[0]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestCompleteVisitErrors(t *testing.T) {
	r, svc := setup()
	svc.On("Complete", mock.Anything, "missing", mock.Anything).Return(nil, apperrors.Validation(`invalid visit id "missing"`))
	svc.On("Complete", mock.Anything, patientID, mock.Anything).Return(nil, apperrors.NotFound("visit", nil))

	w, _ := handlertest.Do(t, r, http.MethodPost, "/api/v1/visits/missing/complete", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = handlertest.Do(t, r, http.MethodPost, "/api/v1/visits/"+patientID+"/complete", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListVisitsDateRange(t *testing.T) {
	r, svc := setup()
	svc.On("List", mock.Anything, mock.MatchedBy(func(o model.ListOptions) bool {
		return o.Status == "completed" && o.From != nil && o.To != nil &&
			o.To.Equal(time.Date(2025, 3, 31, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC))
	})).Return(&model.Page[*model.Visit]{
		Items: []*model.Visit{storedVisit(model.VisitStatusCompleted)},
		Total: 41,
		Page:  1,
		Limit: 20,
	}, nil)

	w, env := handlertest.Do(t, r, http.MethodGet, "/api/v1/visits?status=completed&fromDate=2025-03-01&toDate=2025-03-31", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Visits     []json.RawMessage `json:"visits"`
		Pagination struct {
			Pages int `json:"pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Value, &got))
	assert.Len(t, got.Visits, 1)
	assert.Equal(t, 3, got.Pagination.Pages)
}

func TestDeleteVisit(t *testing.T) {
	r, svc := setup()
	svc.On("Delete", mock.Anything, patientID).Return(nil)

	w, env := handlertest.Do(t, r, http.MethodDelete, "/api/v1/visits/"+patientID, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"`+patientID+`","deleted":true}`, string(env.Value))
}
