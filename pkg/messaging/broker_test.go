package messaging

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	raw := json.RawMessage(`{"visitId":"abc"}`)
	b, err := Encode(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte(raw), b)

	b, err = Encode(Message{ID: "1", Type: "visit.completed", Payload: raw})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1","type":"visit.completed","payload":{"visitId":"abc"}}`, string(b))

	_, err = Encode(make(chan int))
	assert.Error(t, err)
}
