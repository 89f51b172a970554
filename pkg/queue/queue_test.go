package queue

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobDecode(t *testing.T) {
	in := NotificationPayload{UserID: uuid.New(), PaymentReference: "pi_123", Quantity: 2}
	job, err := NewJob(JobTicketPaid, in)
	require.NoError(t, err)
	assert.Equal(t, JobTicketPaid, job.Type)
	assert.Zero(t, job.Attempt)
	assert.NotEmpty(t, job.ID)

	var out NotificationPayload
	require.NoError(t, job.Decode(&out))
	assert.Equal(t, in, out)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	job := &Job{Type: JobShirtIssued, Payload: []byte(`{"user_id":`)}
	var out NotificationPayload
	assert.Error(t, job.Decode(&out))
}
