package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/carrental/car-rental-api/jobs"
	"github.com/carrental/car-rental-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRunner() *jobs.JobRunner {
	return jobs.NewJobRunner(nil, services.NewMockMailer(), time.Hour, zap.NewNop())
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		schedule Schedule
		wantErr  string
	}{
		{
			name:     "valid schedule",
			schedule: Schedule{OverdueReminders: "0 0 9 * * *", ExpireUnpaid: "0 */15 * * * *"},
		},
		{
			name:     "descriptors",
			schedule: Schedule{OverdueReminders: "@daily", ExpireUnpaid: "@every 10m"},
		},
		{
			name:     "invalid reminder expression",
			schedule: Schedule{OverdueReminders: "every morning", ExpireUnpaid: "@hourly"},
			wantErr:  "SendOverdueReminders",
		},
		{
			name:     "missing seconds field",
			schedule: Schedule{OverdueReminders: "@daily", ExpireUnpaid: "*/15 * * * *"},
			wantErr:  "ExpireUnpaidBookings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(testRunner(), tt.schedule, zap.NewNop())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 2, s.Entries())
		})
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	s, err := New(testRunner(), Schedule{OverdueReminders: "@yearly", ExpireUnpaid: "@yearly"}, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
