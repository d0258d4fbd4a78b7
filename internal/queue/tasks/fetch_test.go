package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/userhub/engine/internal/models"
	"github.com/userhub/engine/internal/services"
	appErr "github.com/userhub/engine/pkg/errors"
	"github.com/userhub/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	_, err := logger.Init("info", "json", "")
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockIngester struct {
	mock.Mock
}

func (m *mockIngester) FetchAndSave(ctx context.Context, count int) (*services.BatchReport, error) {
	args := m.Called(ctx, count)
	if v := args.Get(0); v != nil {
		return v.(*services.BatchReport), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTaskClient struct {
	mock.Mock
}

func (m *mockTaskClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if v := args.Get(0); v != nil {
		return v.(*asynq.TaskInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func fetchTask(t *testing.T, count int) *asynq.Task {
	t.Helper()
	task, err := NewFetchTask(count)
	require.NoError(t, err)
	return task
}

func TestFetchTaskHandler_HandleFetch(t *testing.T) {
	t.Run("successful ingest", func(t *testing.T) {
		ing := &mockIngester{}
		report := &services.BatchReport{
			Requested: 2,
			Created:   []models.User{{ID: 1}},
			Items:     []services.ItemResult{{Status: services.ItemCreated}, {Status: services.ItemConflict}},
		}
		ing.On("FetchAndSave", mock.Anything, 2).Return(report, nil).Once()

		err := NewFetchTaskHandler(ing).HandleFetch(context.Background(), fetchTask(t, 2))
		require.NoError(t, err)
		ing.AssertExpectations(t)
	})

	t.Run("upstream failure is retried", func(t *testing.T) {
		ing := &mockIngester{}
		upstream := appErr.New(appErr.CodeUnavailable, "random user service unavailable")
		ing.On("FetchAndSave", mock.Anything, 5).Return(nil, upstream).Once()

		err := NewFetchTaskHandler(ing).HandleFetch(context.Background(), fetchTask(t, 5))
		require.Error(t, err)
		require.False(t, errors.Is(err, asynq.SkipRetry))
		ing.AssertExpectations(t)
	})

	t.Run("invalid count is not retried", func(t *testing.T) {
		ing := &mockIngester{}
		ing.On("FetchAndSave", mock.Anything, 9000).
			Return(nil, appErr.New(appErr.CodeInvalid, "Too many users requested, max - 5000")).Once()

		err := NewFetchTaskHandler(ing).HandleFetch(context.Background(), fetchTask(t, 9000))
		require.ErrorIs(t, err, asynq.SkipRetry)
		ing.AssertExpectations(t)
	})

	t.Run("malformed payload", func(t *testing.T) {
		ing := &mockIngester{}
		err := NewFetchTaskHandler(ing).HandleFetch(context.Background(), asynq.NewTask(TypeFetchUsers, []byte("{")))
		require.ErrorIs(t, err, asynq.SkipRetry)
		ing.AssertNotCalled(t, "FetchAndSave", mock.Anything, mock.Anything)
	})
}

func TestEnqueuer_EnqueueFetch(t *testing.T) {
	client := &mockTaskClient{}
	client.On("EnqueueContext", mock.Anything, mock.MatchedBy(func(task *asynq.Task) bool {
		var p FetchPayload
		return task.Type() == TypeFetchUsers && json.Unmarshal(task.Payload(), &p) == nil && p.Count == 100
	})).Return(&asynq.TaskInfo{ID: "task-1"}, nil).Once()

	id, err := NewEnqueuer(client).EnqueueFetch(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, "task-1", id)
	client.AssertExpectations(t)

	broken := &mockTaskClient{}
	broken.On("EnqueueContext", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: refused")).Once()
	_, err = NewEnqueuer(broken).EnqueueFetch(context.Background(), 1)
	require.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
}
