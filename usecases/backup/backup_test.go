//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package backup

import (
	"context"
	"errors"
	"testing"
	"time"

	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	enterrors "github.com/weaviate/chaos-harness/entities/errors"
)

type fakeClient struct {
	mock.Mock
}

func (f *fakeClient) CreateBackup(ctx context.Context, backend, id string, include []string) (Status, error) {
	args := f.Called(backend, id, include)
	return args.Get(0).(Status), args.Error(1)
}

func (f *fakeClient) BackupStatus(ctx context.Context, backend, id string) (Status, error) {
	args := f.Called(backend, id)
	return args.Get(0).(Status), args.Error(1)
}

func newCreator(client Client) *Creator {
	logger, _ := logrustest.NewNullLogger()
	return NewCreator(client, "filesystem", time.Millisecond, time.Second, logger, nil)
}

func TestCreateBackup(t *testing.T) {
	t.Run("success after intermediate statuses", func(t *testing.T) {
		client := &fakeClient{}
		client.On("CreateBackup", "filesystem", "1700000000", []string(nil)).
			Return(Status{ID: "1700000000", Status: StatusStarted}, nil)
		client.On("BackupStatus", "filesystem", "1700000000").
			Return(Status{Status: StatusStarted}, nil).Once()
		client.On("BackupStatus", "filesystem", "1700000000").
			Return(Status{Status: StatusTransferring}, nil).Once()
		client.On("BackupStatus", "filesystem", "1700000000").
			Return(Status{Status: StatusSuccess}, nil).Once()

		err := newCreator(client).CreateBackup(context.Background(), "1700000000")
		require.Nil(t, err)
		client.AssertNumberOfCalls(t, "BackupStatus", 3)
	})

	t.Run("immediate success does not poll", func(t *testing.T) {
		client := &fakeClient{}
		client.On("CreateBackup", "filesystem", "b", []string{"Paragraph"}).
			Return(Status{Status: StatusSuccess}, nil)

		err := newCreator(client).CreateBackup(context.Background(), "b", "Paragraph")
		require.Nil(t, err)
		client.AssertNotCalled(t, "BackupStatus", mock.Anything, mock.Anything)
	})

	for _, terminal := range []string{StatusFailed, StatusCanceled, "UNKNOWN"} {
		t.Run("terminal status "+terminal, func(t *testing.T) {
			client := &fakeClient{}
			client.On("CreateBackup", "filesystem", "b", []string(nil)).
				Return(Status{Status: StatusStarted}, nil)
			client.On("BackupStatus", "filesystem", "b").
				Return(Status{Status: terminal, Error: "disk full"}, nil)

			err := newCreator(client).CreateBackup(context.Background(), "b")
			var failure *enterrors.BackupFailure
			require.True(t, errors.As(err, &failure))
			assert.Equal(t, terminal, failure.Status)
			assert.Equal(t, "disk full", failure.Reason)
			assert.Equal(t, "filesystem", failure.Backend)
		})
	}

	t.Run("create request fails", func(t *testing.T) {
		client := &fakeClient{}
		client.On("CreateBackup", "filesystem", "b", []string(nil)).
			Return(Status{}, enterrors.NewTransportStatusError("create backup", 422, "backup exists"))

		err := newCreator(client).CreateBackup(context.Background(), "b")
		require.NotNil(t, err)
		assert.True(t, enterrors.IsTransport(err))
	})

	t.Run("status request fails", func(t *testing.T) {
		client := &fakeClient{}
		client.On("CreateBackup", "filesystem", "b", []string(nil)).
			Return(Status{Status: StatusStarted}, nil)
		client.On("BackupStatus", "filesystem", "b").
			Return(Status{}, enterrors.NewTransportError("backup status", errors.New("EOF")))

		err := newCreator(client).CreateBackup(context.Background(), "b")
		require.NotNil(t, err)
		assert.True(t, enterrors.IsTransport(err))
		client.AssertNumberOfCalls(t, "BackupStatus", 1)
	})

	t.Run("never finishes", func(t *testing.T) {
		logger, _ := logrustest.NewNullLogger()
		client := &fakeClient{}
		client.On("CreateBackup", "filesystem", "b", []string(nil)).
			Return(Status{Status: StatusStarted}, nil)
		client.On("BackupStatus", "filesystem", "b").
			Return(Status{Status: StatusTransferring}, nil)

		c := NewCreator(client, "filesystem", time.Millisecond, 20*time.Millisecond, logger, nil)
		err := c.CreateBackup(context.Background(), "b")
		require.NotNil(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestID(t *testing.T) {
	assert.Equal(t, "1700000000", ID(time.Unix(1700000000, 0)))
}
