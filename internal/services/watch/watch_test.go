package watch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/LerianStudio/confdogma/internal/domain/apperr"
	"github.com/LerianStudio/confdogma/internal/services/engine"
)

func TestWaitReturnsImmediatelyWhenAlreadyAdvanced(t *testing.T) {
	s := New(nil)
	s.Publish("proj", "repo", engine.HeadAdvanced{Revision: 5, TouchedPaths: []string{"/a.yaml"}})

	res, err := s.Wait(context.Background(), "proj", "repo", Request{LastKnownRevision: 3, Timeout: time.Second})
	assert.NoError(t, err)
	assert.EqualValues(t, 5, res.Revision)
	assert.False(t, res.NotModified)
}

func TestWaitZeroTimeoutReturnsNotModifiedWithoutBlocking(t *testing.T) {
	s := New(nil)

	res, err := s.Wait(context.Background(), "proj", "repo", Request{LastKnownRevision: 0, Timeout: 0})
	assert.NoError(t, err)
	assert.True(t, res.NotModified)
}

func TestWaitWakesOnPublish(t *testing.T) {
	s := New(nil)

	done := make(chan Result, 1)
	errCh := make(chan error, 1)

	go func() {
		res, err := s.Wait(context.Background(), "proj", "repo", Request{LastKnownRevision: 0, Timeout: time.Second})
		errCh <- err
		done <- res
	}()

	time.Sleep(20 * time.Millisecond)
	s.Publish("proj", "repo", engine.HeadAdvanced{Revision: 1, TouchedPaths: []string{"/a.yaml"}})

	select {
	case res := <-done:
		assert.NoError(t, <-errCh)
		assert.EqualValues(t, 1, res.Revision)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not wake on Publish")
	}
}

func TestWaitTimesOutWithoutAdvance(t *testing.T) {
	s := New(nil)

	res, err := s.Wait(context.Background(), "proj", "repo", Request{LastKnownRevision: 0, Timeout: 30 * time.Millisecond})
	assert.NoError(t, err)
	assert.True(t, res.NotModified)
}

func TestWaitRespectsPathFilter(t *testing.T) {
	s := New(nil)
	s.Publish("proj", "repo", engine.HeadAdvanced{Revision: 1, TouchedPaths: []string{"/unrelated.yaml"}})

	res, err := s.Wait(context.Background(), "proj", "repo", Request{LastKnownRevision: 0, PathPattern: "/match.yaml", Timeout: 30 * time.Millisecond})
	assert.NoError(t, err)
	assert.True(t, res.NotModified)
}

func TestWaitMatchesOnPathFilter(t *testing.T) {
	s := New(nil)
	s.Publish("proj", "repo", engine.HeadAdvanced{Revision: 1, TouchedPaths: []string{"/match.yaml"}})

	res, err := s.Wait(context.Background(), "proj", "repo", Request{LastKnownRevision: 0, PathPattern: "/match.yaml", Timeout: 30 * time.Millisecond})
	assert.NoError(t, err)
	assert.EqualValues(t, 1, res.Revision)
}

func TestWaitReturnsShuttingDownAfterShutdown(t *testing.T) {
	s := New(nil)
	s.Shutdown()

	_, err := s.Wait(context.Background(), "proj", "repo", Request{LastKnownRevision: 0, Timeout: time.Second})
	assert.Error(t, err)
	assert.Equal(t, apperr.KindShuttingDown, apperr.KindOf(err))
}

func TestWaitUnblocksOnShutdown(t *testing.T) {
	s := New(nil)

	errCh := make(chan error, 1)

	go func() {
		_, err := s.Wait(context.Background(), "proj", "repo", Request{LastKnownRevision: 0, Timeout: time.Second})
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	s.Shutdown()

	select {
	case err := <-errCh:
		assert.Error(t, err)
		assert.Equal(t, apperr.KindShuttingDown, apperr.KindOf(err))
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not unblock on Shutdown")
	}
}

func TestWaitUnblocksOnContextCancel(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	resCh := make(chan Result, 1)

	go func() {
		res, err := s.Wait(ctx, "proj", "repo", Request{LastKnownRevision: 0, Timeout: time.Second})
		errCh <- err
		resCh <- res
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
		assert.True(t, (<-resCh).NotModified)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not unblock on context cancel")
	}
}

type recordingBroadcaster struct {
	calls int
}

func (b *recordingBroadcaster) Broadcast(ctx context.Context, project, repo string, adv engine.HeadAdvanced) {
	b.calls++
}

func TestPublishBroadcastsWhenConfigured(t *testing.T) {
	b := &recordingBroadcaster{}
	s := New(b)

	s.Publish("proj", "repo", engine.HeadAdvanced{Revision: 1})
	assert.Equal(t, 1, b.calls)
}

func TestApplyRemoteDoesNotBroadcast(t *testing.T) {
	b := &recordingBroadcaster{}
	s := New(b)

	s.ApplyRemote("proj", "repo", engine.HeadAdvanced{Revision: 1})
	assert.Equal(t, 0, b.calls)

	res, err := s.Wait(context.Background(), "proj", "repo", Request{LastKnownRevision: 0, Timeout: time.Second})
	assert.NoError(t, err)
	assert.EqualValues(t, 1, res.Revision)
}
