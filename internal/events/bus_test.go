package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case got := <-ch:
		return got
	case <-time.After(250 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
	var zero T
	return zero
}

func TestBus_PublishSubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[BuildStarted](b, 1)
	defer unsubscribe()

	require.NoError(t, b.Publish(context.Background(), BuildStarted{BuildID: "b1"}))
	require.Equal(t, "b1", receive(t, ch).BuildID)
}

func TestBus_InterfaceSubscriptionReceivesAllBuildEvents(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[BuildEvent](b, 3)
	defer unsubscribe()

	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, BuildStarted{BuildID: "b1"}))
	require.NoError(t, b.Publish(ctx, BuildFailed{BuildID: "b1", Stage: "load_content"}))
	require.NoError(t, b.Publish(ctx, BuildCompleted{BuildID: "b2"}))

	require.Equal(t, TypeBuildStarted, receive(t, ch).EventType())
	require.Equal(t, TypeBuildFailed, receive(t, ch).EventType())
	got := receive(t, ch)
	require.Equal(t, TypeBuildCompleted, got.EventType())
	require.Equal(t, "b2", got.EventBuildID())
}

func TestBus_ConcreteSubscriptionFiltersOtherTypes(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[BuildFailed](b, 1)
	defer unsubscribe()

	require.NoError(t, b.Publish(context.Background(), BuildCompleted{BuildID: "ok"}))
	select {
	case evt := <-ch:
		t.Fatalf("unexpected event %v", evt)
	default:
	}
}

func TestBus_PublishBackpressure(t *testing.T) {
	b := NewBus()
	defer b.Close()

	_, unsubscribe := Subscribe[BuildStarted](b, 0)
	defer unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := b.Publish(ctx, BuildStarted{BuildID: "blocked"})
	require.Error(t, err)

	classified, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	require.Equal(t, ferrors.CategoryRuntime, classified.Category())
}

func TestBus_UnsubscribeAndClose(t *testing.T) {
	b := NewBus()

	_, unsubscribe := Subscribe[BuildStarted](b, 1)
	require.Equal(t, 1, SubscriberCount[BuildStarted](b))
	unsubscribe()
	unsubscribe()
	require.Equal(t, 0, SubscriberCount[BuildStarted](b))

	ch, _ := Subscribe[BuildStarted](b, 1)
	b.Close()
	b.Close()

	_, open := <-ch
	require.False(t, open)
	require.Error(t, b.Publish(context.Background(), BuildStarted{}))

	late, _ := Subscribe[BuildStarted](b, 1)
	_, open = <-late
	require.False(t, open)
}

func TestBus_NilIsNoop(t *testing.T) {
	var b *Bus
	require.NoError(t, b.Publish(context.Background(), BuildStarted{}))
	require.Equal(t, 0, SubscriberCount[BuildStarted](b))
}
