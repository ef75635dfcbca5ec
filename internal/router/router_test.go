package router_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sluu99/sabbathtext-sub001/internal/core"
	"github.com/sluu99/sabbathtext-sub001/internal/router"
)

func tag(name string, hits *[]string) router.ProcessorFunc {
	return func(_ context.Context, _ *core.Message) (*core.Message, error) {
		*hits = append(*hits, name)
		return nil, nil
	}
}

func inbound(body string) *core.Message {
	return core.NewInbound("+15551230000", "+15550001111", body, time.Now().UTC())
}

func TestRoute_FirstMatchWins(t *testing.T) {
	var hits []string
	r := router.New().
		HandleBody(`subscribe`, tag("subscribe", &hits)).
		HandleBody(`sub.*`, tag("wildcard", &hits))

	_, err := r.Route(context.Background(), inbound("Subscribe"))
	require.NoError(t, err)
	require.Equal(t, []string{"subscribe"}, hits)
}

func TestRoute_CaseInsensitiveAndTrimmed(t *testing.T) {
	var hits []string
	r := router.New().HandleBody(`help`, tag("help", &hits))

	for _, body := range []string{"help", "HELP", "  Help  ", "hElP"} {
		_, err := r.Route(context.Background(), inbound(body))
		require.NoError(t, err)
	}
	require.Len(t, hits, 4)
}

func TestRoute_AnchoredWholeBody(t *testing.T) {
	var hits []string
	r := router.New().
		HandleBody(`help`, tag("help", &hits)).
		CatchAll(tag("fallback", &hits))

	_, err := r.Route(context.Background(), inbound("help me please"))
	require.NoError(t, err)
	require.Equal(t, []string{"fallback"}, hits)
}

func TestRoute_EventDispatch(t *testing.T) {
	var hits []string
	r := router.New().
		HandleEvent(core.EventAccountCreated, tag("created", &hits)).
		HandleEvent(core.EventSabbath, tag("sabbath", &hits)).
		CatchAll(tag("fallback", &hits))

	evt := core.NewEvent(core.EventSabbath, "+15551230000", "", time.Now().UTC())
	_, err := r.Route(context.Background(), evt)
	require.NoError(t, err)
	require.Equal(t, []string{"sabbath"}, hits)
}

// Event-type matching is case-sensitive and exact; a user typing the
// event name does not trigger the event entry.
func TestRoute_UserTextDoesNotMatchEventEntry(t *testing.T) {
	var hits []string
	r := router.New().
		HandleEvent(core.EventSabbath, tag("sabbath", &hits)).
		CatchAll(tag("fallback", &hits))

	_, err := r.Route(context.Background(), inbound("Sabbath"))
	require.NoError(t, err)
	require.Equal(t, []string{"fallback"}, hits)
}

func TestRoute_NoMatchNoCatchAll(t *testing.T) {
	r := router.New()
	reply, err := r.Route(context.Background(), inbound("whatever"))
	require.NoError(t, err)
	require.Nil(t, reply)
}

func TestRoute_ReplyPassthrough(t *testing.T) {
	want := core.NewReply("+15551230000", "hi", time.Now().UTC())
	r := router.New().HandleBody(`hello`, router.ProcessorFunc(
		func(_ context.Context, _ *core.Message) (*core.Message, error) {
			return want, nil
		}))

	got, err := r.Route(context.Background(), inbound("Hello"))
	require.NoError(t, err)
	require.Same(t, want, got)
}
