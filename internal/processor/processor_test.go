package processor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sluu99/sabbathtext-sub001/internal/clock"
	"github.com/sluu99/sabbathtext-sub001/internal/core"
	"github.com/sluu99/sabbathtext-sub001/internal/geo"
	"github.com/sluu99/sabbathtext-sub001/internal/processor"
	"github.com/sluu99/sabbathtext-sub001/internal/queue"
	"github.com/sluu99/sabbathtext-sub001/internal/router"
	"github.com/sluu99/sabbathtext-sub001/internal/store"
	"github.com/sluu99/sabbathtext-sub001/internal/sun"
)

const (
	phone   = "+15551230000"
	gateway = "+15550001111"
)

// Monday before the Friday 2015-04-24 sunset at 2015-04-25T03:09:15.348Z.
var monday = time.Date(2015, time.April, 20, 0, 0, 0, 0, time.UTC)

var redmondFridaySunset = time.Date(2015, time.April, 25, 3, 9, 15, 348e6, time.UTC)

type env struct {
	deps   *processor.Deps
	router *router.Router
	store  *store.Memory
	events *queue.Memory
	clk    *clock.Fake
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clk := clock.NewFake(monday)
	st := store.NewMemory(clk)
	events := queue.NewMemory(clk)
	resolver, err := geo.NewStaticResolver()
	require.NoError(t, err)

	deps := &processor.Deps{
		Accounts:      st,
		Locations:     resolver,
		Sun:           sun.NewCalc(nil),
		Events:        events,
		Clock:         clk,
		Log:           zap.NewNop(),
		CycleDuration: 24 * time.Hour,
	}
	return &env{
		deps:   deps,
		router: processor.NewRouter(deps),
		store:  st,
		events: events,
		clk:    clk,
	}
}

func (e *env) text(t *testing.T, body string) *core.Message {
	t.Helper()
	msg := core.NewInbound(phone, gateway, body, e.clk.Now())
	reply, err := e.router.Route(context.Background(), msg)
	require.NoError(t, err)
	return reply
}

func (e *env) event(t *testing.T, evt core.EventType, param string) *core.Message {
	t.Helper()
	msg := core.NewEvent(evt, phone, param, e.clk.Now())
	reply, err := e.router.Route(context.Background(), msg)
	require.NoError(t, err)
	return reply
}

func (e *env) account(t *testing.T) *core.Account {
	t.Helper()
	acct, err := e.store.GetByPhone(context.Background(), phone)
	require.NoError(t, err)
	return acct
}

// scheduled decodes every message sitting on the event queue of the
// given type, pairing it with its visibility instant.
func (e *env) scheduled(t *testing.T, evt core.EventType) []scheduledEvent {
	t.Helper()
	var out []scheduledEvent
	for _, qm := range e.events.Snapshot() {
		msg, err := core.DecodeMessage(qm.Body)
		require.NoError(t, err)
		if msg.EventType == evt {
			out = append(out, scheduledEvent{msg: msg, visibleAt: qm.NextVisible})
		}
	}
	return out
}

type scheduledEvent struct {
	msg       *core.Message
	visibleAt time.Time
}

func (e *env) clearEvents(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, qm := range e.events.Snapshot() {
		require.NoError(t, e.events.Delete(ctx, qm.ID))
	}
}

// subscribeWithZip drives an account to the steady state: subscribed,
// located, cycle running, event queue drained.
func (e *env) subscribeWithZip(t *testing.T) {
	t.Helper()
	e.text(t, "Subscribe")
	e.text(t, "Zip 98052")
	e.event(t, core.EventAccountSubscribed, "")
	e.clearEvents(t)
}

func TestSubscribe_NewNumber(t *testing.T) {
	e := newEnv(t)

	reply := e.text(t, "Subscribe")
	require.NotNil(t, reply)
	require.Equal(t, phone, reply.Recipient)
	require.Equal(t, core.ReplyMissingZipCode, reply.Body)

	acct := e.account(t)
	require.Equal(t, core.StatusSubscribed, acct.Status)
	require.Empty(t, acct.ZipCode)

	require.Len(t, e.scheduled(t, core.EventAccountCreated), 1)
	subs := e.scheduled(t, core.EventAccountSubscribed)
	require.Len(t, subs, 1)
	require.Equal(t, phone, subs[0].msg.Sender)
}

func TestSubscribe_WithZipOnFile(t *testing.T) {
	e := newEnv(t)
	e.text(t, "Subscribe")
	e.text(t, "Zip 98052")
	e.text(t, "Unsubscribe")
	e.clearEvents(t)

	reply := e.text(t, "Subscribe")
	require.NotNil(t, reply)

	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	want := core.ReplySubscribed("Redmond", "WA", redmondFridaySunset.In(la))
	require.Equal(t, want, reply.Body)
}

func TestZipUpdate(t *testing.T) {
	e := newEnv(t)
	e.text(t, "Subscribe")
	e.clearEvents(t)

	reply := e.text(t, "Zip 98052")
	require.NotNil(t, reply)

	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	want := core.ReplyConfirmZipCodeUpdate("Redmond", "WA", redmondFridaySunset.In(la))
	require.Equal(t, want, reply.Body)

	acct := e.account(t)
	require.Equal(t, "98052", acct.ZipCode)

	updates := e.scheduled(t, core.EventZipCodeUpdated)
	require.Len(t, updates, 1)
	require.Equal(t, "98052", updates[0].msg.Parameter)
}

func TestZipUpdate_CaseAndSpelling(t *testing.T) {
	e := newEnv(t)
	e.text(t, "Subscribe")

	for _, body := range []string{"zip 98052", "ZIP 98052", "Zipcode 98052", "zipCODE 98052"} {
		reply := e.text(t, body)
		require.NotNil(t, reply, "body %q", body)
		require.Contains(t, reply.Body, "Redmond", "body %q", body)
	}
}

func TestZipUpdate_Malformed(t *testing.T) {
	e := newEnv(t)
	e.text(t, "Subscribe")

	for _, body := range []string{"Zip", "Zip abcde", "Zip 1234", "Zip 123456", "Zip 12 34"} {
		reply := e.text(t, body)
		require.NotNil(t, reply, "body %q", body)
		require.Equal(t, core.ReplyBadZipCode, reply.Body, "body %q", body)
	}
	require.Empty(t, e.account(t).ZipCode)
}

func TestZipUpdate_UnknownZip(t *testing.T) {
	e := newEnv(t)
	e.text(t, "Subscribe")

	reply := e.text(t, "Zip 99999")
	require.NotNil(t, reply)
	require.Equal(t, core.ReplyZipCodeNotFound("99999"), reply.Body)
	require.Empty(t, e.account(t).ZipCode)
}

func TestZipUpdate_WorksBeforeSubscribing(t *testing.T) {
	e := newEnv(t)

	reply := e.text(t, "Zip 98052")
	require.NotNil(t, reply)
	require.Contains(t, reply.Body, "Redmond")

	acct := e.account(t)
	require.Equal(t, core.StatusBrandNew, acct.Status)
	require.Equal(t, "98052", acct.ZipCode)
}

func TestUnsubscribe(t *testing.T) {
	e := newEnv(t)
	e.text(t, "Subscribe")

	reply := e.text(t, "Unsubscribe")
	require.NotNil(t, reply)
	require.Equal(t, core.ReplyUnsubscribed, reply.Body)
	require.Equal(t, core.StatusUnsubscribed, e.account(t).Status)
}

func TestUnsubscribe_Stop(t *testing.T) {
	e := newEnv(t)
	e.text(t, "Subscribe")

	reply := e.text(t, "STOP")
	require.NotNil(t, reply)
	require.Equal(t, core.ReplyUnsubscribed, reply.Body)
}

func TestUnsubscribe_SilentWhenNotSubscribed(t *testing.T) {
	e := newEnv(t)
	reply := e.text(t, "Unsubscribe")
	require.Nil(t, reply)
}

func TestGreetings(t *testing.T) {
	e := newEnv(t)

	reply := e.text(t, "Hello")
	require.NotNil(t, reply)
	require.Equal(t, core.ReplyGreeting, reply.Body)
	require.Len(t, e.scheduled(t, core.EventGreetingsRequested), 1)
}

func TestHelp(t *testing.T) {
	e := newEnv(t)
	reply := e.text(t, "Help")
	require.NotNil(t, reply)
	require.Equal(t, core.ReplyHelp, reply.Body)
}

func TestZipHint_Subscriber(t *testing.T) {
	e := newEnv(t)
	e.text(t, "Subscribe")

	reply := e.text(t, "98052")
	require.NotNil(t, reply)
	require.Equal(t, core.ReplyZipCodeHint("98052"), reply.Body)
}

func TestUnknown_SubscriberGetsHint(t *testing.T) {
	e := newEnv(t)
	e.text(t, "Subscribe")

	reply := e.text(t, "what is this")
	require.NotNil(t, reply)
	require.Equal(t, core.ReplyUnknownCommand, reply.Body)
}

func TestUnknown_SilentForStrangers(t *testing.T) {
	e := newEnv(t)
	reply := e.text(t, "what is this")
	require.Nil(t, reply)
}

func TestEmptySenderRejected(t *testing.T) {
	e := newEnv(t)
	msg := core.NewInbound("", gateway, "Subscribe", e.clk.Now())
	_, err := e.router.Route(context.Background(), msg)
	require.Error(t, err)
	require.True(t, errors.Is(err, processor.ErrValidation))
}

func TestInboundCommandsRecorded(t *testing.T) {
	e := newEnv(t)
	e.text(t, "Subscribe")

	acct := e.account(t)
	hist := e.store.History(acct.ID)
	require.Len(t, hist, 1)
	require.Equal(t, "Subscribe", hist[0].Body)

	// Synthetic traffic stays out of the history.
	e.event(t, core.EventSabbath, "")
	require.Len(t, e.store.History(acct.ID), 1)
}
