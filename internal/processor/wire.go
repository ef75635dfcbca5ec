package processor

import (
	"github.com/sluu99/sabbathtext-sub001/internal/core"
	"github.com/sluu99/sabbathtext-sub001/internal/router"
)

// NewRouter builds the matcher table. Order is part of the contract:
// command patterns run before the bare-ZIP hint and the catch-all, and
// events dispatch on their exact type.
func NewRouter(deps *Deps) *router.Router {
	r := router.New()

	// Inbound command grammar, first-match-wins.
	r.HandleBody(`hello`, NewGreetings(deps))
	r.HandleBody(`help`, NewHelp(deps))
	r.HandleBody(`subscribe`, NewSubscribe(deps))
	r.HandleBody(`unsubscribe|stop`, NewUnsubscribe(deps))
	r.HandleBody(`zip(?:code)?(?:\s+.*)?`, NewZipUpdate(deps))
	r.HandleBody(`accountcycle(?:\s+\S+)?`, NewAccountCycle(deps))
	r.HandleBody(`\d{5}`, NewZipHint(deps))

	// Internal events, matched by exact type.
	r.HandleEvent(core.EventAccountCreated, NewAccountCreated(deps))
	r.HandleEvent(core.EventAccountSubscribed, NewAccountSubscribed(deps))
	r.HandleEvent(core.EventSabbath, NewSabbath(deps))
	r.HandleEvent(core.EventZipCodeUpdated, NewZipCodeUpdated(deps))
	r.HandleEvent(core.EventGreetingsRequested, NewGreetingsRequested(deps))

	r.CatchAll(NewUnknown(deps))
	return r
}
