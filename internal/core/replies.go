package core

import (
	"fmt"
	"time"
)

// Reply templates. Every inbound command either yields exactly one of
// these or silence; keeping them in one place makes the SMS surface
// reviewable at a glance.

const (
	ReplyGreeting = "Shalom! Text \"Subscribe\" to receive a weekly Sabbath reminder, or \"Help\" for the full list of commands."

	ReplyHelp = "Commands: \"Subscribe\" to sign up, \"Zip <5-digit code>\" to set your location, \"Unsubscribe\" to stop. Reminders arrive before your local Friday sunset."

	ReplyMissingZipCode = "You are subscribed! Text \"Zip <5-digit code>\" so we can time your reminder to your local sunset."

	ReplyUnsubscribed = "You have been unsubscribed. Text \"Subscribe\" any time to come back."

	ReplyBadZipCode = "That doesn't look like a ZIP code. Text \"Zip\" followed by a 5-digit code, e.g. \"Zip 98052\"."

	ReplyUnknownCommand = "Sorry, we didn't understand that. Text \"Help\" for the list of commands."
)

// ReplySubscribed confirms a subscription for an account that already
// has a location on file.
func ReplySubscribed(city, state string, sabbathLocal time.Time) string {
	return fmt.Sprintf("You are subscribed! Your next Sabbath in %s, %s begins %s.",
		city, state, sabbathLocal.Format("Monday, January 2 at 3:04 PM"))
}

// ReplyConfirmZipCodeUpdate confirms the new location and the computed
// next Sabbath start in local time.
func ReplyConfirmZipCodeUpdate(city, state string, sabbathLocal time.Time) string {
	return fmt.Sprintf("Location updated to %s, %s. Your next Sabbath begins %s.",
		city, state, sabbathLocal.Format("Monday, January 2 at 3:04 PM"))
}

// ReplyZipCodeNotFound tells the user the lookup failed; this is bad
// reference data coverage, not a system fault.
func ReplyZipCodeNotFound(zip string) string {
	return fmt.Sprintf("We couldn't find ZIP code %s. Please double-check and try again.", zip)
}

// ReplyZipCodeHint nudges a subscriber who texted a bare 5-digit number.
func ReplyZipCodeHint(zip string) string {
	return fmt.Sprintf("Did you mean to update your ZIP code? Text \"Zip %s\" to confirm.", zip)
}

// ReplyHappySabbath is the weekly reminder.
func ReplyHappySabbath(verse Verse) string {
	return fmt.Sprintf("Happy Sabbath! \"%s\" — %s", verse.Text, verse.Reference)
}
