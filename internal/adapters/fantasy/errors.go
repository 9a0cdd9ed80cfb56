package fantasy

import (
	"context"
	"errors"
	"net"
	"strings"

	pkgerrors "huddle/pkg/errors"
)

var (
	// ErrLeagueNotFound indicates the provider has no league under the
	// requested id and season.
	ErrLeagueNotFound = errors.New("league not found")

	// ErrPrivateLeague indicates the league requires credentials that
	// were missing or rejected.
	ErrPrivateLeague = errors.New("league is private")

	// ErrRateLimited indicates HTTP 429 or provider throttling.
	ErrRateLimited = errors.New("provider rate limited the request")

	// ErrBadResponse indicates the provider answered with a payload we
	// could not interpret.
	ErrBadResponse = errors.New("unexpected provider response")
)

// hintMaxLen bounds how much raw provider text leaks into a user hint.
const hintMaxLen = 100

// Hint classifies err into a short user-facing message. Typed errors are
// matched first; unclassified errors fall back to coarse message-text
// matching, and finally to a generic hint. Raw provider stack traces are
// never surfaced.
func Hint(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrPrivateLeague), errors.Is(err, pkgerrors.ErrUnauthorized):
		return "This league is private. Re-register it with your SWID and espn_s2 cookies."
	case errors.Is(err, ErrLeagueNotFound), errors.Is(err, pkgerrors.ErrNotFound):
		return "League not found. Double-check the league ID and season year."
	case errors.Is(err, ErrRateLimited):
		return "ESPN is throttling requests right now. Try again in a minute."
	case errors.Is(err, pkgerrors.ErrValidation):
		return "Couldn't validate that league: " + shorten(err.Error())
	case errors.Is(err, pkgerrors.ErrConnectivity),
		errors.Is(err, pkgerrors.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		isTimeout(err):
		return "Unable to reach the ESPN Fantasy API. Please try again later."
	}

	// Text fallback for errors the client couldn't type
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "deadline"):
		return "Request timed out. ESPN servers may be slow. Please try again."
	case strings.Contains(lower, "unauthorized"), strings.Contains(lower, "401"):
		return "ESPN rejected the stored credentials for this league."
	default:
		return "Something went wrong talking to ESPN: " + shorten(err.Error())
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func shorten(msg string) string {
	runes := []rune(msg)
	if len(runes) <= hintMaxLen {
		return msg
	}
	return string(runes[:hintMaxLen-3]) + "..."
}
