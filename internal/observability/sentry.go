package observability

import (
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry turns on error reporting. With an empty DSN nothing is sent and
// the returned flush does nothing.
func InitSentry(dsn, env, release string) (flush func(), err error) {
	if dsn == "" {
		return func() {}, nil
	}
	err = sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		Release:          release,
		AttachStacktrace: true,
		BeforeSend:       scrubEvent,
	})
	if err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// scrubEvent drops bearer tokens and cookies from captured requests.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event == nil || event.Request == nil {
		return event
	}
	for k := range event.Request.Headers {
		switch http.CanonicalHeaderKey(k) {
		case "Authorization", "Cookie", "Set-Cookie":
			event.Request.Headers[k] = "[redacted]"
		}
	}
	event.Request.Cookies = ""
	return event
}

// CaptureErr reports err with tags given as key, value pairs. It is a no-op
// until InitSentry has been called with a DSN.
func CaptureErr(err error, tags ...string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for i := 0; i+1 < len(tags); i += 2 {
			scope.SetTag(tags[i], tags[i+1])
		}
		sentry.CaptureException(err)
	})
}
