package capture

import (
	"context"

	"stagecap/internal/session"
)

// Nop records nothing. It is used when capture is disabled so timing can be
// collected against an externally recorded video.
type Nop struct {
	// Path is reported as the recording, if set.
	Path string
}

func (n Nop) Start(context.Context) (session.Stream, error) {
	return nopStream(n), nil
}

type nopStream Nop

func (n nopStream) Stop(context.Context) (string, error) {
	return n.Path, nil
}
