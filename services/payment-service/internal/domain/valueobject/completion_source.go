package valueobject

import "fmt"

// CompletionSource records which channel produced the terminal transition.
// It is kept for audit only and never gates behaviour.
type CompletionSource struct {
	value string
}

var (
	CompletionSourceNone     = CompletionSource{"none"}
	CompletionSourceCallback = CompletionSource{"callback"}
	CompletionSourcePoll     = CompletionSource{"poll"}
	// CompletionSourceExpiry marks an abandoned checkout closed by the service.
	CompletionSourceExpiry   = CompletionSource{"expiry"}
)

func NewCompletionSource(s string) (CompletionSource, error) {
	switch s {
	case "none", "":
		return CompletionSourceNone, nil
	case "callback":
		return CompletionSourceCallback, nil
	case "poll":
		return CompletionSourcePoll, nil
	case "expiry":
		return CompletionSourceExpiry, nil
	}
	return CompletionSource{}, fmt.Errorf("invalid completion source: %q", s)
}

func (s CompletionSource) String() string {
	if s.value == "" {
		return CompletionSourceNone.value
	}
	return s.value
}
