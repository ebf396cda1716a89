// Package domain implements the flag checker submission state machine.
package domain

// Status is the per-flag outcome reported back to submitters.
type Status string

const (
	StatusAccepted Status = "ACCEPTED"
	StatusDenied   Status = "DENIED"
	StatusResubmit Status = "RESUBMIT"
	StatusError    Status = "ERROR"
)

// Statuses lists every outcome in draw order.
var Statuses = []Status{
	StatusAccepted,
	StatusDenied,
	StatusResubmit,
	StatusError,
}

// ParseStatus maps a wire value to a Status. Unknown values become StatusError.
func ParseStatus(value string) Status {
	switch Status(value) {
	case StatusAccepted, StatusDenied, StatusResubmit, StatusError:
		return Status(value)
	default:
		return StatusError
	}
}

func (s Status) String() string {
	return string(s)
}

const (
	// MessageAccepted is reported when a flag is claimed.
	MessageAccepted = "flag claimed"
	// MessageResubmit is reported when a flag should be submitted again later.
	// It is also the notice for flags that were already accepted.
	MessageResubmit = "the flag is not active yet, wait for next round"
	// MessageError is reported for simulated checker faults.
	MessageError = "notify the organizers and retry later"
)

// DeniedReasons lists the rejection reasons a DENIED outcome draws from.
var DeniedReasons = []string{
	"invalid flag",
	"flag from nop team",
	"flag is your own",
	"flag too old",
	"flag already claimed",
	"the check which dispatched this flag didn't terminate successfully",
}

// IsDeniedReason reports whether reason is one of DeniedReasons.
func IsDeniedReason(reason string) bool {
	for _, candidate := range DeniedReasons {
		if candidate == reason {
			return true
		}
	}
	return false
}
