package navigation

import (
	"time"

	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

// Reason explains why navigation found no strip.
type Reason int

// Reasons a navigation request can come up empty.
const (
	AtEnd Reason = iota + 1
	AtBeginning
	NoComicsAvailable
)

var reasonNames = map[Reason]string{
	AtEnd:             "AT_END",
	AtBeginning:       "AT_BEGINNING",
	NoComicsAvailable: "NO_COMICS_AVAILABLE",
}

func (r Reason) String() string {
	return reasonNames[r]
}

// MarshalText encodes the reason by name.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Result is the outcome of a navigation request: either Found or NotFound.
type Result interface {
	isResult()
}

// Found carries the strip that was navigated to, with its neighbours.
type Found struct {
	Image           *types.Image `json:"image"`
	NearestPrevious *time.Time   `json:"nearest_previous,omitempty"`
	NearestNext     *time.Time   `json:"nearest_next,omitempty"`
}

// NotFound reports a boundary. CurrentDate is the date navigation started
// from, nil for First and Last.
type NotFound struct {
	Reason          Reason     `json:"reason"`
	CurrentDate     *time.Time `json:"current_date,omitempty"`
	NearestPrevious *time.Time `json:"nearest_previous,omitempty"`
	NearestNext     *time.Time `json:"nearest_next,omitempty"`
}

func (Found) isResult()    {}
func (NotFound) isResult() {}

var (
	_ Result = Found{}
	_ Result = NotFound{}
)

func datePtr(t time.Time, ok bool) *time.Time {
	if !ok {
		return nil
	}
	return &t
}
