package core

import (
	"errors"
	"time"

	"github.com/jabolina/go-groupcall/pkg/groupcall/definition"
	"github.com/jabolina/go-groupcall/pkg/groupcall/helper"
	"github.com/jabolina/go-groupcall/pkg/groupcall/types"
	"github.com/prometheus/client_golang/prometheus"
)

// How long the identifier of a finished request is remembered,
// replies arriving during this period are known to be late.
const DefaultFinishedTTL = 10 * time.Minute

// Holds the configuration for a member issuing and
// answering requests.
type Configuration struct {
	// The group name, used to label the metrics.
	Name string

	// The address of this member.
	Address types.Address

	// Version at which the member is working. Messages
	// from other versions are discarded.
	Version uint

	// How long to remember finished requests.
	FinishedTTL time.Duration

	// Members of the view not heard of for this long are
	// suspected. Zero disables the detection, suspicions then
	// come only from whoever calls Suspect.
	SuspectAfter time.Duration

	// Sequence used to identify the requests. If nil the
	// process wide sequence is used.
	Sequence *helper.Sequence

	// Logger to be used.
	Logger types.Logger

	// Where to register the metrics. If nil the metrics
	// are kept but not exported.
	Registerer prometheus.Registerer
}

// Verify the configuration and fill the missing values.
func (c *Configuration) validate() error {
	if c.Address.IsZero() {
		return errors.New("configuration requires an address")
	}

	if c.FinishedTTL <= 0 {
		c.FinishedTTL = DefaultFinishedTTL
	}

	if c.Sequence == nil {
		c.Sequence = helper.RequestSequence
	}

	if c.Logger == nil {
		c.Logger = definition.NewDefaultLogger()
	}
	return nil
}
