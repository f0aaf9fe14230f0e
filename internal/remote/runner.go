package remote

import (
	"context"
	"fmt"

	"adfleet/internal/target"
)

// Credentials is the read-only session identity shared by all concurrent
// runner invocations in a round. It is never mutated during dispatch.
type Credentials struct {
	Domain   string
	Username string
	Password string
}

// User returns the DOMAIN\user form expected by Windows transports.
func (c Credentials) User() string {
	if c.Domain == "" {
		return c.Username
	}
	return fmt.Sprintf("%s\\%s", c.Domain, c.Username)
}

// Runner executes one command on one target. Run is total: it never returns
// an error and never panics past its boundary; every failure mode becomes a
// Failure Outcome. Implementations open a fresh session per invocation, so a
// single Runner value is safe to share across concurrent workers.
type Runner interface {
	Run(ctx context.Context, t target.Target, command string) Outcome
}
