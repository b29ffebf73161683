package config

import (
	"fmt"
	"time"

	"github.com/papercomputeco/physrag/pkg/retry"
)

// Policy converts the retry settings into a retry.Policy.
func (r RetryConfig) Policy() (retry.Policy, error) {
	p := retry.Policy{MaxAttempts: int(r.MaxAttempts)}

	var err error
	if r.InitialDelay != "" {
		if p.InitialDelay, err = time.ParseDuration(r.InitialDelay); err != nil {
			return retry.Policy{}, fmt.Errorf("parsing retry.initial_delay: %w", err)
		}
	}
	if r.MaxDelay != "" {
		if p.MaxDelay, err = time.ParseDuration(r.MaxDelay); err != nil {
			return retry.Policy{}, fmt.Errorf("parsing retry.max_delay: %w", err)
		}
	}
	return p, nil
}
