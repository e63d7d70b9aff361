// Package resilience retries operations that fail transiently, waiting an
// exponentially growing, jittered interval between attempts.
//
//	err := resilience.Do(ctx, resilience.Policy{
//	    MaxAttempts: 5,
//	    Initial:     time.Second,
//	    Retryable:   database.IsRetryableError,
//	}, connect)
package resilience
