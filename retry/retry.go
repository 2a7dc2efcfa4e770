// Copyright 2020-2022, Square, Inc.

// Package retry retries short, fallible operations, like persistence
// writes, a fixed number of times.
package retry

import (
	"time"
)

type TryFunc func() error
type LogFunc func(error)

// Do calls tryFunc up to tries times, sleeping between attempts and
// logging intermediate errors via logFunc (if non-nil). The last error is
// returned if every try fails.
func Do(tries int, sleep time.Duration, tryFunc TryFunc, logFunc LogFunc) error {
	var err error
	for i := 0; i < tries; i++ {
		if err = tryFunc(); err == nil {
			return nil
		}
		if i < tries-1 {
			if logFunc != nil {
				logFunc(err)
			}
			time.Sleep(sleep)
		}
	}
	return err
}
