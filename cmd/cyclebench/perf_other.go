//go:build !linux

package main

import "errors"

func perfCycles(uint64) (uint64, error) {
	return 0, errors.New("perf events require linux")
}
