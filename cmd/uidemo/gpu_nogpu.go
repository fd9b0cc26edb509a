//go:build nogpu

package main

import "errors"

func runGPU(options) error {
	return errors.New("uidemo: built with nogpu")
}
