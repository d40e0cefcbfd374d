//go:build !linux

package executor

import "errors"

func becomeSubreaper() error {
	return errors.New("child subreaper is only available on linux")
}
