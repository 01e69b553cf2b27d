//go:build !linux

package family

import "errors"

func probe() (*Handle, error) {
	return nil, errors.ErrUnsupported
}

func localContextID() (uint32, error) {
	return 0, errors.ErrUnsupported
}
