package stores

import "errors"

var ErrAddressIsEmpty = errors.New("address is empty")
