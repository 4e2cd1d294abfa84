package persist

import "errors"

var (
	ErrKeyNotFound  = errors.New("snapshot key not found")
	ErrLoadFailed   = errors.New("snapshot load failed")
	ErrSaveFailed   = errors.New("snapshot save failed")
	ErrDecodeFailed = errors.New("snapshot decode failed")
	ErrUnknownCodec = errors.New("unknown snapshot codec")
	ErrUnknownStore = errors.New("unknown snapshot store")
)
