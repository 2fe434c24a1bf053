package dberrors

import "errors"

var (
	ErrNotFound         = errors.New("memkv: not found")
	ErrInvalidArgument  = errors.New("memkv: invalid argument")
	ErrCapacityOverflow = errors.New("memkv: capacity overflow")
	ErrSealed           = errors.New("memkv: segment sealed")
	ErrDirectoryCorrupt = errors.New("memkv: directory corrupt")
)
