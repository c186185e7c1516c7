package cache

import "errors"

// errWriteQueueFull marks a disk write dropped because the background
// writer could not keep up.
var errWriteQueueFull = errors.New("disk cache write queue full")
