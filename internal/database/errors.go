package database

import "errors"

// ErrInvalidDatabaseURL indicates the provided database URL could not be parsed.
var ErrInvalidDatabaseURL = errors.New("invalid database URL")

// ErrConnectionFailed indicates a connection to the database could not be established.
var ErrConnectionFailed = errors.New("database connection failed")

// ErrLockNotAcquired indicates the advisory lock is already held by another process.
var ErrLockNotAcquired = errors.New("patch lock not acquired")

// ErrUnsupportedDriver indicates the requested driver name is unknown.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// ErrLockUnsupported indicates the driver cannot take an advisory lock.
var ErrLockUnsupported = errors.New("advisory locking not supported by driver")
