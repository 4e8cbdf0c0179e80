// Copyright 2021 Hewlett Packard Enterprise Development LP

package dbservice

// Lock is a held distributed lock
type Lock interface {
	Release() error
}

// DBService abstracts the durable key-value store used for connection reference counts, so the
// zone manager can run against etcd or a stand-in without caring which.
type DBService interface {
	Put(key, value string) error
	// Get returns nil (not an error) when the key does not exist
	Get(key string) (*string, error)
	Delete(key string) error
	PutWithLeaseExpiry(key, value string, expirySeconds int64) error

	AcquireLock(key string, ttl int) (Lock, error)
	WaitAcquireLock(key string, ttl int) (Lock, error)
	ReleaseLock(l Lock) error
	IsLocked(key string) (bool, error)

	CloseClient() error
}
