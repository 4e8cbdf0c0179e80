// Copyright 2021 Hewlett Packard Enterprise Development LP

package etcd

import (
	"context"
	"fmt"
	"time"

	etcdlock "github.com/Scalingo/go-etcd-lock/lock"
	"github.com/coreos/etcd/clientv3"
	log "github.com/hpe-storage/fc-zone-libs/logger"
	"github.com/hpe-storage/fc-zone-libs/pkg/dbservice"
)

const (
	// DefaultPort - default etcd client port
	DefaultPort = "2379"
	// DefaultVersion - etcd API version
	DefaultVersion = "v3"

	defaultDialTimeout    = 5 * time.Second
	defaultRequestTimeout = 5 * time.Second

	// Minimum TTL go-etcd-lock accepts
	probeLockTTL = 1
)

// Client wraps an etcd v3 session with the key-value and locking operations the zone manager
// needs for durable reference counting
type Client struct {
	cli    *clientv3.Client
	locker etcdlock.Locker
}

var _ dbservice.DBService = &Client{}

// NewClient creates an etcd client against the given endpoints
func NewClient(endPoints []string, version string) (*Client, error) {
	log.Tracef(">>>>> NewClient called, endPoints=%v version=%v", endPoints, version)
	defer log.Trace("<<<<< NewClient")

	if version != DefaultVersion {
		return nil, fmt.Errorf("unsupported etcd API version %q, only %q is supported", version, DefaultVersion)
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endPoints,
		DialTimeout: defaultDialTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &Client{cli: cli, locker: etcdlock.NewEtcdLocker(cli)}, nil
}

// Put stores the given key-value pair
func (c *Client) Put(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
	defer cancel()
	_, err := c.cli.Put(ctx, key, value)
	return err
}

// PutWithLeaseExpiry stores the pair under a lease; etcd removes the key once the lease expires
func (c *Client) PutWithLeaseExpiry(key, value string, expirySeconds int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
	defer cancel()
	lease, err := c.cli.Grant(ctx, expirySeconds)
	if err != nil {
		return err
	}
	_, err = c.cli.Put(ctx, key, value, clientv3.WithLease(lease.ID))
	return err
}

// Get returns the value of the given key, or nil if the key does not exist
func (c *Client) Get(key string) (*string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
	defer cancel()
	resp, err := c.cli.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, nil
	}
	value := string(resp.Kvs[0].Value)
	return &value, nil
}

// Delete removes the given key
func (c *Client) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
	defer cancel()
	_, err := c.cli.Delete(ctx, key)
	return err
}

// AcquireLock takes the named lock or fails immediately if another holder has it
func (c *Client) AcquireLock(key string, ttl int) (dbservice.Lock, error) {
	lck, err := c.locker.Acquire(key, ttl)
	if err != nil {
		return nil, err
	}
	return lck, nil
}

// WaitAcquireLock blocks until the named lock can be taken, then holds it for ttl seconds
func (c *Client) WaitAcquireLock(key string, ttl int) (dbservice.Lock, error) {
	lck, err := c.locker.WaitAcquire(key, ttl)
	if err != nil {
		return nil, err
	}
	return lck, nil
}

// ReleaseLock releases a lock returned by AcquireLock or WaitAcquireLock
func (c *Client) ReleaseLock(l dbservice.Lock) error {
	if l == nil {
		return nil
	}
	return l.Release()
}

// IsLocked reports whether the named lock is currently held.  Implemented as a short probe
// acquisition since go-etcd-lock exposes no passive query.
func (c *Client) IsLocked(key string) (bool, error) {
	lck, err := c.locker.Acquire(key, probeLockTTL)
	if err != nil {
		if _, alreadyLocked := err.(*etcdlock.Error); alreadyLocked {
			return true, nil
		}
		return false, err
	}
	// We got it, so nobody held it; give it straight back
	if err := lck.Release(); err != nil {
		return false, err
	}
	return false, nil
}

// CloseClient shuts down the etcd session
func (c *Client) CloseClient() error {
	return c.cli.Close()
}

// Put writes through a short-lived client against the local etcd endpoint
func Put(key, value string) error {
	dbClient, err := NewClient([]string{"localhost:" + DefaultPort}, DefaultVersion)
	if err != nil {
		return err
	}
	defer dbClient.CloseClient()
	return dbClient.Put(key, value)
}

// Get reads through a short-lived client against the local etcd endpoint
func Get(key string) (*string, error) {
	dbClient, err := NewClient([]string{"localhost:" + DefaultPort}, DefaultVersion)
	if err != nil {
		return nil, err
	}
	defer dbClient.CloseClient()
	return dbClient.Get(key)
}

// Delete removes through a short-lived client against the local etcd endpoint
func Delete(key string) error {
	dbClient, err := NewClient([]string{"localhost:" + DefaultPort}, DefaultVersion)
	if err != nil {
		return err
	}
	defer dbClient.CloseClient()
	return dbClient.Delete(key)
}
