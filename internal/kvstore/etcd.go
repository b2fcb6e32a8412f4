// Package kvstore wraps an etcd v3 client behind the narrow
// Get/Put/Delete/List surface internal/snapshot needs, grounded on the
// teacher's db/kvstore/etcdclient.go. The teacher talks to the
// now-defunct github.com/coreos/etcd/clientv3 import path; this
// rewrite talks to its successor, go.etcd.io/etcd/client/v3, which is
// the one actually declared in go.mod.
package kvstore

import (
	"context"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/flowcore/nicoffload/internal/corelog"
)

var logger = corelog.AddPackage("kvstore")

// Client is a narrow etcd v3 wrapper: string keys, []byte values,
// prefix list, single delete-by-prefix. internal/snapshot is the only
// consumer; nothing here is generic key-value-store abstraction for
// its own sake.
type Client struct {
	cli *clientv3.Client
}

// KVPair is one returned key/value, mirroring the teacher's KVPair
// shape without its lease/session fields this rewrite doesn't use.
type KVPair struct {
	Key   string
	Value []byte
}

// New dials endpoints, giving up after dialTimeout. Later operations
// are bounded only by the context their caller passes in.
func New(endpoints []string, dialTimeout time.Duration) (*Client, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &Client{cli: cli}, nil
}

// Put writes key=value, overwriting any prior value.
func (c *Client) Put(ctx context.Context, key string, value []byte) error {
	_, err := c.cli.Put(ctx, key, string(value))
	if err != nil {
		logger.Warnw("kvstore-put-failed", corelog.Fields{"key": key, "error": err.Error()})
	}
	return err
}

// Get returns key's value, or ok=false if it doesn't exist.
func (c *Client) Get(ctx context.Context, key string) (*KVPair, bool, error) {
	resp, err := c.cli.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if len(resp.Kvs) == 0 {
		return nil, false, nil
	}
	kv := resp.Kvs[0]
	return &KVPair{Key: string(kv.Key), Value: kv.Value}, true, nil
}

// List returns every key under prefix.
func (c *Client) List(ctx context.Context, prefix string) ([]KVPair, error) {
	resp, err := c.cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	out := make([]KVPair, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		out = append(out, KVPair{Key: string(kv.Key), Value: kv.Value})
	}
	return out, nil
}

// Delete removes every key under prefix.
func (c *Client) Delete(ctx context.Context, prefix string) error {
	_, err := c.cli.Delete(ctx, prefix, clientv3.WithPrefix())
	return err
}

// Close releases the underlying etcd connection.
func (c *Client) Close() error {
	return c.cli.Close()
}
