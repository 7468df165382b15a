package database

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/valkey-io/valkey-go"
)

var ErrNoValue = errors.New("cache builder has no value to set")

type CacheBuilder struct {
	client CacheClient
	key    string
	field  string
	value  any
	ttl    time.Duration
	ctx    context.Context
}

func NewCacheBuilder(client CacheClient, key string) *CacheBuilder {
	return &CacheBuilder{
		client: client,
		key:    key,
		ctx:    context.Background(),
	}
}

// WithHashField stores the value as a field of the hash at key, so a single
// Delete drops every field at once.
func (b *CacheBuilder) WithHashField(field string) *CacheBuilder {
	b.field = field
	return b
}

func (b *CacheBuilder) WithStruct(value any) *CacheBuilder {
	b.value = value
	return b
}

func (b *CacheBuilder) WithTTL(ttl time.Duration) *CacheBuilder {
	b.ttl = ttl
	return b
}

func (b *CacheBuilder) WithContext(ctx context.Context) *CacheBuilder {
	b.ctx = ctx
	return b
}

func (b *CacheBuilder) Set() error {
	if b.client == nil {
		return nil
	}
	if b.value == nil {
		return ErrNoValue
	}

	payload, err := json.Marshal(b.value)
	if err != nil {
		return err
	}

	if b.field != "" {
		cmds := valkey.Commands{
			b.client.B().Hset().Key(b.key).FieldValue().FieldValue(b.field, string(payload)).Build(),
		}
		if b.ttl > 0 {
			cmds = append(cmds, b.client.B().Expire().Key(b.key).Seconds(int64(b.ttl.Seconds())).Build())
		}
		for _, resp := range b.client.DoMulti(b.ctx, cmds...) {
			if err := resp.Error(); err != nil {
				return err
			}
		}
		return nil
	}

	if b.ttl > 0 {
		return b.client.Do(b.ctx, b.client.B().Set().Key(b.key).Value(string(payload)).ExSeconds(int64(b.ttl.Seconds())).Build()).Error()
	}
	return b.client.Do(b.ctx, b.client.B().Set().Key(b.key).Value(string(payload)).Build()).Error()
}

// Get decodes the cached value into target. found is false on a miss.
func (b *CacheBuilder) Get(target any) (bool, error) {
	if b.client == nil {
		return false, nil
	}

	var resp valkey.ValkeyResult
	if b.field != "" {
		resp = b.client.Do(b.ctx, b.client.B().Hget().Key(b.key).Field(b.field).Build())
	} else {
		resp = b.client.Do(b.ctx, b.client.B().Get().Key(b.key).Build())
	}

	payload, err := resp.AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal(payload, target); err != nil {
		return false, err
	}
	return true, nil
}

func (b *CacheBuilder) Delete() error {
	if b.client == nil {
		return nil
	}
	return b.client.Do(b.ctx, b.client.B().Del().Key(b.key).Build()).Error()
}
