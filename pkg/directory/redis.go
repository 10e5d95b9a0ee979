package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/TheGringo-ai/wrench/internal/persistence"
	"github.com/TheGringo-ai/wrench/pkg/api"
)

// RedisDirectory stores the technician roster in Redis, for rosters shared
// between processes. Key structure:
//
//	<prefix>tech:<id>   => gob-encoded technician entry
//	<prefix>idx:techs   => SET of all technician IDs
//
// Reserve uses WATCH-based optimistic transactions: the counter is read,
// checked against the limit, and written back inside MULTI/EXEC; a colliding
// writer voids the transaction and the check restarts.
type RedisDirectory struct {
	client *redis.Client
	prefix string
}

var _ api.TechnicianDirectory = (*RedisDirectory)(nil)

// NewRedisDirectory creates a RedisDirectory.
// prefix is optional but recommended (e.g. "wrench:").
func NewRedisDirectory(client *redis.Client, prefix string) *RedisDirectory {
	if prefix == "" {
		prefix = "wrench:"
	}
	return &RedisDirectory{client: client, prefix: prefix}
}

func (d *RedisDirectory) keyTech(id string) string { return d.prefix + "tech:" + id }
func (d *RedisDirectory) keyIndex() string         { return d.prefix + "idx:techs" }

// Put adds or replaces a technician entry. Updating an existing entry keeps
// its live ActiveCount: roster refreshes never reset in-flight reservations.
func (d *RedisDirectory) Put(ctx context.Context, t api.Technician) error {
	key := d.keyTech(t.ID)

	txn := func(tx *redis.Tx) error {
		old, err := d.getTechnician(ctx, tx, t.ID)
		if err == nil {
			t.ActiveCount = old.ActiveCount
		} else if !errors.Is(err, api.ErrTechnicianNotFound) {
			return err
		}
		data, err := persistence.EncodeValue(t)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, d.keyIndex(), t.ID)
			return nil
		})
		return err
	}

	for i := 0; i < 16; i++ {
		err := d.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("storing technician %s: too many collisions", t.ID)
}

func (d *RedisDirectory) getTechnician(ctx context.Context, tx redis.Cmdable, id string) (*api.Technician, error) {
	data, err := tx.Get(ctx, d.keyTech(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", api.ErrTechnicianNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	t, err := persistence.DecodeValue[api.Technician](data)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *RedisDirectory) ListTechnicians(ctx context.Context) ([]*api.Technician, error) {
	ids, err := d.client.SMembers(ctx, d.keyIndex()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*api.Technician, 0, len(ids))
	for _, id := range ids {
		t, err := d.getTechnician(ctx, d.client, id)
		if err != nil {
			if errors.Is(err, api.ErrTechnicianNotFound) {
				// Stale index entry; skip.
				continue
			}
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (d *RedisDirectory) Reserve(ctx context.Context, technicianID string, limit int) (bool, error) {
	key := d.keyTech(technicianID)
	reserved := false

	txn := func(tx *redis.Tx) error {
		t, err := d.getTechnician(ctx, tx, technicianID)
		if err != nil {
			return err
		}
		if t.ActiveCount >= limit {
			reserved = false
			return nil
		}
		t.ActiveCount++
		data, err := persistence.EncodeValue(*t)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err == nil {
			reserved = true
		}
		return err
	}

	// Retry on write collisions; each retry re-reads the counter so the
	// limit check always runs against the value actually replaced.
	for i := 0; i < 16; i++ {
		err := d.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, err
		}
		return reserved, nil
	}
	return false, fmt.Errorf("reserving technician %s: too many collisions", technicianID)
}

func (d *RedisDirectory) Release(ctx context.Context, technicianID string) error {
	key := d.keyTech(technicianID)

	txn := func(tx *redis.Tx) error {
		t, err := d.getTechnician(ctx, tx, technicianID)
		if err != nil {
			return err
		}
		if t.ActiveCount > 0 {
			t.ActiveCount--
		}
		data, err := persistence.EncodeValue(*t)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < 16; i++ {
		err := d.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("releasing technician %s: too many collisions", technicianID)
}
