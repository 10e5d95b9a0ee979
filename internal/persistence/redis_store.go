package persistence

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TheGringo-ai/wrench/pkg/api"
)

// RedisWorkOrderStore is a WorkOrderStore backed by Redis.
// It uses a simple key structure:
//
//	<prefix>wo:<id>               => gob-encoded work order
//	<prefix>idx:all               => SET of all work order IDs
//	<prefix>idx:status:<status>   => SET of work order IDs for a given status
//	<prefix>idx:assignee:<tech>   => SET of work order IDs for a given assignee
//	<prefix>lease:<id>            => lease owner, with TTL
//
// The indexes are best-effort; they are always updated on Save/Update, and
// ListWorkOrders re-checks the filter against each decoded payload so stale
// index entries never leak through.
type RedisWorkOrderStore struct {
	client *redis.Client
	prefix string
}

var _ WorkOrderStore = (*RedisWorkOrderStore)(nil)

// NewRedisWorkOrderStore creates a RedisWorkOrderStore.
// prefix is optional but recommended (e.g. "wrench:").
func NewRedisWorkOrderStore(client *redis.Client, prefix string) *RedisWorkOrderStore {
	if prefix == "" {
		prefix = "wrench:"
	}
	return &RedisWorkOrderStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisWorkOrderStore) keyWorkOrder(id string) string {
	return s.prefix + "wo:" + id
}

func (s *RedisWorkOrderStore) keyAll() string {
	return s.prefix + "idx:all"
}

func (s *RedisWorkOrderStore) keyStatus(status api.Status) string {
	return s.prefix + "idx:status:" + string(status)
}

func (s *RedisWorkOrderStore) keyAssignee(technicianID string) string {
	return s.prefix + "idx:assignee:" + technicianID
}

func (s *RedisWorkOrderStore) keyLease(id string) string {
	return s.prefix + "lease:" + id
}

func encodeRedisWorkOrder(wo *api.WorkOrder) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(wo); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRedisWorkOrder(data []byte) (*api.WorkOrder, error) {
	if len(data) == 0 {
		return nil, ErrWorkOrderNotFound
	}
	var wo api.WorkOrder
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&wo); err != nil {
		return nil, err
	}
	return &wo, nil
}

func (s *RedisWorkOrderStore) writeWorkOrder(wo *api.WorkOrder) error {
	ctx := context.Background()

	data, err := encodeRedisWorkOrder(wo)
	if err != nil {
		return err
	}

	// Set payload
	if err := s.client.Set(ctx, s.keyWorkOrder(wo.ID), data, 0).Err(); err != nil {
		return err
	}

	// Update indexes (best-effort; we don't treat index failures as fatal).
	// Stale status/assignee entries may remain after a transition, but
	// ListWorkOrders filters by payload.
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.keyAll(), wo.ID)
	pipe.SAdd(ctx, s.keyStatus(wo.Status), wo.ID)
	if wo.AssigneeID != "" {
		pipe.SAdd(ctx, s.keyAssignee(wo.AssigneeID), wo.ID)
	}
	_, _ = pipe.Exec(ctx)

	return nil
}

func (s *RedisWorkOrderStore) SaveWorkOrder(wo *api.WorkOrder) error {
	return s.writeWorkOrder(wo)
}

func (s *RedisWorkOrderStore) UpdateWorkOrder(wo *api.WorkOrder) error {
	ctx := context.Background()

	// Match the SQL stores: updating a missing record is an error.
	exists, err := s.client.Exists(ctx, s.keyWorkOrder(wo.ID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrWorkOrderNotFound
	}

	return s.writeWorkOrder(wo)
}

func (s *RedisWorkOrderStore) GetWorkOrder(id string) (*api.WorkOrder, error) {
	ctx := context.Background()

	data, err := s.client.Get(ctx, s.keyWorkOrder(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrWorkOrderNotFound
		}
		return nil, err
	}
	return decodeRedisWorkOrder(data)
}

func (s *RedisWorkOrderStore) ListWorkOrders(filter Filter) ([]*api.WorkOrder, error) {
	ctx := context.Background()

	var ids []string
	var err error

	switch {
	case filter.Status != "" && filter.AssigneeID != "":
		ids, err = s.client.SInter(ctx,
			s.keyStatus(filter.Status),
			s.keyAssignee(filter.AssigneeID),
		).Result()
	case filter.Status != "":
		ids, err = s.client.SMembers(ctx, s.keyStatus(filter.Status)).Result()
	case filter.AssigneeID != "":
		ids, err = s.client.SMembers(ctx, s.keyAssignee(filter.AssigneeID)).Result()
	default:
		ids, err = s.client.SMembers(ctx, s.keyAll()).Result()
	}

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*api.WorkOrder{}, nil
		}
		return nil, err
	}
	if len(ids) == 0 {
		return []*api.WorkOrder{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.keyWorkOrder(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	var workorders []*api.WorkOrder
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		wo, err := decodeRedisWorkOrder(data)
		if err != nil {
			return nil, err
		}
		if !filter.Match(wo) {
			continue
		}
		workorders = append(workorders, wo)
	}

	return workorders, nil
}

const (
	// Lua script for acquiring a lease. Returns 1 if acquired, 0 otherwise.
	redisLeaseAcquireLua = `
local key = KEYS[1]
local owner = ARGV[1]
local ttlms = tonumber(ARGV[2])

local cur = redis.call('GET', key)
if not cur then
	redis.call('PSETEX', key, ttlms, owner)
	return 1
end
if cur == owner then
	redis.call('PEXPIRE', key, ttlms)
	return 1
end
return 0
`

	// Lua script for renewing a lease. Returns 1 if renewed, 0 otherwise.
	redisLeaseRenewLua = `
local key = KEYS[1]
local owner = ARGV[1]
local ttlms = tonumber(ARGV[2])

local cur = redis.call('GET', key)
if not cur then
	return 0
end
if cur == owner then
	redis.call('PEXPIRE', key, ttlms)
	return 1
end
return 0
`

	// Lua script for releasing a lease. Returns 1 if released, 0 otherwise.
	redisLeaseReleaseLua = `
local key = KEYS[1]
local owner = ARGV[1]

local cur = redis.call('GET', key)
if not cur then
	return 0
end
if cur == owner then
	redis.call('DEL', key)
	return 1
end
return 0
`
)

func (s *RedisWorkOrderStore) TryAcquireLease(ctx context.Context, workOrderID, owner string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, errors.New("ttl must be > 0")
	}
	res, err := s.client.Eval(ctx, redisLeaseAcquireLua, []string{s.keyLease(workOrderID)}, owner, ttl.Milliseconds()).Result()
	if err != nil {
		return false, err
	}
	n, ok := res.(int64)
	return ok && n == 1, nil
}

func (s *RedisWorkOrderStore) RenewLease(ctx context.Context, workOrderID, owner string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("ttl must be > 0")
	}
	res, err := s.client.Eval(ctx, redisLeaseRenewLua, []string{s.keyLease(workOrderID)}, owner, ttl.Milliseconds()).Result()
	if err != nil {
		return err
	}
	if n, ok := res.(int64); !ok || n != 1 {
		return api.ErrWorkOrderLocked
	}
	return nil
}

func (s *RedisWorkOrderStore) ReleaseLease(ctx context.Context, workOrderID, owner string) error {
	res, err := s.client.Eval(ctx, redisLeaseReleaseLua, []string{s.keyLease(workOrderID)}, owner).Result()
	if err != nil {
		return err
	}
	if n, ok := res.(int64); ok && n == 1 {
		return nil
	}

	// Either missing or owned by someone else; missing is a no-op success.
	cur, err := s.client.Get(ctx, s.keyLease(workOrderID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	if cur != owner && cur != "" {
		return api.ErrWorkOrderLocked
	}
	return nil
}
