// pkg/store/redis.go
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// redisDAL maps each Proc onto a fixed redis structure:
//
//	<prefix>app_config       hash   field=config key, value=config value
//	<prefix>allowed_origins  list   origins in store order (duplicates allowed)
type redisDAL struct {
	rdb    redis.Cmdable
	prefix string
}

// NewRedis constructs a redis-backed DAL.
func NewRedis(rdb redis.Cmdable, prefix string) DAL {
	return &redisDAL{rdb: rdb, prefix: prefix}
}

func (d *redisDAL) configKey() string  { return d.prefix + "app_config" }
func (d *redisDAL) originsKey() string { return d.prefix + "allowed_origins" }

func (d *redisDAL) Execute(ctx context.Context, proc Proc, params ...Param) (int64, error) {
	rows, err := d.Query(ctx, proc, params...)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (d *redisDAL) Query(ctx context.Context, proc Proc, params ...Param) ([]Row, error) {
	if err := proc.Check(); err != nil {
		return nil, err
	}
	switch proc {
	case ProcConfigGetAll:
		m, err := d.rdb.HGetAll(ctx, d.configKey()).Result()
		if err != nil {
			return nil, fmt.Errorf("hgetall %s: %w", d.configKey(), err)
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]Row, 0, len(keys))
		for _, k := range keys {
			out = append(out, Row{Key: k, Value: strPtr(m[k])})
		}
		return out, nil
	case ProcConfigGetValue:
		v, err := d.value(ctx, params)
		if err != nil || v == nil {
			return nil, err
		}
		return []Row{{Value: v}}, nil
	case ProcAllowedOrigins:
		list, err := d.rdb.LRange(ctx, d.originsKey(), 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("lrange %s: %w", d.originsKey(), err)
		}
		out := make([]Row, 0, len(list))
		for _, o := range list {
			out = append(out, Row{Origin: strPtr(o)})
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProcedure, string(proc))
}

func (d *redisDAL) QueryString(ctx context.Context, proc Proc, params ...Param) (*string, error) {
	if proc == ProcConfigGetValue {
		return d.value(ctx, params)
	}
	rows, err := d.Query(ctx, proc, params...)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	r := rows[0]
	if r.Origin != nil {
		return r.Origin, nil
	}
	return strPtr(r.Key), nil
}

// value reads one hash field. Field names are stored as written; lookups fall
// back to a case-insensitive scan to match the SQL procedure's semantics.
func (d *redisDAL) value(ctx context.Context, params []Param) (*string, error) {
	raw, ok := paramValue(params, "key")
	if !ok {
		return nil, errors.New("store: missing key parameter")
	}
	key := fmt.Sprint(raw)
	v, err := d.rdb.HGet(ctx, d.configKey(), key).Result()
	if err == nil {
		return &v, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("hget %s: %w", d.configKey(), err)
	}
	m, err := d.rdb.HGetAll(ctx, d.configKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", d.configKey(), err)
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return strPtr(v), nil
		}
	}
	return nil, nil
}
