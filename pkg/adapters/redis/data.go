package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/lattice/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cast"
)

// Data operations understood by DataAccessor. The query is the key.
const (
	OpGet      = "get"
	OpSet      = "set"
	OpHGet     = "hget"
	OpHGetAll  = "hgetall"
	OpLRange   = "lrange"
	OpSMembers = "smembers"
)

// DataAccessor serves database nodes from Redis keys.
// Connection ids select a client; an empty or unknown id uses the default.
type DataAccessor struct {
	def     *backend.Client
	clients map[string]*backend.Client
}

// NewDataAccessor creates a DataAccessor over a default client.
func NewDataAccessor(client *backend.Client) *DataAccessor {
	return &DataAccessor{def: client, clients: make(map[string]*backend.Client)}
}

// WithConnection registers a named client and returns the accessor.
func (d *DataAccessor) WithConnection(id string, client *backend.Client) *DataAccessor {
	d.clients[id] = client
	return d
}

func (d *DataAccessor) client(id string) (*backend.Client, error) {
	if c, ok := d.clients[id]; ok {
		return c, nil
	}
	if d.def == nil {
		return nil, fmt.Errorf("unknown connection %q", id)
	}
	return d.def, nil
}

// Query implements ports.DataAccessor.
//
// Parameters: hget takes "field"; lrange takes "start" and "stop"
// (default 0 and -1); set takes "value" and an optional "ttl_seconds".
func (d *DataAccessor) Query(ctx context.Context, q ports.DataQuery) (any, error) {
	c, err := d.client(q.ConnectionID)
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(q.Query)
	if key == "" {
		return nil, errors.New("query must name a key")
	}

	op := strings.ToLower(q.Operation)
	if op == "" {
		op = OpGet
	}

	switch op {
	case OpGet:
		v, err := c.Get(ctx, key).Result()
		if errors.Is(err, backend.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return decodeValue(v), nil

	case OpSet:
		value, ok := q.Parameters["value"]
		if !ok {
			return nil, errors.New("set requires a value parameter")
		}
		data, err := encodeValue(value)
		if err != nil {
			return nil, err
		}
		ttl := time.Duration(cast.ToFloat64(q.Parameters["ttl_seconds"]) * float64(time.Second))
		if err := c.Set(ctx, key, data, ttl).Err(); err != nil {
			return nil, err
		}
		return map[string]any{"key": key, "stored": true}, nil

	case OpHGet:
		field := cast.ToString(q.Parameters["field"])
		if field == "" {
			return nil, errors.New("hget requires a field parameter")
		}
		v, err := c.HGet(ctx, key, field).Result()
		if errors.Is(err, backend.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return decodeValue(v), nil

	case OpHGetAll:
		fields, err := c.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(fields))
		for k, v := range fields {
			out[k] = decodeValue(v)
		}
		return out, nil

	case OpLRange:
		start := cast.ToInt64(q.Parameters["start"])
		stop := int64(-1)
		if v, ok := q.Parameters["stop"]; ok {
			stop = cast.ToInt64(v)
		}
		items, err := c.LRange(ctx, key, start, stop).Result()
		if err != nil {
			return nil, err
		}
		return decodeAll(items), nil

	case OpSMembers:
		items, err := c.SMembers(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		return decodeAll(items), nil
	}
	return nil, fmt.Errorf("unsupported operation %q", q.Operation)
}

// decodeValue returns JSON values decoded and anything else as a string.
func decodeValue(v string) any {
	var out any
	if err := json.Unmarshal([]byte(v), &out); err == nil {
		return out
	}
	return v
}

func decodeAll(items []string) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, decodeValue(it))
	}
	return out
}

func encodeValue(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("cannot encode value: %w", err)
	}
	return string(data), nil
}
