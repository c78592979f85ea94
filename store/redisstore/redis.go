package redisstore

import (
	"context"
	"errors"
	"fmt"

	"eventers-ticket-ledger/store"

	"github.com/go-redis/redis"
)

// Store keeps ledger keys as Redis strings and ordered lists as Redis lists,
// all under a common prefix.
type Store struct {
	client *redis.Client
	prefix string
}

type Options struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

func New(opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("new: could not reach redis at %s: %w", opts.Address, err)
	}
	return &Store{client: client, prefix: opts.Prefix}, nil
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.WithContext(ctx).Get(s.key(key)).Bytes()
	if err == redis.Nil {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get: %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) Contains(ctx context.Context, key string) (bool, error) {
	n, err := s.client.WithContext(ctx).Exists(s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("contains: %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *Store) Len(ctx context.Context, list string) (uint64, error) {
	n, err := s.client.WithContext(ctx).LLen(s.key(list)).Result()
	if err != nil {
		return 0, fmt.Errorf("len: %s: %w", list, err)
	}
	return uint64(n), nil
}

func (s *Store) Index(ctx context.Context, list string, i uint64) ([]byte, error) {
	v, err := s.client.WithContext(ctx).LIndex(s.key(list), int64(i)).Bytes()
	if err == redis.Nil {
		return nil, store.ErrOutOfRange
	}
	if err != nil {
		return nil, fmt.Errorf("index: %s[%d]: %w", list, i, err)
	}
	return v, nil
}

func (s *Store) Range(ctx context.Context, list string, start, stop uint64) ([][]byte, error) {
	if start >= stop {
		return [][]byte{}, nil
	}
	// LRANGE is inclusive of stop.
	vals, err := s.client.WithContext(ctx).LRange(s.key(list), int64(start), int64(stop-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("range: %s: %w", list, err)
	}
	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		out = append(out, []byte(v))
	}
	return out, nil
}

// Commit watches every list the batch indexes into, checks bounds against the
// lengths the batch will produce, then applies all ops in one MULTI/EXEC.
// Redis does not roll back a failed command inside EXEC, so bounds must be
// settled before the transaction is queued.
func (s *Store) Commit(ctx context.Context, b *store.Batch) error {
	ops := b.Ops()
	if len(ops) == 0 {
		return nil
	}

	var watched []string
	seen := make(map[string]bool)
	for _, op := range ops {
		if (op.Kind == store.OpAppend || op.Kind == store.OpSetIndex) && !seen[op.Key] {
			seen[op.Key] = true
			watched = append(watched, s.key(op.Key))
		}
	}

	client := s.client.WithContext(ctx)
	err := client.Watch(func(tx *redis.Tx) error {
		lengths := make(map[string]int64)
		for _, op := range ops {
			if op.Kind != store.OpAppend && op.Kind != store.OpSetIndex {
				continue
			}
			if _, ok := lengths[op.Key]; !ok {
				n, err := tx.LLen(s.key(op.Key)).Result()
				if err != nil {
					return fmt.Errorf("llen %s: %w", op.Key, err)
				}
				lengths[op.Key] = n
			}
			switch op.Kind {
			case store.OpAppend:
				lengths[op.Key]++
			case store.OpSetIndex:
				if int64(op.Index) >= lengths[op.Key] {
					return fmt.Errorf("%s %s[%d]: %w", op.Kind, op.Key, op.Index, store.ErrOutOfRange)
				}
			}
		}

		_, err := tx.Pipelined(func(pipe redis.Pipeliner) error {
			for _, op := range ops {
				k := s.key(op.Key)
				switch op.Kind {
				case store.OpSet:
					pipe.Set(k, op.Value, 0)
				case store.OpDelete:
					pipe.Del(k)
				case store.OpAppend:
					pipe.RPush(k, op.Value)
				case store.OpSetIndex:
					pipe.LSet(k, int64(op.Index), op.Value)
				default:
					return fmt.Errorf("unknown op kind %d", op.Kind)
				}
			}
			return nil
		})
		return err
	}, watched...)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("commit: concurrent modification of %v: %w", watched, err)
	}
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}
