package counter

import (
	"context"
	"sync"

	c "github.com/d0ngw/blogviews/common"
)

const defaultShardCount = 32

type memoryShard struct {
	items map[string]int64
	sync.RWMutex
}

// MemoryStore 分片加锁的内存存储
type MemoryStore struct {
	shards []*memoryShard
}

// NewMemoryStore create MemoryStore with 32 shards
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithShard(defaultShardCount)
}

// NewMemoryStoreWithShard create MemoryStore
func NewMemoryStoreWithShard(shardCount int) *MemoryStore {
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	shards := make([]*memoryShard, shardCount)
	for i := range shards {
		shards[i] = &memoryShard{items: map[string]int64{}}
	}
	return &MemoryStore{shards: shards}
}

func (p *MemoryStore) getShard(articleID string) *memoryShard {
	return p.shards[c.Fnv32Hashcode(articleID)%len(p.shards)]
}

// Name implements Store.Name
func (p *MemoryStore) Name() string {
	return "memory"
}

// GetAll implements Store.GetAll
func (p *MemoryStore) GetAll(ctx context.Context) (Views, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	views := Views{}
	for _, shard := range p.shards {
		shard.RLock()
		for k, v := range shard.items {
			views[k] = v
		}
		shard.RUnlock()
	}
	return views, nil
}

// Incr implements Store.Incr
func (p *MemoryStore) Incr(ctx context.Context, articleID string) (int64, error) {
	if articleID == "" {
		return 0, ErrEmptyID
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	shard := p.getShard(articleID)
	shard.Lock()
	defer shard.Unlock()
	shard.items[articleID]++
	return shard.items[articleID], nil
}

// ReplaceAll implements Store.ReplaceAll
func (p *MemoryStore) ReplaceAll(ctx context.Context, views Views) error {
	if err := views.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, shard := range p.shards {
		shard.Lock()
	}
	defer func() {
		for _, shard := range p.shards {
			shard.Unlock()
		}
	}()
	for _, shard := range p.shards {
		shard.items = map[string]int64{}
	}
	for k, v := range views {
		p.getShard(k).items[k] = v
	}
	return nil
}

// Load implements Persist.Load
func (p *MemoryStore) Load(ctx context.Context) (Views, error) {
	return p.GetAll(ctx)
}

// Merge implements Persist.Merge
func (p *MemoryStore) Merge(ctx context.Context, views Views) error {
	if err := views.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for k, v := range views {
		shard := p.getShard(k)
		shard.Lock()
		if v > shard.items[k] {
			shard.items[k] = v
		}
		shard.Unlock()
	}
	return nil
}
