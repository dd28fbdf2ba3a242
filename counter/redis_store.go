package counter

import (
	"context"
	"strconv"
	"strings"

	"github.com/d0ngw/blogviews/cache"
	c "github.com/d0ngw/blogviews/common"
	"github.com/gomodule/redigo/redis"
	"github.com/pkg/errors"
)

const viewsKey = "views"

// 整体替换hash的内容
var replaceScript = redis.NewScript(1, `
redis.call('DEL', KEYS[1])
for i = 1, #ARGV, 2 do
	redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
end
return #ARGV / 2
`)

// 每个field取已有值和新值中较大的一个,返回更新的field个数
var mergeScript = redis.NewScript(1, `
local updated = 0
for i = 1, #ARGV, 2 do
	local current = tonumber(redis.call('HGET', KEYS[1], ARGV[i]) or '0')
	local value = tonumber(ARGV[i + 1])
	if value > current then
		redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
		updated = updated + 1
	end
end
return updated
`)

// RedisStore 使用一个Redis hash保存所有文章的阅读数,field为文章id,Incr使用HINCRBY
type RedisStore struct {
	redisClient *cache.RedisClient
	cacheParam  *cache.ParamConf
	persist     Persist
}

// NewRedisStore create RedisStore,persist可以为nil
func NewRedisStore(redisClient *cache.RedisClient, cacheParam *cache.ParamConf, persist Persist) (*RedisStore, error) {
	if c.HasNil(redisClient, cacheParam) {
		return nil, errors.New("redisClient and cacheParam must not be nil")
	}
	if strings.Contains(cacheParam.KeyPrefix(), " ") {
		return nil, errors.Errorf("invalid key prefix %q", cacheParam.KeyPrefix())
	}
	return &RedisStore{
		redisClient: redisClient,
		cacheParam:  cacheParam,
		persist:     persist,
	}, nil
}

func (p *RedisStore) param() *cache.ParamKey {
	return p.cacheParam.NewParamKey(viewsKey)
}

// Name implements Store.Name
func (p *RedisStore) Name() string {
	return "redis:" + p.param().Key()
}

// GetAll implements Store.GetAll
func (p *RedisStore) GetAll(ctx context.Context) (Views, error) {
	param := p.param()
	reply, err := redis.Int64Map(p.redisClient.Do(ctx, param, func(conn redis.Conn) (interface{}, error) {
		return redis.DoContext(conn, ctx, cache.HGETALL, param.Key())
	}))
	if err != nil {
		return nil, errors.Wrapf(err, "hgetall %s", param.Key())
	}
	return Views(reply), nil
}

// Incr implements Store.Incr
func (p *RedisStore) Incr(ctx context.Context, articleID string) (int64, error) {
	if articleID == "" {
		return 0, ErrEmptyID
	}
	param := p.param()
	n, err := redis.Int64(p.redisClient.Do(ctx, param, func(conn redis.Conn) (interface{}, error) {
		return redis.DoContext(conn, ctx, cache.HINCRBY, param.Key(), articleID, 1)
	}))
	if err != nil {
		return 0, errors.Wrapf(err, "hincrby %s %s", param.Key(), articleID)
	}
	return n, nil
}

// ReplaceAll implements Store.ReplaceAll.
// 持久化存储中的旧值会在预热时合并回来,所以先替换持久化存储,再替换Redis
func (p *RedisStore) ReplaceAll(ctx context.Context, views Views) error {
	if err := views.Validate(); err != nil {
		return err
	}
	if p.persist != nil {
		store, ok := p.persist.(Store)
		if !ok {
			return errors.New("persist does not support replace")
		}
		if err := store.ReplaceAll(ctx, views); err != nil {
			return errors.Wrapf(err, "replace views in %s", store.Name())
		}
	}
	_, err := p.redisClient.Eval(ctx, p.param(), replaceScript, viewsArgs(views)...)
	return errors.Wrap(err, "replace views")
}

// Load implements Persist.Load
func (p *RedisStore) Load(ctx context.Context) (Views, error) {
	return p.GetAll(ctx)
}

// Merge implements Persist.Merge
func (p *RedisStore) Merge(ctx context.Context, views Views) error {
	if err := views.Validate(); err != nil {
		return err
	}
	if len(views) == 0 {
		return nil
	}
	_, err := p.redisClient.Eval(ctx, p.param(), mergeScript, viewsArgs(views)...)
	return errors.Wrap(err, "merge views")
}

// Warm 从持久化存储中加载阅读数合并到Redis,Redis中已有的较大值不会被覆盖
func (p *RedisStore) Warm(ctx context.Context) error {
	if p.persist == nil {
		return nil
	}
	views, err := p.persist.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "load persist views")
	}
	if err := p.Merge(ctx, views); err != nil {
		return err
	}
	c.Infof("warm %s with %d articles", p.Name(), len(views))
	return nil
}

// Persist 持久化存储
func (p *RedisStore) Persist() Persist {
	return p.persist
}

func viewsArgs(views Views) []interface{} {
	args := make([]interface{}, 0, len(views)*2)
	for k, v := range views {
		args = append(args, k, strconv.FormatInt(v, 10))
	}
	return args
}
