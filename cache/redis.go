package cache

import (
	"context"
	"errors"
	"fmt"

	c "github.com/d0ngw/blogviews/common"
	"github.com/gomodule/redigo/redis"
)

// Redis命令
const (
	HGETALL = "HGETALL"
	HINCRBY = "HINCRBY"
	PING    = "PING"
)

// RedisClient 按group和key选择Redis实例执行命令
type RedisClient struct {
	groups map[string][]*RedisServer
}

// NewRedisClient create RedisClient with group servers
func NewRedisClient(groups map[string][]*RedisServer) *RedisClient {
	return &RedisClient{groups: groups}
}

// NewRedisClientWithConf create RedisClient with parsed RedisConf
func NewRedisClientWithConf(conf *RedisConf) *RedisClient {
	return NewRedisClient(conf.groups)
}

// GetGroupServers return servers of group
func (p *RedisClient) GetGroupServers(group string) ([]*RedisServer, error) {
	servers := p.groups[group]
	if len(servers) == 0 {
		return nil, fmt.Errorf("can't find redis group %s", group)
	}
	return servers, nil
}

func (p *RedisClient) getServer(param Param) (*RedisServer, error) {
	servers, err := p.GetGroupServers(param.Group())
	if err != nil {
		return nil, err
	}
	if len(servers) == 1 {
		return servers[0], nil
	}
	return servers[c.Fnv32Hashcode(param.Key())%len(servers)], nil
}

func (p *RedisClient) getConn(ctx context.Context, param Param) (redis.Conn, error) {
	server, err := p.getServer(param)
	if err != nil {
		return nil, err
	}
	if server.pool == nil {
		return nil, errors.New("no pool")
	}
	return server.pool.GetContext(ctx)
}

// Do 取得param对应的连接并执行f
func (p *RedisClient) Do(ctx context.Context, param Param, f func(conn redis.Conn) (interface{}, error)) (reply interface{}, err error) {
	conn, err := p.getConn(ctx, param)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			c.Errorf("close redis conn fail,err:%v", closeErr)
		}
	}()
	return f(conn)
}

// Eval 执行lua脚本,param.Key()作为脚本的第一个key
func (p *RedisClient) Eval(ctx context.Context, param Param, script *redis.Script, args ...interface{}) (interface{}, error) {
	return p.Do(ctx, param, func(conn redis.Conn) (interface{}, error) {
		keysAndArgs := make([]interface{}, 0, len(args)+1)
		keysAndArgs = append(keysAndArgs, param.Key())
		keysAndArgs = append(keysAndArgs, args...)
		return script.Do(conn, keysAndArgs...)
	})
}

// Ping 检查group中的所有实例是否可用
func (p *RedisClient) Ping(ctx context.Context, group string) error {
	servers, err := p.GetGroupServers(group)
	if err != nil {
		return err
	}
	for _, server := range servers {
		conn, err := server.pool.GetContext(ctx)
		if err != nil {
			return err
		}
		_, err = conn.Do(PING)
		conn.Close()
		if err != nil {
			return fmt.Errorf("ping %s fail,err:%w", server.Addr(), err)
		}
	}
	return nil
}

// Close 关闭所有的连接池
func (p *RedisClient) Close() error {
	var lastErr error
	for _, servers := range p.groups {
		for _, server := range servers {
			if err := server.closePool(); err != nil {
				lastErr = err
			}
		}
	}
	return lastErr
}
