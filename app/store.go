package app

import (
	"context"
	"database/sql"

	"github.com/d0ngw/blogviews/cache"
	c "github.com/d0ngw/blogviews/common"
	"github.com/d0ngw/blogviews/counter"
	"github.com/pkg/errors"
)

// Stores 打开的存储和需要释放的资源
type Stores struct {
	Store   counter.Store
	Persist counter.Persist // Redis的持久化存储,没有时为nil
	closers []func() error
}

// Close 释放资源
func (p *Stores) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			c.Warnf("close store fail,err:%v", err)
		}
	}
	p.closers = nil
}

// OpenStores 按照配置打开阅读数存储,Redis存储会从持久化存储中预热
func OpenStores(ctx context.Context, conf *Config) (*Stores, error) {
	stores := &Stores{}
	var err error
	stores.Store, stores.Persist, err = stores.open(ctx, conf)
	if err != nil {
		stores.Close()
		return nil, err
	}
	c.Infof("use store %s", stores.Store.Name())
	return stores, nil
}

func (p *Stores) open(ctx context.Context, conf *Config) (counter.Store, counter.Persist, error) {
	storeConf := conf.Store
	switch storeConf.Type {
	case counter.TypeMemory:
		return counter.NewMemoryStore(), nil, nil
	case counter.TypeFile:
		return counter.NewFileStore(storeConf.File), nil, nil
	case counter.TypeMySQL:
		store, err := p.openMySQL(ctx, conf.MySQL)
		return store, nil, err
	case counter.TypeRedis:
		var persist counter.Persist
		switch storeConf.Persist {
		case counter.TypeFile:
			persist = counter.NewFileStore(storeConf.File)
		case counter.TypeMySQL:
			store, err := p.openMySQL(ctx, conf.MySQL)
			if err != nil {
				return nil, nil, err
			}
			persist = store
		}

		client := cache.NewRedisClientWithConf(conf.Redis)
		p.closers = append(p.closers, client.Close)
		if err := client.Ping(ctx, storeConf.RedisGroup); err != nil {
			return nil, nil, errors.Wrapf(err, "ping redis group %s", storeConf.RedisGroup)
		}
		store, err := counter.NewRedisStore(client, cache.NewParamConf(storeConf.RedisGroup, storeConf.KeyPrefix), persist)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Warm(ctx); err != nil {
			return nil, nil, err
		}
		return store, persist, nil
	}
	return nil, nil, errors.Errorf("unsupported store type %s", storeConf.Type)
}

func (p *Stores) openMySQL(ctx context.Context, conf *counter.MySQLConfig) (*counter.MySQLStore, error) {
	db, err := conf.OpenDB()
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	p.closers = append(p.closers, db.Close)
	return newMySQLStore(ctx, db, conf)
}

func newMySQLStore(ctx context.Context, db *sql.DB, conf *counter.MySQLConfig) (*counter.MySQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, "ping mysql")
	}
	store, err := counter.NewMySQLStore(db, conf.Table)
	if err != nil {
		return nil, err
	}
	if conf.AutoCreateTable {
		if err := store.CreateTable(ctx); err != nil {
			return nil, err
		}
	}
	return store, nil
}
