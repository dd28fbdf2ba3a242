// Package counter 提供文章阅读数的存储.
//
// 所有的Store实现都保证Incr对同一个文章是原子的,并发的Incr不会丢失.
// ReplaceAll是整体替换,只用于数据迁移和管理操作,不能与Incr并发使用.
package counter

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrEmptyID 文章id为空
	ErrEmptyID = errors.New("empty article id")
	// ErrNegative 阅读数不能为负数
	ErrNegative = errors.New("negative views")
)

// Views 文章id到阅读数的映射,不存在的文章阅读数为0
type Views map[string]int64

// Get 取得articleID的阅读数
func (v Views) Get(articleID string) int64 {
	return v[articleID]
}

// Clone 复制
func (v Views) Clone() Views {
	cloned := make(Views, len(v))
	for k, n := range v {
		cloned[k] = n
	}
	return cloned
}

// Validate 检查id非空且阅读数非负
func (v Views) Validate() error {
	for k, n := range v {
		if k == "" {
			return ErrEmptyID
		}
		if n < 0 {
			return errors.Wrapf(ErrNegative, "article %s", k)
		}
	}
	return nil
}

// Store 阅读数存储
type Store interface {
	// Name 存储的名称
	Name() string
	// GetAll 取得所有文章的阅读数
	GetAll(ctx context.Context) (Views, error)
	// Incr 原子地将articleID的阅读数加1,返回加1后的值
	Incr(ctx context.Context, articleID string) (int64, error)
	// ReplaceAll 用views整体替换存储中的数据
	ReplaceAll(ctx context.Context, views Views) error
}

// Persist 持久化存储,用于Redis的预热和定期同步
type Persist interface {
	// Load 加载所有的阅读数
	Load(ctx context.Context) (Views, error)
	// Merge 合并views,每个文章取已有值和新值中较大的一个,保证阅读数不会减少
	Merge(ctx context.Context, views Views) error
}
