package counter

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	c "github.com/d0ngw/blogviews/common"
	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// MySQL错误码
const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

const (
	defaultTable      = "article_views"
	defaultMaxRetries = 3
)

// MySQLStore 使用MySQL表保存阅读数,每个文章一行,Incr为单条upsert语句
type MySQLStore struct {
	db         *sql.DB
	table      string
	maxRetries int
	now        func() time.Time
}

// NewMySQLStore create MySQLStore
func NewMySQLStore(db *sql.DB, table string) (*MySQLStore, error) {
	if db == nil {
		return nil, errors.New("db must not be nil")
	}
	if table == "" {
		table = defaultTable
	}
	return &MySQLStore{
		db:         db,
		table:      table,
		maxRetries: defaultMaxRetries,
		now:        time.Now,
	}, nil
}

// Name implements Store.Name
func (p *MySQLStore) Name() string {
	return "mysql:" + p.table
}

// CreateTable 建表
func (p *MySQLStore) CreateTable(ctx context.Context) error {
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` ("+
		"`slug` VARCHAR(191) NOT NULL,"+
		"`views` BIGINT NOT NULL DEFAULT 0,"+
		"`updated_at` BIGINT NOT NULL DEFAULT 0,"+
		"PRIMARY KEY (`slug`)"+
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4", p.table)
	_, err := p.db.ExecContext(ctx, ddl)
	return errors.Wrapf(err, "create table %s", p.table)
}

// GetAll implements Store.GetAll
func (p *MySQLStore) GetAll(ctx context.Context) (Views, error) {
	query, args, err := sq.Select("slug", "views").From(p.table).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", p.table)
	}
	defer rows.Close()

	views := Views{}
	for rows.Next() {
		var slug string
		var n int64
		if err := rows.Scan(&slug, &n); err != nil {
			return nil, errors.Wrapf(err, "scan %s", p.table)
		}
		views[slug] = n
	}
	return views, errors.Wrapf(rows.Err(), "iterate %s", p.table)
}

// Incr implements Store.Incr
func (p *MySQLStore) Incr(ctx context.Context, articleID string) (int64, error) {
	if articleID == "" {
		return 0, ErrEmptyID
	}
	upsert, upsertArgs, err := sq.Insert(p.table).
		Columns("slug", "views", "updated_at").
		Values(articleID, int64(1), c.UnixMills(p.now())).
		Suffix("ON DUPLICATE KEY UPDATE views = views + 1, updated_at = VALUES(updated_at)").
		ToSql()
	if err != nil {
		return 0, err
	}
	query, queryArgs, err := sq.Select("views").From(p.table).Where(sq.Eq{"slug": articleID}).ToSql()
	if err != nil {
		return 0, err
	}

	var views int64
	err = p.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, upsert, upsertArgs...); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, query, queryArgs...).Scan(&views)
	})
	if err != nil {
		return 0, errors.Wrapf(err, "incr %s", articleID)
	}
	return views, nil
}

// ReplaceAll implements Store.ReplaceAll
func (p *MySQLStore) ReplaceAll(ctx context.Context, views Views) error {
	if err := views.Validate(); err != nil {
		return err
	}
	del, delArgs, err := sq.Delete(p.table).ToSql()
	if err != nil {
		return err
	}
	now := c.UnixMills(p.now())
	err = p.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, del, delArgs...); err != nil {
			return err
		}
		if len(views) == 0 {
			return nil
		}
		insert := sq.Insert(p.table).Columns("slug", "views", "updated_at")
		for k, v := range views {
			insert = insert.Values(k, v, now)
		}
		query, args, err := insert.ToSql()
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, query, args...)
		return err
	})
	return errors.Wrap(err, "replace views")
}

// Load implements Persist.Load
func (p *MySQLStore) Load(ctx context.Context) (Views, error) {
	return p.GetAll(ctx)
}

// Merge implements Persist.Merge
func (p *MySQLStore) Merge(ctx context.Context, views Views) error {
	if err := views.Validate(); err != nil {
		return err
	}
	if len(views) == 0 {
		return nil
	}
	now := c.UnixMills(p.now())
	insert := sq.Insert(p.table).Columns("slug", "views", "updated_at")
	for k, v := range views {
		insert = insert.Values(k, v, now)
	}
	query, args, err := insert.
		Suffix("ON DUPLICATE KEY UPDATE updated_at = IF(VALUES(views) > views, VALUES(updated_at), updated_at), views = GREATEST(views, VALUES(views))").
		ToSql()
	if err != nil {
		return err
	}
	err = p.withRetry(ctx, func() error {
		_, err := p.db.ExecContext(ctx, query, args...)
		return err
	})
	return errors.Wrap(err, "merge views")
}

func (p *MySQLStore) inTx(ctx context.Context, f func(tx *sql.Tx) error) error {
	return p.withRetry(ctx, func() error {
		tx, err := p.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := f(tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				c.Warnf("rollback %s fail,err:%v", p.table, rbErr)
			}
			return err
		}
		return tx.Commit()
	})
}

// withRetry 死锁和锁等待超时在内部重试,其他错误直接返回
func (p *MySQLStore) withRetry(ctx context.Context, f func() error) error {
	var err error
	for i := 0; i <= p.maxRetries; i++ {
		if err = f(); err == nil || !isRetryable(err) {
			return err
		}
		c.Warnf("%s conflict,retry %d,err:%v", p.table, i+1, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 10 * time.Millisecond):
		}
	}
	return err
}

func isRetryable(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrDeadlock || mysqlErr.Number == mysqlErrLockWaitTimeout
	}
	return false
}
