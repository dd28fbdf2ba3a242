package counter

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Store类型
const (
	TypeMemory = "memory"
	TypeFile   = "file"
	TypeRedis  = "redis"
	TypeMySQL  = "mysql"
)

// StoreConfig 阅读数存储配置
type StoreConfig struct {
	Type       string `yaml:"type"`        //memory,file,redis,mysql
	File       string `yaml:"file"`        //type为file时的文件路径
	RedisGroup string `yaml:"redis_group"` //type为redis时使用的redis组
	KeyPrefix  string `yaml:"key_prefix"`  //redis key前缀
	Persist    string `yaml:"persist"`     //redis的持久化存储:空,file或mysql
}

// Parse implements Configurer.Parse
func (p *StoreConfig) Parse() error {
	if p.Type == "" {
		p.Type = TypeMemory
	}
	switch p.Type {
	case TypeMemory, TypeMySQL:
	case TypeFile:
		if p.File == "" {
			return fmt.Errorf("store type file need file")
		}
	case TypeRedis:
		if p.RedisGroup == "" {
			return fmt.Errorf("store type redis need redis_group")
		}
		if p.KeyPrefix == "" {
			p.KeyPrefix = "blogviews:"
		}
		switch p.Persist {
		case "", TypeMySQL:
		case TypeFile:
			if p.File == "" {
				return fmt.Errorf("file persist need file")
			}
		default:
			return fmt.Errorf("unsupported persist %s", p.Persist)
		}
	default:
		return fmt.Errorf("unsupported store type %s", p.Type)
	}
	return nil
}

// MySQLConfig 数据库配置
type MySQLConfig struct {
	User            string `yaml:"user"`
	Pass            string `yaml:"pass"`
	URL             string `yaml:"url"`
	Schema          string `yaml:"schema"`
	Table           string `yaml:"table"`
	MaxConn         int    `yaml:"max_conn"`
	MaxIdle         int    `yaml:"max_idle"`
	MaxLifeSecond   int    `yaml:"max_life_second"`
	TimeoutMillis   int    `yaml:"timeout_millis"`
	AutoCreateTable bool   `yaml:"auto_create_table"`
}

// Parse implements Configurer.Parse
func (p *MySQLConfig) Parse() error {
	if p.URL == "" {
		return fmt.Errorf("need url")
	}
	if p.Schema == "" {
		return fmt.Errorf("need schema")
	}
	if p.Table == "" {
		p.Table = defaultTable
	}
	return nil
}

// DSN 构建go-sql-driver/mysql的连接串
func (p *MySQLConfig) DSN() string {
	conf := mysql.NewConfig()
	conf.User = p.User
	conf.Passwd = p.Pass
	conf.Net = "tcp"
	conf.Addr = p.URL
	conf.DBName = p.Schema
	conf.Params = map[string]string{"charset": "utf8mb4"}
	if p.TimeoutMillis > 0 {
		timeout := time.Duration(p.TimeoutMillis) * time.Millisecond
		conf.Timeout = timeout
		conf.ReadTimeout = timeout
		conf.WriteTimeout = timeout
	}
	return conf.FormatDSN()
}

// OpenDB 打开数据库连接池
func (p *MySQLConfig) OpenDB() (*sql.DB, error) {
	db, err := sql.Open("mysql", p.DSN())
	if err != nil {
		return nil, err
	}
	if p.MaxConn > 0 {
		db.SetMaxOpenConns(p.MaxConn)
	}
	if p.MaxIdle > 0 {
		db.SetMaxIdleConns(p.MaxIdle)
	}
	if p.MaxLifeSecond > 0 {
		db.SetConnMaxLifetime(time.Duration(p.MaxLifeSecond) * time.Second)
	}
	return db, nil
}
