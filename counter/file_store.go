package counter

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FileStore 把所有文章的阅读数保存在一个JSON文件中.
// 所有的修改都在同一把锁内完成,并通过临时文件+rename整体写入,进程内的并发Incr不会丢失.
// 同一个文件只能被一个进程使用.
type FileStore struct {
	path   string
	mu     sync.Mutex
	views  Views
	loaded bool
}

// NewFileStore create FileStore
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Name implements Store.Name
func (p *FileStore) Name() string {
	return "file:" + p.path
}

func (p *FileStore) load() error {
	if p.loaded {
		return nil
	}
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		p.views = Views{}
		p.loaded = true
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "read %s", p.path)
	}
	views := Views{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &views); err != nil {
			return errors.Wrapf(err, "decode %s", p.path)
		}
	}
	p.views = views
	p.loaded = true
	return nil
}

func (p *FileStore) write(views Views) error {
	data, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "mkdir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	if _, err = tmp.Write(data); err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpName, p.path)
	}
	if err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "write %s", p.path)
	}
	return nil
}

// GetAll implements Store.GetAll
func (p *FileStore) GetAll(ctx context.Context) (Views, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.load(); err != nil {
		return nil, err
	}
	return p.views.Clone(), nil
}

// Incr implements Store.Incr
func (p *FileStore) Incr(ctx context.Context, articleID string) (int64, error) {
	if articleID == "" {
		return 0, ErrEmptyID
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.load(); err != nil {
		return 0, err
	}
	next := p.views.Clone()
	next[articleID]++
	if err := p.write(next); err != nil {
		return 0, err
	}
	p.views = next
	return next[articleID], nil
}

// ReplaceAll implements Store.ReplaceAll
func (p *FileStore) ReplaceAll(ctx context.Context, views Views) error {
	if err := views.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	next := views.Clone()
	if err := p.write(next); err != nil {
		return err
	}
	p.views = next
	p.loaded = true
	return nil
}

// Load implements Persist.Load
func (p *FileStore) Load(ctx context.Context) (Views, error) {
	return p.GetAll(ctx)
}

// Merge implements Persist.Merge
func (p *FileStore) Merge(ctx context.Context, views Views) error {
	if err := views.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.load(); err != nil {
		return err
	}
	next := p.views.Clone()
	changed := false
	for k, v := range views {
		if v > next[k] {
			next[k] = v
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := p.write(next); err != nil {
		return err
	}
	p.views = next
	return nil
}
