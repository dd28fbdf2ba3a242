package counter

import (
	"context"
	"sync"
	"time"

	c "github.com/d0ngw/blogviews/common"
	"github.com/pkg/errors"
)

// SyncSchedule 定期把source中的阅读数合并到persist中,停止时再同步一次
type SyncSchedule struct {
	c.BaseService
	source   Store
	persist  Persist
	interval time.Duration
	timeout  time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
	lastSync Views
	mu       sync.Mutex
}

// NewSyncSchedule create SyncSchedule
func NewSyncSchedule(name string, source Store, persist Persist, interval time.Duration) (*SyncSchedule, error) {
	if c.HasNil(source, persist) || interval <= 0 {
		return nil, errors.New("invalid params")
	}
	return &SyncSchedule{
		BaseService: c.BaseService{SName: name},
		source:      source,
		persist:     persist,
		interval:    interval,
		timeout:     interval,
	}, nil
}

// Init implements Initable.Init
func (p *SyncSchedule) Init() error {
	if p.interval <= 0 {
		return errors.New("invalid interval")
	}
	return nil
}

// SyncOnce 同步一次,只合并比上次同步时增加了的文章,返回合并的文章数
func (p *SyncSchedule) SyncOnce(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	views, err := p.source.GetAll(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "get views from %s", p.source.Name())
	}
	changed := Views{}
	for k, v := range views {
		if last, ok := p.lastSync[k]; !ok || v > last {
			changed[k] = v
		}
	}
	if len(changed) == 0 {
		return 0, nil
	}
	if err := p.persist.Merge(ctx, changed); err != nil {
		return 0, err
	}
	p.lastSync = views
	return len(changed), nil
}

// ReplaceAll 整体替换source中的阅读数,替换后以views作为上次同步的结果.
// 与SyncOnce互斥,避免替换前读取的旧值再合并到persist中
func (p *SyncSchedule) ReplaceAll(ctx context.Context, views Views) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.source.ReplaceAll(ctx, views); err != nil {
		return err
	}
	p.lastSync = views.Clone()
	return nil
}

func (p *SyncSchedule) syncWithTimeout() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	st := time.Now()
	n, err := p.SyncOnce(ctx)
	if err != nil {
		c.Errorf("sync %s fail,err:%v", p.Name(), err)
		return
	}
	c.Debugf("sync %s %d articles in %v", p.Name(), n, time.Since(st))
}

// Start implements Service.Start
func (p *SyncSchedule) Start() bool {
	p.stopChan = make(chan struct{})
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		c.Infof("start sync task %s,interval:%v", p.Name(), p.interval)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.syncWithTimeout()
			case <-p.stopChan:
				p.syncWithTimeout()
				c.Infof("finish sync task %s", p.Name())
				return
			}
		}
	}()
	return true
}

// Stop implements Service.Stop
func (p *SyncSchedule) Stop() bool {
	if p.stopChan == nil {
		return true
	}
	close(p.stopChan)
	p.wg.Wait()
	p.stopChan = nil
	return true
}
