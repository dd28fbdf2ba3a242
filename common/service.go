package common

import (
	"fmt"
	"sort"
	"sync"
)

// ServiceState 表示服务的状态
type ServiceState uint32

const (
	// NEW 新建
	NEW ServiceState = iota
	// INITED 初始化完毕
	INITED
	// STARTING 正在启动
	STARTING
	// RUNNING 正在运行
	RUNNING
	// STOPPING 正在停止
	STOPPING
	// TERMINATED 已经停止
	TERMINATED
	// FAILED 失败
	FAILED
)

var serviceStateNames = [...]string{"NEW", "INITED", "STARTING", "RUNNING", "STOPPING", "TERMINATED", "FAILED"}

func (p ServiceState) String() string {
	if int(p) < len(serviceStateNames) {
		return serviceStateNames[p]
	}
	return fmt.Sprintf("ServiceState(%d)", uint32(p))
}

// canTransfer 检查状态转移是否有效,TERMINATED和FAILED是终止状态
func (p ServiceState) canTransfer(to ServiceState) bool {
	switch p {
	case TERMINATED, FAILED:
		return false
	case STOPPING:
		return to == TERMINATED || to == FAILED
	}
	return to == p+1 || to == FAILED || to == TERMINATED
}

// Initable 表示需要进行初始化
type Initable interface {
	// Init 执行初始化操作,如果初始化失败,返回错误的原因
	Init() error
}

// Service 统一的服务接口,http服务和计数同步任务都以Service的形式管理
type Service interface {
	Initable
	// Name 取得服务名称
	Name() string
	// Start 启动服务
	Start() bool
	// GetStartOrder 启动的次序,小的先启动
	GetStartOrder() int
	// Stop 停止服务
	Stop() bool
	// GetStopOrder 停止的次序,小的先停止
	GetStopOrder() int
	// State 服务的状态
	State() ServiceState
	setState(newState ServiceState) bool
}

// serviceInit 初始化服务,已经初始化过的跳过
func serviceInit(service Service) bool {
	name := serviceName(service)
	if service.State() == INITED {
		Infof("%s has been inited,skip", name)
		return true
	}
	err := service.Init()
	if err == nil && service.setState(INITED) {
		return true
	}
	Errorf("init %s fail,err:%v", name, err)
	service.setState(FAILED)
	return false
}

// serviceStart 开始服务
func serviceStart(service Service) bool {
	name := serviceName(service)
	service.setState(STARTING)
	if service.Start() && service.setState(RUNNING) {
		return true
	}
	Errorf("start %s fail", name)
	service.setState(FAILED)
	return false
}

// serviceStop 停止服务
func serviceStop(service Service) bool {
	name := serviceName(service)
	service.setState(STOPPING)
	if service.Stop() && service.setState(TERMINATED) {
		return true
	}
	Errorf("stop %s fail", name)
	service.setState(FAILED)
	return false
}

// BaseService 提供基本的Service接口实现
type BaseService struct {
	SName     string //服务的名称
	Order     int
	state     ServiceState
	stateLock sync.RWMutex
}

// Name 服务名称
func (p *BaseService) Name() string {
	return p.SName
}

// Init 初始化
func (p *BaseService) Init() error {
	return nil
}

// Start 启动服务
func (p *BaseService) Start() bool {
	return true
}

// GetStartOrder 启动次序
func (p *BaseService) GetStartOrder() int {
	return p.Order
}

// Stop 停止服务
func (p *BaseService) Stop() bool {
	return true
}

// GetStopOrder 停止次序,与启动次序相反
func (p *BaseService) GetStopOrder() int {
	return -p.GetStartOrder()
}

// State 取得服务的状态
func (p *BaseService) State() ServiceState {
	p.stateLock.RLock()
	defer p.stateLock.RUnlock()
	return p.state
}

func (p *BaseService) setState(newState ServiceState) bool {
	p.stateLock.Lock()
	defer p.stateLock.Unlock()
	if p.state.canTransfer(newState) {
		p.state = newState
		return true
	}
	Errorf("invalid state transfer %s->%s,%s", p.state, newState, p.Name())
	return false
}

// serviceName 取得服务的名称
func serviceName(service Service) string {
	name := fmt.Sprintf("%T", service)
	if service.Name() != "" {
		name += "#" + service.Name()
	}
	return name
}

// Services 一组按次序启动、逆序停止的Service
type Services struct {
	started []Service
	stopped []Service
}

// NewServices 构建新的Service集合
func NewServices(services ...Service) *Services {
	started := make([]Service, len(services))
	copy(started, services)
	sort.SliceStable(started, func(i, j int) bool {
		return started[i].GetStartOrder() < started[j].GetStartOrder()
	})
	stopped := make([]Service, len(services))
	copy(stopped, services)
	sort.SliceStable(stopped, func(i, j int) bool {
		return stopped[i].GetStopOrder() < stopped[j].GetStopOrder()
	})
	return &Services{started: started, stopped: stopped}
}

// Init 初始化服务集合
func (p *Services) Init() bool {
	for _, service := range p.started {
		if !serviceInit(service) {
			return false
		}
	}
	return true
}

// Start 启动服务
func (p *Services) Start() bool {
	for _, service := range p.started {
		if !serviceStart(service) {
			return false
		}
	}
	return true
}

// Stop 停止服务,单个服务失败不影响其他服务的停止
func (p *Services) Stop() bool {
	ok := true
	for _, service := range p.stopped {
		if service.State() != RUNNING {
			continue
		}
		if !serviceStop(service) {
			ok = false
		}
	}
	return ok
}
