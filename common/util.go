package common

import (
	"hash/fnv"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"sync"
	"syscall"
)

// HasNil 判断values中是否有nil,包括值为nil的指针、map、slice、func等
func HasNil(values ...interface{}) bool {
	for _, v := range values {
		if v == nil {
			return true
		}
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
			if rv.IsNil() {
				return true
			}
		}
	}
	return false
}

// IsEmpty 判断strs中是否有空白字符串
func IsEmpty(strs ...string) bool {
	for _, s := range strs {
		if strings.TrimSpace(s) == "" {
			return true
		}
	}
	return false
}

// Fnv32Hashcode fnv32 hash,结果为非负数
func Fnv32Hashcode(s string) int {
	h := fnv.New32()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() & 0x7fffffff)
}

// SplitTrimOmitEmpty 用sep分割s,去掉空白和空串
func SplitTrimOmitEmpty(s, sep string) []string {
	var result []string
	for _, v := range strings.Split(s, sep) {
		v = strings.TrimSpace(v)
		if v != "" {
			result = append(result, v)
		}
	}
	return result
}

// Shutdownhook 进程退出时依次执行的hook
type Shutdownhook struct {
	ch    chan os.Signal //接收信号的channel
	hooks []func()       //停机时需要调用的方法列表
	sync.Mutex
}

// NewShutdownhook 创建一个Shutdownhook,sig是要监听的信号,默认会监听syscall.SIGINT,syscall.SIGTERM
func NewShutdownhook(sig ...os.Signal) *Shutdownhook {
	if len(sig) == 0 {
		sig = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	ch := make(chan os.Signal, len(sig))
	signal.Notify(ch, sig...)
	return &Shutdownhook{ch: ch}
}

// AddHook 增加一个Hook函数
func (p *Shutdownhook) AddHook(hookFunc func()) {
	p.Lock()
	defer p.Unlock()
	p.hooks = append(p.hooks, hookFunc)
}

// WaitShutdown 等待进程退出的信号,当收到进程退出的信号后,依次执行注册的hook函数
func (p *Shutdownhook) WaitShutdown() {
	s, ok := <-p.ch
	signal.Stop(p.ch)

	p.Lock()
	hooks := p.hooks
	p.Unlock()

	if !ok {
		Warnf("receive signal fail")
		return
	}
	Infof("receive signal:%v,run hooks", s)
	for _, f := range hooks {
		f()
	}
	Infof("finished run hooks")
}
