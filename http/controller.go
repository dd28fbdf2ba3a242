package http

import (
	"fmt"
	"net/http"
	"reflect"
)

// Controller 接口定义http处理器
type Controller interface {
	// GetName 控制器的名称
	GetName() string
	// GetPath 路径前缀,同一个控制器下的处理函数都在这个路径下
	GetPath() string
	// GetHandlers 返回controller的所有处理方法,key为pattern,value为对应的处理方法
	GetHandlers() (map[string]http.HandlerFunc, error)
	// GetHandlerMiddlewares 返回处理方法专用的middleware,key为pattern
	GetHandlerMiddlewares() map[string][]Middleware
}

// BaseController 表示一个控制器
type BaseController struct {
	Name               string                  // Controller的名称
	Path               string                  // Controller的路径
	PatternMethods     map[string]string       // pattern到方法名的映射
	HandlerMiddlewares map[string][]Middleware // pattern对应的middleware
}

// GetName implements Controller
func (p *BaseController) GetName() string {
	return p.Name
}

// GetPath implements Controller
func (p *BaseController) GetPath() string {
	return p.Path
}

// GetHandlerMiddlewares implements Controller
func (p *BaseController) GetHandlerMiddlewares() map[string][]Middleware {
	return p.HandlerMiddlewares
}

var handlerFuncType = reflect.TypeOf(http.HandlerFunc(nil))

// ReflectHandlers 按照patternMethods查找controller中类型为http.HandlerFunc的可导出方法
func ReflectHandlers(controller interface{}, patternMethods map[string]string) (map[string]http.HandlerFunc, error) {
	val := reflect.ValueOf(controller)
	if !val.IsValid() || val.Kind() != reflect.Ptr || val.IsNil() {
		return nil, fmt.Errorf("controller must be a valid pointer")
	}
	if len(patternMethods) == 0 {
		return nil, fmt.Errorf("no pattern methods in %T", controller)
	}

	methods := map[string]http.HandlerFunc{}
	controllerType := val.Type()
	for i := 0; i < val.NumMethod(); i++ {
		methodVal := val.Method(i)
		if methodVal.Type().ConvertibleTo(handlerFuncType) {
			methods[controllerType.Method(i).Name] = methodVal.Convert(handlerFuncType).Interface().(http.HandlerFunc)
		}
	}

	handlers := map[string]http.HandlerFunc{}
	for pattern, name := range patternMethods {
		h, ok := methods[name]
		if !ok {
			return nil, fmt.Errorf("can't find handler method %s in %T", name, controller)
		}
		handlers[pattern] = h
	}
	return handlers, nil
}
