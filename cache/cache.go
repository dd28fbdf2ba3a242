// Package cache 提供Redis连接池配置、客户端以及缓存数据的编解码
package cache

// Param 定位一个Redis key:按Group选择实例,Key为完整的key
type Param interface {
	Group() string
	Key() string
}

// ParamConf 同一个group下共用前缀的key配置
type ParamConf struct {
	group     string
	keyPrefix string
}

// NewParamConf create ParamConf
func NewParamConf(group, keyPrefix string) *ParamConf {
	return &ParamConf{group: group, keyPrefix: keyPrefix}
}

// Group implements Param.Group
func (p *ParamConf) Group() string {
	return p.group
}

// KeyPrefix key的前缀
func (p *ParamConf) KeyPrefix() string {
	return p.keyPrefix
}

// NewParamKey 加上前缀得到完整的key
func (p *ParamConf) NewParamKey(key string) *ParamKey {
	return &ParamKey{ParamConf: p, key: p.keyPrefix + key}
}

// ParamKey 带有完整key的Param
type ParamKey struct {
	*ParamConf
	key string
}

// Key implements Param.Key
func (p *ParamKey) Key() string {
	return p.key
}
