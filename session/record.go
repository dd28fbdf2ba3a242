// Package session 记录每个访客在当前会话中已经计数过的文章.
//
// 会话记录保存在客户端的cookie中,服务端是无状态的.
// 记录经过msgpack编码后用AES-GCM加密,无法解码或已过期的记录等同于不存在.
package session

// Record 文章id到是否已经计数的映射,不存在的文章视为未计数
type Record map[string]bool

// Viewed articleID是否已经计数
func (p Record) Viewed(articleID string) bool {
	return p[articleID]
}

// Clone 复制
func (p Record) Clone() Record {
	if p == nil {
		return nil
	}
	cloned := make(Record, len(p))
	for k, v := range p {
		cloned[k] = v
	}
	return cloned
}

// Equal 完全相同的key集合和值
func (p Record) Equal(other Record) bool {
	if len(p) != len(other) {
		return false
	}
	for k, v := range p {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Counted 只包含已经计数的文章,未计数的文章不需要保存
func (p Record) Counted() Record {
	counted := make(Record, len(p))
	for k, v := range p {
		if v {
			counted[k] = true
		}
	}
	return counted
}

// EnsureTracked 保证record中包含articleID.
// record为nil表示未知的访客,用known中的所有文章初始化为未计数;articleID不在record中时加入,值为false.
func EnsureTracked(record Record, known []string, articleID string) Record {
	if record == nil {
		record = make(Record, len(known)+1)
		for _, id := range known {
			if id != "" {
				record[id] = false
			}
		}
	}
	if _, ok := record[articleID]; !ok && articleID != "" {
		record[articleID] = false
	}
	return record
}
