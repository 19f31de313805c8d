package store

import (
	"crypto/rand"
	"sync"
	"time"
)

// pushAlphabet 64 个字符按 ASCII 升序排列，保证 id 的字典序与生成时间序一致
const pushAlphabet = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

// PushIDGenerator 生成单调可排序的日志条目 key
// 格式：8 字符毫秒时间戳 + 12 字符随机尾部；同一毫秒内通过递增上一次的
// 随机尾部保证顺序且不碰撞（对齐外部 store 的 push key 语义）
type PushIDGenerator struct {
	mu       sync.Mutex
	lastTime int64
	lastRand [12]byte // 字母表下标
	now      func() time.Time
}

func NewPushIDGenerator() *PushIDGenerator {
	return &PushIDGenerator{now: time.Now}
}

// NewPushIDGeneratorAt 测试用：注入时钟
func NewPushIDGeneratorAt(now func() time.Time) *PushIDGenerator {
	return &PushIDGenerator{now: now}
}

// Next 生成下一个 push id，保证严格递增
func (g *PushIDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms == g.lastTime {
		// 同一毫秒：递增随机尾部（进位），保持顺序
		for i := len(g.lastRand) - 1; i >= 0; i-- {
			g.lastRand[i]++
			if g.lastRand[i] < 64 {
				break
			}
			g.lastRand[i] = 0
		}
	} else {
		var buf [12]byte
		_, _ = rand.Read(buf[:])
		for i, b := range buf {
			g.lastRand[i] = b % 64
		}
		g.lastTime = ms
	}

	var id [20]byte
	t := ms
	for i := 7; i >= 0; i-- {
		id[i] = pushAlphabet[t%64]
		t /= 64
	}
	for i, idx := range g.lastRand {
		id[8+i] = pushAlphabet[idx]
	}
	return string(id[:])
}
