// 随机数引擎，包装了golang.org/x/exp/rand，用于生成可复现的随机剖面与场景
package randengine

import (
	"flag"
	"log"
	"sync"

	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于调整随机数生成
)

// Engine 随机数引擎
// 功能：同一种子产生同一序列，保证随机生成的剖面与场景可复现
type Engine struct {
	*rand.Rand
	mtx sync.Mutex
}

// New 创建随机数引擎
// 参数：seed-随机数种子（会加上命令行指定的种子偏移量）
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// IntRange 生成[lo, hi]内的随机整数（非线程安全）
func (e *Engine) IntRange(lo, hi int) int {
	if hi < lo {
		log.Panicf("randengine: IntRange: empty range [%d, %d]", lo, hi)
	}
	return lo + e.Intn(hi-lo+1)
}

// PTrue 以指定概率返回true（非线程安全）
func (e *Engine) PTrue(p float64) bool {
	return e.Float64() < p
}

// DiscreteDistribution 按给定权重生成随机下标（非线程安全）
func (e *Engine) DiscreteDistribution(weight []float64) int32 {
	random := .0
	for _, w := range weight {
		random += w
	}
	random *= e.Float64()
	sum := 0.
	for i, w := range weight {
		sum += w
		if sum > random {
			return int32(i)
		}
	}
	log.Panicf("randengine: DiscreteDistribution: sum: %f random: %f", sum, random)
	return -1
}

// IntRangeSafe 线程安全版本的IntRange
func (e *Engine) IntRangeSafe(lo, hi int) int {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.IntRange(lo, hi)
}
