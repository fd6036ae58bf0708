package ext

import (
	"math/rand"
	"sync"
	"time"

	"golang.org/x/exp/constraints"
)

// 全局随机源, rand.Rand 本身非并发安全
var (
	randMu sync.Mutex
	srand  = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NewRand 独立随机源, 给单个房间/测试使用
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// NewSeed 从全局源取一个种子
func NewSeed() int64 {
	randMu.Lock()
	defer randMu.Unlock()
	return srand.Int63()
}

func IsHit(v int) bool {
	return RandInt(0, 100) < v
}

func IsHitFloat(v float64) bool {
	return RandFloat(0, 1.0) <= v
}

func RandFloat[T constraints.Float](min T, max T) T {
	if max <= min {
		return min
	}
	randMu.Lock()
	f := srand.Float64()
	randMu.Unlock()
	return T(f)*(max-min) + min
}

// RandInt [min, max)
func RandInt[T constraints.Integer](min T, max T) T {
	if max <= min {
		return min
	}
	randMu.Lock()
	n := srand.Int63n(int64(max - min))
	randMu.Unlock()
	return T(n) + min
}

// RandIntInclusive [min, max]
func RandIntInclusive[T constraints.Integer](min T, max T) T {
	return RandInt(min, max+1)
}

// RandPick 随机取一个元素, 空切片返回零值
func RandPick[T any](items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	return items[RandInt(0, len(items))]
}
