// Package frp is the small push/pull dataflow engine the time sources plug
// into: signals are sampled, streams push events, sinks inject events from
// any goroutine. Every Send and every top-level Sample runs in its own
// transaction; transactions are serialized on one engine lock, and all
// reads of a lifted signal inside one transaction see the same value.
// Sample and Send called from inside a callback join the running transaction.
package frp

import (
	"sync"
	"sync/atomic"
)

var (
	txMu    sync.Mutex
	txSeq   atomic.Uint64
	txOwner atomic.Int64 // 持有引擎锁的协程 id, 0 表示空闲
	txCur   *Transaction // 持锁时有效
)

// Transaction is one atomic propagation step.
type Transaction struct {
	id      uint64
	cache   map[any]any
	updates []func()
	finals  []func()
}

func (tx *Transaction) ID() uint64 {
	return tx.id
}

func (tx *Transaction) load(key any) (any, bool) {
	v, ok := tx.cache[key]
	return v, ok
}

func (tx *Transaction) store(key, v any) {
	if tx.cache == nil {
		tx.cache = make(map[any]any)
	}
	tx.cache[key] = v
}

// onCommit 在本事务所有事件传播完成后, 释放引擎锁前执行, 用于提交状态
func (tx *Transaction) onCommit(f func()) {
	tx.updates = append(tx.updates, f)
}

// afterCommit 释放引擎锁后在发送方协程执行
func (tx *Transaction) afterCommit(f func()) {
	tx.finals = append(tx.finals, f)
}

// commit 在新事务中执行 f. 已处于事务中的协程 (例如在 Lift, Map, Fold 的
// 回调里调用 Sample 或 Send) 直接加入当前事务.
func commit(f func(tx *Transaction)) {
	gid := goroutineID()
	if txOwner.Load() == gid {
		f(txCur)
		return
	}
	tx := &Transaction{id: txSeq.Add(1)}
	func() {
		txMu.Lock()
		txOwner.Store(gid)
		txCur = tx
		defer func() {
			txCur = nil
			txOwner.Store(0)
			txMu.Unlock()
		}()
		f(tx)
		for i := 0; i < len(tx.updates); i++ {
			tx.updates[i]()
		}
	}()
	for _, fn := range tx.finals {
		fn()
	}
}
