// Package store 提供 core.Store 的实现：内存、Redis 与 Badger。
//
// 注意：此包只包含实现，接口定义在 core 包。
//
// 示例：
//
//	var s core.Store = store.NewMemoryStore()
//	s, err := store.Open(store.Options{Backend: store.BackendBadger, BadgerPath: "./data"})
package store

import (
	"fmt"

	"github.com/rushteam/assockit/core"
)

// 存储后端名称
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// Options 描述如何打开一个存储后端。
type Options struct {
	Backend string

	RedisAddr string
	RedisDB   int

	BadgerPath     string
	BadgerInMemory bool
}

// Open 按 Backend 打开存储；空 Backend 视为 memory。
func Open(opts Options) (core.Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		return NewRedisStore(opts.RedisAddr, opts.RedisDB)
	case BackendBadger:
		return NewBadgerStore(opts.BadgerPath, opts.BadgerInMemory)
	default:
		return nil, core.ErrStoreNotSupported.WithParam("backend", opts.Backend)
	}
}

func wrapErr(backend, op string, err error) error {
	return fmt.Errorf("%s %s: %w", backend, op, err)
}
