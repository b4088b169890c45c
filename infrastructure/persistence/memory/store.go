/*
Package memory 内存持久化实现：开发模式与测试使用，语义与数据库实现保持一致
（事务原子提交、乐观锁版本校验、唯一约束）。
*/
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"fitquest/domain/competition"
	"fitquest/domain/gamification"
	"fitquest/domain/identity"
)

type ledgerKey struct {
	consumer string
	eventID  string
}

type state struct {
	users    map[string]identity.ReconstructionDTO
	emails   map[string]string
	profiles map[string]gamification.ReconstructionDTO
	members  map[competition.MemberKey]competition.ReconstructionDTO
	ledger   map[ledgerKey]time.Time
}

func newState() state {
	return state{
		users:    make(map[string]identity.ReconstructionDTO),
		emails:   make(map[string]string),
		profiles: make(map[string]gamification.ReconstructionDTO),
		members:  make(map[competition.MemberKey]competition.ReconstructionDTO),
		ledger:   make(map[ledgerKey]time.Time),
	}
}

func (s state) clone() state {
	return state{
		users:    maps.Clone(s.users),
		emails:   maps.Clone(s.emails),
		profiles: maps.Clone(s.profiles),
		members:  maps.Clone(s.members),
		ledger:   maps.Clone(s.ledger),
	}
}

// Store 所有内存仓储共享的数据
type Store struct {
	mu            sync.RWMutex
	st            state
	commitFailure error
	commits       int
}

func NewStore() *Store {
	return &Store{st: newState()}
}

// FailNextCommit 让下一次提交失败，用于验证失败时不分发事件
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitFailure = err
}

// Commits 成功提交次数
func (s *Store) Commits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits
}

func (s *Store) CanConnect(context.Context) bool {
	return true
}

func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.st)
}

// apply 在副本上依次执行写操作，全部成功才替换，保证原子性
func (s *Store) apply(ops []op) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.commitFailure != nil {
		err := s.commitFailure
		s.commitFailure = nil
		return err
	}

	next := s.st.clone()
	for _, o := range ops {
		if err := o(&next); err != nil {
			return err
		}
	}
	s.st = next
	s.commits++
	return nil
}

type op func(st *state) error

type tx struct {
	ops []op
}

type txKey struct{}

func txFromContext(ctx context.Context) *tx {
	if t, ok := ctx.Value(txKey{}).(*tx); ok {
		return t
	}
	return nil
}

// write 在事务中登记写操作，没有事务时立即提交
func (s *Store) write(ctx context.Context, o op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t := txFromContext(ctx); t != nil {
		t.ops = append(t.ops, o)
		return nil
	}
	return s.apply([]op{o})
}
