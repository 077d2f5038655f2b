package room

import "sync"

// roomLocks serializes read-modify-write cycles per room id, so two
// concurrent commands for the same room in this process cannot lose
// each other's update. Cross-process writers still meet at the store.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*roomLock)}
}

// lock blocks until the room's lock is held and returns the unlock func.
func (l *roomLocks) lock(roomId string) func() {
	l.mu.Lock()
	rl, ok := l.locks[roomId]
	if !ok {
		rl = &roomLock{}
		l.locks[roomId] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()

	return func() {
		rl.mu.Unlock()

		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, roomId)
		}
		l.mu.Unlock()
	}
}
