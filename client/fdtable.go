package client

import "sync"

// fdTable is the client-process open-file table (§2 "Open-file table
// (client)"): fd -> *FileHandle, assigning the smallest free integer
// at or above a configured base. dup/dup2 insert another fd entry
// pointing at the same *FileHandle and bump its refcount so the
// backing per-server virtual FHs close only once every referencing fd
// has been closed.
type fdTable struct {
	mu   sync.Mutex
	base int32
	next int32
	refs map[*FileHandle]int
	open map[int32]*FileHandle
}

func newFdTable(base int32) *fdTable {
	return &fdTable{
		base: base,
		next: base,
		refs: make(map[*FileHandle]int),
		open: make(map[int32]*FileHandle),
	}
}

// alloc inserts fh under the smallest free fd >= base.
func (t *fdTable) alloc(fh *FileHandle) int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	fd := t.base
	for {
		if _, taken := t.open[fd]; !taken {
			break
		}
		fd++
	}
	t.open[fd] = fh
	t.refs[fh]++
	return fd
}

func (t *fdTable) get(fd int32) (*FileHandle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fh, ok := t.open[fd]
	return fh, ok
}

// dup assigns newFd (or the smallest free fd if newFd < 0) to the same
// *FileHandle already open at fd.
func (t *fdTable) dup(fd int32, newFd int32) (int32, *FileHandle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fh, ok := t.open[fd]
	if !ok {
		return 0, nil, false
	}
	if newFd < 0 {
		newFd = t.base
		for {
			if _, taken := t.open[newFd]; !taken {
				break
			}
			newFd++
		}
	} else if old, taken := t.open[newFd]; taken {
		t.refs[old]--
		if t.refs[old] == 0 {
			delete(t.refs, old)
		}
	}
	t.open[newFd] = fh
	t.refs[fh]++
	return newFd, fh, true
}

// release removes fd from the table and reports the backing handle
// plus whether this was the last fd referencing it (i.e. the caller
// should close its per-server virtual FHs).
func (t *fdTable) release(fd int32) (fh *FileHandle, last bool, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fh, ok = t.open[fd]
	if !ok {
		return nil, false, false
	}
	delete(t.open, fd)
	t.refs[fh]--
	if t.refs[fh] <= 0 {
		delete(t.refs, fh)
		return fh, true, true
	}
	return fh, false, true
}
