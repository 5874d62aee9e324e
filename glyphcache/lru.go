package glyphcache

// lruList is an intrusive doubly-linked list of entries. The head is the
// most recently used entry. Callers hold Cache.mu.
type lruList struct {
	head *entry
	tail *entry
	len  int
}

func (l *lruList) pushFront(e *entry) {
	e.prev = nil
	e.next = l.head
	if l.head != nil {
		l.head.prev = e
	} else {
		l.tail = e
	}
	l.head = e
	l.len++
}

func (l *lruList) moveToFront(e *entry) {
	if e == l.head {
		return
	}
	l.remove(e)
	l.pushFront(e)
}

func (l *lruList) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}
	e.prev, e.next = nil, nil
	l.len--
}

func (l *lruList) clear() {
	l.head, l.tail, l.len = nil, nil, 0
}
