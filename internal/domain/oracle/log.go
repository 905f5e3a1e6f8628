package oracle

// Log is an append-only event set. Records with a key are kept once; records
// without a key cannot be deduplicated and are always appended.
type Log struct {
	events []Event
	seen   map[string]struct{}
}

func NewLog(events ...Event) *Log {
	l := &Log{seen: make(map[string]struct{}, len(events))}
	l.Append(events...)
	return l
}

func (l *Log) Append(events ...Event) int {
	if l.seen == nil {
		l.seen = make(map[string]struct{})
	}

	appended := 0
	for _, event := range events {
		if event.Key != "" {
			if _, ok := l.seen[event.Key]; ok {
				continue
			}
			l.seen[event.Key] = struct{}{}
		}
		l.events = append(l.events, event)
		appended++
	}
	return appended
}

func (l *Log) Len() int {
	return len(l.events)
}

func (l *Log) Snapshot() []Event {
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}
