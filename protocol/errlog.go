package protocol

import (
	"log"
	"sync"
)

// ErrorLog accumulates the recoverable errors of a run: protocol
// violations, contradictive combinations. Roles keep going after
// reporting; tests assert the log stays empty.
type ErrorLog struct {
	mtx  *sync.Mutex
	errs []error
}

func NewErrorLog() *ErrorLog {
	return &ErrorLog{mtx: &sync.Mutex{}}
}

func (l *ErrorLog) Report(err error) {
	log.Print("protocol error: ", err)
	l.mtx.Lock()
	l.errs = append(l.errs, err)
	l.mtx.Unlock()
}

func (l *ErrorLog) List() []error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	es := make([]error, len(l.errs))
	copy(es, l.errs)
	return es
}

func (l *ErrorLog) Empty() bool {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return len(l.errs) == 0
}
