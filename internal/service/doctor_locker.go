package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrLockTimeout is returned when the doctor lock could not be acquired within the wait timeout
var ErrLockTimeout = errors.New("timed out waiting for doctor lock")

// DoctorLocker serializes mutating operations per doctor. fn runs while the
// lock is held; operations for different doctors never wait on each other.
type DoctorLocker interface {
	WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context) error) error
}

// doctorMutex is a one-slot semaphore so waiting can give up on ctx or timeout
type doctorMutex struct {
	sem  chan struct{}
	refs int
}

// LocalDoctorLocker serializes per doctor inside this process only.
//
// Entries are reference counted and dropped as soon as nobody holds or waits
// on them, so the map only ever contains doctors with in-flight operations.
type LocalDoctorLocker struct {
	mu          sync.Mutex
	doctors     map[uuid.UUID]*doctorMutex
	waitTimeout time.Duration
	log         *logrus.Logger
}

func NewLocalDoctorLocker(waitTimeout time.Duration, log *logrus.Logger) *LocalDoctorLocker {
	return &LocalDoctorLocker{
		doctors:     make(map[uuid.UUID]*doctorMutex),
		waitTimeout: waitTimeout,
		log:         log,
	}
}

func (l *LocalDoctorLocker) WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context) error) error {
	dm := l.acquireRef(doctorID)
	defer l.releaseRef(doctorID, dm)

	timer := time.NewTimer(l.waitTimeout)
	defer timer.Stop()

	select {
	case dm.sem <- struct{}{}:
	case <-timer.C:
		l.log.Warnf("Timed out waiting for local lock of doctor %s", doctorID)
		return fmt.Errorf("doctor %s: %w", doctorID, ErrLockTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-dm.sem }()

	return fn(ctx)
}

// Held reports how many doctors currently have an operation holding or waiting on the lock
func (l *LocalDoctorLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.doctors)
}

func (l *LocalDoctorLocker) acquireRef(doctorID uuid.UUID) *doctorMutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	dm, ok := l.doctors[doctorID]
	if !ok {
		dm = &doctorMutex{sem: make(chan struct{}, 1)}
		l.doctors[doctorID] = dm
	}
	dm.refs++
	return dm
}

func (l *LocalDoctorLocker) releaseRef(doctorID uuid.UUID, dm *doctorMutex) {
	l.mu.Lock()
	defer l.mu.Unlock()

	dm.refs--
	if dm.refs == 0 {
		delete(l.doctors, doctorID)
	}
}
