package launchstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/kjk/launches/journal"
	"github.com/kjk/launches/log"
	"github.com/kjk/launches/u"
	"golang.org/x/sys/unix"
)

// Store is a database of application launches.
// Readers and the single writer coordinate with flock() so many processes
// can share a database file. Within a process, read views share a single
// memory mapping.
type Store struct {
	path         string
	scratchDir   string
	helperBinary string
	journal      *journal.Journal

	// called before a new database file is renamed over path, for tests
	beforeRename func(tmpPath string) error

	mu sync.Mutex
	// nil when closed
	m *mapping
}

// mapping is the open database file shared by all views in this process
type mapping struct {
	f *os.File
	// nil for empty or non-existent database
	data       []byte
	n          int
	forWriting bool
	// we created the (empty) file when opening for writing
	created bool
	refs    int
}

// New creates a store for database described by cfg. It doesn't touch
// the database file, a missing file is an empty database.
func New(cfg *Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	path, err := filepath.Abs(cfg.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for '%s': %w", cfg.DatabaseFile, err)
	}
	s := &Store{
		path:         path,
		scratchDir:   cfg.ScratchDir,
		helperBinary: cfg.HelperBinary,
	}
	if s.helperBinary == "" {
		s.helperBinary = DefaultHelperBinary
	}
	if cfg.JournalDir != "" {
		j := &journal.Journal{Dir: cfg.JournalDir}
		if err = journal.Open(j); err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		s.journal = j
	}
	return s, nil
}

// Path returns absolute path of database file
func (s *Store) Path() string {
	return s.path
}

// Journal returns launch journal or nil if not configured
func (s *Store) Journal() *journal.Journal {
	return s.journal
}

// fail logs err so that callers who ignore it still leave a trace
func (s *Store) fail(err error) error {
	log.IfErrf(err)
	return err
}

// View is an open database. Records are read directly from the memory
// mapping so a View is only valid until Close.
type View struct {
	s      *Store
	m      *mapping
	closed bool
}

// Open opens the database for reading (shared lock) or writing
// (exclusive lock), blocking until the lock is available.
// Read opens within a process share a mapping and only the last Close
// releases it. Opening while the database is open for writing in this
// process, or for writing while open for reading, fails with ErrLocked.
// A non-existent database opens as empty.
func (s *Store) Open(forWriting bool) (*View, error) {
	v, err := s.openView(forWriting, false)
	return v, s.fail(err)
}

func (s *Store) openView(forWriting bool, lockOnly bool) (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.m != nil {
		if s.m.forWriting || forWriting {
			return nil, newError(KindOpening, "open", s.path, ErrLocked)
		}
		s.m.refs++
		log.Verbosef("launchstore: reusing mapping of '%s', refs: %d\n", s.path, s.m.refs)
		return &View{s: s, m: s.m}, nil
	}

	m, err := s.mapFile(forWriting, lockOnly)
	if err != nil {
		return nil, err
	}
	s.m = m
	log.Verbosef("launchstore: opened '%s' for writing: %v, records: %d\n", s.path, forWriting, m.n)
	return &View{s: s, m: m}, nil
}

func flock(f *os.File, how int) error {
	for {
		err := unix.Flock(int(f.Fd()), how)
		if err != unix.EINTR {
			return err
		}
	}
}

// openFile opens the database file. For writing the file is created
// if it doesn't exist and created tells if we did.
func (s *Store) openFile(forWriting bool) (f *os.File, created bool, err error) {
	if !forWriting {
		f, err = os.Open(s.path)
		return f, false, err
	}
	for {
		f, err = os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, true, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, false, err
		}
		f, err = os.OpenFile(s.path, os.O_RDWR, 0644)
		if errors.Is(err, os.ErrNotExist) {
			// removed between the two opens
			continue
		}
		return f, false, err
	}
}

func unlockAndClose(f *os.File) {
	_ = flock(f, unix.LOCK_UN)
	_ = f.Close()
}

// mapFile opens, locks and maps the database file.
// lockOnly skips validation and mapping, for callers that replace
// the file wholesale.
func (s *Store) mapFile(forWriting bool, lockOnly bool) (*mapping, error) {
	m := &mapping{
		forWriting: forWriting,
		refs:       1,
	}
	prot, how := unix.PROT_READ, unix.LOCK_SH
	if forWriting {
		prot, how = unix.PROT_READ|unix.PROT_WRITE, unix.LOCK_EX
		if err := u.CreateDirForFile(s.path); err != nil {
			return nil, newError(KindOpening, "mkdir", filepath.Dir(s.path), err)
		}
	}

	for {
		f, created, err := s.openFile(forWriting)
		if err != nil {
			if !forWriting && errors.Is(err, os.ErrNotExist) {
				// no launches recorded yet
				return m, nil
			}
			return nil, newError(KindOpening, "open", s.path, err)
		}
		if err = flock(f, how); err != nil {
			_ = f.Close()
			return nil, newError(KindOpening, "flock", s.path, err)
		}
		st, err := f.Stat()
		if err != nil {
			unlockAndClose(f)
			return nil, newError(KindOpening, "stat", s.path, err)
		}

		// while we waited for the lock a writer could have renamed a new
		// file over path. The lock we hold is then on a stale file
		cur, err := os.Stat(s.path)
		if err != nil || !os.SameFile(st, cur) {
			unlockAndClose(f)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, newError(KindOpening, "stat", s.path, err)
			}
			if err != nil && !forWriting {
				return m, nil
			}
			continue
		}

		m.f = f
		m.created = created
		if lockOnly {
			return m, nil
		}

		size := st.Size()
		if size%RecordSize != 0 {
			unlockAndClose(f)
			err = fmt.Errorf("%w: size %d is not a multiple of record size %d", ErrCorrupt, size, RecordSize)
			return nil, newError(KindReading, "stat", s.path, err)
		}
		if size == 0 {
			// can't mmap 0 bytes
			return m, nil
		}
		data, err := unix.Mmap(int(f.Fd()), 0, int(size), prot, unix.MAP_SHARED)
		if err != nil {
			unlockAndClose(f)
			return nil, newError(KindOpening, "mmap", s.path, err)
		}
		m.data = data
		m.n = int(size / RecordSize)
		return m, nil
	}
}

// removeIfCreated deletes the database file if opening v for writing
// created it and it's still empty, so that a failed first add leaves
// no file behind. Must be called before v is closed.
func (v *View) removeIfCreated() {
	m := v.m
	if v.closed || !m.forWriting || !m.created || m.n != 0 {
		return
	}
	// we hold the lock, nobody else could have written to it
	st, err := m.f.Stat()
	if err != nil || st.Size() != 0 {
		return
	}
	if cur, err := os.Stat(v.s.path); err != nil || !os.SameFile(st, cur) {
		return
	}
	if err := os.Remove(v.s.path); err != nil {
		log.Warningf("launchstore: removing empty '%s' failed with '%s'\n", v.s.path, err)
	}
}

// release drops a reference to m, unmapping and unlocking the file
// when it was the last one
func (s *Store) release(m *mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.refs > 1 {
		m.refs--
		return nil
	}
	m.refs = 0
	if s.m == m {
		s.m = nil
	}

	var err error
	if m.data != nil {
		if e := unix.Munmap(m.data); e != nil {
			err = newError(KindClosing, "munmap", s.path, e)
		}
		m.data = nil
	}
	if m.f != nil {
		// the file is going away, failing to unlock or close it is not
		// something the caller can act on
		if e := flock(m.f, unix.LOCK_UN); e != nil {
			log.Warningf("launchstore: unlock '%s' failed with '%s'\n", s.path, e)
		}
		if e := m.f.Close(); e != nil {
			log.Warningf("launchstore: close '%s' failed with '%s'\n", s.path, e)
		}
		m.f = nil
	}
	m.n = 0
	log.Verbosef("launchstore: closed '%s'\n", s.path)
	return err
}

// Close releases the view. The database is unmapped and unlocked when
// the last view sharing the mapping is closed. Calling Close twice is
// a no-op.
func (v *View) Close() error {
	if v == nil || v.closed {
		return nil
	}
	v.closed = true
	return v.s.fail(v.s.release(v.m))
}

// ForWriting returns true if the view holds the exclusive lock
func (v *View) ForWriting() bool {
	return v.m.forWriting
}

// Len returns number of records
func (v *View) Len() int {
	if v.closed {
		return 0
	}
	return v.m.n
}

// slot returns bytes of i-th record, nil if i is out of range
func (v *View) slot(i int) []byte {
	if i < 0 || i >= v.Len() {
		return nil
	}
	off := i * RecordSize
	return v.m.data[off : off+RecordSize : off+RecordSize]
}

// bytes returns all records as stored on disk
func (v *View) bytes() []byte {
	if v.closed {
		return nil
	}
	return v.m.data
}

// Record decodes i-th record
func (v *View) Record(i int) (Record, error) {
	b := v.slot(i)
	if b == nil {
		return Record{}, fmt.Errorf("record index %d out of range [0, %d)", i, v.Len())
	}
	r, err := DecodeRecord(b)
	if err != nil {
		return r, newError(KindReading, fmt.Sprintf("record %d", i), v.s.path, fmt.Errorf("%w: %w", ErrCorrupt, err))
	}
	return r, nil
}

// RecordRef points at a record inside the mapping of an open View
type RecordRef struct {
	index int
	b     []byte
}

// Index returns position of the record in the database
func (r RecordRef) Index() int {
	return r.index
}

// Decode parses the referenced record
func (r RecordRef) Decode() (Record, error) {
	return DecodeRecord(r.b)
}

// LookupHash does a binary search for a record with a given hash
func (v *View) LookupHash(hash uint32) (RecordRef, bool) {
	key := hashKey(hash)
	n := v.Len()
	i := sort.Search(n, func(i int) bool {
		return CompareHash(v.slot(i), key) >= 0
	})
	if i < n && CompareHash(v.slot(i), key) == 0 {
		return RecordRef{index: i, b: v.slot(i)}, true
	}
	return RecordRef{}, false
}

// Lookup finds the record of executable
func (v *View) Lookup(executable string) (Record, bool, error) {
	ref, ok := v.LookupHash(HashString(executable))
	if !ok {
		return Record{}, false, nil
	}
	r, err := ref.Decode()
	if err != nil {
		return r, false, newError(KindReading, "decode", v.s.path, fmt.Errorf("%w: %w", ErrCorrupt, err))
	}
	return r, true, nil
}

// update modifies the referenced record in place, through the mapping
func (v *View) update(ref RecordRef, upd Update) error {
	if v.closed || !v.m.forWriting {
		return newError(KindWriting, "update", v.s.path, errors.New("database is not open for writing"))
	}
	if err := encodeUpdate(ref.b, upd); err != nil {
		return newError(KindReading, "update", v.s.path, fmt.Errorf("%w: %w", ErrCorrupt, err))
	}
	// the mapping is MAP_SHARED so other processes see the change right
	// away. msync makes it durable
	if err := unix.Msync(v.m.data, unix.MS_SYNC); err != nil {
		log.Warningf("launchstore: msync '%s' failed with '%s'\n", v.s.path, err)
	}
	return nil
}

// Lookup returns launch record of executable. It opens and closes the
// database. Use Query for many lookups.
func (s *Store) Lookup(executable string) (Record, bool, error) {
	v, err := s.Open(false)
	if err != nil {
		return Record{}, false, err
	}
	r, ok, err := v.Lookup(executable)
	errClose := v.Close()
	if err != nil {
		return Record{}, false, s.fail(err)
	}
	if errClose != nil {
		return Record{}, false, errClose
	}
	return r, ok, nil
}

// Close releases resources not tied to a View
func (s *Store) Close() error {
	if s.journal != nil {
		return s.journal.Close()
	}
	return nil
}
