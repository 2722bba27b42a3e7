// Package launchstore records when applications were launched and how
// many times.
//
// The database is a file of fixed-size text records sorted by a hash of
// executable name. Each record is three 8 digit hex numbers (hash, time
// of last launch in unix seconds, number of launches), each followed by
// a newline, plus an empty line:
//
//	aca988b8
//	000007d0
//	00000002
//
// Fixed size records let us mmap the file and binary search it.
//
// # Concurrency
//
// Many processes can use the same database. Readers take a shared
// flock(), the writer takes an exclusive one. Launches of known
// executables are updated in place through a writable mapping. Adding
// a new executable writes a new file and renames it over the database
// so readers never see a partial file.
//
// # Basic Usage
//
//	cfg, err := launchstore.DefaultConfig()
//	s, err := launchstore.New(cfg)
//	err = s.Add("firefox", time.Time{}) // zero time means now
//	rec, ok, err := s.Lookup("firefox")
//
//	// many lookups with one open
//	q, err := s.NewQuery()
//	defer q.Close()
//	for _, exe := range visible {
//	    rec, ok := q.Lookup(exe)
//	}
//
// The key is the hash, not the name. Two names with the same hash share
// a record.
package launchstore
