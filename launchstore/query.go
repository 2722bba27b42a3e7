package launchstore

// Query looks up many executables with the database opened once,
// e.g. to refresh "last launched" of every visible launcher.
// The database stays read-locked until Close so writers in other
// processes wait; don't keep a Query around longer than needed.
type Query struct {
	v *View
}

// NewQuery opens the database for reading
func (s *Store) NewQuery() (*Query, error) {
	v, err := s.Open(false)
	if err != nil {
		return nil, err
	}
	return &Query{v: v}, nil
}

// Lookup returns launch record of executable. A record that can't be
// decoded is logged and reported as not found.
func (q *Query) Lookup(executable string) (Record, bool) {
	r, ok, err := q.v.Lookup(executable)
	if err != nil {
		q.v.s.fail(err)
		return Record{}, false
	}
	return r, ok
}

// Len returns number of records in the database
func (q *Query) Len() int {
	return q.v.Len()
}

// Close closes the database
func (q *Query) Close() error {
	return q.v.Close()
}
