// Package journal is an append-only log of application launches.
//
// The launch database only stores a hash of an executable's name.
// The journal keeps the names so that tools can show which executable
// a record belongs to.
//
// # Format
//
// One line per launch:
//
//	<unix time> <hash as 8 hex digits> <executable>
//
// The executable is the rest of the line and can contain spaces but
// not newlines.
//
// # Basic Usage
//
//	j := &journal.Journal{
//	    Dir: "./data",
//	}
//	err := journal.Open(j)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_, err = j.Append(journal.Entry{Timestamp: 1000, Hash: 0xaca988b8, Executable: "firefox"})
//	names := j.Names()
//
// # Thread Safety
//
// A Journal is safe for concurrent use. Each Append is a single
// O_APPEND write so processes sharing a journal don't interleave lines.
package journal
