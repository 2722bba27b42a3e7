package launchstore

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/pretty"
	"github.com/toon-format/toon-go"
)

// DumpFormats are formats supported by WriteDump
var DumpFormats = []string{"text", "json", "toon"}

type DumpOptions struct {
	// "text" (default), "json" or "toon"
	Format string
	// time zone for formatting launch times, time.Local if nil
	Location *time.Location
	// show launch times relative to Now e.g. "3 hours ago"
	Relative bool
	Now      time.Time
	// executable names by hash, e.g. from the journal
	Names map[uint32]string
}

func (o *DumpOptions) formatTime(r Record) string {
	t := r.Time()
	if o.Relative {
		now := o.Now
		if now.IsZero() {
			now = time.Now()
		}
		return humanize.RelTime(t, now, "ago", "from now")
	}
	loc := o.Location
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("2006-01-02 15:04:05")
}

// dumpRecord is how a record looks like in json output
type dumpRecord struct {
	Hash         string `json:"hash"`
	LastLaunched uint32 `json:"last_launched"`
	Time         string `json:"time"`
	Launches     uint32 `json:"launches"`
	Executable   string `json:"executable,omitempty"`
}

// WriteDump writes all records to w, one per line in text format:
// <hash>\t<last launched>\t<launches>[\t<executable>]
func (s *Store) WriteDump(w io.Writer, opts *DumpOptions) error {
	if opts == nil {
		opts = &DumpOptions{}
	}
	records, err := s.Records()
	if err != nil {
		return err
	}
	switch opts.Format {
	case "", "text":
		for _, r := range records {
			line := fmt.Sprintf("%08x\t%s\t%d", r.Hash, opts.formatTime(r), r.Launches)
			if name, ok := opts.Names[r.Hash]; ok {
				line += "\t" + name
			}
			if _, err = fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	case "json":
		recs := make([]dumpRecord, 0, len(records))
		for _, r := range records {
			recs = append(recs, dumpRecord{
				Hash:         fmt.Sprintf("%08x", r.Hash),
				LastLaunched: r.LastLaunched,
				Time:         opts.formatTime(r),
				Launches:     r.Launches,
				Executable:   opts.Names[r.Hash],
			})
		}
		d, err := json.Marshal(recs)
		if err != nil {
			return err
		}
		_, err = w.Write(pretty.Pretty(d))
		return err
	case "toon":
		recs := make([]map[string]any, 0, len(records))
		for _, r := range records {
			m := map[string]any{
				"hash":          fmt.Sprintf("%08x", r.Hash),
				"last_launched": int64(r.LastLaunched),
				"time":          opts.formatTime(r),
				"launches":      int64(r.Launches),
			}
			if name, ok := opts.Names[r.Hash]; ok {
				m["executable"] = name
			}
			recs = append(recs, m)
		}
		d, err := toon.Marshal(map[string]any{"records": recs})
		if err != nil {
			return err
		}
		if len(d) > 0 && d[len(d)-1] != '\n' {
			d = append(d, '\n')
		}
		_, err = w.Write(d)
		return err
	}
	return fmt.Errorf("unknown dump format %q, must be one of %v", opts.Format, DumpFormats)
}
