package process

import (
	"strconv"

	"github.com/loykin/sentinel/internal/store"
)

// Failure pairs a record with the error message that kept its operation from
// completing.
type Failure struct {
	Record store.ProcessRecord
	Err    string
}

// BatchStart starts every record's process, isolating failures per item: one
// failed spawn is reported alongside the others' successes and never aborts
// the remainder.
func (m *Manager) BatchStart(recs []store.ProcessRecord) ([]store.ProcessRecord, []Failure) {
	var ok []store.ProcessRecord
	var failed []Failure
	for _, rec := range recs {
		fresh, err := m.StartFromRecord(rec)
		if err != nil {
			failed = append(failed, Failure{Record: rec, Err: err.Error()})
			continue
		}
		ok = append(ok, fresh)
	}
	return ok, failed
}

// BatchStop stops every record's process with per-item failure isolation.
func (m *Manager) BatchStop(recs []store.ProcessRecord, force bool) ([]store.ProcessRecord, []Failure) {
	var ok []store.ProcessRecord
	var failed []Failure
	for _, rec := range recs {
		stopped, err := m.Stop(strconv.FormatInt(rec.ID, 10), force)
		if err != nil {
			failed = append(failed, Failure{Record: rec, Err: err.Error()})
			continue
		}
		ok = append(ok, stopped)
	}
	return ok, failed
}

// BatchRestart restarts every record's process with per-item failure
// isolation.
func (m *Manager) BatchRestart(recs []store.ProcessRecord) ([]store.ProcessRecord, []Failure) {
	var ok []store.ProcessRecord
	var failed []Failure
	for _, rec := range recs {
		fresh, err := m.Restart(strconv.FormatInt(rec.ID, 10))
		if err != nil {
			failed = append(failed, Failure{Record: rec, Err: err.Error()})
			continue
		}
		ok = append(ok, fresh)
	}
	return ok, failed
}
