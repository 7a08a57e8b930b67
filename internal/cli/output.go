package cli

import (
	"encoding/json"
	"io"

	"github.com/unkn0wn-root/netgate"
	"github.com/unkn0wn-root/netgate/failure"
)

// record is one line of command output.
type record struct {
	Method  string           `json:"method"`
	Path    string           `json:"path"`
	Source  string           `json:"source"`
	Status  int              `json:"status,omitempty"`
	Value   any              `json:"value,omitempty"`
	Failure *failure.Failure `json:"failure,omitempty"`
}

func newRecord(method, path string, r netgate.Result[any]) record {
	return record{
		Method:  method,
		Path:    path,
		Source:  r.Source.String(),
		Status:  r.Status,
		Value:   r.Value,
		Failure: r.Failure,
	}
}

func writeRecords(w io.Writer, recs ...record) error {
	enc := json.NewEncoder(w)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
