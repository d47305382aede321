package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/granaflow/grana-api/internal/domain/summary"
)

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

// periodBounds resolves a period into repository filter bounds. "all" yields
// zero times, meaning no constraint.
func periodBounds(p summary.Period) (time.Time, time.Time) {
	return p.Bounds(time.Now().UTC())
}
